// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package worker

import (
	"github.com/binkynet/GpioWorker/pkg/model"
)

// Status is a snapshot of the worker state.
type Status struct {
	ProgramVersion string           `json:"program_version,omitempty"`
	Backend        string           `json:"backend"`
	PinCount       int              `json:"pin_count"`
	Running        bool             `json:"running"`
	Queue          QueueStatus      `json:"queue"`
	BoundPins      []model.PinID    `json:"bound_pins"`
	Processed      uint64           `json:"processed"`
	ReadErrors     uint64           `json:"read_errors"`
	UnboundIRQs    uint64           `json:"unbound_interrupts"`
	ToggleCount    uint64           `json:"toggle_count"`
	LastEvents     []model.PinEvent `json:"last_events"`
}

// QueueStatus holds the counters of the event queue.
type QueueStatus struct {
	Capacity int    `json:"capacity"`
	Length   int    `json:"length"`
	Enqueued uint64 `json:"enqueued"`
	Dropped  uint64 `json:"dropped"`
}

// Status returns a snapshot of the worker state.
func (s *service) Status() Status {
	s.mutex.Lock()
	task, bl, running := s.task, s.blinker, s.running
	s.mutex.Unlock()

	result := Status{
		ProgramVersion: s.config.ProgramVersion,
		Backend:        s.Bridge.Name(),
		PinCount:       s.Bridge.PinCount(),
		Running:        running,
		Queue: QueueStatus{
			Capacity: s.queue.Capacity(),
			Length:   s.queue.Len(),
			Enqueued: s.queue.Enqueued(),
			Dropped:  s.queue.Dropped(),
		},
		UnboundIRQs: s.ISR.Unbound(),
		LastEvents:  s.tracker.All(),
	}
	for pin := 0; pin < s.Bridge.PinCount(); pin++ {
		if s.ISR.IsBound(model.PinID(pin)) {
			result.BoundPins = append(result.BoundPins, model.PinID(pin))
		}
	}
	if task != nil {
		result.Processed = task.Processed()
		result.ReadErrors = task.ReadErrors()
	}
	if bl != nil {
		result.ToggleCount = bl.Count()
	}
	return result
}
