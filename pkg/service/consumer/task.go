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

package consumer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
	"github.com/binkynet/GpioWorker/pkg/service/events"
)

// LevelReader is the part of the bridge needed to read pin levels.
type LevelReader interface {
	// Level reads the current level of a pin.
	Level(pin model.PinID) (bool, error)
}

// Config of the consumer task.
type Config struct {
	// Maximum time to wait for a single event.
	// Zero means wait forever.
	WaitTimeout time.Duration
}

// Dependencies of the consumer task.
type Dependencies struct {
	Log      zerolog.Logger
	Receiver events.Receiver
	Pins     LevelReader
	Reporter Reporter
}

// Task takes pin identifiers from the event queue, reads the level
// of the pin and reports it.
type Task struct {
	Config
	Dependencies

	processed  uint64
	readErrors uint64
}

// NewTask creates a new consumer task.
func NewTask(cfg Config, deps Dependencies) (*Task, error) {
	if cfg.WaitTimeout < 0 {
		return nil, model.InvalidArgument("wait timeout cannot be negative, got %s", cfg.WaitTimeout)
	}
	if deps.Pins == nil {
		return nil, model.InvalidArgument("level reader is missing")
	}
	if deps.Reporter == nil {
		deps.Reporter = LogReporter(deps.Log)
	}
	deps.Log = deps.Log.With().Str("component", "consumer").Logger()
	return &Task{
		Config:       cfg,
		Dependencies: deps,
	}, nil
}

// Run the task until the given context is canceled.
func (t *Task) Run(ctx context.Context) error {
	t.Log.Debug().Dur("wait-timeout", t.WaitTimeout).Msg("Consumer task started")
	defer t.Log.Debug().Msg("Consumer task stopped")
	for {
		pin, err := t.Receiver.Receive(ctx, t.WaitTimeout)
		if events.IsTimeout(err) {
			continue
		} else if ctx.Err() != nil {
			return nil
		} else if err != nil {
			return err
		}
		t.process(pin)
	}
}

// Processed returns the number of events processed so far.
func (t *Task) Processed() uint64 {
	return atomic.LoadUint64(&t.processed)
}

// ReadErrors returns the number of events for which the level
// could not be read.
func (t *Task) ReadErrors() uint64 {
	return atomic.LoadUint64(&t.readErrors)
}

func (t *Task) process(pin model.PinID) {
	level, err := t.Pins.Level(pin)
	if err != nil {
		atomic.AddUint64(&t.readErrors, 1)
		readErrorsTotal.Inc()
		t.Log.Warn().Err(err).Uint8("pin", uint8(pin)).Msg("Failed to read pin level")
		return
	}
	atomic.AddUint64(&t.processed, 1)
	processedTotal.WithLabelValues(pin.String()).Inc()
	t.Reporter.Report(model.PinEvent{
		Pin:   pin,
		Level: level,
		Time:  time.Now(),
	})
}
