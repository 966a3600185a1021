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

package model

import (
	"math/bits"
	"strconv"
	"time"
)

// PinID identifies a single GPIO line of the local pin controller.
type PinID uint8

const (
	// MaxPins is the number of pins addressable with a PinMask.
	MaxPins = 64
)

// String returns the pin as "GPIO<n>".
func (p PinID) String() string {
	return "GPIO" + strconv.Itoa(int(p))
}

// PinMask selects a set of pins, bit N selects PinID N.
type PinMask uint64

// PinMaskOf returns a mask with the bits of all given pins set.
// Pins outside the addressable range are ignored.
func PinMaskOf(pins ...PinID) PinMask {
	var m PinMask
	for _, p := range pins {
		if int(p) < MaxPins {
			m |= 1 << uint(p)
		}
	}
	return m
}

// IsEmpty returns true when no pin is selected.
func (m PinMask) IsEmpty() bool {
	return m == 0
}

// Contains returns true when the given pin is selected.
func (m PinMask) Contains(pin PinID) bool {
	return int(pin) < MaxPins && m&(1<<uint(pin)) != 0
}

// Overlaps returns true when both masks select at least one common pin.
func (m PinMask) Overlaps(other PinMask) bool {
	return m&other != 0
}

// Count returns the number of selected pins.
func (m PinMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Highest returns the highest selected pin.
// Returns false if the mask is empty.
func (m PinMask) Highest() (PinID, bool) {
	if m == 0 {
		return 0, false
	}
	return PinID(63 - bits.LeadingZeros64(uint64(m))), true
}

// Pins returns the selected pins in ascending order.
func (m PinMask) Pins() []PinID {
	result := make([]PinID, 0, m.Count())
	for x := uint64(m); x != 0; x &= x - 1 {
		result = append(result, PinID(bits.TrailingZeros64(x)))
	}
	return result
}

// PinEvent is the result of processing a single interrupt in task context.
type PinEvent struct {
	// Pin that raised the interrupt
	Pin PinID `json:"pin"`
	// Level of the pin at the time the event was processed
	Level bool `json:"level"`
	// Time the event was processed
	Time time.Time `json:"time"`
}

// LevelValue returns 1 for a high level, 0 otherwise.
func (e PinEvent) LevelValue() int {
	if e.Level {
		return 1
	}
	return 0
}
