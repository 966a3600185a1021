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
	"fmt"
)

// Direction of a GPIO pin.
type Direction uint8

const (
	DirectionDisabled Direction = iota
	DirectionInput
	DirectionOutput
	DirectionInputOutput
	DirectionOutputOpenDrain
	DirectionInputOutputOpenDrain
)

var directionNames = []string{
	DirectionDisabled:             "disabled",
	DirectionInput:                "input",
	DirectionOutput:               "output",
	DirectionInputOutput:          "input-output",
	DirectionOutputOpenDrain:      "output-od",
	DirectionInputOutputOpenDrain: "input-output-od",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// IsValid returns true for known directions.
func (d Direction) IsValid() bool {
	return int(d) < len(directionNames)
}

// IsInput returns true when the input buffer of the pin is enabled.
func (d Direction) IsInput() bool {
	switch d {
	case DirectionInput, DirectionInputOutput, DirectionInputOutputOpenDrain:
		return true
	}
	return false
}

// IsOutput returns true when the output driver of the pin is enabled.
func (d Direction) IsOutput() bool {
	switch d {
	case DirectionOutput, DirectionInputOutput, DirectionOutputOpenDrain, DirectionInputOutputOpenDrain:
		return true
	}
	return false
}

// IsOpenDrain returns true for the open-drain output variants.
func (d Direction) IsOpenDrain() bool {
	return d == DirectionOutputOpenDrain || d == DirectionInputOutputOpenDrain
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, InvalidArgument("unknown direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	x, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = x
	return nil
}

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return DirectionDisabled, InvalidArgument("unknown direction '%s'", s)
}

// Trigger selects the pin condition that raises an interrupt.
type Trigger uint8

const (
	TriggerDisabled Trigger = iota
	TriggerRisingEdge
	TriggerFallingEdge
	TriggerAnyEdge
	TriggerLowLevel
	TriggerHighLevel
)

var triggerNames = []string{
	TriggerDisabled:    "disabled",
	TriggerRisingEdge:  "rising",
	TriggerFallingEdge: "falling",
	TriggerAnyEdge:     "any-edge",
	TriggerLowLevel:    "low-level",
	TriggerHighLevel:   "high-level",
}

func (t Trigger) String() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return fmt.Sprintf("trigger(%d)", uint8(t))
}

// IsValid returns true for known triggers.
func (t Trigger) IsValid() bool {
	return int(t) < len(triggerNames)
}

// IsLevel returns true for level (not edge) triggers.
func (t Trigger) IsLevel() bool {
	return t == TriggerLowLevel || t == TriggerHighLevel
}

// Fires returns true when a pin with this trigger, observed going
// from level prev to level cur, raises an interrupt.
func (t Trigger) Fires(prev, cur bool) bool {
	switch t {
	case TriggerRisingEdge:
		return !prev && cur
	case TriggerFallingEdge:
		return prev && !cur
	case TriggerAnyEdge:
		return prev != cur
	case TriggerHighLevel:
		return cur
	case TriggerLowLevel:
		return !cur
	}
	return false
}

func (t Trigger) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, InvalidArgument("unknown trigger %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Trigger) UnmarshalText(text []byte) error {
	x, err := ParseTrigger(string(text))
	if err != nil {
		return err
	}
	*t = x
	return nil
}

// ParseTrigger parses a trigger name.
func ParseTrigger(s string) (Trigger, error) {
	for i, name := range triggerNames {
		if name == s {
			return Trigger(i), nil
		}
	}
	return TriggerDisabled, InvalidArgument("unknown trigger '%s'", s)
}

// PinConfig describes direction, pull resistors and interrupt trigger
// of the group of pins selected by Mask.
type PinConfig struct {
	Mask      PinMask   `json:"mask"`
	Direction Direction `json:"direction"`
	PullUp    bool      `json:"pull_up,omitempty"`
	PullDown  bool      `json:"pull_down,omitempty"`
	Trigger   Trigger   `json:"trigger"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c PinConfig) Validate() error {
	if c.Mask.IsEmpty() {
		return InvalidArgument("pin mask is empty")
	}
	if !c.Direction.IsValid() {
		return InvalidArgument("unknown direction %d", uint8(c.Direction))
	}
	if !c.Trigger.IsValid() {
		return InvalidArgument("unknown trigger %d", uint8(c.Trigger))
	}
	if c.PullUp && c.PullDown {
		return InvalidArgument("pull-up and pull-down cannot both be enabled")
	}
	if c.Trigger != TriggerDisabled && !c.Direction.IsInput() {
		return InvalidArgument("trigger '%s' requires an input direction, got '%s'", c.Trigger, c.Direction)
	}
	return nil
}

// AppPinConfig holds the pin groups applied when the worker initializes.
type AppPinConfig struct {
	Outputs PinConfig `json:"outputs"`
	Inputs  PinConfig `json:"inputs"`
}

// Groups returns all pin groups in the order they must be applied.
func (c AppPinConfig) Groups() []PinConfig {
	return []PinConfig{c.Outputs, c.Inputs}
}
