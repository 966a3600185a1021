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
	"reflect"
	"testing"
)

func TestPinMask(t *testing.T) {
	m := PinMaskOf(4, 5, 63, 64)
	if m.Count() != 3 {
		t.Errorf("Expected 3 pins, got %d", m.Count())
	}
	if !m.Contains(5) || m.Contains(6) || m.Contains(64) {
		t.Errorf("Unexpected Contains result for mask 0x%x", uint64(m))
	}
	if got := m.Pins(); !reflect.DeepEqual(got, []PinID{4, 5, 63}) {
		t.Errorf("Unexpected pins %v", got)
	}
	if h, ok := m.Highest(); !ok || h != 63 {
		t.Errorf("Expected highest 63, got %d (%v)", h, ok)
	}
	if _, ok := PinMask(0).Highest(); ok {
		t.Error("Empty mask must not have a highest pin")
	}
	if !m.Overlaps(PinMaskOf(5)) || m.Overlaps(PinMaskOf(18, 19)) {
		t.Error("Unexpected Overlaps result")
	}
}

func TestTriggerFires(t *testing.T) {
	tests := []struct {
		trigger   Trigger
		prev, cur bool
		expected  bool
	}{
		{TriggerDisabled, false, true, false},
		{TriggerRisingEdge, false, true, true},
		{TriggerRisingEdge, true, false, false},
		{TriggerRisingEdge, true, true, false},
		{TriggerFallingEdge, true, false, true},
		{TriggerFallingEdge, false, true, false},
		{TriggerAnyEdge, false, true, true},
		{TriggerAnyEdge, true, false, true},
		{TriggerAnyEdge, true, true, false},
		{TriggerHighLevel, true, true, true},
		{TriggerHighLevel, true, false, false},
		{TriggerLowLevel, false, false, true},
		{TriggerLowLevel, false, true, false},
	}
	for _, test := range tests {
		if got := test.trigger.Fires(test.prev, test.cur); got != test.expected {
			t.Errorf("%s.Fires(%v, %v): expected %v, got %v", test.trigger, test.prev, test.cur, test.expected, got)
		}
	}
}

func TestParseTrigger(t *testing.T) {
	for i, name := range triggerNames {
		x, err := ParseTrigger(name)
		if err != nil {
			t.Fatalf("ParseTrigger(%s) failed: %v", name, err)
		}
		if x != Trigger(i) {
			t.Errorf("ParseTrigger(%s): expected %d, got %d", name, i, x)
		}
	}
	if _, err := ParseTrigger("sideways"); !IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("input-output-od")
	if err != nil {
		t.Fatalf("ParseDirection failed: %v", err)
	}
	if d != DirectionInputOutputOpenDrain || !d.IsInput() || !d.IsOutput() || !d.IsOpenDrain() {
		t.Errorf("Unexpected direction %s", d)
	}
	if _, err := ParseDirection("up"); !IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument, got %v", err)
	}
}

func TestPinConfigValidate(t *testing.T) {
	valid := PinConfig{Mask: PinMaskOf(4), Direction: DirectionInput, PullUp: true, Trigger: TriggerRisingEdge}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
	invalid := []PinConfig{
		{Direction: DirectionInput},
		{Mask: PinMaskOf(4), Direction: Direction(42)},
		{Mask: PinMaskOf(4), Direction: DirectionInput, Trigger: Trigger(42)},
		{Mask: PinMaskOf(4), Direction: DirectionInput, PullUp: true, PullDown: true},
		{Mask: PinMaskOf(4), Direction: DirectionOutput, Trigger: TriggerAnyEdge},
	}
	for i, c := range invalid {
		if err := c.Validate(); !IsInvalidArgument(err) {
			t.Errorf("Config %d: expected invalid argument, got %v", i, err)
		}
	}
}
