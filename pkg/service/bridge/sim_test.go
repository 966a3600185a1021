//    Copyright 2026 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

type recordingSink struct {
	mutex sync.Mutex
	pins  []model.PinID
}

func (s *recordingSink) Interrupt(pin model.PinID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pins = append(s.pins, pin)
}

func (s *recordingSink) Pins() []model.PinID {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]model.PinID(nil), s.pins...)
}

func inputConfig(trigger model.Trigger, pins ...model.PinID) model.PinConfig {
	return model.PinConfig{
		Mask:      model.PinMaskOf(pins...),
		Direction: model.DirectionInput,
		PullUp:    true,
		Trigger:   trigger,
	}
}

func TestSimConfigurePins(t *testing.T) {
	b := NewSimBridge(0, nil)
	if b.PinCount() != DefaultSimPinCount {
		t.Errorf("Expected %d pins, got %d", DefaultSimPinCount, b.PinCount())
	}
	if err := b.ConfigurePins(inputConfig(model.TriggerRisingEdge, 4, 5)); err != nil {
		t.Fatalf("ConfigurePins failed: %v", err)
	}
	state := b.Snapshot()
	if len(state) != 2 || state[0].Pin != 4 || state[1].Pin != 5 {
		t.Fatalf("Unexpected snapshot %+v", state)
	}
	for _, s := range state {
		if !s.Level {
			t.Errorf("Pulled up input %s must read high", s.Pin)
		}
		if s.Config.Mask != model.PinMaskOf(s.Pin) {
			t.Errorf("Expected per-pin mask for %s, got 0x%x", s.Pin, uint64(s.Config.Mask))
		}
	}
}

func TestSimConfigurePinsOutOfRange(t *testing.T) {
	b := NewSimBridge(8, nil)
	err := b.ConfigurePins(inputConfig(model.TriggerDisabled, 4, 8))
	if !model.IsInvalidArgument(err) {
		t.Fatalf("Expected invalid argument, got %v", err)
	}
	if len(b.Snapshot()) != 0 {
		t.Error("Out of range configuration must not touch any pin")
	}
}

func TestSimDriveFiresTrigger(t *testing.T) {
	sink := &recordingSink{}
	b := NewSimBridge(0, sink)
	b.ConfigurePins(model.PinConfig{Mask: model.PinMaskOf(4), Direction: model.DirectionInput, Trigger: model.TriggerRisingEdge})
	b.ConfigurePins(model.PinConfig{Mask: model.PinMaskOf(5), Direction: model.DirectionInput, Trigger: model.TriggerAnyEdge})

	b.Drive(4, true)  // rising
	b.Drive(4, false) // falling, ignored
	b.Drive(5, true)  // rising
	b.Drive(5, false) // falling
	b.Drive(5, false) // no change
	got := sink.Pins()
	expected := []model.PinID{4, 5, 5}
	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Event %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
}

func TestSimSetTrigger(t *testing.T) {
	sink := &recordingSink{}
	b := NewSimBridge(0, sink)
	b.ConfigurePins(inputConfig(model.TriggerRisingEdge, 4))
	if err := b.SetTrigger(4, model.TriggerAnyEdge); err != nil {
		t.Fatalf("SetTrigger failed: %v", err)
	}
	b.Drive(4, false)
	if len(sink.Pins()) != 1 {
		t.Errorf("Falling edge must fire after switch to any-edge, got %v", sink.Pins())
	}
	if err := b.SetTrigger(6, model.TriggerAnyEdge); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for unconfigured pin, got %v", err)
	}
	if err := b.SetTrigger(4, model.Trigger(99)); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for unknown trigger, got %v", err)
	}
}

func TestSimLevels(t *testing.T) {
	b := NewSimBridge(0, nil)
	b.ConfigurePins(model.PinConfig{Mask: model.PinMaskOf(18, 19), Direction: model.DirectionOutput})
	if err := b.SetLevel(18, true); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if v, _ := b.Level(18); !v {
		t.Error("Expected GPIO18 high")
	}
	if v, _ := b.Level(19); v {
		t.Error("Expected GPIO19 low")
	}
	// Re-applying the same configuration keeps the output latch
	b.ConfigurePins(model.PinConfig{Mask: model.PinMaskOf(18, 19), Direction: model.DirectionOutput})
	if v, _ := b.Level(18); !v {
		t.Error("Expected GPIO18 to stay high")
	}
	if err := b.SetLevel(4, true); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for unconfigured pin, got %v", err)
	}
	if _, err := b.Level(4); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for unconfigured pin, got %v", err)
	}
	if err := b.Drive(18, true); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument when driving an output, got %v", err)
	}
}

func TestNewSimFromFactory(t *testing.T) {
	api, err := New(zerolog.Nop(), Config{Backend: BackendSim, SimPinCount: 16}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if api.Name() != "sim" || api.PinCount() != 16 {
		t.Errorf("Unexpected bridge %s with %d pins", api.Name(), api.PinCount())
	}
	if _, err := New(zerolog.Nop(), Config{Backend: "i2c"}, nil); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for unknown backend, got %v", err)
	}
}
