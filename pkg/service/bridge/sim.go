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

package bridge

import (
	"sync"

	"github.com/binkynet/GpioWorker/pkg/model"
)

const (
	// DefaultSimPinCount is the number of pins of a simulated bridge.
	DefaultSimPinCount = 40
)

// SimPinState is the state of a single pin of a simulated bridge.
type SimPinState struct {
	Pin    model.PinID
	Config model.PinConfig
	Level  bool
	// Set when an external signal is applied to the pin
	Driven bool
}

// SimBridge is an in-memory pin controller.
// Edges are produced by calling Drive.
type SimBridge struct {
	mutex    sync.Mutex
	sink     InterruptSink
	pinCount int
	pins     map[model.PinID]*SimPinState
}

var (
	_ API       = &SimBridge{}
	_ Simulator = &SimBridge{}
)

// NewSimBridge creates a simulated bridge with given number of pins.
// Interrupts are delivered to the given sink.
func NewSimBridge(pinCount int, sink InterruptSink) *SimBridge {
	if pinCount <= 0 || pinCount > model.MaxPins {
		pinCount = DefaultSimPinCount
	}
	return &SimBridge{
		sink:     sink,
		pinCount: pinCount,
		pins:     make(map[model.PinID]*SimPinState),
	}
}

// Name of the backend
func (b *SimBridge) Name() string {
	return "sim"
}

// Returns number of local pins
func (b *SimBridge) PinCount() int {
	return b.pinCount
}

// ConfigurePins applies the given configuration to all pins
// selected by its mask.
func (b *SimBridge) ConfigurePins(cfg model.PinConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkPins(cfg.Mask, b.pinCount); err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	configureTotal.WithLabelValues(b.Name()).Inc()
	for _, pin := range cfg.Mask.Pins() {
		p, found := b.pins[pin]
		if !found {
			p = &SimPinState{Pin: pin}
			b.pins[pin] = p
		}
		p.Config = cfg
		p.Config.Mask = model.PinMaskOf(pin)
		if cfg.Direction == model.DirectionDisabled {
			p.Level = false
			p.Driven = false
		} else if !cfg.Direction.IsOutput() && !p.Driven {
			// Floating input follows its pull resistor
			p.Level = cfg.PullUp
		}
	}
	return nil
}

// SetTrigger changes the interrupt trigger of a single configured
// input pin.
func (b *SimBridge) SetTrigger(pin model.PinID, trigger model.Trigger) error {
	if !trigger.IsValid() {
		return model.InvalidArgument("unknown trigger %d", uint8(trigger))
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, err := b.inputPin(pin)
	if err != nil {
		return err
	}
	p.Config.Trigger = trigger
	return nil
}

// SetLevel sets the output level of a pin.
func (b *SimBridge) SetLevel(pin model.PinID, level bool) error {
	b.mutex.Lock()
	p, found := b.pins[pin]
	if !found || !p.Config.Direction.IsOutput() {
		b.mutex.Unlock()
		return model.InvalidArgument("pin %d is not configured as output", pin)
	}
	prev := p.Level
	p.Level = level
	fire := p.Config.Direction.IsInput() && p.Config.Trigger.Fires(prev, level)
	b.mutex.Unlock()

	if fire {
		b.interrupt(pin)
	}
	return nil
}

// Level reads the current level of a pin.
func (b *SimBridge) Level(pin model.PinID) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found || p.Config.Direction == model.DirectionDisabled {
		return false, model.InvalidArgument("pin %d is not configured", pin)
	}
	return p.Level, nil
}

// Drive the input pin to the given level, as if an external
// signal is applied.
// If the trigger condition of the pin is met, the interrupt is delivered
// before Drive returns.
func (b *SimBridge) Drive(pin model.PinID, level bool) error {
	b.mutex.Lock()
	p, err := b.inputPin(pin)
	if err != nil {
		b.mutex.Unlock()
		return err
	}
	prev := p.Level
	p.Level = level
	p.Driven = true
	fire := p.Config.Trigger.Fires(prev, level)
	b.mutex.Unlock()

	if fire {
		b.interrupt(pin)
	}
	return nil
}

// Snapshot returns the state of all configured pins, ordered by pin.
func (b *SimBridge) Snapshot() []SimPinState {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var mask model.PinMask
	for pin := range b.pins {
		mask |= model.PinMaskOf(pin)
	}
	result := make([]SimPinState, 0, len(b.pins))
	for _, pin := range mask.Pins() {
		result = append(result, *b.pins[pin])
	}
	return result
}

func (b *SimBridge) Close() error {
	return nil
}

// inputPin returns the state of an input pin.
// Caller must hold the mutex.
func (b *SimBridge) inputPin(pin model.PinID) (*SimPinState, error) {
	if err := checkPin(pin, b.pinCount); err != nil {
		return nil, err
	}
	p, found := b.pins[pin]
	if !found || !p.Config.Direction.IsInput() {
		return nil, model.InvalidArgument("pin %d is not configured as input", pin)
	}
	return p, nil
}

func (b *SimBridge) interrupt(pin model.PinID) {
	interruptsTotal.WithLabelValues(b.Name()).Inc()
	if b.sink != nil {
		b.sink.Interrupt(pin)
	}
}
