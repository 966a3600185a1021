//    Copyright 2017 Ewout Prangsma
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
	"strconv"
	"strings"

	"github.com/binkynet/GpioWorker/pkg/model"
)

// API of the bridge, the pin controller of the local GPIO port.
type API interface {
	// Name of the backend
	Name() string
	// Returns number of local pins
	PinCount() int

	// ConfigurePins applies the given configuration to all pins
	// selected by its mask.
	ConfigurePins(cfg model.PinConfig) error
	// SetTrigger changes the interrupt trigger of a single configured
	// input pin.
	SetTrigger(pin model.PinID, trigger model.Trigger) error

	// SetLevel sets the output level of a pin.
	SetLevel(pin model.PinID, level bool) error
	// Level reads the current level of a pin.
	Level(pin model.PinID) (bool, error)

	Close() error
}

// InterruptSink receives pin interrupts from the bridge.
// Interrupt is called in interrupt context: from the goroutine that
// detected the edge, it must not block.
type InterruptSink interface {
	Interrupt(pin model.PinID)
}

// Simulator is implemented by bridges that can simulate
// external signals on input pins.
type Simulator interface {
	// Drive the input pin to the given level, as if an external
	// signal is applied.
	Drive(pin model.PinID, level bool) error
}

// checkPins returns an error if the mask selects a pin beyond pinCount.
func checkPins(mask model.PinMask, pinCount int) error {
	if h, ok := mask.Highest(); ok && int(h) >= pinCount {
		return model.InvalidArgument("pin %d out of range [0..%d]", h, pinCount-1)
	}
	return nil
}

// checkPin returns an error if the pin is beyond pinCount.
func checkPin(pin model.PinID, pinCount int) error {
	if int(pin) >= pinCount {
		return model.InvalidArgument("pin %d out of range [0..%d]", pin, pinCount-1)
	}
	return nil
}

// pinList formats the pins of a mask for log output.
func pinList(mask model.PinMask) string {
	pins := mask.Pins()
	parts := make([]string, 0, len(pins))
	for _, pin := range pins {
		parts = append(parts, strconv.Itoa(int(pin)))
	}
	return strings.Join(parts, ",")
}
