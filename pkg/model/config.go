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
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultQueueCapacity = 10
	DefaultTogglePeriod  = time.Second
)

// Config holds the configuration of the GPIO worker.
type Config struct {
	// Pins driven by the output loop
	OutputPins []PinID `json:"output_pins"`
	// Pins wired to the interrupt event queue
	InputPins []PinID `json:"input_pins"`
	// Pull resistors of the input pins
	InputPullUp   bool `json:"input_pull_up,omitempty"`
	InputPullDown bool `json:"input_pull_down,omitempty"`
	// Trigger of all input pins applied during initialization
	InputTrigger Trigger `json:"input_trigger"`
	// Triggers changed at runtime, directly after initialization
	RuntimeTriggers map[PinID]Trigger `json:"runtime_triggers,omitempty"`
	// If set, the handler of the first input pin is removed and installed
	// again after all handlers are installed.
	RebindOnStart bool `json:"rebind_on_start,omitempty"`
	// Capacity of the interrupt event queue
	QueueCapacity int `json:"queue_capacity"`
	// Period of the output toggle loop
	TogglePeriod Duration `json:"toggle_period"`
	// Maximum time the event consumer waits for a single event.
	// Zero means wait forever.
	WaitTimeout Duration `json:"wait_timeout,omitempty"`
	// Optional MQTT destination of processed events
	MQTT MQTTConfig `json:"mqtt,omitempty"`
}

// MQTTConfig holds the (optional) MQTT event publisher settings.
type MQTTConfig struct {
	// host:port of the broker. Empty disables publishing.
	BrokerAddress string `json:"broker_address,omitempty"`
	// Prefix of the topic events are published on.
	TopicPrefix string `json:"topic_prefix,omitempty"`
}

// IsEnabled returns true when a broker is configured.
func (c MQTTConfig) IsEnabled() bool {
	return c.BrokerAddress != ""
}

// DefaultConfig returns the configuration of the classic two-in/two-out
// setup: outputs on GPIO18 & GPIO19, inputs on GPIO4 & GPIO5 with pull-up
// and rising edge interrupts, GPIO4 switched to any-edge at runtime.
func DefaultConfig() Config {
	return Config{
		OutputPins:      []PinID{18, 19},
		InputPins:       []PinID{4, 5},
		InputPullUp:     true,
		InputTrigger:    TriggerRisingEdge,
		RuntimeTriggers: map[PinID]Trigger{4: TriggerAnyEdge},
		RebindOnStart:   true,
		QueueCapacity:   DefaultQueueCapacity,
		TogglePeriod:    Duration(DefaultTogglePeriod),
		MQTT: MQTTConfig{
			TopicPrefix: "gpio/events",
		},
	}
}

// LoadConfig reads a JSON configuration from the given path.
// Fields missing in the file keep their default value.
func LoadConfig(path string) (Config, error) {
	result := DefaultConfig()
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config '%s'", path)
	}
	// Maps are merged by json.Unmarshal, runtime triggers in the file must
	// replace the defaults.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return Config{}, errors.Wrapf(InvalidArgumentError, "failed to parse config '%s': %s", path, err)
	}
	if _, found := raw["runtime_triggers"]; found {
		result.RuntimeTriggers = nil
	}
	if err := json.Unmarshal(content, &result); err != nil {
		return Config{}, errors.Wrapf(InvalidArgumentError, "failed to parse config '%s': %s", path, err)
	}
	return result, nil
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c Config) Validate() error {
	if len(c.OutputPins) == 0 {
		return InvalidArgument("no output pins configured")
	}
	if len(c.InputPins) == 0 {
		return InvalidArgument("no input pins configured")
	}
	for _, p := range append(append([]PinID{}, c.OutputPins...), c.InputPins...) {
		if int(p) >= MaxPins {
			return InvalidArgument("pin %d out of range [0..%d]", p, MaxPins-1)
		}
	}
	if err := c.PinConfig().Validate(); err != nil {
		return maskAny(err)
	}
	inputs := PinMaskOf(c.InputPins...)
	for pin, t := range c.RuntimeTriggers {
		if !inputs.Contains(pin) {
			return InvalidArgument("runtime trigger for pin %d, which is not an input pin", pin)
		}
		if !t.IsValid() {
			return InvalidArgument("unknown runtime trigger %d for pin %d", uint8(t), pin)
		}
	}
	if c.QueueCapacity < 1 {
		return InvalidArgument("queue capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.TogglePeriod <= 0 {
		return InvalidArgument("toggle period must be positive, got %s", c.TogglePeriod)
	}
	if c.WaitTimeout < 0 {
		return InvalidArgument("wait timeout cannot be negative, got %s", c.WaitTimeout)
	}
	return nil
}

// PinConfig builds the pin groups applied during initialization.
func (c Config) PinConfig() AppPinConfig {
	return AppPinConfig{
		Outputs: PinConfig{
			Mask:      PinMaskOf(c.OutputPins...),
			Direction: DirectionOutput,
			Trigger:   TriggerDisabled,
		},
		Inputs: PinConfig{
			Mask:      PinMaskOf(c.InputPins...),
			Direction: DirectionInput,
			PullUp:    c.InputPullUp,
			PullDown:  c.InputPullDown,
			Trigger:   c.InputTrigger,
		},
	}
}

// Validate checks both groups and ensures they select disjoint pins.
func (c AppPinConfig) Validate() error {
	if err := c.Outputs.Validate(); err != nil {
		return errors.Wrap(err, "outputs")
	}
	if err := c.Inputs.Validate(); err != nil {
		return errors.Wrap(err, "inputs")
	}
	if c.Outputs.Mask.Overlaps(c.Inputs.Mask) {
		return InvalidArgument("output and input pins overlap (mask 0x%x)", uint64(c.Outputs.Mask&c.Inputs.Mask))
	}
	return nil
}

// Duration is a time.Duration that is encoded in JSON as a string ("250ms").
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Allow plain numbers as milliseconds
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return InvalidArgument("invalid duration %s", string(data))
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	x, err := time.ParseDuration(s)
	if err != nil {
		return InvalidArgument("invalid duration '%s'", s)
	}
	*d = Duration(x)
	return nil
}
