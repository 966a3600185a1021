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

package pins

import (
	"context"

	"github.com/pkg/errors"

	"github.com/binkynet/GpioWorker/pkg/model"
)

var (
	maskAny = errors.WithStack
)

// Configurer is the part of the bridge needed to configure pins.
type Configurer interface {
	// Returns number of local pins
	PinCount() int
	// ConfigurePins applies the given configuration to all pins
	// selected by its mask.
	ConfigurePins(cfg model.PinConfig) error
	// SetTrigger changes the interrupt trigger of a single configured
	// input pin.
	SetTrigger(pin model.PinID, trigger model.Trigger) error
}

// Init applies the output group followed by the input group of the
// given application configuration.
// A nil configuration is rejected without touching any pin.
func Init(ctx context.Context, api Configurer, cfg *model.AppPinConfig) error {
	if cfg == nil {
		return model.InvalidArgument("pin configuration is nil")
	}
	outputs, inputs := cfg.Outputs, cfg.Inputs
	return Apply(ctx, api, &outputs, &inputs)
}

// Apply validates all given records and then applies them in order.
// Validation errors are returned before any pin is touched.
// The first bridge error stops the sequence; records that were already
// applied stay in effect.
func Apply(ctx context.Context, api Configurer, cfgs ...*model.PinConfig) error {
	if len(cfgs) == 0 {
		return model.InvalidArgument("no pin configuration given")
	}
	var seen model.PinMask
	for i, cfg := range cfgs {
		if cfg == nil {
			return model.InvalidArgument("pin configuration %d is nil", i)
		}
		if err := cfg.Validate(); err != nil {
			return errors.Wrapf(err, "pin configuration %d", i)
		}
		if h, _ := cfg.Mask.Highest(); int(h) >= api.PinCount() {
			return model.InvalidArgument("pin %d out of range [0..%d]", h, api.PinCount()-1)
		}
		if seen.Overlaps(cfg.Mask) {
			return model.InvalidArgument("pin configuration %d overlaps earlier groups (mask 0x%x)", i, uint64(seen&cfg.Mask))
		}
		seen |= cfg.Mask
	}
	for _, cfg := range cfgs {
		if err := ctx.Err(); err != nil {
			return maskAny(err)
		}
		if err := api.ConfigurePins(*cfg); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// SetTrigger changes the interrupt trigger of a single input pin,
// independent of the bulk configuration.
func SetTrigger(ctx context.Context, api Configurer, pin model.PinID, trigger model.Trigger) error {
	if !trigger.IsValid() {
		return model.InvalidArgument("unknown trigger %d", uint8(trigger))
	}
	if int(pin) >= api.PinCount() {
		return model.InvalidArgument("pin %d out of range [0..%d]", pin, api.PinCount()-1)
	}
	if err := ctx.Err(); err != nil {
		return maskAny(err)
	}
	if err := api.SetTrigger(pin, trigger); err != nil {
		return maskAny(err)
	}
	return nil
}
