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

package blinker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

// LevelWriter is the part of the bridge needed to drive output pins.
type LevelWriter interface {
	// SetLevel sets the output level of a pin.
	SetLevel(pin model.PinID, level bool) error
}

// Config of the output loop.
type Config struct {
	// Pins toggled by the loop
	Pins []model.PinID
	// Time between two toggles
	Period time.Duration
}

// Dependencies of the output loop.
type Dependencies struct {
	Log     zerolog.Logger
	Outputs LevelWriter
}

// Blinker toggles a set of output pins periodically.
type Blinker struct {
	Config
	Dependencies

	count uint64
}

// New creates a new output loop.
func New(cfg Config, deps Dependencies) (*Blinker, error) {
	if cfg.Period <= 0 {
		return nil, model.InvalidArgument("period must be positive, got %s", cfg.Period)
	}
	if deps.Outputs == nil {
		return nil, model.InvalidArgument("level writer is missing")
	}
	deps.Log = deps.Log.With().Str("component", "blinker").Logger()
	return &Blinker{
		Config:       cfg,
		Dependencies: deps,
	}, nil
}

// Run the loop until the given context is canceled.
// Every period the counter is logged and incremented, after which all
// pins are set to the lowest bit of the counter.
func (b *Blinker) Run(ctx context.Context) error {
	for {
		cnt := atomic.LoadUint64(&b.count)
		b.Log.Info().Msgf("cnt: %d", cnt)
		cnt = atomic.AddUint64(&b.count, 1)
		select {
		case <-time.After(b.Period):
		case <-ctx.Done():
			return nil
		}
		level := cnt%2 == 1
		for _, pin := range b.Pins {
			// Failures are not fatal for the loop
			if err := b.Outputs.SetLevel(pin, level); err != nil {
				b.Log.Debug().Err(err).Uint8("pin", uint8(pin)).Msg("SetLevel failed")
				setLevelErrorsTotal.Inc()
			}
		}
		togglesTotal.Inc()
	}
}

// Count returns the current value of the counter.
func (b *Blinker) Count() uint64 {
	return atomic.LoadUint64(&b.count)
}
