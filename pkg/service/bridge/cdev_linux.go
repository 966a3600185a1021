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

//go:build linux

package bridge

import (
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"

	"github.com/binkynet/GpioWorker/pkg/model"
)

const (
	// DefaultChip is the GPIO character device used by the cdev backend.
	DefaultChip = "gpiochip0"
	consumer    = "gpio-worker"
)

// edgeOption is an edge detection option usable both when requesting
// and when reconfiguring a line.
type edgeOption interface {
	gpiocdev.LineReqOption
	gpiocdev.LineConfigOption
}

type cdevLine struct {
	line   *gpiocdev.Line
	config model.PinConfig
}

type cdevBridge struct {
	log      zerolog.Logger
	mutex    sync.Mutex
	chip     string
	pinCount int
	sink     InterruptSink
	lines    map[model.PinID]*cdevLine
}

// NewCdevBridge implements the bridge on top of the Linux GPIO
// character device with the given name.
func NewCdevBridge(log zerolog.Logger, chip string, sink InterruptSink) (API, error) {
	if chip == "" {
		chip = DefaultChip
	}
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrapf(err, "NewChip[%s] failed", chip)
	}
	pinCount := c.Lines()
	if err := c.Close(); err != nil {
		return nil, errors.Wrap(err, "Close chip failed")
	}
	if pinCount > model.MaxPins {
		pinCount = model.MaxPins
	}
	return &cdevBridge{
		log:      log.With().Str("backend", "cdev").Str("chip", chip).Logger(),
		chip:     chip,
		pinCount: pinCount,
		sink:     sink,
		lines:    make(map[model.PinID]*cdevLine),
	}, nil
}

// Name of the backend
func (b *cdevBridge) Name() string {
	return "cdev"
}

// Returns number of local pins
func (b *cdevBridge) PinCount() int {
	return b.pinCount
}

// ConfigurePins requests every pin of the mask with the given configuration.
// A pin that was already requested is released and requested again.
func (b *cdevBridge) ConfigurePins(cfg model.PinConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkPins(cfg.Mask, b.pinCount); err != nil {
		return err
	}
	edge, err := cdevEdge(cfg.Trigger)
	if err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	configureTotal.WithLabelValues(b.Name()).Inc()
	for _, pin := range cfg.Mask.Pins() {
		initial := 0
		if existing, found := b.lines[pin]; found {
			if existing.config.Direction.IsOutput() {
				initial, _ = existing.line.Value()
			}
			delete(b.lines, pin)
			if err := existing.line.Close(); err != nil {
				b.log.Warn().Err(err).Uint8("pin", uint8(pin)).Msg("Failed to release line")
			}
		}
		if cfg.Direction == model.DirectionDisabled {
			continue
		}
		opts := []gpiocdev.LineReqOption{gpiocdev.WithConsumer(consumer)}
		switch {
		case cfg.PullUp:
			opts = append(opts, gpiocdev.WithPullUp)
		case cfg.PullDown:
			opts = append(opts, gpiocdev.WithPullDown)
		default:
			opts = append(opts, gpiocdev.WithBiasDisabled)
		}
		if cfg.Direction.IsOutput() {
			opts = append(opts, gpiocdev.AsOutput(initial))
			if cfg.Direction.IsOpenDrain() {
				opts = append(opts, gpiocdev.AsOpenDrain)
			}
		} else {
			// Inputs always carry a handler so the trigger can be
			// changed later without a new request.
			opts = append(opts, gpiocdev.AsInput, edge, gpiocdev.WithEventHandler(b.eventHandler))
		}
		line, err := gpiocdev.RequestLine(b.chip, int(pin), opts...)
		if err != nil {
			configureErrorsTotal.WithLabelValues(b.Name()).Inc()
			return errors.Wrapf(err, "RequestLine[%d] failed", pin)
		}
		lineCfg := cfg
		lineCfg.Mask = model.PinMaskOf(pin)
		b.lines[pin] = &cdevLine{line: line, config: lineCfg}
	}
	return nil
}

// SetTrigger changes the edge detection of an input line.
func (b *cdevBridge) SetTrigger(pin model.PinID, trigger model.Trigger) error {
	edge, err := cdevEdge(trigger)
	if err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	l, found := b.lines[pin]
	if !found || !l.config.Direction.IsInput() || l.config.Direction.IsOutput() {
		return model.InvalidArgument("pin %d is not configured as input", pin)
	}
	if err := l.line.Reconfigure(edge); err != nil {
		return errors.Wrapf(err, "Reconfigure[%d] failed", pin)
	}
	l.config.Trigger = trigger
	return nil
}

// SetLevel sets the value of an output line.
func (b *cdevBridge) SetLevel(pin model.PinID, level bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	l, found := b.lines[pin]
	if !found || !l.config.Direction.IsOutput() {
		return model.InvalidArgument("pin %d is not configured as output", pin)
	}
	v := 0
	if level {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return errors.Wrapf(err, "SetValue[%d] failed", pin)
	}
	return nil
}

// Level reads the value of a line.
func (b *cdevBridge) Level(pin model.PinID) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	l, found := b.lines[pin]
	if !found {
		return false, model.InvalidArgument("pin %d is not configured", pin)
	}
	v, err := l.line.Value()
	if err != nil {
		return false, errors.Wrapf(err, "Value[%d] failed", pin)
	}
	return v != 0, nil
}

// Close releases all lines.
func (b *cdevBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var ae aerr.AggregateError
	for pin, l := range b.lines {
		if err := l.line.Close(); err != nil {
			ae.Add(errors.Wrapf(err, "Close[%d] failed", pin))
		}
	}
	b.lines = make(map[model.PinID]*cdevLine)
	return ae.AsError()
}

// eventHandler is called by gpiocdev from its event goroutine.
func (b *cdevBridge) eventHandler(evt gpiocdev.LineEvent) {
	interruptsTotal.WithLabelValues(b.Name()).Inc()
	if b.sink != nil {
		b.sink.Interrupt(model.PinID(evt.Offset))
	}
}

// cdevEdge converts a trigger into a gpiocdev edge detection option.
func cdevEdge(trigger model.Trigger) (edgeOption, error) {
	switch trigger {
	case model.TriggerDisabled:
		return gpiocdev.WithoutEdges, nil
	case model.TriggerRisingEdge:
		return gpiocdev.WithRisingEdge, nil
	case model.TriggerFallingEdge:
		return gpiocdev.WithFallingEdge, nil
	case model.TriggerAnyEdge:
		return gpiocdev.WithBothEdges, nil
	case model.TriggerLowLevel, model.TriggerHighLevel:
		return nil, model.Unsupported("trigger %s is not supported by the cdev backend", trigger)
	default:
		return nil, model.InvalidArgument("unknown trigger %d", uint8(trigger))
	}
}
