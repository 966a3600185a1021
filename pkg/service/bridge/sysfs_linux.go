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

//go:build linux

package bridge

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

const (
	// DefaultPollInterval is the interval used by the sysfs backend to
	// detect edges on input pins.
	DefaultPollInterval = 5 * time.Millisecond
	sysfsPinCount       = 28
	sysfsUnexportPath   = "/sys/class/gpio/unexport"
)

type sysfsPin struct {
	config model.PinConfig
	input  gpio.InputPin
	output gpio.OutputPin
	// Last observed level of an input, or last written level of an output
	last bool
}

type sysfsBridge struct {
	log          zerolog.Logger
	mutex        sync.Mutex
	sink         InterruptSink
	pollInterval time.Duration
	pins         map[model.PinID]*sysfsPin
	cancelPoll   func()
	unexportPath string
}

// NewSysfsBridge implements the bridge on top of the legacy sysfs GPIO
// interface. The interface has no edge delivery that fits the bridge,
// so input pins are polled at the given interval.
func NewSysfsBridge(log zerolog.Logger, pollInterval time.Duration, sink InterruptSink) (API, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	b := &sysfsBridge{
		log:          log.With().Str("backend", "sysfs").Logger(),
		sink:         sink,
		pollInterval: pollInterval,
		pins:         make(map[model.PinID]*sysfsPin),
		unexportPath: sysfsUnexportPath,
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancelPoll = cancel
	go b.poll(ctx)
	return b, nil
}

// Name of the backend
func (b *sysfsBridge) Name() string {
	return "sysfs"
}

// Returns number of local pins
func (b *sysfsBridge) PinCount() int {
	return sysfsPinCount
}

// ConfigurePins exports every pin of the mask in the given direction.
// Pull resistors cannot be controlled through sysfs and are ignored.
func (b *sysfsBridge) ConfigurePins(cfg model.PinConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkPins(cfg.Mask, sysfsPinCount); err != nil {
		return err
	}
	if cfg.Trigger.IsLevel() {
		return model.Unsupported("trigger %s is not supported by the sysfs backend", cfg.Trigger)
	}
	if cfg.PullUp || cfg.PullDown {
		b.log.Warn().Str("pins", pinList(cfg.Mask)).Msg("Pull resistors are not supported, ignoring")
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	configureTotal.WithLabelValues(b.Name()).Inc()
	const activeLow = false
	for _, pin := range cfg.Mask.Pins() {
		initial := false
		if existing, found := b.pins[pin]; found && existing.output != nil {
			initial = existing.last
		}
		delete(b.pins, pin)
		p := &sysfsPin{config: cfg}
		p.config.Mask = model.PinMaskOf(pin)
		switch {
		case cfg.Direction == model.DirectionDisabled:
			continue
		case cfg.Direction.IsOutput():
			out, err := gpio.Output(int(pin), activeLow, initial)
			if err != nil {
				configureErrorsTotal.WithLabelValues(b.Name()).Inc()
				return errors.Wrapf(err, "Output[%d] failed", pin)
			}
			p.output = out
			p.last = initial
		default:
			in, err := gpio.Input(int(pin), activeLow)
			if err != nil {
				configureErrorsTotal.WithLabelValues(b.Name()).Inc()
				return errors.Wrapf(err, "Input[%d] failed", pin)
			}
			p.input = in
			p.last, _ = in.Read()
		}
		b.pins[pin] = p
	}
	return nil
}

// SetTrigger changes the trigger of an input pin.
func (b *sysfsBridge) SetTrigger(pin model.PinID, trigger model.Trigger) error {
	if !trigger.IsValid() {
		return model.InvalidArgument("unknown trigger %d", uint8(trigger))
	}
	if trigger.IsLevel() {
		return model.Unsupported("trigger %s is not supported by the sysfs backend", trigger)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found || p.input == nil {
		return model.InvalidArgument("pin %d is not configured as input", pin)
	}
	p.config.Trigger = trigger
	return nil
}

// SetLevel writes the value of an output pin.
func (b *sysfsBridge) SetLevel(pin model.PinID, level bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found || p.output == nil {
		return model.InvalidArgument("pin %d is not configured as output", pin)
	}
	if err := p.output.Write(level); err != nil {
		return errors.Wrapf(err, "Write[%d] failed", pin)
	}
	p.last = level
	return nil
}

// Level reads the value of a pin.
func (b *sysfsBridge) Level(pin model.PinID) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found {
		return false, model.InvalidArgument("pin %d is not configured", pin)
	}
	if p.output != nil {
		return p.last, nil
	}
	v, err := p.input.Read()
	if err != nil {
		return false, errors.Wrapf(err, "Read[%d] failed", pin)
	}
	return v, nil
}

func (b *sysfsBridge) Close() error {
	b.cancelPoll()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	var ae aerr.AggregateError
	for pin := range b.pins {
		if err := b.unexport(pin); err != nil {
			ae.Add(errors.Wrapf(err, "Unexport[%d] failed", pin))
		}
	}
	b.pins = make(map[model.PinID]*sysfsPin)
	return ae.AsError()
}

// unexport hands the given pin back to the kernel.
func (b *sysfsBridge) unexport(pin model.PinID) error {
	f, err := os.OpenFile(b.unexportPath, os.O_WRONLY, 0)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	if _, err := f.WriteString(strconv.Itoa(int(pin))); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// poll reads all input pins with a trigger every interval and raises
// an interrupt for every observed transition that meets the trigger.
func (b *sysfsBridge) poll(ctx context.Context) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	var fired []model.PinID
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
		fired = fired[:0]
		b.mutex.Lock()
		for pin, p := range b.pins {
			if p.output != nil || p.config.Trigger == model.TriggerDisabled {
				continue
			}
			cur, err := p.input.Read()
			if err != nil {
				continue
			}
			if p.config.Trigger.Fires(p.last, cur) {
				fired = append(fired, pin)
			}
			p.last = cur
		}
		b.mutex.Unlock()
		for _, pin := range fired {
			interruptsTotal.WithLabelValues(b.Name()).Inc()
			if b.sink != nil {
				b.sink.Interrupt(pin)
			}
		}
	}
}
