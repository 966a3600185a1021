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
	"fmt"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/binkynet/GpioWorker/pkg/model"
)

const (
	// Maximum time a watcher blocks in WaitForEdge before it checks
	// whether it must stop.
	periphWatchTimeout = 100 * time.Millisecond
)

type periphPin struct {
	pin    gpio.PinIO
	config model.PinConfig
	level  bool
	stop   chan struct{}
	done   chan struct{}
}

type periphBridge struct {
	log   zerolog.Logger
	mutex sync.Mutex
	sink  InterruptSink
	pins  map[model.PinID]*periphPin
}

// NewPeriphBridge implements the bridge on top of the periph.io host
// drivers. Pins are looked up by their "GPIO<n>" name.
func NewPeriphBridge(log zerolog.Logger, sink InterruptSink) (API, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host.Init failed")
	}
	return &periphBridge{
		log:  log.With().Str("backend", "periph").Logger(),
		sink: sink,
		pins: make(map[model.PinID]*periphPin),
	}, nil
}

// Name of the backend
func (b *periphBridge) Name() string {
	return "periph"
}

// Returns number of local pins
func (b *periphBridge) PinCount() int {
	return model.MaxPins
}

// ConfigurePins configures every pin of the mask.
func (b *periphBridge) ConfigurePins(cfg model.PinConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	edge, err := periphEdge(cfg.Trigger)
	if err != nil {
		return err
	}
	// Resolve all pins before touching any of them
	resolved := make(map[model.PinID]gpio.PinIO)
	for _, pin := range cfg.Mask.Pins() {
		p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
		if p == nil {
			return model.InvalidArgument("pin %d does not exist on this host", pin)
		}
		resolved[pin] = p
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	configureTotal.WithLabelValues(b.Name()).Inc()
	for _, pin := range cfg.Mask.Pins() {
		level := false
		if existing, found := b.pins[pin]; found {
			existing.stopWatch()
			if existing.config.Direction.IsOutput() {
				level = existing.level
			}
			delete(b.pins, pin)
		}
		p := &periphPin{pin: resolved[pin], config: cfg, level: level}
		p.config.Mask = model.PinMaskOf(pin)
		switch {
		case cfg.Direction == model.DirectionDisabled:
			if err := p.pin.Halt(); err != nil {
				configureErrorsTotal.WithLabelValues(b.Name()).Inc()
				return errors.Wrapf(err, "Halt[%d] failed", pin)
			}
			continue
		case cfg.Direction.IsOutput():
			if err := p.pin.Out(periphLevel(level)); err != nil {
				configureErrorsTotal.WithLabelValues(b.Name()).Inc()
				return errors.Wrapf(err, "Out[%d] failed", pin)
			}
		default:
			if err := p.pin.In(periphPull(cfg), edge); err != nil {
				configureErrorsTotal.WithLabelValues(b.Name()).Inc()
				return errors.Wrapf(err, "In[%d] failed", pin)
			}
			if edge != gpio.NoEdge {
				b.startWatch(pin, p)
			}
		}
		b.pins[pin] = p
	}
	return nil
}

// SetTrigger changes the edge detection of an input pin.
func (b *periphBridge) SetTrigger(pin model.PinID, trigger model.Trigger) error {
	edge, err := periphEdge(trigger)
	if err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found || !p.config.Direction.IsInput() || p.config.Direction.IsOutput() {
		return model.InvalidArgument("pin %d is not configured as input", pin)
	}
	p.stopWatch()
	if err := p.pin.In(periphPull(p.config), edge); err != nil {
		return errors.Wrapf(err, "In[%d] failed", pin)
	}
	p.config.Trigger = trigger
	if edge != gpio.NoEdge {
		b.startWatch(pin, p)
	}
	return nil
}

// SetLevel sets the level of an output pin.
func (b *periphBridge) SetLevel(pin model.PinID, level bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found || !p.config.Direction.IsOutput() {
		return model.InvalidArgument("pin %d is not configured as output", pin)
	}
	if err := p.pin.Out(periphLevel(level)); err != nil {
		return errors.Wrapf(err, "Out[%d] failed", pin)
	}
	p.level = level
	return nil
}

// Level reads the level of a pin.
func (b *periphBridge) Level(pin model.PinID) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, found := b.pins[pin]
	if !found {
		return false, model.InvalidArgument("pin %d is not configured", pin)
	}
	return p.pin.Read() == gpio.High, nil
}

// Close stops all watchers and halts all pins.
func (b *periphBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var ae aerr.AggregateError
	for pin, p := range b.pins {
		p.stopWatch()
		if err := p.pin.Halt(); err != nil {
			ae.Add(errors.Wrapf(err, "Halt[%d] failed", pin))
		}
	}
	b.pins = make(map[model.PinID]*periphPin)
	return ae.AsError()
}

// startWatch starts a goroutine delivering the edges of the given pin.
// Caller must hold the mutex.
func (b *periphBridge) startWatch(pin model.PinID, p *periphPin) {
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go func(stop, done chan struct{}) {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if p.pin.WaitForEdge(periphWatchTimeout) {
				select {
				case <-stop:
					return
				default:
					interruptsTotal.WithLabelValues(b.Name()).Inc()
					if b.sink != nil {
						b.sink.Interrupt(pin)
					}
				}
			}
		}
	}(p.stop, p.done)
}

// stopWatch stops the watcher of the pin (if any) and waits for it.
func (p *periphPin) stopWatch() {
	if p.stop != nil {
		close(p.stop)
		<-p.done
		p.stop = nil
		p.done = nil
	}
}

func periphEdge(trigger model.Trigger) (gpio.Edge, error) {
	switch trigger {
	case model.TriggerDisabled:
		return gpio.NoEdge, nil
	case model.TriggerRisingEdge:
		return gpio.RisingEdge, nil
	case model.TriggerFallingEdge:
		return gpio.FallingEdge, nil
	case model.TriggerAnyEdge:
		return gpio.BothEdges, nil
	case model.TriggerLowLevel, model.TriggerHighLevel:
		return gpio.NoEdge, model.Unsupported("trigger %s is not supported by the periph backend", trigger)
	default:
		return gpio.NoEdge, model.InvalidArgument("unknown trigger %d", uint8(trigger))
	}
}

func periphPull(cfg model.PinConfig) gpio.Pull {
	switch {
	case cfg.PullUp:
		return gpio.PullUp
	case cfg.PullDown:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

func periphLevel(level bool) gpio.Level {
	if level {
		return gpio.High
	}
	return gpio.Low
}
