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

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/binkynet/GpioWorker/pkg/model"
	"github.com/binkynet/GpioWorker/pkg/service/blinker"
	"github.com/binkynet/GpioWorker/pkg/service/bridge"
	"github.com/binkynet/GpioWorker/pkg/service/consumer"
	"github.com/binkynet/GpioWorker/pkg/service/events"
	"github.com/binkynet/GpioWorker/pkg/service/isr"
	"github.com/binkynet/GpioWorker/pkg/service/mqtt"
	"github.com/binkynet/GpioWorker/pkg/service/pins"
	"github.com/binkynet/GpioWorker/pkg/service/util"
)

var (
	// Semaphore used to guard from running multiple worker instances
	// concurrently.
	workerSem = semaphore.NewWeighted(1)

	// AlreadyRunningError is returned by Run when another worker is running.
	AlreadyRunningError = errors.New("worker already running")
	maskAny             = errors.WithStack
)

// IsAlreadyRunning returns true if the cause of the given error
// is AlreadyRunningError.
func IsAlreadyRunning(err error) bool {
	return errors.Cause(err) == AlreadyRunningError
}

// Service contains the API exposed by the worker service
type Service interface {
	// Run the worker service until the given context is cancelled.
	Run(ctx context.Context) error

	// SetTrigger changes the interrupt trigger of an input pin.
	SetTrigger(ctx context.Context, pin model.PinID, trigger model.Trigger) error
	// AddHandler forwards interrupts of the given pin into the event queue.
	AddHandler(pin model.PinID) error
	// RemoveHandler stops forwarding interrupts of the given pin.
	// Returns true if a handler was removed.
	RemoveHandler(pin model.PinID) bool
	// Drive applies an external signal to an input pin.
	// Only available on simulated bridges.
	Drive(pin model.PinID, level bool) error

	// Status returns a snapshot of the worker state.
	Status() Status
	// Subscribe to all processed events.
	Subscribe(cb func(model.PinEvent)) context.CancelFunc
}

type Config struct {
	model.Config
	ProgramVersion string
}

type Dependencies struct {
	Log    zerolog.Logger
	Bridge bridge.API
	// Interrupt dispatcher; the bridge must deliver its interrupts here.
	ISR *isr.Service
	// Optional additional reporter of processed events
	Reporter consumer.Reporter
}

// NewService instantiates a new Service.
func NewService(config Config, deps Dependencies) (Service, error) {
	if err := config.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if deps.Bridge == nil {
		return nil, model.InvalidArgument("bridge is missing")
	}
	if deps.ISR == nil {
		return nil, model.InvalidArgument("interrupt service is missing")
	}
	queue, err := events.NewQueue(config.QueueCapacity)
	if err != nil {
		return nil, maskAny(err)
	}
	return &service{
		config:       config,
		Dependencies: deps,
		queue:        queue,
		tracker:      consumer.NewStatusTracker(),
		broadcaster:  consumer.NewBroadcaster(),
	}, nil
}

type service struct {
	config Config
	Dependencies

	queue       *events.Queue
	tracker     *consumer.StatusTracker
	broadcaster *consumer.Broadcaster

	mutex   sync.Mutex
	running bool
	task    *consumer.Task
	blinker *blinker.Blinker
}

// Run the worker service until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	log := s.Log.With().Str("component", "worker").Logger()
	if !workerSem.TryAcquire(1) {
		return maskAny(AlreadyRunningError)
	}
	defer workerSem.Release(1)

	// Configure pins
	log.Debug().Msg("configure pins")
	appCfg := s.config.PinConfig()
	if err := pins.Init(ctx, s.Bridge, &appCfg); err != nil {
		log.Error().Err(err).Msg("Pin configuration failed")
		return errors.Wrap(err, "pins.Init failed")
	}
	for _, pin := range s.config.InputPins {
		if trigger, found := s.config.RuntimeTriggers[pin]; found {
			if err := pins.SetTrigger(ctx, s.Bridge, pin, trigger); err != nil {
				return errors.Wrapf(err, "SetTrigger[%d] failed", pin)
			}
			log.Debug().Str("pin", pin.String()).Str("trigger", trigger.String()).Msg("trigger changed")
		}
	}

	// Build consumer & output loop
	task, err := consumer.NewTask(consumer.Config{
		WaitTimeout: time.Duration(s.config.WaitTimeout),
	}, consumer.Dependencies{
		Log:      s.Log,
		Receiver: s.queue.Receiver(),
		Pins:     s.Bridge,
		Reporter: consumer.Reporters(consumer.LogReporter(s.Log), s.tracker, s.broadcaster, s.Reporter),
	})
	if err != nil {
		return errors.Wrap(err, "consumer.NewTask failed")
	}
	bl, err := blinker.New(blinker.Config{
		Pins:   s.config.OutputPins,
		Period: time.Duration(s.config.TogglePeriod),
	}, blinker.Dependencies{
		Log:     s.Log,
		Outputs: s.Bridge,
	})
	if err != nil {
		return errors.Wrap(err, "blinker.New failed")
	}
	s.mutex.Lock()
	s.task, s.blinker, s.running = task, bl, true
	s.mutex.Unlock()
	defer func() {
		s.mutex.Lock()
		s.running = false
		s.mutex.Unlock()
	}()
	runningGauge.Set(1)
	defer runningGauge.Set(0)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, lctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Debug().Msg("run consumer")
		if err := task.Run(lctx); err != nil {
			log.Error().Err(err).Msg("Run consumer failed")
			return errors.Wrap(err, "failed to run consumer")
		}
		log.Debug().Msg("run consumer ended")
		return nil
	})

	// abort stops the consumer and waits for it before returning the error
	abort := func(err error) error {
		cancel()
		g.Wait()
		return err
	}

	// Install interrupt handlers
	defer func() {
		for _, pin := range s.config.InputPins {
			s.ISR.RemoveHandler(pin)
		}
	}()
	for _, pin := range s.config.InputPins {
		if err := s.AddHandler(pin); err != nil {
			return abort(errors.Wrapf(err, "AddHandler[%d] failed", pin))
		}
	}
	if s.config.RebindOnStart {
		first := s.config.InputPins[0]
		s.RemoveHandler(first)
		if err := s.AddHandler(first); err != nil {
			return abort(errors.Wrapf(err, "AddHandler[%d] failed", first))
		}
	}
	blinker.LogDiagnostics(log)

	if mc := s.config.MQTT; mc.IsEnabled() {
		publisher, err := mqtt.NewPublisher(s.Log, mqtt.Config{
			BrokerAddress: mc.BrokerAddress,
			TopicPrefix:   mc.TopicPrefix,
		})
		if err != nil {
			return abort(errors.Wrap(err, "mqtt.NewPublisher failed"))
		}
		unsubscribe := s.Subscribe(publisher.Report)
		defer unsubscribe()
		g.Go(func() error {
			// Events are still processed while the broker is unreachable
			util.UntilCanceled(lctx, log, "run mqtt publisher", publisher.Run)
			return nil
		})
	}

	g.Go(func() error {
		log.Debug().Msg("run output loop")
		return bl.Run(lctx)
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "Wait failed")
	}
	return nil
}

// SetTrigger changes the interrupt trigger of an input pin.
func (s *service) SetTrigger(ctx context.Context, pin model.PinID, trigger model.Trigger) error {
	if err := pins.SetTrigger(ctx, s.Bridge, pin, trigger); err != nil {
		return maskAny(err)
	}
	s.Log.Info().Str("pin", pin.String()).Str("trigger", trigger.String()).Msg("trigger changed")
	return nil
}

// AddHandler forwards interrupts of the given pin into the event queue.
func (s *service) AddHandler(pin model.PinID) error {
	if int(pin) >= s.Bridge.PinCount() {
		return model.InvalidArgument("pin %d out of range [0..%d]", pin, s.Bridge.PinCount()-1)
	}
	if err := s.ISR.AddHandler(pin, isr.ForwardPin(s.queue.Sender(), pin)); err != nil {
		return maskAny(err)
	}
	return nil
}

// RemoveHandler stops forwarding interrupts of the given pin.
func (s *service) RemoveHandler(pin model.PinID) bool {
	return s.ISR.RemoveHandler(pin)
}

// Drive applies an external signal to an input pin.
func (s *service) Drive(pin model.PinID, level bool) error {
	sim, ok := s.Bridge.(bridge.Simulator)
	if !ok {
		return model.Unsupported("bridge '%s' cannot simulate signals", s.Bridge.Name())
	}
	if err := sim.Drive(pin, level); err != nil {
		return maskAny(err)
	}
	return nil
}

// Subscribe to all processed events.
func (s *service) Subscribe(cb func(model.PinEvent)) context.CancelFunc {
	return context.CancelFunc(s.broadcaster.Subscribe(cb))
}
