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

package isr

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
	"github.com/binkynet/GpioWorker/pkg/service/events"
)

// Handler is called in interrupt context.
// It must return quickly and must never block.
type Handler func()

// ForwardPin returns a handler that puts the given pin into the queue
// behind the given sender.
// Events are dropped silently when the queue is full.
func ForwardPin(sender events.ISRSender, pin model.PinID) Handler {
	return func() {
		sender.TrySend(pin)
	}
}

type bindings map[model.PinID]Handler

// Service dispatches pin interrupts to the handler bound to the pin.
// Bindings can be added, removed and added again at any time.
type Service struct {
	log zerolog.Logger
	// Serializes writers; Interrupt only reads the current snapshot.
	mutex   sync.Mutex
	current atomic.Pointer[bindings]
	unbound uint64
}

// NewService creates a service without any bindings.
func NewService(log zerolog.Logger) *Service {
	s := &Service{
		log: log.With().Str("component", "isr").Logger(),
	}
	empty := bindings{}
	s.current.Store(&empty)
	return s
}

// AddHandler binds the given handler to the given pin.
// An existing binding for the pin is replaced.
func (s *Service) AddHandler(pin model.PinID, h Handler) error {
	if h == nil {
		return model.InvalidArgument("handler for pin %d is nil", pin)
	}
	if int(pin) >= model.MaxPins {
		return model.InvalidArgument("pin %d out of range", pin)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	updated := s.copyBindings()
	_, replaced := updated[pin]
	updated[pin] = h
	s.current.Store(&updated)
	handlersGauge.Set(float64(len(updated)))
	s.log.Debug().
		Uint8("pin", uint8(pin)).
		Bool("replaced", replaced).
		Msg("Added interrupt handler")
	return nil
}

// RemoveHandler removes the binding of the given pin.
// Returns true if a binding was removed.
// It is safe to call for a pin that was never bound.
func (s *Service) RemoveHandler(pin model.PinID) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current := *s.current.Load()
	if _, found := current[pin]; !found {
		return false
	}
	updated := s.copyBindings()
	delete(updated, pin)
	s.current.Store(&updated)
	handlersGauge.Set(float64(len(updated)))
	s.log.Debug().Uint8("pin", uint8(pin)).Msg("Removed interrupt handler")
	return true
}

// IsBound returns true when a handler is bound to the given pin.
func (s *Service) IsBound(pin model.PinID) bool {
	_, found := (*s.current.Load())[pin]
	return found
}

// Interrupt is called by the bridge in interrupt context when the
// trigger condition of the given pin is met.
// Interrupts of pins without a handler are ignored.
func (s *Service) Interrupt(pin model.PinID) {
	if h := (*s.current.Load())[pin]; h != nil {
		h()
		return
	}
	atomic.AddUint64(&s.unbound, 1)
	unboundInterruptsTotal.Inc()
}

// Unbound returns the number of interrupts that arrived for a pin
// without handler.
func (s *Service) Unbound() uint64 {
	return atomic.LoadUint64(&s.unbound)
}

// copyBindings returns a modifiable copy of the current bindings.
// Caller must hold the mutex.
func (s *Service) copyBindings() bindings {
	current := *s.current.Load()
	result := make(bindings, len(current)+1)
	for k, v := range current {
		result[k] = v
	}
	return result
}
