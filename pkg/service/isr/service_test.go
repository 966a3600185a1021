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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
	"github.com/binkynet/GpioWorker/pkg/service/events"
)

func newQueue(t *testing.T, capacity int) *events.Queue {
	t.Helper()
	q, err := events.NewQueue(capacity)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	return q
}

func received(t *testing.T, q *events.Queue) []model.PinID {
	t.Helper()
	var result []model.PinID
	for {
		pin, err := q.Receiver().Receive(context.Background(), 10*time.Millisecond)
		if events.IsTimeout(err) {
			return result
		} else if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		result = append(result, pin)
	}
}

func TestRemoveBeforeAdd(t *testing.T) {
	s := NewService(zerolog.Nop())
	if s.RemoveHandler(4) {
		t.Error("RemoveHandler must return false for an unbound pin")
	}
	if s.IsBound(4) {
		t.Error("Pin must not be bound")
	}
}

func TestAddHandlerInvalid(t *testing.T) {
	s := NewService(zerolog.Nop())
	if err := s.AddHandler(4, nil); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for nil handler, got %v", err)
	}
	if err := s.AddHandler(model.MaxPins, func() {}); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for out of range pin, got %v", err)
	}
}

func TestForwardPinCapturesPin(t *testing.T) {
	q := newQueue(t, 10)
	s := NewService(zerolog.Nop())
	for _, pin := range []model.PinID{4, 5} {
		if err := s.AddHandler(pin, ForwardPin(q.Sender(), pin)); err != nil {
			t.Fatalf("AddHandler failed: %v", err)
		}
	}
	s.Interrupt(5)
	s.Interrupt(4)
	s.Interrupt(6) // not bound
	got := received(t, q)
	if len(got) != 2 || got[0] != 5 || got[1] != 4 {
		t.Errorf("Expected [5 4], got %v", got)
	}
	if s.Unbound() != 1 {
		t.Errorf("Expected 1 unbound interrupt, got %d", s.Unbound())
	}
}

func TestRemoveAndReAddRestoresDelivery(t *testing.T) {
	q := newQueue(t, 10)
	s := NewService(zerolog.Nop())
	if err := s.AddHandler(4, ForwardPin(q.Sender(), 4)); err != nil {
		t.Fatalf("AddHandler failed: %v", err)
	}
	if !s.RemoveHandler(4) {
		t.Fatal("RemoveHandler must return true for a bound pin")
	}
	s.Interrupt(4) // lost, no handler
	if s.RemoveHandler(4) {
		t.Error("Second RemoveHandler must return false")
	}
	if err := s.AddHandler(4, ForwardPin(q.Sender(), 4)); err != nil {
		t.Fatalf("AddHandler failed: %v", err)
	}
	s.Interrupt(4)
	s.Interrupt(4)
	got := received(t, q)
	if len(got) != 2 {
		t.Fatalf("Expected exactly 2 events after re-add, got %v", got)
	}
}

func TestAddHandlerReplaces(t *testing.T) {
	s := NewService(zerolog.Nop())
	var first, second int
	s.AddHandler(4, func() { first++ })
	s.AddHandler(4, func() { second++ })
	s.Interrupt(4)
	if first != 0 || second != 1 {
		t.Errorf("Expected only the second handler to be called, got first=%d second=%d", first, second)
	}
}

func TestConcurrentInterruptsAndBindings(t *testing.T) {
	q := newQueue(t, 1000)
	s := NewService(zerolog.Nop())
	s.AddHandler(5, ForwardPin(q.Sender(), 5))
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.Interrupt(5)
			s.Interrupt(4)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.AddHandler(4, ForwardPin(q.Sender(), 4))
			s.RemoveHandler(4)
		}
	}()
	wg.Wait()
	fives := 0
	for _, pin := range received(t, q) {
		if pin == 5 {
			fives++
		}
	}
	if fives != 500 {
		t.Errorf("Expected 500 events of pin 5, got %d", fives)
	}
}
