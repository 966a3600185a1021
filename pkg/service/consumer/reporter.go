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

package consumer

import (
	"sync"
	"sync/atomic"

	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

// Reporter receives every processed event.
// Report is called from the consumer task.
type Reporter interface {
	Report(evt model.PinEvent)
}

// ReporterFunc adapts a function into a Reporter.
type ReporterFunc func(evt model.PinEvent)

// Report calls f(evt).
func (f ReporterFunc) Report(evt model.PinEvent) {
	f(evt)
}

// Reporters returns a reporter that reports to all given reporters in order.
// Nil reporters are skipped.
func Reporters(reporters ...Reporter) Reporter {
	list := make([]Reporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			list = append(list, r)
		}
	}
	return ReporterFunc(func(evt model.PinEvent) {
		for _, r := range list {
			r.Report(evt)
		}
	})
}

// LogReporter reports every event as a log line.
func LogReporter(log zerolog.Logger) Reporter {
	return ReporterFunc(func(evt model.PinEvent) {
		log.Info().Msgf("GPIO[%d] intr, val: %d", evt.Pin, evt.LevelValue())
	})
}

// StatusTracker remembers the last event of every pin.
type StatusTracker struct {
	mutex sync.RWMutex
	last  map[model.PinID]model.PinEvent
}

var _ Reporter = &StatusTracker{}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		last: make(map[model.PinID]model.PinEvent),
	}
}

// Report stores the given event.
func (s *StatusTracker) Report(evt model.PinEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.last[evt.Pin] = evt
}

// Last returns the last event of the given pin.
func (s *StatusTracker) Last(pin model.PinID) (model.PinEvent, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	evt, found := s.last[pin]
	return evt, found
}

// All returns the last event of all pins, ordered by pin.
func (s *StatusTracker) All() []model.PinEvent {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var mask model.PinMask
	for pin := range s.last {
		mask |= model.PinMaskOf(pin)
	}
	result := make([]model.PinEvent, 0, len(s.last))
	for _, pin := range mask.Pins() {
		result = append(result, s.last[pin])
	}
	return result
}

const (
	// Number of events buffered per observer
	observerQueueSize = 256
)

// envelope carries an event through pubsub together with its position
// in the report sequence.
type envelope struct {
	seq uint64
	evt model.PinEvent
}

// Broadcaster fans processed events out to any number of observers.
// Observers are called asynchronously, each from its own goroutine,
// in the order the events were reported.
// An observer that falls behind loses its oldest events.
type Broadcaster struct {
	ps  *pubsub.PubSub
	seq atomic.Uint64

	mutex     sync.Mutex
	next      uint64
	pending   map[uint64]model.PinEvent
	observers map[int]*observer
	lastID    int
}

var _ Reporter = &Broadcaster{}

// NewBroadcaster creates a broadcaster without observers.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		ps:        pubsub.New(),
		pending:   make(map[uint64]model.PinEvent),
		observers: make(map[int]*observer),
	}
	b.ps.Sub(b.dispatch)
	return b
}

// Report publishes the event to all observers.
func (b *Broadcaster) Report(evt model.PinEvent) {
	seq := b.seq.Add(1) - 1
	b.ps.Pub(envelope{seq: seq, evt: evt})
}

// dispatch is called by pubsub, possibly out of order.
// Events are released to the observers strictly in sequence.
func (b *Broadcaster) dispatch(env envelope) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.pending[env.seq] = env.evt
	for {
		evt, found := b.pending[b.next]
		if !found {
			return
		}
		delete(b.pending, b.next)
		b.next++
		for _, o := range b.observers {
			o.push(evt)
		}
	}
}

// Subscribe registers the given callback for all future events.
// The returned function removes only this subscription.
func (b *Broadcaster) Subscribe(cb func(model.PinEvent)) func() {
	o := &observer{
		queue: make(chan model.PinEvent, observerQueueSize),
		done:  make(chan struct{}),
	}
	b.mutex.Lock()
	b.lastID++
	id := b.lastID
	b.observers[id] = o
	b.mutex.Unlock()
	go o.run(cb)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mutex.Lock()
			delete(b.observers, id)
			b.mutex.Unlock()
			close(o.done)
		})
	}
}

type observer struct {
	queue chan model.PinEvent
	done  chan struct{}
}

// push adds the event to the queue of the observer, dropping the
// oldest event when the queue is full.
// Only called with the broadcaster mutex held.
func (o *observer) push(evt model.PinEvent) {
	for {
		select {
		case o.queue <- evt:
			return
		default:
		}
		select {
		case <-o.queue:
			observerDroppedTotal.Inc()
		default:
		}
	}
}

func (o *observer) run(cb func(model.PinEvent)) {
	for {
		select {
		case evt := <-o.queue:
			cb(evt)
		case <-o.done:
			return
		}
	}
}
