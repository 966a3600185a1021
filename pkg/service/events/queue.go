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

package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/binkynet/GpioWorker/pkg/model"
)

var (
	// TimeoutError is returned by Receive when no event arrived in time.
	TimeoutError = errors.New("receive timeout")
	IsTimeout    = func(err error) bool {
		return err == TimeoutError || errors.Cause(err) == TimeoutError
	}
)

// Queue is a fixed capacity FIFO of pin identifiers that connects
// interrupt handlers (producers) with the event consumer task.
//
// The queue is only accessed through its two capabilities:
// an ISRSender for the interrupt side and a Receiver for the task side.
type Queue struct {
	events   chan model.PinID
	enqueued uint64
	dropped  uint64
}

// NewQueue creates a queue with given capacity.
func NewQueue(capacity int) (*Queue, error) {
	if capacity < 1 {
		return nil, model.InvalidArgument("queue capacity must be positive, got %d", capacity)
	}
	queueCapacityGauge.Set(float64(capacity))
	return &Queue{
		events: make(chan model.PinID, capacity),
	}, nil
}

// Sender returns the interrupt side capability of the queue.
func (q *Queue) Sender() ISRSender {
	return ISRSender{q: q}
}

// Receiver returns the task side capability of the queue.
func (q *Queue) Receiver() Receiver {
	return Receiver{q: q}
}

// Capacity returns the fixed capacity of the queue.
func (q *Queue) Capacity() int {
	return cap(q.events)
}

// Len returns the number of events waiting in the queue.
func (q *Queue) Len() int {
	return len(q.events)
}

// Enqueued returns the number of events accepted by the queue.
func (q *Queue) Enqueued() uint64 {
	return atomic.LoadUint64(&q.enqueued)
}

// Dropped returns the number of events dropped because the queue was full.
func (q *Queue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

// ISRSender is the only way interrupt handlers can reach the queue.
// It never blocks and never allocates.
type ISRSender struct {
	q *Queue
}

// TrySend puts the given pin in the queue.
// If the queue is full, the event is dropped and false is returned.
func (s ISRSender) TrySend(pin model.PinID) bool {
	select {
	case s.q.events <- pin:
		atomic.AddUint64(&s.q.enqueued, 1)
		eventsEnqueuedTotal.Inc()
		return true
	default:
		atomic.AddUint64(&s.q.dropped, 1)
		eventsDroppedTotal.Inc()
		return false
	}
}

// Receiver is the task side of the queue.
type Receiver struct {
	q *Queue
}

// Receive blocks until an event is available, the given timeout has
// expired or the context is canceled.
// A timeout of zero waits forever.
func (r Receiver) Receive(ctx context.Context, timeout time.Duration) (model.PinID, error) {
	if timeout <= 0 {
		select {
		case pin := <-r.q.events:
			return pin, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case pin := <-r.q.events:
		return pin, nil
	case <-timer.C:
		return 0, TimeoutError
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
