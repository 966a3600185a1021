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
	"github.com/binkynet/GpioWorker/pkg/metrics"
)

const (
	subSystem = "events"
)

var (
	// Total number of events accepted by the queue
	eventsEnqueuedTotal = metrics.MustRegisterCounter(subSystem,
		"enqueued_total",
		"Total number of events accepted by the queue")
	// Total number of events dropped because the queue was full
	eventsDroppedTotal = metrics.MustRegisterCounter(subSystem,
		"dropped_total",
		"Total number of events dropped because the queue was full")
	// Capacity of the event queue
	queueCapacityGauge = metrics.MustRegisterGauge(subSystem,
		"queue_capacity",
		"Capacity of the event queue")
)
