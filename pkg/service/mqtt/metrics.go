// Copyright 2018 Ewout Prangsma
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

package mqtt

import (
	"github.com/binkynet/GpioWorker/pkg/metrics"
)

const (
	subSystem = "mqtt"
)

var (
	// Total number of events published
	publishedTotal = metrics.MustRegisterCounter(subSystem,
		"published_total",
		"Total number of events published")
	// Total number of events that failed to publish
	publishErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"publish_errors_total",
		"Total number of events that failed to publish")
	// Total number of events dropped because the publish queue was full
	droppedTotal = metrics.MustRegisterCounter(subSystem,
		"dropped_total",
		"Total number of events dropped because the publish queue was full")
)
