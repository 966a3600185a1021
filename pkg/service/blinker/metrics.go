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

package blinker

import (
	"github.com/binkynet/GpioWorker/pkg/metrics"
)

const (
	subSystem = "blinker"
)

var (
	// Total number of output toggles
	togglesTotal = metrics.MustRegisterCounter(subSystem,
		"toggles_total",
		"Total number of output toggles")
	// Total number of failed output level changes
	setLevelErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"set_level_errors_total",
		"Total number of failed output level changes")
)
