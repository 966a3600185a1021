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
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/environment"
	"github.com/binkynet/GpioWorker/pkg/model"
)

const (
	BackendAuto   = "auto"
	BackendSim    = "sim"
	BackendCdev   = "cdev"
	BackendSysfs  = "sysfs"
	BackendPeriph = "periph"
)

// Config of the bridge factory.
type Config struct {
	// One of the Backend* constants
	Backend string
	// GPIO character device (cdev only)
	Chip string
	// Interval used to detect edges (sysfs only)
	PollInterval time.Duration
	// Number of pins (sim only)
	SimPinCount int
}

// New creates the bridge selected by the given configuration.
// Interrupts detected by the bridge are delivered to the given sink.
func New(log zerolog.Logger, cfg Config, sink InterruptSink) (API, error) {
	backend := cfg.Backend
	if backend == "" || backend == BackendAuto {
		backend = environment.AutoDetectBridgeType(log)
		log.Info().Str("backend", backend).Msg("Detected GPIO backend")
	}
	switch backend {
	case BackendSim:
		return NewSimBridge(cfg.SimPinCount, sink), nil
	case BackendPeriph:
		return NewPeriphBridge(log, sink)
	case BackendCdev, BackendSysfs:
		return newPlatformBridge(log, backend, cfg, sink)
	default:
		return nil, model.InvalidArgument("unknown bridge backend '%s'", backend)
	}
}
