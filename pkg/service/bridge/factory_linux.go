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

//go:build linux

package bridge

import (
	"github.com/rs/zerolog"
)

// newPlatformBridge creates the bridges that only exist on Linux.
func newPlatformBridge(log zerolog.Logger, backend string, cfg Config, sink InterruptSink) (API, error) {
	if backend == BackendSysfs {
		return NewSysfsBridge(log, cfg.PollInterval, sink)
	}
	return NewCdevBridge(log, cfg.Chip, sink)
}
