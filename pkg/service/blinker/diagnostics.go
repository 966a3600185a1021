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
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/environment"
)

// LogDiagnostics logs memory usage of the process and the system.
func LogDiagnostics(log zerolog.Logger) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	evt := log.Info().
		Str("heap-in-use", humanize.Bytes(ms.HeapInuse)).
		Str("heap-idle", humanize.Bytes(ms.HeapIdle)).
		Int("goroutines", runtime.NumGoroutine())
	if free, err := environment.FreeMemory(); err == nil {
		evt = evt.Str("free-memory", humanize.Bytes(free))
	}
	evt.Msg("Memory diagnostics")
}
