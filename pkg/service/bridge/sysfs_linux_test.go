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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

func newTestSysfsBridge(unexportPath string) *sysfsBridge {
	return &sysfsBridge{
		log:          zerolog.Nop(),
		cancelPoll:   func() {},
		unexportPath: unexportPath,
		pins: map[model.PinID]*sysfsPin{
			18: {config: model.PinConfig{Mask: model.PinMaskOf(18), Direction: model.DirectionOutput}},
		},
	}
}

func TestSysfsCloseUnexportsPins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unexport")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	b := newTestSysfsBridge(path)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "18" {
		t.Errorf("Expected GPIO18 to be unexported, got '%s'", string(content))
	}
	if len(b.pins) != 0 {
		t.Errorf("Expected no pins after Close, got %d", len(b.pins))
	}
}

func TestSysfsCloseReportsUnexportFailure(t *testing.T) {
	b := newTestSysfsBridge(filepath.Join(t.TempDir(), "missing", "unexport"))
	if err := b.Close(); err == nil {
		t.Error("Expected error when pins cannot be unexported")
	}
}
