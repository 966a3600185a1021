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

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken")
}

func TestMultiWriterWritesAll(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter(&a, failingWriter{}, &b)
	n, err := w.Write([]byte("hello"))
	if err == nil {
		t.Error("Expected error of failing writer")
	}
	if n != 5 {
		t.Errorf("Expected 5 bytes written, got %d", n)
	}
	if a.String() != "hello" || b.String() != "hello" {
		t.Errorf("Expected both writers to receive the record, got '%s' and '%s'", a.String(), b.String())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, _, err := New("loud", ""); err == nil {
		t.Error("Expected error for invalid level")
	}
}

func TestNewLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")
	log, closer, err := New("info", path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Debug().Msg("hidden")
	log.Info().Int("pin", 4).Msg("GPIO[4] intr, val: 1")
	if err := closer(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	s := string(content)
	if strings.Contains(s, "hidden") {
		t.Error("Debug record must be filtered")
	}
	if !strings.Contains(s, `"pin":4`) {
		t.Errorf("Expected JSON record in log file, got %s", s)
	}
}
