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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

type write struct {
	pin   model.PinID
	level bool
}

type recordingWriter struct {
	mutex  sync.Mutex
	writes []write
	err    error
}

func (w *recordingWriter) SetLevel(pin model.PinID, level bool) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.writes = append(w.writes, write{pin, level})
	return w.err
}

func (w *recordingWriter) Writes() []write {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return append([]write(nil), w.writes...)
}

func runUntil(t *testing.T, b *Blinker, w *recordingWriter, minWrites int) []write {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx)
	}()
	deadline := time.Now().Add(time.Second)
	for len(w.Writes()) < minWrites {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for %d writes", minWrites)
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	return w.Writes()
}

func TestToggle(t *testing.T) {
	w := &recordingWriter{}
	b, err := New(Config{Pins: []model.PinID{18, 19}, Period: 2 * time.Millisecond}, Dependencies{Log: zerolog.Nop(), Outputs: w})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	writes := runUntil(t, b, w, 6)
	for i, wr := range writes[:6] {
		expectedPin := model.PinID(18 + i%2)
		// First toggle happens with cnt=1
		expectedLevel := (i/2)%2 == 0
		if wr.pin != expectedPin || wr.level != expectedLevel {
			t.Errorf("Write %d: expected %s=%v, got %s=%v", i, expectedPin, expectedLevel, wr.pin, wr.level)
		}
	}
	if b.Count() < 3 {
		t.Errorf("Expected count >= 3, got %d", b.Count())
	}
}

func TestToggleIgnoresErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("pin gone")}
	b, _ := New(Config{Pins: []model.PinID{18}, Period: time.Millisecond}, Dependencies{Log: zerolog.Nop(), Outputs: w})
	writes := runUntil(t, b, w, 3)
	if len(writes) < 3 {
		t.Errorf("Expected the loop to continue after errors, got %d writes", len(writes))
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(Config{}, Dependencies{Outputs: &recordingWriter{}}); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for zero period, got %v", err)
	}
	if _, err := New(Config{Period: time.Second}, Dependencies{}); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument without writer, got %v", err)
	}
}
