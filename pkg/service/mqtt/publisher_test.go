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
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

type message struct {
	topic   string
	payload []byte
}

type fakeSender struct {
	mutex    sync.Mutex
	messages []message
	closed   bool
}

func (s *fakeSender) Send(topic string, payload []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.messages = append(s.messages, message{topic, payload})
	return nil
}

func (s *fakeSender) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
}

func (s *fakeSender) Messages() []message {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]message(nil), s.messages...)
}

func TestNewPublisherInvalid(t *testing.T) {
	if _, err := NewPublisher(zerolog.Nop(), Config{TopicPrefix: "gpio"}); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument without broker, got %v", err)
	}
	if _, err := NewPublisher(zerolog.Nop(), Config{BrokerAddress: "localhost:1883", TopicPrefix: "/"}); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument without topic, got %v", err)
	}
}

func TestTopic(t *testing.T) {
	p, err := NewPublisher(zerolog.Nop(), Config{BrokerAddress: "localhost:1883", TopicPrefix: "gpio/events/"})
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	if topic := p.Topic(4); topic != "gpio/events/4" {
		t.Errorf("Expected topic gpio/events/4, got %s", topic)
	}
}

func TestRunPublishesEvents(t *testing.T) {
	p, _ := NewPublisher(zerolog.Nop(), Config{BrokerAddress: "localhost:1883", TopicPrefix: "gpio/events"})
	s := &fakeSender{}
	p.dial = func() (sender, error) { return s, nil }

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.Report(model.PinEvent{Pin: 4, Level: true, Time: ts})
	p.Report(model.PinEvent{Pin: 5, Level: false, Time: ts})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()
	deadline := time.Now().Add(time.Second)
	for len(s.Messages()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].topic != "gpio/events/4" || msgs[1].topic != "gpio/events/5" {
		t.Errorf("Unexpected topics %s, %s", msgs[0].topic, msgs[1].topic)
	}
	var m Message
	if err := json.Unmarshal(msgs[0].payload, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if m.Pin != 4 || m.Level != 1 || !m.Time.Equal(ts) {
		t.Errorf("Unexpected payload %s", string(msgs[0].payload))
	}
	if !s.closed {
		t.Error("Sender must be closed when Run returns")
	}
}

func TestReportDropsOldest(t *testing.T) {
	p, _ := NewPublisher(zerolog.Nop(), Config{BrokerAddress: "localhost:1883", TopicPrefix: "gpio"})
	for i := 0; i < publishQueueSize+3; i++ {
		p.Report(model.PinEvent{Pin: model.PinID(i % model.MaxPins)})
	}
	if len(p.queue) != publishQueueSize {
		t.Fatalf("Expected full queue, got %d", len(p.queue))
	}
	first := <-p.queue
	if first.Pin != 3 {
		t.Errorf("Expected oldest events to be dropped, first is %s", first.Pin)
	}
}
