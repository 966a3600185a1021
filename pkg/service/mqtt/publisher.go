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
	"fmt"
	"strings"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/GpioWorker/pkg/model"
)

const (
	publishQueueSize  = 512
	publishTimeout    = time.Millisecond * 200
	disconnectQuiesce = 250
)

// Config of the event publisher.
type Config struct {
	// host:port of the broker
	BrokerAddress string
	// Events of pin N are published on <TopicPrefix>/N
	TopicPrefix string
	ClientID    string
}

// sender delivers messages to the broker.
type sender interface {
	Send(topic string, payload []byte) error
	Close()
}

// Publisher publishes processed pin events to an MQTT broker.
type Publisher struct {
	log    zerolog.Logger
	config Config
	queue  chan model.PinEvent
	dial   func() (sender, error)
}

// Message is the payload of a published event.
type Message struct {
	Pin   model.PinID `json:"pin"`
	Level int         `json:"level"`
	Time  time.Time   `json:"time"`
}

// NewPublisher creates a publisher for the given broker.
// Nothing is sent until Run is called.
func NewPublisher(log zerolog.Logger, cfg Config) (*Publisher, error) {
	if cfg.BrokerAddress == "" {
		return nil, model.InvalidArgument("broker address is missing")
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")
	if cfg.TopicPrefix == "" {
		return nil, model.InvalidArgument("topic prefix is missing")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "gpio-worker"
	}
	p := &Publisher{
		log:    log.With().Str("component", "mqtt").Logger(),
		config: cfg,
		queue:  make(chan model.PinEvent, publishQueueSize),
	}
	p.dial = p.dialPaho
	return p, nil
}

// Report queues the given event for publication.
// When the queue is full, the oldest event is dropped.
func (p *Publisher) Report(evt model.PinEvent) {
	for attempt := 0; attempt < 10; attempt++ {
		select {
		case p.queue <- evt:
			return
		default:
			// Queue full; Take 1 out and try again
			select {
			case <-p.queue:
				droppedTotal.Inc()
			default:
			}
		}
	}
}

// Topic returns the topic events of the given pin are published on.
func (p *Publisher) Topic(pin model.PinID) string {
	return fmt.Sprintf("%s/%d", p.config.TopicPrefix, pin)
}

// Run connects to the broker and publishes queued events until the
// given context is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	s, err := p.dial()
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", p.config.BrokerAddress)
	}
	defer s.Close()
	p.log.Info().Str("broker", p.config.BrokerAddress).Msg("Connected to MQTT broker")
	for {
		select {
		case evt := <-p.queue:
			payload, err := json.Marshal(Message{Pin: evt.Pin, Level: evt.LevelValue(), Time: evt.Time})
			if err != nil {
				return errors.Wrap(err, "Marshal failed")
			}
			topic := p.Topic(evt.Pin)
			if err := s.Send(topic, payload); err != nil {
				publishErrorsTotal.Inc()
				p.log.Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
			} else {
				publishedTotal.Inc()
			}
		case <-ctx.Done():
			return nil
		}
	}
}

type pahoSender struct {
	client mqttapi.Client
}

func (p *Publisher) dialPaho() (sender, error) {
	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + p.config.BrokerAddress).
		SetClientID(p.config.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqttapi.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrap(token.Error(), "failed to connect to mqtt")
	}
	return &pahoSender{client: client}, nil
}

func (s *pahoSender) Send(topic string, payload []byte) error {
	token := s.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("failed to deliver MQTT message in time")
	}
	return token.Error()
}

func (s *pahoSender) Close() {
	s.client.Disconnect(disconnectQuiesce)
}
