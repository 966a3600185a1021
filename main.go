//    Copyright 2017 Ewout Prangsma
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

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	terminate "github.com/pulcy/go-terminate"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/GpioWorker/pkg/logging"
	"github.com/binkynet/GpioWorker/pkg/model"
	"github.com/binkynet/GpioWorker/pkg/server"
	"github.com/binkynet/GpioWorker/pkg/service/bridge"
	"github.com/binkynet/GpioWorker/pkg/service/isr"
	"github.com/binkynet/GpioWorker/pkg/service/worker"
	"github.com/binkynet/GpioWorker/pkg/ui"
)

const (
	projectName       = "GPIO Worker"
	defaultServerPort = 7129
	defaultGRPCPort   = 7130
	defaultSSHPort    = 7122
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag, logFile string
	var configPath string
	var serverHost string
	var serverPort, grpcPort, sshPort int
	var bridgeCfg bridge.Config
	var outputPins, inputPins []int
	var inputTrigger string
	var queueCapacity int
	var togglePeriod, waitTimeout time.Duration
	var mqttBroker, mqttTopic string

	defaults := model.DefaultConfig()
	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVar(&logFile, "log-file", "", "Path of a file logs are appended to as JSON")
	pflag.StringVarP(&configPath, "config", "c", "", "Path of a JSON configuration file")
	pflag.StringVarP(&bridgeCfg.Backend, "bridge", "b", bridge.BackendAuto, "Type of bridge to use (auto|sim|cdev|sysfs|periph)")
	pflag.StringVar(&bridgeCfg.Chip, "chip", "gpiochip0", "GPIO character device (cdev bridge)")
	pflag.DurationVar(&bridgeCfg.PollInterval, "poll-interval", 5*time.Millisecond, "Input poll interval (sysfs bridge)")
	pflag.IntVar(&bridgeCfg.SimPinCount, "sim-pins", bridge.DefaultSimPinCount, "Number of pins (sim bridge)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the servers will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.IntVar(&grpcPort, "grpc-port", defaultGRPCPort, "Port the GRPC server will listen on (0 disables)")
	pflag.IntVar(&sshPort, "ssh-port", defaultSSHPort, "Port the SSH server will listen on (0 disables)")
	pflag.IntSliceVar(&outputPins, "outputs", pinsToInts(defaults.OutputPins), "Output pins toggled periodically")
	pflag.IntSliceVar(&inputPins, "inputs", pinsToInts(defaults.InputPins), "Input pins forwarded to the event queue")
	pflag.StringVar(&inputTrigger, "trigger", defaults.InputTrigger.String(), "Interrupt trigger of the input pins")
	pflag.IntVar(&queueCapacity, "queue-capacity", defaults.QueueCapacity, "Capacity of the event queue")
	pflag.DurationVar(&togglePeriod, "toggle-period", time.Duration(defaults.TogglePeriod), "Period of the output toggle loop")
	pflag.DurationVar(&waitTimeout, "wait-timeout", 0, "Maximum time the consumer waits for an event (0 waits forever)")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "host:port of the MQTT broker events are published to")
	pflag.StringVar(&mqttTopic, "mqtt-topic", defaults.MQTT.TopicPrefix, "Topic prefix of published events")
	pflag.Parse()

	logger, closeLog, err := logging.New(levelFlag, logFile)
	if err != nil {
		Exitf("Failed to initialize logging: %v\n", err)
	}
	defer closeLog()

	// Build configuration
	cfg := defaults
	if configPath != "" {
		cfg, err = model.LoadConfig(configPath)
		if err != nil {
			Exitf("Failed to load configuration: %v\n", err)
		}
	}
	changed := pflag.CommandLine.Changed
	if changed("outputs") {
		cfg.OutputPins = intsToPins(outputPins)
	}
	if changed("inputs") {
		cfg.InputPins = intsToPins(inputPins)
	}
	if changed("trigger") {
		cfg.InputTrigger, err = model.ParseTrigger(inputTrigger)
		if err != nil {
			Exitf("Invalid trigger: %v\n", err)
		}
	}
	if changed("queue-capacity") {
		cfg.QueueCapacity = queueCapacity
	}
	if changed("toggle-period") {
		cfg.TogglePeriod = model.Duration(togglePeriod)
	}
	if changed("wait-timeout") {
		cfg.WaitTimeout = model.Duration(waitTimeout)
	}
	if changed("mqtt-broker") {
		cfg.MQTT.BrokerAddress = mqttBroker
	}
	if changed("mqtt-topic") {
		cfg.MQTT.TopicPrefix = mqttTopic
	}
	if err := cfg.Validate(); err != nil {
		Exitf("Invalid configuration: %v\n", err)
	}

	// Interrupts flow from the bridge into the dispatcher
	dispatcher := isr.NewService(logger)
	br, err := bridge.New(logger, bridgeCfg, dispatcher)
	if err != nil {
		Exitf("Failed to initialize bridge: %v\n", err)
	}
	defer func() {
		if err := br.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close bridge")
		}
	}()

	svc, err := worker.NewService(worker.Config{
		Config:         cfg,
		ProgramVersion: projectVersion,
	}, worker.Dependencies{
		Log:    logger,
		Bridge: br,
		ISR:    dispatcher,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: serverPort,
		GRPCPort: grpcPort,
		SSHPort:  sshPort,
	}, logger, ui.New(svc), svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Service run failed")
		br.Close()
		os.Exit(1)
	}
}

func pinsToInts(pins []model.PinID) []int {
	result := make([]int, 0, len(pins))
	for _, p := range pins {
		result = append(result, int(p))
	}
	return result
}

func intsToPins(values []int) []model.PinID {
	result := make([]model.PinID, 0, len(values))
	for _, v := range values {
		if v < 0 || v >= model.MaxPins {
			Exitf("Pin %d out of range [0..%d]\n", v, model.MaxPins-1)
		}
		result = append(result, model.PinID(v))
	}
	return result
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
