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

package pins

import (
	"context"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/binkynet/GpioWorker/pkg/model"
	"github.com/binkynet/GpioWorker/pkg/service/bridge"
)

var errHardware = errors.New("hardware failure")

// recorder records all configuration calls and fails on request.
type recorder struct {
	applied  []model.PinConfig
	triggers map[model.PinID]model.Trigger
	failOn   model.PinMask
}

func (r *recorder) PinCount() int { return 40 }

func (r *recorder) ConfigurePins(cfg model.PinConfig) error {
	if r.failOn.Overlaps(cfg.Mask) {
		return errHardware
	}
	r.applied = append(r.applied, cfg)
	return nil
}

func (r *recorder) SetTrigger(pin model.PinID, trigger model.Trigger) error {
	if r.triggers == nil {
		r.triggers = make(map[model.PinID]model.Trigger)
	}
	r.triggers[pin] = trigger
	return nil
}

func appConfig() *model.AppPinConfig {
	cfg := model.DefaultConfig().PinConfig()
	return &cfg
}

func TestInitNil(t *testing.T) {
	r := &recorder{}
	if err := Init(context.Background(), r, nil); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument, got %v", err)
	}
	if len(r.applied) != 0 {
		t.Errorf("Expected no side effects, got %v", r.applied)
	}
}

func TestInitOrder(t *testing.T) {
	r := &recorder{}
	cfg := appConfig()
	if err := Init(context.Background(), r, cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if len(r.applied) != 2 || r.applied[0] != cfg.Outputs || r.applied[1] != cfg.Inputs {
		t.Errorf("Expected outputs then inputs, got %+v", r.applied)
	}
}

func TestApplyValidatesBeforeSideEffects(t *testing.T) {
	valid := appConfig().Outputs
	tests := map[string]model.PinConfig{
		"empty mask":   {Direction: model.DirectionInput},
		"both pulls":   {Mask: model.PinMaskOf(4), Direction: model.DirectionInput, PullUp: true, PullDown: true},
		"output irq":   {Mask: model.PinMaskOf(4), Direction: model.DirectionOutput, Trigger: model.TriggerRisingEdge},
		"bad trigger":  {Mask: model.PinMaskOf(4), Direction: model.DirectionInput, Trigger: model.Trigger(42)},
		"out of range": {Mask: model.PinMaskOf(45), Direction: model.DirectionInput},
		"overlap":      {Mask: model.PinMaskOf(18), Direction: model.DirectionInput},
	}
	for name, invalid := range tests {
		t.Run(name, func(t *testing.T) {
			r := &recorder{}
			err := Apply(context.Background(), r, &valid, &invalid)
			if !model.IsInvalidArgument(err) {
				t.Errorf("Expected invalid argument, got %v", err)
			}
			if len(r.applied) != 0 {
				t.Errorf("Expected no side effects, got %v", r.applied)
			}
		})
	}
}

func TestApplyNilRecord(t *testing.T) {
	r := &recorder{}
	valid := appConfig().Outputs
	if err := Apply(context.Background(), r, &valid, nil); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument, got %v", err)
	}
	if err := Apply(context.Background(), r); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument without records, got %v", err)
	}
	if len(r.applied) != 0 {
		t.Errorf("Expected no side effects, got %v", r.applied)
	}
}

func TestApplyFailFast(t *testing.T) {
	cfg := appConfig()
	r := &recorder{failOn: cfg.Outputs.Mask}
	err := Init(context.Background(), r, cfg)
	if errors.Cause(err) != errHardware {
		t.Fatalf("Expected hardware error to surface, got %v", err)
	}
	if len(r.applied) != 0 {
		t.Errorf("Inputs must not be applied after outputs failed, got %v", r.applied)
	}

	// Failure of the second group keeps the first one applied
	r = &recorder{failOn: cfg.Inputs.Mask}
	if err := Init(context.Background(), r, cfg); errors.Cause(err) != errHardware {
		t.Fatalf("Expected hardware error to surface, got %v", err)
	}
	if len(r.applied) != 1 || r.applied[0] != cfg.Outputs {
		t.Errorf("Expected outputs to stay applied, got %v", r.applied)
	}
}

func TestApplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &recorder{}
	if err := Init(ctx, r, appConfig()); errors.Cause(err) != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(r.applied) != 0 {
		t.Errorf("Expected no side effects, got %v", r.applied)
	}
}

func TestDisjointGroupsCommute(t *testing.T) {
	cfg := appConfig()
	a := bridge.NewSimBridge(0, nil)
	b := bridge.NewSimBridge(0, nil)
	if err := Apply(context.Background(), a, &cfg.Outputs, &cfg.Inputs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := Apply(context.Background(), b, &cfg.Inputs, &cfg.Outputs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Errorf("Expected equal pin state, got\n%+v\n%+v", a.Snapshot(), b.Snapshot())
	}
}

func TestInitIdempotent(t *testing.T) {
	cfg := appConfig()
	sim := bridge.NewSimBridge(0, nil)
	if err := Init(context.Background(), sim, cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	first := sim.Snapshot()
	if err := Init(context.Background(), sim, cfg); err != nil {
		t.Fatalf("Second Init failed: %v", err)
	}
	if !reflect.DeepEqual(first, sim.Snapshot()) {
		t.Errorf("Expected unchanged pin state, got\n%+v\n%+v", first, sim.Snapshot())
	}
}

func TestSetTrigger(t *testing.T) {
	r := &recorder{}
	if err := SetTrigger(context.Background(), r, 4, model.TriggerAnyEdge); err != nil {
		t.Fatalf("SetTrigger failed: %v", err)
	}
	if r.triggers[4] != model.TriggerAnyEdge {
		t.Errorf("Expected any-edge on GPIO4, got %s", r.triggers[4])
	}
	if err := SetTrigger(context.Background(), r, 40, model.TriggerAnyEdge); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for out of range pin, got %v", err)
	}
	if err := SetTrigger(context.Background(), r, 4, model.Trigger(42)); !model.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument for unknown trigger, got %v", err)
	}
}
