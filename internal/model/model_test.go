/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package model

import (
	"encoding/json"
	"regexp"
	"testing"

	flockerrors "flock/internal/errors"
)

func xorSamples() ([][]float64, [][]float64) {
	inputs := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	outputs := [][]float64{{0}, {1}, {1}, {0}}
	return inputs, outputs
}

func TestTrainLearnsXOR(t *testing.T) {
	inputs, outputs := xorSamples()

	cfg := DefaultTrainConfig()
	cfg.Seed = 42
	cfg.Epochs = 5000

	nw, err := Train(inputs, outputs, cfg)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	for i, input := range inputs {
		out, err := nw.Predict(input)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		want := outputs[i][0]
		got := out[0]
		if (want == 1 && got < 0.5) || (want == 0 && got >= 0.5) {
			t.Errorf("XOR(%v) = %.3f, want near %v", input, got, want)
		}
	}
}

func TestTrainValidation(t *testing.T) {
	tests := []struct {
		name    string
		inputs  [][]float64
		outputs [][]float64
	}{
		{"no samples", nil, nil},
		{"count mismatch", [][]float64{{1}}, [][]float64{{1}, {0}}},
		{"empty row", [][]float64{{}}, [][]float64{{1}}},
		{"ragged inputs", [][]float64{{1, 0}, {1}}, [][]float64{{1}, {0}}},
		{"ragged outputs", [][]float64{{1}, {0}}, [][]float64{{1}, {0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Train(tt.inputs, tt.outputs, DefaultTrainConfig()); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestPredictDimensionCheck(t *testing.T) {
	inputs, outputs := xorSamples()
	cfg := DefaultTrainConfig()
	cfg.Seed = 1
	cfg.Epochs = 10

	nw, err := Train(inputs, outputs, cfg)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if _, err := nw.Predict([]float64{1, 0, 1}); err == nil {
		t.Error("Expected dimension error for 3-wide input on 2-wide model")
	}
}

func TestNetworkJSONRoundTripPredictsIdentically(t *testing.T) {
	inputs, outputs := xorSamples()
	cfg := DefaultTrainConfig()
	cfg.Seed = 7
	cfg.Epochs = 200

	nw, err := Train(inputs, outputs, cfg)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	data, err := json.Marshal(nw)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Network
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// The model that travels through the log must predict exactly like
	// the one trained on the leader.
	for _, input := range inputs {
		a, _ := nw.Predict(input)
		b, _ := back.Predict(input)
		if a[0] != b[0] {
			t.Errorf("Prediction drift after round trip: %v vs %v", a, b)
		}
	}
}

func TestRegistryRegisterAndPredict(t *testing.T) {
	reg := NewRegistry()
	inputs, outputs := xorSamples()
	cfg := DefaultTrainConfig()
	cfg.Seed = 3
	cfg.Epochs = 100

	nw, err := Train(inputs, outputs, cfg)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	reg.Register("m-1", nw)
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}

	if _, err := reg.Predict("m-1", []float64{1, 0}); err != nil {
		t.Errorf("Predict failed: %v", err)
	}

	_, err = reg.Predict("missing", []float64{1, 0})
	if flockerrors.GetCode(err) != flockerrors.ErrCodeModelNotFound {
		t.Errorf("Expected model-not-found, got %v", err)
	}
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	nw := &Network{InputSize: 1, OutputSize: 1}

	// Log replay after restart re-registers every model.
	reg.Register("m-1", nw)
	reg.Register("m-1", nw)

	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1 after duplicate registration", reg.Len())
	}
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		reg.Register(id, &Network{})
	}

	got := reg.List()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestNewModelIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewModelID()
		if !pattern.MatchString(id) {
			t.Fatalf("Bad model id format: %s", id)
		}
		if seen[id] {
			t.Fatalf("Duplicate model id: %s", id)
		}
		seen[id] = true
	}
}
