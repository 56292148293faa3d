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

/*
Package model implements the training module and model registry.

Models are small feed-forward networks with one hidden layer, trained by
plain backpropagation on (inputs, outputs) sample matrices. A trained
Network is a value object: it serializes to JSON, travels through the
replicated log as part of a MODEL_TRAINED command, and is registered
under its model id on every node so predictions can be served locally
anywhere in the cluster.
*/
package model

import (
	"math"
	"math/rand"

	flockerrors "flock/internal/errors"
)

// TrainConfig holds training hyperparameters.
type TrainConfig struct {
	HiddenSize   int
	LearningRate float64
	Epochs       int
	Seed         int64 // 0 means unseeded
}

// DefaultTrainConfig returns the defaults used by the worker.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		HiddenSize:   8,
		LearningRate: 0.5,
		Epochs:       2000,
	}
}

// Network is a trained one-hidden-layer feed-forward network.
type Network struct {
	InputSize  int         `json:"input_size"`
	HiddenSize int         `json:"hidden_size"`
	OutputSize int         `json:"output_size"`
	WeightsIH  [][]float64 `json:"weights_ih"` // [hidden][input]
	BiasH      []float64   `json:"bias_h"`
	WeightsHO  [][]float64 `json:"weights_ho"` // [output][hidden]
	BiasO      []float64   `json:"bias_o"`
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Train fits a network to the given samples. Inputs and outputs must
// have the same number of rows, and every row must have a consistent
// width.
func Train(inputs, outputs [][]float64, cfg TrainConfig) (*Network, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, flockerrors.TrainingFailed("no training samples")
	}
	if len(inputs) != len(outputs) {
		return nil, flockerrors.BadDimensions(
			"inputs and outputs have different sample counts")
	}

	inSize := len(inputs[0])
	outSize := len(outputs[0])
	if inSize == 0 || outSize == 0 {
		return nil, flockerrors.BadDimensions("empty sample row")
	}
	for _, row := range inputs {
		if len(row) != inSize {
			return nil, flockerrors.BadDimensions("ragged input rows")
		}
	}
	for _, row := range outputs {
		if len(row) != outSize {
			return nil, flockerrors.BadDimensions("ragged output rows")
		}
	}

	if cfg.HiddenSize <= 0 {
		cfg.HiddenSize = DefaultTrainConfig().HiddenSize
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultTrainConfig().LearningRate
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = DefaultTrainConfig().Epochs
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	nw := &Network{
		InputSize:  inSize,
		HiddenSize: cfg.HiddenSize,
		OutputSize: outSize,
		WeightsIH:  randomMatrix(rng, cfg.HiddenSize, inSize),
		BiasH:      make([]float64, cfg.HiddenSize),
		WeightsHO:  randomMatrix(rng, outSize, cfg.HiddenSize),
		BiasO:      make([]float64, outSize),
	}

	hidden := make([]float64, cfg.HiddenSize)
	out := make([]float64, outSize)
	deltaO := make([]float64, outSize)
	deltaH := make([]float64, cfg.HiddenSize)

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for s, input := range inputs {
			target := outputs[s]

			nw.forward(input, hidden, out)

			for o := 0; o < outSize; o++ {
				err := target[o] - out[o]
				deltaO[o] = err * out[o] * (1 - out[o])
			}
			for h := 0; h < cfg.HiddenSize; h++ {
				var sum float64
				for o := 0; o < outSize; o++ {
					sum += deltaO[o] * nw.WeightsHO[o][h]
				}
				deltaH[h] = sum * hidden[h] * (1 - hidden[h])
			}

			for o := 0; o < outSize; o++ {
				for h := 0; h < cfg.HiddenSize; h++ {
					nw.WeightsHO[o][h] += cfg.LearningRate * deltaO[o] * hidden[h]
				}
				nw.BiasO[o] += cfg.LearningRate * deltaO[o]
			}
			for h := 0; h < cfg.HiddenSize; h++ {
				for i := 0; i < inSize; i++ {
					nw.WeightsIH[h][i] += cfg.LearningRate * deltaH[h] * input[i]
				}
				nw.BiasH[h] += cfg.LearningRate * deltaH[h]
			}
		}
	}

	return nw, nil
}

// Predict evaluates the network on one input vector.
func (nw *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != nw.InputSize {
		return nil, flockerrors.BadDimensions(
			"input width does not match the trained model")
	}
	hidden := make([]float64, nw.HiddenSize)
	out := make([]float64, nw.OutputSize)
	nw.forward(input, hidden, out)
	return out, nil
}

func (nw *Network) forward(input, hidden, out []float64) {
	for h := 0; h < nw.HiddenSize; h++ {
		sum := nw.BiasH[h]
		for i := 0; i < nw.InputSize; i++ {
			sum += nw.WeightsIH[h][i] * input[i]
		}
		hidden[h] = sigmoid(sum)
	}
	for o := 0; o < nw.OutputSize; o++ {
		sum := nw.BiasO[o]
		for h := 0; h < nw.HiddenSize; h++ {
			sum += nw.WeightsHO[o][h] * hidden[h]
		}
		out[o] = sigmoid(sum)
	}
}

func randomMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for r := range m {
		m[r] = make([]float64, cols)
		for c := range m[r] {
			m[r][c] = rng.Float64()*2 - 1
		}
	}
	return m
}
