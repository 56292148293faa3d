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
Package worker implements the command executor behind the consensus
core.

The worker is the cluster.Applicator: once a command commits it is
applied here, on every node, in log order. Commands are idempotent by
construction (file writes overwrite, model registration overwrites), so
replaying the log after a restart converges to the same state.

Command vocabulary:

	{"action":"PUT","filename":"f","data_b64":"..."}       store a file
	{"action":"MODEL_TRAINED","model_id":"id","model":{…}} register a model

Training itself happens before replication: the front-end calls Train
on the leader, then submits the resulting MODEL_TRAINED command so
every node ends up serving the same model.
*/
package worker

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"flock/internal/compression"
	flockerrors "flock/internal/errors"
	"flock/internal/logging"
	"flock/internal/model"
	"flock/internal/storage"
)

// Command actions understood by the applicator.
const (
	ActionPut          = "PUT"
	ActionModelTrained = "MODEL_TRAINED"
)

// Command is the opaque record replicated through the log, as seen by
// the worker.
type Command struct {
	Action string `json:"action"`

	// PUT
	Filename string `json:"filename,omitempty"`
	DataB64  string `json:"data_b64,omitempty"`

	// MODEL_TRAINED
	ModelID string         `json:"model_id,omitempty"`
	Model   *model.Network `json:"model,omitempty"`
}

// Config holds worker configuration.
type Config struct {
	StorageDir  string
	Compression compression.Config
	Train       model.TrainConfig
}

// Worker executes committed commands and serves local reads.
type Worker struct {
	files  *storage.FileStore
	models *model.Registry
	train  model.TrainConfig
	logger *logging.Logger
}

// New creates a worker with its file store and model registry.
func New(cfg Config) (*Worker, error) {
	files, err := storage.NewFileStore(cfg.StorageDir, cfg.Compression)
	if err != nil {
		return nil, err
	}
	return &Worker{
		files:  files,
		models: model.NewRegistry(),
		train:  cfg.Train,
		logger: logging.NewLogger("worker"),
	}, nil
}

// Apply implements cluster.Applicator. Unknown actions are logged and
// skipped so newer nodes can replicate commands older ones do not
// understand.
func (w *Worker) Apply(raw json.RawMessage) error {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return flockerrors.NewValidationError("undecodable command").WithCause(err)
	}

	switch cmd.Action {
	case ActionPut:
		return w.applyPut(&cmd)
	case ActionModelTrained:
		return w.applyModelTrained(&cmd)
	case "":
		return nil
	default:
		w.logger.Warn("skipping unknown command action", "action", cmd.Action)
		return nil
	}
}

func (w *Worker) applyPut(cmd *Command) error {
	if cmd.Filename == "" {
		return flockerrors.MissingRequired("filename")
	}
	data, err := base64.StdEncoding.DecodeString(cmd.DataB64)
	if err != nil {
		return flockerrors.InvalidValue("data_b64", err.Error())
	}
	if err := w.files.Put(cmd.Filename, data); err != nil {
		return err
	}
	w.logger.Info("committed and stored file",
		"name", cmd.Filename,
		"bytes", fmt.Sprintf("%d", len(data)))
	return nil
}

func (w *Worker) applyModelTrained(cmd *Command) error {
	if cmd.ModelID == "" {
		return flockerrors.MissingRequired("model_id")
	}
	if cmd.Model == nil {
		return flockerrors.MissingRequired("model")
	}
	w.models.Register(cmd.ModelID, cmd.Model)
	w.logger.Info("registered model", "model_id", cmd.ModelID)
	return nil
}

// Train fits a model and returns the command to replicate. The model is
// NOT registered locally here; registration happens when the command
// commits and applies, the same way on every node.
func (w *Worker) Train(inputs, outputs [][]float64) (string, *Command, error) {
	nw, err := model.Train(inputs, outputs, w.train)
	if err != nil {
		return "", nil, err
	}
	id := model.NewModelID()
	cmd := &Command{
		Action:  ActionModelTrained,
		ModelID: id,
		Model:   nw,
	}
	w.logger.Info("trained model",
		"model_id", id,
		"samples", fmt.Sprintf("%d", len(inputs)))
	return id, cmd, nil
}

// PutCommand builds the replication command for a legacy file upload.
func PutCommand(filename string, data []byte) *Command {
	return &Command{
		Action:   ActionPut,
		Filename: filename,
		DataB64:  base64.StdEncoding.EncodeToString(data),
	}
}

// Predict evaluates a registered model locally.
func (w *Worker) Predict(modelID string, input []float64) ([]float64, error) {
	return w.models.Predict(modelID, input)
}

// ListModels returns the locally registered model ids, sorted.
func (w *Worker) ListModels() []string {
	return w.models.List()
}

// GetFile reads a stored file.
func (w *Worker) GetFile(name string) ([]byte, error) {
	return w.files.Get(name)
}

// ListFiles returns the stored file names, sorted.
func (w *Worker) ListFiles() ([]string, error) {
	return w.files.List()
}
