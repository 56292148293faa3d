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
	"crypto/rand"
	"fmt"
	"sort"
	"sync"

	flockerrors "flock/internal/errors"
)

// Registry holds trained models by id. It is rebuilt from the
// replicated log on restart, so registration must be idempotent.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Network
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Network)}
}

// Register stores a model under id. Re-registering the same id simply
// overwrites with the identical payload, which makes log replays safe.
func (r *Registry) Register(id string, nw *Network) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[id] = nw
}

// Get returns the model registered under id.
func (r *Registry) Get(id string) (*Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nw, ok := r.models[id]
	return nw, ok
}

// Predict evaluates the model registered under id on one input vector.
func (r *Registry) Predict(id string, input []float64) ([]float64, error) {
	nw, ok := r.Get(id)
	if !ok {
		return nil, flockerrors.ModelNotFound(id)
	}
	return nw.Predict(input)
}

// List returns all registered model ids in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// NewModelID generates a random UUIDv4-format model id.
func NewModelID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("model id entropy unavailable: %v", err))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
