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

package cluster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	flockerrors "flock/internal/errors"
)

// StateFileName is the persisted raft state file inside the persist dir.
const StateFileName = "raft_state.json"

// PersistentState is the durable portion of a node's state. VotedFor is
// nil when the node has not voted in the current term.
type PersistentState struct {
	CurrentTerm uint64     `json:"current_term"`
	VotedFor    *string    `json:"voted_for"`
	Log         []LogEntry `json:"log"`
}

// Store atomically persists raft state to a single JSON file via
// write-temp-then-rename. A Store with an empty directory is a no-op
// (non-durable node).
type Store struct {
	dir string

	mu      sync.Mutex
	lastSeq uint64
}

// NewStore creates a store rooted at dir. An empty dir disables
// persistence.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Durable reports whether the store actually writes to disk.
func (s *Store) Durable() bool {
	return s.dir != ""
}

// Path returns the state file path, or "" for a non-durable store.
func (s *Store) Path() string {
	if s.dir == "" {
		return ""
	}
	return filepath.Join(s.dir, StateFileName)
}

// Load reads the persisted state. A missing file (or a non-durable
// store) yields the zero state.
func (s *Store) Load() (*PersistentState, error) {
	zero := &PersistentState{Log: []LogEntry{}}
	path := s.Path()
	if path == "" {
		return zero, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return zero, nil
	}
	if err != nil {
		return nil, flockerrors.NewStorageError("read state file").WithCause(err)
	}

	var st PersistentState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, flockerrors.StateCorrupted(err.Error()).WithCause(err)
	}
	if st.Log == nil {
		st.Log = []LogEntry{}
	}
	return &st, nil
}

// Save durably writes the state. seq orders concurrent snapshots: a
// snapshot taken earlier than one already written is discarded so the
// file never moves backwards.
func (s *Store) Save(seq uint64, st *PersistentState) error {
	path := s.Path()
	if path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.lastSeq {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return flockerrors.NewStorageError("create persist dir").WithCause(err)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return flockerrors.NewStorageError("encode state").WithCause(err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return flockerrors.NewStorageError("open temp state file").WithCause(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return flockerrors.NewStorageError("write temp state file").WithCause(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return flockerrors.NewStorageError("sync temp state file").WithCause(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return flockerrors.NewStorageError("close temp state file").WithCause(err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return flockerrors.NewStorageError(fmt.Sprintf("rename %s", tmp)).WithCause(err)
	}

	s.lastSeq = seq
	return nil
}
