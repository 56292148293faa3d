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
Package storage implements the per-node file store.

Uploaded files replicated through the log are materialized here once
committed. Blobs are compressed at rest using the self-describing
format from internal/compression, so the configured algorithm can
change without invalidating existing data. Writes go through a temp
file and rename, and re-writing the same name is safe (log replays
re-apply every PUT).
*/
package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"flock/internal/compression"
	flockerrors "flock/internal/errors"
	"flock/internal/logging"
)

// FileStore stores named blobs under a single directory.
type FileStore struct {
	dir    string
	comp   *compression.Compressor
	logger *logging.Logger
}

// NewFileStore creates the store directory if needed.
func NewFileStore(dir string, compCfg compression.Config) (*FileStore, error) {
	if dir == "" {
		return nil, flockerrors.NewStorageError("storage directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, flockerrors.NewStorageError("create storage dir").WithCause(err)
	}
	return &FileStore{
		dir:    dir,
		comp:   compression.NewCompressor(compCfg),
		logger: logging.NewLogger("storage"),
	}, nil
}

// Dir returns the store's root directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Put stores data under name, overwriting any previous version.
func (fs *FileStore) Put(name string, data []byte) error {
	if err := validateFilename(name); err != nil {
		return err
	}

	blob, err := fs.comp.Compress(data)
	if err != nil {
		return flockerrors.NewStorageError("compress blob").WithCause(err)
	}

	path := filepath.Join(fs.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0644); err != nil {
		return flockerrors.NewStorageError("write blob").WithCause(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return flockerrors.NewStorageError("rename blob").WithCause(err)
	}

	fs.logger.Debug("stored file", "name", name)
	return nil
}

// Get returns the stored contents of name.
func (fs *FileStore) Get(name string) ([]byte, error) {
	if err := validateFilename(name); err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(filepath.Join(fs.dir, name))
	if os.IsNotExist(err) {
		return nil, flockerrors.NewStorageError("file not found").WithDetail(name)
	}
	if err != nil {
		return nil, flockerrors.NewStorageError("read blob").WithCause(err)
	}

	data, err := fs.comp.Decompress(blob)
	if err != nil {
		return nil, flockerrors.NewStorageError("decompress blob").WithDetail(name).WithCause(err)
	}
	return data, nil
}

// Has reports whether name exists in the store.
func (fs *FileStore) Has(name string) bool {
	if validateFilename(name) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(fs.dir, name))
	return err == nil
}

// List returns all stored file names in sorted order.
func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, flockerrors.NewStorageError("list storage dir").WithCause(err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// validateFilename rejects names that could escape the store directory.
func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." {
		return flockerrors.UnsafeFilename(name)
	}
	if strings.ContainsAny(name, "/\\") {
		return flockerrors.UnsafeFilename(name)
	}
	if filepath.Base(name) != name {
		return flockerrors.UnsafeFilename(name)
	}
	return nil
}
