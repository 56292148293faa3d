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
Package compression provides configurable compression for Flock.

This module implements configurable compression for blobs stored by the
file store. Every compressed blob is self-describing: a one-byte
algorithm tag and the original length precede the payload, so data
written under one configuration can be read under another.

Supported Algorithms:
=====================

 1. Gzip: stdlib, always available
 2. Snappy: very fast, lower ratio, good for real-time
 3. LZ4: fast compression/decompression, moderate ratio
 4. Zstd: best ratio, configurable speed/ratio tradeoff

Blob Format:
============

	+--------+-----------------+----------------+
	| Algo   | OrigLen (4B BE) | Payload...     |
	+--------+-----------------+----------------+

Blobs smaller than MinSize are stored uncompressed under AlgorithmNone.
*/
package compression

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm byte

const (
	AlgorithmNone Algorithm = iota
	AlgorithmGzip
	AlgorithmSnappy
	AlgorithmLZ4
	AlgorithmZstd
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a compression algorithm from string
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "none", "":
		return AlgorithmNone, nil
	case "gzip":
		return AlgorithmGzip, nil
	case "snappy":
		return AlgorithmSnappy, nil
	case "lz4":
		return AlgorithmLZ4, nil
	case "zstd":
		return AlgorithmZstd, nil
	default:
		return AlgorithmNone, fmt.Errorf("unknown compression algorithm: %s", s)
	}
}

// Config holds compression configuration
type Config struct {
	Algorithm Algorithm `json:"algorithm"`
	MinSize   int       `json:"min_size"` // Minimum size to compress
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Algorithm: AlgorithmNone,
		MinSize:   256,
	}
}

// Errors
var (
	ErrInvalidHeader   = errors.New("invalid compression header")
	ErrUnsupportedAlgo = errors.New("unsupported compression algorithm")
	ErrTruncatedBlob   = errors.New("truncated compressed blob")
)

const headerSize = 5

// Compressor provides compression/decompression operations
type Compressor struct {
	config Config
}

// NewCompressor creates a new compressor
func NewCompressor(config Config) *Compressor {
	return &Compressor{config: config}
}

// Compress encodes data as a self-describing blob using the configured
// algorithm. Data below MinSize is stored uncompressed.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	algo := c.config.Algorithm
	if len(data) < c.config.MinSize {
		algo = AlgorithmNone
	}

	payload, err := encode(algo, data)
	if err != nil {
		return nil, err
	}

	// Fall back to raw storage when compression does not pay off.
	if algo != AlgorithmNone && len(payload) >= len(data) {
		algo = AlgorithmNone
		payload = data
	}

	out := make([]byte, headerSize, headerSize+len(payload))
	out[0] = byte(algo)
	binary.BigEndian.PutUint32(out[1:], uint32(len(data)))
	return append(out, payload...), nil
}

// Decompress decodes a blob produced by Compress, regardless of the
// compressor's current configuration.
func (c *Compressor) Decompress(blob []byte) ([]byte, error) {
	if len(blob) < headerSize {
		return nil, ErrInvalidHeader
	}
	algo := Algorithm(blob[0])
	origLen := binary.BigEndian.Uint32(blob[1:headerSize])
	payload := blob[headerSize:]

	data, err := decode(algo, payload, int(origLen))
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) != origLen {
		return nil, ErrTruncatedBlob
	}
	return data, nil
}

func encode(algo Algorithm, data []byte) ([]byte, error) {
	switch algo {
	case AlgorithmNone:
		return data, nil

	case AlgorithmGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil

	case AlgorithmLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case AlgorithmZstd:
		w, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		out := w.EncodeAll(data, nil)
		w.Close()
		return out, nil

	default:
		return nil, ErrUnsupportedAlgo
	}
}

func decode(algo Algorithm, payload []byte, origLen int) ([]byte, error) {
	switch algo {
	case AlgorithmNone:
		return payload, nil

	case AlgorithmGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)

	case AlgorithmSnappy:
		return snappy.Decode(nil, payload)

	case AlgorithmLZ4:
		r := lz4.NewReader(bytes.NewReader(payload))
		return io.ReadAll(r)

	case AlgorithmZstd:
		r, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.DecodeAll(payload, make([]byte, 0, origLen))

	default:
		return nil, ErrUnsupportedAlgo
	}
}
