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
Package protocol implements the Flock client wire protocol.

Protocol Overview:
==================

A client request is a single JSON object terminated by a newline (or
EOF). Legacy uploads instead send the JSON header immediately followed
by `size` raw payload bytes, with no newline in between; ReadRequest
handles both framings transparently.

Responses are always one JSON object terminated by a newline, carrying
a status in {OK, ERROR, REDIRECT, FAIL} plus type-specific payload.

Request Types:
==============

  - TRAIN: train a model from inputs/outputs matrices (write)
  - PREDICT: evaluate a model on one input vector (read)
  - LIST_MODELS: list registered model ids (read)
  - PUT: legacy file upload, JSON header + raw bytes (write)

Addresses on the wire are two-element arrays ["host", port]; REDIRECT
responses carry the leader's client-facing address in this form.
*/
package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Request type identifiers.
const (
	ReqTrain      = "TRAIN"
	ReqPredict    = "PREDICT"
	ReqListModels = "LIST_MODELS"
	ReqPut        = "PUT"
)

// Response status values.
const (
	StatusOK       = "OK"
	StatusError    = "ERROR"
	StatusRedirect = "REDIRECT"
	StatusFail     = "FAIL"
)

// MaxFrameSize bounds a single request header or payload (32 MB).
const MaxFrameSize = 32 * 1024 * 1024

// Address is a client-facing node address, encoded on the wire as a
// two-element JSON array ["host", port].
type Address struct {
	Host string
	Port int
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// MarshalJSON implements json.Marshaler.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{a.Host, a.Port})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("address must be [host, port], got %d elements", len(parts))
	}
	if err := json.Unmarshal(parts[0], &a.Host); err != nil {
		return err
	}
	// Ports may arrive as numbers or numeric strings.
	if err := json.Unmarshal(parts[1], &a.Port); err != nil {
		var s string
		if err2 := json.Unmarshal(parts[1], &s); err2 != nil {
			return err
		}
		if _, err2 := fmt.Sscanf(s, "%d", &a.Port); err2 != nil {
			return err
		}
	}
	return nil
}

// Request is a client request frame.
type Request struct {
	Type string `json:"type"`

	// TRAIN
	Inputs  [][]float64 `json:"inputs,omitempty"`
	Outputs [][]float64 `json:"outputs,omitempty"`

	// PREDICT
	ModelID string    `json:"model_id,omitempty"`
	Input   []float64 `json:"input,omitempty"`

	// PUT (legacy framing: Size raw bytes follow the header)
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Response is a server response frame.
type Response struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Leader  *Address `json:"leader,omitempty"`

	ModelID string    `json:"model_id,omitempty"`
	Output  []float64 `json:"output,omitempty"`
	Models  []string  `json:"models,omitempty"`
}

// ReadRequest reads one request header from r and returns it together
// with a reader positioned at the start of any legacy payload bytes.
func ReadRequest(r io.Reader) (*Request, io.Reader, error) {
	dec := json.NewDecoder(io.LimitReader(r, MaxFrameSize))

	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, nil, fmt.Errorf("decode request: %w", err)
	}
	if req.Size < 0 || req.Size > MaxFrameSize {
		return nil, nil, fmt.Errorf("payload size %d out of range", req.Size)
	}

	// Anything the decoder over-read belongs to the payload. A newline (or
	// CRLF) between a legacy header and its payload is discarded here.
	rest := io.MultiReader(dec.Buffered(), r)
	if req.Size > 0 {
		rest = skipLeadingNewline(rest)
	}
	return &req, rest, nil
}

// ReadPayload reads exactly req.Size legacy payload bytes.
func ReadPayload(req *Request, payload io.Reader) ([]byte, error) {
	if req.Size == 0 {
		return nil, nil
	}
	buf := make([]byte, req.Size)
	if _, err := io.ReadFull(payload, buf); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return buf, nil
}

// skipLeadingNewline consumes a single leading '\n' (and optional '\r')
// if present, for clients that terminate the header line before the
// payload.
func skipLeadingNewline(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	for i := 0; i < 2; i++ {
		b, err := br.Peek(1)
		if err != nil || (b[0] != '\n' && b[0] != '\r') {
			break
		}
		br.ReadByte()
	}
	return br
}

// WriteRequest writes a newline-terminated request frame.
func WriteRequest(w io.Writer, req *Request) error {
	return writeJSONLine(w, req)
}

// WriteResponse writes a newline-terminated response frame.
func WriteResponse(w io.Writer, resp *Response) error {
	return writeJSONLine(w, resp)
}

// ReadResponse reads one newline-terminated response frame.
func ReadResponse(r io.Reader) (*Response, error) {
	dec := json.NewDecoder(io.LimitReader(r, MaxFrameSize))
	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func writeJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// OK returns an OK response with no payload.
func OK() *Response {
	return &Response{Status: StatusOK}
}

// Error returns an ERROR response with the given message.
func Error(message string) *Response {
	return &Response{Status: StatusError, Message: message}
}

// Fail returns a FAIL response with the given message.
func Fail(message string) *Response {
	return &Response{Status: StatusFail, Message: message}
}

// Redirect returns a REDIRECT response pointing at the leader.
func Redirect(leader Address) *Response {
	return &Response{Status: StatusRedirect, Leader: &leader}
}
