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
Package client is the Go SDK for talking to a flock cluster.

Any node can be used as the entry point: writes sent to a follower come
back as REDIRECT carrying the leader's client address, and the client
transparently retries there (bounded). Each request uses its own
short-lived connection, matching the one-request-per-connection server.
*/
package client

import (
	"fmt"
	"net"
	"time"

	"flock/internal/protocol"
)

// Config tunes client behavior.
type Config struct {
	Timeout      time.Duration // per-attempt deadline
	TrainTimeout time.Duration // TRAIN may block while the model fits
	MaxRedirects int
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		TrainTimeout: 120 * time.Second,
		MaxRedirects: 5,
	}
}

// Client talks to one flock cluster.
type Client struct {
	addr string
	cfg  Config
}

// New creates a client pointed at any cluster node.
func New(addr string, cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = def.TrainTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = def.MaxRedirects
	}
	return &Client{addr: addr, cfg: cfg}
}

// Put uploads a file using the legacy framing: JSON header, then raw
// bytes.
func (c *Client) Put(filename string, data []byte) error {
	req := &protocol.Request{
		Type:     protocol.ReqPut,
		Filename: filename,
		Size:     int64(len(data)),
	}
	resp, err := c.do(req, data, c.cfg.Timeout)
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusOK {
		return responseError(resp)
	}
	return nil
}

// Train submits training samples and returns the registered model id.
func (c *Client) Train(inputs, outputs [][]float64) (string, error) {
	req := &protocol.Request{
		Type:    protocol.ReqTrain,
		Inputs:  inputs,
		Outputs: outputs,
	}
	resp, err := c.do(req, nil, c.cfg.TrainTimeout)
	if err != nil {
		return "", err
	}
	if resp.Status != protocol.StatusOK {
		return "", responseError(resp)
	}
	return resp.ModelID, nil
}

// Predict evaluates a trained model on one input vector.
func (c *Client) Predict(modelID string, input []float64) ([]float64, error) {
	req := &protocol.Request{
		Type:    protocol.ReqPredict,
		ModelID: modelID,
		Input:   input,
	}
	resp, err := c.do(req, nil, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if resp.Status != protocol.StatusOK {
		return nil, responseError(resp)
	}
	return resp.Output, nil
}

// ListModels returns the model ids registered on the contacted node.
func (c *Client) ListModels() ([]string, error) {
	resp, err := c.do(&protocol.Request{Type: protocol.ReqListModels}, nil, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if resp.Status != protocol.StatusOK {
		return nil, responseError(resp)
	}
	return resp.Models, nil
}

// do performs one request, following leader redirects.
func (c *Client) do(req *protocol.Request, payload []byte, timeout time.Duration) (*protocol.Response, error) {
	addr := c.addr
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRedirects; attempt++ {
		resp, err := c.exchange(addr, req, payload, timeout)
		if err != nil {
			lastErr = err
			// A dead node may come back; brief pause before retrying the
			// same address.
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if resp.Status == protocol.StatusRedirect && resp.Leader != nil {
			addr = resp.Leader.String()
			continue
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after retries: %w", lastErr)
	}
	return nil, fmt.Errorf("too many redirects (last address %s)", addr)
}

func (c *Client) exchange(addr string, req *protocol.Request, payload []byte, timeout time.Duration) (*protocol.Response, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := protocol.WriteRequest(conn, req); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return nil, err
		}
	}
	return protocol.ReadResponse(conn)
}

func responseError(resp *protocol.Response) error {
	if resp.Message != "" {
		return fmt.Errorf("%s: %s", resp.Status, resp.Message)
	}
	return fmt.Errorf("server replied %s", resp.Status)
}
