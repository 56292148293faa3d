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
Package server implements the client request front-end.

Each TCP connection carries exactly one request and one response in the
wire format of internal/protocol. Reads (PREDICT, LIST_MODELS) are
answered from the local worker. Writes (TRAIN, legacy PUT) require
leadership: a non-leader replies REDIRECT with the leader's
client-facing address, or ERROR when no leader is known. Accepted
writes go through consensus Submit and only report OK once committed.
*/
package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	flockerrors "flock/internal/errors"
	"flock/internal/logging"
	"flock/internal/protocol"
	"flock/internal/worker"
)

// Consensus is the front-end's view of the consensus core.
type Consensus interface {
	IsLeader() bool
	LeaderHint() (protocol.Address, bool)
	Submit(ctx context.Context, command json.RawMessage) (int64, error)
}

// connDeadline bounds one whole request/response exchange. Training on
// large sample sets dominates, so it is generous.
const connDeadline = 5 * time.Minute

// Server terminates the client protocol on one TCP port.
type Server struct {
	addr   string
	node   Consensus
	worker *worker.Worker
	logger *logging.Logger

	listener net.Listener
	stopCh   chan struct{}
	wg       sync.WaitGroup

	trainingDisabled bool
}

// New creates a front-end bound to addr, backed by the given consensus
// handle and worker.
func New(addr string, node Consensus, w *worker.Worker) *Server {
	return &Server{
		addr:   addr,
		node:   node,
		worker: w,
		logger: logging.NewLogger("server"),
		stopCh: make(chan struct{}),
	}
}

// SetTrainingEnabled toggles whether this node accepts TRAIN requests.
// Upload-only deployments run with training disabled.
func (s *Server) SetTrainingEnabled(enabled bool) {
	s.trainingDisabled = !enabled
}

// Start begins accepting client connections.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return flockerrors.NewConnectionError("start client listener").WithCause(err)
	}
	s.listener = ln
	s.logger.Info("client front-end listening", "addr", s.addr)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for in-flight requests.
func (s *Server) Stop() {
	close(s.stopCh)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn serves exactly one request.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connDeadline))

	req, payload, err := protocol.ReadRequest(conn)
	if err != nil {
		s.logger.Debug("unreadable request", "remote", conn.RemoteAddr().String(), "error", err.Error())
		protocol.WriteResponse(conn, protocol.Error("malformed request"))
		return
	}

	resp := s.dispatch(req, payload)
	if err := protocol.WriteResponse(conn, resp); err != nil {
		s.logger.Debug("response write failed", "remote", conn.RemoteAddr().String(), "error", err.Error())
	}
}

func (s *Server) dispatch(req *protocol.Request, payload io.Reader) *protocol.Response {
	switch req.Type {
	case protocol.ReqTrain:
		return s.handleTrain(req)
	case protocol.ReqPredict:
		return s.handlePredict(req)
	case protocol.ReqListModels:
		return s.handleListModels()
	case protocol.ReqPut, "":
		// Legacy uploads omit the type field; the header carries only
		// filename and size.
		if req.Filename != "" {
			return s.handlePut(req, payload)
		}
		fallthrough
	default:
		return protocol.Error(flockerrors.UnknownRequest(req.Type).Error())
	}
}

// redirectOrError answers a write received while not leading.
func (s *Server) redirectOrError() *protocol.Response {
	if hint, ok := s.node.LeaderHint(); ok {
		s.logger.Debug("redirecting write to leader", "leader", hint.String())
		return protocol.Redirect(hint)
	}
	return protocol.Error("no leader known")
}

func (s *Server) handleTrain(req *protocol.Request) *protocol.Response {
	if s.trainingDisabled {
		return protocol.Error("training is disabled on this node")
	}
	if len(req.Inputs) == 0 || len(req.Outputs) == 0 {
		return protocol.Error("TRAIN requires inputs and outputs")
	}
	if !s.node.IsLeader() {
		return s.redirectOrError()
	}

	modelID, cmd, err := s.worker.Train(req.Inputs, req.Outputs)
	if err != nil {
		return protocol.Error(err.Error())
	}

	raw, err := json.Marshal(cmd)
	if err != nil {
		return protocol.Error("encode command: " + err.Error())
	}

	if resp := s.submit(raw); resp != nil {
		return resp
	}
	return &protocol.Response{Status: protocol.StatusOK, ModelID: modelID}
}

func (s *Server) handlePredict(req *protocol.Request) *protocol.Response {
	if req.ModelID == "" {
		return protocol.Error("PREDICT requires model_id")
	}
	output, err := s.worker.Predict(req.ModelID, req.Input)
	if err != nil {
		return protocol.Error(err.Error())
	}
	return &protocol.Response{Status: protocol.StatusOK, Output: output}
}

func (s *Server) handleListModels() *protocol.Response {
	return &protocol.Response{Status: protocol.StatusOK, Models: s.worker.ListModels()}
}

func (s *Server) handlePut(req *protocol.Request, payload io.Reader) *protocol.Response {
	data, err := protocol.ReadPayload(req, payload)
	if err != nil {
		return protocol.Error("short upload: " + err.Error())
	}
	s.logger.Info("received PUT", "filename", req.Filename, "size", strconv.Itoa(len(data)))

	if !s.node.IsLeader() {
		return s.redirectOrError()
	}

	raw, err := json.Marshal(worker.PutCommand(req.Filename, data))
	if err != nil {
		return protocol.Error("encode command: " + err.Error())
	}

	if err := s.submitErr(raw); err != nil {
		if flockerrors.IsNotLeader(err) {
			return s.redirectOrError()
		}
		// The legacy protocol reports replication failure as FAIL.
		s.logger.Warn("replication failed", "filename", req.Filename)
		return protocol.Fail("replication failed")
	}
	return protocol.OK()
}

// submit replicates a command and maps failures onto protocol
// responses. It returns nil on success.
func (s *Server) submit(raw json.RawMessage) *protocol.Response {
	if err := s.submitErr(raw); err != nil {
		if flockerrors.IsNotLeader(err) {
			return s.redirectOrError()
		}
		return protocol.Error("replication failed")
	}
	return nil
}

func (s *Server) submitErr(raw json.RawMessage) error {
	_, err := s.node.Submit(context.Background(), raw)
	return err
}

