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

package client

import (
	"net"
	"sync"
	"testing"
	"time"

	"flock/internal/protocol"
)

// scriptedServer answers every connection with responses produced by
// handle, recording the requests it saw.
type scriptedServer struct {
	t        *testing.T
	listener net.Listener
	handle   func(req *protocol.Request, payload []byte) *protocol.Response

	mu       sync.Mutex
	requests []*protocol.Request
}

func newScriptedServer(t *testing.T, handle func(*protocol.Request, []byte) *protocol.Response) *scriptedServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	s := &scriptedServer{t: t, listener: ln, handle: handle}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *scriptedServer) addr() string {
	return s.listener.Addr().String()
}

func (s *scriptedServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			conn.SetDeadline(time.Now().Add(5 * time.Second))

			req, rest, err := protocol.ReadRequest(conn)
			if err != nil {
				return
			}
			payload, err := protocol.ReadPayload(req, rest)
			if err != nil {
				return
			}

			s.mu.Lock()
			s.requests = append(s.requests, req)
			s.mu.Unlock()

			protocol.WriteResponse(conn, s.handle(req, payload))
		}(conn)
	}
}

func (s *scriptedServer) seen() []*protocol.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.Request(nil), s.requests...)
}

func TestPutFollowsRedirectToLeader(t *testing.T) {
	var gotPayload []byte
	leader := newScriptedServer(t, func(req *protocol.Request, payload []byte) *protocol.Response {
		gotPayload = payload
		return protocol.OK()
	})

	leaderHost, leaderPort := splitAddr(t, leader.addr())
	follower := newScriptedServer(t, func(req *protocol.Request, payload []byte) *protocol.Response {
		return protocol.Redirect(protocol.Address{Host: leaderHost, Port: leaderPort})
	})

	c := New(follower.addr(), Config{})
	content := []byte("file body")
	if err := c.Put("data.txt", content); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if string(gotPayload) != string(content) {
		t.Errorf("Leader received payload %q, want %q", gotPayload, content)
	}
	if len(follower.seen()) != 1 || len(leader.seen()) != 1 {
		t.Errorf("Request counts: follower=%d leader=%d, want 1 and 1",
			len(follower.seen()), len(leader.seen()))
	}
}

func TestTrainReturnsModelID(t *testing.T) {
	srv := newScriptedServer(t, func(req *protocol.Request, payload []byte) *protocol.Response {
		if req.Type != protocol.ReqTrain || len(req.Inputs) != 2 {
			return protocol.Error("bad request")
		}
		return &protocol.Response{Status: protocol.StatusOK, ModelID: "m-123"}
	})

	c := New(srv.addr(), Config{})
	id, err := c.Train([][]float64{{0}, {1}}, [][]float64{{0}, {1}})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if id != "m-123" {
		t.Errorf("Model id = %s, want m-123", id)
	}
}

func TestPredictAndList(t *testing.T) {
	srv := newScriptedServer(t, func(req *protocol.Request, payload []byte) *protocol.Response {
		switch req.Type {
		case protocol.ReqPredict:
			return &protocol.Response{Status: protocol.StatusOK, Output: []float64{0.93}}
		case protocol.ReqListModels:
			return &protocol.Response{Status: protocol.StatusOK, Models: []string{"a", "b"}}
		}
		return protocol.Error("unexpected")
	})

	c := New(srv.addr(), Config{})

	out, err := c.Predict("a", []float64{1, 0})
	if err != nil || len(out) != 1 || out[0] != 0.93 {
		t.Errorf("Predict = %v, %v", out, err)
	}

	models, err := c.ListModels()
	if err != nil || len(models) != 2 {
		t.Errorf("ListModels = %v, %v", models, err)
	}
}

func TestErrorStatusSurfacesMessage(t *testing.T) {
	srv := newScriptedServer(t, func(req *protocol.Request, payload []byte) *protocol.Response {
		return protocol.Error("model not found: x")
	})

	c := New(srv.addr(), Config{})
	if _, err := c.Predict("x", []float64{1}); err == nil {
		t.Error("Expected error from ERROR status")
	}
}

func TestRedirectLoopGivesUp(t *testing.T) {
	var self *scriptedServer
	self = newScriptedServer(t, func(req *protocol.Request, payload []byte) *protocol.Response {
		host, port := splitAddr(t, self.addr())
		return protocol.Redirect(protocol.Address{Host: host, Port: port})
	})

	c := New(self.addr(), Config{MaxRedirects: 3})
	if err := c.Put("f.txt", []byte("x")); err == nil {
		t.Error("Expected error after redirect loop")
	}
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	tcp, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		t.Fatalf("resolve %s: %v", addr, err)
	}
	return tcp.IP.String(), tcp.Port
}
