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
Package status exposes the node monitoring HTTP surface.

Endpoints:

	/status   consensus snapshot as JSON
	/logs     the node's log file, plain text
	/metrics  Prometheus metrics (term, commit index, apply cursor, role)

The surface is read-only and independent of both the consensus and the
client listeners.
*/
package status

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flock/internal/cluster"
	"flock/internal/logging"
)

// Source provides the consensus snapshot rendered by the surface.
type Source interface {
	Status() cluster.Status
}

// Server is the monitoring HTTP server.
type Server struct {
	addr    string
	source  Source
	logPath string
	logger  *logging.Logger

	httpSrv  *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a monitor server. logPath may be empty when the node logs
// only to stderr.
func New(addr string, source Source, logPath string) *Server {
	return &Server{
		addr:    addr,
		source:  source,
		logPath: logPath,
		logger:  logging.NewLogger("status"),
	}
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Start binds the listener and begins serving.
func (s *Server) Start() error {
	registry := prometheus.NewRegistry()
	s.registerMetrics(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/logs", s.handleLogs)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("monitor listening", "addr", s.addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.httpSrv.Serve(ln)
	}()
	return nil
}

// Stop closes the server.
func (s *Server) Stop() {
	if s.httpSrv != nil {
		s.httpSrv.Close()
	}
	s.wg.Wait()
}

func (s *Server) registerMetrics(registry *prometheus.Registry) {
	gauge := func(name, help string, value func(cluster.Status) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "flock",
			Subsystem: "raft",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return value(s.source.Status())
		})
	}

	registry.MustRegister(
		gauge("term", "Current raft term.", func(st cluster.Status) float64 {
			return float64(st.Term)
		}),
		gauge("commit_index", "Highest committed log index.", func(st cluster.Status) float64 {
			return float64(st.CommitIndex)
		}),
		gauge("last_applied", "Highest applied log index.", func(st cluster.Status) float64 {
			return float64(st.LastApplied)
		}),
		gauge("log_length", "Number of entries in the raft log.", func(st cluster.Status) float64 {
			return float64(st.LogLength)
		}),
		gauge("is_leader", "1 when this node is the leader.", func(st cluster.Status) float64 {
			if st.Role == "LEADER" {
				return 1
			}
			return 0
		}),
		gauge("degraded", "1 when persistence has failed on this node.", func(st cluster.Status) float64 {
			if st.Degraded {
				return 1
			}
			return 0
		}),
	)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.source.Status())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.logPath == "" {
		return
	}
	data, err := os.ReadFile(s.logPath)
	if err != nil {
		// Missing log file reads as empty, matching a freshly started node.
		return
	}
	w.Write(data)
}
