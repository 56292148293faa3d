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
flockd - Flock worker node daemon

A flockd process runs one cluster node: the consensus core, the client
request front-end, the command-executing worker and the monitoring
surface.

Usage:

	flockd --node-id n1 --host 10.0.0.1 --port 9000 --consensus-port 10000 \
	       --peers 10.0.0.2:10000,10.0.0.3:10000 \
	       --persist-dir /var/lib/flock/n1 --storage-dir /var/lib/flock/n1/files

	flockd --config /etc/flock/flock.yaml
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"flock/internal/cluster"
	"flock/internal/compression"
	"flock/internal/config"
	"flock/internal/logging"
	"flock/internal/model"
	"flock/internal/server"
	"flock/internal/status"
	"flock/internal/worker"
)

const version = "1.0.0"

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	nodeID := flag.String("node-id", "", "Node identity used in votes and leader hints")
	host := flag.String("host", "", "Advertised host for both listeners")
	clientPort := flag.Int("port", 0, "Client-facing port")
	consensusPort := flag.Int("consensus-port", 0, "Consensus RPC port")
	monitorPort := flag.Int("monitor-port", 0, "Monitor HTTP port")
	peers := flag.String("peers", "", "Comma-separated peers as host:consensusPort")
	persistDir := flag.String("persist-dir", "", "Directory for durable raft state (empty: non-durable)")
	storageDir := flag.String("storage-dir", "", "Directory for stored files")
	compAlgo := flag.String("compression", "", "At-rest compression: none, gzip, snappy, lz4, zstd")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "Emit logs as JSON lines")
	discovery := flag.Bool("discovery", false, "Advertise this node over mDNS")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flockd v%s\n", version)
		return
	}

	mgr := config.Global()
	if *configFile != "" {
		if err := mgr.LoadFromFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "flockd: %v\n", err)
			os.Exit(1)
		}
	}
	mgr.LoadFromEnv()
	cfg := mgr.Get()

	// Explicit flags override file and environment.
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *clientPort != 0 {
		cfg.ClientPort = *clientPort
	}
	if *consensusPort != 0 {
		cfg.ConsensusPort = *consensusPort
	}
	if *monitorPort != 0 {
		cfg.MonitorPort = *monitorPort
	}
	if *peers != "" {
		cfg.Peers = strings.Split(*peers, ",")
	}
	if *persistDir != "" {
		cfg.PersistDir = *persistDir
	}
	if *storageDir != "" {
		cfg.StorageDir = *storageDir
	}
	if *compAlgo != "" {
		cfg.Compression = *compAlgo
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logJSON {
		cfg.LogJSON = true
	}
	if *discovery {
		cfg.DiscoveryEnabled = true
	}
	if cfg.NodeID == "" {
		cfg.NodeID = fmt.Sprintf("%s:%d", cfg.Host, cfg.ClientPort)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "flockd: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logPath := setupLogging(cfg)
	log := logging.NewLogger("flockd")
	log.Info("starting node", "node", cfg.NodeID, "version", version)

	compCfg := compression.DefaultConfig()
	if algo, err := compression.ParseAlgorithm(cfg.Compression); err == nil {
		compCfg.Algorithm = algo
	}

	w, err := worker.New(worker.Config{
		StorageDir:  cfg.StorageDir,
		Compression: compCfg,
		Train:       model.DefaultTrainConfig(),
	})
	if err != nil {
		log.Error("worker init failed", "error", err.Error())
		os.Exit(1)
	}

	node := cluster.NewNode(cluster.Config{
		NodeID:             cfg.NodeID,
		Host:               cfg.Host,
		ClientPort:         cfg.ClientPort,
		ConsensusAddr:      cfg.ConsensusAddr(),
		Peers:              cfg.Peers,
		HeartbeatInterval:  cfg.HeartbeatInterval,
		ElectionTimeoutMin: cfg.ElectionTimeoutMin,
		ElectionTimeoutMax: cfg.ElectionTimeoutMax,
		PersistDir:         cfg.PersistDir,
		Applicator:         w,
	})
	if err := node.Start(); err != nil {
		log.Error("consensus start failed", "error", err.Error())
		os.Exit(1)
	}

	front := server.New(cfg.ClientAddr(), node, w)
	front.SetTrainingEnabled(cfg.RunTraining)
	if err := front.Start(); err != nil {
		log.Error("front-end start failed", "error", err.Error())
		node.Stop()
		os.Exit(1)
	}

	monitor := status.New(fmt.Sprintf("%s:%d", cfg.Host, cfg.MonitorPort), node, logPath)
	if err := monitor.Start(); err != nil {
		log.Error("monitor start failed", "error", err.Error())
		front.Stop()
		node.Stop()
		os.Exit(1)
	}

	disc := cluster.NewDiscoveryService(cluster.DiscoveryConfig{
		NodeID:        cfg.NodeID,
		Enabled:       cfg.DiscoveryEnabled,
		ClientAddr:    cfg.ClientAddr(),
		ConsensusAddr: cfg.ConsensusAddr(),
		MonitorAddr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.MonitorPort),
		Version:       version,
		Port:          cfg.ClientPort,
	})
	if err := disc.Start(); err != nil {
		log.Warn("discovery unavailable", "error", err.Error())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	disc.Stop()
	monitor.Stop()
	front.Stop()
	node.Stop()
}

// setupLogging configures the global logger and tees output into a log
// file under the storage dir so the monitor can serve /logs. Returns
// the log file path, or "" if only stderr is available.
func setupLogging(cfg *config.Config) string {
	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return ""
	}
	logPath := filepath.Join(cfg.StorageDir, "flockd.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return ""
	}
	logging.SetGlobalOutput(io.MultiWriter(os.Stderr, f))
	return logPath
}
