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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"flock/internal/logging"
)

// mDNS service identifier advertised by flock nodes.
const (
	discoveryService = "_flock._tcp"
	discoveryDomain  = "local."
)

// DiscoveryConfig configures LAN node discovery.
type DiscoveryConfig struct {
	NodeID  string
	Enabled bool // advertise this node; discovery-only callers leave it false

	ClientAddr    string
	ConsensusAddr string
	MonitorAddr   string
	Version       string
	Port          int // mDNS service port, normally the client port
}

// DiscoveredNode describes one flock node found on the local network.
type DiscoveredNode struct {
	NodeID        string
	ClientAddr    string
	ConsensusAddr string
	MonitorAddr   string
	Version       string
}

// DiscoveryService advertises this node over mDNS and browses for
// others.
type DiscoveryService struct {
	cfg    DiscoveryConfig
	server *mdns.Server
	logger *logging.Logger
}

// NewDiscoveryService creates a discovery service.
func NewDiscoveryService(cfg DiscoveryConfig) *DiscoveryService {
	return &DiscoveryService{
		cfg:    cfg,
		logger: logging.NewLogger("discovery"),
	}
}

// Start begins advertising when the config enables it. Discovery-only
// services start successfully without a server.
func (d *DiscoveryService) Start() error {
	if !d.cfg.Enabled {
		return nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = d.cfg.NodeID
	}

	txt := []string{
		"node_id=" + d.cfg.NodeID,
		"client_addr=" + d.cfg.ClientAddr,
		"consensus_addr=" + d.cfg.ConsensusAddr,
		"monitor_addr=" + d.cfg.MonitorAddr,
		"version=" + d.cfg.Version,
	}

	port := d.cfg.Port
	if port == 0 {
		port = 9000
	}

	service, err := mdns.NewMDNSService(d.cfg.NodeID, discoveryService, discoveryDomain,
		host+".", port, nil, txt)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("start mdns server: %w", err)
	}
	d.server = server

	d.logger.Info("advertising node", "node", d.cfg.NodeID, "service", discoveryService)
	return nil
}

// Stop stops advertising.
func (d *DiscoveryService) Stop() {
	if d.server != nil {
		d.server.Shutdown()
		d.server = nil
	}
}

// DiscoverNodes browses the local network for flock nodes until the
// timeout elapses.
func (d *DiscoveryService) DiscoverNodes(timeout time.Duration) ([]*DiscoveredNode, error) {
	entries := make(chan *mdns.ServiceEntry, 32)
	done := make(chan []*DiscoveredNode, 1)

	go func() {
		var nodes []*DiscoveredNode
		seen := make(map[string]bool)
		for entry := range entries {
			node := parseServiceEntry(entry)
			if node == nil || node.NodeID == d.cfg.NodeID || seen[node.NodeID] {
				continue
			}
			seen[node.NodeID] = true
			nodes = append(nodes, node)
		}
		done <- nodes
	}()

	params := &mdns.QueryParam{
		Service:     discoveryService,
		Domain:      discoveryDomain,
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}
	err := mdns.Query(params)
	close(entries)

	nodes := <-done
	if err != nil {
		return nodes, fmt.Errorf("mdns query: %w", err)
	}
	return nodes, nil
}

// parseServiceEntry extracts node metadata from mDNS TXT records.
func parseServiceEntry(entry *mdns.ServiceEntry) *DiscoveredNode {
	node := &DiscoveredNode{}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "node_id":
			node.NodeID = value
		case "client_addr":
			node.ClientAddr = value
		case "consensus_addr":
			node.ConsensusAddr = value
		case "monitor_addr":
			node.MonitorAddr = value
		case "version":
			node.Version = value
		}
	}
	if node.NodeID == "" {
		return nil
	}
	if node.ClientAddr == "" && entry.AddrV4 != nil {
		node.ClientAddr = fmt.Sprintf("%s:%d", entry.AddrV4, entry.Port)
	}
	return node
}
