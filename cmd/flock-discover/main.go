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
flock-discover - Flock Node Discovery Tool

This tool discovers flock nodes on the local network using mDNS
(Bonjour/Avahi). It can be used to find an existing cluster to join or
to pick an entry point for flock-cli.

Usage:

	flock-discover                    # Discover nodes (5 second timeout)
	flock-discover --timeout 10       # Custom timeout in seconds
	flock-discover --json             # Output as JSON
	flock-discover --quiet            # Only output addresses (for scripting)
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"flock/internal/cluster"
	"flock/pkg/cli"
)

const version = "1.0.0"

func main() {
	timeout := flag.Int("timeout", 5, "Discovery timeout in seconds")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	quiet := flag.Bool("quiet", false, "Only output client addresses (for scripting)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flock-discover v%s\n", version)
		return
	}

	// Suppress mDNS library logging (it logs IPv6 errors that are not critical)
	log.SetOutput(io.Discard)

	if !*quiet && !*jsonOutput {
		cli.PrintInfo("Scanning for flock nodes on the network (timeout: %ds)...", *timeout)
		fmt.Println()
	}

	// Discovery only; never advertise from this tool.
	discovery := cluster.NewDiscoveryService(cluster.DiscoveryConfig{
		NodeID:  "discover-client",
		Enabled: false,
	})

	nodes, err := discovery.DiscoverNodes(time.Duration(*timeout) * time.Second)
	if err != nil && len(nodes) == 0 {
		if !*quiet {
			cli.PrintError("Discovery failed: %v", err)
		}
		os.Exit(1)
	}

	if len(nodes) == 0 {
		if !*quiet && !*jsonOutput {
			cli.PrintWarning("No flock nodes found on the network.")
			fmt.Println()
			fmt.Printf("%s\n", cli.Dimmed("  Common issues:"))
			fmt.Printf("    %s nodes are not running with --discovery\n", cli.Warning("•"))
			fmt.Printf("    %s mDNS is blocked by firewall (UDP port 5353)\n", cli.Warning("•"))
			fmt.Printf("    %s nodes are on a different network segment\n", cli.Warning("•"))
		}
		return
	}

	switch {
	case *jsonOutput:
		outputJSON(nodes)
	case *quiet:
		outputQuiet(nodes)
	default:
		outputHuman(nodes)
	}
}

func outputJSON(nodes []*cluster.DiscoveredNode) {
	type nodeOutput struct {
		NodeID        string `json:"node_id"`
		ClientAddr    string `json:"client_addr"`
		ConsensusAddr string `json:"consensus_addr,omitempty"`
		MonitorAddr   string `json:"monitor_addr,omitempty"`
		Version       string `json:"version,omitempty"`
	}

	output := make([]nodeOutput, len(nodes))
	for i, n := range nodes {
		output[i] = nodeOutput{
			NodeID:        n.NodeID,
			ClientAddr:    n.ClientAddr,
			ConsensusAddr: n.ConsensusAddr,
			MonitorAddr:   n.MonitorAddr,
			Version:       n.Version,
		}
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(data))
}

func outputQuiet(nodes []*cluster.DiscoveredNode) {
	addrs := make([]string, len(nodes))
	for i, n := range nodes {
		addrs[i] = n.ClientAddr
	}
	fmt.Println(strings.Join(addrs, ","))
}

func outputHuman(nodes []*cluster.DiscoveredNode) {
	cli.PrintSuccess("Found %d flock node(s)", len(nodes))
	fmt.Println()

	for i, n := range nodes {
		fmt.Printf("  %s %s\n", cli.Dimmed(fmt.Sprintf("[%d]", i+1)), cli.Highlight(n.NodeID))
		cli.KeyValue("Client Address", cli.Success(n.ClientAddr), 18)
		if n.ConsensusAddr != "" {
			cli.KeyValue("Consensus Address", n.ConsensusAddr, 18)
		}
		if n.MonitorAddr != "" {
			cli.KeyValue("Monitor Address", n.MonitorAddr, 18)
		}
		if n.Version != "" {
			cli.KeyValue("Version", n.Version, 18)
		}
		fmt.Println()
	}

	fmt.Printf("%s\n", cli.Dimmed("  Tip: use --json for machine-readable output"))
}
