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
Package config provides configuration management for Flock nodes.

Configuration is loaded in precedence order:

 1. Built-in defaults (DefaultConfig)
 2. YAML config file (LoadFromFile)
 3. Environment variables (LoadFromEnv)

A Manager wraps the active configuration, supports Reload with change
callbacks, and is available process-wide through Global().
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by LoadFromEnv.
const (
	EnvNodeID        = "FLOCK_NODE_ID"
	EnvHost          = "FLOCK_HOST"
	EnvClientPort    = "FLOCK_CLIENT_PORT"
	EnvConsensusPort = "FLOCK_CONSENSUS_PORT"
	EnvMonitorPort   = "FLOCK_MONITOR_PORT"
	EnvPeers         = "FLOCK_PEERS"
	EnvPersistDir    = "FLOCK_PERSIST_DIR"
	EnvStorageDir    = "FLOCK_STORAGE_DIR"
	EnvLogLevel      = "FLOCK_LOG_LEVEL"
	EnvLogJSON       = "FLOCK_LOG_JSON"
	EnvCompression   = "FLOCK_COMPRESSION"
	EnvRunTraining   = "FLOCK_RUN_TRAINING"
)

// Config holds the full node configuration.
type Config struct {
	NodeID        string   `yaml:"node_id"`
	Host          string   `yaml:"host"`
	ClientPort    int      `yaml:"client_port"`
	ConsensusPort int      `yaml:"consensus_port"`
	MonitorPort   int      `yaml:"monitor_port"`
	Peers         []string `yaml:"peers"` // host:consensusPort

	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"`
	ElectionTimeoutMin time.Duration `yaml:"election_timeout_min"`
	ElectionTimeoutMax time.Duration `yaml:"election_timeout_max"`

	PersistDir  string `yaml:"persist_dir"` // empty means non-durable
	StorageDir  string `yaml:"storage_dir"`
	Compression string `yaml:"compression"` // none, gzip, snappy, lz4, zstd

	RunTraining      bool `yaml:"run_training"`
	DiscoveryEnabled bool `yaml:"discovery_enabled"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// ConfigFile records where the config was loaded from, if anywhere.
	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		NodeID:             "",
		Host:               "0.0.0.0",
		ClientPort:         9000,
		ConsensusPort:      10000,
		MonitorPort:        8000,
		Peers:              []string{},
		HeartbeatInterval:  1 * time.Second,
		ElectionTimeoutMin: 3 * time.Second,
		ElectionTimeoutMax: 5 * time.Second,
		PersistDir:         "",
		StorageDir:         "flock_storage",
		Compression:        "none",
		RunTraining:        true,
		DiscoveryEnabled:   false,
		LogLevel:           "info",
		LogJSON:            false,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	ports := map[string]int{
		"client_port":    c.ClientPort,
		"consensus_port": c.ConsensusPort,
		"monitor_port":   c.MonitorPort,
	}
	seen := make(map[int]string)
	for name, p := range ports {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid %s: %d", name, p)
		}
		if other, ok := seen[p]; ok {
			return fmt.Errorf("port conflict: %s and %s both use %d", other, name, p)
		}
		seen[p] = name
	}

	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if c.ElectionTimeoutMin < 3*c.HeartbeatInterval {
		return fmt.Errorf("election_timeout_min must be at least 3x heartbeat_interval")
	}
	if c.ElectionTimeoutMax < c.ElectionTimeoutMin {
		return fmt.Errorf("election_timeout_max must be >= election_timeout_min")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}

	switch strings.ToLower(c.Compression) {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("invalid compression: %s", c.Compression)
	}

	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir must not be empty")
	}

	for _, p := range c.Peers {
		if _, _, err := splitHostPort(p); err != nil {
			return fmt.Errorf("invalid peer %q: %w", p, err)
		}
	}

	return nil
}

// ClientAddr returns the host:port the client front-end listens on.
func (c *Config) ClientAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.ClientPort)
}

// ConsensusAddr returns the host:port the consensus RPC server listens on.
func (c *Config) ConsensusAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.ConsensusPort)
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf(
		"NodeID: %s, Host: %s, ClientPort: %d, ConsensusPort: %d, MonitorPort: %d, "+
			"Peers: %v, PersistDir: %s, StorageDir: %s, LogLevel: %s",
		c.NodeID, c.Host, c.ClientPort, c.ConsensusPort, c.MonitorPort,
		c.Peers, c.PersistDir, c.StorageDir, c.LogLevel)
}

// ToYAML serializes the configuration to YAML.
func (c *Config) ToYAML() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

// SaveToFile writes the configuration as YAML, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(c.ToYAML()), 0644)
}

func splitHostPort(s string) (string, int, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("missing port")
	}
	host := s[:idx]
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("bad port %q", s[idx+1:])
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host")
	}
	return host, port, nil
}

// Manager wraps the active configuration with reload support.
type Manager struct {
	mu        sync.RWMutex
	cfg       *Config
	onReload  []func(*Config)
	sourceENV bool
}

// NewManager creates a Manager holding the default configuration.
func NewManager() *Manager {
	return &Manager{cfg: DefaultConfig()}
}

// Get returns the active configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// LoadFromFile loads a YAML config file over the current configuration.
func (m *Manager) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	cfg.ConfigFile = path
	m.cfg = &cfg
	return nil
}

// LoadFromEnv applies environment variable overrides.
func (m *Manager) LoadFromEnv() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg

	if v := os.Getenv(EnvNodeID); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(EnvClientPort); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ClientPort = p
		}
	}
	if v := os.Getenv(EnvConsensusPort); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ConsensusPort = p
		}
	}
	if v := os.Getenv(EnvMonitorPort); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.MonitorPort = p
		}
	}
	if v := os.Getenv(EnvPeers); v != "" {
		cfg.Peers = strings.Split(v, ",")
	}
	if v := os.Getenv(EnvPersistDir); v != "" {
		cfg.PersistDir = v
	}
	if v := os.Getenv(EnvStorageDir); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		cfg.LogJSON = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvCompression); v != "" {
		cfg.Compression = v
	}
	if v := os.Getenv(EnvRunTraining); v != "" {
		cfg.RunTraining = v == "true" || v == "1"
	}

	m.cfg = &cfg
	m.sourceENV = true
}

// OnReload registers a callback invoked after each successful Reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// Reload re-reads the config file (if any) and re-applies env overrides.
func (m *Manager) Reload() error {
	m.mu.RLock()
	path := m.cfg.ConfigFile
	fromEnv := m.sourceENV
	m.mu.RUnlock()

	if path != "" {
		if err := m.LoadFromFile(path); err != nil {
			return err
		}
	}
	if fromEnv {
		m.LoadFromEnv()
	}

	m.mu.RLock()
	cfg := m.cfg
	callbacks := make([]func(*Config), len(m.onReload))
	copy(callbacks, m.onReload)
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

var (
	globalOnce sync.Once
	globalMgr  *Manager
)

// Global returns the process-wide configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalMgr = NewManager()
	})
	return globalMgr
}
