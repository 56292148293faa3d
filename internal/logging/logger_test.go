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

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level.String() = %v, want %v", got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"info", INFO},
		{"WARN", WARN},
		{"warn", WARN},
		{"WARNING", WARN},
		{"ERROR", ERROR},
		{"error", ERROR},
		{"unknown", INFO}, // default
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(false)

	logger := NewLogger("cluster")
	logger.Info("became leader", "term", "3")

	output := buf.String()
	if !strings.Contains(output, "[INFO ]") {
		t.Errorf("Expected [INFO ] in output, got: %s", output)
	}
	if !strings.Contains(output, "[cluster]") {
		t.Errorf("Expected [cluster] in output, got: %s", output)
	}
	if !strings.Contains(output, "became leader") {
		t.Errorf("Expected 'became leader' in output, got: %s", output)
	}
	if !strings.Contains(output, "term=3") {
		t.Errorf("Expected 'term=3' in output, got: %s", output)
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(true)

	logger := NewLogger("server")
	logger.Info("request dispatched", "type", "TRAIN")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got: %s", entry.Level)
	}
	if entry.Component != "server" {
		t.Errorf("Expected component 'server', got: %s", entry.Component)
	}
	if entry.Message != "request dispatched" {
		t.Errorf("Expected message 'request dispatched', got: %s", entry.Message)
	}
	if entry.Fields["type"] != "TRAIN" {
		t.Errorf("Expected field type=TRAIN, got: %v", entry.Fields)
	}

	// Reset to text mode
	SetJSONMode(false)
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(WARN)
	SetJSONMode(false)

	logger := NewLogger("cluster")
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("DEBUG message should be filtered out")
	}
	if strings.Contains(output, "info message") {
		t.Error("INFO message should be filtered out")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("WARN message should be present")
	}
	if !strings.Contains(output, "error message") {
		t.Error("ERROR message should be present")
	}

	// Reset level
	SetGlobalLevel(INFO)
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(false)

	logger := NewLogger("cluster")
	ctxLogger := logger.With("node", "n1", "peer", "127.0.0.1:10001")
	ctxLogger.Info("append entries sent")

	output := buf.String()
	if !strings.Contains(output, "node=n1") {
		t.Errorf("Expected 'node=n1' in output, got: %s", output)
	}
	if !strings.Contains(output, "peer=127.0.0.1:10001") {
		t.Errorf("Expected 'peer=127.0.0.1:10001' in output, got: %s", output)
	}
}

func TestContextLoggerChaining(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(false)

	base := NewLogger("cluster").With("node", "n2")
	derived := base.With("term", "7")
	derived.Info("vote granted", "candidate", "n1")

	output := buf.String()
	for _, want := range []string{"node=n2", "term=7", "candidate=n1"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}

	// The base logger must not inherit the derived context.
	buf.Reset()
	base.Info("heartbeat")
	if strings.Contains(buf.String(), "term=7") {
		t.Error("base logger leaked derived context")
	}
}
