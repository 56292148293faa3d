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
	"testing"
)

func TestApplyInLogOrder(t *testing.T) {
	app := &recordingApplicator{}
	n := quietNode()
	n.cfg.Applicator = app
	n.log = []LogEntry{entry(1, `"a"`), entry(1, `"b"`), entry(1, `"c"`)}
	n.commitIndex = 2

	n.drainCommitted()

	got := app.snapshot()
	want := []string{`"a"`, `"b"`, `"c"`}
	if len(got) != len(want) {
		t.Fatalf("Applied %d commands, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Apply order mismatch at %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if n.lastApplied != 2 {
		t.Errorf("lastApplied = %d, want 2", n.lastApplied)
	}
}

func TestApplyExactlyOnce(t *testing.T) {
	app := &recordingApplicator{}
	n := quietNode()
	n.cfg.Applicator = app
	n.log = []LogEntry{entry(1, `"a"`)}
	n.commitIndex = 0

	n.drainCommitted()
	n.drainCommitted() // second drain with no new commits is a no-op

	if got := len(app.snapshot()); got != 1 {
		t.Errorf("Applied %d times, want exactly 1", got)
	}
}

func TestApplyAdvancesInSteps(t *testing.T) {
	app := &recordingApplicator{}
	n := quietNode()
	n.cfg.Applicator = app
	n.log = []LogEntry{entry(1, `"a"`), entry(1, `"b"`)}

	n.commitIndex = 0
	n.drainCommitted()
	if n.lastApplied != 0 || len(app.snapshot()) != 1 {
		t.Fatalf("After first commit: lastApplied=%d applied=%d", n.lastApplied, len(app.snapshot()))
	}

	n.commitIndex = 1
	n.drainCommitted()
	if n.lastApplied != 1 || len(app.snapshot()) != 2 {
		t.Errorf("After second commit: lastApplied=%d applied=%d", n.lastApplied, len(app.snapshot()))
	}
}

func TestApplyWithoutApplicatorFastForwards(t *testing.T) {
	n := quietNode()
	n.log = []LogEntry{entry(1, `"a"`), entry(1, `"b"`)}
	n.commitIndex = 1

	n.drainCommitted()

	if n.lastApplied != 1 {
		t.Errorf("lastApplied = %d, want 1 (fast-forward without applicator)", n.lastApplied)
	}
}

func TestApplySkipsNoopEntries(t *testing.T) {
	app := &recordingApplicator{}
	n := quietNode()
	n.cfg.Applicator = app
	n.log = []LogEntry{{Term: 2}, entry(2, `"real"`)}
	n.commitIndex = 1

	n.drainCommitted()

	got := app.snapshot()
	if len(got) != 1 || got[0] != `"real"` {
		t.Errorf("Expected only the real command applied, got %v", got)
	}
	if n.lastApplied != 1 {
		t.Errorf("lastApplied = %d, want 1", n.lastApplied)
	}
}

func TestApplicatorErrorDoesNotStallCursor(t *testing.T) {
	app := &recordingApplicator{failAll: true}
	n := quietNode()
	n.cfg.Applicator = app
	n.log = []LogEntry{entry(1, `"a"`), entry(1, `"b"`)}
	n.commitIndex = 1

	n.drainCommitted()

	// Errors are logged and swallowed; the cursor still advances and
	// every entry is still handed over once.
	if n.lastApplied != 1 {
		t.Errorf("lastApplied = %d, want 1", n.lastApplied)
	}
	if got := len(app.snapshot()); got != 2 {
		t.Errorf("Applied %d commands, want 2", got)
	}
}
