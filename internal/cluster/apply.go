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
	"encoding/json"
	"strconv"
)

// notifyApply wakes the apply loop. Callers hold the node mutex; the
// send never blocks.
func (n *Node) notifyApply() {
	select {
	case n.applyCh <- struct{}{}:
	default:
	}
}

// applyLoop is the single owner of lastApplied. It drains the window
// (lastApplied, commitIndex] in index order, invoking the applicator
// outside the consensus lock once per entry. Applicator errors are
// logged and swallowed; the log is authoritative and the index still
// counts as applied.
func (n *Node) applyLoop() {
	defer n.wg.Done()

	for {
		select {
		case <-n.stopCh:
			return
		case <-n.applyCh:
		}
		n.drainCommitted()
	}
}

func (n *Node) drainCommitted() {
	for {
		n.mu.Lock()
		if n.lastApplied >= n.commitIndex {
			n.mu.Unlock()
			return
		}
		n.lastApplied++
		idx := n.lastApplied
		var command json.RawMessage
		if idx < int64(len(n.log)) {
			command = n.log[idx].Command
		}
		applicator := n.cfg.Applicator
		n.mu.Unlock()

		// No applicator: fast-forward with no side effects. A no-op entry
		// has no command; once it has been sent to a peer or reloaded from
		// the state file, that missing command reads back as JSON null.
		if applicator == nil || command == nil || string(command) == "null" {
			continue
		}

		if err := applicator.Apply(command); err != nil {
			n.logger.Warn("applicator error",
				"index", strconv.FormatInt(idx, 10),
				"error", err.Error())
		}
	}
}
