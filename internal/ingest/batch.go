// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import "sync"

// batchWaiter tracks one client's registered set of message ids.
type batchWaiter struct {
	remaining map[string]struct{}
	done      chan struct{}
}

// BatchTracker lets a caller register a set of msg_ids and get back a
// one-shot completion signal that fires once every one of them has
// reached a terminal outcome (spec.md §4.H stage 6).
type BatchTracker struct {
	mu      sync.Mutex
	waiters []*batchWaiter
}

// NewBatchTracker returns an empty tracker.
func NewBatchTracker() *BatchTracker {
	return &BatchTracker{}
}

// Register returns a channel that closes once every id in ids has been
// reported via MarkDone. An empty ids set returns an already-closed
// channel.
func (t *BatchTracker) Register(ids []string) <-chan struct{} {
	w := &batchWaiter{remaining: make(map[string]struct{}, len(ids)), done: make(chan struct{})}
	for _, id := range ids {
		w.remaining[id] = struct{}{}
	}
	if len(w.remaining) == 0 {
		close(w.done)
		return w.done
	}
	t.mu.Lock()
	t.waiters = append(t.waiters, w)
	t.mu.Unlock()
	return w.done
}

// MarkDone records that id reached a terminal outcome (Done or
// FatalError — either way it is "accounted for"), firing any waiter
// whose set is now fully accounted for.
func (t *BatchTracker) MarkDone(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.waiters[:0]
	for _, w := range t.waiters {
		if _, tracked := w.remaining[id]; tracked {
			delete(w.remaining, id)
		}
		if len(w.remaining) == 0 {
			close(w.done)
			continue
		}
		remaining = append(remaining, w)
	}
	t.waiters = remaining
}
