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

// DeferredStore holds messages whose dependencies are not yet
// satisfied (spec.md §4.H stage 3). Message readiness is tracked by
// id; resource readiness by a monotonically increasing version floor
// per key.
type DeferredStore struct {
	mu sync.Mutex

	pending        map[string]Message
	doneMessages   map[string]struct{}
	resourceFloors map[string]uint64
}

// NewDeferredStore returns an empty store.
func NewDeferredStore() *DeferredStore {
	return &DeferredStore{
		pending:        make(map[string]Message),
		doneMessages:   make(map[string]struct{}),
		resourceFloors: make(map[string]uint64),
	}
}

// Defer records msg as blocked.
func (d *DeferredStore) Defer(msg Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[msg.ID] = msg
}

// NotifyMessageDone marks msgID as completed, unblocking anything that
// depends on it.
func (d *DeferredStore) NotifyMessageDone(msgID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doneMessages[msgID] = struct{}{}
}

// NotifyResource raises key's version floor to version if version is
// higher than what is already recorded.
func (d *DeferredStore) NotifyResource(key string, version uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.resourceFloors[key]; !ok || version > cur {
		d.resourceFloors[key] = version
	}
}

// satisfied reports whether every dependency in deps is currently met.
// Caller must hold d.mu.
func (d *DeferredStore) satisfied(deps []DependencyRef) bool {
	for _, dep := range deps {
		switch dep.Kind {
		case DependsOnMessage:
			if _, ok := d.doneMessages[dep.MessageID]; !ok {
				return false
			}
		case DependsOnResource:
			if d.resourceFloors[dep.ResourceKey] < dep.MinVersion {
				return false
			}
		}
	}
	return true
}

// PopReady removes and returns up to limit pending messages whose
// entire dependency set is now satisfied (limit <= 0 means no limit).
// Unready messages stay in the store untouched ("others rotate back",
// spec.md §4.H).
func (d *DeferredStore) PopReady(limit int) []Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ready []Message
	for id, msg := range d.pending {
		if limit > 0 && len(ready) >= limit {
			break
		}
		if d.satisfied(msg.DependsOn) {
			ready = append(ready, msg)
			delete(d.pending, id)
		}
	}
	return ready
}

// Len reports how many messages are currently deferred.
func (d *DeferredStore) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
