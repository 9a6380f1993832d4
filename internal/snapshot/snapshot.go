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

// Package snapshot implements the single-writer/many-reader MVCC cell
// sitting between the ingest runtime's CommitSink and every read-only
// consumer (query, navigation, semantic facade) — spec.md §4.J.
//
// Grounded on the copy-on-write Graph.Update found in the pack's
// cue-lang/cue gopls cache/metadata package (other_examples/): that
// code republishes an updated *Graph by building a fresh value and
// swapping a reference. Here the swap is a single atomic.Pointer store
// instead of a map clone, since graphmodel.Graph is already immutable
// once handed to the cell — readers never need a defensive copy.
package snapshot

import (
	"sync/atomic"

	"github.com/kraklabs/naviscope/internal/graphmodel"
)

// Cell holds the currently published graph. The zero value has no
// graph published; Load returns nil until the first Publish.
type Cell struct {
	ptr atomic.Pointer[graphmodel.Graph]
}

// New returns an unpublished Cell.
func New() *Cell {
	return &Cell{}
}

// Publish atomically replaces the published graph. Safe to call
// concurrently with any number of Load calls; concurrent Publish calls
// race on "last writer wins", matching spec's single-writer discipline
// (callers are expected to serialize writers themselves, e.g. via the
// ingest runtime's CommitSink).
func (c *Cell) Publish(g *graphmodel.Graph) {
	c.ptr.Store(g)
}

// Load returns the currently published graph, or nil if none has been
// published yet. The returned graph must be treated as read-only.
func (c *Cell) Load() *graphmodel.Graph {
	return c.ptr.Load()
}
