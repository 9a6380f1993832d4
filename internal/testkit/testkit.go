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

// Package testkit provides fixture-building helpers for tests across
// naviscope's packages, reducing the boilerplate of hand-wiring an
// atom.Interner and a graphmodel.Graph for every table-driven test.
// Grounded on the teacher's internal/testing/helpers.go, which did the
// same job for its CozoDB backend (SetupTestBackend + InsertTestX
// helpers); here the backend is an in-memory graph instead of a
// database, so "insert a row" becomes "intern and add a node/edge".
package testkit

import (
	"testing"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
)

// Fixture bundles a fresh interner and graph, plus convenience methods
// for seeding both in one call.
type Fixture struct {
	T    *testing.T
	In   *atom.Interner
	G    *graphmodel.Graph
	Lang atom.Atom
}

// New returns a Fixture with an empty graph and every node minted
// under lang (e.g. "go", "java"). Every method except Snapshot calls
// t.Helper().
func New(t *testing.T, lang string) *Fixture {
	t.Helper()
	in := atom.New()
	return &Fixture{T: t, In: in, G: graphmodel.New(), Lang: in.InternAtom(lang)}
}

// Node interns (parent, name, kind) and adds the corresponding node to
// the graph (with a Contains edge from parent when parent != 0),
// returning its FqnId. Use 0 for parent to create a root node.
func (f *Fixture) Node(parent atom.FqnId, name string, kind atom.NodeKind) atom.FqnId {
	f.T.Helper()
	id := f.In.InternNode(parent, f.In.InternAtom(name), kind)
	f.G.AddNode(graphmodel.Node{ID: id, Name: f.In.Name(id), Kind: kind, Lang: f.Lang})
	if parent != 0 {
		f.G.AddEdge(graphmodel.Edge{From: parent, To: id, Kind: graphmodel.EdgeContains})
	}
	return id
}

// NodeAt is Node plus a source Location, for fixtures that exercise
// presentation or navigation (path/range hydration).
func (f *Fixture) NodeAt(parent atom.FqnId, name string, kind atom.NodeKind, path string, startLine, endLine int) atom.FqnId {
	f.T.Helper()
	id := f.Node(parent, name, kind)
	n, ok := f.G.GetNode(id)
	if !ok {
		f.T.Fatalf("testkit: node %d vanished immediately after AddNode", id)
	}
	n.Location = &graphmodel.Location{
		Path: f.In.InternAtom(path),
		Range: graphmodel.Range{
			Start: graphmodel.Position{Line: startLine},
			End:   graphmodel.Position{Line: endLine},
		},
	}
	f.G.AddNode(*n)
	return id
}

// Edge adds a non-Contains edge (Calls, InheritsFrom, Implements, ...)
// between two already-created nodes.
func (f *Fixture) Edge(from, to atom.FqnId, kind graphmodel.EdgeKind) {
	f.T.Helper()
	f.G.AddEdge(graphmodel.Edge{From: from, To: to, Kind: kind})
}

// File records path's content hash and mtime in file_index, for
// fixtures exercising incremental-scan/refresh logic.
func (f *Fixture) File(path string, contentHash uint64, lastModified int64) {
	f.T.Helper()
	f.G.UpdateFile(f.In.InternAtom(path), graphmodel.FileMeta{ContentHash: contentHash, LastModified: lastModified})
}

// FQN renders id's fully-qualified name through the fixture's interner.
func (f *Fixture) FQN(id atom.FqnId) string {
	f.T.Helper()
	return f.In.Render(id)
}

// Snapshot returns f.G, satisfying the Snapshotter interface several
// packages (query, nav, semantic) define for their read dependency.
func (f *Fixture) Snapshot() *graphmodel.Graph { return f.G }
