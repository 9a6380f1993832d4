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

package graphmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/naviscope/internal/atom"
)

func newTestNode(in *atom.Interner, parent atom.FqnId, name string, kind atom.NodeKind, path atom.Atom, r Range) (atom.FqnId, Node) {
	nameAtom := in.InternAtom(name)
	id := in.InternNode(parent, nameAtom, kind)
	n := Node{
		ID:     id,
		Name:   nameAtom,
		Kind:   kind,
		Status: StatusResolved,
		Location: &Location{
			Path:  path,
			Range: r,
		},
	}
	return id, n
}

func TestAddNodeReplaceSemantics(t *testing.T) {
	in := atom.New()
	g := New()
	path := in.InternAtom("A.java")

	id, n := newTestNode(in, 0, "A", atom.KindClass, path, Range{Position{0, 0}, Position{10, 0}})
	g.AddNode(n)

	got, ok := g.GetNode(id)
	require.True(t, ok)
	assert.Equal(t, StatusResolved, got.Status)

	n2 := n
	n2.Status = StatusPartial
	g.AddNode(n2)

	got2, ok := g.GetNode(id)
	require.True(t, ok)
	assert.Equal(t, StatusPartial, got2.Status)
	assert.Equal(t, 1, g.NodeCount())
}

func TestAddEdgeIdempotent(t *testing.T) {
	in := atom.New()
	g := New()
	path := in.InternAtom("A.java")
	id1, n1 := newTestNode(in, 0, "A", atom.KindClass, path, Range{Position{0, 0}, Position{10, 0}})
	id2, n2 := newTestNode(in, 0, "B", atom.KindClass, path, Range{Position{11, 0}, Position{20, 0}})
	g.AddNode(n1)
	g.AddNode(n2)

	e := Edge{From: id1, To: id2, Kind: EdgeCalls}
	g.AddEdge(e)
	g.AddEdge(e)
	g.AddEdge(e)

	assert.Equal(t, 1, g.EdgeCount())
	neighbors := g.Neighbors(id1, Outgoing, nil)
	require.Len(t, neighbors, 1)
	assert.Equal(t, id2, neighbors[0].To)
}

func TestRemovePathRemovesNodesAndEdges(t *testing.T) {
	in := atom.New()
	g := New()
	pathA := in.InternAtom("A.java")
	pathB := in.InternAtom("B.java")

	idA, nA := newTestNode(in, 0, "A", atom.KindClass, pathA, Range{Position{0, 0}, Position{10, 0}})
	idB, nB := newTestNode(in, 0, "B", atom.KindClass, pathB, Range{Position{0, 0}, Position{10, 0}})
	g.AddNode(nA)
	g.AddNode(nB)
	g.AddEdge(Edge{From: idB, To: idA, Kind: EdgeReferences})

	g.UpdateFile(pathA, FileMeta{ContentHash: 1})
	g.UpdateIdentifiers(pathA, []atom.Atom{in.InternAtom("A")})

	g.RemovePath(pathA)

	_, ok := g.GetNode(idA)
	assert.False(t, ok)
	_, ok = g.FileMeta(pathA)
	assert.False(t, ok)
	assert.Empty(t, g.Neighbors(idB, Outgoing, nil))

	// B survives untouched.
	_, ok = g.GetNode(idB)
	assert.True(t, ok)
}

func TestFindContainerNodeAtNarrowest(t *testing.T) {
	in := atom.New()
	g := New()
	path := in.InternAtom("A.java")

	_, cls := newTestNode(in, 0, "A", atom.KindClass, path, Range{Position{0, 0}, Position{20, 0}})
	methodID, method := newTestNode(in, cls.ID, "m", atom.KindMethod, path, Range{Position{5, 0}, Position{8, 0}})
	g.AddNode(cls)
	g.AddNode(method)

	found, ok := g.FindContainerNodeAt(path, Position{Line: 6, Column: 0})
	require.True(t, ok)
	assert.Equal(t, methodID, found.ID)

	found2, ok := g.FindContainerNodeAt(path, Position{Line: 15, Column: 0})
	require.True(t, ok)
	assert.Equal(t, cls.ID, found2.ID)

	_, ok = g.FindContainerNodeAt(path, Position{Line: 100, Column: 0})
	assert.False(t, ok)
}

func TestFindContainerNodeAtTieBreakSpecificity(t *testing.T) {
	in := atom.New()
	g := New()
	path := in.InternAtom("A.java")

	// Two nodes with identical ranges: a class and, pathologically, a
	// field sharing the same span. The more specific kind should win.
	r := Range{Position{0, 0}, Position{1, 0}}
	_, cls := newTestNode(in, 0, "A", atom.KindClass, path, r)
	fieldID, field := newTestNode(in, cls.ID, "x", atom.KindField, path, r)
	g.AddNode(cls)
	g.AddNode(field)

	found, ok := g.FindContainerNodeAt(path, Position{Line: 0, Column: 0})
	require.True(t, ok)
	assert.Equal(t, fieldID, found.ID)
}

func TestCandidateFilesMesoScout(t *testing.T) {
	in := atom.New()
	g := New()
	pathB := in.InternAtom("B.java")
	pathC := in.InternAtom("C.java")
	tok := in.InternAtom("m")

	g.UpdateIdentifiers(pathB, []atom.Atom{tok})
	g.UpdateIdentifiers(pathC, []atom.Atom{tok})

	candidates := g.CandidateFiles(tok)
	assert.ElementsMatch(t, []atom.Atom{pathB, pathC}, candidates)

	// Re-indexing B without the token drops its reference_index entry.
	g.UpdateIdentifiers(pathB, nil)
	candidates = g.CandidateFiles(tok)
	assert.ElementsMatch(t, []atom.Atom{pathC}, candidates)
}

func TestAssetRouteLongestPrefix(t *testing.T) {
	g := New()
	g.UpdateAssetRoutes(map[string][]string{
		"com.lib": {"/assets/lib.jar"},
	})

	assets, ok := g.AssetRoute("com.lib.Foo")
	require.True(t, ok)
	assert.Equal(t, []string{"/assets/lib.jar"}, assets)

	_, ok = g.AssetRoute("org.other.Thing")
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	in := atom.New()
	g := New()
	path := in.InternAtom("A.java")
	id, n := newTestNode(in, 0, "A", atom.KindClass, path, Range{Position{0, 0}, Position{1, 0}})
	g.AddNode(n)

	clone := g.Clone()
	clone.RemoveNode(id)

	_, okOrig := g.GetNode(id)
	_, okClone := clone.GetNode(id)
	assert.True(t, okOrig)
	assert.False(t, okClone)
}
