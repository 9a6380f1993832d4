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

package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
)

type fixedSnapshotter struct{ g *graphmodel.Graph }

func (f fixedSnapshotter) Snapshot() *graphmodel.Graph { return f.g }

// buildFixture interns a single project root "proj" containing package
// "pkg", which contains classes "Widget" (with method "Render") and
// "Gadget"; a second, unrelated top-level class "Widget" exists under
// a second root "other" to exercise ambiguous fuzzy matches.
func buildFixture(t *testing.T) (*Resolver, *atom.Interner) {
	t.Helper()
	in := atom.New()
	g := graphmodel.New()

	proj := in.InternNode(0, in.InternAtom("proj"), atom.KindProject)
	pkg := in.InternNode(proj, in.InternAtom("pkg"), atom.KindPackage)
	widget := in.InternNode(pkg, in.InternAtom("Widget"), atom.KindClass)
	render := in.InternNode(widget, in.InternAtom("Render"), atom.KindMethod)
	gadget := in.InternNode(pkg, in.InternAtom("Gadget"), atom.KindClass)

	other := in.InternNode(0, in.InternAtom("other"), atom.KindProject)
	dupWidget := in.InternNode(other, in.InternAtom("Widget"), atom.KindClass)

	for _, id := range []atom.FqnId{proj, pkg, widget, render, gadget, other, dupWidget} {
		g.AddNode(graphmodel.Node{ID: id, Name: in.Name(id), Kind: in.Kind(id)})
	}
	g.AddEdge(graphmodel.Edge{From: proj, To: pkg, Kind: graphmodel.EdgeContains})
	g.AddEdge(graphmodel.Edge{From: pkg, To: widget, Kind: graphmodel.EdgeContains})
	g.AddEdge(graphmodel.Edge{From: pkg, To: gadget, Kind: graphmodel.EdgeContains})
	g.AddEdge(graphmodel.Edge{From: widget, To: render, Kind: graphmodel.EdgeContains})

	return New(fixedSnapshotter{g: g}, in), in
}

func TestResolveAbsoluteHit(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("proj.pkg.Widget#Render", "")
	require.True(t, out.Found())
	assert.Equal(t, "proj.pkg.Widget#Render", out.Resolved)
}

func TestResolveDotIsCurrentContext(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve(".", "proj.pkg.Widget")
	require.True(t, out.Found())
	assert.Equal(t, "proj.pkg.Widget", out.Resolved)
}

func TestResolveDotDotIsParent(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("..", "proj.pkg.Widget")
	require.True(t, out.Found())
	assert.Equal(t, "proj.pkg", out.Resolved)
}

func TestResolveDotDotAtRootNotFound(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("..", "proj")
	assert.False(t, out.Found())
}

func TestResolveBareChildName(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("Gadget", "proj.pkg")
	require.True(t, out.Found())
	assert.Equal(t, "proj.pkg.Gadget", out.Resolved)
}

func TestResolveSlashChain(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("pkg/Widget", "proj")
	require.True(t, out.Found())
	assert.Equal(t, "proj.pkg.Widget", out.Resolved)
}

func TestResolveFuzzyUniqueName(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("Gadget", "")
	require.True(t, out.Found())
	assert.Equal(t, "proj.pkg.Gadget", out.Resolved)
}

func TestResolveFuzzyAmbiguousName(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("Widget", "")
	require.True(t, out.Found())
	assert.Len(t, out.Ambiguous, 2)
	assert.Contains(t, out.Ambiguous, "proj.pkg.Widget")
	assert.Contains(t, out.Ambiguous, "other.Widget")
}

func TestResolveRootToken(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("root", "")
	require.True(t, out.Found())
	assert.Len(t, out.Ambiguous, 2)
}

func TestResolveUnknownReturnsNotFound(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Resolve("NoSuchThing", "")
	assert.False(t, out.Found())
}

func TestCompletePrefix(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Complete("Wid", 0)
	assert.ElementsMatch(t, []string{"proj.pkg.Widget", "other.Widget"}, out)
}

func TestCompleteRespectsLimit(t *testing.T) {
	r, _ := buildFixture(t)
	out := r.Complete("Wid", 1)
	assert.Len(t, out, 1)
}
