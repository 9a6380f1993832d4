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

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

type fixedSnapshotter struct{ g *graphmodel.Graph }

func (f fixedSnapshotter) Snapshot() *graphmodel.Graph { return f.g }

// buildFixture interns pkg.Widget (class) containing pkg.Widget#Render
// (method), plus a standalone pkg.Gadget (class) that Widget#Render
// calls, and returns the service plus the three minted ids.
func buildFixture(t *testing.T) (*Service, *atom.Interner, atom.FqnId, atom.FqnId, atom.FqnId) {
	t.Helper()
	in := atom.New()
	g := graphmodel.New()

	pkgID := in.InternNode(0, in.InternAtom("pkg"), atom.KindPackage)
	widgetID := in.InternNode(pkgID, in.InternAtom("Widget"), atom.KindClass)
	renderID := in.InternNode(widgetID, in.InternAtom("Render"), atom.KindMethod)
	gadgetID := in.InternNode(pkgID, in.InternAtom("Gadget"), atom.KindClass)

	lang := in.InternAtom("go")
	g.AddNode(graphmodel.Node{ID: pkgID, Name: in.InternAtom("pkg"), Kind: atom.KindPackage, Lang: lang})
	g.AddNode(graphmodel.Node{ID: widgetID, Name: in.InternAtom("Widget"), Kind: atom.KindClass, Lang: lang, Modifiers: []string{"public"}})
	g.AddNode(graphmodel.Node{ID: renderID, Name: in.InternAtom("Render"), Kind: atom.KindMethod, Lang: lang, Modifiers: []string{"public"}})
	g.AddNode(graphmodel.Node{ID: gadgetID, Name: in.InternAtom("Gadget"), Kind: atom.KindClass, Lang: lang})

	g.AddEdge(graphmodel.Edge{From: pkgID, To: widgetID, Kind: graphmodel.EdgeContains})
	g.AddEdge(graphmodel.Edge{From: pkgID, To: gadgetID, Kind: graphmodel.EdgeContains})
	g.AddEdge(graphmodel.Edge{From: widgetID, To: renderID, Kind: graphmodel.EdgeContains})
	g.AddEdge(graphmodel.Edge{From: renderID, To: gadgetID, Kind: graphmodel.EdgeCalls})

	reg := plugin.NewRegistry()
	svc := New(fixedSnapshotter{g: g}, in, reg)
	return svc, in, pkgID, widgetID, renderID
}

func TestLsRootsWhenFqnEmpty(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	out, err := svc.Ls("", nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "pkg", out[0].Name)
}

func TestLsListsChildrenOrderedByKindThenName(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	out, err := svc.Ls("pkg", nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Gadget", out[0].Name)
	assert.Equal(t, "Widget", out[1].Name)
}

func TestLsFiltersByKind(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	out, err := svc.Ls("pkg.Widget", []atom.NodeKind{atom.KindMethod}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Render", out[0].Name)
}

func TestLsFiltersByModifiers(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	out, err := svc.Ls("pkg", nil, []string{"public"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Widget", out[0].Name)
}

func TestLsUnknownFqnReturnsNotFound(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	_, err := svc.Ls("pkg.Missing", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindSubstringMatch(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	out, err := svc.Find("widg", nil, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Widget", out[0].Name)
}

func TestFindRegexMatch(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	out, err := svc.Find("^G.*t$", nil, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Gadget", out[0].Name)
}

func TestFindRespectsLimit(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	out, err := svc.Find("e", nil, 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestCatReturnsHydratedNode(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	d, err := svc.Cat("pkg.Widget#Render")
	require.NoError(t, err)
	assert.Equal(t, "Render", d.Name)
	assert.Equal(t, atom.KindMethod, d.Kind)
}

func TestCatMissingFqnReturnsNotFound(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	_, err := svc.Cat("pkg.Nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDepsOutgoingFiltersByEdgeKind(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	deps, err := svc.Deps("pkg.Widget#Render", false, []graphmodel.EdgeKind{graphmodel.EdgeCalls})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "Gadget", deps[0].Node.Name)
	assert.Equal(t, graphmodel.EdgeCalls, deps[0].Kind)
}

func TestDepsIncomingDirection(t *testing.T) {
	svc, _, _, _, _ := buildFixture(t)
	deps, err := svc.Deps("pkg.Gadget", true, []graphmodel.EdgeKind{graphmodel.EdgeCalls})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "Render", deps[0].Node.Name)
}
