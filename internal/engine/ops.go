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

package engine

import (
	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

// applyOp mutates g according to op, interning any flat FQN strings it
// carries via the NamingConvention registered for op.Lang. Must be
// called with kindMu held (it both reads and extends flatKind).
func (e *Engine) applyOp(g *graphmodel.Graph, op plugin.GraphOp) {
	switch op.Kind {
	case plugin.OpRemovePath:
		g.RemovePath(e.interner.InternAtom(op.Path))

	case plugin.OpUpdateFile:
		g.UpdateFile(e.interner.InternAtom(op.Path), op.FileMeta)

	case plugin.OpAddNode:
		e.applyAddNode(g, op)

	case plugin.OpAddEdge:
		e.applyAddEdge(g, op)

	case plugin.OpUpdateIdentifiers:
		ids := make([]atom.Atom, 0, len(op.Identifiers))
		for _, s := range op.Identifiers {
			ids = append(ids, e.interner.InternAtom(s))
		}
		g.UpdateIdentifiers(e.interner.InternAtom(op.Path), ids)

	case plugin.OpUpdateAssetRoutes:
		g.UpdateAssetRoutes(op.AssetRoutes)
	}
}

func (e *Engine) applyAddNode(g *graphmodel.Graph, op plugin.GraphOp) {
	n := op.AddNode
	nc := e.registry.NamingConventionForLang(op.Lang)
	id := nc.ParseFqn(e.interner, n.FlatFQN, n.Kind)

	// An edge that named this FQN before this AddNode ran (a forward
	// reference, or the edge an external stub is materialized for) was
	// minted under the KindUnknown placeholder id kindFor would have
	// returned at the time. Every NamingConvention in this codebase
	// derives a segment's parent id independent of leafKind (only the
	// final segment's kind varies), so recomputing that same flat FQN
	// under KindUnknown reconstructs the exact placeholder id, and any
	// edges still sitting on it get moved onto the real id below.
	if n.Kind != atom.KindUnknown {
		placeholder := nc.ParseFqn(e.interner, n.FlatFQN, atom.KindUnknown)
		g.RetargetEdges(placeholder, id)
	}
	e.flatKind[n.FlatFQN] = n.Kind

	var loc *graphmodel.Location
	if n.Path != "" {
		loc = &graphmodel.Location{
			Path:           e.interner.InternAtom(n.Path),
			Range:          n.Range,
			SelectionRange: n.Selection,
		}
	}

	g.AddNode(graphmodel.Node{
		ID:        id,
		Name:      e.interner.InternAtom(n.Name),
		Kind:      n.Kind,
		Lang:      e.interner.InternAtom(n.Lang),
		Source:    n.Source,
		Status:    n.Status,
		Location:  loc,
		Modifiers: n.Modifiers,
		Metadata:  n.Metadata,
	})
}

func (e *Engine) applyAddEdge(g *graphmodel.Graph, op plugin.GraphOp) {
	nc := e.registry.NamingConventionForLang(op.Lang)
	from := nc.ParseFqn(e.interner, op.EdgeFromFlatFQN, e.kindFor(op.EdgeFromFlatFQN))
	to := nc.ParseFqn(e.interner, op.EdgeToFlatFQN, e.kindFor(op.EdgeToFlatFQN))
	g.AddEdge(graphmodel.Edge{From: from, To: to, Kind: op.EdgeKind, Range: op.EdgeRange})
}

// kindFor returns the last-seen NodeKind for a flat FQN string, or
// atom.KindUnknown when the string has never been the target of an
// AddNode in this process (the common "unresolved external" case,
// later upgraded by the stub planner/asset subsystem).
func (e *Engine) kindFor(flat string) atom.NodeKind {
	if k, ok := e.flatKind[flat]; ok {
		return k
	}
	return atom.KindUnknown
}
