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

// Package nav implements CLI-style path resolution over a snapshot
// (spec.md §4.L): absolute FQN match, relative navigation against a
// current context ('.', '..', bare names, slash chains), fuzzy
// name-index lookup, the special root tokens, and completion. No
// teacher analogue exists for this — the teacher's tools address nodes
// by flat FQN only — so this package is built fresh in the surrounding
// codebase's idiom: a small struct holding its dependencies and pure
// methods over them, tested table-driven.
package nav

import (
	"sort"
	"strings"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
)

// Snapshotter is the narrow capability a Resolver needs: the currently
// published graph.
type Snapshotter interface {
	Snapshot() *graphmodel.Graph
}

// Resolver resolves navigation targets against whatever graph
// Snapshotter currently publishes.
type Resolver struct {
	snap     Snapshotter
	interner *atom.Interner
}

// New returns a Resolver reading through interner.
func New(snap Snapshotter, interner *atom.Interner) *Resolver {
	return &Resolver{snap: snap, interner: interner}
}

// Outcome is the result of Resolve: exactly one of Resolved (a single
// unambiguous hit), Ambiguous (more than one candidate, caller must
// disambiguate) or neither (not found).
type Outcome struct {
	Resolved  string
	Ambiguous []string
}

// Found reports whether Resolve produced any candidate at all.
func (o Outcome) Found() bool { return o.Resolved != "" || len(o.Ambiguous) > 0 }

// Resolve implements spec.md §4.L's four-stage resolution order:
// absolute, relative to currentContext, fuzzy name-index, then the
// special root tokens.
func (r *Resolver) Resolve(target, currentContext string) Outcome {
	g := r.snap.Snapshot()

	if target == "" {
		return Outcome{}
	}
	if n, ok := g.ResolveFQN(r.interner, target); ok {
		return Outcome{Resolved: r.interner.Render(n.ID)}
	}
	if out, ok := r.resolveRelative(g, target, currentContext); ok {
		return out
	}
	if out := r.resolveFuzzy(g, target); out.Found() {
		return out
	}
	if target == "/" || target == "root" {
		return r.roots(g)
	}
	return Outcome{}
}

// roots returns every node with no parent (project/module roots).
func (r *Resolver) roots(g *graphmodel.Graph) Outcome {
	var fqns []string
	for _, id := range g.AllNodeIDs() {
		if r.interner.Parent(id) == 0 {
			fqns = append(fqns, r.interner.Render(id))
		}
	}
	return multi(fqns)
}

// resolveRelative handles '.', '..', a bare child name, and
// slash-separated chains, all anchored at currentContext (or the graph
// root when currentContext is empty).
func (r *Resolver) resolveRelative(g *graphmodel.Graph, target, currentContext string) (Outcome, bool) {
	if target != "." && target != ".." && !strings.Contains(target, "/") {
		// A bare name: try it as a direct child of currentContext. A
		// dotted/hashed chain without a base context isn't "relative"
		// in any useful sense, so only single-segment bare names land
		// here; anything else falls through to fuzzy.
		if strings.ContainsAny(target, ".#") {
			return Outcome{}, false
		}
	}

	base, ok := anchorNode(g, r.interner, currentContext)
	if !ok {
		return Outcome{}, false
	}

	if target == "." {
		return Outcome{Resolved: r.interner.Render(base.ID)}, true
	}
	if target == ".." {
		parent := r.interner.Parent(base.ID)
		if parent == 0 {
			return Outcome{}, false
		}
		return Outcome{Resolved: r.interner.Render(parent)}, true
	}

	cur := base
	for _, seg := range strings.Split(target, "/") {
		if seg == "" {
			continue
		}
		next, ok := childNamed(g, r.interner, cur.ID, seg)
		if !ok {
			return Outcome{}, false
		}
		cur = next
	}
	return Outcome{Resolved: r.interner.Render(cur.ID)}, true
}

// resolveFuzzy matches target against name_index on its last segment.
func (r *Resolver) resolveFuzzy(g *graphmodel.Graph, target string) Outcome {
	segs := strings.FieldsFunc(target, func(ch rune) bool { return ch == '.' || ch == '#' || ch == '/' })
	if len(segs) == 0 {
		return Outcome{}
	}
	last := segs[len(segs)-1]
	ids := g.NodesByName(r.interner.InternAtom(last))
	fqns := make([]string, 0, len(ids))
	for _, id := range ids {
		fqns = append(fqns, r.interner.Render(id))
	}
	return multi(fqns)
}

// Complete returns up to limit rendered FQNs whose last segment starts
// with prefix (limit <= 0 means unbounded), sorted for determinism.
func (r *Resolver) Complete(prefix string, limit int) []string {
	g := r.snap.Snapshot()
	var out []string
	for _, id := range g.AllNodeIDs() {
		name := r.interner.ResolveAtom(r.interner.Name(id))
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, r.interner.Render(id))
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func anchorNode(g *graphmodel.Graph, in *atom.Interner, currentContext string) (*graphmodel.Node, bool) {
	if currentContext == "" {
		for _, id := range g.AllNodeIDs() {
			if in.Parent(id) == 0 {
				return g.GetNode(id)
			}
		}
		return nil, false
	}
	return g.ResolveFQN(in, currentContext)
}

func childNamed(g *graphmodel.Graph, in *atom.Interner, parent atom.FqnId, name string) (*graphmodel.Node, bool) {
	for _, e := range g.Neighbors(parent, graphmodel.Outgoing, []graphmodel.EdgeKind{graphmodel.EdgeContains}) {
		n, ok := g.GetNode(e.To)
		if ok && in.ResolveAtom(n.Name) == name {
			return n, true
		}
	}
	return nil, false
}

func multi(fqns []string) Outcome {
	sort.Strings(fqns)
	switch len(fqns) {
	case 0:
		return Outcome{}
	case 1:
		return Outcome{Resolved: fqns[0]}
	default:
		return Outcome{Ambiguous: fqns}
	}
}
