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

// Package query implements the read-only surface over a loaded
// snapshot: Ls, Find, Cat and Deps (spec.md §4.K). Every node leaving
// this package has already been hydrated through the owning language's
// Presentation capability (or the core's DefaultPresentation) — callers
// never see a raw *graphmodel.Node or atom.FqnId.
//
// Grounded on the teacher's pkg/tools/{grep,code}.go read-only query
// surface, generalized from CozoScript-driven queries against a Datalog
// store into direct traversal of the in-memory snapshot.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

// Snapshotter is the narrow capability a Service needs from the engine:
// the currently published graph. Satisfied by *engine.Engine.
type Snapshotter interface {
	Snapshot() *graphmodel.Graph
}

// Service answers Ls/Find/Cat/Deps against whatever graph Snapshotter
// currently publishes. It holds no graph state of its own, so callers
// may keep one Service around across reindexes.
type Service struct {
	snap     Snapshotter
	interner *atom.Interner
	registry *plugin.Registry
}

// New returns a Service reading through interner (shared with the
// engine that built the snapshot) and hydrating nodes via registry's
// Presentation capabilities.
func New(snap Snapshotter, interner *atom.Interner, registry *plugin.Registry) *Service {
	return &Service{snap: snap, interner: interner, registry: registry}
}

// ErrNotFound is returned when an fqn does not resolve to any node in
// the current snapshot.
var ErrNotFound = fmt.Errorf("query: fqn not found")

// Dep pairs a hydrated neighbor with the edge kind that connects it to
// the pivot node.
type Dep struct {
	Node plugin.DisplayNode
	Kind graphmodel.EdgeKind
}

// hydrate renders node through its owning language's Presentation
// capability, falling back to DefaultPresentation when the language is
// unregistered or supplies none (spec.md §4.K).
func (s *Service) hydrate(n *graphmodel.Node) plugin.DisplayNode {
	lang := s.interner.ResolveAtom(n.Lang)
	return s.registry.PresentationForLang(lang).RenderDisplayNode(n, s.interner)
}

func kindAllowed(kind atom.NodeKind, kinds []atom.NodeKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func modifiersAllowed(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, m := range have {
		set[m] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func sortDisplayNodes(nodes []plugin.DisplayNode) {
	sort.Slice(nodes, func(i, j int) bool {
		pi, pj := atom.KindPriority(nodes[i].Kind), atom.KindPriority(nodes[j].Kind)
		if pi != pj {
			return pi < pj
		}
		return nodes[i].Name < nodes[j].Name
	})
}

// Ls lists the children of fqn via Contains edges; when fqn is empty it
// lists the project/module roots instead (nodes with no parent). kinds
// and modifiers both default to "no filter" when empty (spec.md §4.K).
func (s *Service) Ls(fqn string, kinds []atom.NodeKind, modifiers []string) ([]plugin.DisplayNode, error) {
	g := s.snap.Snapshot()

	var children []*graphmodel.Node
	if fqn == "" {
		for _, id := range g.AllNodeIDs() {
			if s.interner.Parent(id) != 0 {
				continue
			}
			if n, ok := g.GetNode(id); ok {
				children = append(children, n)
			}
		}
	} else {
		parent, ok := g.ResolveFQN(s.interner, fqn)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
		}
		for _, e := range g.Neighbors(parent.ID, graphmodel.Outgoing, []graphmodel.EdgeKind{graphmodel.EdgeContains}) {
			if n, ok := g.GetNode(e.To); ok {
				children = append(children, n)
			}
		}
	}

	out := make([]plugin.DisplayNode, 0, len(children))
	for _, n := range children {
		if !kindAllowed(n.Kind, kinds) {
			continue
		}
		if !modifiersAllowed(n.Modifiers, modifiers) {
			continue
		}
		out = append(out, s.hydrate(n))
	}
	sortDisplayNodes(out)
	return out, nil
}

// Find matches pattern against node names: a plain substring unless
// pattern compiles as a regular expression containing the usual regex
// metacharacters, in which case the regex match wins. Results are
// filtered by kinds and capped at limit (limit <= 0 means unbounded).
func (s *Service) Find(pattern string, kinds []atom.NodeKind, limit int) ([]plugin.DisplayNode, error) {
	g := s.snap.Snapshot()
	re, isRegex := compileIfRegex(pattern)

	var out []plugin.DisplayNode
	for _, id := range g.AllNodeIDs() {
		n, ok := g.GetNode(id)
		if !ok {
			continue
		}
		if !kindAllowed(n.Kind, kinds) {
			continue
		}
		name := s.interner.ResolveAtom(n.Name)
		matched := false
		if isRegex {
			matched = re.MatchString(name)
		} else {
			matched = strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
		}
		if !matched {
			continue
		}
		out = append(out, s.hydrate(n))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	sortDisplayNodes(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// compileIfRegex treats pattern as a regex when it carries at least one
// metacharacter beyond plain identifier/path characters; otherwise Find
// falls back to a case-insensitive substring match.
func compileIfRegex(pattern string) (*regexp.Regexp, bool) {
	if !strings.ContainsAny(pattern, `.*+?[](){}|^$\`) {
		return nil, false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	return re, true
}

// Cat returns the fully hydrated display node for fqn.
func (s *Service) Cat(fqn string) (plugin.DisplayNode, error) {
	g := s.snap.Snapshot()
	n, ok := g.ResolveFQN(s.interner, fqn)
	if !ok {
		return plugin.DisplayNode{}, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}
	return s.hydrate(n), nil
}

// Deps returns fqn's neighbors in the outgoing direction, or incoming
// when rev is true, optionally filtered to edgeTypes (spec.md §4.K).
func (s *Service) Deps(fqn string, rev bool, edgeTypes []graphmodel.EdgeKind) ([]Dep, error) {
	g := s.snap.Snapshot()
	n, ok := g.ResolveFQN(s.interner, fqn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}

	dir := graphmodel.Outgoing
	if rev {
		dir = graphmodel.Incoming
	}

	var out []Dep
	for _, e := range g.Neighbors(n.ID, dir, edgeTypes) {
		target := e.To
		if rev {
			target = e.From
		}
		tn, ok := g.GetNode(target)
		if !ok {
			continue
		}
		out = append(out, Dep{Node: s.hydrate(tn), Kind: e.Kind})
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := atom.KindPriority(out[i].Node.Kind), atom.KindPriority(out[j].Node.Kind)
		if pi != pj {
			return pi < pj
		}
		return out[i].Node.Name < out[j].Node.Name
	})
	return out, nil
}
