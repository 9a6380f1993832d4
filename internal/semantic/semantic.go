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

// Package semantic implements the per-language symbol facade (spec.md
// §4.M): resolve_symbol_at, find_implementations, resolve_type_of,
// find_references, find_incoming_calls/find_outgoing_calls and
// find_highlights, plus the is_subtype BFS the reference-check contract
// relies on. The facade dispatches to whatever Semantic capability a
// language bundle registers and never parses or resolves anything
// itself; its job is the surrounding bookkeeping the core owns:
// reference_index lookups, byte-column conversion, subtype traversal,
// and consolidating plugin answers into display nodes.
//
// Grounded on the teacher's pkg/ingestion/resolver.go CallResolver
// (index-then-resolve over a cross-file reference set) and on
// bufbuild-buf's buflsp/symbol.go (other_examples/) for the position->
// symbol / find-references shape of an LSP-style facade.
package semantic

import (
	"fmt"
	"os"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

// Snapshotter is the narrow capability a Facade needs: the currently
// published graph.
type Snapshotter interface {
	Snapshot() *graphmodel.Graph
}

// Facade answers semantic queries against whatever graph Snapshotter
// currently publishes, dispatching to the Semantic capability the
// target's owning language registers.
type Facade struct {
	snap     Snapshotter
	interner *atom.Interner
	registry *plugin.Registry
}

// New returns a Facade reading through interner and dispatching via
// registry.
func New(snap Snapshotter, interner *atom.Interner, registry *plugin.Registry) *Facade {
	return &Facade{snap: snap, interner: interner, registry: registry}
}

// ErrNotFound is returned when an fqn or path does not resolve to
// anything in the current snapshot.
var ErrNotFound = fmt.Errorf("semantic: not found")

// ErrUnsupported is returned when the target's language registers no
// Semantic capability of the kind requested.
var ErrUnsupported = fmt.Errorf("semantic: capability not registered for language")

// CallEntry is one structured entry of find_incoming_calls /
// find_outgoing_calls: the caller or callee, and the call-site range
// when the originating edge carried one.
type CallEntry struct {
	Node  plugin.DisplayNode
	Range *graphmodel.Range
}

// Reference is one entry of find_references: the occurrence's file
// position and whether it is the declaration itself.
type Reference struct {
	Path          string
	Range         graphmodel.Range
	IsDeclaration bool
}

func (f *Facade) hydrate(n *graphmodel.Node) plugin.DisplayNode {
	lang := f.interner.ResolveAtom(n.Lang)
	return f.registry.PresentationForLang(lang).RenderDisplayNode(n, f.interner)
}

// languageOf resolves the LanguageBundle that owns n, by its Lang atom.
func (f *Facade) languageOf(n *graphmodel.Node) (plugin.LanguageBundle, bool) {
	return f.registry.LanguageByName(f.interner.ResolveAtom(n.Lang))
}

// readContent returns ctx.Content when supplied, otherwise reads Path
// off disk (spec.md §4.M: "load or use in-memory content").
func readContent(ctx plugin.PositionContext) ([]byte, error) {
	if len(ctx.Content) > 0 {
		return ctx.Content, nil
	}
	return os.ReadFile(ctx.Path)
}

// ResolveSymbolAt implements spec.md §4.M's resolve_symbol_at: parse
// the owning language's file at ctx.Path, convert ctx's UTF-16 column
// to a byte column, and dispatch to the plugin's ResolveAt.
func (f *Facade) ResolveSymbolAt(ctx plugin.PositionContext) (plugin.Resolution, error) {
	bundle, ok := f.registry.MatchLanguage(ctx.Path)
	if !ok || bundle.Parser == nil || bundle.Semantic.Resolve == nil {
		return plugin.Resolution{Kind: plugin.ResolutionUnresolved}, ErrUnsupported
	}
	content, err := readContent(ctx)
	if err != nil {
		return plugin.Resolution{}, err
	}
	parsed, err := bundle.Parser.ParseLanguageFile(content, ctx.Path)
	if err != nil {
		return plugin.Resolution{}, err
	}
	byteCol := byteColumnFromUTF16(content, ctx.Line, ctx.Char)
	return bundle.Semantic.Resolve.ResolveAt(parsed.Tree, parsed.Source, ctx.Line, byteCol, f.snap.Snapshot())
}

// FindImplementations dispatches to fqn's owning language's
// SymbolQueryService and hydrates the resulting FqnIds.
func (f *Facade) FindImplementations(fqn string) ([]plugin.DisplayNode, error) {
	g := f.snap.Snapshot()
	n, ok := g.ResolveFQN(f.interner, fqn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}
	bundle, ok := f.languageOf(n)
	if !ok || bundle.Semantic.Query == nil {
		return nil, ErrUnsupported
	}
	ids, err := bundle.Semantic.Query.FindImplementations(plugin.ImplementationQuery{FQN: fqn}, g)
	if err != nil {
		return nil, err
	}
	out := make([]plugin.DisplayNode, 0, len(ids))
	for _, id := range ids {
		if impl, ok := g.GetNode(id); ok {
			out = append(out, f.hydrate(impl))
		}
	}
	return out, nil
}

// ResolveTypeOf dispatches to fqn's owning language's
// SymbolQueryService.
func (f *Facade) ResolveTypeOf(fqn string) ([]string, error) {
	g := f.snap.Snapshot()
	n, ok := g.ResolveFQN(f.interner, fqn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}
	bundle, ok := f.languageOf(n)
	if !ok || bundle.Semantic.Query == nil {
		return nil, ErrUnsupported
	}
	return bundle.Semantic.Query.ResolveTypeOf(fqn, g)
}

// IsSubtype is spec.md §4.M's is_subtype: BFS over InheritsFrom and
// Implements edges outward from sub, looking for super.
func IsSubtype(g *graphmodel.Graph, sub, super atom.FqnId) bool {
	if sub == super {
		return true
	}
	seen := map[atom.FqnId]struct{}{sub: {}}
	queue := []atom.FqnId{sub}
	kinds := []graphmodel.EdgeKind{graphmodel.EdgeInheritsFrom, graphmodel.EdgeImplements}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Neighbors(cur, graphmodel.Outgoing, kinds) {
			if e.To == super {
				return true
			}
			if _, ok := seen[e.To]; ok {
				continue
			}
			seen[e.To] = struct{}{}
			queue = append(queue, e.To)
		}
	}
	return false
}

// refCheckFor returns bundle's ReferenceCheckService, falling back to
// plain-equality when the language registers none (spec.md §9).
func refCheckFor(bundle plugin.LanguageBundle) plugin.ReferenceCheckService {
	if bundle.Semantic.RefCheck != nil {
		return bundle.Semantic.RefCheck
	}
	return plugin.NoOpReferenceCheckService{}
}

// FindReferences implements spec.md §4.M's two-layer search: a
// meso-scout pass over reference_index to shortlist candidate files,
// then a micro-scan of each file's occurrences of the target's name,
// filtered through is_reference_to.
func (f *Facade) FindReferences(fqn string, includeDeclaration bool) ([]Reference, error) {
	g := f.snap.Snapshot()
	target, ok := g.ResolveFQN(f.interner, fqn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}
	bundle, ok := f.languageOf(target)
	if !ok || bundle.Parser == nil || bundle.Semantic.Syntax == nil {
		return nil, ErrUnsupported
	}
	refCheck := refCheckFor(bundle)
	targetName := f.interner.ResolveAtom(target.Name)

	var out []Reference
	if includeDeclaration && target.Location != nil {
		out = append(out, Reference{
			Path:          f.interner.ResolveAtom(target.Location.Path),
			Range:         target.Location.Range,
			IsDeclaration: true,
		})
	}

	for _, pathAtom := range g.CandidateFiles(target.Name) {
		path := f.interner.ResolveAtom(pathAtom)
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parsed, err := bundle.Parser.ParseLanguageFile(content, path)
		if err != nil {
			continue
		}
		occurrences, err := bundle.Semantic.Syntax.FindOccurrences(parsed.Source, parsed.Tree, targetName)
		if err != nil {
			continue
		}
		for _, occ := range occurrences {
			candidate, ok := f.resolveOccurrence(bundle, path, parsed, occ, g)
			if !ok || !refCheck.IsReferenceTo(g, candidate, target.ID) {
				continue
			}
			out = append(out, Reference{Path: path, Range: occ.Range})
		}
	}
	return out, nil
}

// resolveOccurrence upgrades one syntactic occurrence into the FqnId it
// actually names, via the language's SymbolResolveService, so
// is_reference_to can compare it against the search target.
func (f *Facade) resolveOccurrence(bundle plugin.LanguageBundle, path string, parsed plugin.GlobalParseResult, occ plugin.OccurrenceRange, g *graphmodel.Graph) (atom.FqnId, bool) {
	if bundle.Semantic.Resolve == nil {
		return 0, false
	}
	res, err := bundle.Semantic.Resolve.ResolveAt(parsed.Tree, parsed.Source, occ.Range.Start.Line, occ.Range.Start.Column, g)
	if err != nil {
		return 0, false
	}
	switch res.Kind {
	case plugin.ResolutionPrecise, plugin.ResolutionGlobal:
		n, ok := g.ResolveFQN(f.interner, res.FQN)
		if !ok {
			return 0, false
		}
		return n.ID, true
	default:
		return 0, false
	}
}

// relatedMethods returns target plus every same-named node that
// is_reference_to links to target, covering override/interface
// dispatch for find_incoming_calls (spec.md §4.M).
func (f *Facade) relatedMethods(g *graphmodel.Graph, target *graphmodel.Node, refCheck plugin.ReferenceCheckService) []atom.FqnId {
	ids := []atom.FqnId{target.ID}
	for _, id := range g.NodesByName(target.Name) {
		if id == target.ID {
			continue
		}
		if refCheck.IsReferenceTo(g, id, target.ID) {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindIncomingCalls returns every Calls edge targeting fqn or any
// related override/implementation of it.
func (f *Facade) FindIncomingCalls(fqn string) ([]CallEntry, error) {
	g := f.snap.Snapshot()
	target, ok := g.ResolveFQN(f.interner, fqn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}
	bundle, _ := f.languageOf(target)
	refCheck := refCheckFor(bundle)

	var out []CallEntry
	for _, id := range f.relatedMethods(g, target, refCheck) {
		for _, e := range g.Neighbors(id, graphmodel.Incoming, []graphmodel.EdgeKind{graphmodel.EdgeCalls}) {
			if caller, ok := g.GetNode(e.From); ok {
				out = append(out, CallEntry{Node: f.hydrate(caller), Range: e.Range})
			}
		}
	}
	return out, nil
}

// FindOutgoingCalls returns every Calls edge originating at fqn.
func (f *Facade) FindOutgoingCalls(fqn string) ([]CallEntry, error) {
	g := f.snap.Snapshot()
	target, ok := g.ResolveFQN(f.interner, fqn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fqn)
	}
	var out []CallEntry
	for _, e := range g.Neighbors(target.ID, graphmodel.Outgoing, []graphmodel.EdgeKind{graphmodel.EdgeCalls}) {
		if callee, ok := g.GetNode(e.To); ok {
			out = append(out, CallEntry{Node: f.hydrate(callee), Range: e.Range})
		}
	}
	return out, nil
}

// FindHighlights implements spec.md §4.M's purely syntactic
// find_highlights: every occurrence, in the same file, of the
// identifier touching ctx's cursor.
func (f *Facade) FindHighlights(ctx plugin.PositionContext) ([]graphmodel.Range, error) {
	bundle, ok := f.registry.MatchLanguage(ctx.Path)
	if !ok || bundle.Parser == nil || bundle.Semantic.Syntax == nil {
		return nil, ErrUnsupported
	}
	content, err := readContent(ctx)
	if err != nil {
		return nil, err
	}
	byteCol := byteColumnFromUTF16(content, ctx.Line, ctx.Char)
	word := identifierAt(content, ctx.Line, byteCol)
	if word == "" {
		return nil, nil
	}
	parsed, err := bundle.Parser.ParseLanguageFile(content, ctx.Path)
	if err != nil {
		return nil, err
	}
	occurrences, err := bundle.Semantic.Syntax.FindOccurrences(parsed.Source, parsed.Tree, word)
	if err != nil {
		return nil, err
	}
	out := make([]graphmodel.Range, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occ.Range)
	}
	return out, nil
}
