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
	"sort"
	"strings"

	"github.com/kraklabs/naviscope/internal/atom"
)

// FileEntry is the value half of file_index: a file's metadata plus the
// handles of every node whose Location.Path equals this file.
type FileEntry struct {
	Meta  FileMeta
	Nodes []atom.FqnId
}

// Graph is the in-memory code knowledge graph plus its auxiliary
// indices (spec.md §3). A *Graph is built by a single writer (the
// ingest runtime's CommitSink, see internal/ingest) via the mutation
// methods below, then handed to the snapshot cell (internal/snapshot)
// by pointer. Once published, callers MUST treat it as read-only —
// there is no copy-on-write enforcement at this layer; the single-
// writer discipline lives in internal/snapshot and internal/ingest.
type Graph struct {
	nodes map[atom.FqnId]*Node

	outEdges map[atom.FqnId][]Edge
	inEdges  map[atom.FqnId][]Edge

	nameIndex map[atom.Atom][]atom.FqnId
	fileIndex map[atom.Atom]*FileEntry

	// referenceIndex maps an identifier-token atom to the set of file
	// path atoms where that token occurs (spec.md's meso-scout index).
	referenceIndex map[atom.Atom]map[atom.Atom]struct{}

	// assetRoutes maps an FQN prefix string to the asset paths that
	// cover it (spec.md §4.G/§4.N).
	assetRoutes map[string][]string
}

// New returns an empty graph ready for mutation.
func New() *Graph {
	return &Graph{
		nodes:          make(map[atom.FqnId]*Node),
		outEdges:       make(map[atom.FqnId][]Edge),
		inEdges:        make(map[atom.FqnId][]Edge),
		nameIndex:      make(map[atom.Atom][]atom.FqnId),
		fileIndex:      make(map[atom.Atom]*FileEntry),
		referenceIndex: make(map[atom.Atom]map[atom.Atom]struct{}),
		assetRoutes:    make(map[string][]string),
	}
}

// Clone performs a shallow structural copy of g: every index is
// rebuilt into fresh maps/slices, but Node/Edge values themselves are
// copied by value (Node.Metadata is shared by reference, since it is
// opaque to this package). Used by the ingest runtime to build the next
// snapshot off of the previous one without mutating what readers may
// still be holding.
func (g *Graph) Clone() *Graph {
	out := New()
	for id, n := range g.nodes {
		cp := *n
		out.nodes[id] = &cp
	}
	for id, edges := range g.outEdges {
		out.outEdges[id] = append([]Edge(nil), edges...)
	}
	for id, edges := range g.inEdges {
		out.inEdges[id] = append([]Edge(nil), edges...)
	}
	for name, ids := range g.nameIndex {
		out.nameIndex[name] = append([]atom.FqnId(nil), ids...)
	}
	for path, fe := range g.fileIndex {
		cp := FileEntry{Meta: fe.Meta, Nodes: append([]atom.FqnId(nil), fe.Nodes...)}
		out.fileIndex[path] = &cp
	}
	for tok, paths := range g.referenceIndex {
		cpPaths := make(map[atom.Atom]struct{}, len(paths))
		for p := range paths {
			cpPaths[p] = struct{}{}
		}
		out.referenceIndex[tok] = cpPaths
	}
	for prefix, assets := range g.assetRoutes {
		out.assetRoutes[prefix] = append([]string(nil), assets...)
	}
	return out
}

// GetNode returns the node at id, and whether it exists.
func (g *Graph) GetNode(id atom.FqnId) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// AddNode inserts or replaces the node at n.ID (replace semantics keyed
// by FqnId, per spec.md §3 "Lifecycle"). Replacing a node's metadata
// does not touch its edges. The name_index and file_index are updated
// to reflect the new node.
func (g *Graph) AddNode(n Node) {
	if old, existed := g.nodes[n.ID]; existed {
		g.removeFromNameIndex(old.ID, old.Name)
		g.removeFromFileIndex(old)
	}
	cp := n
	g.nodes[n.ID] = &cp
	g.nameIndex[n.Name] = appendUnique(g.nameIndex[n.Name], n.ID)
	if n.Location != nil {
		g.addToFileIndex(n)
	}
}

func (g *Graph) addToFileIndex(n Node) {
	path := n.Location.Path
	fe, ok := g.fileIndex[path]
	if !ok {
		fe = &FileEntry{}
		g.fileIndex[path] = fe
	}
	fe.Nodes = appendUnique(fe.Nodes, n.ID)
}

func (g *Graph) removeFromFileIndex(n *Node) {
	if n.Location == nil {
		return
	}
	fe, ok := g.fileIndex[n.Location.Path]
	if !ok {
		return
	}
	fe.Nodes = removeID(fe.Nodes, n.ID)
}

func (g *Graph) removeFromNameIndex(id atom.FqnId, name atom.Atom) {
	g.nameIndex[name] = removeID(g.nameIndex[name], id)
	if len(g.nameIndex[name]) == 0 {
		delete(g.nameIndex, name)
	}
}

// RemoveNode deletes the node at id along with every edge incident to
// it, and removes it from name_index/file_index.
func (g *Graph) RemoveNode(id atom.FqnId) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	g.removeFromNameIndex(id, n.Name)
	g.removeFromFileIndex(n)
	delete(g.nodes, id)

	for _, e := range g.outEdges[id] {
		g.inEdges[e.To] = removeEdge(g.inEdges[e.To], e)
	}
	delete(g.outEdges, id)
	for _, e := range g.inEdges[id] {
		g.outEdges[e.From] = removeEdge(g.outEdges[e.From], e)
	}
	delete(g.inEdges, id)
}

// AddEdge inserts e, unless an identical {From,To,Kind,Range} edge
// already exists (idempotence, spec.md invariant 8).
func (g *Graph) AddEdge(e Edge) {
	for _, existing := range g.outEdges[e.From] {
		if edgeEqual(existing, e) {
			return
		}
	}
	g.outEdges[e.From] = append(g.outEdges[e.From], e)
	g.inEdges[e.To] = append(g.inEdges[e.To], e)
}

// RemoveEdge deletes every edge matching {From,To,Kind,Range} (AddEdge
// keeps at most one).
func (g *Graph) RemoveEdge(e Edge) {
	g.outEdges[e.From] = removeEdge(g.outEdges[e.From], e)
	g.inEdges[e.To] = removeEdge(g.inEdges[e.To], e)
}

// RetargetEdges moves every edge incident to old (as either endpoint)
// so it instead references new, leaving old with no edges at all. A
// caller mints old as a placeholder id for a forward-referenced FQN
// (kind not yet known) and later calls this once the FQN's real node
// arrives under a different id — spec.md invariant 2, "every edge
// endpoint exists in fqn_map", would otherwise stay violated for the
// lifetime of the graph.
func (g *Graph) RetargetEdges(old, new atom.FqnId) {
	if old == new {
		return
	}
	for _, e := range append([]Edge(nil), g.outEdges[old]...) {
		g.RemoveEdge(e)
		e.From = new
		g.AddEdge(e)
	}
	for _, e := range append([]Edge(nil), g.inEdges[old]...) {
		g.RemoveEdge(e)
		e.To = new
		g.AddEdge(e)
	}
}

// Neighbors returns the edges incident to id in dir direction,
// optionally filtered to kinds in kindFilter (nil/empty means no
// filter).
func (g *Graph) Neighbors(id atom.FqnId, dir Direction, kindFilter []EdgeKind) []Edge {
	var src []Edge
	if dir == Outgoing {
		src = g.outEdges[id]
	} else {
		src = g.inEdges[id]
	}
	if len(kindFilter) == 0 {
		return append([]Edge(nil), src...)
	}
	allowed := make(map[EdgeKind]struct{}, len(kindFilter))
	for _, k := range kindFilter {
		allowed[k] = struct{}{}
	}
	var out []Edge
	for _, e := range src {
		if _, ok := allowed[e.Kind]; ok {
			out = append(out, e)
		}
	}
	return out
}

// FindContainerNodeAt implements spec.md §4.B's "find-container-at"
// contract: the smallest node (by range size) whose location encloses
// (line, col) in path. Ties are broken by (1) selection_range match,
// (2) more specific kind (method > class), (3) undefined order
// otherwise (we fall back to the first candidate found in file_index's
// node order, which is insertion order).
func (g *Graph) FindContainerNodeAt(path atom.Atom, pos Position) (*Node, bool) {
	fe, ok := g.fileIndex[path]
	if !ok {
		return nil, false
	}

	var best *Node
	for _, id := range fe.Nodes {
		n, ok := g.nodes[id]
		if !ok || n.Location == nil || n.Location.Path != path {
			continue
		}
		if !n.Location.Range.Contains(pos) {
			continue
		}
		if best == nil {
			best = n
			continue
		}
		if n.Location.Range.smaller(best.Location.Range) {
			best = n
			continue
		}
		if !best.Location.Range.smaller(n.Location.Range) && sameSize(n.Location.Range, best.Location.Range) {
			best = tieBreak(best, n, pos)
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func sameSize(a, b Range) bool {
	al, ac := a.size()
	bl, bc := b.size()
	return al == bl && ac == bc
}

// tieBreak picks between two candidate container nodes of equal range
// size, per spec.md §4.B: (1) selection_range match wins, (2) more
// specific kind wins, (3) otherwise keep the first one found.
func tieBreak(a, b *Node, pos Position) *Node {
	aSel := a.Location.SelectionRange != nil && a.Location.SelectionRange.Contains(pos)
	bSel := b.Location.SelectionRange != nil && b.Location.SelectionRange.Contains(pos)
	if aSel != bSel {
		if bSel {
			return b
		}
		return a
	}
	if specificity(b.Kind) > specificity(a.Kind) {
		return b
	}
	return a
}

// specificity ranks kinds from coarse to fine for container tie-
// breaking, independent of Ls's listing order.
func specificity(k atom.NodeKind) int {
	switch k {
	case atom.KindProject:
		return 0
	case atom.KindModule:
		return 1
	case atom.KindPackage:
		return 2
	case atom.KindClass, atom.KindInterface, atom.KindEnum, atom.KindAnnotation:
		return 3
	case atom.KindConstructor, atom.KindMethod:
		return 4
	case atom.KindField, atom.KindVariable, atom.KindParameter:
		return 5
	default:
		return 0
	}
}

// RemovePath deletes every node whose location path atom equals path,
// plus any edge incident to those nodes, plus path's entries from
// file_index and reference_index (spec.md invariant 3/5).
func (g *Graph) RemovePath(path atom.Atom) {
	fe, ok := g.fileIndex[path]
	if ok {
		ids := append([]atom.FqnId(nil), fe.Nodes...)
		for _, id := range ids {
			g.RemoveNode(id)
		}
		delete(g.fileIndex, path)
	}
	for tok, paths := range g.referenceIndex {
		delete(paths, path)
		if len(paths) == 0 {
			delete(g.referenceIndex, tok)
		}
	}
}

// UpdateFile sets path's file_meta (spec.md invariant 4). If path has
// no nodes yet, an empty entry is created so later AddNode calls have
// somewhere to land.
func (g *Graph) UpdateFile(path atom.Atom, meta FileMeta) {
	fe, ok := g.fileIndex[path]
	if !ok {
		fe = &FileEntry{}
		g.fileIndex[path] = fe
	}
	fe.Meta = meta
}

// FileMeta returns path's recorded metadata, if any.
func (g *Graph) FileMeta(path atom.Atom) (FileMeta, bool) {
	fe, ok := g.fileIndex[path]
	if !ok {
		return FileMeta{}, false
	}
	return fe.Meta, true
}

// Paths returns every path atom currently present in file_index.
func (g *Graph) Paths() []atom.Atom {
	out := make([]atom.Atom, 0, len(g.fileIndex))
	for p := range g.fileIndex {
		out = append(out, p)
	}
	return out
}

// UpdateIdentifiers replaces path's reference_index contribution with
// ids (spec.md §4.F "UpdateIdentifiers(path, [id])"). This is the
// meso-scout write path: one entry per identifier occurrence in path's
// last-parsed content.
func (g *Graph) UpdateIdentifiers(path atom.Atom, ids []atom.Atom) {
	// Clear prior contributions from this path before re-adding, so a
	// re-parse that drops an identifier also drops its reference_index
	// entry.
	for tok, paths := range g.referenceIndex {
		delete(paths, path)
		if len(paths) == 0 {
			delete(g.referenceIndex, tok)
		}
	}
	for _, id := range ids {
		paths, ok := g.referenceIndex[id]
		if !ok {
			paths = make(map[atom.Atom]struct{})
			g.referenceIndex[id] = paths
		}
		paths[path] = struct{}{}
	}
}

// CandidateFiles returns the path atoms recorded against identifier
// tok in reference_index (spec.md's meso-scout read path).
func (g *Graph) CandidateFiles(tok atom.Atom) []atom.Atom {
	paths, ok := g.referenceIndex[tok]
	if !ok {
		return nil
	}
	out := make([]atom.Atom, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	return out
}

// UpdateAssetRoutes merges routes into asset_routes (spec.md §4.F
// "UpdateAssetRoutes(map)"). Each prefix's asset list is the union of
// existing and new entries, deduplicated.
func (g *Graph) UpdateAssetRoutes(routes map[string][]string) {
	for prefix, assets := range routes {
		existing := g.assetRoutes[prefix]
		for _, a := range assets {
			found := false
			for _, e := range existing {
				if e == a {
					found = true
					break
				}
			}
			if !found {
				existing = append(existing, a)
			}
		}
		g.assetRoutes[prefix] = existing
	}
}

// AssetRoute returns the asset paths registered for the longest
// registered prefix of fqn, trimming trailing dotted segments until a
// match is found or the string is exhausted (spec.md §4.G).
func (g *Graph) AssetRoute(fqn string) ([]string, bool) {
	candidate := fqn
	for candidate != "" {
		if assets, ok := g.assetRoutes[candidate]; ok {
			return assets, true
		}
		idx := lastSeparator(candidate)
		if idx < 0 {
			break
		}
		candidate = candidate[:idx]
	}
	return nil, false
}

func lastSeparator(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' || s[i] == '#' || s[i] == '/' {
			return i
		}
	}
	return -1
}

// NodesByName returns every node registered under name in name_index.
func (g *Graph) NodesByName(name atom.Atom) []atom.FqnId {
	return append([]atom.FqnId(nil), g.nameIndex[name]...)
}

// ResolveFQN finds the node whose rendered FQN equals flat, narrowing
// candidates through name_index on flat's last segment before comparing
// full renders. Shared by internal/query, internal/nav and
// internal/semantic, all of which need to turn a user-supplied FQN
// string back into a node.
func (g *Graph) ResolveFQN(in *atom.Interner, flat string) (*Node, bool) {
	last := lastFQNSegment(flat)
	if last == "" {
		return nil, false
	}
	for _, id := range g.NodesByName(in.InternAtom(last)) {
		if in.Render(id) == flat {
			return g.GetNode(id)
		}
	}
	return nil, false
}

func lastFQNSegment(flat string) string {
	segs := strings.FieldsFunc(flat, func(r rune) bool { return r == '.' || r == '#' || r == '/' })
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// AllNodeIDs returns every node id in the graph, sorted ascending.
func (g *Graph) AllNodeIDs() []atom.FqnId {
	out := make([]atom.FqnId, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllEdges returns every edge in the graph, in an arbitrary order. Used
// by internal/codec to serialize the full edge set.
func (g *Graph) AllEdges() []Edge {
	out := make([]Edge, 0, g.EdgeCount())
	for _, edges := range g.outEdges {
		out = append(out, edges...)
	}
	return out
}

// ReferenceIndexSnapshot flattens reference_index into a plain map for
// persistence (internal/codec). The returned map and slices are fresh
// copies, safe to mutate.
func (g *Graph) ReferenceIndexSnapshot() map[atom.Atom][]atom.Atom {
	out := make(map[atom.Atom][]atom.Atom, len(g.referenceIndex))
	for tok, paths := range g.referenceIndex {
		list := make([]atom.Atom, 0, len(paths))
		for p := range paths {
			list = append(list, p)
		}
		out[tok] = list
	}
	return out
}

// RestoreReferenceIndex replaces reference_index wholesale from a
// snapshot produced by ReferenceIndexSnapshot (internal/codec load
// path).
func (g *Graph) RestoreReferenceIndex(snapshot map[atom.Atom][]atom.Atom) {
	g.referenceIndex = make(map[atom.Atom]map[atom.Atom]struct{}, len(snapshot))
	for tok, paths := range snapshot {
		set := make(map[atom.Atom]struct{}, len(paths))
		for _, p := range paths {
			set[p] = struct{}{}
		}
		g.referenceIndex[tok] = set
	}
}

// AssetRoutesSnapshot returns a fresh copy of asset_routes for
// persistence (internal/codec).
func (g *Graph) AssetRoutesSnapshot() map[string][]string {
	out := make(map[string][]string, len(g.assetRoutes))
	for prefix, assets := range g.assetRoutes {
		out[prefix] = append([]string(nil), assets...)
	}
	return out
}

// RestoreAssetRoutes replaces asset_routes wholesale from a snapshot
// produced by AssetRoutesSnapshot (internal/codec load path).
func (g *Graph) RestoreAssetRoutes(snapshot map[string][]string) {
	g.assetRoutes = make(map[string][]string, len(snapshot))
	for prefix, assets := range snapshot {
		g.assetRoutes[prefix] = append([]string(nil), assets...)
	}
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.outEdges {
		n += len(edges)
	}
	return n
}

func edgeEqual(a, b Edge) bool {
	if a.From != b.From || a.To != b.To || a.Kind != b.Kind {
		return false
	}
	if (a.Range == nil) != (b.Range == nil) {
		return false
	}
	if a.Range == nil {
		return true
	}
	return *a.Range == *b.Range
}

func removeEdge(edges []Edge, target Edge) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if !edgeEqual(e, target) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func appendUnique(ids []atom.FqnId, id atom.FqnId) []atom.FqnId {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []atom.FqnId, id atom.FqnId) []atom.FqnId {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
