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

// Package plugin defines the capability contracts language and
// build-tool plugins implement (spec.md §6), and the registry that
// looks up the right bundle for a file, language, or build tool
// (spec.md §4.D). The core never reaches into a plugin's internals —
// every interaction goes through one of the interfaces in this file.
//
// Concrete tree-sitter grammars and language extractors (Java, Gradle,
// etc.) are out of scope for this module (spec.md §1); what lives here
// is the vtable they would plug into.
package plugin

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
)

// FqnReader lets a plugin resolve handles back to text without being
// handed the whole interner (keeps the capability surface narrow).
type FqnReader interface {
	ResolveAtom(a atom.Atom) string
	Resolve(id atom.FqnId) []atom.Segment
	Render(id atom.FqnId) string
}

// ---------------------------------------------------------------------
// Parsing capabilities
// ---------------------------------------------------------------------

// FileMatcher decides whether a plugin claims a given path.
type FileMatcher interface {
	SupportsPath(path string) bool
}

// GlobalParseResult is what a language's raw parse step produces before
// the compiler stage turns it into graph operations (spec.md §6).
type GlobalParseResult struct {
	Package     string
	Imports     []string
	Nodes       []ParsedNode
	Relations   []ParsedRelation
	Source      []byte
	Tree        *sitter.Tree
	Identifiers []string
}

// ParsedNode is a language-neutral shape for a symbol the parser found,
// before FQN interning. NamingConvention.ParseFqn (or the compiler's
// default fallback) turns Name/Kind/Parent chains into an atom.FqnId.
type ParsedNode struct {
	Name           string
	Kind           atom.NodeKind
	Range          graphmodel.Range
	SelectionRange *graphmodel.Range
	Modifiers      []string
	Metadata       any
}

// ParsedRelation is a language-neutral edge candidate: a reference from
// one flat FQN string to another, discovered during parsing (resolved
// against the graph later by the compiler/resolver).
type ParsedRelation struct {
	FromFlatFQN string
	ToFlatFQN   string
	Kind        graphmodel.EdgeKind
	Range       *graphmodel.Range
}

// LanguageParse is the raw single-file parse capability.
type LanguageParse interface {
	ParseLanguageFile(source []byte, path string) (GlobalParseResult, error)
}

// FileInput is one file handed to a SourceIndex/BuildIndex capability.
type FileInput struct {
	Path         string
	Content      []byte
	ContentHash  uint64
	LastModified int64

	// MetaOnly marks a file whose mtime advanced but whose content hash
	// didn't (scan.Scan's touch-without-edit case). The compiler must
	// skip CompileSource/CompileBuild for it — there is nothing new to
	// parse — and emit only the OpUpdateFile that advances file_index's
	// LastModified, leaving every node and edge it previously produced
	// untouched.
	MetaOnly bool
}

// ProjectContext is build-tool-derived context made available to
// language compilers within the same epoch (spec.md §4.F). PathToModule
// maps a file-tree path prefix to the module id that owns it.
type ProjectContext struct {
	PathToModule map[string]string
	Extra        map[string]any
}

// Merge folds other into ctx, other's entries winning on conflict.
func (ctx *ProjectContext) Merge(other ProjectContext) {
	if ctx.PathToModule == nil {
		ctx.PathToModule = make(map[string]string)
	}
	for k, v := range other.PathToModule {
		ctx.PathToModule[k] = v
	}
	if len(other.Extra) == 0 {
		return
	}
	if ctx.Extra == nil {
		ctx.Extra = make(map[string]any)
	}
	for k, v := range other.Extra {
		ctx.Extra[k] = v
	}
}

// GraphOpKind discriminates GraphOp variants.
type GraphOpKind uint8

const (
	OpAddNode GraphOpKind = iota
	OpAddEdge
	OpRemovePath
	OpUpdateIdentifiers
	OpUpdateFile
	OpUpdateAssetRoutes
)

// IndexNode is the pre-interning shape of a node a compiler emits; the
// compiler stage (internal/compiler) interns FlatFQN/ParentFlatFQN into
// a real atom.FqnId before committing.
type IndexNode struct {
	FlatFQN   string
	Name      string
	Kind      atom.NodeKind
	Lang      string
	Source    graphmodel.NodeSource
	Status    graphmodel.NodeStatus
	Path      string
	Range     graphmodel.Range
	Selection *graphmodel.Range
	Modifiers []string
	Metadata  any
}

// GraphOp is one mutation a compiled unit contributes to the next
// commit (spec.md §4.F). Exactly one of the typed fields is populated,
// selected by Kind.
type GraphOp struct {
	Kind GraphOpKind

	// Lang selects which registered NamingConvention upgrades this op's
	// flat FQN string(s) into a structured atom.FqnId. Stamped by the
	// compiler stage from the emitting unit's language/build-tool name.
	Lang string

	AddNode IndexNode

	EdgeFromFlatFQN string
	EdgeToFlatFQN   string
	EdgeKind        graphmodel.EdgeKind
	EdgeRange       *graphmodel.Range

	Path string

	Identifiers []string

	FileMeta graphmodel.FileMeta

	AssetRoutes map[string][]string
}

// ResolvedUnit is a compiler capability's output for one file (spec.md
// §6).
type ResolvedUnit struct {
	Ops              []GraphOp
	Identifiers      []string
	NamingConvention NamingConvention // optional; nil means use the core's default renderer
}

// SourceIndex compiles one source file into a ResolvedUnit.
type SourceIndex interface {
	CompileSource(file FileInput, projectCtx *ProjectContext) (ResolvedUnit, error)
}

// BuildParseResult is a build file's raw parse result.
type BuildParseResult struct {
	Kind    BuildContentKind
	Content any
}

// BuildContentKind discriminates BuildParseResult.Content.
type BuildContentKind uint8

const (
	BuildContentMetadata BuildContentKind = iota
	BuildContentUnparsed
	BuildContentParsed
)

// BuildParse parses one build file's raw bytes.
type BuildParse interface {
	ParseBuildFile(source []byte) (BuildParseResult, error)
}

// BuildIndex compiles a set of build files into a ResolvedUnit plus the
// ProjectContext they establish for subsequent source compilation
// (spec.md §4.F "build-first ordering").
type BuildIndex interface {
	CompileBuild(files []FileInput) (ResolvedUnit, ProjectContext, error)
}

// ---------------------------------------------------------------------
// Semantic capabilities (spec.md §4.M / §6)
// ---------------------------------------------------------------------

// PositionContext is the input to resolve_symbol_at: an editor position
// plus optional unsaved buffer content.
type PositionContext struct {
	Path    string
	Line    int
	Char    int // UTF-16 column, per editor convention (spec.md §4.M)
	Content []byte
}

// ResolutionKind discriminates Resolution's variants.
type ResolutionKind uint8

const (
	ResolutionPrecise ResolutionKind = iota
	ResolutionGlobal
	ResolutionLocal
	ResolutionUnresolved
)

// Resolution is resolve_symbol_at's result (spec.md §4.M).
type Resolution struct {
	Kind      ResolutionKind
	FQN       string           // Precise/Global
	LocalType string           // Local, optional
	Range     graphmodel.Range // Local
}

// SymbolResolveService resolves a cursor position to a symbol.
type SymbolResolveService interface {
	ResolveAt(tree *sitter.Tree, source []byte, line, byteCol int, snapshot *graphmodel.Graph) (Resolution, error)
}

// ImplementationQuery is the input to find_implementations.
type ImplementationQuery struct {
	FQN string
}

// SymbolQueryService answers find_implementations / resolve_type_of.
type SymbolQueryService interface {
	FindImplementations(query ImplementationQuery, snapshot *graphmodel.Graph) ([]atom.FqnId, error)
	ResolveTypeOf(fqn string, snapshot *graphmodel.Graph) ([]string, error)
}

// OccurrenceRange is one byte-range occurrence of an identifier found
// during a micro-scan.
type OccurrenceRange struct {
	Range graphmodel.Range
	Text  string
}

// LspSyntaxService provides syntax-only (non-graph) operations: finding
// every occurrence of an identifier within a single file.
type LspSyntaxService interface {
	FindOccurrences(source []byte, tree *sitter.Tree, targetName string) ([]OccurrenceRange, error)
}

// ReferenceCheckService implements spec.md §4.M's "reference-check
// contract": given a reference candidate and the search target,
// decide whether the candidate really refers to the target (subtype-
// aware for members).
type ReferenceCheckService interface {
	IsReferenceTo(snapshot *graphmodel.Graph, candidate, target atom.FqnId) bool
}

// NoOpReferenceCheckService reduces to plain equality — the fallback a
// language without override-awareness should plug in (spec.md §9).
type NoOpReferenceCheckService struct{}

func (NoOpReferenceCheckService) IsReferenceTo(_ *graphmodel.Graph, candidate, target atom.FqnId) bool {
	return candidate == target
}

// Semantic bundles the four semantic capabilities a language plugin may
// offer. Any of them may be nil; callers must check before use.
type Semantic struct {
	Resolve  SymbolResolveService
	Query    SymbolQueryService
	Syntax   LspSyntaxService
	RefCheck ReferenceCheckService
}

// ---------------------------------------------------------------------
// Presentation capability
// ---------------------------------------------------------------------

// DisplayNode is the hydrated representation returned to clients
// (spec.md §4.K "every returned node is hydrated once through the
// presenter").
type DisplayNode struct {
	FQN       string
	Name      string
	Kind      atom.NodeKind
	Signature string
	Modifiers []string
	Detail    string
	Path      string
	Range     *graphmodel.Range
}

// Presentation converts interned nodes into display form.
type Presentation interface {
	RenderDisplayNode(node *graphmodel.Node, reader FqnReader) DisplayNode
	SymbolKind(kind atom.NodeKind) string
}

// DefaultPresentation hydrates a DisplayNode from nothing but the core
// graph fields, used when a language bundle supplies no Presentation
// capability (spec.md §4.K: every returned node is hydrated "once
// through the presenter" — this is that presenter's fallback).
type DefaultPresentation struct{}

func (DefaultPresentation) RenderDisplayNode(node *graphmodel.Node, reader FqnReader) DisplayNode {
	d := DisplayNode{
		FQN:       reader.Render(node.ID),
		Name:      reader.ResolveAtom(node.Name),
		Kind:      node.Kind,
		Modifiers: node.Modifiers,
	}
	if node.Location != nil {
		d.Path = reader.ResolveAtom(node.Location.Path)
		r := node.Location.Range
		d.Range = &r
	}
	return d
}

func (DefaultPresentation) SymbolKind(kind atom.NodeKind) string { return kind.String() }

// ---------------------------------------------------------------------
// Metadata codec capability
// ---------------------------------------------------------------------

// MetadataCodec encodes/decodes a node's opaque per-language metadata
// for persistence (spec.md §4.C). ctx is plugin-defined context (e.g. a
// shared symbol table); the core never inspects it.
type MetadataCodec interface {
	EncodeMetadata(meta any, ctx any) ([]byte, error)
	DecodeMetadata(data []byte, ctx any) (any, error)
}

// ---------------------------------------------------------------------
// Asset capabilities (spec.md §4.N)
// ---------------------------------------------------------------------

// Asset is a discovered library/SDK artifact (a jar, a module image, a
// vendored package) that may supply external symbols.
type Asset struct {
	Path        string
	ContentHash uint64
	Size        int64
}

// Key derives GlobalStubCache's asset_key: content identity (hash+size)
// so a rebuilt asset invalidates any cached stubs automatically.
func (a Asset) Key() string {
	h := xxhash.New()
	h.Write([]byte(strconv.FormatUint(a.ContentHash, 16)))
	h.Write([]byte(strconv.FormatInt(a.Size, 10)))
	return strconv.FormatUint(h.Sum64(), 16)
}

// AssetDiscoverer enumerates candidate assets.
type AssetDiscoverer interface {
	DiscoverGlobalAssets() ([]Asset, error)
	DiscoverProjectAssets(root string) ([]Asset, error)
}

// AssetIndexer returns the FQN prefixes an asset covers, for
// asset_routes.
type AssetIndexer interface {
	IndexAsset(asset Asset) ([]string, error)
}

// AssetSourceLocator optionally maps an asset to a human-navigable
// source location (e.g. an unpacked sources jar).
type AssetSourceLocator interface {
	LocateSource(asset Asset) (string, bool)
}

// StubGenerator materializes a fully-shaped external node for an FQN
// known to live in asset.
type StubGenerator interface {
	Generate(fqn string, asset Asset) (IndexNode, error)
	Accepts(assetPath string) bool
}

// AssetBundle groups the optional asset capabilities a language may
// supply; any field may be nil.
type AssetBundle struct {
	Discoverer    AssetDiscoverer
	Indexer       AssetIndexer
	SourceLocator AssetSourceLocator
	StubGenerator StubGenerator
}

// ---------------------------------------------------------------------
// Naming convention capability
// ---------------------------------------------------------------------

// FqnInterner is the minting half of atom.Interner, narrowed to what a
// NamingConvention needs to upgrade a flat string into a structured
// FqnId. *atom.Interner satisfies this directly.
type FqnInterner interface {
	InternAtom(s string) atom.Atom
	InternNode(parent atom.FqnId, name atom.Atom, kind atom.NodeKind) atom.FqnId
}

// NamingConvention renders/parses FQNs in a language-specific way
// (spec.md §3 "a flat external string can be upgraded... rendering
// joins segments using language-specific separators").
type NamingConvention interface {
	Separator() string
	GetSeparator(parentKind, childKind atom.NodeKind) string
	RenderFqn(id atom.FqnId, reader FqnReader) string

	// ParseFqn upgrades a flat string (as produced by a compiler
	// capability in a ParsedNode/ParsedRelation or GraphOp edge
	// reference) into a structured FqnId, interning every intermediate
	// segment along the way. leafKind is the terminal segment's kind.
	ParseFqn(in FqnInterner, flat string, leafKind atom.NodeKind) atom.FqnId
}

// DefaultNamingConvention falls back to atom.Separator/atom.Render's
// dot-language convention, used when a language bundle supplies none.
type DefaultNamingConvention struct{}

func (DefaultNamingConvention) Separator() string { return "." }

func (DefaultNamingConvention) GetSeparator(parentKind, childKind atom.NodeKind) string {
	return atom.Separator(parentKind, childKind)
}

func (DefaultNamingConvention) RenderFqn(id atom.FqnId, reader FqnReader) string {
	return reader.Render(id)
}

func (DefaultNamingConvention) ParseFqn(in FqnInterner, flat string, leafKind atom.NodeKind) atom.FqnId {
	return parseFlatFQN(in, flat, leafKind)
}

// parseFlatFQN splits on the dot-language's two separators ('.' and
// '#'), interning each segment as a child of the last. Every segment
// but the last is treated as atom.KindPackage; languages whose
// intermediate kinds differ (e.g. a nested-class '$') should supply
// their own NamingConvention instead of relying on this fallback.
func parseFlatFQN(in FqnInterner, flat string, leafKind atom.NodeKind) atom.FqnId {
	if flat == "" {
		return 0
	}
	segs := strings.FieldsFunc(flat, func(r rune) bool { return r == '.' || r == '#' })
	var parent atom.FqnId
	for i, seg := range segs {
		kind := atom.KindPackage
		if i == len(segs)-1 {
			kind = leafKind
		}
		a := in.InternAtom(seg)
		parent = in.InternNode(parent, a, kind)
	}
	return parent
}
