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

// Package compiler turns a batch of changed files into the GraphOps
// that will be committed to the graph (spec.md §4.F). It dispatches
// each file to the plugin bundle that claims it, build tools first so
// their ProjectContext is available to every language compiler in the
// same batch.
//
// Grounded on the teacher's two-pass pkg/ingestion/parser_go.go +
// pkg/ingestion/resolver.go pipeline (parse everything, then resolve
// cross-file calls against the accumulated index); generalized here
// from a single hard-coded language to a registry dispatch.
package compiler

import (
	"context"
	"fmt"
	"sort"

	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

// Unit is one file's compiled result: a ready-to-commit op stream
// bracketed the way spec.md §4.F describes a typical per-file batch
// ("begins with RemovePath + UpdateFile, then a stream of AddNode/
// AddEdge, closed by UpdateIdentifiers"). The ingest runtime's
// CommitSink applies Ops as-is; it never re-derives them.
type Unit struct {
	Path             string
	Lang             string
	Ops              []plugin.GraphOp
	NamingConvention plugin.NamingConvention
}

// Failure records a single file's compile error without aborting the
// rest of the batch (spec.md §7: a PluginFailure degrades that file's
// node to Partial/Unresolved rather than failing the whole commit).
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("compiler: %s: %v", f.Path, f.Err) }

// Compiler dispatches files to registry-supplied capability bundles.
type Compiler struct {
	Registry *plugin.Registry
}

// New returns a Compiler bound to reg.
func New(reg *plugin.Registry) *Compiler {
	return &Compiler{Registry: reg}
}

// Compile processes files in build-first order: every build-tool match
// runs (and contributes to projectCtx) before any language compiler
// runs. projectCtx is mutated in place, so a caller that passes a
// non-nil projectCtx sees the merged build context afterwards; a nil
// projectCtx is replaced by a fresh one the caller never sees.
func (c *Compiler) Compile(ctx context.Context, files []plugin.FileInput, projectCtx *plugin.ProjectContext) ([]Unit, []Failure) {
	if projectCtx == nil {
		projectCtx = &plugin.ProjectContext{}
	}

	var units []Unit
	var failures []Failure

	metaFiles, rest := partitionMetaOnly(files)
	for _, f := range metaFiles {
		// mtime-only touch (scan.Scan set MetaOnly): nothing to parse,
		// so skip RemovePath/CompileSource entirely and just advance
		// file_index's LastModified. Re-running the compiler here would
		// re-derive the same nodes/edges at real cost for no change.
		units = append(units, Unit{
			Path: f.Path,
			Ops: []plugin.GraphOp{{
				Kind:     plugin.OpUpdateFile,
				Path:     f.Path,
				FileMeta: graphmodel.FileMeta{ContentHash: f.ContentHash, LastModified: f.LastModified},
			}},
		})
	}

	buildFiles, sourceFiles := partition(c.Registry, rest)

	for toolName, groupFiles := range buildFiles {
		tool, ok := c.Registry.MatchBuildTool(groupFiles[0].Path)
		_ = toolName
		if !ok || tool.BuildIndexCap == nil {
			continue
		}
		resolved, tctx, err := tool.BuildIndexCap.CompileBuild(groupFiles)
		if err != nil {
			for _, f := range groupFiles {
				failures = append(failures, Failure{Path: f.Path, Err: err})
			}
			continue
		}
		projectCtx.Merge(tctx)
		ops := stampLang(resolved.Ops, tool.Name)
		units = append(units, Unit{
			Path:             groupFiles[0].Path,
			Lang:             tool.Name,
			Ops:              ops,
			NamingConvention: resolved.NamingConvention,
		})
	}

	for _, f := range sourceFiles {
		select {
		case <-ctx.Done():
			failures = append(failures, Failure{Path: f.Path, Err: ctx.Err()})
			continue
		default:
		}

		bundle, ok := c.Registry.MatchLanguage(f.Path)
		if !ok || bundle.SourceIndexCap == nil {
			continue
		}
		resolved, err := bundle.SourceIndexCap.CompileSource(f, projectCtx)
		if err != nil {
			failures = append(failures, Failure{Path: f.Path, Err: err})
			continue
		}

		ops := make([]plugin.GraphOp, 0, len(resolved.Ops)+3)
		ops = append(ops,
			plugin.GraphOp{Kind: plugin.OpRemovePath, Path: f.Path, Lang: bundle.Lang},
			plugin.GraphOp{
				Kind:     plugin.OpUpdateFile,
				Path:     f.Path,
				Lang:     bundle.Lang,
				FileMeta: graphmodel.FileMeta{ContentHash: f.ContentHash, LastModified: f.LastModified},
			},
		)
		ops = append(ops, stampLang(resolved.Ops, bundle.Lang)...)
		if len(resolved.Identifiers) > 0 {
			ops = append(ops, plugin.GraphOp{
				Kind:        plugin.OpUpdateIdentifiers,
				Path:        f.Path,
				Lang:        bundle.Lang,
				Identifiers: resolved.Identifiers,
			})
		}

		units = append(units, Unit{
			Path:             f.Path,
			Lang:             bundle.Lang,
			Ops:              ops,
			NamingConvention: resolved.NamingConvention,
		})
	}

	return units, failures
}

// stampLang sets Lang on every op a plugin capability returned, so the
// engine's commit stage knows which NamingConvention upgrades an op's
// flat FQN string(s) without needing the unit that produced it.
func stampLang(ops []plugin.GraphOp, lang string) []plugin.GraphOp {
	out := make([]plugin.GraphOp, len(ops))
	for i, op := range ops {
		op.Lang = lang
		out[i] = op
	}
	return out
}

// partitionMetaOnly splits off files scan.Scan marked MetaOnly, leaving
// the rest for the normal build/source dispatch below.
func partitionMetaOnly(files []plugin.FileInput) (meta, rest []plugin.FileInput) {
	for _, f := range files {
		if f.MetaOnly {
			meta = append(meta, f)
			continue
		}
		rest = append(rest, f)
	}
	return meta, rest
}

// partition splits files into build-tool groups (keyed by tool name)
// and the remaining source files, build-tool matches removed from the
// source list so they are never double-compiled.
func partition(reg *plugin.Registry, files []plugin.FileInput) (map[string][]plugin.FileInput, []plugin.FileInput) {
	buildGroups := make(map[string][]plugin.FileInput)
	var sourceFiles []plugin.FileInput

	for _, f := range files {
		if tool, ok := reg.MatchBuildTool(f.Path); ok {
			buildGroups[tool.Name] = append(buildGroups[tool.Name], f)
			continue
		}
		sourceFiles = append(sourceFiles, f)
	}

	// Stable order within each source dispatch makes compiled-unit
	// ordering deterministic for tests.
	sort.Slice(sourceFiles, func(i, j int) bool { return sourceFiles[i].Path < sourceFiles[j].Path })

	return buildGroups, sourceFiles
}
