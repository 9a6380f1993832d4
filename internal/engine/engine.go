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

// Package engine owns one project's index lifecycle: rebuild, load,
// save, refresh, start_watch, clear_project_index, scan_global_assets
// (spec.md §4.I). It wires internal/scan, internal/compiler,
// internal/stubplan, internal/ingest, internal/codec and
// internal/snapshot together; nothing outside this package touches
// those directly.
//
// Grounded on the teacher's internal/bootstrap/bootstrap.go
// InitProject/OpenProject shape, generalized from a CozoDB data
// directory to an index-file path and from an explicit init call to a
// lazy rebuild-or-load.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/naviscope/internal/asset"
	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/codec"
	"github.com/kraklabs/naviscope/internal/compiler"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/ingest"
	"github.com/kraklabs/naviscope/internal/plugin"
	"github.com/kraklabs/naviscope/internal/scan"
	"github.com/kraklabs/naviscope/internal/snapshot"
	"github.com/kraklabs/naviscope/internal/stubplan"
)

// indexDirEnv overrides the default base directory for index files.
const indexDirEnv = "NAVISCOPE_INDEX_DIR"

// Engine is the per-project orchestrator. Construct with New, then
// call Load (to pick up a prior index) or Rebuild (to start fresh),
// and Refresh on every subsequent change batch.
type Engine struct {
	root      string
	indexPath string
	registry  *plugin.Registry
	ignore    *scan.IgnoreSet
	assets    *asset.Manager
	logger    *slog.Logger

	// opMu serializes the whole-engine operations (Rebuild, Refresh,
	// Load, Save, ClearProjectIndex, ScanGlobalAssets) against each
	// other. It is not held while readers use the snapshot cell.
	opMu sync.Mutex

	interner *atom.Interner
	cell     *snapshot.Cell

	// flatKind remembers the NodeKind a flat FQN string last resolved
	// to, so an edge referencing that FQN interns to the same FqnId an
	// AddNode for it already minted (atom.Interner keys a node on
	// (parent, name, kind); losing track of kind would silently split
	// one logical node into two handles). Rebuilt from the graph itself
	// after every Load.
	kindMu   sync.Mutex
	flatKind map[string]atom.NodeKind

	runtime  *ingest.Runtime
	runDone  chan struct{}
	runStop  context.CancelFunc
	epochSeq uint64

	watchStop context.CancelFunc
	watchDone chan struct{}
}

// Options configures New.
type Options struct {
	Root      string
	IndexPath string // overrides DefaultIndexPath(Root) when non-empty
	Registry  *plugin.Registry
	Ignore    *scan.IgnoreSet
	Assets    *asset.Manager // optional; nil disables stub materialization
	Logger    *slog.Logger
	Flow      ingest.FlowControlConfig // zero value means DefaultFlowControl()
}

// New constructs an Engine with an empty in-memory graph. Call Load to
// pick up a previously saved index.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}
	if opts.Root == "" {
		return nil, errors.New("engine: root is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	indexPath := opts.IndexPath
	if indexPath == "" {
		p, err := DefaultIndexPath(opts.Root)
		if err != nil {
			return nil, err
		}
		indexPath = p
	}

	e := &Engine{
		root:      opts.Root,
		indexPath: indexPath,
		registry:  opts.Registry,
		ignore:    opts.Ignore,
		assets:    opts.Assets,
		logger:    logger,
		interner:  atom.New(),
		cell:      snapshot.New(),
		flatKind:  make(map[string]atom.NodeKind),
	}
	e.cell.Publish(graphmodel.New())

	flow := opts.Flow
	if (flow == ingest.FlowControlConfig{}) {
		flow = ingest.DefaultFlowControl()
	}
	e.runtime = ingest.New(flow, e.execute, e.commitEpoch, logger)

	ctx, cancel := context.WithCancel(context.Background())
	e.runStop = cancel
	e.runDone = make(chan struct{})
	go func() {
		defer close(e.runDone)
		e.runtime.Run(ctx)
	}()

	return e, nil
}

// Close stops the engine's ingest runtime and any active watch. It
// does not touch the persisted index.
func (e *Engine) Close() {
	e.StopWatch()
	if e.runStop != nil {
		e.runStop()
		<-e.runDone
	}
}

// DefaultIndexPath returns
// filepath.Join(home, ".naviscope", "indices", projectHash+".idx"),
// overridable via NAVISCOPE_INDEX_DIR.
func DefaultIndexPath(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("engine: resolve project root: %w", err)
	}

	base := os.Getenv(indexDirEnv)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("engine: resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".naviscope", "indices")
	}

	hash := xxhash.Sum64String(abs)
	return filepath.Join(base, strconv.FormatUint(hash, 16)+".idx"), nil
}

// Snapshot returns the currently published graph, read-only.
func (e *Engine) Snapshot() *graphmodel.Graph {
	return e.cell.Load()
}

// Interner returns the engine's atom interner (read-only use by query
// and semantic facades; writes only ever happen inside the engine).
func (e *Engine) Interner() *atom.Interner {
	return e.interner
}

// Load decodes the saved snapshot via the persistence codec. found is
// false (with a nil error) when the index is absent, version-mismatched
// or corrupt — spec.md §4.I: "on version mismatch/corruption, discard
// and report absent", so the caller typically falls back to Rebuild.
func (e *Engine) Load() (found bool, err error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	snap, loadErr := codec.Load(e.indexPath, e.registry)
	switch {
	case loadErr == nil:
		// fall through
	case os.IsNotExist(loadErr):
		e.logger.Info("engine.load.absent", "path", e.indexPath)
		return false, nil
	case errors.Is(loadErr, codec.ErrVersionMismatch), errors.Is(loadErr, codec.ErrCorrupt):
		e.logger.Warn("engine.load.discarded", "path", e.indexPath, "err", loadErr)
		_ = os.Remove(e.indexPath)
		return false, nil
	default:
		return false, fmt.Errorf("engine: load index: %w", loadErr)
	}

	e.interner = snap.Interner
	e.cell.Publish(snap.Graph)
	e.rebuildFlatKindCache(snap.Graph)
	e.logger.Info("engine.load.ok", "path", e.indexPath, "nodes", snap.Graph.NodeCount())
	return true, nil
}

// Save serializes the current snapshot to disk (write-temp-then-rename,
// spec.md §4.C/§5 "Disk").
func (e *Engine) Save() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.saveLocked()
}

func (e *Engine) saveLocked() error {
	snap := codec.Snapshot{Interner: e.interner, Graph: e.cell.Load()}
	if err := codec.Save(e.indexPath, snap, e.registry); err != nil {
		return fmt.Errorf("engine: save index: %w", err)
	}
	e.logger.Info("engine.save.ok", "path", e.indexPath)
	return nil
}

// SeedAssetRoutes merges routes into the current snapshot's
// asset_routes and persists the result, for project-configured route
// seeds (internal/cfg) that should apply before the first scan ever
// encounters the external FQNs they cover.
func (e *Engine) SeedAssetRoutes(routes map[string][]string) error {
	if len(routes) == 0 {
		return nil
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()

	g := e.cell.Load().Clone()
	g.UpdateAssetRoutes(routes)
	e.cell.Publish(g)
	return e.saveLocked()
}

// ClearProjectIndex removes the persisted file and resets the
// in-memory snapshot to empty (spec.md S5).
func (e *Engine) ClearProjectIndex() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := os.Remove(e.indexPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("engine: remove index: %w", err)
	}
	e.interner = atom.New()
	e.cell.Publish(graphmodel.New())
	e.kindMu.Lock()
	e.flatKind = make(map[string]atom.NodeKind)
	e.kindMu.Unlock()
	e.logger.Info("engine.clear.ok", "path", e.indexPath)
	return nil
}

// Rebuild clears the project's index file, scans the entire tree, pushes
// a full batch through the runtime, and saves to disk.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := os.Remove(e.indexPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("engine: remove stale index: %w", err)
	}
	e.interner = atom.New()
	e.cell.Publish(graphmodel.New())
	e.kindMu.Lock()
	e.flatKind = make(map[string]atom.NodeKind)
	e.kindMu.Unlock()

	changed, _, err := scan.Scan(e.root, e.ignore, nil)
	if err != nil {
		return fmt.Errorf("engine: scan project tree: %w", err)
	}
	if err := e.runBatch(ctx, changed, nil); err != nil {
		return err
	}
	return e.saveLocked()
}

// Refresh scans the project tree and pushes only the files that
// changed since the last index (spec.md §4.I, invariant 6).
func (e *Engine) Refresh(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	previous := e.previousFileMeta()
	changed, deleted, err := scan.Scan(e.root, e.ignore, previous)
	if err != nil {
		return fmt.Errorf("engine: scan project tree: %w", err)
	}
	if len(changed) == 0 && len(deleted) == 0 {
		return nil
	}
	if err := e.runBatch(ctx, changed, deleted); err != nil {
		return err
	}
	return e.saveLocked()
}

// previousFileMeta renders the current graph's file_index into the
// path-string-keyed form scan.Scan expects.
func (e *Engine) previousFileMeta() map[string]graphmodel.FileMeta {
	g := e.cell.Load()
	if g == nil {
		return nil
	}
	out := make(map[string]graphmodel.FileMeta)
	for _, pathAtom := range g.Paths() {
		meta, ok := g.FileMeta(pathAtom)
		if !ok {
			continue
		}
		out[e.interner.ResolveAtom(pathAtom)] = meta
	}
	return out
}

// runBatch compiles changed, synthesizes deletion ops for deleted, and
// drives them through the ingest runtime as one epoch, waiting for the
// whole batch to be accounted for before returning.
func (e *Engine) runBatch(ctx context.Context, changed []plugin.FileInput, deleted []string) error {
	epoch := e.nextEpoch()

	units, failures := compiler.New(e.registry).Compile(ctx, changed, &plugin.ProjectContext{})
	for _, f := range failures {
		e.logger.Warn("engine.compile.failed", "path", f.Path, "err", f.Err)
	}

	ids := make([]string, 0, len(units)+len(deleted))
	for _, u := range units {
		ids = append(ids, "file:"+u.Path)
	}
	for _, path := range deleted {
		ids = append(ids, "delete:"+path)
	}
	if len(ids) == 0 {
		return nil
	}

	done := e.runtime.Tracker().Register(ids)

	for _, u := range units {
		msg := ingest.Message{ID: "file:" + u.Path, Group: "index", Epoch: epoch, Payload: u.Ops}
		if err := e.runtime.Submit(ctx, msg); err != nil {
			return fmt.Errorf("engine: submit %s: %w", u.Path, err)
		}
	}
	for _, path := range deleted {
		ops := []plugin.GraphOp{{Kind: plugin.OpRemovePath, Path: path}}
		msg := ingest.Message{ID: "delete:" + path, Group: "index", Epoch: epoch, Payload: ops}
		if err := e.runtime.Submit(ctx, msg); err != nil {
			return fmt.Errorf("engine: submit deletion %s: %w", path, err)
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	n, err := e.runtime.CommitEpoch(epoch)
	if err != nil {
		return fmt.Errorf("engine: commit epoch %d: %w", epoch, err)
	}
	e.logger.Info("engine.batch.committed", "epoch", epoch, "ops", n, "files", len(units), "deleted", len(deleted))
	return nil
}

func (e *Engine) nextEpoch() uint64 {
	e.epochSeq++
	return e.epochSeq
}

// execute implements ingest.ExecuteFunc: every message this engine
// submits already carries its precomputed ops (compiling happens
// up front in runBatch, since the compiler's build-first ordering
// needs the whole batch at once, not one file at a time).
func (e *Engine) execute(msg ingest.Message) ingest.Result {
	ops, _ := msg.Payload.([]plugin.GraphOp)
	return ingest.Result{MsgID: msg.ID, Status: ingest.StatusDone, Operations: ops}
}

// commitEpoch implements ingest.CommitFunc: clone the published graph,
// apply ops, publish the clone. The previous graph stays valid for any
// reader still holding it (spec.md §5 "the graph itself inside a
// snapshot is immutable"). Once the batch's own ops are applied, it runs
// the stub-materialization stage (spec.md §4.G/§4.N) over those ops
// against the now-current graph, folding any generated stub nodes into
// the same published snapshot rather than waiting for a later epoch.
func (e *Engine) commitEpoch(epoch uint64, ops []plugin.GraphOp) error {
	e.kindMu.Lock()
	defer e.kindMu.Unlock()

	cur := e.cell.Load()
	var next *graphmodel.Graph
	if cur == nil {
		next = graphmodel.New()
	} else {
		next = cur.Clone()
	}
	for _, op := range ops {
		e.applyOp(next, op)
	}
	e.materializeStubs(next, ops)
	e.cell.Publish(next)
	return nil
}

// materializeStubs runs the stub planner over the batch's ops against
// next (which already has those ops applied) and, when an asset manager
// is configured, resolves the resulting requests and folds their
// AddNode ops into next directly. Plugin-side stub failures are
// downgraded to a log line (spec.md §4's "Error Semantics": "plugin-side
// failures in stub generation are downgraded... leave node
// Unresolved/Partial").
func (e *Engine) materializeStubs(next *graphmodel.Graph, ops []plugin.GraphOp) {
	if e.assets == nil {
		return
	}
	known := func(flatFQN string) bool {
		_, ok := next.ResolveFQN(e.interner, flatFQN)
		return ok
	}
	requests := stubplan.Plan(ops, known, next.AssetRoute)
	if len(requests) == 0 {
		return
	}
	for _, stubOp := range e.assets.Resolve(requests, nil) {
		e.applyOp(next, stubOp)
	}
}

// rebuildFlatKindCache repopulates flatKind from a freshly loaded
// graph, so edges resolved in a later Refresh reuse the exact FqnId a
// past session's AddNode already minted.
func (e *Engine) rebuildFlatKindCache(g *graphmodel.Graph) {
	e.kindMu.Lock()
	defer e.kindMu.Unlock()
	e.flatKind = make(map[string]atom.NodeKind)
	if g == nil {
		return
	}
	for _, id := range g.AllNodeIDs() {
		n, ok := g.GetNode(id)
		if !ok {
			continue
		}
		flat := e.interner.Render(id)
		e.flatKind[flat] = n.Kind
	}
}
