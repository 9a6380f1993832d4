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

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/naviscope/internal/asset"
	"github.com/kraklabs/naviscope/internal/cfg"
	"github.com/kraklabs/naviscope/internal/engine"
	"github.com/kraklabs/naviscope/internal/nav"
	"github.com/kraklabs/naviscope/internal/plugin"
	"github.com/kraklabs/naviscope/internal/query"
	"github.com/kraklabs/naviscope/internal/scan"
	"github.com/kraklabs/naviscope/internal/semantic"
	"github.com/kraklabs/naviscope/internal/uerrors"
)

// app bundles the engine and the read-only facades built on top of it,
// so every subcommand can open one and get everything it might need
// without repeating the wiring. No concrete language plugin is
// registered here: openApp creates an empty plugin.Registry and
// registers no language or build-tool bundle in it. With nothing
// registered, indexing still runs — it just finds no files any Matcher
// claims, so status reports zero entities rather than failing.
type app struct {
	root       string
	cfg        cfg.Project
	cfgFound   bool
	indexFound bool
	registry   *plugin.Registry
	cache      *asset.StubCache
	logger     *slog.Logger
	engine     *engine.Engine
	query      *query.Service
	nav        *nav.Resolver
	semantic   *semantic.Facade
}

// openApp resolves root to an absolute path, loads its project
// configuration, constructs an engine (loading its persisted index if
// present), and wires the query/nav/semantic facades on top.
func openApp(root string, globals GlobalFlags) (*app, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, uerrors.NewInputError(
			"Invalid project path",
			err.Error(),
			"Pass a path to an existing directory",
		)
	}
	if info, statErr := os.Stat(abs); statErr != nil || !info.IsDir() {
		return nil, uerrors.NewInputError(
			"Project path does not exist or is not a directory",
			abs,
			"Pass a path to an existing directory",
		)
	}

	project, cfgFound, err := cfg.Load(abs)
	if err != nil {
		return nil, uerrors.NewConfigError(
			"Could not load project configuration",
			err.Error(),
			"Fix or remove .naviscope/project.yaml and try again",
			err,
		)
	}

	logger := newLogger(globals)
	registry := plugin.NewRegistry()
	cache := asset.NewStubCache(filepath.Join(abs, cfg.DirName, "stub_cache.gob"))
	if err := cache.Load(registry); err != nil {
		logger.Warn("naviscope.stubcache.load.failed", "err", err)
	}

	eng, err := engine.New(engine.Options{
		Root:     abs,
		Registry: registry,
		Ignore:   scan.NewIgnoreSet(project.Ignore),
		Assets:   asset.New(registry, cache, logger),
		Logger:   logger,
	})
	if err != nil {
		return nil, uerrors.NewInternalError(
			"Could not construct the indexing engine",
			err.Error(),
			"This is a bug; please report it",
			err,
		)
	}

	indexFound, err := eng.Load()
	if err != nil {
		return nil, uerrors.NewSnapshotError(
			"Could not load the persisted index",
			err.Error(),
			"Run 'naviscope index "+root+"' to rebuild it",
			err,
		)
	}

	if err := eng.SeedAssetRoutes(project.AssetRoutes); err != nil {
		return nil, uerrors.NewSnapshotError(
			"Could not seed configured asset routes",
			err.Error(),
			"Check .naviscope/project.yaml's asset_routes block",
			err,
		)
	}

	return &app{
		root:       abs,
		cfg:        project,
		cfgFound:   cfgFound,
		indexFound: indexFound,
		registry:   registry,
		cache:      cache,
		logger:     logger,
		engine:     eng,
		query:      query.New(eng, eng.Interner(), registry),
		nav:        nav.New(eng, eng.Interner()),
		semantic:   semantic.New(eng, eng.Interner(), registry),
	}, nil
}

// close stops the engine's background goroutines and persists the stub
// cache built up during this run.
func (a *app) close() {
	a.engine.Close()
	if err := a.cache.Save(a.registry); err != nil {
		a.logger.Warn("naviscope.stubcache.save.failed", "err", err)
	}
}

func newLogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
