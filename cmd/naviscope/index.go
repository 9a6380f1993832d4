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
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/naviscope/internal/cfg"
	"github.com/kraklabs/naviscope/internal/uerrors"
	"github.com/kraklabs/naviscope/internal/ui"
)

// runIndex rebuilds the index from scratch when no persisted snapshot
// exists yet, and refreshes (incremental rescan) otherwise. --full
// forces a rebuild regardless.
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force a full rebuild even if an index already exists")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope index <path> [--full]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope index")

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	if !a.cfgFound {
		if err := cfg.Save(a.root, a.cfg); err != nil {
			a.logger.Warn("naviscope.cfg.save.failed", "err", err)
		}
	}

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, "Indexing")

	ctx := context.Background()
	var opErr error
	if *full || !a.indexFound {
		opErr = a.engine.Rebuild(ctx)
	} else {
		opErr = a.engine.Refresh(ctx)
	}
	if spinner != nil {
		_ = spinner.Finish()
	}
	if opErr != nil {
		uerrors.Fatal(uerrors.NewScanError(
			"Indexing failed",
			opErr.Error(),
			"Check file permissions under "+a.root+" and try again",
			opErr,
		), globals.JSON)
	}

	g := a.engine.Snapshot()
	if globals.JSON {
		writeJSON(map[string]any{
			"project_id": a.cfg.ProjectID,
			"root":       a.root,
			"nodes":      g.NodeCount(),
			"edges":      g.EdgeCount(),
		})
		return
	}
	ui.Successf("Indexed %s", a.root)
	fmt.Printf("  %s %s\n", ui.Label("Nodes:"), ui.CountText(g.NodeCount()))
	fmt.Printf("  %s %s\n", ui.Label("Edges:"), ui.CountText(g.EdgeCount()))
}
