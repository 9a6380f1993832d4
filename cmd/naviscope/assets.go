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

	"github.com/kraklabs/naviscope/internal/uerrors"
	"github.com/kraklabs/naviscope/internal/ui"
)

// assetsResult is the --json shape for `naviscope assets`.
type assetsResult struct {
	Discovered int                 `json:"discovered"`
	Routes     map[string][]string `json:"routes"`
}

// runAssets scans every registered language's global assets, merges
// the discovered routes into the snapshot, and reports what it found
// (spec.md §4.I's scan_global_assets, §4.N).
func runAssets(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("assets", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope assets <path>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope assets")

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, "Scanning assets")

	count, scanErr := a.engine.ScanGlobalAssets(context.Background())
	if spinner != nil {
		_ = spinner.Finish()
	}
	if scanErr != nil {
		uerrors.Fatal(uerrors.NewScanError(
			"Asset scan failed",
			scanErr.Error(),
			"Check that every registered language's asset discoverer can run",
			scanErr,
		), globals.JSON)
	}

	routes := a.engine.Snapshot().AssetRoutesSnapshot()
	if globals.JSON {
		writeJSON(assetsResult{Discovered: count, Routes: routes})
		return
	}

	if count == 0 && len(routes) == 0 {
		ui.Info("No language registered an asset discoverer, or none found assets")
		return
	}
	ui.Successf("Discovered %d asset(s) across %d route(s)", count, len(routes))
	for prefix, paths := range routes {
		fmt.Printf("  %-30s %v\n", prefix, paths)
	}
}
