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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/naviscope/internal/uerrors"
	"github.com/kraklabs/naviscope/internal/ui"
)

// runClear removes the persisted index for <path>, resetting it to
// empty in memory as well (spec.md §5's clear_project_index).
func runClear(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope clear <path>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope clear")

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	if err := a.engine.ClearProjectIndex(); err != nil {
		uerrors.Fatal(uerrors.NewSnapshotError(
			"Could not clear the project index",
			err.Error(),
			"Check file permissions on the index path and try again",
			err,
		), globals.JSON)
	}

	if globals.JSON {
		writeJSON(map[string]any{"cleared": true, "root": a.root})
		return
	}
	ui.Successf("Cleared index for %s", a.root)
}
