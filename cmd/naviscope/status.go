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

// statusResult is the --json shape for `naviscope status`.
type statusResult struct {
	ProjectID string `json:"project_id"`
	Root      string `json:"root"`
	Indexed   bool   `json:"indexed"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Languages int    `json:"languages"`
}

// runStatus reports the engine's current snapshot statistics.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope status <path>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope status")

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	g := a.engine.Snapshot()
	result := statusResult{
		ProjectID: a.cfg.ProjectID,
		Root:      a.root,
		Indexed:   a.indexFound,
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
		Languages: len(a.registry.Languages()),
	}

	if globals.JSON {
		writeJSON(result)
		return
	}

	ui.Header("Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), result.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Root:"), ui.DimText(result.Root))
	if !result.Indexed {
		fmt.Println()
		ui.Warning("Not indexed yet. Run 'naviscope index " + path + "' first.")
		return
	}
	fmt.Println()
	ui.SubHeader("Snapshot:")
	fmt.Printf("  %s %s\n", ui.Label("Nodes:"), ui.CountText(result.Nodes))
	fmt.Printf("  %s %s\n", ui.Label("Edges:"), ui.CountText(result.Edges))
	fmt.Printf("  %s %s\n", ui.Label("Registered languages:"), ui.CountText(result.Languages))
}
