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

// runDeps shows a node's outgoing dependency edges, or its dependents
// (incoming edges) with --reverse.
func runDeps(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("deps", flag.ExitOnError)
	reverse := fs.Bool("reverse", false, "Show dependents (incoming edges) instead of dependencies")
	edgeFilter := fs.String("edge", "", "Comma-separated edge kinds to include")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope deps <path> <fqn> [--reverse] [--edge=calls,implements]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope deps")
	rest := fs.Args()
	if len(rest) < 2 {
		uerrors.Fatal(uerrors.NewInputError(
			"Missing required <fqn> argument",
			"",
			"Usage: naviscope deps <path> <fqn>",
		), globals.JSON)
	}

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	fqn := resolveFQN(a, rest[1])
	deps, err := a.query.Deps(fqn, *reverse, parseEdgeKinds(*edgeFilter))
	if err != nil {
		uerrors.Fatal(uerrors.NewNotFoundError(
			"Could not find "+fqn,
			err.Error(),
			"Run 'naviscope grep' to find a valid FQN",
		), globals.JSON)
	}

	if globals.JSON {
		writeJSON(deps)
		return
	}
	if len(deps) == 0 {
		ui.Info("No dependency edges")
		return
	}
	for _, d := range deps {
		fmt.Printf("%-14s %-10s %s\n", d.Kind.String(), d.Node.Kind.String(), d.Node.FQN)
	}
}
