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

// runGrep finds nodes by name, a substring or regex pattern.
func runGrep(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("grep", flag.ExitOnError)
	kindFilter := fs.String("kind", "", "Comma-separated node kinds to include")
	limit := fs.Int("limit", 0, "Maximum results (0 = unbounded)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope grep <path> <pattern> [--kind=class] [--limit=N]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope grep")
	rest := fs.Args()
	if len(rest) < 2 {
		uerrors.Fatal(uerrors.NewInputError(
			"Missing required <pattern> argument",
			"",
			"Usage: naviscope grep <path> <pattern>",
		), globals.JSON)
	}
	pattern := rest[1]

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	nodes, err := a.query.Find(pattern, parseKinds(*kindFilter), *limit)
	if err != nil {
		uerrors.Fatal(uerrors.NewInternalError(
			"Search failed",
			err.Error(),
			"This is a bug; please report it",
			err,
		), globals.JSON)
	}

	if globals.JSON {
		writeJSON(nodes)
		return
	}
	if len(nodes) == 0 {
		ui.Info("No matches")
		return
	}
	for _, n := range nodes {
		fmt.Printf("%-10s %s\n", n.Kind.String(), n.FQN)
	}
}
