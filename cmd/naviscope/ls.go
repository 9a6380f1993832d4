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

// runLs lists the children of an fqn (project/module roots when fqn is
// omitted).
func runLs(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	kindFilter := fs.String("kind", "", "Comma-separated node kinds to include")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope ls <path> [fqn] [--kind=class,method]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope ls")
	var target string
	if rest := fs.Args(); len(rest) > 1 {
		target = rest[1]
	}

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	fqn := ""
	if target != "" {
		fqn = resolveFQN(a, target)
	}

	nodes, err := a.query.Ls(fqn, parseKinds(*kindFilter), nil)
	if err != nil {
		uerrors.Fatal(uerrors.NewNotFoundError(
			"Could not list "+target,
			err.Error(),
			"Run 'naviscope ls' with no arguments to see the project roots",
		), globals.JSON)
	}

	if globals.JSON {
		writeJSON(nodes)
		return
	}
	if len(nodes) == 0 {
		ui.Info("No children found")
		return
	}
	for _, n := range nodes {
		fmt.Printf("%-10s %s\n", n.Kind.String(), n.FQN)
	}
}
