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

// runCat shows one node's fully hydrated detail.
func runCat(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope cat <path> <fqn>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope cat")
	rest := fs.Args()
	if len(rest) < 2 {
		uerrors.Fatal(uerrors.NewInputError(
			"Missing required <fqn> argument",
			"",
			"Usage: naviscope cat <path> <fqn>",
		), globals.JSON)
	}

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	fqn := resolveFQN(a, rest[1])
	node, err := a.query.Cat(fqn)
	if err != nil {
		uerrors.Fatal(uerrors.NewNotFoundError(
			"Could not find "+fqn,
			err.Error(),
			"Run 'naviscope grep' to find a valid FQN",
		), globals.JSON)
	}

	if globals.JSON {
		writeJSON(node)
		return
	}

	ui.Header(node.FQN)
	fmt.Printf("%s %s\n", ui.Label("Kind:"), node.Kind.String())
	if node.Signature != "" {
		fmt.Printf("%s %s\n", ui.Label("Signature:"), node.Signature)
	}
	if len(node.Modifiers) > 0 {
		fmt.Printf("%s %v\n", ui.Label("Modifiers:"), node.Modifiers)
	}
	if node.Path != "" {
		fmt.Printf("%s %s\n", ui.Label("Path:"), ui.DimText(node.Path))
	}
	if node.Detail != "" {
		fmt.Println()
		fmt.Println(node.Detail)
	}
}
