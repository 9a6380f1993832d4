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
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/naviscope/internal/jsonout"
	"github.com/kraklabs/naviscope/internal/uerrors"
)

// requirePath pulls the mandatory leading positional <path> argument
// off fs, exiting with a uerrors.UserError-shaped message when absent.
// cmdUsage names the failing command for the error text (e.g.
// "naviscope ls").
func requirePath(fs *flag.FlagSet, cmdUsage string) string {
	args := fs.Args()
	if len(args) == 0 {
		uerrors.Fatal(uerrors.NewInputError(
			"Missing required <path> argument",
			"",
			"Usage: "+cmdUsage+" <path> [args...]",
		), false)
	}
	return args[0]
}

// resolveFQN runs target through the navigation resolver (spec.md
// §4.L's absolute/relative/fuzzy order), exiting via uerrors when it's
// ambiguous or not found at all. Callers pass the resolved, exact flat
// FQN on to query.Service, which only matches exact FQNs.
func resolveFQN(a *app, target string) string {
	outcome := a.nav.Resolve(target, "")
	switch {
	case outcome.Resolved != "":
		return outcome.Resolved
	case len(outcome.Ambiguous) > 0:
		uerrors.Fatal(uerrors.NewInputError(
			"Ambiguous target: "+target,
			"matches: "+strings.Join(outcome.Ambiguous, ", "),
			"Use one of the listed fully-qualified names",
		), false)
	default:
		uerrors.Fatal(uerrors.NewNotFoundError(
			"No node matches "+target,
			"",
			"Run 'naviscope ls' or 'naviscope grep' to find a valid FQN",
		), false)
	}
	return ""
}

// writeJSON writes data to stdout as pretty-printed JSON via
// internal/jsonout, exiting via uerrors on encode failure.
func writeJSON(data any) {
	if err := jsonout.WriteTo(os.Stdout, data); err != nil {
		uerrors.Fatal(uerrors.NewInternalError(
			"Could not encode JSON output",
			err.Error(),
			"This is a bug; please report it",
			err,
		), false)
	}
}
