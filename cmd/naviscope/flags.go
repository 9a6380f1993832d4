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

// GlobalFlags carries the flags every subcommand respects, parsed once
// in main before the command dispatch.
type GlobalFlags struct {
	// JSON routes command output through internal/jsonout instead of
	// internal/ui. Implies Quiet (progress bars write to stderr, which
	// would otherwise interleave with the JSON document on stdout, but
	// --json callers are almost always piping both into the same
	// consumer).
	JSON bool

	// Quiet suppresses progress bars/spinners.
	Quiet bool

	// NoColor disables ANSI color codes regardless of TTY detection.
	NoColor bool

	// Verbose increases log verbosity; each repetition of -v lowers the
	// slog level by one step (info, then debug).
	Verbose int
}

// effectiveQuiet reports whether progress output should be suppressed,
// folding in the --json implication.
func (g GlobalFlags) effectiveQuiet() bool {
	return g.Quiet || g.JSON
}
