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

// Package uerrors provides structured error handling for the naviscope
// CLI: a UserError that carries what went wrong, why, and how to fix
// it, plus a semantic exit code per category (spec.md §6's CLI
// contract).
//
// Usage:
//
//	err := uerrors.NewConfigError(
//	    "No project configuration found",
//	    "Missing .naviscope/project.yaml",
//	    "Run 'naviscope index .' to create one",
//	    underlyingErr,
//	)
//	if err != nil {
//	    uerrors.Fatal(err, jsonMode)
//	}
package uerrors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	ExitSuccess = 0

	// ExitConfig indicates a missing or malformed project configuration.
	ExitConfig = 1

	// ExitSnapshot indicates a snapshot persistence error (locked,
	// corrupted, version mismatch).
	ExitSnapshot = 2

	// ExitScan indicates a filesystem scan or watch error.
	ExitScan = 3

	// ExitInput indicates invalid user input (bad arguments, bad FQN).
	ExitInput = 4

	// ExitPermission indicates permission denied (file access, etc.).
	ExitPermission = 5

	// ExitNotFound indicates a requested FQN, file, or asset could not
	// be found.
	ExitNotFound = 6

	// ExitInternal signals a bug that should be reported.
	ExitInternal = 10
)

// UserError is an error with structured context for end users: what
// went wrong (Message), why (Cause), and how to fix it (Fix), plus the
// exit code the CLI should use and an optional wrapped error.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// NewConfigError creates an ExitConfig error: use for a missing or
// malformed .naviscope/project.yaml.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewSnapshotError creates an ExitSnapshot error: use for snapshot
// file corruption, version mismatch, or a failed compaction.
func NewSnapshotError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitSnapshot, Err: err}
}

// NewScanError creates an ExitScan error: use for filesystem walk or
// watch failures.
func NewScanError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitScan, Err: err}
}

// NewInputError creates an ExitInput error. Input errors don't wrap an
// underlying error — the mistake is in what the user typed.
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewPermissionError creates an ExitPermission error.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitPermission, Err: err}
}

// NewNotFoundError creates an ExitNotFound error: use when an FQN,
// path, or asset the user named does not exist in the snapshot.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNotFound}
}

// NewInternalError creates an ExitInternal error: use for conditions
// that should be impossible — assertion failures, invariant breaks.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a colored, human-readable rendering of e. Color is
// suppressed when noColor is true or NO_COLOR is set.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// JSON is the machine-readable shape of a UserError, for --json mode.
type JSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts e to its JSON shape.
func (e *UserError) ToJSON() JSON {
	return JSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// Fatal prints err (colored, or as JSON when jsonOutput is set) and
// exits with its exit code. Non-UserError values exit ExitInternal.
// Fatal never returns.
func Fatal(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
