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

// Package main implements the naviscope CLI, a thin exerciser over the
// code knowledge graph core (internal/engine, internal/query,
// internal/nav, internal/semantic, internal/asset). It ships with no
// concrete language plugin registered; a deployment that wants real
// indexing wires one in ahead of the commands below.
//
// Usage:
//
//	naviscope index  <path>            rebuild or refresh the index
//	naviscope status <path>            engine + snapshot stats
//	naviscope ls     <path> [fqn]      list children of fqn (or roots)
//	naviscope grep   <path> <pattern>  find nodes by name
//	naviscope cat    <path> <fqn>      show one node's detail
//	naviscope deps   <path> <fqn>      show a node's dependency edges
//	naviscope watch  <path>            refresh on change until Ctrl-C
//	naviscope clear  <path>            drop the persisted index
//	naviscope assets <path>            scan global assets, report routes
//
// Global flags such as --json go before the command name
// (naviscope --json status <path>).
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/naviscope/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var globals GlobalFlags
	fs := flag.NewFlagSet("naviscope", flag.ExitOnError)
	fs.BoolVar(&globals.JSON, "json", false, "Output as JSON")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	showVersion := fs.Bool("version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `naviscope - code knowledge graph CLI

Usage:
  naviscope <command> <path> [args...] [flags]

Commands:
  index     rebuild or refresh the index under <path>
  status    show engine and snapshot statistics
  ls        list the children of an fqn (or project roots)
  grep      find nodes by name or pattern
  cat       show one node's hydrated detail
  deps      show a node's dependency/dependent edges
  watch     refresh the index on filesystem change until Ctrl-C
  clear     remove the persisted index for <path>
  assets    scan global assets and report discovered routes

Flags:
`)
		fs.PrintDefaults()
	}

	// With interspersed parsing off, fs.Parse below stops at the command
	// name, so the global flags (--json, --quiet, --no-color, -v,
	// --version) are read only when they precede the command. Each
	// subcommand's own FlagSet declares only that command's flags and
	// rejects a global flag given after the command.
	fs.SetInterspersed(false)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	ui.InitColors(globals.NoColor)

	if *showVersion {
		fmt.Printf("naviscope version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		return
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]

	var run func(args []string, globals GlobalFlags)
	switch command {
	case "index":
		run = runIndex
	case "status":
		run = runStatus
	case "ls":
		run = runLs
	case "grep":
		run = runGrep
	case "cat":
		run = runCat
	case "deps":
		run = runDeps
	case "watch":
		run = runWatch
	case "clear":
		run = runClear
	case "assets":
		run = runAssets
	default:
		fmt.Fprintf(os.Stderr, "naviscope: unknown command %q\n\n", command)
		fs.Usage()
		os.Exit(1)
	}
	run(rest, globals)
}
