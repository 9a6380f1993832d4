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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/naviscope/internal/uerrors"
	"github.com/kraklabs/naviscope/internal/ui"
)

// runWatch indexes once, then keeps the engine's filesystem watcher
// running (debounced incremental refresh) until interrupted.
func runWatch(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: naviscope watch <path>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs, "naviscope watch")

	a, err := openApp(path, globals)
	if err != nil {
		uerrors.Fatal(err, globals.JSON)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !a.indexFound {
		ui.Info("No index found; building one before watching")
		if err := a.engine.Rebuild(ctx); err != nil {
			uerrors.Fatal(uerrors.NewScanError(
				"Initial index build failed",
				err.Error(),
				"Check file permissions under "+a.root+" and try again",
				err,
			), globals.JSON)
		}
	}

	if err := a.engine.StartWatch(ctx); err != nil {
		uerrors.Fatal(uerrors.NewScanError(
			"Could not start the filesystem watcher",
			err.Error(),
			"Check that "+a.root+" is reachable and not on a network mount fsnotify can't watch",
			err,
		), globals.JSON)
	}

	ui.Successf("Watching %s (Ctrl-C to stop)", a.root)
	<-ctx.Done()
	a.engine.StopWatch()
	ui.Info("Stopped")
}
