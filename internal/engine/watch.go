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

package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow is how long start_watch waits for filesystem events to
// settle before triggering a refresh (spec.md §4.I "≈500 ms").
const debounceWindow = 500 * time.Millisecond

// StartWatch spawns a watcher goroutine that coalesces filesystem
// events with a debounce, filters by relevance, and invokes Refresh.
// It terminates when ctx is cancelled; call StopWatch or cancel ctx to
// stop it. Only one watch may be active at a time.
//
// Grounded on the fsnotify-driven watcher pattern in the pack's
// theRebelliousNerd-codenerd repo: a single fsnotify.Watcher feeding a
// debounce timer that is Reset on every event and fires Refresh only
// once the stream goes quiet.
func (e *Engine) StartWatch(ctx context.Context) error {
	e.opMu.Lock()
	already := e.watchStop != nil
	e.opMu.Unlock()
	if already {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTreeRecursive(watcher, e.root); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	e.opMu.Lock()
	e.watchStop = cancel
	e.watchDone = done
	e.opMu.Unlock()

	go func() {
		defer close(done)
		defer watcher.Close()
		e.watchLoop(watchCtx, watcher)
	}()
	return nil
}

// StopWatch cancels any active watch and waits for its goroutine to
// exit. Safe to call when no watch is active.
func (e *Engine) StopWatch() {
	e.opMu.Lock()
	stop := e.watchStop
	done := e.watchDone
	e.watchStop = nil
	e.watchDone = nil
	e.opMu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

func (e *Engine) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !watchRelevant(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
				}
			}
			pending = true
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounceWindow)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := e.Refresh(ctx); err != nil {
				e.logger.Warn("engine.watch.refresh.failed", "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			e.logger.Warn("engine.watch.error", "err", err)
		}
	}
}

// watchRelevant mirrors internal/scan's dot-dir/build-output filter for
// single-path fsnotify events (scan.Scan can't be reused directly here
// since it walks a tree, not a single changed path).
func watchRelevant(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return false
		}
		switch part {
		case "target", "build", "node_modules", "vendor":
			return false
		}
	}
	return true
}

// addTreeRecursive registers root and every relevant subdirectory with
// watcher; fsnotify only watches the directories it is explicitly
// handed, not their descendants.
func addTreeRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !watchRelevant(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
