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

// Package scan walks a project tree and reports which files changed
// since the last index (spec.md §4.E). It never touches the graph
// directly — it hands the ingest runtime a plain list of FileInputs to
// compile and a plain list of paths that disappeared.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

// defaultSkipDirs mirrors spec's relevance filter: directories that are
// never worth walking into regardless of ignore patterns.
var defaultSkipDirs = map[string]struct{}{
	"target":       {},
	"build":        {},
	"node_modules": {},
	"vendor":       {},
	".git":         {},
}

// IgnoreSet holds project-supplied .gitignore-style glob patterns,
// evaluated relative to the scan root.
type IgnoreSet struct {
	patterns []string
}

// NewIgnoreSet builds an IgnoreSet from doublestar-compatible glob
// patterns (e.g. "**/*_generated.go", "testdata/**").
func NewIgnoreSet(patterns []string) *IgnoreSet {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		out = append(out, p)
	}
	return &IgnoreSet{patterns: out}
}

// Matches reports whether relPath (slash-separated, relative to the
// scan root) is excluded by any pattern.
func (s *IgnoreSet) Matches(relPath string) bool {
	if s == nil {
		return false
	}
	for _, pat := range s.patterns {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

// relevant applies the dot-dir and well-known build-output skip rules,
// independent of the project's own ignore patterns.
func relevant(name string, isDir bool) bool {
	if isDir {
		if _, skip := defaultSkipDirs[name]; skip {
			return false
		}
		if strings.HasPrefix(name, ".") && name != "." {
			return false
		}
		return true
	}
	return true
}

// Scan walks root and returns every file whose content changed (or is
// new) relative to previous, a MetaOnly entry for every file whose mtime
// moved but whose hash did not, plus every previously-known path that no
// longer exists. previous is keyed by the path relative to root,
// slash-separated — the same form the FileInput.Path results use.
//
// Grounded on the teacher's pkg/ingestion/delta.go FilterDelta: that
// function filters an already-known git diff; this one performs the
// full-tree walk a delta detector has no diff to drive, then applies
// the same mtime-skip/content-hash discipline per file.
func Scan(root string, ignore *IgnoreSet, previous map[string]graphmodel.FileMeta) (changed []plugin.FileInput, deleted []string, err error) {
	seen := make(map[string]struct{}, len(previous))

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if !relevant(d.Name(), d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ignore.Matches(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}
		seen[rel] = struct{}{}

		mtime := info.ModTime().UnixNano()
		if prev, ok := previous[rel]; ok && prev.LastModified == mtime {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		if looksBinary(content) {
			return nil
		}
		hash := xxhash.Sum64(content)
		if prev, ok := previous[rel]; ok && prev.ContentHash == hash {
			// Touched but not edited: LastModified still needs to advance,
			// or every future Scan re-reads and re-hashes this file forever
			// (it can never again take the mtime fast-path above). No
			// content changed, so there is no compile work to redo here --
			// just the new LastModified.
			changed = append(changed, plugin.FileInput{
				Path:         rel,
				ContentHash:  hash,
				LastModified: mtime,
				MetaOnly:     true,
			})
			return nil
		}

		changed = append(changed, plugin.FileInput{
			Path:         rel,
			Content:      content,
			ContentHash:  hash,
			LastModified: mtime,
		})
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}

	for rel := range previous {
		if _, ok := seen[rel]; !ok {
			deleted = append(deleted, rel)
		}
	}
	return changed, deleted, nil
}

// looksBinary sniffs the first 8KB for a NUL byte, the same heuristic
// the teacher's delta detector uses to skip binary blobs.
func looksBinary(content []byte) bool {
	probe := content
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
