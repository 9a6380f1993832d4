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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
	"github.com/kraklabs/naviscope/internal/scan"
)

type goMatcher struct{}

func (goMatcher) SupportsPath(path string) bool { return strings.HasSuffix(path, ".go") }

// fakeGoSource turns a file named "pkg/<Name>.go" into one class node,
// plus a Calls edge to whatever the file's content names as "calls:X".
type fakeGoSource struct{}

func (fakeGoSource) CompileSource(file plugin.FileInput, _ *plugin.ProjectContext) (plugin.ResolvedUnit, error) {
	base := strings.TrimSuffix(filepath.Base(file.Path), ".go")
	flat := "pkg." + base
	ops := []plugin.GraphOp{
		{
			Kind: plugin.OpAddNode,
			AddNode: plugin.IndexNode{
				FlatFQN: flat,
				Name:    base,
				Kind:    atom.KindClass,
				Lang:    "go",
				Source:  graphmodel.SourceProject,
				Status:  graphmodel.StatusResolved,
				Path:    file.Path,
			},
		},
	}
	content := string(file.Content)
	if target, ok := strings.CutPrefix(content, "calls:"); ok {
		target = strings.TrimSpace(target)
		ops = append(ops, plugin.GraphOp{
			Kind:            plugin.OpAddEdge,
			EdgeFromFlatFQN: flat,
			EdgeToFlatFQN:   "pkg." + target,
			EdgeKind:        graphmodel.EdgeCalls,
		})
	}
	return plugin.ResolvedUnit{Ops: ops, Identifiers: []string{base}}, nil
}

func newTestRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	reg.RegisterLanguage(plugin.LanguageBundle{
		Lang:           "go",
		Matcher:        goMatcher{},
		SourceIndexCap: fakeGoSource{},
	})
	return reg
}

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	e, err := New(Options{
		Root:      root,
		IndexPath: filepath.Join(root, ".idx", "test.idx"),
		Registry:  newTestRegistry(),
		Ignore:    scan.NewIgnoreSet(nil),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func writeGoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRebuildIndexesProjectTree(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "pkg/Alpha.go", "package alpha")
	writeGoFile(t, root, "pkg/Beta.go", "calls:Alpha")

	e := newTestEngine(t, root)
	require.NoError(t, e.Rebuild(context.Background()))

	g := e.Snapshot()
	require.NotNil(t, g)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "pkg/Alpha.go", "package alpha")

	e := newTestEngine(t, root)
	require.NoError(t, e.Rebuild(context.Background()))
	before := e.Snapshot().NodeCount()

	e2, err := New(Options{
		Root:      root,
		IndexPath: filepath.Join(root, ".idx", "test.idx"),
		Registry:  newTestRegistry(),
		Ignore:    scan.NewIgnoreSet(nil),
	})
	require.NoError(t, err)
	defer e2.Close()

	found, err := e2.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, before, e2.Snapshot().NodeCount())
}

func TestLoadAbsentIndexReportsNotFound(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)
	found, err := e.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadCorruptIndexReportsNotFoundAndRemovesFile(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)
	require.NoError(t, os.MkdirAll(filepath.Dir(e.indexPath), 0o755))
	require.NoError(t, os.WriteFile(e.indexPath, []byte("not a real index"), 0o644))

	found, err := e.Load()
	require.NoError(t, err)
	assert.False(t, found)
	_, statErr := os.Stat(e.indexPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRefreshOnlyProcessesChangedFiles(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "pkg/Alpha.go", "package alpha")

	e := newTestEngine(t, root)
	require.NoError(t, e.Rebuild(context.Background()))
	require.Equal(t, 1, e.Snapshot().NodeCount())

	writeGoFile(t, root, "pkg/Beta.go", "calls:Alpha")
	require.NoError(t, e.Refresh(context.Background()))

	g := e.Snapshot()
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestRefreshRemovesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "pkg/Alpha.go", "package alpha")
	writeGoFile(t, root, "pkg/Beta.go", "package beta")

	e := newTestEngine(t, root)
	require.NoError(t, e.Rebuild(context.Background()))
	require.Equal(t, 2, e.Snapshot().NodeCount())

	require.NoError(t, os.Remove(filepath.Join(root, "pkg/Beta.go")))
	require.NoError(t, e.Refresh(context.Background()))

	assert.Equal(t, 1, e.Snapshot().NodeCount())
}

func TestClearProjectIndexEmptiesGraphAndRemovesFile(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "pkg/Alpha.go", "package alpha")

	e := newTestEngine(t, root)
	require.NoError(t, e.Rebuild(context.Background()))
	require.NoError(t, e.ClearProjectIndex())

	g := e.Snapshot()
	require.NotNil(t, g)
	assert.Equal(t, 0, g.NodeCount())
	_, statErr := os.Stat(e.indexPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDefaultIndexPathHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NAVISCOPE_INDEX_DIR", dir)

	path, err := DefaultIndexPath("/some/project")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
	assert.True(t, strings.HasSuffix(path, ".idx"))
}
