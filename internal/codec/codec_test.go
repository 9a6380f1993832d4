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

package codec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

type fakeMeta struct {
	Doc string
}

type fakeMetadataCodec struct{}

func (fakeMetadataCodec) EncodeMetadata(meta any, _ any) ([]byte, error) {
	m := meta.(fakeMeta)
	return []byte(m.Doc), nil
}

func (fakeMetadataCodec) DecodeMetadata(data []byte, _ any) (any, error) {
	return fakeMeta{Doc: string(data)}, nil
}

type fakeRegistry struct{}

func (fakeRegistry) MetadataCodecForLang(lang string) (plugin.MetadataCodec, bool) {
	if lang != "go" {
		return nil, false
	}
	return fakeMetadataCodec{}, true
}

func buildSnapshot(t *testing.T) Snapshot {
	t.Helper()
	in := atom.New()
	g := graphmodel.New()

	goLang := in.InternAtom("go")
	path := in.InternAtom("main.go")
	pkg := in.InternNode(0, in.InternAtom("main"), atom.KindPackage)
	fn := in.InternNode(pkg, in.InternAtom("Run"), atom.KindMethod)

	g.AddNode(graphmodel.Node{
		ID:     pkg,
		Name:   in.InternAtom("main"),
		Kind:   atom.KindPackage,
		Lang:   goLang,
		Status: graphmodel.StatusResolved,
	})
	g.AddNode(graphmodel.Node{
		ID:     fn,
		Name:   in.InternAtom("Run"),
		Kind:   atom.KindMethod,
		Lang:   goLang,
		Status: graphmodel.StatusResolved,
		Location: &graphmodel.Location{
			Path:  path,
			Range: graphmodel.Range{Start: graphmodel.Position{Line: 1}, End: graphmodel.Position{Line: 5}},
		},
		Metadata: fakeMeta{Doc: "runs the program"},
	})
	g.AddEdge(graphmodel.Edge{From: pkg, To: fn, Kind: graphmodel.EdgeContains})
	g.UpdateFile(path, graphmodel.FileMeta{ContentHash: 42})
	g.UpdateIdentifiers(path, []atom.Atom{in.InternAtom("Run")})
	g.UpdateAssetRoutes(map[string][]string{"main": {"/assets/stdlib"}})

	return Snapshot{Interner: in, Graph: g}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	snap := buildSnapshot(t)
	data, err := Encode(snap, fakeRegistry{})
	require.NoError(t, err)

	restored, err := Decode(data, fakeRegistry{})
	require.NoError(t, err)

	fnName := restored.Interner.InternAtom("Run")
	pkgName := restored.Interner.InternAtom("main")
	pkgID := restored.Interner.InternNode(0, pkgName, atom.KindPackage)
	fnID := restored.Interner.InternNode(pkgID, fnName, atom.KindMethod)

	n, ok := restored.Graph.GetNode(fnID)
	require.True(t, ok)
	assert.Equal(t, graphmodel.StatusResolved, n.Status)
	require.NotNil(t, n.Metadata)
	assert.Equal(t, fakeMeta{Doc: "runs the program"}, n.Metadata)

	assert.Equal(t, 1, restored.Graph.EdgeCount())

	path := restored.Interner.InternAtom("main.go")
	meta, ok := restored.Graph.FileMeta(path)
	require.True(t, ok)
	assert.Equal(t, uint64(42), meta.ContentHash)

	candidates := restored.Graph.CandidateFiles(fnName)
	assert.Contains(t, candidates, path)

	assets, ok := restored.Graph.AssetRoute("main.Helper")
	require.True(t, ok)
	assert.Equal(t, []string{"/assets/stdlib"}, assets)
}

func TestDecodeVersionMismatch(t *testing.T) {
	snap := buildSnapshot(t)
	data, err := Encode(snap, fakeRegistry{})
	require.NoError(t, err)
	data[3] = data[3] + 1 // corrupt the low byte of the version tag

	_, err = Decode(data, fakeRegistry{})
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeCorruptEnvelope(t *testing.T) {
	data := []byte{0, 0, 0, 1, 0xff, 0xff, 0xff}
	_, err := Decode(data, fakeRegistry{})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeWithoutLookupDropsMetadata(t *testing.T) {
	snap := buildSnapshot(t)
	data, err := Encode(snap, nil)
	require.NoError(t, err)

	restored, err := Decode(data, nil)
	require.NoError(t, err)

	fnName := restored.Interner.InternAtom("Run")
	pkgID := restored.Interner.InternNode(0, restored.Interner.InternAtom("main"), atom.KindPackage)
	fnID := restored.Interner.InternNode(pkgID, fnName, atom.KindMethod)
	n, ok := restored.Graph.GetNode(fnID)
	require.True(t, ok)
	assert.Nil(t, n.Metadata)
}

func TestSaveLoadAtomicity(t *testing.T) {
	snap := buildSnapshot(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.naviscope")

	require.NoError(t, Save(path, snap, fakeRegistry{}))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not survive a successful save")

	restored, err := Load(path, fakeRegistry{})
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Graph.EdgeCount())
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.naviscope"), fakeRegistry{})
	assert.Error(t, err)
}
