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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/naviscope/internal/plugin"
	"github.com/kraklabs/naviscope/internal/scan"
)

type fakeDiscoverer struct{ assets []plugin.Asset }

func (f fakeDiscoverer) DiscoverGlobalAssets() ([]plugin.Asset, error)        { return f.assets, nil }
func (f fakeDiscoverer) DiscoverProjectAssets(string) ([]plugin.Asset, error) { return nil, nil }

type fakeIndexer struct{}

func (fakeIndexer) IndexAsset(asset plugin.Asset) ([]string, error) {
	return []string{"vendor." + asset.Path}, nil
}

func TestScanGlobalAssetsUpdatesAssetRoutes(t *testing.T) {
	root := t.TempDir()

	reg := plugin.NewRegistry()
	reg.RegisterLanguage(plugin.LanguageBundle{
		Lang:    "go",
		Matcher: goMatcher{},
		Assets: &plugin.AssetBundle{
			Discoverer: fakeDiscoverer{assets: []plugin.Asset{{Path: "acme"}}},
			Indexer:    fakeIndexer{},
		},
	})

	e, err := New(Options{
		Root:      root,
		IndexPath: filepath.Join(root, ".idx", "test.idx"),
		Registry:  reg,
		Ignore:    scan.NewIgnoreSet(nil),
	})
	require.NoError(t, err)
	defer e.Close()

	n, err := e.ScanGlobalAssets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	routes, ok := e.Snapshot().AssetRoute("vendor.acme.Widget")
	require.True(t, ok)
	assert.Equal(t, []string{"acme"}, routes)
}
