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

	"github.com/kraklabs/naviscope/internal/graphmodel"
)

// ScanGlobalAssets iterates every registered language's AssetDiscoverer,
// indexes what it finds, and merges the result into asset_routes
// (spec.md §4.I). Returns the number of discovered assets that were
// indexed successfully.
func (e *Engine) ScanGlobalAssets(ctx context.Context) (int, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	routes := make(map[string][]string)
	var count int

	for _, bundle := range e.registry.Languages() {
		if bundle.Assets == nil || bundle.Assets.Discoverer == nil || bundle.Assets.Indexer == nil {
			continue
		}
		assets, err := bundle.Assets.Discoverer.DiscoverGlobalAssets()
		if err != nil {
			e.logger.Warn("engine.assets.discover.failed", "lang", bundle.Lang, "err", err)
			continue
		}
		for _, asset := range assets {
			select {
			case <-ctx.Done():
				return count, ctx.Err()
			default:
			}
			prefixes, err := bundle.Assets.Indexer.IndexAsset(asset)
			if err != nil {
				e.logger.Warn("engine.assets.index.failed", "lang", bundle.Lang, "asset", asset.Path, "err", err)
				continue
			}
			for _, prefix := range prefixes {
				routes[prefix] = appendUniqueString(routes[prefix], asset.Path)
			}
			count++
		}
	}
	if len(routes) == 0 {
		return count, nil
	}

	cur := e.cell.Load()
	var next *graphmodel.Graph
	if cur == nil {
		next = graphmodel.New()
	} else {
		next = cur.Clone()
	}
	next.UpdateAssetRoutes(routes)
	e.cell.Publish(next)

	if err := e.saveLocked(); err != nil {
		return count, err
	}
	e.logger.Info("engine.assets.scan.ok", "assets", count, "routes", len(routes))
	return count, nil
}

func appendUniqueString(xs []string, x string) []string {
	for _, existing := range xs {
		if existing == x {
			return xs
		}
	}
	return append(xs, x)
}
