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

package asset

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

const cacheVersion uint32 = 1

// cacheKeySep separates an entry's asset_key from its fqn within the
// in-memory map key; neither half can legally contain it (asset keys
// are hex hashes, fqns never contain unit-separator control bytes).
const cacheKeySep = "\x1f"

// MetadataLookup resolves the MetadataCodec capability for a language,
// mirroring internal/codec's lookup contract (spec.md §4.C) so the stub
// cache's metadata framing stays consistent with the main index's.
type MetadataLookup interface {
	MetadataCodecForLang(lang string) (plugin.MetadataCodec, bool)
}

// StubCache is GlobalStubCache (spec.md §4.N): a persisted key-value
// store keyed by (asset_key, fqn), so a rebuilt asset's content hash
// change automatically invalidates whatever was cached under its old
// key. Encoding mirrors internal/codec's choice (gob envelope, metadata
// delegated per-language) for the same reasons documented there.
type StubCache struct {
	mu    sync.Mutex
	path  string
	byKey map[string]plugin.IndexNode
}

// NewStubCache returns an empty cache backed by path. Call Load to
// populate it from a prior run.
func NewStubCache(path string) *StubCache {
	return &StubCache{path: path, byKey: make(map[string]plugin.IndexNode)}
}

func cacheKey(assetKey, fqn string) string { return assetKey + cacheKeySep + fqn }

func splitCacheKey(key string) (assetKey, fqn string, ok bool) {
	idx := strings.Index(key, cacheKeySep)
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+len(cacheKeySep):], true
}

// Get returns the cached stub node for (assetKey, fqn), if any.
func (c *StubCache) Get(assetKey, fqn string) (plugin.IndexNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.byKey[cacheKey(assetKey, fqn)]
	return n, ok
}

// Put records node under (assetKey, fqn), replacing any prior entry.
func (c *StubCache) Put(assetKey, fqn string, node plugin.IndexNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[cacheKey(assetKey, fqn)] = node
}

// cacheEnvelope is the gob-encoded on-disk shape.
type cacheEnvelope struct {
	Version uint32
	Entries []cacheEntryDTO
}

type cacheEntryDTO struct {
	AssetKey string
	FQN      string
	Node     indexNodeDTO
}

// indexNodeDTO is plugin.IndexNode with Metadata replaced by its
// per-language-encoded bytes, so gob never has to reflect over an `any`
// it wasn't told how to handle.
type indexNodeDTO struct {
	FlatFQN       string
	Name          string
	Kind          atom.NodeKind
	Lang          string
	Source        graphmodel.NodeSource
	Status        graphmodel.NodeStatus
	Path          string
	Range         graphmodel.Range
	Selection     *graphmodel.Range
	Modifiers     []string
	MetadataBytes []byte
}

// Load reads path and merges its entries into the cache, decoding each
// entry's metadata through lookup. A missing file is not an error (the
// cache starts empty); a corrupt file is logged by the caller and
// treated the same way — stub generation just re-runs for everything.
func (c *StubCache) Load(lookup MetadataLookup) error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var env cacheEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return fmt.Errorf("asset: decode stub cache: %w", err)
	}
	if env.Version != cacheVersion {
		return fmt.Errorf("asset: stub cache version %d unsupported", env.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range env.Entries {
		node := plugin.IndexNode{
			FlatFQN:   e.Node.FlatFQN,
			Name:      e.Node.Name,
			Kind:      e.Node.Kind,
			Lang:      e.Node.Lang,
			Source:    e.Node.Source,
			Status:    e.Node.Status,
			Path:      e.Node.Path,
			Range:     e.Node.Range,
			Selection: e.Node.Selection,
			Modifiers: e.Node.Modifiers,
		}
		if len(e.Node.MetadataBytes) > 0 {
			if mc, ok := lookup.MetadataCodecForLang(e.Node.Lang); ok {
				if meta, err := mc.DecodeMetadata(e.Node.MetadataBytes, nil); err == nil {
					node.Metadata = meta
				}
			}
		}
		c.byKey[cacheKey(e.AssetKey, e.FQN)] = node
	}
	return nil
}

// Save atomically writes the cache to path (write-temp-then-rename,
// matching internal/codec.Save's crash-safety).
func (c *StubCache) Save(lookup MetadataLookup) error {
	c.mu.Lock()
	env := cacheEnvelope{Version: cacheVersion}
	for key, node := range c.byKey {
		assetKey, fqn, ok := splitCacheKey(key)
		if !ok {
			continue
		}
		dto := indexNodeDTO{
			FlatFQN:   node.FlatFQN,
			Name:      node.Name,
			Kind:      node.Kind,
			Lang:      node.Lang,
			Source:    node.Source,
			Status:    node.Status,
			Path:      node.Path,
			Range:     node.Range,
			Selection: node.Selection,
			Modifiers: node.Modifiers,
		}
		if node.Metadata != nil {
			if mc, ok := lookup.MetadataCodecForLang(node.Lang); ok {
				if b, err := mc.EncodeMetadata(node.Metadata, nil); err == nil {
					dto.MetadataBytes = b
				}
			}
		}
		env.Entries = append(env.Entries, cacheEntryDTO{AssetKey: assetKey, FQN: fqn, Node: dto})
	}
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("asset: encode stub cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("asset: create stub cache dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("asset: write temp stub cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("asset: rename temp stub cache: %w", err)
	}
	return nil
}
