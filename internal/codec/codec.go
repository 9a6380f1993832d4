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

// Package codec persists a graph snapshot (an atom.Interner plus a
// graphmodel.Graph) to disk and restores it (spec.md §4.C). The format
// is a u32 version tag followed by a gob-encoded envelope of pooled
// atoms, pooled FqnId entries, nodes, edges, and the auxiliary indices.
//
// Per-node Metadata is opaque to the core (spec.md §3's "metadata: an
// opaque, language-defined value"), so it is encoded/decoded through a
// MetadataCodecLookup capability keyed by the node's language text,
// rather than gob-registering every language's concrete metadata type
// here. A node whose language has no registered codec (or whose
// lookup is nil) persists with empty metadata — it comes back on load
// as Partial/whatever Status it was saved with, not as a decode
// failure (spec.md §7 "Persistence decode failure is recoverable").
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

// CurrentVersion is written to every snapshot this build produces. A
// version mismatch on load is not a crash: it means "treat this as no
// index" (spec.md §7), same as a missing file.
const CurrentVersion uint32 = 1

// ErrVersionMismatch is returned by Load when the on-disk snapshot's
// version tag does not match CurrentVersion.
var ErrVersionMismatch = errors.New("codec: snapshot version mismatch")

// ErrCorrupt is returned by Load when the envelope cannot be decoded.
var ErrCorrupt = errors.New("codec: snapshot envelope is corrupt")

// MetadataCodecLookup resolves the metadata codec capability for a
// node's language text. Satisfied by *plugin.Registry.
type MetadataCodecLookup interface {
	MetadataCodecForLang(lang string) (plugin.MetadataCodec, bool)
}

// Snapshot bundles an interner and a graph: the two halves that must be
// persisted and restored together, since the graph's FqnId/Atom values
// are meaningless without the interner that minted them.
type Snapshot struct {
	Interner *atom.Interner
	Graph    *graphmodel.Graph
}

type nodeDTO struct {
	ID            atom.FqnId
	Name          atom.Atom
	Kind          atom.NodeKind
	Lang          atom.Atom
	Source        graphmodel.NodeSource
	Status        graphmodel.NodeStatus
	Location      *graphmodel.Location
	Modifiers     []string
	MetadataLang  string
	MetadataBytes []byte
}

type fileIndexDTO struct {
	Path  atom.Atom
	Meta  graphmodel.FileMeta
	Nodes []atom.FqnId
}

type referenceIndexDTO struct {
	Token atom.Atom
	Paths []atom.Atom
}

type envelope struct {
	Atoms          []string
	Entries        []atom.FqnEntryDTO
	Nodes          []nodeDTO
	Edges          []graphmodel.Edge
	FileIndex      []fileIndexDTO
	ReferenceIndex []referenceIndexDTO
	AssetRoutes    map[string][]string
}

// Encode serializes snap into a versioned byte stream. lookup may be
// nil (every node's metadata is then dropped on save).
func Encode(snap Snapshot, lookup MetadataCodecLookup) ([]byte, error) {
	atoms, entries := snap.Interner.Export()

	env := envelope{
		Atoms:       atoms,
		Entries:     entries,
		AssetRoutes: snap.Graph.AssetRoutesSnapshot(),
	}

	for _, id := range snap.Graph.AllNodeIDs() {
		n, ok := snap.Graph.GetNode(id)
		if !ok {
			continue
		}
		dto := nodeDTO{
			ID:        n.ID,
			Name:      n.Name,
			Kind:      n.Kind,
			Lang:      n.Lang,
			Source:    n.Source,
			Status:    n.Status,
			Location:  n.Location,
			Modifiers: n.Modifiers,
		}
		if n.Metadata != nil {
			langText := snap.Interner.ResolveAtom(n.Lang)
			if codec, ok := lookupCodec(lookup, langText); ok {
				encoded, err := codec.EncodeMetadata(n.Metadata, nil)
				if err != nil {
					return nil, fmt.Errorf("codec: encode metadata for %s: %w", langText, err)
				}
				dto.MetadataLang = langText
				dto.MetadataBytes = encoded
			}
		}
		env.Nodes = append(env.Nodes, dto)
	}

	env.Edges = snap.Graph.AllEdges()

	for _, path := range snap.Graph.Paths() {
		meta, _ := snap.Graph.FileMeta(path)
		env.FileIndex = append(env.FileIndex, fileIndexDTO{Path: path, Meta: meta})
	}
	for tok, paths := range snap.Graph.ReferenceIndexSnapshot() {
		env.ReferenceIndex = append(env.ReferenceIndex, referenceIndexDTO{Token: tok, Paths: paths})
	}

	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(env); err != nil {
		return nil, fmt.Errorf("codec: encode envelope: %w", err)
	}

	out := make([]byte, 4, 4+body.Len())
	binary.BigEndian.PutUint32(out, CurrentVersion)
	out = append(out, body.Bytes()...)
	return out, nil
}

// Decode restores a Snapshot from bytes produced by Encode. lookup may
// be nil (every node's metadata decodes to nil).
func Decode(data []byte, lookup MetadataCodecLookup) (Snapshot, error) {
	if len(data) < 4 {
		return Snapshot{}, ErrCorrupt
	}
	version := binary.BigEndian.Uint32(data[:4])
	if version != CurrentVersion {
		return Snapshot{}, ErrVersionMismatch
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data[4:])).Decode(&env); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	in := atom.Import(env.Atoms, env.Entries)
	g := graphmodel.New()

	for _, fe := range env.FileIndex {
		g.UpdateFile(fe.Path, fe.Meta)
	}

	for _, dto := range env.Nodes {
		n := graphmodel.Node{
			ID:        dto.ID,
			Name:      dto.Name,
			Kind:      dto.Kind,
			Lang:      dto.Lang,
			Source:    dto.Source,
			Status:    dto.Status,
			Location:  dto.Location,
			Modifiers: dto.Modifiers,
		}
		if len(dto.MetadataBytes) > 0 {
			if codec, ok := lookupCodec(lookup, dto.MetadataLang); ok {
				meta, err := codec.DecodeMetadata(dto.MetadataBytes, nil)
				if err == nil {
					n.Metadata = meta
				}
				// A decode error here demotes the node to metadata-less
				// rather than failing the whole load (spec.md §7).
			}
		}
		g.AddNode(n)
	}

	for _, e := range env.Edges {
		g.AddEdge(e)
	}

	refIdx := make(map[atom.Atom][]atom.Atom, len(env.ReferenceIndex))
	for _, r := range env.ReferenceIndex {
		refIdx[r.Token] = r.Paths
	}
	g.RestoreReferenceIndex(refIdx)
	g.RestoreAssetRoutes(env.AssetRoutes)

	return Snapshot{Interner: in, Graph: g}, nil
}

func lookupCodec(lookup MetadataCodecLookup, lang string) (plugin.MetadataCodec, bool) {
	if lookup == nil || lang == "" {
		return nil, false
	}
	return lookup.MetadataCodecForLang(lang)
}

// Save atomically writes snap to path: encode, write to path+".tmp",
// then rename over path. Grounded on the teacher's checkpoint save
// pattern (write-temp-then-rename so a crash mid-write never leaves a
// half-written index on disk).
func Save(path string, snap Snapshot, lookup MetadataCodecLookup) error {
	data, err := Encode(snap, lookup)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("codec: create index dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("codec: write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("codec: rename temp snapshot: %w", err)
	}
	return nil
}

// Load reads and decodes the snapshot at path. A missing file, a
// version mismatch, or a corrupt envelope are all reported as distinct
// errors so the caller (internal/engine) can decide to rebuild rather
// than treat every failure as fatal.
func Load(path string, lookup MetadataCodecLookup) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	return Decode(data, lookup)
}
