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

// Package stubplan looks at a just-compiled batch of GraphOps and
// decides which external FQNs need a stub node materialized before the
// batch can be considered fully resolved (spec.md §4.G).
//
// Grounded on the teacher's pkg/ingestion/resolver.go UnresolvedCall
// bookkeeping: that code tracked calls it could not resolve within the
// repo so a later pass could retry them. Here the same bookkeeping is
// generalized from "retry within this repo" to "match against the
// asset route table and ask the asset subsystem (internal/asset) to
// generate a stub".
package stubplan

import (
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/plugin"
)

// StubRequest names one external FQN that needs materializing, plus
// the asset paths whose route table entry matched it.
type StubRequest struct {
	FQN            string
	CandidatePaths []string
}

// KnownFunc reports whether flatFQN already resolves to a node in the
// current (pre-commit) graph state.
type KnownFunc func(flatFQN string) bool

// RouteFunc resolves the asset paths registered for the longest known
// prefix of fqn (graphmodel.Graph.AssetRoute's shape, injected as a
// function so Plan never reads a graph itself).
type RouteFunc func(fqn string) ([]string, bool)

// Plan scans ops for AddEdge targets and AddNode{Source: External}
// entries not yet known, deduplicates them, and emits a StubRequest for
// every one whose FQN (or a trimmed prefix of it) matches an asset
// route. Entries with no matching route are silently dropped — spec.md
// §4.G: "Empty seen-set or empty routes short-circuits to no-op."
func Plan(ops []plugin.GraphOp, known KnownFunc, routes RouteFunc) []StubRequest {
	if known == nil || routes == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var candidates []string
	add := func(fqn string) {
		if fqn == "" {
			return
		}
		if known(fqn) {
			return
		}
		if _, dup := seen[fqn]; dup {
			return
		}
		seen[fqn] = struct{}{}
		candidates = append(candidates, fqn)
	}

	for _, op := range ops {
		switch op.Kind {
		case plugin.OpAddEdge:
			add(op.EdgeToFlatFQN)
		case plugin.OpAddNode:
			if op.AddNode.Source == graphmodel.SourceExternal {
				add(op.AddNode.FlatFQN)
			}
		}
	}

	var requests []StubRequest
	for _, fqn := range candidates {
		if paths, ok := routes(fqn); ok {
			requests = append(requests, StubRequest{FQN: fqn, CandidatePaths: paths})
		}
	}
	return requests
}
