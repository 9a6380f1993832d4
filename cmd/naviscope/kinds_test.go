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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
)

func TestParseKindsEmpty(t *testing.T) {
	assert.Nil(t, parseKinds(""))
}

func TestParseKindsCaseInsensitiveAndTrimmed(t *testing.T) {
	got := parseKinds(" Class, method ,INTERFACE")
	assert.Equal(t, []atom.NodeKind{atom.KindClass, atom.KindMethod, atom.KindInterface}, got)
}

func TestParseEdgeKindsEmpty(t *testing.T) {
	assert.Nil(t, parseEdgeKinds(""))
}

func TestParseEdgeKindsCaseInsensitive(t *testing.T) {
	got := parseEdgeKinds("calls,InheritsFrom")
	assert.Equal(t, []graphmodel.EdgeKind{graphmodel.EdgeCalls, graphmodel.EdgeInheritsFrom}, got)
}

func TestMatchKindUnknown(t *testing.T) {
	_, ok := matchKind("nonsense")
	assert.False(t, ok)
}

func TestMatchEdgeKindUnknown(t *testing.T) {
	_, ok := matchEdgeKind("nonsense")
	assert.False(t, ok)
}
