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

package plugin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type suffixMatcher string

func (s suffixMatcher) SupportsPath(path string) bool { return strings.HasSuffix(path, string(s)) }

func TestMatchLanguageFirstWins(t *testing.T) {
	r := NewRegistry()
	r.RegisterLanguage(LanguageBundle{Lang: "go", Matcher: suffixMatcher(".go")})
	r.RegisterLanguage(LanguageBundle{Lang: "go-generated", Matcher: suffixMatcher(".go")})

	b, ok := r.MatchLanguage("main.go")
	require.True(t, ok)
	assert.Equal(t, "go", b.Lang)
}

func TestLanguageByNameSurvivesManyRegistrations(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 32; i++ {
		r.RegisterLanguage(LanguageBundle{Lang: "lang" + string(rune('a'+i)), Matcher: suffixMatcher(".x")})
	}
	r.RegisterLanguage(LanguageBundle{Lang: "go", Matcher: suffixMatcher(".go"), MetadataCodec: fakeCodec{}})

	codec, ok := r.MetadataCodecForLang("go")
	require.True(t, ok)
	assert.NotNil(t, codec)
}

type fakeCodec struct{}

func (fakeCodec) EncodeMetadata(meta any, _ any) ([]byte, error) { return nil, nil }
func (fakeCodec) DecodeMetadata(_ []byte, _ any) (any, error)    { return nil, nil }

func TestNamingConventionFallsBackToDefault(t *testing.T) {
	r := NewRegistry()
	r.RegisterLanguage(LanguageBundle{Lang: "go", Matcher: suffixMatcher(".go")})
	nc := r.NamingConventionForLang("go")
	assert.Equal(t, ".", nc.Separator())

	nc2 := r.NamingConventionForLang("unknown")
	assert.Equal(t, ".", nc2.Separator())
}

func TestMatchBuildTool(t *testing.T) {
	r := NewRegistry()
	r.RegisterBuildTool(BuildToolBundle{Name: "gomod", Matcher: suffixMatcher("go.mod")})

	b, ok := r.MatchBuildTool("project/go.mod")
	require.True(t, ok)
	assert.Equal(t, "gomod", b.Name)

	_, ok = r.MatchBuildTool("project/pom.xml")
	assert.False(t, ok)
}
