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

import "sync"

// LanguageBundle groups every capability one language may supply. Only
// Lang, Matcher and Parser are required; the rest are optional and
// callers must nil-check before use (spec.md §6: "a language plugin
// implements as many or as few capability interfaces as it needs").
type LanguageBundle struct {
	Lang    string
	Ext     []string
	Matcher FileMatcher
	Parser  LanguageParse

	SourceIndexCap SourceIndex
	Semantic       Semantic
	Presentation   Presentation
	MetadataCodec  MetadataCodec
	Naming         NamingConvention
	Assets         *AssetBundle
}

// BuildToolBundle groups the capabilities one build tool (Maven,
// Gradle, go.mod, package.json...) may supply.
type BuildToolBundle struct {
	Name    string
	Matcher FileMatcher

	BuildParseCap BuildParse
	BuildIndexCap BuildIndex
}

// Registry is the read-after-construction lookup table from path,
// language tag, or build-tool name to the capability bundle that
// handles it (spec.md §4.D). Registration happens once at startup;
// after that every method here is safe for concurrent read-only use.
type Registry struct {
	mu sync.RWMutex

	languages  []LanguageBundle
	byLang     map[string]LanguageBundle
	buildTools []BuildToolBundle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byLang: make(map[string]LanguageBundle)}
}

// RegisterLanguage adds b to the registry. Later registrations for the
// same Lang replace earlier ones.
func (r *Registry) RegisterLanguage(b LanguageBundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[b.Lang] = b
	for i, existing := range r.languages {
		if existing.Lang == b.Lang {
			r.languages[i] = b
			return
		}
	}
	r.languages = append(r.languages, b)
}

// RegisterBuildTool adds b to the registry.
func (r *Registry) RegisterBuildTool(b BuildToolBundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buildTools = append(r.buildTools, b)
}

// MatchLanguage returns the language bundle whose Matcher claims path,
// first-registered-wins on a tie.
func (r *Registry) MatchLanguage(path string) (LanguageBundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.languages {
		if b.Matcher != nil && b.Matcher.SupportsPath(path) {
			return b, true
		}
	}
	return LanguageBundle{}, false
}

// MatchBuildTool returns the build-tool bundle whose Matcher claims
// path.
func (r *Registry) MatchBuildTool(path string) (BuildToolBundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.buildTools {
		if b.Matcher != nil && b.Matcher.SupportsPath(path) {
			return b, true
		}
	}
	return BuildToolBundle{}, false
}

// LanguageByName looks up a registered bundle by its Lang tag exactly
// (used when a node's Lang atom has already been resolved to text).
func (r *Registry) LanguageByName(lang string) (LanguageBundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byLang[lang]
	return b, ok
}

// Languages returns every registered language bundle, in registration
// order.
func (r *Registry) Languages() []LanguageBundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]LanguageBundle(nil), r.languages...)
}

// BuildTools returns every registered build-tool bundle.
func (r *Registry) BuildTools() []BuildToolBundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]BuildToolBundle(nil), r.buildTools...)
}

// MetadataCodecForLang implements codec.MetadataCodecLookup: it
// resolves the MetadataCodec capability registered for lang, if any.
func (r *Registry) MetadataCodecForLang(lang string) (MetadataCodec, bool) {
	b, ok := r.LanguageByName(lang)
	if !ok || b.MetadataCodec == nil {
		return nil, false
	}
	return b.MetadataCodec, true
}

// NamingConventionForLang resolves the NamingConvention capability for
// lang, falling back to DefaultNamingConvention when the language
// supplies none.
func (r *Registry) NamingConventionForLang(lang string) NamingConvention {
	if b, ok := r.LanguageByName(lang); ok && b.Naming != nil {
		return b.Naming
	}
	return DefaultNamingConvention{}
}

// PresentationForLang resolves the Presentation capability for lang,
// falling back to DefaultPresentation when the language supplies none
// (spec.md §4.K: every returned node is hydrated through a presenter,
// registered or not).
func (r *Registry) PresentationForLang(lang string) Presentation {
	if b, ok := r.LanguageByName(lang); ok && b.Presentation != nil {
		return b.Presentation
	}
	return DefaultPresentation{}
}
