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

package atom

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternAtomDeduplicates(t *testing.T) {
	in := New()
	a1 := in.InternAtom("hello")
	a2 := in.InternAtom("hello")
	a3 := in.InternAtom("world")

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, a3)
	assert.Equal(t, "hello", in.ResolveAtom(a1))
	assert.Equal(t, "world", in.ResolveAtom(a3))
}

func TestInternAtomStableAcrossLifetime(t *testing.T) {
	// Invariant 10: for the same string, InternAtom returns the same
	// atom across the process lifetime (here: across many calls).
	in := New()
	first := in.InternAtom("stable")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, in.InternAtom("stable"))
	}
}

func TestInternAtomConcurrentSafe(t *testing.T) {
	in := New()
	var wg sync.WaitGroup
	results := make([]Atom, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = in.InternAtom("shared")
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestInternNodeTreeStructure(t *testing.T) {
	in := New()
	pkgName := in.InternAtom("com")
	pkg := in.InternNode(0, pkgName, KindPackage)

	clsName := in.InternAtom("Widget")
	cls := in.InternNode(pkg, clsName, KindClass)

	methodName := in.InternAtom("render")
	method := in.InternNode(cls, methodName, KindMethod)

	require.True(t, in.WellFormed(method))
	assert.Equal(t, methodName, in.Name(method))
	assert.Equal(t, KindMethod, in.Kind(method))
	assert.Equal(t, cls, in.Parent(method))

	segs := in.Resolve(method)
	require.Len(t, segs, 3)
	assert.Equal(t, pkgName, segs[0].Name)
	assert.Equal(t, clsName, segs[1].Name)
	assert.Equal(t, methodName, segs[2].Name)
}

func TestInternNodeIdempotent(t *testing.T) {
	in := New()
	name := in.InternAtom("A")
	id1 := in.InternNode(0, name, KindClass)
	id2 := in.InternNode(0, name, KindClass)
	assert.Equal(t, id1, id2)

	// Different kind for the same (parent, name) is a distinct node.
	id3 := in.InternNode(0, name, KindInterface)
	assert.NotEqual(t, id1, id3)
}

func TestRenderUsesKindAwareSeparators(t *testing.T) {
	in := New()
	pkg := in.InternNode(0, in.InternAtom("com"), KindPackage)
	a := in.InternNode(pkg, in.InternAtom("a"), KindPackage)
	cls := in.InternNode(a, in.InternAtom("B"), KindClass)
	method := in.InternNode(cls, in.InternAtom("m"), KindMethod)

	assert.Equal(t, "com.a.B#m", in.Render(method))
}

func TestResolveUnmintedReturnsEmpty(t *testing.T) {
	in := New()
	assert.Nil(t, in.Resolve(FqnId(9999)))
	assert.False(t, in.WellFormed(FqnId(9999)))
	assert.Equal(t, "", in.ResolveAtom(Atom(9999)))
}

func TestKindPriorityOrdering(t *testing.T) {
	assert.Less(t, KindPriority(KindPackage), KindPriority(KindClass))
	assert.Less(t, KindPriority(KindClass), KindPriority(KindInterface))
	assert.Less(t, KindPriority(KindInterface), KindPriority(KindEnum))
	assert.Less(t, KindPriority(KindEnum), KindPriority(KindAnnotation))
	assert.Less(t, KindPriority(KindAnnotation), KindPriority(KindConstructor))
	assert.Less(t, KindPriority(KindConstructor), KindPriority(KindMethod))
	assert.Less(t, KindPriority(KindMethod), KindPriority(KindField))
	assert.Less(t, KindPriority(KindField), KindPriority(KindVariable))
}

func TestExportImportRoundTrip(t *testing.T) {
	in := New()
	pkg := in.InternNode(0, in.InternAtom("com"), KindPackage)
	cls := in.InternNode(pkg, in.InternAtom("Widget"), KindClass)
	method := in.InternNode(cls, in.InternAtom("render"), KindMethod)

	atoms, entries := in.Export()
	restored := Import(atoms, entries)

	assert.Equal(t, in.Render(method), restored.Render(method))
	assert.Equal(t, in.Name(method), restored.Name(method))
	assert.Equal(t, in.Kind(cls), restored.Kind(cls))
	require.True(t, restored.WellFormed(method))

	// The restored interner keeps stable-across-lifetime semantics for
	// strings already present.
	assert.Equal(t, in.InternAtom("com"), restored.InternAtom("com"))
}

func TestNodeKindString(t *testing.T) {
	cases := map[NodeKind]string{
		KindProject:     "project",
		KindModule:      "module",
		KindPackage:     "package",
		KindClass:       "class",
		KindInterface:   "interface",
		KindEnum:        "enum",
		KindAnnotation:  "annotation",
		KindConstructor: "constructor",
		KindMethod:      "method",
		KindField:       "field",
		KindVariable:    "variable",
		KindParameter:   "parameter",
		KindUnknown:     "unknown",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
