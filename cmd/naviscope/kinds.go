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
	"fmt"
	"strings"

	"github.com/kraklabs/naviscope/internal/atom"
	"github.com/kraklabs/naviscope/internal/graphmodel"
	"github.com/kraklabs/naviscope/internal/uerrors"
)

var nodeKinds = []atom.NodeKind{
	atom.KindProject, atom.KindModule, atom.KindPackage, atom.KindClass,
	atom.KindInterface, atom.KindEnum, atom.KindAnnotation, atom.KindConstructor,
	atom.KindMethod, atom.KindField, atom.KindVariable, atom.KindParameter,
}

var edgeKinds = []graphmodel.EdgeKind{
	graphmodel.EdgeContains, graphmodel.EdgeInheritsFrom, graphmodel.EdgeImplements,
	graphmodel.EdgeCalls, graphmodel.EdgeReferences, graphmodel.EdgeInstantiates,
	graphmodel.EdgeTypedAs, graphmodel.EdgeUsesDependency, graphmodel.EdgeDecoratedBy,
}

// parseKinds turns a comma-separated --kind value into NodeKinds,
// exiting via uerrors on an unrecognized name.
func parseKinds(raw string) []atom.NodeKind {
	if raw == "" {
		return nil
	}
	var out []atom.NodeKind
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		k, ok := matchKind(name)
		if !ok {
			uerrors.Fatal(uerrors.NewInputError(
				fmt.Sprintf("Unknown node kind %q", name),
				"",
				"Valid kinds: project, module, package, class, interface, enum, annotation, constructor, method, field, variable, parameter",
			), false)
		}
		out = append(out, k)
	}
	return out
}

func matchKind(name string) (atom.NodeKind, bool) {
	for _, k := range nodeKinds {
		if strings.EqualFold(k.String(), name) {
			return k, true
		}
	}
	return atom.KindUnknown, false
}

// parseEdgeKinds turns a comma-separated --edge value into EdgeKinds,
// exiting via uerrors on an unrecognized name.
func parseEdgeKinds(raw string) []graphmodel.EdgeKind {
	if raw == "" {
		return nil
	}
	var out []graphmodel.EdgeKind
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		k, ok := matchEdgeKind(name)
		if !ok {
			uerrors.Fatal(uerrors.NewInputError(
				fmt.Sprintf("Unknown edge kind %q", name),
				"",
				"Valid kinds: contains, inheritsfrom, implements, calls, references, instantiates, typedas, usesdependency, decoratedby",
			), false)
		}
		out = append(out, k)
	}
	return out
}

func matchEdgeKind(name string) (graphmodel.EdgeKind, bool) {
	for _, k := range edgeKinds {
		if strings.EqualFold(k.String(), name) {
			return k, true
		}
	}
	return 0, false
}
