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

// Package cfg loads and saves .naviscope/project.yaml, the per-project
// configuration file: ignore patterns layered over internal/scan's
// default relevance filter, and asset-route seeds applied before a
// project's first scan. Grounded on the teacher's cmd/cie/init.go
// project.yaml concept, generalized from the teacher's server-endpoint
// fields (edge_cache, primary_hub) to naviscope's indexing concerns.
package cfg

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DirName is the configuration directory created under a project root.
const DirName = ".naviscope"

// FileName is the configuration file within DirName.
const FileName = "project.yaml"

// Project is the on-disk shape of .naviscope/project.yaml.
type Project struct {
	// ProjectID names the project in multi-project setups; defaults to
	// the root directory's base name when empty.
	ProjectID string `yaml:"project_id,omitempty"`

	// Ignore holds extra doublestar glob patterns layered over
	// internal/scan's built-in relevance filter (dot-dirs, build/
	// target/node_modules, binary sniffing).
	Ignore []string `yaml:"ignore,omitempty"`

	// AssetRoutes seeds asset_routes before the first scan, so edges
	// into an external FQN resolve to a stub on the very first build
	// rather than only after ScanGlobalAssets discovers the asset route
	// organically. Keyed by FQN prefix, valued by asset path(s).
	AssetRoutes map[string][]string `yaml:"asset_routes,omitempty"`
}

// Path returns the config file path for a project rooted at root.
func Path(root string) string {
	return filepath.Join(root, DirName, FileName)
}

// Default returns the configuration written by `naviscope index` when
// no project.yaml exists yet: projectID derived from root's base name,
// no extra ignores or route seeds.
func Default(root string) Project {
	return Project{ProjectID: filepath.Base(root)}
}

// Load reads and parses root's project.yaml. A missing file is not an
// error — it returns Default(root), ok=false, so callers can tell
// "using defaults" apart from "explicitly configured".
func Load(root string) (cfg Project, ok bool, err error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(root), false, nil
		}
		return Project{}, false, fmt.Errorf("cfg: read %s: %w", Path(root), err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Project{}, false, fmt.Errorf("cfg: parse %s: %w", Path(root), err)
	}
	if p.ProjectID == "" {
		p.ProjectID = filepath.Base(root)
	}
	return p, true, nil
}

// Save writes cfg to root's project.yaml, creating DirName if needed.
func Save(root string, cfg Project) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cfg: marshal project config: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, DirName), 0o755); err != nil {
		return fmt.Errorf("cfg: create %s: %w", DirName, err)
	}
	if err := os.WriteFile(Path(root), data, 0o644); err != nil {
		return fmt.Errorf("cfg: write %s: %w", Path(root), err)
	}
	return nil
}
