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

package jsonout

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriteToPrettyPrints(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"fqn": "pkg.Widget", "count": 42}

	if err := WriteTo(&buf, data); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "  \"fqn\"") {
		t.Errorf("expected 2-space indentation, got: %s", out)
	}
	if !strings.Contains(out, `"count": 42`) {
		t.Errorf("missing count field, got: %s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("expected trailing newline, got: %q", out)
	}
}

func TestWriteCompactToIsSingleLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCompactTo(&buf, map[string]any{"fqn": "pkg.Widget"}); err != nil {
		t.Fatalf("WriteCompactTo failed: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "  ") {
		t.Errorf("compact output should not be indented, got: %s", out)
	}
	if !strings.Contains(out, `"fqn":"pkg.Widget"`) {
		t.Errorf("missing fqn field in compact output, got: %s", out)
	}
}

func TestWriteErrorToWrapsErrorField(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteErrorTo(&buf, errors.New("fqn not found")); err != nil {
		t.Fatalf("WriteErrorTo failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"error": "fqn not found"`) {
		t.Errorf("missing error field, got: %s", out)
	}
}

func TestWriteToRespectsJSONTags(t *testing.T) {
	type result struct {
		FQN       string `json:"fqn"`
		OmitEmpty string `json:"omit_empty,omitempty"`
	}
	var buf bytes.Buffer
	if err := WriteTo(&buf, result{FQN: "pkg.Widget"}); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"fqn"`) {
		t.Errorf("expected fqn field, got: %s", out)
	}
	if strings.Contains(out, "omit_empty") {
		t.Errorf("expected omit_empty to be omitted, got: %s", out)
	}
}
