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

package semantic

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
)

// byteColumnFromUTF16 converts an editor-convention (line, UTF-16
// column) pair into the byte column a tree-sitter plugin expects
// (spec.md §4.M's "byte-column convention"). line is 0-based into
// content; utf16Col counts UTF-16 code units from the start of that
// line, so a rune outside the Basic Multilingual Plane consumes two.
func byteColumnFromUTF16(content []byte, line, utf16Col int) int {
	lineBytes := nthLine(content, line)
	if lineBytes == nil {
		return 0
	}

	var byteOff, units int
	for units < utf16Col && byteOff < len(lineBytes) {
		r, size := utf8.DecodeRune(lineBytes[byteOff:])
		if r == utf8.RuneError && size <= 1 {
			byteOff++
			units++
			continue
		}
		byteOff += size
		units += utf16.RuneLen(r)
	}
	return byteOff
}

// nthLine returns the 0-based line'th line of content, excluding its
// trailing newline, or nil if content has fewer lines.
func nthLine(content []byte, line int) []byte {
	start := 0
	for i := 0; i < line; i++ {
		idx := bytes.IndexByte(content[start:], '\n')
		if idx < 0 {
			return nil
		}
		start += idx + 1
	}
	rest := content[start:]
	if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// identifierAt extracts the contiguous run of identifier characters
// (letters, digits, '_') touching byteCol on the given line of content,
// for the purely syntactic lookup find_highlights performs (spec.md
// §4.M: "for the identifier under cursor").
func identifierAt(content []byte, line, byteCol int) string {
	lineBytes := nthLine(content, line)
	if lineBytes == nil || byteCol < 0 || byteCol > len(lineBytes) {
		return ""
	}
	isIdentByte := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}
	start := byteCol
	for start > 0 && isIdentByte(lineBytes[start-1]) {
		start--
	}
	end := byteCol
	for end < len(lineBytes) && isIdentByte(lineBytes[end]) {
		end++
	}
	if start == end {
		return ""
	}
	return string(lineBytes[start:end])
}
