/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"bytes"
	"path/filepath"
	"strings"

	"screenwright/internal/screenplay"
	"screenwright/internal/slug"
)

// extFormats is the extension allow-list. Files with an extension outside
// this set are rejected before any content inspection.
var extFormats = map[string]screenplay.Format{
	".fdx":      screenplay.FormatFDX,
	".fountain": screenplay.FormatFountain,
	".pdf":      screenplay.FormatPDF,
	".txt":      screenplay.FormatTXT,
}

// SupportedExtensions returns the allow-list for user-facing messages.
func SupportedExtensions() []string {
	return []string{".fdx", ".fountain", ".pdf", ".txt"}
}

// mimeFormats maps upload MIME types the boundary forwards to a format.
// text/plain is deliberately absent: browsers attach it to Fountain files
// too, so plain text goes through sniffing instead.
var mimeFormats = map[string]screenplay.Format{
	"application/pdf":            screenplay.FormatPDF,
	"application/xml":            screenplay.FormatFDX,
	"text/xml":                   screenplay.FormatFDX,
	"text/x-fountain":            screenplay.FormatFountain,
	"text/fountain":              screenplay.FormatFountain,
	"application/vnd.finaldraft": screenplay.FormatFDX,
}

// Detect chooses the format for a file. A recognized extension wins; a
// missing extension falls back to the declared MIME type, then content
// sniffing; any other extension is rejected with a structured,
// user-presentable error.
func Detect(f screenplay.ScriptFile) (screenplay.Format, error) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if format, ok := extFormats[ext]; ok {
		return format, nil
	}
	if ext == "" {
		if format, ok := mimeFormats[mediaType(f.MIME)]; ok {
			return format, nil
		}
		return sniff(f.Data), nil
	}
	return "", &screenplay.UnsupportedFormatError{Extension: ext, Supported: SupportedExtensions()}
}

// mediaType strips parameters like "; charset=utf-8" from a MIME value.
func mediaType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// sniff inspects byte content: PDF magic, then XML with a FinalDraft root,
// else Fountain when slugline conventions appear, plain text otherwise.
func sniff(data []byte) screenplay.Format {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.HasPrefix(head, []byte("%PDF")) {
		return screenplay.FormatPDF
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<FinalDraft")) {
		return screenplay.FormatFDX
	}
	for _, line := range strings.Split(string(data), "\n") {
		if slug.IsSceneHeading(line) {
			return screenplay.FormatFountain
		}
	}
	return screenplay.FormatTXT
}
