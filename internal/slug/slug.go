/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package slug parses scene heading strings ("INT. LOCATION - TIME") into
// structured fields. Analyze never fails: malformed input yields all-unknown
// fields rather than an error.
package slug

import (
	"regexp"
	"strings"

	"screenwright/internal/screenplay"
)

// Accepts INT, EXT, EST (establishing, treated as EXT), I/E and INT./EXT.
// with periods or slashes, case-insensitive.
var rePrefix = regexp.MustCompile(`(?i)^(INT\.?\s*/\s*EXT|EXT\.?\s*/\s*INT|I/E|INT|EXT|EST)[.\s/]+`)

// Analyze derives a SlugInfo from a scene heading line.
func Analyze(text string) screenplay.SlugInfo {
	info := screenplay.SlugInfo{IntExt: screenplay.IntExtUnknown}
	rest := strings.TrimSpace(text)
	if rest == "" {
		return info
	}

	if m := rePrefix.FindString(rest); m != "" {
		info.IntExt = classifyPrefix(m)
		rest = strings.TrimSpace(rest[len(m):])
	}

	// Split location from time-of-day on the last " - " occurrence so that
	// hyphenated locations ("FORTY-SECOND STREET - NIGHT") survive.
	if idx := strings.LastIndex(rest, " - "); idx >= 0 {
		info.Location = strings.TrimSpace(rest[:idx])
		info.TimeOfDay = strings.ToUpper(strings.TrimSpace(rest[idx+3:]))
	} else {
		info.Location = rest
	}
	return info
}

func classifyPrefix(m string) screenplay.IntExt {
	u := strings.ToUpper(m)
	hasInt := strings.Contains(u, "INT") || strings.HasPrefix(u, "I/")
	hasExt := strings.Contains(u, "EXT") || strings.Contains(u, "/E") || strings.Contains(u, "EST")
	switch {
	case hasInt && hasExt:
		return screenplay.IntExtBoth
	case hasInt:
		return screenplay.IntExtInt
	case hasExt:
		return screenplay.IntExtExt
	default:
		return screenplay.IntExtUnknown
	}
}

// IsSceneHeading reports whether a line looks like a slugline. Shared by the
// fountain and plain-text parsers.
func IsSceneHeading(line string) bool {
	return rePrefix.MatchString(strings.TrimSpace(line))
}
