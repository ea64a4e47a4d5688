/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package normalize turns a parser's RawElement stream into the canonical
// NormalizedScript: scenes grouped at heading boundaries, a deduplicated
// character registry with alias folding, and aggregate confidences.
//
// Confidence aggregation rule: a scene's confidence is the arithmetic mean of
// its member element confidences; the script's confidence is the
// element-count-weighted mean over all elements. Mean was chosen over min for
// stability; one low-confidence element should not sink a whole scene.
//
// Normalize is a pure transformation and never fails: an empty element list
// yields a script with zero scenes and confidence 0.0, leaving the usability
// decision to the quality gate.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"screenwright/internal/parse"
	"screenwright/internal/screenplay"
	"screenwright/internal/slug"
)

// linesPerPage approximates screenplay pagination when the parser supplies
// no page hints (fountain and plain text have none).
const linesPerPage = 55

var (
	reSceneNum = regexp.MustCompile(`\s*#([0-9A-Za-z.\-]+)#\s*$`)
	reCueAnnot = regexp.MustCompile(`\s*\(([^)]*)\)\s*$`)
)

// Normalize builds the immutable script aggregate from parser output.
func Normalize(els []screenplay.RawElement, format screenplay.Format, f screenplay.ScriptFile, meta parse.Meta) *screenplay.NormalizedScript {
	script := &screenplay.NormalizedScript{
		Title:  meta.Title,
		Author: meta.Author,
		Format: format,
		Pages:  meta.Pages,
		Meta: screenplay.Meta{
			ParsedAt:          time.Now().UTC(),
			OriginalFilename:  f.Name,
			ByteSize:          len(f.Data),
			UsedOCR:           meta.UsedOCR,
			PasswordProtected: meta.PasswordProtected,
		},
	}
	if len(els) == 0 {
		script.Scenes = []screenplay.NormalizedScene{}
		script.Characters = []screenplay.NormalizedCharacter{}
		return script
	}

	script.Scenes = groupScenes(els)
	script.Characters = buildRegistry(els)
	script.Meta.Confidence = weightedMean(els)
	if script.Pages == 0 {
		script.Pages = estimatePages(els)
	}
	return script
}

// groupScenes splits the stream at scene headings. Elements before the first
// heading form an implicit scene 0 container (title or cold-open action).
func groupScenes(els []screenplay.RawElement) []screenplay.NormalizedScene {
	var scenes []screenplay.NormalizedScene
	var cur *screenplay.NormalizedScene

	flush := func() {
		if cur == nil {
			return
		}
		finishScene(cur)
		scenes = append(scenes, *cur)
		cur = nil
	}

	for _, el := range els {
		if el.Kind == screenplay.KindSceneHeading {
			flush()
			heading, number := splitSceneNumber(el.Text)
			cur = &screenplay.NormalizedScene{
				ID:      len(scenes),
				Number:  number,
				Heading: heading,
				Slug:    slug.Analyze(heading),
			}
			el.Text = heading
			cur.Elements = append(cur.Elements, el)
			continue
		}
		if cur == nil {
			// implicit scene 0
			cur = &screenplay.NormalizedScene{ID: 0, Slug: screenplay.SlugInfo{IntExt: screenplay.IntExtUnknown}}
		}
		cur.Elements = append(cur.Elements, el)
	}
	flush()
	return scenes
}

func finishScene(s *screenplay.NormalizedScene) {
	var confSum float64
	for _, el := range s.Elements {
		confSum += el.Confidence
		if el.Page > 0 {
			if s.PageStart == 0 || el.Page < s.PageStart {
				s.PageStart = el.Page
			}
			if el.Page > s.PageEnd {
				s.PageEnd = el.Page
			}
		}
	}
	if n := len(s.Elements); n > 0 {
		s.Confidence = confSum / float64(n)
	}
}

// splitSceneNumber strips a trailing #12# marker off a heading.
func splitSceneNumber(heading string) (string, string) {
	if m := reSceneNum.FindStringSubmatch(heading); m != nil {
		return strings.TrimSpace(reSceneNum.ReplaceAllString(heading, "")), m[1]
	}
	return heading, ""
}

// buildRegistry scans dialogue speakers, canonicalizes names and folds
// annotated variants ("MAYA (V.O.)") into one entry with the variants kept
// as aliases.
func buildRegistry(els []screenplay.RawElement) []screenplay.NormalizedCharacter {
	type entry struct {
		c       screenplay.NormalizedCharacter
		aliases map[string]bool
	}
	byName := map[string]*entry{}
	var order []string

	for _, el := range els {
		if el.Kind != screenplay.KindDialogue || strings.TrimSpace(el.Character) == "" {
			continue
		}
		raw := strings.ToUpper(strings.TrimSpace(el.Character))
		canonical := CanonicalName(raw)
		if canonical == "" {
			continue
		}
		e, ok := byName[canonical]
		if !ok {
			e = &entry{
				c:       screenplay.NormalizedCharacter{Name: canonical, FirstAppearance: el.Line},
				aliases: map[string]bool{},
			}
			byName[canonical] = e
			order = append(order, canonical)
		}
		e.c.DialogueCount++
		if el.Line > 0 && (e.c.FirstAppearance == 0 || el.Line < e.c.FirstAppearance) {
			e.c.FirstAppearance = el.Line
		}
		if raw != canonical {
			e.aliases[raw] = true
		}
	}

	out := make([]screenplay.NormalizedCharacter, 0, len(order))
	for _, name := range order {
		e := byName[name]
		for a := range e.aliases {
			e.c.Aliases = append(e.c.Aliases, a)
		}
		sort.Strings(e.c.Aliases)
		out = append(out, e.c)
	}
	return out
}

// CanonicalName strips trailing annotations like (V.O.), (O.S.) or (CONT'D)
// and collapses whitespace. Exported for the legacy adapter.
func CanonicalName(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for {
		stripped := reCueAnnot.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = strings.TrimSpace(stripped)
	}
	return strings.Join(strings.Fields(name), " ")
}

func weightedMean(els []screenplay.RawElement) float64 {
	if len(els) == 0 {
		return 0
	}
	var sum float64
	for _, el := range els {
		sum += el.Confidence
	}
	return sum / float64(len(els))
}

func estimatePages(els []screenplay.RawElement) int {
	maxLine := 0
	for _, el := range els {
		if el.Line > maxLine {
			maxLine = el.Line
		}
	}
	if maxLine == 0 {
		maxLine = len(els)
	}
	pages := (maxLine + linesPerPage - 1) / linesPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}
