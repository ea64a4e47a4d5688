/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fountain parses the Fountain plain-text screenplay markup.
//
// Classification is line-based:
//   - INT./EXT./I/E. prefix introduces a scene heading; a trailing #12#
//     marker carries the scene number.
//   - An ALL-CAPS short line with a blank line before it starts a character
//     cue, but only when a non-blank line follows; otherwise it is action
//     with lowered confidence. The confidence signal, not a hard failure, is
//     how downstream consumers detect likely misclassification.
//   - A (parenthesized) line directly after a cue is a parenthetical.
//   - Other lines in a cue block are dialogue attributed to the cue.
//   - Lines ending in "TO:" (CUT TO:, FADE TO:) are transitions.
package fountain

import (
	"bufio"
	"context"
	"regexp"
	"strings"

	"screenwright/internal/parse"
	"screenwright/internal/screenplay"
	"screenwright/internal/slug"
)

// Confidence levels for fountain classifications. Plain text reuses the same
// classifier with a global scale-down.
const (
	confHeading       = 0.95
	confDialogue      = 0.9
	confCharacter     = 0.9
	confParenthetical = 0.9
	confTransition    = 0.85
	confAction        = 0.85
	confAmbiguous     = 0.6
)

var (
	reTransition = regexp.MustCompile(`^[A-Z][A-Z .]*TO:$`)
	reShot       = regexp.MustCompile(`^(ANGLE ON|CLOSE ON|POV|INSERT)\b`)
	reCueAnnot   = regexp.MustCompile(`\s*\((V\.O\.|O\.S\.|O\.C\.|CONT'D|CONT\.|SUBTITLE)\)\s*$`)
)

// Parser implements parse.Parser for Fountain text. ConfidenceScale lets the
// plain-text parser reuse the classifier with globally reduced trust.
type Parser struct {
	format          screenplay.Format
	confidenceScale float64
	// requireCueBlank demands a blank line before a character cue, per the
	// Fountain convention. Plain text cannot rely on it.
	requireCueBlank bool
}

func New() *Parser {
	return &Parser{format: screenplay.FormatFountain, confidenceScale: 1.0, requireCueBlank: true}
}

// NewRelaxed returns the classifier tuned for plain .txt input: no blank-line
// guarantee around cues and every confidence scaled down.
func NewRelaxed() *Parser {
	return &Parser{format: screenplay.FormatTXT, confidenceScale: 0.8, requireCueBlank: false}
}

func (p *Parser) Format() screenplay.Format { return p.format }

// Parse classifies the document line by line. It only fails on empty input;
// ambiguity is expressed through per-element confidence instead.
func (p *Parser) Parse(ctx context.Context, f screenplay.ScriptFile) ([]screenplay.RawElement, parse.Meta, error) {
	var meta parse.Meta

	lines := splitLines(string(f.Data))
	var els []screenplay.RawElement

	title, author, body := parseTitlePage(lines)
	meta.Title = title
	meta.Author = author

	// Cue block state: cue holds the speaker line while inCue; the document
	// start counts as a preceding blank line.
	inCue := false
	cue := ""
	prevBlank := true

	for i := 0; i < len(body); i++ {
		if err := ctx.Err(); err != nil {
			return nil, meta, err
		}
		ln := body[i]
		text := strings.TrimSpace(ln.text)
		if text == "" {
			inCue = false
			cue = ""
			prevBlank = true
			continue
		}

		switch {
		case slug.IsSceneHeading(text) || strings.HasPrefix(text, "."):
			heading := text
			if strings.HasPrefix(heading, ".") && !strings.HasPrefix(heading, "..") {
				// forced scene heading
				heading = strings.TrimSpace(heading[1:])
			}
			els = append(els, p.element(screenplay.KindSceneHeading, heading, "", confHeading, ln.no))
			inCue = false

		case reTransition.MatchString(text):
			els = append(els, p.element(screenplay.KindTransition, text, "", confTransition, ln.no))
			inCue = false

		case reShot.MatchString(text):
			els = append(els, p.element(screenplay.KindShot, text, "", confAction, ln.no))
			inCue = false

		case inCue && strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")"):
			els = append(els, p.element(screenplay.KindParenthetical, text, "", confParenthetical, ln.no))

		case inCue:
			els = append(els, p.element(screenplay.KindDialogue, text, cue, confDialogue, ln.no))

		case p.isCharacterCue(text, prevBlank) && nextNonBlank(body, i):
			els = append(els, p.element(screenplay.KindCharacter, text, "", confCharacter, ln.no))
			cue = text
			inCue = true

		case p.isCharacterCue(text, prevBlank):
			// Capitalized short line with nothing spoken after it: treat as
			// action but flag the uncertainty for the quality gate.
			els = append(els, p.element(screenplay.KindAction, text, "", confAmbiguous, ln.no))

		default:
			els = append(els, p.element(screenplay.KindAction, text, "", confAction, ln.no))
		}
		prevBlank = false
	}

	if len(els) == 0 {
		return nil, meta, &screenplay.EmptyDocumentError{Format: p.format}
	}
	return els, meta, nil
}

func (p *Parser) element(kind screenplay.ElementKind, text, character string, conf float64, line int) screenplay.RawElement {
	return screenplay.RawElement{
		Kind:       kind,
		Text:       text,
		Character:  character,
		Confidence: conf * p.confidenceScale,
		Line:       line,
	}
}

// isCharacterCue reports whether a line looks like a speaker name: all caps,
// short, not ending with a colon. The blank-line precondition applies only in
// strict Fountain mode.
func (p *Parser) isCharacterCue(text string, prevBlank bool) bool {
	if p.requireCueBlank && !prevBlank {
		return false
	}
	if len(text) > 40 || strings.HasSuffix(text, ":") {
		return false
	}
	name := reCueAnnot.ReplaceAllString(text, "")
	name = strings.TrimSuffix(strings.TrimSpace(name), "^") // dual dialogue marker
	if name == "" {
		return false
	}
	hasLetter := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter
}

type numberedLine struct {
	no   int
	text string
}

func splitLines(input string) []numberedLine {
	var out []numberedLine
	sc := bufio.NewScanner(strings.NewReader(input))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		out = append(out, numberedLine{no: n, text: strings.TrimRight(sc.Text(), "\r")})
	}
	return out
}

// parseTitlePage consumes leading "Key: Value" pairs (Title:, Author:/Writer:,
// Credit:, Draft date: ...) up to the first blank-line-separated body block.
func parseTitlePage(lines []numberedLine) (title, author string, body []numberedLine) {
	reKV := regexp.MustCompile(`^([A-Za-z ]+):\s*(.*)$`)
	i := 0
	seenKV := false
	for ; i < len(lines); i++ {
		text := strings.TrimSpace(lines[i].text)
		if text == "" {
			if seenKV {
				i++
			}
			break
		}
		m := reKV.FindStringSubmatch(text)
		if m == nil || slug.IsSceneHeading(text) {
			break
		}
		key := strings.ToLower(strings.TrimSpace(m[1]))
		val := strings.TrimSpace(m[2])
		switch key {
		case "title":
			title = val
		case "author", "authors", "writer", "written by":
			author = val
		}
		seenKV = true
	}
	if !seenKV {
		return "", "", lines
	}
	return title, author, lines[i:]
}

func nextNonBlank(lines []numberedLine, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	return strings.TrimSpace(lines[i+1].text) != ""
}
