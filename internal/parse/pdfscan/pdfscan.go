/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pdfscan extracts screenplays from PDF files. PDFs carry no element
// tags, so classification rests on layout heuristics (indentation bands of
// the standard screenplay page) and is inherently best-effort: baseline
// confidences sit below the FDX parser's.
//
// Pages whose text layer is missing or too sparse fall back to OCR when the
// external engine is available, with confidence scaled by the engine's own
// reported certainty.
package pdfscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"screenwright/internal/ocr"
	"screenwright/internal/parse"
	"screenwright/internal/parse/fountain"
	"screenwright/internal/screenplay"
	"screenwright/internal/slug"
)

// Baseline confidences; deliberately below FDX's explicit-type certainty.
const (
	confHeading  = 0.85
	confIndented = 0.7
	confAction   = 0.7
	confLoose    = 0.55
)

// minPageChars is the text-layer density floor below which a page is
// considered scanned and handed to OCR.
const minPageChars = 50

// Indentation bands in points from the leftmost margin of the page,
// matching the conventional 1.5" action margin screenplay grid.
const (
	bandDialogue      = 36.0
	bandParenthetical = 90.0
	bandCharacter     = 140.0
)

// Recognizer is the OCR dependency; satisfied by *ocr.Engine.
type Recognizer interface {
	Available() bool
	RecognizePDFPage(ctx context.Context, pdfData []byte, page int) (ocr.Result, error)
}

type Parser struct {
	ocr Recognizer
}

// New creates the parser. recognizer may be nil; pages needing OCR then
// produce a warning instead of text.
func New(recognizer Recognizer) *Parser { return &Parser{ocr: recognizer} }

func (p *Parser) Format() screenplay.Format { return screenplay.FormatPDF }

func (p *Parser) Parse(ctx context.Context, f screenplay.ScriptFile) ([]screenplay.RawElement, parse.Meta, error) {
	var meta parse.Meta

	reader, encrypted, err := open(f)
	if err != nil {
		return nil, meta, err
	}
	meta.PasswordProtected = encrypted
	meta.Pages = reader.NumPage()

	if info := reader.Trailer().Key("Info"); !info.IsNull() {
		if v := info.Key("Title"); v.Kind() == pdf.String {
			meta.Title = strings.TrimSpace(v.RawString())
		}
		if v := info.Key("Author"); v.Kind() == pdf.String {
			meta.Author = strings.TrimSpace(v.RawString())
		}
	}

	var els []screenplay.RawElement
	for pageNo := 1; pageNo <= reader.NumPage(); pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, meta, err
		}
		lines, err := extractLines(reader, pageNo)
		if err != nil {
			return nil, meta, &screenplay.ParseError{Format: screenplay.FormatPDF, Offset: -1, Err: err}
		}
		if textSize(lines) >= minPageChars {
			els = append(els, p.classifyPage(lines, pageNo)...)
			continue
		}

		// Sparse or absent text layer: OCR fallback.
		pageEls, warn, err := p.ocrPage(ctx, f.Data, pageNo)
		if err != nil {
			return nil, meta, err
		}
		if warn != "" {
			meta.Warnings = append(meta.Warnings, warn)
		}
		if len(pageEls) > 0 {
			meta.UsedOCR = true
			els = append(els, pageEls...)
		}
	}

	if len(els) == 0 {
		return nil, meta, &screenplay.EmptyDocumentError{Format: screenplay.FormatPDF}
	}
	return els, meta, nil
}

// open resolves the password handling matrix: encrypted with no password is
// PasswordRequiredError, encrypted with a wrong one is PasswordIncorrectError.
func open(f screenplay.ScriptFile) (*pdf.Reader, bool, error) {
	ra := bytes.NewReader(f.Data)
	size := int64(len(f.Data))

	if f.PDFPassword == "" {
		r, err := pdf.NewReader(ra, size)
		if err != nil {
			if errors.Is(err, pdf.ErrInvalidPassword) {
				return nil, false, &screenplay.PasswordRequiredError{}
			}
			return nil, false, &screenplay.ParseError{Format: screenplay.FormatPDF, Offset: -1, Err: err}
		}
		return r, false, nil
	}

	asked := false
	pw := func() string {
		if asked {
			return "" // second ask means the first attempt failed
		}
		asked = true
		return f.PDFPassword
	}
	r, err := pdf.NewReaderEncrypted(ra, size, pw)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, false, &screenplay.PasswordIncorrectError{}
		}
		return nil, false, &screenplay.ParseError{Format: screenplay.FormatPDF, Offset: -1, Err: err}
	}
	return r, asked, nil
}

// pdfLine is one reassembled visual line with its left edge.
type pdfLine struct {
	x    float64
	text string
}

// extractLines pulls positioned text off one page and groups it into lines
// by Y coordinate. The underlying library panics on some malformed content
// streams, so the walk is fenced with a recover.
func extractLines(r *pdf.Reader, pageNo int) (lines []pdfLine, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d content: %v", pageNo, rec)
		}
	}()

	page := r.Page(pageNo)
	if page.V.IsNull() {
		return nil, nil
	}
	content := page.Content()
	if len(content.Text) == 0 {
		return nil, nil
	}

	// Bucket by rounded Y; PDF Y grows upward, so sort descending for
	// document order.
	rows := map[int][]pdf.Text{}
	for _, t := range content.Text {
		y := int(t.Y + 0.5)
		rows[y] = append(rows[y], t)
	}
	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	for _, y := range ys {
		row := rows[y]
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })
		var sb strings.Builder
		lastEnd := 0.0
		for i, t := range row {
			if i > 0 && t.X-lastEnd > 1.0 && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteString(" ")
			}
			sb.WriteString(t.S)
			lastEnd = t.X + t.W
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		lines = append(lines, pdfLine{x: row[0].X, text: text})
	}
	return lines, nil
}

func textSize(lines []pdfLine) int {
	n := 0
	for _, l := range lines {
		n += len(l.text)
	}
	return n
}

// classifyPage maps indentation bands to element kinds. Offsets are measured
// from the page's own leftmost line so that unusual margins still classify.
func (p *Parser) classifyPage(lines []pdfLine, pageNo int) []screenplay.RawElement {
	if len(lines) == 0 {
		return nil
	}
	minX := lines[0].x
	for _, l := range lines {
		if l.x < minX {
			minX = l.x
		}
	}

	var els []screenplay.RawElement
	lastSpeaker := ""
	for i, l := range lines {
		text := l.text
		off := l.x - minX
		el := screenplay.RawElement{Text: text, Page: pageNo, Line: i + 1}

		switch {
		case slug.IsSceneHeading(text):
			el.Kind = screenplay.KindSceneHeading
			el.Confidence = confHeading
			lastSpeaker = ""
		case strings.HasSuffix(text, "TO:") && isUpper(text):
			el.Kind = screenplay.KindTransition
			el.Confidence = confIndented
			lastSpeaker = ""
		case off >= bandCharacter && isUpper(text) && len(text) <= 40:
			el.Kind = screenplay.KindCharacter
			el.Confidence = confIndented
			lastSpeaker = text
		case off >= bandParenthetical && strings.HasPrefix(text, "("):
			el.Kind = screenplay.KindParenthetical
			el.Confidence = confIndented
		case off >= bandDialogue && lastSpeaker != "":
			el.Kind = screenplay.KindDialogue
			el.Character = lastSpeaker
			el.Confidence = confIndented
		case isUpper(text) && len(text) <= 40:
			// Caps at the action margin: could be a shot or a mis-indented
			// cue; keep as action with reduced certainty.
			el.Kind = screenplay.KindAction
			el.Confidence = confLoose
			lastSpeaker = ""
		default:
			el.Kind = screenplay.KindAction
			el.Confidence = confAction
			lastSpeaker = ""
		}
		els = append(els, el)
	}
	return els
}

// ocrPage runs the fallback and classifies its output with the relaxed text
// classifier, scaling every confidence by the engine's reported certainty.
func (p *Parser) ocrPage(ctx context.Context, pdfData []byte, pageNo int) ([]screenplay.RawElement, string, error) {
	if p.ocr == nil || !p.ocr.Available() {
		return nil, fmt.Sprintf("page %d has no text layer and OCR is unavailable", pageNo), nil
	}
	res, err := p.ocr.RecognizePDFPage(ctx, pdfData, pageNo)
	if err != nil {
		var tmo *screenplay.OCRTimeoutError
		if errors.As(err, &tmo) {
			return nil, "", err
		}
		return nil, fmt.Sprintf("OCR failed on page %d: %v", pageNo, err), nil
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, fmt.Sprintf("OCR produced no text on page %d", pageNo), nil
	}

	els, _, err := fountain.NewRelaxed().Parse(ctx, screenplay.ScriptFile{Data: []byte(res.Text)})
	if err != nil {
		var empty *screenplay.EmptyDocumentError
		if errors.As(err, &empty) {
			return nil, fmt.Sprintf("OCR produced no usable content on page %d", pageNo), nil
		}
		return nil, "", err
	}
	for i := range els {
		els[i].Page = pageNo
		els[i].Confidence *= res.Confidence
	}
	return els, "", nil
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}
