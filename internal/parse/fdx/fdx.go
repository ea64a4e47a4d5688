/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fdx parses Final Draft XML. FDX carries explicit paragraph types,
// so classifications are near certain; the only real failure modes are
// malformed or truncated XML, which fail the whole parse with a byte offset.
package fdx

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"screenwright/internal/parse"
	"screenwright/internal/screenplay"
)

// FDX paragraph types carry the author's own classification.
const confExplicit = 0.98

// confDefaulted is used when a paragraph has no Type attribute and we fall
// back to treating it as action.
const confDefaulted = 0.7

var typeKinds = map[string]screenplay.ElementKind{
	"scene heading": screenplay.KindSceneHeading,
	"action":        screenplay.KindAction,
	"character":     screenplay.KindCharacter,
	"dialogue":      screenplay.KindDialogue,
	"parenthetical": screenplay.KindParenthetical,
	"transition":    screenplay.KindTransition,
	"shot":          screenplay.KindShot,
	"general":       screenplay.KindAction,
}

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() screenplay.Format { return screenplay.FormatFDX }

// Parse walks Paragraph elements in document order with a streaming decoder.
// Text runs inside a paragraph are concatenated with styling stripped. A
// missing Type attribute defaults to action at reduced confidence. Any XML
// error aborts the parse; there is no partial success.
func (p *Parser) Parse(ctx context.Context, f screenplay.ScriptFile) ([]screenplay.RawElement, parse.Meta, error) {
	var meta parse.Meta
	dec := xml.NewDecoder(bytes.NewReader(f.Data))

	var els []screenplay.RawElement
	lastSpeaker := ""
	sawRoot := false

	for {
		if err := ctx.Err(); err != nil {
			return nil, meta, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, meta, &screenplay.ParseError{Format: screenplay.FormatFDX, Offset: dec.InputOffset(), Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "FinalDraft":
			sawRoot = true
		case "TitlePage":
			title, author, err := p.titlePage(dec)
			if err != nil {
				return nil, meta, &screenplay.ParseError{Format: screenplay.FormatFDX, Offset: dec.InputOffset(), Err: err}
			}
			if meta.Title == "" {
				meta.Title = title
			}
			if meta.Author == "" {
				meta.Author = author
			}
		case "Paragraph":
			el, err := p.paragraph(dec, start)
			if err != nil {
				return nil, meta, &screenplay.ParseError{Format: screenplay.FormatFDX, Offset: dec.InputOffset(), Err: err}
			}
			if el == nil {
				continue
			}
			switch el.Kind {
			case screenplay.KindCharacter:
				lastSpeaker = el.Text
			case screenplay.KindDialogue:
				el.Character = lastSpeaker
			case screenplay.KindSceneHeading, screenplay.KindTransition:
				lastSpeaker = ""
			}
			els = append(els, *el)
		}
	}

	if !sawRoot {
		return nil, meta, &screenplay.ParseError{
			Format: screenplay.FormatFDX,
			Offset: -1,
			Err:    errors.New("missing FinalDraft root element"),
		}
	}
	if len(els) == 0 {
		return nil, meta, &screenplay.EmptyDocumentError{Format: screenplay.FormatFDX}
	}
	return els, meta, nil
}

// paragraph consumes one Paragraph element and returns the classified
// element, or nil for empty paragraphs.
func (p *Parser) paragraph(dec *xml.Decoder, start xml.StartElement) (*screenplay.RawElement, error) {
	typ := ""
	number := ""
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "Type":
			typ = a.Value
		case "Number":
			number = a.Value
		}
	}

	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, nil
	}
	conf := confExplicit
	kind, ok := typeKinds[strings.ToLower(strings.TrimSpace(typ))]
	if !ok {
		kind = screenplay.KindAction
		conf = confDefaulted
	}
	if kind == screenplay.KindSceneHeading && number != "" {
		text += " #" + number + "#"
	}
	return &screenplay.RawElement{Kind: kind, Text: text, Confidence: conf}, nil
}

// titlePage pulls Title/Author key-value content out of the TitlePage block.
func (p *Parser) titlePage(dec *xml.Decoder) (title, author string, err error) {
	depth := 1
	key := ""
	var text strings.Builder
	flush := func() {
		v := strings.TrimSpace(text.String())
		switch strings.ToLower(key) {
		case "title":
			if title == "" {
				title = v
			}
		case "author", "authors", "written by":
			if author == "" {
				author = v
			}
		}
		text.Reset()
	}
	for depth > 0 {
		tok, terr := dec.Token()
		if terr != nil {
			return "", "", terr
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "Key" || t.Name.Local == "Paragraph" {
				flush()
			}
			for _, a := range t.Attr {
				if a.Name.Local == "Type" || a.Name.Local == "Key" {
					key = a.Value
				}
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			text.Write(t)
		}
	}
	flush()
	return title, author, nil
}
