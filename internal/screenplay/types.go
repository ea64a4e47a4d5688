/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import "time"

// This file defines the canonical data model shared by the format parsers,
// the normalizer, the quality gate and the legacy adapter. Parsers emit
// RawElements; the normalizer turns them into a NormalizedScript; everything
// downstream consumes the normalized model read-only.

// Format identifies which parser produced a script.
type Format string

const (
	FormatFDX      Format = "FDX"
	FormatFountain Format = "FOUNTAIN"
	FormatPDF      Format = "PDF"
	FormatTXT      Format = "TXT"
)

// ScriptFile is the ephemeral input handed to the pipeline: raw bytes plus
// whatever the upload boundary knows about them. It is never mutated.
type ScriptFile struct {
	Name        string
	MIME        string
	Data        []byte
	PDFPassword string
}

// ElementKind is the closed set of structural units a parser can emit.
// Consumers must handle every kind explicitly; there is no catch-all.
type ElementKind int

const (
	KindSceneHeading ElementKind = iota
	KindAction
	KindDialogue
	KindCharacter
	KindParenthetical
	KindTransition
	KindShot
)

var kindNames = map[ElementKind]string{
	KindSceneHeading:  "scene_heading",
	KindAction:        "action",
	KindDialogue:      "dialogue",
	KindCharacter:     "character",
	KindParenthetical: "parenthetical",
	KindTransition:    "transition",
	KindShot:          "shot",
}

func (k ElementKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// RawElement is one structural unit in document order, as classified by a
// format parser. Confidence is the parser's certainty that the classification
// is correct, always in [0,1] and never optional.
type RawElement struct {
	Kind       ElementKind `json:"kind"`
	Text       string      `json:"text"`
	Character  string      `json:"character,omitempty"` // speaker, set when Kind is Dialogue
	Confidence float64     `json:"confidence"`
	Page       int         `json:"page"` // 1-based, 0 when the format has no page concept
	Line       int         `json:"line"` // approximate 1-based source line
}

// IntExt classifies a slugline's interior/exterior marker.
type IntExt int

const (
	IntExtUnknown IntExt = iota
	IntExtInt
	IntExtExt
	IntExtBoth
)

func (ie IntExt) String() string {
	switch ie {
	case IntExtInt:
		return "INT"
	case IntExtExt:
		return "EXT"
	case IntExtBoth:
		return "INT/EXT"
	default:
		return "UNKNOWN"
	}
}

// SlugInfo is the structured reading of a scene heading. Deriving it never
// fails; unparseable headings yield all-unknown fields.
type SlugInfo struct {
	IntExt    IntExt `json:"intExt"`
	Location  string `json:"location"`
	TimeOfDay string `json:"timeOfDay"` // uppercased free text, "" when unknown
}

// NormalizedScene groups the elements between one scene heading and the next.
// Confidence is the mean of member element confidences.
type NormalizedScene struct {
	ID         int          `json:"id"`               // unique within the script, document order
	Number     string       `json:"number,omitempty"` // screenplay-assigned scene number, if any
	Heading    string       `json:"heading"`
	Slug       SlugInfo     `json:"slug"`
	Elements   []RawElement `json:"elements"`
	PageStart  int          `json:"pageStart"`
	PageEnd    int          `json:"pageEnd"`
	Confidence float64      `json:"confidence"`
}

// NormalizedCharacter is one entry in the deduplicated character registry.
// Name is canonical (trimmed, uppercased, annotations stripped); Aliases holds
// the annotated variants observed in the document.
type NormalizedCharacter struct {
	Name            string   `json:"name"`
	DialogueCount   int      `json:"dialogueCount"`
	FirstAppearance int      `json:"firstAppearance"` // source line of the earliest cue
	Aliases         []string `json:"aliases,omitempty"`
}

// Meta carries parse provenance alongside the normalized content.
type Meta struct {
	ParsedAt          time.Time `json:"parsedAt"`
	OriginalFilename  string    `json:"originalFilename"`
	ByteSize          int       `json:"byteSize"`
	UsedOCR           bool      `json:"usedOCR"`
	PasswordProtected bool      `json:"passwordProtected"`
	Confidence        float64   `json:"confidence"` // element-count-weighted mean
}

// NormalizedScript is the root aggregate every downstream consumer reads.
// It is constructed once per parse and never mutated afterwards.
type NormalizedScript struct {
	Title      string                `json:"title,omitempty"`
	Author     string                `json:"author,omitempty"`
	Format     Format                `json:"format"`
	Pages      int                   `json:"pages"`
	Scenes     []NormalizedScene     `json:"scenes"`
	Characters []NormalizedCharacter `json:"characters"`
	Meta       Meta                  `json:"meta"`
}

// QualityAssessment is the compliance gate's verdict on a normalized script.
type QualityAssessment struct {
	OverallScore    float64            `json:"overallScore"`
	PassesThreshold bool               `json:"passesThreshold"`
	CategoryScores  map[string]float64 `json:"categoryScores"`
	Issues          []string           `json:"issues"`
	Strengths       []string           `json:"strengths"`
	Recommendations []string           `json:"recommendations"`
}

// ParseResult is the sole boundary contract of the pipeline. A failed parse
// always carries a human-readable Error; Blocked means the quality gate vetoed
// downstream analysis even though parsing succeeded.
type ParseResult struct {
	Success    bool               `json:"success"`
	Data       *NormalizedScript  `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	Confidence float64            `json:"confidence"`
	Blocked    bool               `json:"blocked,omitempty"`
	Compliance *QualityAssessment `json:"compliance,omitempty"`
}
