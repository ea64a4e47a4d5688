/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package legacy converts the normalized scene/element model back into the
// flat per-element record list an older storage path expects. This is a
// migration shim, lossy by design, and not a long-term contract: page and
// slug structure collapse into plain fields and unknown-to-legacy kinds map
// through a fixed table.
package legacy

import (
	"screenwright/internal/screenplay"
)

// Type is the legacy element type enum, persisted as text.
type Type string

const (
	TypeSlug       Type = "slug"
	TypeAction     Type = "action"
	TypeDialogue   Type = "dialogue"
	TypeCharacter  Type = "character"
	TypeParen      Type = "paren"
	TypeTransition Type = "transition"
)

// kindTypes is the fixed mapping. Shots predate the legacy schema and are
// stored as action.
var kindTypes = map[screenplay.ElementKind]Type{
	screenplay.KindSceneHeading:  TypeSlug,
	screenplay.KindAction:        TypeAction,
	screenplay.KindDialogue:      TypeDialogue,
	screenplay.KindCharacter:     TypeCharacter,
	screenplay.KindParenthetical: TypeParen,
	screenplay.KindTransition:    TypeTransition,
	screenplay.KindShot:          TypeAction,
}

// Record is one row of the legacy flat scene list: one record per element,
// not per scene.
type Record struct {
	SceneIndex int     `json:"sceneIndex"`
	SceneSlug  string  `json:"sceneSlug"`
	Type       Type    `json:"type"`
	Text       string  `json:"text"`
	Character  string  `json:"character,omitempty"`
	Page       int     `json:"page,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Flatten converts a normalized script into legacy records in document order.
func Flatten(s *screenplay.NormalizedScript) []Record {
	var out []Record
	for _, sc := range s.Scenes {
		for _, el := range sc.Elements {
			t, ok := kindTypes[el.Kind]
			if !ok {
				// The kind table is closed; arriving here means a new kind
				// was added without a legacy mapping.
				t = TypeAction
			}
			out = append(out, Record{
				SceneIndex: sc.ID,
				SceneSlug:  sc.Heading,
				Type:       t,
				Text:       el.Text,
				Character:  el.Character,
				Page:       el.Page,
				Confidence: el.Confidence,
			})
		}
	}
	return out
}
