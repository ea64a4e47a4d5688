/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package quality scores a normalized script against minimum-content
// thresholds and decides whether downstream analysis should run at all.
//
// Assess is deterministic and pure: identical input always yields the same
// assessment. Category scorers apply hard floors rather than smooth
// penalties; a script below a hard minimum scores 0.0 in that category
// because sub-minimum inputs make every downstream analysis meaningless.
package quality

import (
	"fmt"
	"strings"

	"screenwright/internal/screenplay"
)

// Threshold is the overall score a script must reach to unblock analysis.
const Threshold = 0.80

// Category weights; they sum to 1.
const (
	weightStructure  = 0.25
	weightCharacters = 0.25
	weightDialogue   = 0.20
	weightContent    = 0.15
	weightFormatting = 0.15
)

// Hard minimums.
const (
	minScenes     = 5
	minCharacters = 2
	minWords      = 500
)

// Assess scores the script across five weighted categories.
func Assess(s *screenplay.NormalizedScript) screenplay.QualityAssessment {
	a := screenplay.QualityAssessment{CategoryScores: map[string]float64{}}

	structure := scoreStructure(s, &a)
	characters := scoreCharacters(s, &a)
	dialogue := scoreDialogue(s, &a)
	content := scoreContent(s, &a)
	formatting := scoreFormatting(s, &a)

	a.CategoryScores["structure"] = structure
	a.CategoryScores["characters"] = characters
	a.CategoryScores["dialogue"] = dialogue
	a.CategoryScores["content"] = content
	a.CategoryScores["formatting"] = formatting

	a.OverallScore = structure*weightStructure +
		characters*weightCharacters +
		dialogue*weightDialogue +
		content*weightContent +
		formatting*weightFormatting
	a.PassesThreshold = a.OverallScore >= Threshold

	if !a.PassesThreshold && len(a.Recommendations) == 0 {
		a.Recommendations = append(a.Recommendations, "address the listed issues and re-upload the script")
	}
	return a
}

// scoreStructure checks scene count and the share of scenes that carry a
// parseable slugline. Fewer than minScenes headings is a hard floor.
func scoreStructure(s *screenplay.NormalizedScript, a *screenplay.QualityAssessment) float64 {
	headed := 0
	slugged := 0
	for _, sc := range s.Scenes {
		if sc.Heading == "" {
			continue
		}
		headed++
		if sc.Slug.IntExt != screenplay.IntExtUnknown {
			slugged++
		}
	}
	if headed < minScenes {
		a.Issues = append(a.Issues, fmt.Sprintf("only %d scene headings found; at least %d are required", headed, minScenes))
		return 0
	}

	score := 1.0
	if headed > 0 {
		ratio := float64(slugged) / float64(headed)
		score = 0.5 + 0.5*ratio
		if ratio < 0.8 {
			a.Issues = append(a.Issues, "many scene headings do not follow INT./EXT. conventions")
		}
	}
	if headed >= 20 {
		a.Strengths = append(a.Strengths, fmt.Sprintf("well-developed structure with %d scenes", headed))
	}
	return clamp(score)
}

// scoreCharacters checks registry size and that dialogue attribution is
// consistent with the registry counts.
func scoreCharacters(s *screenplay.NormalizedScript, a *screenplay.QualityAssessment) float64 {
	if len(s.Characters) < minCharacters {
		a.Issues = append(a.Issues, fmt.Sprintf("only %d speaking characters found; at least %d are required", len(s.Characters), minCharacters))
		return 0
	}

	registryTotal := 0
	speakers := 0
	for _, c := range s.Characters {
		registryTotal += c.DialogueCount
		if c.DialogueCount >= 3 {
			speakers++
		}
	}
	attributed := 0
	for _, sc := range s.Scenes {
		for _, el := range sc.Elements {
			if el.Kind == screenplay.KindDialogue && el.Character != "" {
				attributed++
			}
		}
	}

	score := 1.0
	if attributed > 0 && registryTotal != attributed {
		// Registry drift means some cues did not resolve cleanly.
		score -= 0.3
		a.Issues = append(a.Issues, "some dialogue could not be attributed to a character")
	}
	if speakers >= 3 {
		a.Strengths = append(a.Strengths, fmt.Sprintf("%d characters carry sustained dialogue", speakers))
	} else {
		score -= 0.2
		a.Recommendations = append(a.Recommendations, "give more characters sustained dialogue")
	}
	return clamp(score)
}

// scoreDialogue checks the ratio of dialogue elements to total elements.
// Screenplays typically run 30-60% dialogue.
func scoreDialogue(s *screenplay.NormalizedScript, a *screenplay.QualityAssessment) float64 {
	total, dialogue := elementCounts(s)
	if total == 0 || dialogue == 0 {
		a.Issues = append(a.Issues, "no dialogue found")
		return 0
	}
	ratio := float64(dialogue) / float64(total)
	switch {
	case ratio >= 0.25 && ratio <= 0.65:
		a.Strengths = append(a.Strengths, "healthy balance of dialogue and action")
		return 1
	case ratio < 0.25:
		a.Recommendations = append(a.Recommendations, "the script is action-heavy; consider whether dialogue was lost in parsing")
		return clamp(ratio / 0.25)
	default:
		// Heavy dialogue gets a note, never a penalty: adding attributed
		// dialogue must not lower the verdict.
		a.Recommendations = append(a.Recommendations, "the script is dialogue-heavy; action description may be missing")
		return 1
	}
}

// scoreContent checks raw volume: words and best-effort pages.
func scoreContent(s *screenplay.NormalizedScript, a *screenplay.QualityAssessment) float64 {
	words := 0
	for _, sc := range s.Scenes {
		for _, el := range sc.Elements {
			words += len(strings.Fields(el.Text))
		}
	}
	if words < minWords {
		a.Issues = append(a.Issues, fmt.Sprintf("script contains only %d words; at least %d are required", words, minWords))
		return 0
	}
	score := 0.6
	if s.Pages >= 15 {
		score = 1.0
	} else if s.Pages >= 5 {
		score = 0.8
	} else {
		a.Recommendations = append(a.Recommendations, "the script is short; full-length features score better")
	}
	return score
}

// scoreFormatting checks that all four core element kinds appear.
func scoreFormatting(s *screenplay.NormalizedScript, a *screenplay.QualityAssessment) float64 {
	seen := map[screenplay.ElementKind]bool{}
	for _, sc := range s.Scenes {
		for _, el := range sc.Elements {
			seen[el.Kind] = true
		}
	}
	core := []screenplay.ElementKind{
		screenplay.KindSceneHeading,
		screenplay.KindAction,
		screenplay.KindDialogue,
		screenplay.KindCharacter,
	}
	present := 0
	for _, k := range core {
		if seen[k] {
			present++
		}
	}
	// Dialogue-bearing formats may legitimately skip separate character
	// elements (FDX folds the speaker into the dialogue paragraph), so the
	// dialogue+character pair counts once when either appears.
	if seen[screenplay.KindDialogue] && !seen[screenplay.KindCharacter] {
		present++
	}
	if present > len(core) {
		present = len(core)
	}
	if present < len(core) {
		a.Issues = append(a.Issues, "not all core screenplay element types are present")
	}
	return float64(present) / float64(len(core))
}

func elementCounts(s *screenplay.NormalizedScript) (total, dialogue int) {
	for _, sc := range s.Scenes {
		for _, el := range sc.Elements {
			total++
			if el.Kind == screenplay.KindDialogue {
				dialogue++
			}
		}
	}
	return total, dialogue
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
