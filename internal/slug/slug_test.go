/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package slug

import (
	"testing"

	"screenwright/internal/screenplay"
)

func TestAnalyzeInterior(t *testing.T) {
	info := Analyze("INT. KITCHEN - NIGHT")
	if info.IntExt != screenplay.IntExtInt {
		t.Fatalf("expected INT, got %v", info.IntExt)
	}
	if info.Location != "KITCHEN" {
		t.Fatalf("unexpected location: %q", info.Location)
	}
	if info.TimeOfDay != "NIGHT" {
		t.Fatalf("unexpected time of day: %q", info.TimeOfDay)
	}
}

func TestAnalyzeExterior(t *testing.T) {
	info := Analyze("EXT. PARKING LOT - DAY")
	if info.IntExt != screenplay.IntExtExt {
		t.Fatalf("expected EXT, got %v", info.IntExt)
	}
	if info.Location != "PARKING LOT" || info.TimeOfDay != "DAY" {
		t.Fatalf("unexpected fields: %+v", info)
	}
}

func TestAnalyzeIntExtVariants(t *testing.T) {
	for _, in := range []string{
		"INT./EXT. CAR - DAY",
		"I/E. CAR - DAY",
		"EXT/INT CAR - DAY",
	} {
		info := Analyze(in)
		if info.IntExt != screenplay.IntExtBoth {
			t.Fatalf("%q: expected INT/EXT, got %v", in, info.IntExt)
		}
		if info.Location != "CAR" {
			t.Fatalf("%q: unexpected location %q", in, info.Location)
		}
	}
}

func TestAnalyzeHyphenatedLocation(t *testing.T) {
	info := Analyze("EXT. FORTY-SECOND STREET - NIGHT")
	if info.Location != "FORTY-SECOND STREET" {
		t.Fatalf("hyphenated location mangled: %q", info.Location)
	}
	if info.TimeOfDay != "NIGHT" {
		t.Fatalf("unexpected time of day: %q", info.TimeOfDay)
	}
}

func TestAnalyzeNoSeparator(t *testing.T) {
	info := Analyze("INT. BASEMENT")
	if info.Location != "BASEMENT" {
		t.Fatalf("unexpected location: %q", info.Location)
	}
	if info.TimeOfDay != "" {
		t.Fatalf("expected unknown time of day, got %q", info.TimeOfDay)
	}
}

func TestAnalyzeMalformedNeverFails(t *testing.T) {
	info := Analyze("SOMEWHERE WEIRD")
	if info.IntExt != screenplay.IntExtUnknown {
		t.Fatalf("expected unknown int/ext, got %v", info.IntExt)
	}
	if info.Location != "SOMEWHERE WEIRD" {
		t.Fatalf("unexpected location: %q", info.Location)
	}
	if info.TimeOfDay != "" {
		t.Fatalf("expected empty time of day, got %q", info.TimeOfDay)
	}

	// Empty and whitespace-only inputs are fine too.
	if got := Analyze("   "); got.IntExt != screenplay.IntExtUnknown || got.Location != "" {
		t.Fatalf("whitespace input: %+v", got)
	}
}

func TestAnalyzeLowercaseAndTimeUppercased(t *testing.T) {
	info := Analyze("int. diner - continuous")
	if info.IntExt != screenplay.IntExtInt {
		t.Fatalf("expected INT for lowercase input, got %v", info.IntExt)
	}
	if info.TimeOfDay != "CONTINUOUS" {
		t.Fatalf("time of day not uppercased: %q", info.TimeOfDay)
	}
}

func TestIsSceneHeading(t *testing.T) {
	for _, yes := range []string{"INT. KITCHEN - DAY", "ext. yard", "I/E. TRUCK - DUSK", "EST. CITY SKYLINE"} {
		if !IsSceneHeading(yes) {
			t.Fatalf("expected %q to be a scene heading", yes)
		}
	}
	for _, no := range []string{"INTERIOR DESIGN", "He walks in.", "MAYA", ""} {
		if IsSceneHeading(no) {
			t.Fatalf("expected %q not to be a scene heading", no)
		}
	}
}
