/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"screenwright/internal/screenplay"
)

func testScript(name string, parsed time.Time) *screenplay.NormalizedScript {
	return &screenplay.NormalizedScript{
		Title:  "The Long Night",
		Author: "A. Writer",
		Format: screenplay.FormatFountain,
		Pages:  3,
		Scenes: []screenplay.NormalizedScene{
			{
				ID:      0,
				Heading: "INT. KITCHEN - NIGHT",
				Slug:    screenplay.SlugInfo{IntExt: screenplay.IntExtInt, Location: "KITCHEN", TimeOfDay: "NIGHT"},
				Elements: []screenplay.RawElement{
					{Kind: screenplay.KindSceneHeading, Text: "INT. KITCHEN - NIGHT", Confidence: 0.95, Line: 1},
					{Kind: screenplay.KindAction, Text: "Maya waits.", Confidence: 0.85, Line: 3},
				},
				PageStart:  1,
				PageEnd:    1,
				Confidence: 0.9,
			},
		},
		Characters: []screenplay.NormalizedCharacter{
			{Name: "MAYA", DialogueCount: 1, FirstAppearance: 5},
		},
		Meta: screenplay.Meta{
			ParsedAt:         parsed,
			OriginalFilename: name,
			ByteSize:         123,
			Confidence:       0.9,
		},
	}
}

func TestOpenCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")
	a, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer a.Close()

	for _, d := range []string{ScriptsDirName, BackupsDirName} {
		if st, err := os.Stat(filepath.Join(root, d)); err != nil || !st.IsDir() {
			t.Fatalf("expected directory %s: %v", d, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, CatalogName)); err != nil {
		t.Fatalf("expected catalog database: %v", err)
	}
}

func TestOpenEmptyRootFails(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer a.Close()

	parsed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := testScript("My Script.fountain", parsed)
	id, err := a.Save(context.Background(), s, false)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if want := "my-script-20250601-120000"; id != want {
		t.Fatalf("id = %q, want %q", id, want)
	}

	got, err := a.Get(id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Title != s.Title || len(got.Scenes) != 1 || got.Scenes[0].Heading != s.Scenes[0].Heading {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Characters[0].Name != "MAYA" {
		t.Fatalf("characters not preserved: %+v", got.Characters)
	}
}

func TestSaveNilScript(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer a.Close()
	if _, err := a.Save(context.Background(), nil, false); err == nil {
		t.Fatalf("expected error for nil script")
	}
}

func TestListNewestFirst(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	older := testScript("older.fountain", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := testScript("newer.fountain", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	if _, err := a.Save(ctx, older, false); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if _, err := a.Save(ctx, newer, true); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	entries, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Filename != "newer.fountain" {
		t.Fatalf("expected newest first, got %q", entries[0].Filename)
	}
	if !entries[0].Blocked || entries[1].Blocked {
		t.Fatalf("blocked flags not preserved: %+v", entries)
	}
	if entries[0].Scenes != 1 || entries[0].Characters != 1 {
		t.Fatalf("counts not cataloged: %+v", entries[0])
	}
}

func TestSearchMatchesTitleAndFilename(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	s := testScript("draft-7.fountain", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if _, err := a.Save(ctx, s, false); err != nil {
		t.Fatalf("Save: %v", err)
	}

	byTitle, err := a.Search(ctx, "long night")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(byTitle) != 1 {
		t.Fatalf("title search: expected 1 hit, got %d", len(byTitle))
	}

	byFile, err := a.Search(ctx, "draft-7")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(byFile) != 1 {
		t.Fatalf("filename search: expected 1 hit, got %d", len(byFile))
	}

	none, err := a.Search(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no hits, got %d", len(none))
	}
}

func TestResaveKeepsBackup(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	parsed := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	s := testScript("same.fountain", parsed)
	if _, err := a.Save(ctx, s, false); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	s.Title = "Revised Title"
	if _, err := a.Save(ctx, s, false); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	backups, err := os.ReadDir(filepath.Join(a.Root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}

	entries, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Revised Title" {
		t.Fatalf("catalog not updated in place: %+v", entries)
	}
}
