/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ocr

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"screenwright/internal/screenplay"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t40\t12\t90\tINT.\n" +
	"5\t1\t1\t1\t1\t2\t55\t10\t60\t12\t80\tDINER\n" +
	"5\t1\t1\t1\t2\t1\t10\t30\t40\t12\t70\tMaya\n" +
	"5\t1\t1\t1\t2\t2\t55\t30\t50\t12\t60\twaits.\n"

func TestParseTSV(t *testing.T) {
	res := parseTSV(sampleTSV)
	want := "INT. DINER\nMaya waits."
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
	// mean of 90, 80, 70, 60 is 75
	if math.Abs(res.Confidence-0.75) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.75", res.Confidence)
	}
}

func TestParseTSVEmpty(t *testing.T) {
	res := parseTSV("level\tpage_num\n\n")
	if res.Text != "" || res.Confidence != 0 {
		t.Fatalf("expected zero result, got %+v", res)
	}
}

// stubCommands reroutes the external binaries to shell stubs. pdftoppm gets a
// stub that creates the expected PNG; tesseract gets one that prints TSV.
func stubCommands(t *testing.T, tsv string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	tsvPath := filepath.Join(t.TempDir(), "out.tsv")
	if err := os.WriteFile(tsvPath, []byte(tsv), 0o600); err != nil {
		t.Fatalf("write stub tsv: %v", err)
	}
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if strings.Contains(name, "pdftoppm") {
			prefix := args[len(args)-1]
			return exec.CommandContext(ctx, "sh", "-c", "touch "+prefix+"-1.png")
		}
		return exec.CommandContext(ctx, "sh", "-c", "cat "+tsvPath)
	}
	t.Cleanup(func() { commandContext = orig })
}

func TestRecognizePDFPage(t *testing.T) {
	stubCommands(t, sampleTSV)
	e := New()
	res, err := e.RecognizePDFPage(context.Background(), []byte("%PDF-fake"), 1)
	if err != nil {
		t.Fatalf("RecognizePDFPage error: %v", err)
	}
	if !strings.Contains(res.Text, "INT. DINER") {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Confidence <= 0 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
}

func TestRecognizeRejectsBadPage(t *testing.T) {
	if _, err := New().RecognizePDFPage(context.Background(), []byte("x"), 0); err == nil {
		t.Fatalf("expected error for page 0")
	}
}

func TestDeadlineBecomesOCRTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "10")
	}
	t.Cleanup(func() { commandContext = orig })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New().RecognizePDFPage(ctx, []byte("%PDF-fake"), 3)
	var to *screenplay.OCRTimeoutError
	if !errors.As(err, &to) {
		t.Fatalf("expected OCRTimeoutError, got %v", err)
	}
	if to.Page != 3 {
		t.Fatalf("timeout page = %d, want 3", to.Page)
	}
}

func TestWithOptions(t *testing.T) {
	e := New(WithBinaries("/opt/tess", "/opt/ppm"), WithLanguage("deu"))
	if e.tesseractBin != "/opt/tess" || e.pdftoppmBin != "/opt/ppm" || e.language != "deu" {
		t.Fatalf("options not applied: %+v", e)
	}
	// Empty values keep the defaults.
	e = New(WithBinaries("", ""), WithLanguage(""))
	if e.tesseractBin != "tesseract" || e.language != "eng" {
		t.Fatalf("defaults lost: %+v", e)
	}
}
