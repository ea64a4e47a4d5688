/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ocr wraps the external pdftoppm and tesseract binaries for the PDF
// fallback path. It is the only part of the pipeline expected to block for a
// non-trivial duration; callers bound it with a context deadline and a
// deadline hit surfaces as screenplay.OCRTimeoutError.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	applog "screenwright/internal/log"
	"screenwright/internal/screenplay"
)

// commandContext is swapped out in tests.
var commandContext = exec.CommandContext

// Result is one page's worth of recognized text. Confidence is the mean
// tesseract word confidence scaled to [0,1].
type Result struct {
	Text       string
	Confidence float64
}

// Engine shells out to pdftoppm (rasterize) and tesseract (recognize).
type Engine struct {
	tesseractBin string
	pdftoppmBin  string
	language     string
	dpi          int
	log          *slog.Logger
}

type Option func(*Engine)

// WithBinaries overrides the tool paths, e.g. from config.
func WithBinaries(tesseract, pdftoppm string) Option {
	return func(e *Engine) {
		if tesseract != "" {
			e.tesseractBin = tesseract
		}
		if pdftoppm != "" {
			e.pdftoppmBin = pdftoppm
		}
	}
}

func WithLanguage(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.language = lang
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		tesseractBin: "tesseract",
		pdftoppmBin:  "pdftoppm",
		language:     "eng",
		dpi:          300,
		log:          applog.WithComponent("ocr"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Available reports whether both external tools can be found.
func (e *Engine) Available() bool {
	_, err1 := exec.LookPath(e.tesseractBin)
	_, err2 := exec.LookPath(e.pdftoppmBin)
	return err1 == nil && err2 == nil
}

// RecognizePDFPage rasterizes one page (1-based) of the PDF and runs it
// through tesseract. All intermediate files live in a per-call temp dir.
func (e *Engine) RecognizePDFPage(ctx context.Context, pdfData []byte, page int) (Result, error) {
	if page < 1 {
		return Result{}, fmt.Errorf("page must be >= 1, got %d", page)
	}
	dir, err := os.MkdirTemp("", "swr-ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("create ocr temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0o600); err != nil {
		return Result{}, fmt.Errorf("write temp pdf: %w", err)
	}

	pngPath, err := e.rasterize(ctx, dir, pdfPath, page)
	if err != nil {
		return Result{}, e.wrapTimeout(ctx, page, err)
	}

	if perr := PreprocessPNG(pngPath); perr != nil {
		// Recognition can still proceed on the raw render.
		e.log.Warn("ocr preprocess failed, using raw render", slog.Any("err", perr))
	}

	res, err := e.recognize(ctx, pngPath)
	if err != nil {
		return Result{}, e.wrapTimeout(ctx, page, err)
	}
	e.log.Debug("ocr page done", slog.Int("page", page), slog.Float64("confidence", res.Confidence))
	return res, nil
}

func (e *Engine) rasterize(ctx context.Context, dir, pdfPath string, page int) (string, error) {
	prefix := filepath.Join(dir, "page")
	cmd := commandContext(ctx, e.pdftoppmBin,
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-r", strconv.Itoa(e.dpi),
		"-png", pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, strings.TrimSpace(stderr.String()))
	}
	// pdftoppm names output page-1.png, page-01.png etc. depending on total pages
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return matches[0], nil
}

func (e *Engine) recognize(ctx context.Context, pngPath string) (Result, error) {
	cmd := commandContext(ctx, e.tesseractBin, pngPath, "stdout", "-l", e.language, "tsv")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("tesseract: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseTSV(stdout.String()), nil
}

func (e *Engine) wrapTimeout(ctx context.Context, page int, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &screenplay.OCRTimeoutError{Page: page, Err: err}
	}
	return err
}

// parseTSV reassembles text from tesseract's TSV output and averages the
// per-word confidences. TSV columns: level page block par line word left top
// width height conf text; conf is -1 on non-word rows.
func parseTSV(tsv string) Result {
	var sb strings.Builder
	var confSum float64
	words := 0
	lastLine := ""
	for _, row := range strings.Split(tsv, "\n") {
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] == "level" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		lineKey := cols[1] + ":" + cols[2] + ":" + cols[3] + ":" + cols[4]
		if lastLine != "" && lineKey != lastLine {
			sb.WriteString("\n")
		} else if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		lastLine = lineKey
		sb.WriteString(word)
		confSum += conf
		words++
	}
	if words == 0 {
		return Result{}
	}
	return Result{Text: sb.String(), Confidence: confSum / float64(words) / 100}
}
