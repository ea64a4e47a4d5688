/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline wires detector, parsers, normalizer and quality gate into
// the single entry point the upload boundary calls. All state is per-call;
// concurrent runs share nothing mutable.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"screenwright/internal/normalize"
	"screenwright/internal/ocr"
	"screenwright/internal/parse"
	"screenwright/internal/parse/fdx"
	"screenwright/internal/parse/fountain"
	"screenwright/internal/parse/pdfscan"
	"screenwright/internal/parse/plain"
	"screenwright/internal/quality"
	"screenwright/internal/screenplay"
	"screenwright/internal/telemetry"

	applog "screenwright/internal/log"
)

// MaxUploadBytes mirrors the boundary's size limit. The boundary already
// enforces it; we re-validate because we do not own that check.
const MaxUploadBytes = 10 << 20

// DefaultOCRTimeout bounds the only multi-second operation in a parse.
const DefaultOCRTimeout = 5 * time.Minute

// Pipeline is safe for concurrent use; each Run owns its own state.
type Pipeline struct {
	registry   *parse.Registry
	ocrTimeout time.Duration
	log        *slog.Logger
}

type Option func(*Pipeline)

// WithRegistry replaces the default parser registry.
func WithRegistry(r *parse.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithOCRTimeout overrides the OCR time budget.
func WithOCRTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.ocrTimeout = d
		}
	}
}

// New builds a pipeline with all four format parsers registered. engine may
// be nil to disable the OCR fallback.
func New(engine *ocr.Engine, opts ...Option) *Pipeline {
	reg := parse.NewRegistry()
	reg.Register(fdx.New())
	reg.Register(fountain.New())
	reg.Register(plain.New())
	var rec pdfscan.Recognizer
	if engine != nil {
		rec = engine
	}
	reg.Register(pdfscan.New(rec))

	p := &Pipeline{
		registry:   reg,
		ocrTimeout: DefaultOCRTimeout,
		log:        applog.WithComponent("pipeline"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one full parse and always returns a well-formed envelope;
// failures never escape as errors or panics.
func (p *Pipeline) Run(ctx context.Context, f screenplay.ScriptFile) screenplay.ParseResult {
	l := applog.WithOperation(p.log, "run").With(slog.String("file", f.Name))
	telemetry.Event("parse_started", map[string]any{"bytes": len(f.Data)})

	if len(f.Data) == 0 {
		return fail("the uploaded file is empty")
	}
	if len(f.Data) > MaxUploadBytes {
		return fail(fmt.Sprintf("the file exceeds the %d MB size limit", MaxUploadBytes>>20))
	}

	format, err := parse.Detect(f)
	if err != nil {
		l.Info("format rejected", slog.Any("err", err))
		return failErr(err)
	}
	parser, err := p.registry.Lookup(format)
	if err != nil {
		l.Error("registry gap", slog.Any("err", err))
		return fail("this file format is not currently supported")
	}

	ctx, cancel := context.WithTimeout(ctx, p.ocrTimeout)
	defer cancel()

	els, meta, err := p.safeParse(ctx, parser, f)
	if err != nil {
		l.Info("parse failed", slog.String("format", string(format)), slog.Any("err", err))
		return failErr(err)
	}

	script := normalize.Normalize(els, format, f, meta)
	assessment := quality.Assess(script)

	res := screenplay.ParseResult{
		Success:    true,
		Data:       script,
		Warnings:   meta.Warnings,
		Confidence: script.Meta.Confidence,
		Blocked:    !assessment.PassesThreshold,
		Compliance: &assessment,
	}
	if script.Meta.UsedOCR {
		telemetry.Event("ocr_fallback", nil)
	}
	telemetry.Event("parse_completed", map[string]any{
		"format":  string(format),
		"scenes":  len(script.Scenes),
		"blocked": res.Blocked,
	})
	l.Info("parse completed",
		slog.String("format", string(format)),
		slog.Int("scenes", len(script.Scenes)),
		slog.Float64("confidence", script.Meta.Confidence),
		slog.Bool("blocked", res.Blocked),
	)
	return res
}

// safeParse fences the parser call: a panic inside a format parser becomes a
// ParseError instead of taking down the request.
func (p *Pipeline) safeParse(ctx context.Context, parser parse.Parser, f screenplay.ScriptFile) (els []screenplay.RawElement, meta parse.Meta, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("parser panic recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			els = nil
			err = &screenplay.ParseError{Format: parser.Format(), Offset: -1, Err: fmt.Errorf("internal parser failure: %v", rec)}
		}
	}()
	return parser.Parse(ctx, f)
}

// failErr translates the typed error taxonomy into caller-safe messages.
// Diagnostic detail (offsets, wrapped causes) stays in the logs.
func failErr(err error) screenplay.ParseResult {
	var (
		unsupported *screenplay.UnsupportedFormatError
		parseErr    *screenplay.ParseError
		pwRequired  *screenplay.PasswordRequiredError
		pwIncorrect *screenplay.PasswordIncorrectError
		ocrTimeout  *screenplay.OCRTimeoutError
		emptyDoc    *screenplay.EmptyDocumentError
	)
	switch {
	case errors.As(err, &unsupported):
		return fail(unsupported.Error())
	case errors.As(err, &pwRequired):
		return fail("this document is password-protected; please provide the password")
	case errors.As(err, &pwIncorrect):
		return fail("the password you provided is incorrect")
	case errors.As(err, &ocrTimeout):
		return fail("reading the scanned document took too long; please try again or upload a text-based file")
	case errors.As(err, &emptyDoc):
		return fail("no screenplay content could be found in this document")
	case errors.As(err, &parseErr):
		return fail(fmt.Sprintf("the %s document appears to be damaged and could not be parsed", parseErr.Format))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fail("parsing was cancelled")
	default:
		return fail("the document could not be parsed")
	}
}

func fail(msg string) screenplay.ParseResult {
	return screenplay.ParseResult{Success: false, Error: msg}
}
