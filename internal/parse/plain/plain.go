/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package plain handles bare .txt uploads. It runs the fountain classifier in
// relaxed mode: no blank-line convention around character cues is assumed and
// every confidence is globally scaled down to signal reduced trust.
package plain

import (
	"context"

	"screenwright/internal/parse"
	"screenwright/internal/parse/fountain"
	"screenwright/internal/screenplay"
)

type Parser struct {
	inner *fountain.Parser
}

func New() *Parser { return &Parser{inner: fountain.NewRelaxed()} }

func (p *Parser) Format() screenplay.Format { return screenplay.FormatTXT }

func (p *Parser) Parse(ctx context.Context, f screenplay.ScriptFile) ([]screenplay.RawElement, parse.Meta, error) {
	return p.inner.Parse(ctx, f)
}
