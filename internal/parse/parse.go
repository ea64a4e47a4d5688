/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package parse defines the Parser contract shared by all format parsers and
// the registry that maps a detected format to its implementation. Adding a
// format means writing a parser and registering it; nothing else changes.
package parse

import (
	"context"
	"fmt"
	"sort"

	"screenwright/internal/screenplay"
)

// Meta is what a parser reports about a document besides its elements.
type Meta struct {
	Title             string
	Author            string
	Pages             int
	UsedOCR           bool
	PasswordProtected bool
	Warnings          []string
}

// Parser turns raw bytes into a complete, ordered RawElement list. It either
// succeeds with the whole document or fails with a typed error from the
// screenplay package; partial results are never returned.
type Parser interface {
	Format() screenplay.Format
	Parse(ctx context.Context, f screenplay.ScriptFile) ([]screenplay.RawElement, Meta, error)
}

// Registry maps formats to parsers.
type Registry struct {
	parsers map[screenplay.Format]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: map[screenplay.Format]Parser{}}
}

// Register adds or replaces the parser for its format.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Format()] = p
}

// Lookup returns the parser registered for the format.
func (r *Registry) Lookup(f screenplay.Format) (Parser, error) {
	p, ok := r.parsers[f]
	if !ok {
		return nil, fmt.Errorf("no parser registered for format %s", f)
	}
	return p, nil
}

// Formats lists the registered formats in stable order.
func (r *Registry) Formats() []screenplay.Format {
	out := make([]screenplay.Format, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
