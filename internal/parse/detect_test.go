/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"screenwright/internal/screenplay"
)

func TestDetectByExtension(t *testing.T) {
	cases := []struct {
		name string
		want screenplay.Format
	}{
		{"script.fdx", screenplay.FormatFDX},
		{"script.fountain", screenplay.FormatFountain},
		{"script.pdf", screenplay.FormatPDF},
		{"script.txt", screenplay.FormatTXT},
		{"SCRIPT.FDX", screenplay.FormatFDX}, // case-insensitive
	}
	for _, c := range cases {
		got, err := Detect(screenplay.ScriptFile{Name: c.name, Data: []byte("irrelevant")})
		if err != nil {
			t.Fatalf("Detect(%s) error: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("Detect(%s) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDetectUnknownExtensionRejected(t *testing.T) {
	_, err := Detect(screenplay.ScriptFile{Name: "script.docx", Data: []byte("whatever")})
	var uf *screenplay.UnsupportedFormatError
	if !errors.As(err, &uf) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if uf.Extension != ".docx" {
		t.Fatalf("Extension = %q", uf.Extension)
	}
	if !strings.Contains(uf.Error(), ".fountain") {
		t.Fatalf("error should list supported extensions: %q", uf.Error())
	}
}

func TestDetectSniffsWithoutExtension(t *testing.T) {
	cases := []struct {
		data string
		want screenplay.Format
	}{
		{"%PDF-1.7 binary follows", screenplay.FormatPDF},
		{"<?xml version=\"1.0\"?><FinalDraft/>", screenplay.FormatFDX},
		{"\xef\xbb\xbf<FinalDraft DocumentType=\"Script\"/>", screenplay.FormatFDX},
		{"Some notes.\nINT. KITCHEN - DAY\nShe waits.", screenplay.FormatFountain},
		{"just ordinary prose with no structure", screenplay.FormatTXT},
	}
	for _, c := range cases {
		got, err := Detect(screenplay.ScriptFile{Name: "upload", Data: []byte(c.data)})
		if err != nil {
			t.Fatalf("Detect error: %v", err)
		}
		if got != c.want {
			t.Fatalf("sniff(%q) = %v, want %v", c.data[:20], got, c.want)
		}
	}
}

func TestDetectMIMEBreaksTieWithoutExtension(t *testing.T) {
	cases := []struct {
		mime string
		data string
		want screenplay.Format
	}{
		{"application/pdf", "no pdf magic here", screenplay.FormatPDF},
		{"text/xml; charset=utf-8", "plain prose body", screenplay.FormatFDX},
		{"APPLICATION/XML", "plain prose body", screenplay.FormatFDX},
		{"text/x-fountain", "plain prose body", screenplay.FormatFountain},
		// text/plain is ambiguous; sniffing still classifies the content.
		{"text/plain", "INT. KITCHEN - DAY\nShe waits.", screenplay.FormatFountain},
		{"text/plain", "just ordinary prose", screenplay.FormatTXT},
	}
	for _, c := range cases {
		got, err := Detect(screenplay.ScriptFile{Name: "upload", MIME: c.mime, Data: []byte(c.data)})
		if err != nil {
			t.Fatalf("Detect(%s) error: %v", c.mime, err)
		}
		if got != c.want {
			t.Fatalf("Detect(%s) = %v, want %v", c.mime, got, c.want)
		}
	}
}

func TestDetectExtensionOutranksMIME(t *testing.T) {
	got, err := Detect(screenplay.ScriptFile{Name: "script.fountain", MIME: "application/pdf", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	if got != screenplay.FormatFountain {
		t.Fatalf("Detect = %v, want extension to win", got)
	}
}

type stubParser struct{ format screenplay.Format }

func (s *stubParser) Format() screenplay.Format { return s.format }
func (s *stubParser) Parse(ctx context.Context, f screenplay.ScriptFile) ([]screenplay.RawElement, Meta, error) {
	return nil, Meta{}, nil
}

func TestRegistryLookupAndReplace(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup(screenplay.FormatFDX); err == nil {
		t.Fatalf("expected error for unregistered format")
	}

	a := &stubParser{format: screenplay.FormatFDX}
	b := &stubParser{format: screenplay.FormatFDX}
	r.Register(a)
	r.Register(b) // replaces
	got, err := r.Lookup(screenplay.FormatFDX)
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if got != Parser(b) {
		t.Fatalf("Register did not replace the existing parser")
	}
}

func TestRegistryFormatsStableOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubParser{format: screenplay.FormatTXT})
	r.Register(&stubParser{format: screenplay.FormatFDX})
	r.Register(&stubParser{format: screenplay.FormatPDF})
	got := r.Formats()
	want := []screenplay.Format{screenplay.FormatFDX, screenplay.FormatPDF, screenplay.FormatTXT}
	if len(got) != len(want) {
		t.Fatalf("Formats() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Formats() = %v, want %v", got, want)
		}
	}
}
