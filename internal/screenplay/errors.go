/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"fmt"
	"strings"
)

// Typed parse failures. A parser either returns a complete element list or
// one of these; it never hands a half-built result downstream. The pipeline
// translates them into caller-safe ParseResult messages; the diagnostic
// detail stays in the error value itself.

// UnsupportedFormatError reports a file whose extension or content is outside
// the supported set. The message is safe to show to end users.
type UnsupportedFormatError struct {
	Extension string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported file format %s; supported formats: %s", ext, strings.Join(e.Supported, ", "))
}

// ParseError reports a structural failure inside one format parser.
// Offset is a byte offset into the input when the parser can tell, else -1.
type ParseError struct {
	Format Format
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s parse failed at byte %d: %v", e.Format, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s parse failed: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PasswordRequiredError means the PDF is encrypted and no password was supplied.
type PasswordRequiredError struct{}

func (e *PasswordRequiredError) Error() string {
	return "document is password-protected; a password is required"
}

// PasswordIncorrectError means a password was supplied but did not unlock the PDF.
type PasswordIncorrectError struct{}

func (e *PasswordIncorrectError) Error() string {
	return "the supplied password is incorrect"
}

// OCRTimeoutError means the OCR fallback exceeded its time budget. The parse
// is recoverable by retrying with a larger budget or a text-layer source.
type OCRTimeoutError struct {
	Page int
	Err  error
}

func (e *OCRTimeoutError) Error() string {
	return fmt.Sprintf("OCR timed out on page %d: %v", e.Page, e.Err)
}

func (e *OCRTimeoutError) Unwrap() error { return e.Err }

// EmptyDocumentError means parsing succeeded mechanically but produced zero
// extractable elements.
type EmptyDocumentError struct {
	Format Format
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("document contained no extractable screenplay content (%s)", e.Format)
}
