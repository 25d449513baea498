// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package travdataerr provides structured error handling for the
// extract-csv-tables core: an Error type that carries a Kind, a human
// message, an optional cause/fix pair for CLI display, and a wrapped
// underlying error, plus the process exit codes the CLI contract requires.
package travdataerr

import (
	"fmt"

	"github.com/fatih/color"
)

// Kind enumerates the error categories this system distinguishes, per the
// error handling design.
type Kind string

const (
	NotFound              Kind = "not_found"
	NonRelativePath       Kind = "non_relative_path"
	InvalidTemplate       Kind = "invalid_template"
	ExtractorFailed       Kind = "extractor_failed"
	ScriptCompileFailed   Kind = "script_compile_failed"
	ScriptRuntimeFailed   Kind = "script_runtime_failed"
	WrongIntermediateKind Kind = "wrong_intermediate_kind"
	MissingIntermediate   Kind = "missing_intermediate"
	MissingArgument       Kind = "missing_argument"
	CacheReadFailed       Kind = "cache_read_failed"
	CacheWriteFailed      Kind = "cache_write_failed"
	IoFailed              Kind = "io_failed"
	Cancelled             Kind = "cancelled"
	BugInProcessor        Kind = "bug_in_processor"
)

// CLI process exit codes, per the external interface contract.
const (
	ExitSuccess   = 0
	ExitFatal     = 1
	ExitCancelled = 130
)

// ExitCode returns the process exit code a fatal error of this Kind should
// produce. Cancelled maps to 130 (conventional SIGINT exit code); every
// other kind maps to the generic fatal-setup-failure code. Per-node errors
// surfaced during pipeline processing never reach this mapping directly —
// only fatal driver-level errors do.
func (k Kind) ExitCode() int {
	if k == Cancelled {
		return ExitCancelled
	}
	return ExitFatal
}

// Error is a structured error carrying what went wrong, why, and how to fix
// it, along with the Kind used for exit-code mapping and programmatic
// dispatch.
type Error struct {
	Kind    Kind
	Message string
	Cause   string
	Fix     string
	Err     error
}

// New creates an Error of the given Kind with a message only.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given Kind wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithCauseFix attaches CLI-facing cause/fix text and returns the receiver
// for chaining.
func (e *Error) WithCauseFix(cause, fix string) *Error {
	e.Cause = cause
	e.Fix = fix
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Format renders the error for terminal display, with optional color.
func (e *Error) Format(noColor bool) string {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed, color.Bold)
	if noColor {
		bold.DisableColor()
		red.DisableColor()
	}

	out := red.Sprint("Error: ") + e.Message + "\n"
	if e.Cause != "" {
		out += bold.Sprint("Cause: ") + e.Cause + "\n"
	}
	if e.Fix != "" {
		out += bold.Sprint("Fix:   ") + e.Fix + "\n"
	}
	return out
}
