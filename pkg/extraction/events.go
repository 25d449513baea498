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

// Package extraction bridges the hierarchical template (pkg/template) to the
// flat pipeline model (pkg/pipeline, pkg/systems), driving a book's
// extraction to completion with progress reporting, tag filtering, page
// offsets, cooperative cancellation and index-file maintenance.
package extraction

import "sync/atomic"

// EventKind distinguishes the shape of an Event emitted during a run.
type EventKind string

const (
	// EventProgress is emitted once per template-Table actually processed
	// (whether it succeeded or produced a recoverable error).
	EventProgress EventKind = "progress"
	// EventError is emitted for a failure. Terminal distinguishes a fatal
	// setup failure (no further events follow) from a recoverable,
	// single-table failure (the run continues).
	EventError EventKind = "error"
	// EventCompleted is emitted exactly once, as the final event of a run
	// that was not cancelled.
	EventCompleted EventKind = "completed"
	// EventCancelled is emitted exactly once, as the final event of a run
	// stopped by cancellation.
	EventCancelled EventKind = "cancelled"
)

// Event is one notification emitted during a Driver.Run call.
type Event struct {
	Kind EventKind

	// Path names the template-Table this event concerns (EventProgress,
	// and EventError when Terminal is false). Empty otherwise.
	Path string

	// Completed and Total describe progress as of this event
	// (EventProgress only): Completed tables out of Total surviving the
	// tag and existence filters.
	Completed int
	Total     int

	// Err holds the failure (EventError only).
	Err error
	// Terminal is true when Err ended the run outright (template load,
	// output-open, or extractor-init failure); false for a recoverable,
	// single-table failure that leaves the run in progress.
	Terminal bool
}

// CancelFlag is the single shared cancellation signal a Driver.Run call
// polls between template-Tables. The zero value is ready to use.
type CancelFlag struct {
	cancelled atomic.Bool
}

// Cancel requests that the run stop at the next poll point. Safe to call
// from any goroutine (e.g. a SIGINT handler).
func (f *CancelFlag) Cancel() {
	f.cancelled.Store(true)
}

// DoContinue reports whether the run should continue: false once Cancel has
// been called.
func (f *CancelFlag) DoContinue() bool {
	return !f.cancelled.Load()
}
