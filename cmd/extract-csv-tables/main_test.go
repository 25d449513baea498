// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/extraction"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumeEventsCompleted(t *testing.T) {
	events := make(chan extraction.Event, 4)
	events <- extraction.Event{Kind: extraction.EventProgress, Path: "weapons", Completed: 1, Total: 2}
	events <- extraction.Event{Kind: extraction.EventProgress, Path: "armor", Completed: 2, Total: 2}
	events <- extraction.Event{Kind: extraction.EventCompleted}
	close(events)

	code := consumeEvents(events, cliFlags{noProgress: true}, discardLogger())
	if code != travdataerr.ExitSuccess {
		t.Errorf("exit code = %d, want %d", code, travdataerr.ExitSuccess)
	}
}

func TestConsumeEventsCancelled(t *testing.T) {
	events := make(chan extraction.Event, 2)
	events <- extraction.Event{Kind: extraction.EventProgress, Path: "weapons", Completed: 1, Total: 3}
	events <- extraction.Event{Kind: extraction.EventCancelled}
	close(events)

	code := consumeEvents(events, cliFlags{noProgress: true}, discardLogger())
	if code != travdataerr.ExitCancelled {
		t.Errorf("exit code = %d, want %d", code, travdataerr.ExitCancelled)
	}
}

func TestConsumeEventsNonTerminalErrorContinues(t *testing.T) {
	events := make(chan extraction.Event, 3)
	events <- extraction.Event{Kind: extraction.EventError, Path: "weapons", Err: errors.New("boom"), Terminal: false}
	events <- extraction.Event{Kind: extraction.EventProgress, Path: "weapons", Completed: 1, Total: 1}
	events <- extraction.Event{Kind: extraction.EventCompleted}
	close(events)

	code := consumeEvents(events, cliFlags{noProgress: true}, discardLogger())
	if code != travdataerr.ExitSuccess {
		t.Errorf("exit code = %d, want %d (non-terminal errors don't fail the run)", code, travdataerr.ExitSuccess)
	}
}

func TestConsumeEventsTerminalErrorReturnsItsExitCode(t *testing.T) {
	events := make(chan extraction.Event, 1)
	events <- extraction.Event{
		Kind:     extraction.EventError,
		Err:      travdataerr.New(travdataerr.InvalidTemplate, "bad book"),
		Terminal: true,
	}
	close(events)

	code := consumeEvents(events, cliFlags{noProgress: true}, discardLogger())
	if code != travdataerr.ExitFatal {
		t.Errorf("exit code = %d, want %d", code, travdataerr.ExitFatal)
	}
}

func TestConsumeEventsClosedWithNoTerminalEventStillExits(t *testing.T) {
	events := make(chan extraction.Event)
	close(events)

	code := consumeEvents(events, cliFlags{noProgress: true}, discardLogger())
	if code != travdataerr.ExitSuccess {
		t.Errorf("exit code = %d, want %d", code, travdataerr.ExitSuccess)
	}
}

func TestReportFatalTravdataerrUsesItsExitCode(t *testing.T) {
	err := travdataerr.New(travdataerr.Cancelled, "stopped")
	code := reportFatal(discardLogger(), true, err)
	if code != travdataerr.ExitCancelled {
		t.Errorf("exit code = %d, want %d", code, travdataerr.ExitCancelled)
	}
}

func TestReportFatalPlainErrorIsExitFatal(t *testing.T) {
	code := reportFatal(discardLogger(), true, errors.New("unexpected"))
	if code != travdataerr.ExitFatal {
		t.Errorf("exit code = %d, want %d", code, travdataerr.ExitFatal)
	}
}

func TestUnimplementedTableReaderFailsClearly(t *testing.T) {
	_, err := unimplementedTableReader{}.ReadTablePortions("book.pdf", nil)
	if err == nil {
		t.Fatal("expected an error from the unimplemented reader")
	}
	var te *travdataerr.Error
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want a *travdataerr.Error", err)
	}
	if te.Kind != travdataerr.ExtractorFailed {
		t.Errorf("Kind = %v, want %v", te.Kind, travdataerr.ExtractorFailed)
	}
}

func TestBuildTableReaderNoCacheReturnsDelegateDirectly(t *testing.T) {
	reader, closeFn, err := buildTableReader(cliFlags{noCache: true}, discardLogger())
	if err != nil {
		t.Fatalf("buildTableReader: %v", err)
	}
	if _, ok := reader.(unimplementedTableReader); !ok {
		t.Errorf("reader = %T, want unimplementedTableReader", reader)
	}
	closeFn()
}
