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

// Package main implements the extract-csv-tables CLI: it loads a book from a
// template directory, extracts its tables from a source PDF, and writes one
// CSV per table plus an index.csv into an output directory.
//
// Usage:
//
//	extract-csv-tables --template=<path> [options] [<book>] <input_pdf> <output>
//
// Options:
//
//	--output-type=dir|zip   output container kind (default: dir; zip is rejected at startup)
//	--overwrite-existing    re-extract tables whose output CSV already exists
//	--with-tags=a,b         only extract tables tagged with at least one of these
//	--without-tags=a,b      never extract tables tagged with any of these (wins over --with-tags)
//	--no-progress           suppress the stderr progress bar
//	--no-cache              bypass the on-disk extraction cache
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/travdata/tabex/internal/dirio"
	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/cache"
	"github.com/travdata/tabex/pkg/extraction"
	"github.com/travdata/tabex/pkg/extractor"
	"github.com/travdata/tabex/pkg/scriptengine"
	"github.com/travdata/tabex/pkg/template"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	flags, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return travdataerr.ExitFatal
	}

	templateFio, err := dirio.New(flags.templatePath)
	if err != nil {
		return reportFatal(logger, flags.noColor, travdataerr.Wrap(travdataerr.NotFound, "opening template directory", err))
	}

	loader, err := template.NewLoader(templateFio)
	if err != nil {
		return reportFatal(logger, flags.noColor, err)
	}

	bookID := flags.book
	if bookID == "" {
		defaultID, ok := loader.DefaultBookID()
		if !ok {
			return reportFatal(logger, flags.noColor, travdataerr.New(travdataerr.InvalidTemplate,
				"no book name given and the template declares more than one book"))
		}
		bookID = defaultID
	}

	if flags.outputType == "zip" {
		return reportFatal(logger, flags.noColor, travdataerr.New(travdataerr.NotFound,
			"--output-type=zip has no backing FilesIo implementation in this build; use dir"))
	}

	if err := os.MkdirAll(flags.outputPath, 0o755); err != nil {
		return reportFatal(logger, flags.noColor, travdataerr.Wrap(travdataerr.IoFailed, "creating output directory", err))
	}
	outputFio, err := dirio.New(flags.outputPath)
	if err != nil {
		return reportFatal(logger, flags.noColor, travdataerr.Wrap(travdataerr.IoFailed, "opening output directory", err))
	}

	host := scriptengine.NewHost()
	defer host.Close()

	reader, closeReader, err := buildTableReader(flags, logger)
	if err != nil {
		return reportFatal(logger, flags.noColor, err)
	}
	defer closeReader()

	driver := &extraction.Driver{
		Loader:        loader,
		Output:        outputFio,
		OutputDirPath: flags.outputPath,
		Reader:        reader,
		Host:          host,
		Logger:        logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cancelFlag := &extraction.CancelFlag{}
	go func() {
		<-ctx.Done()
		logger.Info("received interrupt, finishing current table then stopping")
		cancelFlag.Cancel()
	}()

	events := make(chan extraction.Event, 8)
	go driver.Run(extraction.Options{
		BookID:            bookID,
		InputPdfPath:      flags.inputPdf,
		OverwriteExisting: flags.overwriteExisting,
		WithTags:          flags.withTags,
		WithoutTags:       flags.withoutTags,
	}, cancelFlag, events)

	return consumeEvents(events, flags, logger)
}

func consumeEvents(events <-chan extraction.Event, flags cliFlags, logger *slog.Logger) int {
	bar := newProgressBar(flags)
	defer finishProgressBar(bar)

	for event := range events {
		switch event.Kind {
		case extraction.EventProgress:
			advanceProgressBar(bar, event)
			logger.Debug("table processed", "path", event.Path, "completed", event.Completed, "total", event.Total)
		case extraction.EventError:
			if event.Terminal {
				return reportFatal(logger, flags.noColor, event.Err)
			}
			logger.Warn(fmt.Sprintf("%v", event.Err))
		case extraction.EventCompleted:
			return travdataerr.ExitSuccess
		case extraction.EventCancelled:
			logger.Warn("extraction cancelled")
			return travdataerr.ExitCancelled
		}
	}
	return travdataerr.ExitSuccess
}

func reportFatal(logger *slog.Logger, noColor bool, err error) int {
	if te, ok := err.(*travdataerr.Error); ok {
		fmt.Fprint(os.Stderr, te.Format(noColor))
		return te.Kind.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return travdataerr.ExitFatal
}

// buildTableReader wires the PDF extraction backend. The actual table
// extractor (invoking Tabula or an equivalent) is an external collaborator
// per spec §1/§4.5 — no implementation lives in this module — so this CLI
// wires unimplementedTableReader, which fails clearly if the pipeline ever
// reaches it, optionally wrapped in the on-disk cache (pkg/cache) unless
// --no-cache is given. closeFn stores the cache snapshot on shutdown, per
// spec §4.4's "on shutdown (or on explicit store())".
func buildTableReader(flags cliFlags, logger *slog.Logger) (extractor.TableReader, func(), error) {
	var delegate extractor.TableReader = unimplementedTableReader{}
	noop := func() {}

	if flags.noCache {
		return delegate, noop, nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		logger.Warn("could not resolve user cache directory, disabling table cache", "err", err)
		return delegate, noop, nil
	}
	snapshotPath := filepath.Join(cacheDir, "travdata", "table-cache.json")

	c, err := cache.Load(delegate, snapshotPath, cache.DefaultConfig(), logger)
	if err != nil {
		return nil, noop, travdataerr.Wrap(travdataerr.CacheReadFailed, "loading extraction cache", err)
	}
	return c, func() {
		if err := c.Store(); err != nil {
			logger.Warn("failed to store extraction cache", "err", err)
		}
	}, nil
}

// unimplementedTableReader is the placeholder extractor.TableReader this CLI
// wires by default. Driving an actual PDF table extraction (the Tabula
// integration or an equivalent) is out of scope for this module; any
// PdfExtractTable node that reaches it surfaces a clear ExtractorFailed error
// instead of a nil-pointer panic.
type unimplementedTableReader struct{}

func (unimplementedTableReader) ReadTablePortions(pdfPath string, portions []extractor.TablePortion) ([]extractor.ExtractedTable, error) {
	return nil, travdataerr.New(travdataerr.ExtractorFailed,
		"no PDF table extractor backend is wired into this build")
}
