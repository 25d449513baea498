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

package extraction

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/extractor"
	"github.com/travdata/tabex/pkg/filesio"
	"github.com/travdata/tabex/pkg/pipeline"
	"github.com/travdata/tabex/pkg/scriptengine"
	"github.com/travdata/tabex/pkg/systems"
	"github.com/travdata/tabex/pkg/template"
)

// Options configures one Driver.Run call.
type Options struct {
	BookID            string
	InputPdfPath      string
	OverwriteExisting bool
	WithTags          []string
	WithoutTags       []string
}

// Driver bridges a loaded template.Book to the flat pipeline model, running
// one table at a time so cancellation can be polled between them.
type Driver struct {
	Loader *template.Loader

	// Output is the destination container: existence checks (for the
	// skip-if-already-extracted rule) and index.csv both go through it.
	Output filesio.FilesIo
	// OutputDirPath is Output's backing filesystem directory, handed to the
	// per-table pipeline's OutputDirectory node. The pipeline systems speak
	// plain paths, not filesio.FilesIo directly (see DESIGN.md); this field
	// is only meaningful when Output is directory-backed, the only backing
	// this CLI wires up.
	OutputDirPath string

	Reader extractor.TableReader
	Host   *scriptengine.Host
	Logger *slog.Logger
}

// Run loads opts.BookID, walks its template depth-first, and extracts every
// surviving table in path order, sending one Progress event per table
// processed (preceded by a non-terminal Error event when that table fails)
// plus a single terminal Completed/Cancelled/fatal-Error event. Run closes
// events before returning.
func (d *Driver) Run(opts Options, cancel *CancelFlag, events chan<- Event) {
	defer close(events)

	start := time.Now()
	defer func() { observeRunDuration(time.Since(start).Seconds()) }()

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New()
	logger = logger.With("run_id", runID.String(), "book_id", opts.BookID)

	book, err := d.Loader.LoadBook(opts.BookID)
	if err != nil {
		events <- Event{Kind: EventError, Err: err, Terminal: true}
		return
	}

	indexWriter, err := LoadIndexWriter(d.Output)
	if err != nil {
		logger.Warn("failed to read existing index.csv, starting from an empty index", "err", err)
		indexWriter = &IndexWriter{fio: d.Output, entries: make(map[string]IndexEntry)}
	}

	filter := TagFilter{
		WithTags:    template.NewTagSet(opts.WithTags),
		WithoutTags: template.NewTagSet(opts.WithoutTags),
	}

	surviving, skipped := survivingTables(book, filter, d.Output, opts.OverwriteExisting)
	recordSkipped(skipped)
	total := len(surviving)
	completed := 0

	meta := systems.NewMetaSystem(d.Reader, d.Host)

	for _, v := range surviving {
		if !cancel.DoContinue() {
			events <- Event{Kind: EventCancelled}
			return
		}

		tablePath := strings.Join(v.Path, "/")
		csvRelPath := tablePath + ".csv"

		pages, err := extractOneTable(meta, logger, opts.InputPdfPath, d.OutputDirPath, book, v, csvRelPath)
		completed++
		recordTableOutcome(err)
		if err != nil {
			events <- Event{
				Kind:     EventError,
				Path:     tablePath,
				Err:      fmt.Errorf("processing table %s: %w", tablePath, err),
				Terminal: false,
			}
			events <- Event{Kind: EventProgress, Path: tablePath, Completed: completed, Total: total}
			continue
		}

		offsetPages := make([]int32, len(pages))
		for i, p := range pages {
			offsetPages[i] = p + book.PageOffset
		}
		indexWriter.Put(tablePath, offsetPages, sortedTagList(v.EffectiveTags))

		events <- Event{Kind: EventProgress, Path: tablePath, Completed: completed, Total: total}
	}

	if err := indexWriter.Commit(); err != nil {
		logger.Warn("failed to write index.csv", "err", err)
	}

	events <- Event{Kind: EventCompleted}
}

// survivingTables walks book depth-first (sorted by path for determinism),
// applies the tag filter, then drops any table whose output CSV already
// exists when overwriteExisting is false. It also returns the number of
// tables dropped by either rule, for metrics.
func survivingTables(book template.Book, filter TagFilter, output filesio.FilesIo, overwriteExisting bool) ([]template.TableVisit, int) {
	var visits []template.TableVisit
	book.Group.WalkTables(func(v template.TableVisit) {
		visits = append(visits, v)
	})
	sort.Slice(visits, func(i, j int) bool {
		return strings.Join(visits[i].Path, "/") < strings.Join(visits[j].Path, "/")
	})

	surviving := make([]template.TableVisit, 0, len(visits))
	skipped := 0
	for _, v := range visits {
		if !filter.Allows(v.EffectiveTags) {
			skipped++
			continue
		}
		if !overwriteExisting && output.Exists(strings.Join(v.Path, "/")+".csv") {
			skipped++
			continue
		}
		surviving = append(surviving, v)
	}
	return surviving, skipped
}

func sortedTagList(tags template.TagSet) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// extractOneTable builds and runs the small pipeline for a single
// template-Table: one InputPdfFile/OutputDirectory pair, one PdfExtractTable
// node per portion, an optional JsContext/EsTransform pair combining them,
// and one OutputFileCsv node. It returns the distinct source page numbers
// the table was pulled from.
func extractOneTable(meta *systems.MetaSystem, logger *slog.Logger, pdfPath, outputDirPath string, book template.Book, v template.TableVisit, csvRelPath string) ([]int32, error) {
	pl := pipeline.NewPipeline()
	pl.AddNode(pipeline.Node{Id: "pdf", Spec: systems.InputPdfFile{}})
	pl.AddNode(pipeline.Node{Id: "dir", Spec: systems.OutputDirectory{}})

	portionIds := make([]pipeline.NodeId, len(v.Table.Portions))
	for i, portion := range v.Table.Portions {
		id := pipeline.NodeId(fmt.Sprintf("portion-%d", i))
		portionIds[i] = id
		pl.AddNode(pipeline.Node{Id: id, Spec: systems.PdfExtractTable{
			Pdf:    "pdf",
			Page:   portion.Page,
			Method: portion.Method,
			Rect:   portion.Rect,
		}})
	}

	finalDataId, err := wireFinalData(pl, book, v, portionIds)
	if err != nil {
		return nil, err
	}

	pl.AddNode(pipeline.Node{Id: "out", Spec: systems.OutputFileCsv{
		InputData: finalDataId,
		Directory: "dir",
		Filename:  csvRelPath,
	}})

	args := pipeline.NewArgSet()
	args.Set("pdf", systems.ParamPath, pipeline.ArgValue{Kind: pipeline.ArgValueInputPdf, Path: pdfPath})
	args.Set("dir", systems.ParamPath, pipeline.ArgValue{Kind: pipeline.ArgValueOutputDirectory, Path: outputDirPath})

	outcome := pipeline.NewProcessor(meta, logger).Process(pl, args)

	result, ok := outcome.NodeResults["out"]
	if !ok || result.Kind != pipeline.ResultSuccess {
		return nil, describeFailure(outcome)
	}

	pageSet := make(map[int32]struct{}, len(v.Table.Portions))
	for _, portion := range v.Table.Portions {
		pageSet[portion.Page] = struct{}{}
	}
	pages := make([]int32, 0, len(pageSet))
	for p := range pageSet {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages, nil
}

// wireFinalData adds the transform stage (if the table has one) to pl and
// returns the node id whose JsonData intermediate is the table's final
// form. A table with more than one portion and no transform is an invalid
// template: nothing combines the portions into one table.
func wireFinalData(pl *pipeline.Pipeline, book template.Book, v template.TableVisit, portionIds []pipeline.NodeId) (pipeline.NodeId, error) {
	if v.Table.Transform == nil {
		if len(portionIds) != 1 {
			return "", travdataerr.New(travdataerr.InvalidTemplate,
				fmt.Sprintf("table has %d portions but no transform to combine them", len(portionIds)))
		}
		return portionIds[0], nil
	}

	modules := make(map[string]string, len(book.Scripts))
	for _, s := range book.Scripts {
		modules[s.Name] = s.Source
	}
	pl.AddNode(pipeline.Node{Id: "ctx", Spec: systems.JsContext{Modules: modules}})

	validPortionIds := make(map[pipeline.NodeId]struct{}, len(portionIds))
	for _, id := range portionIds {
		validPortionIds[id] = struct{}{}
	}

	inputData := make(map[string]pipeline.NodeId, len(v.Table.Transform.InputData))
	for arg, ref := range v.Table.Transform.InputData {
		id := pipeline.NodeId(ref)
		if _, ok := validPortionIds[id]; !ok {
			return "", travdataerr.New(travdataerr.InvalidTemplate,
				fmt.Sprintf("transform argument %q references unknown portion %q", arg, ref))
		}
		inputData[arg] = id
	}

	pl.AddNode(pipeline.Node{Id: "transform", Spec: systems.EsTransform{
		Context:   "ctx",
		InputData: inputData,
		Code:      v.Table.Transform.Code,
	}})
	return "transform", nil
}

// describeFailure builds a readable error out of an Outcome when the "out"
// node did not succeed, preferring a node's own ProcessErrored cause over a
// generic unprocessed-dependency message. When several nodes errored, which
// one is reported is not defined (map iteration order).
func describeFailure(outcome pipeline.Outcome) error {
	for id, result := range outcome.NodeResults {
		if result.Kind == pipeline.ResultProcessErrored && result.Err != nil {
			return fmt.Errorf("node %s: %w", id, result.Err)
		}
	}
	return fmt.Errorf("table extraction did not complete: %+v", outcome.NodeResults["out"])
}
