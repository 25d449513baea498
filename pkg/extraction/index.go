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
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/filesio"
)

const indexPath = "index.csv"

// IndexEntry records one table's successful extraction: the (offset, sorted)
// source pages it was pulled from and its effective tags.
type IndexEntry struct {
	Pages []int32
	Tags  []string
}

// IndexWriter reads index.csv (if present) into memory, accumulates Put
// calls as extractions succeed, and rewrites the whole file atomically on
// Commit. There is exactly one read and, at most, one write per run.
type IndexWriter struct {
	fio     filesio.FilesIo
	entries map[string]IndexEntry
}

// LoadIndexWriter opens and parses the existing index.csv within fio, or
// starts from an empty index if none exists. An unreadable or malformed
// existing index is returned as an error; Driver.Run logs it as a warning
// and continues from an empty index rather than aborting the run.
func LoadIndexWriter(fio filesio.FilesIo) (*IndexWriter, error) {
	w := &IndexWriter{fio: fio, entries: make(map[string]IndexEntry)}

	if !fio.Exists(indexPath) {
		return w, nil
	}

	r, err := fio.OpenRead(indexPath)
	if err != nil {
		return nil, travdataerr.Wrap(travdataerr.IoFailed, "opening existing index.csv", err)
	}
	defer r.Close()

	if err := w.parse(r); err != nil {
		return nil, travdataerr.Wrap(travdataerr.IoFailed, "parsing existing index.csv", err)
	}
	return w, nil
}

func (w *IndexWriter) parse(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	for _, row := range rows[1:] { // skip header
		if len(row) != 3 {
			return fmt.Errorf("extraction: malformed index row %v", row)
		}
		tablePath, pagesField, tagsField := row[0], row[1], row[2]

		var pages []int32
		if pagesField != "" {
			for _, s := range strings.Split(pagesField, ";") {
				n, err := strconv.ParseInt(s, 10, 32)
				if err != nil {
					return fmt.Errorf("extraction: malformed page number %q in index: %w", s, err)
				}
				pages = append(pages, int32(n))
			}
		}

		var tags []string
		if tagsField != "" {
			tags = strings.Split(tagsField, ";")
		}

		w.entries[tablePath] = IndexEntry{Pages: pages, Tags: tags}
	}
	return nil
}

// Put records (or overwrites) the index entry for tablePath, sorting pages
// numerically and tags lexicographically as spec §6 requires.
func (w *IndexWriter) Put(tablePath string, pages []int32, tags []string) {
	sortedPages := append([]int32(nil), pages...)
	sort.Slice(sortedPages, func(i, j int) bool { return sortedPages[i] < sortedPages[j] })

	sortedTags := append([]string(nil), tags...)
	sort.Strings(sortedTags)

	w.entries[tablePath] = IndexEntry{Pages: sortedPages, Tags: sortedTags}
}

// Commit writes the accumulated entries back to index.csv in one atomic
// write, table paths in lexicographic order for a stable diff.
func (w *IndexWriter) Commit() error {
	writer, err := w.fio.OpenWrite(indexPath)
	if err != nil {
		return travdataerr.Wrap(travdataerr.IoFailed, "opening index.csv for write", err)
	}

	csvWriter := csv.NewWriter(writer)
	csvWriter.UseCRLF = true

	if err := csvWriter.Write([]string{"table_path", "pages", "tags"}); err != nil {
		_ = writer.Discard()
		return travdataerr.Wrap(travdataerr.IoFailed, "writing index.csv header", err)
	}

	paths := make([]string, 0, len(w.entries))
	for p := range w.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		entry := w.entries[p]
		pageStrs := make([]string, len(entry.Pages))
		for i, pg := range entry.Pages {
			pageStrs[i] = strconv.FormatInt(int64(pg), 10)
		}
		row := []string{p, strings.Join(pageStrs, ";"), strings.Join(entry.Tags, ";")}
		if err := csvWriter.Write(row); err != nil {
			_ = writer.Discard()
			return travdataerr.Wrap(travdataerr.IoFailed, "writing index.csv row", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		_ = writer.Discard()
		return travdataerr.Wrap(travdataerr.IoFailed, "flushing index.csv", err)
	}

	if err := writer.Commit(); err != nil {
		return travdataerr.Wrap(travdataerr.IoFailed, "committing index.csv", err)
	}
	return nil
}
