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

// Package table defines the in-memory tabular value shared across the
// pipeline: an ordered sequence of rows, each an ordered sequence of string
// cells. Rows may have differing lengths.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Table is an ordered sequence of rows of UTF-8 string cells. There is no
// structural constraint on row width uniformity.
type Table struct {
	Rows [][]string
}

// New constructs a Table from the given rows, taking ownership of the slice.
func New(rows [][]string) Table {
	return Table{Rows: rows}
}

// NumRows returns the number of rows in the table.
func (t Table) NumRows() int {
	return len(t.Rows)
}

// Clone returns a deep copy of the table, safe for independent mutation.
func (t Table) Clone() Table {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cloned := make([]string, len(row))
		copy(cloned, row)
		rows[i] = cloned
	}
	return Table{Rows: rows}
}

// ToJSON converts the table to the JSON-compatible shape used for
// Intermediate values: an array of arrays of strings.
func (t Table) ToJSON() []any {
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}

// FromJSON converts a JSON value previously produced by ToJSON (or an
// equivalent array-of-arrays-of-strings) back into a Table. Returns an error
// if the shape does not match.
func FromJSON(value any) (Table, error) {
	rowsAny, ok := value.([]any)
	if !ok {
		return Table{}, fmt.Errorf("table: expected JSON array of rows, got %T", value)
	}
	rows := make([][]string, len(rowsAny))
	for i, rowAny := range rowsAny {
		cellsAny, ok := rowAny.([]any)
		if !ok {
			return Table{}, fmt.Errorf("table: expected JSON array of cells at row %d, got %T", i, rowAny)
		}
		cells := make([]string, len(cellsAny))
		for j, cellAny := range cellsAny {
			cell, ok := cellAny.(string)
			if !ok {
				return Table{}, fmt.Errorf("table: expected string cell at row %d, col %d, got %T", i, j, cellAny)
			}
			cells[j] = cell
		}
		rows[i] = cells
	}
	return Table{Rows: rows}, nil
}

// WriteCSV writes the table as CSV to w, using CRLF line terminators and
// allowing rows of differing widths.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("table: write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV reads CSV from r into a Table, permitting rows of differing
// widths.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable-length rows

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("table: read CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return Table{Rows: rows}, nil
}
