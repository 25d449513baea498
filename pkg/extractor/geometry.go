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

// Package extractor defines the external-collaborator contracts for PDF
// table extraction and page rasterization (TableReader, PdfRenderer), and
// the geometry types (PdfRect, TablePortion) they speak in. Implementations
// of these interfaces are out of scope; this package owns only the shapes.
package extractor

import (
	"fmt"
	"math"

	"github.com/travdata/tabex/pkg/table"
)

// pointPrecision is the number of quantised units per PDF point (1/72 of an
// inch). A rect's coordinates are stored as this fixed-point representation
// so that cache keys derived from them are stable across platforms.
const pointPrecision = 4096.0

// QuantizePoint converts a floating-point PDF point measurement into its
// fixed-point quantised form.
func QuantizePoint(value float32) int64 {
	return int64(math.Round(float64(value) * pointPrecision))
}

// UnquantizePoint recovers the floating-point point measurement from its
// quantised form.
func UnquantizePoint(quantised int64) float32 {
	return float32(float64(quantised) / pointPrecision)
}

// ExtractionMethod selects the Tabula extraction algorithm applied to a
// TablePortion.
type ExtractionMethod string

const (
	ExtractionMethodGuess   ExtractionMethod = "guess"
	ExtractionMethodLattice ExtractionMethod = "lattice"
	ExtractionMethodStream  ExtractionMethod = "stream"
)

// discriminant returns a stable, fixed-width byte identifying the method for
// canonical binary encoding; order matches the original source's enum
// declaration so historical cache snapshots stay interpretable.
func (m ExtractionMethod) discriminant() (byte, error) {
	switch m {
	case ExtractionMethodGuess:
		return 0, nil
	case ExtractionMethodLattice:
		return 1, nil
	case ExtractionMethodStream:
		return 2, nil
	default:
		return 0, fmt.Errorf("extractor: unknown extraction method %q", m)
	}
}

// PdfRect is a rectangular page region in the top-left-origin coordinate
// system, in quantised points. Validity requires Left <= Right and
// Top <= Bottom.
type PdfRect struct {
	Left   int64
	Top    int64
	Right  int64
	Bottom int64
}

// Validate reports whether r satisfies the top-left-origin ordering
// invariant.
func (r PdfRect) Validate() error {
	if r.Left > r.Right {
		return fmt.Errorf("extractor: invalid PdfRect: left %d > right %d", r.Left, r.Right)
	}
	if r.Top > r.Bottom {
		return fmt.Errorf("extractor: invalid PdfRect: top %d > bottom %d", r.Top, r.Bottom)
	}
	return nil
}

// ConvertBottomLeftRect builds a top-left-origin PdfRect from a rectangle
// described by a Tabula template entry's (x1,y1,x2,y2) fields, where y1 is
// the vertically lower bound and y2 the upper bound in the PDF's native
// bottom-left-origin system (y1 <= y2). There is no page height carried in
// the template entry to flip against, so the conversion is a relabelling
// consistent with that same ordering: the template's lower y bound becomes
// Top and its upper y bound becomes Bottom, which satisfies Top <= Bottom
// for free given the template's own x1<=x2 && y1<=y2 invariant.
func ConvertBottomLeftRect(x1, y1, x2, y2 float32) PdfRect {
	return PdfRect{
		Left:   QuantizePoint(x1),
		Right:  QuantizePoint(x2),
		Top:    QuantizePoint(y1),
		Bottom: QuantizePoint(y2),
	}
}

// TablePortion is the finest-grained extraction request: one rectangular
// region on one page, using one extraction method. It is the unit the
// extraction cache and the TableReader collaborator both speak.
type TablePortion struct {
	Method ExtractionMethod
	Page   int32
	Rect   PdfRect
}

// CanonicalBytes returns a fixed binary encoding of p (method discriminant,
// page, four quantised coordinates in Left/Top/Right/Bottom order, all
// little-endian), identical across runs and platforms. Used as the second
// stage of the extraction cache's key derivation.
func (p TablePortion) CanonicalBytes() ([]byte, error) {
	disc, err := p.Method.discriminant()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 1+4+8*4)
	buf = append(buf, disc)
	buf = appendInt32LE(buf, p.Page)
	buf = appendInt64LE(buf, p.Rect.Left)
	buf = appendInt64LE(buf, p.Rect.Top)
	buf = appendInt64LE(buf, p.Rect.Right)
	buf = appendInt64LE(buf, p.Rect.Bottom)
	return buf, nil
}

func appendInt32LE(buf []byte, v int32) []byte {
	u := uint32(v)
	return append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
}

func appendInt64LE(buf []byte, v int64) []byte {
	u := uint64(v)
	return append(buf,
		byte(u), byte(u>>8), byte(u>>16), byte(u>>24),
		byte(u>>32), byte(u>>40), byte(u>>48), byte(u>>56))
}

// ExtractedTable is one rectangular region's extraction result.
type ExtractedTable struct {
	Page int32
	Data table.Table
}
