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

package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantizePointRoundTrips(t *testing.T) {
	assert.Equal(t, int64(4096), QuantizePoint(1.0))
	assert.Equal(t, int64(2048), QuantizePoint(0.5))
	assert.InDelta(t, float32(1.0), UnquantizePoint(4096), 1e-6)
}

func TestConvertBottomLeftRectProducesTopLeftOrdering(t *testing.T) {
	// Template entry: (x1,y1)=(10,20) to (x2,y2)=(100,200), with y1 <= y2
	// per the Tabula template's own invariant.
	rect := ConvertBottomLeftRect(10, 20, 100, 200)

	require.NoError(t, rect.Validate())
	assert.Equal(t, QuantizePoint(10), rect.Left)
	assert.Equal(t, QuantizePoint(100), rect.Right)
	assert.Equal(t, QuantizePoint(20), rect.Top)
	assert.Equal(t, QuantizePoint(200), rect.Bottom)
}

func TestPdfRectValidateRejectsInvertedCoordinates(t *testing.T) {
	assert.Error(t, PdfRect{Left: 10, Right: 5, Top: 0, Bottom: 10}.Validate())
	assert.Error(t, PdfRect{Left: 0, Right: 10, Top: 10, Bottom: 0}.Validate())
	assert.NoError(t, PdfRect{Left: 0, Right: 10, Top: 0, Bottom: 10}.Validate())
}

func TestCanonicalBytesIsStableAndDistinguishesPortions(t *testing.T) {
	a := TablePortion{Method: ExtractionMethodStream, Page: 1, Rect: PdfRect{Left: 0, Top: 0, Right: 100, Bottom: 200}}
	b := a
	b.Page = 2

	ab, err := a.CanonicalBytes()
	require.NoError(t, err)
	ab2, err := a.CanonicalBytes()
	require.NoError(t, err)
	assert.Equal(t, ab, ab2)

	bb, err := b.CanonicalBytes()
	require.NoError(t, err)
	assert.NotEqual(t, ab, bb)
}

func TestCanonicalBytesRejectsUnknownMethod(t *testing.T) {
	_, err := TablePortion{Method: "bogus"}.CanonicalBytes()
	assert.Error(t, err)
}
