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

// TableReader is the opaque external collaborator that extracts rectangular
// regions of cells from a PDF. No implementation lives in this module; the
// cache and the PdfExtractTable system consume it through this interface.
type TableReader interface {
	// ReadTablePortions extracts one or more portions from pdfPath in a
	// single call, returning results in the same order as portions. All
	// portions passed in one call share the same page and extraction
	// method (see the PdfExtractTable batching algorithm).
	ReadTablePortions(pdfPath string, portions []TablePortion) ([]ExtractedTable, error)
}

// PdfRenderer is the opaque external collaborator that rasterizes PDF pages
// for display. It is coarsely serialized on a dedicated thread by its
// caller (GUI-only; out of scope for the extraction pipeline itself).
type PdfRenderer interface {
	RenderPage(pdfPath string, page int32) ([]byte, error)
}
