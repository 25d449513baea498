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

// Package systems implements the concrete per-spec pipeline.System variants
// (InputPdfFile, OutputDirectory, PdfExtractTable, JsContext, EsTransform,
// OutputFileCsv, OutputFileJson) and the MetaSystem that dispatches across
// them by spec discriminant.
package systems

import (
	"github.com/travdata/tabex/pkg/extractor"
	"github.com/travdata/tabex/pkg/pipeline"
)

// InputPdfFile names the PDF file a pipeline run extracts from. Its path is
// supplied at runtime via an ArgSet entry, not baked into the spec.
type InputPdfFile struct{}

func (InputPdfFile) Discriminant() pipeline.SpecDiscriminant { return pipeline.DiscriminantInputPdfFile }

// OutputDirectory names the base directory output-file nodes write under.
// Description is surfaced to callers introspecting a pipeline's params.
type OutputDirectory struct {
	Description string
}

func (OutputDirectory) Discriminant() pipeline.SpecDiscriminant {
	return pipeline.DiscriminantOutputDirectory
}

// PdfExtractTable requests one rectangular region of one page from the PDF
// produced by the node named Pdf.
type PdfExtractTable struct {
	Pdf    pipeline.NodeId
	Page   int32
	Method extractor.ExtractionMethod
	Rect   extractor.PdfRect
}

func (PdfExtractTable) Discriminant() pipeline.SpecDiscriminant {
	return pipeline.DiscriminantPdfExtractTable
}

// JsContext allocates a fresh script-engine context, installing Modules
// (specifier -> source) for require() resolution within it.
type JsContext struct {
	Modules map[string]string
}

func (JsContext) Discriminant() pipeline.SpecDiscriminant { return pipeline.DiscriminantJsContext }

// EsTransform runs Code as a JS function body inside the context produced by
// the node named Context, with one argument per InputData entry (argument
// name -> upstream node whose JsonData intermediate supplies the value).
type EsTransform struct {
	Context   pipeline.NodeId
	InputData map[string]pipeline.NodeId
	Code      string
}

func (EsTransform) Discriminant() pipeline.SpecDiscriminant { return pipeline.DiscriminantEsTransform }

// OutputFileCsv writes the JsonData produced by InputData as CSV, under
// Filename within the directory produced by Directory.
type OutputFileCsv struct {
	InputData pipeline.NodeId
	Directory pipeline.NodeId
	Filename  string
}

func (OutputFileCsv) Discriminant() pipeline.SpecDiscriminant {
	return pipeline.DiscriminantOutputFileCsv
}

// OutputFileJson writes the JsonData produced by InputData as JSON, under
// Filename within the directory produced by Directory.
type OutputFileJson struct {
	InputData pipeline.NodeId
	Directory pipeline.NodeId
	Filename  string
}

func (OutputFileJson) Discriminant() pipeline.SpecDiscriminant {
	return pipeline.DiscriminantOutputFileJson
}
