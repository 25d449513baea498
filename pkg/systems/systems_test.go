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

package systems

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/extractor"
	"github.com/travdata/tabex/pkg/pipeline"
	"github.com/travdata/tabex/pkg/scriptengine"
	"github.com/travdata/tabex/pkg/table"
)

func TestInputPdfFileSystemResolvesArgument(t *testing.T) {
	sys := InputPdfFileSystem{}
	node := pipeline.Node{Id: "pdf", Spec: InputPdfFile{}}

	args := pipeline.NewArgSet()
	args.Set("pdf", paramPath, pipeline.ArgValue{Kind: pipeline.ArgValueInputPdf, Path: "/tmp/book.pdf"})

	intermediate, err := sys.Process(node, args, pipeline.NewIntermediateSet())
	require.NoError(t, err)
	assert.Equal(t, pipeline.IntermediateInputFile, intermediate.Kind)
	assert.Equal(t, "/tmp/book.pdf", intermediate.Path)
}

func TestInputPdfFileSystemMissingArgumentErrors(t *testing.T) {
	sys := InputPdfFileSystem{}
	node := pipeline.Node{Id: "pdf", Spec: InputPdfFile{}}

	_, err := sys.Process(node, pipeline.NewArgSet(), pipeline.NewIntermediateSet())
	assert.Error(t, err)
}

func TestOutputDirectorySystemResolvesArgument(t *testing.T) {
	sys := OutputDirectorySystem{}
	node := pipeline.Node{Id: "out", Spec: OutputDirectory{Description: "output root"}}

	args := pipeline.NewArgSet()
	args.Set("out", paramPath, pipeline.ArgValue{Kind: pipeline.ArgValueOutputDirectory, Path: "/tmp/out"})

	intermediate, err := sys.Process(node, args, pipeline.NewIntermediateSet())
	require.NoError(t, err)
	assert.Equal(t, pipeline.IntermediateOutputDirectory, intermediate.Kind)
	assert.Equal(t, "/tmp/out", intermediate.Path)
}

func TestJsContextSystemAllocatesContext(t *testing.T) {
	host := scriptengine.NewHost()
	defer host.Close()

	sys := JsContextSystem{Host: host}
	node := pipeline.Node{Id: "ctx", Spec: JsContext{Modules: nil}}

	intermediate, err := sys.Process(node, pipeline.NewArgSet(), pipeline.NewIntermediateSet())
	require.NoError(t, err)
	assert.Equal(t, pipeline.IntermediateJsContext, intermediate.Kind)
	_, ok := intermediate.JsContext.(scriptengine.ContextID)
	assert.True(t, ok)
}

func TestEsTransformSystemRunsCodeAgainstSortedArguments(t *testing.T) {
	host := scriptengine.NewHost()
	defer host.Close()

	ctxID := host.NewContext(nil)

	interms := pipeline.NewIntermediateSet()
	interms.Set("ctx", pipeline.Intermediate{Kind: pipeline.IntermediateJsContext, JsContext: ctxID})
	interms.Set("rows", pipeline.Intermediate{Kind: pipeline.IntermediateJsonData, JSON: []any{[]any{"a", "b"}}})
	interms.Set("suffix", pipeline.Intermediate{Kind: pipeline.IntermediateJsonData, JSON: "!"})

	sys := EsTransformSystem{Host: host}
	node := pipeline.Node{Id: "xf", Spec: EsTransform{
		Context:   "ctx",
		InputData: map[string]pipeline.NodeId{"rows": "rows", "suffix": "suffix"},
		Code:      "return rows.length + suffix;",
	}}

	result, err := sys.Process(node, pipeline.NewArgSet(), interms)
	require.NoError(t, err)
	assert.Equal(t, pipeline.IntermediateJsonData, result.Kind)
	assert.Equal(t, "1!", result.JSON)
}

func TestEsTransformSystemDistinguishesCompileFromRuntimeFailure(t *testing.T) {
	host := scriptengine.NewHost()
	defer host.Close()

	ctxID := host.NewContext(nil)
	interms := pipeline.NewIntermediateSet()
	interms.Set("ctx", pipeline.Intermediate{Kind: pipeline.IntermediateJsContext, JsContext: ctxID})

	sys := EsTransformSystem{Host: host}

	compileNode := pipeline.Node{Id: "bad-syntax", Spec: EsTransform{Context: "ctx", Code: "this is not valid js ("}}
	_, err := sys.Process(compileNode, pipeline.NewArgSet(), interms)
	require.Error(t, err)
	var te *travdataerr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, travdataerr.ScriptCompileFailed, te.Kind)

	runtimeNode := pipeline.Node{Id: "throws", Spec: EsTransform{Context: "ctx", Code: "throw new Error('boom');"}}
	_, err = sys.Process(runtimeNode, pipeline.NewArgSet(), interms)
	require.Error(t, err)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, travdataerr.ScriptRuntimeFailed, te.Kind)
}

type stubTableReader struct {
	calls   [][]extractor.TablePortion
	tables  []extractor.ExtractedTable
	err     error
	wantLen int
}

func (s *stubTableReader) ReadTablePortions(pdfPath string, portions []extractor.TablePortion) ([]extractor.ExtractedTable, error) {
	s.calls = append(s.calls, portions)
	if s.err != nil {
		return nil, s.err
	}
	if s.wantLen > 0 {
		return s.tables[:s.wantLen], nil
	}
	return s.tables, nil
}

func TestPdfExtractTableSystemBatchesSamePageAndMethod(t *testing.T) {
	reader := &stubTableReader{
		tables: []extractor.ExtractedTable{
			{Page: 1, Data: table.New([][]string{{"a"}})},
			{Page: 1, Data: table.New([][]string{{"b"}})},
		},
	}
	sys := PdfExtractTableSystem{Reader: reader}

	interms := pipeline.NewIntermediateSet()
	interms.Set("pdf", pipeline.Intermediate{Kind: pipeline.IntermediateInputFile, Path: "/tmp/book.pdf"})

	nodes := []pipeline.Node{
		{Id: "t1", Spec: PdfExtractTable{Pdf: "pdf", Page: 1, Method: extractor.ExtractionMethodLattice}},
		{Id: "t2", Spec: PdfExtractTable{Pdf: "pdf", Page: 1, Method: extractor.ExtractionMethodLattice}},
	}

	results := sys.ProcessMultiple(nodes, pipeline.NewArgSet(), interms)
	require.Len(t, results, 2)
	require.Len(t, reader.calls, 1, "both nodes share (pdf, page, method) and should batch into one call")

	byId := map[pipeline.NodeId]pipeline.ProcessResult{}
	for _, r := range results {
		byId[r.Id] = r
	}
	require.NoError(t, byId["t1"].Err)
	require.NoError(t, byId["t2"].Err)
	assert.Equal(t, []any{[]any{"a"}}, byId["t1"].Value.JSON)
	assert.Equal(t, []any{[]any{"b"}}, byId["t2"].Value.JSON)
}

func TestPdfExtractTableSystemSeparatesDifferentGroups(t *testing.T) {
	reader := &stubTableReader{
		tables: []extractor.ExtractedTable{{Page: 1, Data: table.New(nil)}},
	}
	sys := PdfExtractTableSystem{Reader: reader}

	interms := pipeline.NewIntermediateSet()
	interms.Set("pdf", pipeline.Intermediate{Kind: pipeline.IntermediateInputFile, Path: "/tmp/book.pdf"})

	nodes := []pipeline.Node{
		{Id: "page1", Spec: PdfExtractTable{Pdf: "pdf", Page: 1, Method: extractor.ExtractionMethodStream}},
		{Id: "page2", Spec: PdfExtractTable{Pdf: "pdf", Page: 2, Method: extractor.ExtractionMethodStream}},
	}

	results := sys.ProcessMultiple(nodes, pipeline.NewArgSet(), interms)
	require.Len(t, results, 2)
	assert.Len(t, reader.calls, 2, "different pages must not be batched together")
}

func TestPdfExtractTableSystemMissingPdfIntermediateErrorsEveryNodeInGroup(t *testing.T) {
	sys := PdfExtractTableSystem{Reader: &stubTableReader{}}

	nodes := []pipeline.Node{
		{Id: "t1", Spec: PdfExtractTable{Pdf: "missing", Page: 1, Method: extractor.ExtractionMethodGuess}},
		{Id: "t2", Spec: PdfExtractTable{Pdf: "missing", Page: 1, Method: extractor.ExtractionMethodGuess}},
	}

	results := sys.ProcessMultiple(nodes, pipeline.NewArgSet(), pipeline.NewIntermediateSet())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestPdfExtractTableSystemLengthMismatchIsBugInProcessor(t *testing.T) {
	reader := &stubTableReader{
		tables:  []extractor.ExtractedTable{{Page: 1, Data: table.New(nil)}},
		wantLen: 1,
	}
	sys := PdfExtractTableSystem{Reader: reader}

	interms := pipeline.NewIntermediateSet()
	interms.Set("pdf", pipeline.Intermediate{Kind: pipeline.IntermediateInputFile, Path: "/tmp/book.pdf"})

	nodes := []pipeline.Node{
		{Id: "t1", Spec: PdfExtractTable{Pdf: "pdf", Page: 1, Method: extractor.ExtractionMethodGuess}},
		{Id: "t2", Spec: PdfExtractTable{Pdf: "pdf", Page: 1, Method: extractor.ExtractionMethodGuess}},
	}

	results := sys.ProcessMultiple(nodes, pipeline.NewArgSet(), interms)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Error(t, r.Err)
		var te *travdataerr.Error
		require.ErrorAs(t, r.Err, &te)
		assert.Equal(t, travdataerr.BugInProcessor, te.Kind)
	}
}

func TestOutputFileCsvSystemWritesRowsAsCrlfCsv(t *testing.T) {
	dir := t.TempDir()

	interms := pipeline.NewIntermediateSet()
	interms.Set("dir", pipeline.Intermediate{Kind: pipeline.IntermediateOutputDirectory, Path: dir})
	interms.Set("data", pipeline.Intermediate{Kind: pipeline.IntermediateJsonData, JSON: table.New([][]string{
		{"name", "cost"},
		{"Laser Rifle", "400"},
	}).ToJSON()})

	sys := OutputFileCsvSystem{}
	node := pipeline.Node{Id: "out", Spec: OutputFileCsv{InputData: "data", Directory: "dir", Filename: "weapons.csv"}}

	result, err := sys.Process(node, pipeline.NewArgSet(), interms)
	require.NoError(t, err)
	assert.Equal(t, pipeline.IntermediateNoData, result.Kind)

	content, err := os.ReadFile(filepath.Join(dir, "weapons.csv"))
	require.NoError(t, err)
	assert.Equal(t, "name,cost\r\nLaser Rifle,400\r\n", string(content))
}

func TestOutputFileCsvSystemRejectsNonJsonData(t *testing.T) {
	interms := pipeline.NewIntermediateSet()
	interms.Set("dir", pipeline.Intermediate{Kind: pipeline.IntermediateOutputDirectory, Path: t.TempDir()})
	interms.Set("data", pipeline.Intermediate{Kind: pipeline.IntermediateNoData})

	sys := OutputFileCsvSystem{}
	node := pipeline.Node{Id: "out", Spec: OutputFileCsv{InputData: "data", Directory: "dir", Filename: "x.csv"}}

	_, err := sys.Process(node, pipeline.NewArgSet(), interms)
	assert.Error(t, err)
}

func TestOutputFileJsonSystemInputsReferencesOwnFields(t *testing.T) {
	sys := OutputFileJsonSystem{}
	node := pipeline.Node{Id: "out", Spec: OutputFileJson{InputData: "data", Directory: "dir", Filename: "x.json"}}

	ids, err := sys.Inputs(node)
	require.NoError(t, err)
	assert.ElementsMatch(t, []pipeline.NodeId{"data", "dir"}, ids)
}

func TestOutputFileJsonSystemWritesJson(t *testing.T) {
	dir := t.TempDir()

	interms := pipeline.NewIntermediateSet()
	interms.Set("dir", pipeline.Intermediate{Kind: pipeline.IntermediateOutputDirectory, Path: dir})
	interms.Set("data", pipeline.Intermediate{Kind: pipeline.IntermediateJsonData, JSON: []any{[]any{"a", "b"}}})

	sys := OutputFileJsonSystem{}
	node := pipeline.Node{Id: "out", Spec: OutputFileJson{InputData: "data", Directory: "dir", Filename: "gear.json"}}

	result, err := sys.Process(node, pipeline.NewArgSet(), interms)
	require.NoError(t, err)
	assert.Equal(t, pipeline.IntermediateNoData, result.Kind)

	content, err := os.ReadFile(filepath.Join(dir, "gear.json"))
	require.NoError(t, err)
	var decoded []any
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, []any{[]any{"a", "b"}}, decoded)
}

func TestMetaSystemDispatchesByDiscriminant(t *testing.T) {
	host := scriptengine.NewHost()
	defer host.Close()

	meta := NewMetaSystem(&stubTableReader{}, host)

	node := pipeline.Node{Id: "pdf", Spec: InputPdfFile{}}
	args := pipeline.NewArgSet()
	args.Set("pdf", paramPath, pipeline.ArgValue{Kind: pipeline.ArgValueInputPdf, Path: "/tmp/book.pdf"})

	intermediate, err := meta.Process(node, args, pipeline.NewIntermediateSet())
	require.NoError(t, err)
	assert.Equal(t, pipeline.IntermediateInputFile, intermediate.Kind)
}

func TestMetaSystemProcessMultipleGroupsPdfExtractTableAcrossMixedDiscriminants(t *testing.T) {
	reader := &stubTableReader{
		tables: []extractor.ExtractedTable{
			{Page: 1, Data: table.New(nil)},
			{Page: 1, Data: table.New(nil)},
		},
	}
	host := scriptengine.NewHost()
	defer host.Close()
	meta := NewMetaSystem(reader, host)

	interms := pipeline.NewIntermediateSet()
	interms.Set("pdf", pipeline.Intermediate{Kind: pipeline.IntermediateInputFile, Path: "/tmp/book.pdf"})

	args := pipeline.NewArgSet()
	args.Set("dir", paramPath, pipeline.ArgValue{Kind: pipeline.ArgValueOutputDirectory, Path: t.TempDir()})

	nodes := []pipeline.Node{
		{Id: "t1", Spec: PdfExtractTable{Pdf: "pdf", Page: 1, Method: extractor.ExtractionMethodGuess}},
		{Id: "dir", Spec: OutputDirectory{}},
		{Id: "t2", Spec: PdfExtractTable{Pdf: "pdf", Page: 1, Method: extractor.ExtractionMethodGuess}},
	}

	results := meta.ProcessMultiple(nodes, args, interms)
	require.Len(t, results, 3)
	assert.Len(t, reader.calls, 1, "both PdfExtractTable nodes should still batch into one call despite the interleaved OutputDirectory node")

	for _, r := range results {
		assert.NoErrorf(t, r.Err, "node %s", r.Id)
	}
}

func TestMetaSystemUnknownDiscriminantIsBugInProcessor(t *testing.T) {
	meta := NewMetaSystem(&stubTableReader{}, scriptengine.NewHost())

	node := pipeline.Node{Id: "mystery", Spec: unknownSpec{}}
	_, err := meta.Process(node, pipeline.NewArgSet(), pipeline.NewIntermediateSet())
	require.Error(t, err)
	var te *travdataerr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, travdataerr.BugInProcessor, te.Kind)
}

type unknownSpec struct{}

func (unknownSpec) Discriminant() pipeline.SpecDiscriminant { return pipeline.SpecDiscriminant("mystery") }
