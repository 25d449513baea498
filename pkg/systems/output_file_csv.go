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
	"fmt"
	"os"
	"path/filepath"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/pipeline"
	"github.com/travdata/tabex/pkg/table"
)

// OutputFileCsvSystem implements pipeline.System for OutputFileCsv nodes: it
// resolves its upstream JsonData and OutputDirectory, validates the JSON is
// an array-of-arrays-of-strings table, and writes it as CRLF-terminated CSV.
type OutputFileCsvSystem struct{}

func (OutputFileCsvSystem) Params(node pipeline.Node) []pipeline.Param {
	return nil
}

func (OutputFileCsvSystem) Inputs(node pipeline.Node) ([]pipeline.NodeId, error) {
	spec, ok := node.Spec.(OutputFileCsv)
	if !ok {
		return nil, fmt.Errorf("systems: node %q: expected OutputFileCsv spec, got %T", node.Id, node.Spec)
	}
	return []pipeline.NodeId{spec.InputData, spec.Directory}, nil
}

func (OutputFileCsvSystem) Process(node pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) (pipeline.Intermediate, error) {
	spec, ok := node.Spec.(OutputFileCsv)
	if !ok {
		return pipeline.Intermediate{}, fmt.Errorf("systems: node %q: expected OutputFileCsv spec, got %T", node.Id, node.Spec)
	}

	dirIntermediate, ok := interms.Get(spec.Directory)
	if !ok || dirIntermediate.Kind != pipeline.IntermediateOutputDirectory {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.MissingIntermediate,
			fmt.Sprintf("node %q: directory node %q did not produce an OutputDirectory intermediate", node.Id, spec.Directory))
	}

	dataIntermediate, ok := interms.Get(spec.InputData)
	if !ok {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.MissingIntermediate,
			fmt.Sprintf("node %q: input node %q produced no intermediate", node.Id, spec.InputData))
	}
	if dataIntermediate.Kind != pipeline.IntermediateJsonData {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.WrongIntermediateKind,
			fmt.Sprintf("node %q: input node %q is not JsonData, got %v", node.Id, spec.InputData, dataIntermediate.Kind))
	}

	tbl, err := table.FromJSON(dataIntermediate.JSON)
	if err != nil {
		return pipeline.Intermediate{}, travdataerr.Wrap(travdataerr.BugInProcessor,
			fmt.Sprintf("node %q: input data is not a valid table", node.Id), err)
	}

	outPath := filepath.Join(dirIntermediate.Path, spec.Filename)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return pipeline.Intermediate{}, travdataerr.Wrap(travdataerr.IoFailed,
			fmt.Sprintf("node %q: creating output directory", node.Id), err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return pipeline.Intermediate{}, travdataerr.Wrap(travdataerr.IoFailed,
			fmt.Sprintf("node %q: creating %s", node.Id, outPath), err)
	}
	defer f.Close()

	if err := table.WriteCSV(f, tbl); err != nil {
		return pipeline.Intermediate{}, travdataerr.Wrap(travdataerr.IoFailed,
			fmt.Sprintf("node %q: writing %s", node.Id, outPath), err)
	}

	return pipeline.NoData, nil
}

func (s OutputFileCsvSystem) ProcessMultiple(nodes []pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) []pipeline.ProcessResult {
	return pipeline.DefaultProcessMultiple(s, nodes, args, interms)
}
