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
	"fmt"
	"os"
	"path/filepath"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/pipeline"
)

// OutputFileJsonSystem implements pipeline.System for OutputFileJson nodes:
// it resolves its own InputData and Directory node ids and writes the
// upstream JsonData intermediate verbatim as JSON.
type OutputFileJsonSystem struct{}

func (OutputFileJsonSystem) Params(node pipeline.Node) []pipeline.Param {
	return nil
}

// Inputs names OutputFileJson's own dependency fields. The original Rust
// driver this is ported from referenced OutputFileCsv's fields here by
// mistake, a copy-paste leftover from when the two systems were written
// side by side; that bug is not reproduced here.
func (OutputFileJsonSystem) Inputs(node pipeline.Node) ([]pipeline.NodeId, error) {
	spec, ok := node.Spec.(OutputFileJson)
	if !ok {
		return nil, fmt.Errorf("systems: node %q: expected OutputFileJson spec, got %T", node.Id, node.Spec)
	}
	return []pipeline.NodeId{spec.InputData, spec.Directory}, nil
}

func (OutputFileJsonSystem) Process(node pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) (pipeline.Intermediate, error) {
	spec, ok := node.Spec.(OutputFileJson)
	if !ok {
		return pipeline.Intermediate{}, fmt.Errorf("systems: node %q: expected OutputFileJson spec, got %T", node.Id, node.Spec)
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

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dataIntermediate.JSON); err != nil {
		return pipeline.Intermediate{}, travdataerr.Wrap(travdataerr.IoFailed,
			fmt.Sprintf("node %q: writing %s", node.Id, outPath), err)
	}

	return pipeline.NoData, nil
}

func (s OutputFileJsonSystem) ProcessMultiple(nodes []pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) []pipeline.ProcessResult {
	return pipeline.DefaultProcessMultiple(s, nodes, args, interms)
}
