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

	"github.com/travdata/tabex/pkg/pipeline"
)

// ParamPath is the single runtime-supplied parameter name both InputPdfFile
// and OutputDirectory nodes expose. Callers assembling an ArgSet (the
// extraction driver) set it directly; it is exported for that purpose.
const ParamPath pipeline.ParamId = "path"

const paramPath = ParamPath

// InputPdfFileSystem implements pipeline.System for InputPdfFile nodes: it
// has no dependencies and turns its runtime-supplied path argument into an
// InputFile intermediate.
type InputPdfFileSystem struct{}

func (InputPdfFileSystem) Params(node pipeline.Node) []pipeline.Param {
	return []pipeline.Param{{Id: paramPath, Kind: pipeline.ArgValueInputPdf}}
}

func (InputPdfFileSystem) Inputs(node pipeline.Node) ([]pipeline.NodeId, error) {
	return nil, nil
}

func (InputPdfFileSystem) Process(node pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) (pipeline.Intermediate, error) {
	value, ok := args.Get(node.Id, paramPath)
	if !ok {
		return pipeline.Intermediate{}, fmt.Errorf("systems: node %q: argument %q not set", node.Id, paramPath)
	}
	if value.Kind != pipeline.ArgValueInputPdf {
		return pipeline.Intermediate{}, fmt.Errorf("systems: node %q: argument %q should be InputPdf, got %v", node.Id, paramPath, value.Kind)
	}
	return pipeline.Intermediate{Kind: pipeline.IntermediateInputFile, Path: value.Path}, nil
}

func (s InputPdfFileSystem) ProcessMultiple(nodes []pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) []pipeline.ProcessResult {
	return pipeline.DefaultProcessMultiple(s, nodes, args, interms)
}
