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
	"sort"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/pipeline"
	"github.com/travdata/tabex/pkg/scriptengine"
)

// EsTransformSystem implements pipeline.System for EsTransform nodes: it
// compiles spec.Code as a function taking one argument per spec.InputData
// entry, in lexicographic order of argument name, and calls it with the
// corresponding upstream JsonData intermediates.
type EsTransformSystem struct {
	Host *scriptengine.Host
}

func (EsTransformSystem) Params(node pipeline.Node) []pipeline.Param {
	return nil
}

func (EsTransformSystem) Inputs(node pipeline.Node) ([]pipeline.NodeId, error) {
	spec, ok := node.Spec.(EsTransform)
	if !ok {
		return nil, fmt.Errorf("systems: node %q: expected EsTransform spec, got %T", node.Id, node.Spec)
	}
	inputs := make([]pipeline.NodeId, 0, 1+len(spec.InputData))
	inputs = append(inputs, spec.Context)
	for _, id := range spec.InputData {
		inputs = append(inputs, id)
	}
	return inputs, nil
}

func (s EsTransformSystem) Process(node pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) (pipeline.Intermediate, error) {
	spec, ok := node.Spec.(EsTransform)
	if !ok {
		return pipeline.Intermediate{}, fmt.Errorf("systems: node %q: expected EsTransform spec, got %T", node.Id, node.Spec)
	}

	ctxIntermediate, ok := interms.Get(spec.Context)
	if !ok {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.MissingIntermediate,
			fmt.Sprintf("node %q: context node %q produced no intermediate", node.Id, spec.Context))
	}
	if ctxIntermediate.Kind != pipeline.IntermediateJsContext {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.WrongIntermediateKind,
			fmt.Sprintf("node %q: context node %q is not a JsContext, got %v", node.Id, spec.Context, ctxIntermediate.Kind))
	}
	ctxID, ok := ctxIntermediate.JsContext.(scriptengine.ContextID)
	if !ok {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.WrongIntermediateKind,
			fmt.Sprintf("node %q: context node %q holds a non-scriptengine context handle", node.Id, spec.Context))
	}

	argNames := make([]string, 0, len(spec.InputData))
	for name := range spec.InputData {
		argNames = append(argNames, name)
	}
	sort.Strings(argNames)

	argValues := make([]any, len(argNames))
	for i, name := range argNames {
		depId := spec.InputData[name]
		depIntermediate, ok := interms.Get(depId)
		if !ok {
			return pipeline.Intermediate{}, travdataerr.New(travdataerr.MissingIntermediate,
				fmt.Sprintf("node %q: argument %q from node %q produced no intermediate", node.Id, name, depId))
		}
		if depIntermediate.Kind != pipeline.IntermediateJsonData {
			return pipeline.Intermediate{}, travdataerr.New(travdataerr.WrongIntermediateKind,
				fmt.Sprintf("node %q: argument %q from node %q is not JsonData, got %v", node.Id, name, depId, depIntermediate.Kind))
		}
		argValues[i] = depIntermediate.JSON
	}

	resourceName := fmt.Sprintf("nodes[%s].spec.code", node.Id)
	result, err := s.Host.CallFunction(ctxID, resourceName, argNames, spec.Code, argValues...)
	if err != nil {
		if scriptErr, ok := err.(*scriptengine.ScriptError); ok && scriptErr.Phase == "compile" {
			return pipeline.Intermediate{}, travdataerr.Wrap(travdataerr.ScriptCompileFailed,
				fmt.Sprintf("node %q: compiling transform", node.Id), err)
		}
		return pipeline.Intermediate{}, travdataerr.Wrap(travdataerr.ScriptRuntimeFailed,
			fmt.Sprintf("node %q: running transform", node.Id), err)
	}

	return pipeline.Intermediate{Kind: pipeline.IntermediateJsonData, JSON: result}, nil
}

func (s EsTransformSystem) ProcessMultiple(nodes []pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) []pipeline.ProcessResult {
	return pipeline.DefaultProcessMultiple(s, nodes, args, interms)
}
