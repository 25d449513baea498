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
	"github.com/travdata/tabex/pkg/scriptengine"
)

// JsContextSystem implements pipeline.System for JsContext nodes: it
// allocates a fresh script-engine context per node. The context outlives
// the node itself, for the EsTransform nodes that reference it by id to
// consume for the rest of the run. Nothing in this module calls
// Host.DropContext for it: the context stays in the Host until Host.Close.
type JsContextSystem struct {
	Host *scriptengine.Host
}

func (JsContextSystem) Params(node pipeline.Node) []pipeline.Param {
	return nil
}

func (JsContextSystem) Inputs(node pipeline.Node) ([]pipeline.NodeId, error) {
	return nil, nil
}

func (s JsContextSystem) Process(node pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) (pipeline.Intermediate, error) {
	spec, ok := node.Spec.(JsContext)
	if !ok {
		return pipeline.Intermediate{}, fmt.Errorf("systems: node %q: expected JsContext spec, got %T", node.Id, node.Spec)
	}

	ctxID := s.Host.NewContext(spec.Modules)
	return pipeline.Intermediate{Kind: pipeline.IntermediateJsContext, JsContext: ctxID}, nil
}

func (s JsContextSystem) ProcessMultiple(nodes []pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) []pipeline.ProcessResult {
	return pipeline.DefaultProcessMultiple(s, nodes, args, interms)
}
