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

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/extractor"
	"github.com/travdata/tabex/pkg/pipeline"
	"github.com/travdata/tabex/pkg/scriptengine"
)

// MetaSystem dispatches across the seven concrete per-spec systems by each
// node's SpecDiscriminant, so the driver that walks a pipeline.Pipeline only
// ever needs to hold one pipeline.System.
type MetaSystem struct {
	systems map[pipeline.SpecDiscriminant]pipeline.System
}

// NewMetaSystem wires the concrete systems for a single extraction run:
// reader is the TableReader collaborator (normally a cache-wrapping one) and
// host is the shared script-engine host.
func NewMetaSystem(reader extractor.TableReader, host *scriptengine.Host) *MetaSystem {
	return &MetaSystem{
		systems: map[pipeline.SpecDiscriminant]pipeline.System{
			pipeline.DiscriminantInputPdfFile:    InputPdfFileSystem{},
			pipeline.DiscriminantOutputDirectory: OutputDirectorySystem{},
			pipeline.DiscriminantPdfExtractTable: PdfExtractTableSystem{Reader: reader},
			pipeline.DiscriminantJsContext:       JsContextSystem{Host: host},
			pipeline.DiscriminantEsTransform:     EsTransformSystem{Host: host},
			pipeline.DiscriminantOutputFileCsv:   OutputFileCsvSystem{},
			pipeline.DiscriminantOutputFileJson:  OutputFileJsonSystem{},
		},
	}
}

// dispatch returns the concrete system registered for node's discriminant,
// or an error describing the unknown discriminant.
func (m *MetaSystem) dispatch(node pipeline.Node) (pipeline.System, error) {
	sys, ok := m.systems[node.Spec.Discriminant()]
	if !ok {
		return nil, travdataerr.New(travdataerr.BugInProcessor,
			fmt.Sprintf("node %q: no system registered for discriminant %q", node.Id, node.Spec.Discriminant()))
	}
	return sys, nil
}

func (m *MetaSystem) Params(node pipeline.Node) []pipeline.Param {
	sys, err := m.dispatch(node)
	if err != nil {
		return nil
	}
	return sys.Params(node)
}

func (m *MetaSystem) Inputs(node pipeline.Node) ([]pipeline.NodeId, error) {
	sys, err := m.dispatch(node)
	if err != nil {
		return nil, err
	}
	return sys.Inputs(node)
}

func (m *MetaSystem) Process(node pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) (pipeline.Intermediate, error) {
	sys, err := m.dispatch(node)
	if err != nil {
		return pipeline.Intermediate{}, err
	}
	return sys.Process(node, args, interms)
}

// ProcessMultiple groups nodes by discriminant before delegating to each
// concrete system's own ProcessMultiple, so PdfExtractTableSystem still sees
// its whole batch in one call even when other discriminants are mixed into
// the same phase. Results are returned matching the input node order. A node
// with no registered system is reported as a bug in processing, not
// silently dropped.
func (m *MetaSystem) ProcessMultiple(nodes []pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) []pipeline.ProcessResult {
	groups := map[pipeline.SpecDiscriminant][]pipeline.Node{}
	order := make([]pipeline.SpecDiscriminant, 0)
	resultOf := map[pipeline.NodeId]pipeline.ProcessResult{}

	for _, node := range nodes {
		disc := node.Spec.Discriminant()
		if _, ok := m.systems[disc]; !ok {
			resultOf[node.Id] = pipeline.ProcessResult{
				Id: node.Id,
				Err: travdataerr.New(travdataerr.BugInProcessor,
					fmt.Sprintf("node %q: no system registered for discriminant %q", node.Id, disc)),
			}
			continue
		}
		if _, seen := groups[disc]; !seen {
			order = append(order, disc)
		}
		groups[disc] = append(groups[disc], node)
	}

	for _, disc := range order {
		sys := m.systems[disc]
		for _, result := range sys.ProcessMultiple(groups[disc], args, interms) {
			resultOf[result.Id] = result
		}
	}

	results := make([]pipeline.ProcessResult, 0, len(nodes))
	for _, node := range nodes {
		result, ok := resultOf[node.Id]
		if !ok {
			result = pipeline.ProcessResult{
				Id: node.Id,
				Err: travdataerr.New(travdataerr.BugInProcessor,
					fmt.Sprintf("node %q: dispatched system did not return a result", node.Id)),
			}
		}
		results = append(results, result)
	}
	return results
}
