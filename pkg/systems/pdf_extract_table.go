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
)

// PdfExtractTableSystem implements pipeline.System for PdfExtractTable
// nodes, batching same-PDF/same-page/same-method requests into a single
// call to Reader (typically a *cache.Cache wrapping the real extractor).
type PdfExtractTableSystem struct {
	Reader extractor.TableReader
}

func (PdfExtractTableSystem) Params(node pipeline.Node) []pipeline.Param {
	return nil
}

func (PdfExtractTableSystem) Inputs(node pipeline.Node) ([]pipeline.NodeId, error) {
	spec, ok := node.Spec.(PdfExtractTable)
	if !ok {
		return nil, fmt.Errorf("systems: node %q: expected PdfExtractTable spec, got %T", node.Id, node.Spec)
	}
	return []pipeline.NodeId{spec.Pdf}, nil
}

func (s PdfExtractTableSystem) Process(node pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) (pipeline.Intermediate, error) {
	results := s.ProcessMultiple([]pipeline.Node{node}, args, interms)
	if len(results) != 1 {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.BugInProcessor,
			fmt.Sprintf("process_multiple returned %d results for a single node", len(results)))
	}
	result := results[0]
	if result.Id != node.Id {
		return pipeline.Intermediate{}, travdataerr.New(travdataerr.BugInProcessor,
			fmt.Sprintf("process_multiple returned result for %q, expected %q", result.Id, node.Id))
	}
	return result.Value, result.Err
}

// extractGroupKey groups nodes that can be satisfied by one call to Reader:
// same source PDF, same page, same extraction method.
type extractGroupKey struct {
	pdf    pipeline.NodeId
	page   int32
	method extractor.ExtractionMethod
}

func (s PdfExtractTableSystem) ProcessMultiple(nodes []pipeline.Node, args *pipeline.ArgSet, interms *pipeline.IntermediateSet) []pipeline.ProcessResult {
	results := make([]pipeline.ProcessResult, 0, len(nodes))

	groups := map[extractGroupKey][]pipeline.Node{}
	groupOrder := make([]extractGroupKey, 0)
	specOf := map[pipeline.NodeId]PdfExtractTable{}

	for _, node := range nodes {
		spec, ok := node.Spec.(PdfExtractTable)
		if !ok {
			results = append(results, pipeline.ProcessResult{
				Id:  node.Id,
				Err: fmt.Errorf("systems: node %q: expected PdfExtractTable spec, got %T", node.Id, node.Spec),
			})
			continue
		}
		specOf[node.Id] = spec
		key := extractGroupKey{pdf: spec.Pdf, page: spec.Page, method: spec.Method}
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], node)
	}

	for _, key := range groupOrder {
		groupNodes := groups[key]

		pdfIntermediate, ok := interms.Get(key.pdf)
		if !ok || pdfIntermediate.Kind != pipeline.IntermediateInputFile {
			for _, node := range groupNodes {
				results = append(results, pipeline.ProcessResult{
					Id: node.Id,
					Err: travdataerr.New(travdataerr.MissingIntermediate,
						fmt.Sprintf("node %q: pdf node %q did not produce an InputFile intermediate", node.Id, key.pdf)),
				})
			}
			continue
		}

		portions := make([]extractor.TablePortion, len(groupNodes))
		for i, node := range groupNodes {
			spec := specOf[node.Id]
			portions[i] = extractor.TablePortion{Method: spec.Method, Page: spec.Page, Rect: spec.Rect}
		}

		tables, err := s.Reader.ReadTablePortions(pdfIntermediate.Path, portions)
		if err != nil {
			for _, node := range groupNodes {
				results = append(results, pipeline.ProcessResult{
					Id:  node.Id,
					Err: travdataerr.Wrap(travdataerr.ExtractorFailed, fmt.Sprintf("node %q: batch extraction", node.Id), err),
				})
			}
			continue
		}
		if len(tables) != len(groupNodes) {
			for _, node := range groupNodes {
				results = append(results, pipeline.ProcessResult{
					Id: node.Id,
					Err: travdataerr.New(travdataerr.BugInProcessor,
						fmt.Sprintf("node %q: extractor returned %d tables for %d requested portions", node.Id, len(tables), len(groupNodes))),
				})
			}
			continue
		}

		for i, node := range groupNodes {
			results = append(results, pipeline.ProcessResult{
				Id:    node.Id,
				Value: pipeline.Intermediate{Kind: pipeline.IntermediateJsonData, JSON: tables[i].Data.ToJSON()},
			})
		}
	}

	return results
}
