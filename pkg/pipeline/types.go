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

// Package pipeline implements the generic dependency-graph scheduler: a set
// of typed-spec Nodes is resolved into dependency order and run in
// topologically valid batches, passing Intermediate values between nodes and
// surfacing a total, per-node Outcome.
package pipeline

import (
	"fmt"
	"regexp"
)

// NodeId identifies a node within a Pipeline. It must match
// ^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$ and is unique within a pipeline.
type NodeId string

var nodeIdPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)

// Validate reports whether id conforms to the NodeId syntax.
func (id NodeId) Validate() error {
	if !nodeIdPattern.MatchString(string(id)) {
		return fmt.Errorf("pipeline: invalid NodeId %q", string(id))
	}
	return nil
}

// Tag is a slash-delimited path used for grouping and filtering nodes.
// Each segment must be a valid NodeId; no leading/trailing or double slash.
type Tag string

var tagSegmentPattern = nodeIdPattern

// Validate reports whether t conforms to the Tag syntax.
func (t Tag) Validate() error {
	s := string(t)
	if s == "" {
		return fmt.Errorf("pipeline: empty Tag")
	}
	segments := splitTag(s)
	for _, seg := range segments {
		if !tagSegmentPattern.MatchString(seg) {
			return fmt.Errorf("pipeline: invalid Tag segment %q in %q", seg, s)
		}
	}
	return nil
}

func splitTag(s string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			segments = append(segments, s[start:i])
			start = i + 1
		}
	}
	segments = append(segments, s[start:])
	return segments
}

// Spec is implemented by every concrete node specification variant
// (InputPdfFile, PdfExtractTable, JsContext, EsTransform, OutputDirectory,
// OutputFileCsv, OutputFileJson). Discriminant identifies the variant for
// dispatch by the MetaSystem, without relying on dynamic type identity
// elsewhere in the core.
type Spec interface {
	Discriminant() SpecDiscriminant
}

// SpecDiscriminant is the tag identifying which Spec variant a Node carries.
type SpecDiscriminant string

const (
	DiscriminantInputPdfFile    SpecDiscriminant = "input_pdf_file"
	DiscriminantPdfExtractTable SpecDiscriminant = "pdf_extract_table"
	DiscriminantJsContext       SpecDiscriminant = "js_context"
	DiscriminantEsTransform     SpecDiscriminant = "es_transform"
	DiscriminantOutputDirectory SpecDiscriminant = "output_directory"
	DiscriminantOutputFileCsv   SpecDiscriminant = "output_file_csv"
	DiscriminantOutputFileJson  SpecDiscriminant = "output_file_json"
)

// Node is a single unit of work within a Pipeline.
type Node struct {
	Id     NodeId
	Tags   map[Tag]struct{}
	Public bool
	Spec   Spec
}

// Pipeline is a mapping from NodeId to Node, with an unspecified iteration
// order and O(1) lookup.
type Pipeline struct {
	nodes map[NodeId]Node
}

// NewPipeline constructs an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{nodes: make(map[NodeId]Node)}
}

// AddNode inserts or replaces a node in the pipeline.
func (p *Pipeline) AddNode(n Node) {
	p.nodes[n.Id] = n
}

// Get looks up a node by id.
func (p *Pipeline) Get(id NodeId) (Node, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// Nodes returns all nodes in the pipeline, in unspecified order.
func (p *Pipeline) Nodes() []Node {
	out := make([]Node, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, n)
	}
	return out
}

// Len returns the number of nodes in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.nodes)
}

// IntermediateKind distinguishes the shape of an Intermediate value.
type IntermediateKind string

const (
	IntermediateJsonData        IntermediateKind = "json_data"
	IntermediateInputFile       IntermediateKind = "input_file"
	IntermediateOutputDirectory IntermediateKind = "output_directory"
	IntermediateJsContext       IntermediateKind = "js_context"
	IntermediateNoData          IntermediateKind = "no_data"
)

// Intermediate is a tagged-variant value produced by one node and consumed
// by another.
type Intermediate struct {
	Kind IntermediateKind

	// JSON holds the value when Kind == IntermediateJsonData.
	JSON any

	// Path holds the filesystem path when Kind is IntermediateInputFile or
	// IntermediateOutputDirectory.
	Path string

	// JsContext holds the script-engine context handle when
	// Kind == IntermediateJsContext. Typed as `any` here to avoid a direct
	// dependency between pkg/pipeline and pkg/scriptengine; systems that
	// produce/consume this intermediate perform the type assertion.
	JsContext any
}

// NoData is the terminal-sink Intermediate value produced by nodes with no
// meaningful output (e.g. output-file systems).
var NoData = Intermediate{Kind: IntermediateNoData}

// IntermediateSet is the authoritative value store during a pipeline run: a
// mapping from NodeId to Intermediate. It is owned by the processor and
// mutated only between phases; systems receive an immutable view during
// process_multiple.
type IntermediateSet struct {
	values map[NodeId]Intermediate
}

// NewIntermediateSet constructs an empty IntermediateSet.
func NewIntermediateSet() *IntermediateSet {
	return &IntermediateSet{values: make(map[NodeId]Intermediate)}
}

// Get looks up the intermediate produced by the given node, if any.
func (s *IntermediateSet) Get(id NodeId) (Intermediate, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Set stores the intermediate produced by the given node.
func (s *IntermediateSet) Set(id NodeId, v Intermediate) {
	s.values[id] = v
}

// ParamId identifies a named parameter exposed by a node's system.
type ParamId string

// ArgValue is a tagged-variant runtime-supplied argument, distinct from
// Intermediates because it is supplied from outside the graph (e.g. CLI
// flags) rather than produced by another node.
type ArgValue struct {
	Kind ArgValueKind
	Path string
}

// ArgValueKind distinguishes the shape of an ArgValue.
type ArgValueKind string

const (
	ArgValueInputPdf        ArgValueKind = "input_pdf"
	ArgValueOutputDirectory ArgValueKind = "output_directory"
)

// ArgKey identifies one entry of an ArgSet.
type ArgKey struct {
	Node  NodeId
	Param ParamId
}

// ArgSet is a mapping from (NodeId, ParamId) to a runtime-supplied ArgValue.
type ArgSet struct {
	values map[ArgKey]ArgValue
}

// NewArgSet constructs an empty ArgSet.
func NewArgSet() *ArgSet {
	return &ArgSet{values: make(map[ArgKey]ArgValue)}
}

// Set stores an argument value for (node, param).
func (a *ArgSet) Set(node NodeId, param ParamId, value ArgValue) {
	a.values[ArgKey{Node: node, Param: param}] = value
}

// Get looks up an argument value for (node, param).
func (a *ArgSet) Get(node NodeId, param ParamId) (ArgValue, bool) {
	v, ok := a.values[ArgKey{Node: node, Param: param}]
	return v, ok
}
