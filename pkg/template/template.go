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

// Package template defines the in-memory extraction-template data model: a
// Book holding helper Scripts and a hierarchical Group tree of tagged
// Tables, each naming the raw TablePortions to extract and an optional
// Transform to derive the final tabular data. Loading from the on-disk
// v0.6.x format lives in loader.go; tag inheritance and the depth-first
// walk the extraction driver uses live here.
package template

import "github.com/travdata/tabex/pkg/extractor"

// TagSet is a set of tag strings.
type TagSet map[string]struct{}

// NewTagSet builds a TagSet from a slice of tag strings.
func NewTagSet(tags []string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Union returns a new TagSet containing every tag in s or other.
func (s TagSet) Union(other TagSet) TagSet {
	out := make(TagSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Intersects reports whether s and other share any tag.
func (s TagSet) Intersects(other TagSet) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for t := range small {
		if _, ok := big[t]; ok {
			return true
		}
	}
	return false
}

// Script is ECMAScript source loaded into the script engine alongside a
// Book, providing helper code that a Table's Transform.Code may call into.
type Script struct {
	// Name identifies the script, normally derived from its source path;
	// used as the module resolution specifier and in diagnostics.
	Name   string
	Source string
}

// Transform maps a raw extracted TablePortion (or set of portions, after
// the PdfExtractTable system's multi-portion batching) through a JS
// function to produce the table's final tabular form. InputData names the
// arguments the function receives, each bound to an upstream pipeline node
// id by the extraction driver when the generic EsTransform node is built.
type Transform struct {
	// Code is the body of the transform function; it is wrapped as
	// `function(arg1, arg2, ...) { <Code> }` by the script engine, with
	// args ordered lexicographically by name (sorted by EsTransformSystem
	// in pkg/systems).
	Code string
	// InputData names, in no particular order (EsTransformSystem sorts them),
	// the arguments available to Code. Keys are argument names; values
	// are "portion-<index>" references into this Table's Portions slice,
	// matching the node ids pkg/extraction assigns when it builds the
	// generic pipeline graph around this template.
	InputData map[string]string
}

// Table is the template description of a single extracted table: the own
// tags it declares (not including ancestors'), the raw regions to pull from
// the PDF, and how to transform them into final rows.
type Table struct {
	Tags      TagSet
	Portions  []extractor.TablePortion
	Transform *Transform
}

// Group is a node in the template hierarchy. Its tags are inherited by
// every descendant Table and nested Group; its name (as used as a map key
// by its parent) contributes a path component to output file layout.
type Group struct {
	Tags   TagSet
	Groups map[string]Group
	Tables map[string]Table
}

// Book is a complete extraction template for one book: the scripts
// available to its tables' transforms, the root of its Group hierarchy,
// and the page-number offset applied to extracted page numbers before they
// are recorded in the index.
type Book struct {
	Scripts    []Script
	Group      Group
	PageOffset int32
}

// TableVisit is the information WalkTables supplies for each reachable
// Table: its full path from the book root (group names then table name)
// and its effective tag set (own tags unioned with every ancestor group's
// tags — invariant 12).
type TableVisit struct {
	Path          []string
	EffectiveTags TagSet
	Table         Table
}

// WalkTables performs a depth-first traversal of g, invoking fn once per
// reachable Table with its full path and effective tag set. Traversal order
// among sibling groups and tables is unspecified (Go map iteration order);
// callers that need determinism should sort TableVisit.Path themselves.
func (g Group) WalkTables(fn func(TableVisit)) {
	walkGroup(nil, nil, g, fn)
}

func walkGroup(path []string, inherited TagSet, g Group, fn func(TableVisit)) {
	effective := inherited.Union(g.Tags)

	for name, table := range g.Tables {
		fn(TableVisit{
			Path:          append(append([]string{}, path...), name),
			EffectiveTags: effective.Union(table.Tags),
			Table:         table,
		})
	}

	for name, child := range g.Groups {
		walkGroup(append(append([]string{}, path...), name), effective, child, fn)
	}
}
