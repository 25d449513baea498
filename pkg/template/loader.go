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

package template

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/travdata/tabex/internal/travdataerr"
	"github.com/travdata/tabex/pkg/extractor"
	"github.com/travdata/tabex/pkg/filesio"
)

const rootPathStr = "config.yaml"

// yamlRoot is config.yaml: book IDs mapped to their descriptors, plus
// ECMAScript modules shared by every book.
type yamlRoot struct {
	EcmaScriptModules []string                      `yaml:"ecma_script_modules"`
	Books             map[string]yamlBookDescriptor `yaml:"books"`
}

type yamlBookDescriptor struct {
	Name              string   `yaml:"name"`
	DefaultFilename   string   `yaml:"default_filename"`
	EcmaScriptModules []string `yaml:"ecma_script_modules"`
	Tags              []string `yaml:"tags"`
	PageOffset        *int32   `yaml:"page_offset"`
}

func (b yamlBookDescriptor) pageOffset() int32 {
	if b.PageOffset != nil {
		return *b.PageOffset
	}
	return 1
}

// yamlGroup is book.yaml (and the shape of every nested "groups" entry
// within it).
type yamlGroup struct {
	Tags   []string             `yaml:"tags"`
	Groups map[string]yamlGroup `yaml:"groups"`
	Tables map[string]yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Tags              []string       `yaml:"tags"`
	DisableExtraction bool           `yaml:"disable_extraction"`
	Transform         *yamlTransform `yaml:"transform"`
}

type yamlTransform struct {
	Code      string            `yaml:"code"`
	InputData map[string]string `yaml:"input_data"`
}

// jsonTemplateEntry is one entry of a `<table>.tabula-template.json` file,
// in the Tabula desktop app's own coordinate fields.
type jsonTemplateEntry struct {
	Page             int32   `json:"page"`
	ExtractionMethod string  `json:"extraction_method"`
	X1               float32 `json:"x1"`
	X2               float32 `json:"x2"`
	Y1               float32 `json:"y1"`
	Y2               float32 `json:"y2"`
	Width            float32 `json:"width"`
	Height           float32 `json:"height"`
}

func parseExtractionMethod(s string) (extractor.ExtractionMethod, error) {
	switch s {
	case "guess":
		return extractor.ExtractionMethodGuess, nil
	case "lattice":
		return extractor.ExtractionMethodLattice, nil
	case "stream":
		return extractor.ExtractionMethodStream, nil
	default:
		return "", fmt.Errorf("template: unknown extraction method %q", s)
	}
}

// Loader loads Books from a v0.6.x on-disk template rooted in fio.
type Loader struct {
	fio  filesio.FilesIo
	root yamlRoot
}

// NewLoader reads and parses config.yaml, returning a Loader ready to load
// any of its books. It does not itself check version.txt; call
// DetectVersion separately and reject unsupported versions before calling
// NewLoader if the caller wants to fail fast.
func NewLoader(fio filesio.FilesIo) (*Loader, error) {
	r, err := fio.OpenRead(rootPathStr)
	if err != nil {
		return nil, travdataerr.Wrap(travdataerr.InvalidTemplate, "opening root configuration file", err)
	}
	defer r.Close()

	var root yamlRoot
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, travdataerr.Wrap(travdataerr.InvalidTemplate, "parsing root configuration file", err)
	}

	return &Loader{fio: fio, root: root}, nil
}

// BookIDs returns the book IDs declared in config.yaml, sorted for
// deterministic display (e.g. in CLI help or a book-selection prompt).
func (l *Loader) BookIDs() []string {
	ids := make([]string, 0, len(l.root.Books))
	for id := range l.root.Books {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultBookID returns the sole book ID when config.yaml declares exactly
// one book, so single-book configurations need not specify one explicitly.
func (l *Loader) DefaultBookID() (string, bool) {
	if len(l.root.Books) != 1 {
		return "", false
	}
	for id := range l.root.Books {
		return id, true
	}
	return "", false
}

// LoadBook loads the full Book named bookID: its scripts, its Group tree
// (from book.yaml and per-table tabula-template.json files), and its page
// offset.
func (l *Loader) LoadBook(bookID string) (Book, error) {
	raw, ok := l.root.Books[bookID]
	if !ok {
		return Book{}, travdataerr.New(travdataerr.InvalidTemplate, fmt.Sprintf("book ID %q not found in configuration", bookID))
	}

	bookDir := bookID

	var scripts []Script
	scripts, err := appendScripts(l.fio, scripts, l.root.EcmaScriptModules)
	if err != nil {
		return Book{}, travdataerr.Wrap(travdataerr.InvalidTemplate, "loading root scripts", err)
	}
	scripts, err = appendScripts(l.fio, scripts, raw.EcmaScriptModules)
	if err != nil {
		return Book{}, travdataerr.Wrap(travdataerr.InvalidTemplate, "loading book scripts", err)
	}

	configPath := path.Join(bookDir, "book.yaml")
	r, err := l.fio.OpenRead(configPath)
	if err != nil {
		return Book{}, travdataerr.Wrap(travdataerr.InvalidTemplate, fmt.Sprintf("opening book configuration %q", configPath), err)
	}
	defer r.Close()

	var rawGroup yamlGroup
	if err := yaml.NewDecoder(r).Decode(&rawGroup); err != nil {
		return Book{}, travdataerr.Wrap(travdataerr.InvalidTemplate, "parsing book configuration", err)
	}

	group, err := loadGroup(l.fio, bookDir, rawGroup)
	if err != nil {
		return Book{}, travdataerr.Wrap(travdataerr.InvalidTemplate, "in root group", err)
	}

	return Book{
		Scripts:    scripts,
		Group:      group,
		PageOffset: raw.pageOffset(),
	}, nil
}

func appendScripts(fio filesio.FilesIo, scripts []Script, paths []string) ([]Script, error) {
	for _, p := range paths {
		script, err := loadScript(fio, p)
		if err != nil {
			return nil, fmt.Errorf("for script %q: %w", p, err)
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

func loadScript(fio filesio.FilesIo, scriptPath string) (Script, error) {
	r, err := fio.OpenRead(scriptPath)
	if err != nil {
		return Script{}, err
	}
	defer r.Close()

	code, err := io.ReadAll(r)
	if err != nil {
		return Script{}, err
	}
	return Script{Name: scriptPath, Source: string(code)}, nil
}

func loadGroup(fio filesio.FilesIo, groupPath string, raw yamlGroup) (Group, error) {
	groups := make(map[string]Group, len(raw.Groups))
	for name, childRaw := range raw.Groups {
		child, err := loadGroup(fio, path.Join(groupPath, name), childRaw)
		if err != nil {
			return Group{}, fmt.Errorf("in group %q: %w", name, err)
		}
		groups[name] = child
	}

	tables := make(map[string]Table, len(raw.Tables))
	for name, tableRaw := range raw.Tables {
		if tableRaw.DisableExtraction {
			continue
		}
		tablePath := path.Join(groupPath, name+".tabula-template.json")
		table, err := loadTable(fio, tablePath, tableRaw)
		if err != nil {
			return Group{}, fmt.Errorf("in table %q: %w", name, err)
		}
		tables[name] = table
	}

	return Group{
		Tags:   NewTagSet(raw.Tags),
		Groups: groups,
		Tables: tables,
	}, nil
}

func loadTable(fio filesio.FilesIo, jsonPath string, raw yamlTable) (Table, error) {
	r, err := fio.OpenRead(jsonPath)
	if err != nil {
		return Table{}, fmt.Errorf("opening template file %q: %w", jsonPath, err)
	}
	defer r.Close()

	var entries []jsonTemplateEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return Table{}, fmt.Errorf("parsing template file %q: %w", jsonPath, err)
	}

	portions := make([]extractor.TablePortion, len(entries))
	for i, entry := range entries {
		method, err := parseExtractionMethod(entry.ExtractionMethod)
		if err != nil {
			return Table{}, fmt.Errorf("in %q entry %d: %w", jsonPath, i, err)
		}
		portions[i] = extractor.TablePortion{
			Method: method,
			Page:   entry.Page,
			Rect:   extractor.ConvertBottomLeftRect(entry.X1, entry.Y1, entry.X2, entry.Y2),
		}
	}

	var transform *Transform
	if raw.Transform != nil {
		transform = &Transform{Code: raw.Transform.Code, InputData: raw.Transform.InputData}
	}

	return Table{
		Tags:      NewTagSet(raw.Tags),
		Portions:  portions,
		Transform: transform,
	}, nil
}
