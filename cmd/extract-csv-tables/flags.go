// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// cliFlags holds the parsed command line: the positional book/input/output
// triple from the Rust original's Command struct, plus the long flags spec
// §6 names.
type cliFlags struct {
	book       string
	inputPdf   string
	outputPath string

	templatePath      string
	outputType        string
	overwriteExisting bool
	withTags          []string
	withoutTags       []string
	noProgress        bool
	noCache           bool
	noColor           bool
}

func parseFlags(args []string) (cliFlags, error) {
	fs := flag.NewFlagSet("extract-csv-tables", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var flags cliFlags
	var withTagsRaw, withoutTagsRaw string

	fs.StringVar(&flags.templatePath, "template", "", "path to the template directory containing config.yaml (required)")
	fs.StringVar(&flags.outputType, "output-type", "dir", "output container kind: dir or zip")
	fs.BoolVar(&flags.overwriteExisting, "overwrite-existing", false, "re-extract tables whose output CSV already exists")
	fs.StringVar(&withTagsRaw, "with-tags", "", "comma-separated tags; only extract tables with at least one")
	fs.StringVar(&withoutTagsRaw, "without-tags", "", "comma-separated tags; never extract tables with any of these (wins over --with-tags)")
	fs.BoolVar(&flags.noProgress, "no-progress", false, "suppress the stderr progress bar")
	fs.BoolVar(&flags.noCache, "no-cache", false, "bypass the on-disk extraction cache")
	fs.BoolVar(&flags.noColor, "no-color", false, "disable ANSI color in error output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `extract-csv-tables — extract PDF tables into CSV files by template

Usage:
  extract-csv-tables [options] <book> <input_pdf> <output>

Positional arguments:
  book        book ID declared in the template's config.yaml (omit only when
              the template declares exactly one book)
  input_pdf   path to the source PDF
  output      directory to write <group>/<table>.csv files and index.csv into

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}

	if flags.templatePath == "" {
		return cliFlags{}, fmt.Errorf("extract-csv-tables: --template is required")
	}

	positional := fs.Args()
	switch len(positional) {
	case 2:
		flags.inputPdf, flags.outputPath = positional[0], positional[1]
	case 3:
		flags.book, flags.inputPdf, flags.outputPath = positional[0], positional[1], positional[2]
	default:
		fs.Usage()
		return cliFlags{}, fmt.Errorf("extract-csv-tables: expected <input_pdf> <output>, optionally preceded by <book>")
	}

	flags.withTags = splitNonEmpty(withTagsRaw)
	flags.withoutTags = splitNonEmpty(withoutTagsRaw)

	return flags, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
