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
	"testing"
)

func TestParseFlagsRequiresTemplate(t *testing.T) {
	_, err := parseFlags([]string{"in.pdf", "out"})
	if err == nil {
		t.Fatal("expected an error when --template is omitted")
	}
}

func TestParseFlagsTwoPositionalsOmitsBook(t *testing.T) {
	flags, err := parseFlags([]string{"--template", "tmpl", "in.pdf", "out"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.book != "" {
		t.Errorf("book = %q, want empty", flags.book)
	}
	if flags.inputPdf != "in.pdf" || flags.outputPath != "out" {
		t.Errorf("inputPdf/outputPath = %q/%q, want in.pdf/out", flags.inputPdf, flags.outputPath)
	}
}

func TestParseFlagsThreePositionalsIncludesBook(t *testing.T) {
	flags, err := parseFlags([]string{"--template", "tmpl", "core", "in.pdf", "out"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.book != "core" {
		t.Errorf("book = %q, want core", flags.book)
	}
	if flags.inputPdf != "in.pdf" || flags.outputPath != "out" {
		t.Errorf("inputPdf/outputPath = %q/%q, want in.pdf/out", flags.inputPdf, flags.outputPath)
	}
}

func TestParseFlagsRejectsWrongPositionalCount(t *testing.T) {
	for _, args := range [][]string{
		{"--template", "tmpl"},
		{"--template", "tmpl", "only-one"},
		{"--template", "tmpl", "a", "b", "c", "d"},
	} {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%v): expected error", args)
		}
	}
}

func TestParseFlagsSplitsTagLists(t *testing.T) {
	flags, err := parseFlags([]string{
		"--template", "tmpl",
		"--with-tags", "combat,gear",
		"--without-tags", "secret",
		"in.pdf", "out",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if got := flags.withTags; len(got) != 2 || got[0] != "combat" || got[1] != "gear" {
		t.Errorf("withTags = %v, want [combat gear]", got)
	}
	if got := flags.withoutTags; len(got) != 1 || got[0] != "secret" {
		t.Errorf("withoutTags = %v, want [secret]", got)
	}
}

func TestParseFlagsEmptyTagListsAreNil(t *testing.T) {
	flags, err := parseFlags([]string{"--template", "tmpl", "in.pdf", "out"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.withTags != nil {
		t.Errorf("withTags = %v, want nil", flags.withTags)
	}
	if flags.withoutTags != nil {
		t.Errorf("withoutTags = %v, want nil", flags.withoutTags)
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	flags, err := parseFlags([]string{"--template", "tmpl", "in.pdf", "out"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if flags.outputType != "dir" {
		t.Errorf("outputType = %q, want dir", flags.outputType)
	}
	if flags.overwriteExisting || flags.noProgress || flags.noCache || flags.noColor {
		t.Errorf("expected all bool flags false by default, got %+v", flags)
	}
}

func TestSplitNonEmpty(t *testing.T) {
	cases := map[string][]string{
		"":     nil,
		"a":    {"a"},
		"a,b":  {"a", "b"},
		"a,,b": {"a", "b"},
		",a,":  {"a"},
	}
	for in, want := range cases {
		got := splitNonEmpty(in)
		if len(got) != len(want) {
			t.Errorf("splitNonEmpty(%q) = %v, want %v", in, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("splitNonEmpty(%q) = %v, want %v", in, got, want)
				break
			}
		}
	}
}
