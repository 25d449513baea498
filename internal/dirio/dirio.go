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

// Package dirio implements filesio.FilesIo backed by a plain directory on
// disk. This is CLI glue, not part of the specified core, but is needed to
// make extract-csv-tables runnable end to end.
package dirio

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/travdata/tabex/pkg/filesio"
)

// Dir is a filesio.FilesIo backed by a directory rooted at Root.
type Dir struct {
	Root string
}

// New creates a directory-backed FilesIo rooted at root, creating the
// directory if it does not already exist.
func New(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("dirio: create root %q: %w", root, err)
	}
	return &Dir{Root: root}, nil
}

func (d *Dir) resolve(relPath string) (string, error) {
	if err := filesio.ValidateRelPath(relPath); err != nil {
		return "", err
	}
	return filepath.Join(d.Root, filepath.FromSlash(relPath)), nil
}

// OpenRead implements filesio.FilesIo.
func (d *Dir) OpenRead(relPath string) (io.ReadCloser, error) {
	full, err := d.resolve(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dirio: open %q: %w", relPath, filesio.ErrNotFound)
		}
		return nil, fmt.Errorf("dirio: open %q: %w", relPath, err)
	}
	return f, nil
}

// OpenWrite implements filesio.FilesIo. The write goes to a temp file beside
// the target, renamed into place atomically on Commit.
func (d *Dir) OpenWrite(relPath string) (filesio.Writer, error) {
	full, err := d.resolve(relPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("dirio: create parent dirs for %q: %w", relPath, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("dirio: create temp file for %q: %w", relPath, err)
	}

	return &dirWriter{tmpPath: tmp.Name(), finalPath: full, f: tmp}, nil
}

// IterFiles implements filesio.FilesIo.
func (d *Dir) IterFiles() ([]string, error) {
	var rel []string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		rel = append(rel, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dirio: walk %q: %w", d.Root, err)
	}
	return rel, nil
}

// Exists implements filesio.FilesIo.
func (d *Dir) Exists(relPath string) bool {
	full, err := d.resolve(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// Close implements filesio.FilesIo. Directory backing requires no flush.
func (d *Dir) Close() error {
	return nil
}

type dirWriter struct {
	tmpPath   string
	finalPath string
	f         *os.File
	done      bool
}

func (w *dirWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *dirWriter) Commit() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("dirio: close temp file for %q: %w", w.finalPath, err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("dirio: rename into place %q: %w", w.finalPath, err)
	}
	return nil
}

func (w *dirWriter) Discard() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	return os.Remove(w.tmpPath)
}
