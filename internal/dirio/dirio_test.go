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

package dirio

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travdata/tabex/pkg/filesio"
)

func TestCommitWritesFileAtomically(t *testing.T) {
	dir, err := New(t.TempDir())
	require.NoError(t, err)

	w, err := dir.OpenWrite("a/b.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Commit())

	assert.True(t, dir.Exists("a/b.csv"))

	r, err := dir.OpenRead("a/b.csv")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDiscardLeavesNoFile(t *testing.T) {
	dir, err := New(t.TempDir())
	require.NoError(t, err)

	w, err := dir.OpenWrite("x.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, w.Discard())

	assert.False(t, dir.Exists("x.csv"))
}

func TestOpenReadMissingReturnsNotFound(t *testing.T) {
	dir, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = dir.OpenRead("missing.csv")
	assert.ErrorIs(t, err, filesio.ErrNotFound)
}

func TestValidateRejectsAbsolutePaths(t *testing.T) {
	dir, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = dir.OpenRead(filepath.Join("/", "etc", "passwd"))
	assert.Error(t, err)
}

func TestIterFilesListsCommittedFiles(t *testing.T) {
	dir, err := New(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"a.csv", "sub/b.csv"} {
		w, err := dir.OpenWrite(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
		require.NoError(t, w.Commit())
	}

	files, err := dir.IterFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.csv", "sub/b.csv"}, files)
}
