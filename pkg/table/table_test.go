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

package table

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSVUsesCRLFAndFlexibleWidth(t *testing.T) {
	tbl := New([][]string{
		{"a", "b", "c"},
		{"d", "e"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))

	assert.Equal(t, "a,b,c\r\nd,e\r\n", buf.String())
}

func TestReadCSVRoundTrip(t *testing.T) {
	tbl := New([][]string{
		{"t1c1", "t1c2"},
		{"t2c1"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, got.Rows)
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	tbl := New([][]string{
		{"t1c1", "t1c2"},
		{"t2c1", "t2c2"},
	})

	got, err := FromJSON(tbl.ToJSON())
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, got.Rows)
}

func TestFromJSONRejectsWrongShape(t *testing.T) {
	_, err := FromJSON(map[string]any{"not": "a table"})
	assert.Error(t, err)

	_, err = FromJSON([]any{[]any{42}})
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := New([][]string{{"a"}})
	cloned := tbl.Clone()
	cloned.Rows[0][0] = "b"
	assert.Equal(t, "a", tbl.Rows[0][0])
}
