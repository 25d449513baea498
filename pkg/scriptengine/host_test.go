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

package scriptengine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScriptAcceptsUndefinedCompletionValue(t *testing.T) {
	h := NewHost()
	defer h.Close()

	id := h.NewContext(nil)
	defer h.DropContext(id)

	err := h.RunScript(id, "inline.js", "globalThis.helper = function(n) { return n + 1; }; undefined;")
	require.NoError(t, err)
}

func TestRunScriptRejectsNonUndefinedCompletionValue(t *testing.T) {
	h := NewHost()
	defer h.Close()

	id := h.NewContext(nil)
	defer h.DropContext(id)

	err := h.RunScript(id, "inline.js", "1 + 2")
	require.Error(t, err)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Contains(t, scriptErr.Message, "non-undefined value")
}

// A two-argument function body called with two string values, joining
// them with a comma.
func TestCallFunctionConcatenatesRowValues(t *testing.T) {
	h := NewHost()
	defer h.Close()

	id := h.NewContext(nil)
	defer h.DropContext(id)

	value, err := h.CallFunction(id, "transform.js", []string{"a", "b"}, "return a + ',' + b;", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "x,y", value)
}

func TestRequireResolvesConfiguredModule(t *testing.T) {
	h := NewHost()
	defer h.Close()

	id := h.NewContext(map[string]string{
		"lib": "module.exports = { double: function(n) { return n * 2; } };",
	})
	defer h.DropContext(id)

	value, err := h.CallFunction(id, "main.js", nil, "return require('lib').double(21);")
	require.NoError(t, err)
	assert.EqualValues(t, 42, value)
}

func TestRequireUnknownModuleRaisesScriptError(t *testing.T) {
	h := NewHost()
	defer h.Close()

	id := h.NewContext(nil)
	defer h.DropContext(id)

	err := h.RunScript(id, "main.js", "require('missing');")
	require.Error(t, err)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, "main.js", scriptErr.ResourceName)
}

func TestRunScriptCapturesThrownExceptionMessage(t *testing.T) {
	h := NewHost()
	defer h.Close()

	id := h.NewContext(nil)
	defer h.DropContext(id)

	err := h.RunScript(id, "boom.js", "throw new Error('kaboom');")
	require.Error(t, err)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Contains(t, scriptErr.Message, "kaboom")
}

func TestUnknownContextReturnsErrUnknownContext(t *testing.T) {
	h := NewHost()
	defer h.Close()

	err := h.RunScript(ContextID("does-not-exist"), "x.js", "1;")
	assert.ErrorIs(t, err, ErrUnknownContext)
}

func TestContextsAreIsolatedFromEachOther(t *testing.T) {
	h := NewHost()
	defer h.Close()

	a := h.NewContext(nil)
	defer h.DropContext(a)
	b := h.NewContext(nil)
	defer h.DropContext(b)

	err := h.RunScript(a, "a.js", "globalThis.sharedValue = 'from-a'; undefined;")
	require.NoError(t, err)

	value, err := h.CallFunction(b, "b.js", nil, "return typeof globalThis.sharedValue;")
	require.NoError(t, err)
	assert.Equal(t, "undefined", value)
}
