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
	"github.com/dop251/goja"
)

// installRequire wires a CommonJS-style require() into rt, resolving
// specifiers against the module source map supplied when the context was
// created. This is a Go-idiomatic substitute for native ES-module import
// resolution: goja's stable API has no equivalent of a V8 module resolver
// callback, so modules are resolved eagerly by specifier string rather than
// parsed as import/export syntax.
func installRequire(rt *goja.Runtime, cs *contextState) {
	var require func(call goja.FunctionCall) goja.Value
	require = func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()

		if cached, ok := cs.exportsCache[specifier]; ok {
			return cached
		}

		src, ok := cs.modules[specifier]
		if !ok {
			panic(rt.NewTypeError("module not found: %s", specifier))
		}

		moduleObj := rt.NewObject()
		exportsObj := rt.NewObject()
		_ = moduleObj.Set("exports", exportsObj)

		wrapped := "(function(module, exports, require) {\n" + src + "\n})"
		prog, err := goja.Compile(specifier, wrapped, false)
		if err != nil {
			panic(rt.ToValue(err.Error()))
		}
		wrapperFn, err := rt.RunProgram(prog)
		if err != nil {
			panic(rt.ToValue(err.Error()))
		}
		fn, ok := goja.AssertFunction(wrapperFn)
		if !ok {
			panic(rt.NewTypeError("module %s did not compile to a function", specifier))
		}

		// Cache before invoking so that a circular require sees the
		// in-progress exports object rather than recursing.
		cs.exportsCache[specifier] = exportsObj

		if _, err := fn(goja.Undefined(), moduleObj, exportsObj, rt.ToValue(require)); err != nil {
			delete(cs.exportsCache, specifier)
			panic(err)
		}

		exported := moduleObj.Get("exports")
		cs.exportsCache[specifier] = exported
		return exported
	}
	_ = rt.Set("require", require)
}
