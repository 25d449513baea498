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

// Package scriptengine hosts embedded JavaScript/ECMAScript execution for the
// pipeline's JsContext and EsTransform nodes. All goja runtimes live on a
// single dedicated, OS-thread-pinned goroutine: goja runtimes are not safe
// for concurrent use, and pinning avoids the cost of tearing one down and
// building a fresh one per script evaluation.
package scriptengine

import (
	"fmt"
	"runtime"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

// ContextID identifies a script context created by a Host. A context is a
// single goja.Runtime with its own global object and module registry;
// values created in one context cannot be shared directly with another.
type ContextID string

// Host owns the dedicated script-execution thread. The zero value is not
// usable; construct with NewHost.
type Host struct {
	reqs chan hostRequest
	done chan struct{}
}

type hostRequest struct {
	run func(*engine)
}

// engine is confined to the Host's dedicated goroutine; nothing outside
// this package ever touches it directly.
type engine struct {
	contexts map[ContextID]*contextState
}

type contextState struct {
	runtime      *goja.Runtime
	modules      map[string]string
	exportsCache map[string]goja.Value
}

// NewHost starts the dedicated script-execution goroutine and returns a
// handle to it. Call Close when done to release the goroutine.
func NewHost() *Host {
	h := &Host{
		reqs: make(chan hostRequest),
		done: make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Host) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	e := &engine{contexts: make(map[ContextID]*contextState)}
	for req := range h.reqs {
		req.run(e)
	}
}

// Close stops accepting new requests and waits for the dedicated goroutine
// to exit. Any contexts still open are discarded.
func (h *Host) Close() {
	close(h.reqs)
	<-h.done
}

// do dispatches fn to the dedicated goroutine and blocks until it returns.
func (h *Host) do(fn func(*engine)) {
	reply := make(chan struct{})
	h.reqs <- hostRequest{run: func(e *engine) {
		fn(e)
		close(reply)
	}}
	<-reply
}

// NewContext creates a new, isolated script context. modules supplies the
// source text available to require() calls within the context, keyed by
// the specifier scripts will pass to require.
func (h *Host) NewContext(modules map[string]string) ContextID {
	id := ContextID(uuid.NewString())
	h.do(func(e *engine) {
		rt := goja.New()
		cs := &contextState{
			runtime:      rt,
			modules:      modules,
			exportsCache: make(map[string]goja.Value),
		}
		installRequire(rt, cs)
		e.contexts[id] = cs
	})
	return id
}

// DropContext discards a context and its runtime. Using id after DropContext
// returns ErrUnknownContext from any further call.
func (h *Host) DropContext(id ContextID) {
	h.do(func(e *engine) {
		delete(e.contexts, id)
	})
}

// ErrUnknownContext is returned when an operation names a ContextID the Host
// does not (or no longer) hold.
var ErrUnknownContext = fmt.Errorf("scriptengine: unknown context")

// RunScript compiles and runs source as a top-level script within the given
// context. Scripts are side-effecting only: they install helpers on the
// context's global object for later EsTransform nodes to call, so the
// completion value must be undefined. Any non-undefined result is an error.
func (h *Host) RunScript(id ContextID, resourceName, source string) error {
	var runErr error
	h.do(func(e *engine) {
		cs, ok := e.contexts[id]
		if !ok {
			runErr = ErrUnknownContext
			return
		}
		result, err := runProtected(cs.runtime, func() (goja.Value, error) {
			return cs.runtime.RunScript(resourceName, source)
		})
		if err != nil {
			runErr = captureException(err, resourceName, "")
			return
		}
		if !goja.IsUndefined(result) {
			runErr = &ScriptError{
				ResourceName: resourceName,
				Message:      fmt.Sprintf("script completed with a non-undefined value (%v); scripts must only install helpers on the global object", result.Export()),
			}
		}
	})
	return runErr
}

// CallFunction compiles source as a function body taking argNames as its
// parameters, then calls it once with args, returning its return value
// exported to a Go value. This mirrors compiling an anonymous function and
// invoking it immediately, the same shape EsTransform nodes use to run a
// transform once over all of their input data.
func (h *Host) CallFunction(id ContextID, resourceName string, argNames []string, source string, args ...any) (any, error) {
	var value any
	var runErr error
	h.do(func(e *engine) {
		cs, ok := e.contexts[id]
		if !ok {
			runErr = ErrUnknownContext
			return
		}

		wrapped := wrapFunctionSource(argNames, source)
		fnValue, err := runProtected(cs.runtime, func() (goja.Value, error) {
			prog, err := goja.Compile(resourceName, wrapped, false)
			if err != nil {
				return nil, err
			}
			return cs.runtime.RunProgram(prog)
		})
		if err != nil {
			runErr = captureException(err, resourceName, "compile")
			return
		}

		fn, ok := goja.AssertFunction(fnValue)
		if !ok {
			runErr = &ScriptError{ResourceName: resourceName, Message: "compiled value is not callable", Phase: "compile"}
			return
		}

		callArgs := make([]goja.Value, len(args))
		for i, a := range args {
			callArgs[i] = cs.runtime.ToValue(a)
		}

		result, err := runProtected(cs.runtime, func() (goja.Value, error) {
			return fn(goja.Undefined(), callArgs...)
		})
		if err != nil {
			runErr = captureException(err, resourceName, "runtime")
			return
		}
		value = result.Export()
	})
	return value, runErr
}

func wrapFunctionSource(argNames []string, body string) string {
	params := ""
	for i, name := range argNames {
		if i > 0 {
			params += ", "
		}
		params += name
	}
	return "(function(" + params + ") {\n" + body + "\n})"
}

// runProtected recovers panics raised by host functions (e.g. require()
// rejecting an unknown specifier) and turns them back into a Go error
// carrying the thrown JS value, matching goja's own panic/recover exception
// protocol.
func runProtected(rt *goja.Runtime, fn func() (goja.Value, error)) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if exc, ok := r.(*goja.Exception); ok {
				err = exc
				return
			}
			panic(r)
		}
	}()
	return fn()
}
