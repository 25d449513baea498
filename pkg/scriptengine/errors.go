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
	"fmt"
	"regexp"
	"strconv"

	"github.com/dop251/goja"
)

// ScriptError carries the structured detail of a thrown JavaScript
// exception or compile error: the message, the originating resource name,
// and the line number where available.
type ScriptError struct {
	Message      string
	ResourceName string
	Line         int
	// Phase distinguishes where within CallFunction the failure occurred:
	// "compile" (source did not parse) or "runtime" (a thrown exception
	// during execution). Empty for RunScript errors, which don't expose
	// this distinction.
	Phase string
	Err   error
}

func (e *ScriptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at %s:%d", e.Message, e.ResourceName, e.Line)
	}
	if e.ResourceName != "" {
		return fmt.Sprintf("%s in %s", e.Message, e.ResourceName)
	}
	return e.Message
}

func (e *ScriptError) Unwrap() error { return e.Err }

var lineNumberPattern = regexp.MustCompile(`:(\d+):\d+`)

// captureException converts a goja error (runtime exception or compile
// error) into a ScriptError, extracting the thrown value's message and, when
// present in the error text, a line number. phase is recorded verbatim into
// ScriptError.Phase; pass "" where the distinction doesn't apply.
func captureException(err error, resourceName, phase string) *ScriptError {
	se := &ScriptError{
		ResourceName: resourceName,
		Message:      err.Error(),
		Phase:        phase,
		Err:          err,
	}

	if exc, ok := err.(*goja.Exception); ok {
		se.Message = exc.Value().String()
	}

	if m := lineNumberPattern.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			se.Line = n
		}
	}

	return se
}
