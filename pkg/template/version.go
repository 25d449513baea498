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
	"errors"
	"io"
	"strings"

	"github.com/travdata/tabex/pkg/filesio"
)

const versionPathStr = "version.txt"

// DetectVersion reads version.txt at the template root. If the file is
// absent, ok is false: callers must not guess a version, and must either
// require the user to specify one explicitly or fail outright.
func DetectVersion(fio filesio.FilesIo) (version string, ok bool, err error) {
	r, err := fio.OpenRead(versionPathStr)
	if err != nil {
		if errors.Is(err, filesio.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(string(data)), true, nil
}

// matchesV06 reports whether version names a template in the v0.6.x family,
// the only on-disk format this loader understands.
func matchesV06(version string) bool {
	return version == "0.6" || strings.HasPrefix(version, "0.6.")
}
