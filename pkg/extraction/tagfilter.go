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

package extraction

import "github.com/travdata/tabex/pkg/template"

// TagFilter applies the with_tags/without_tags precedence rule: an empty
// WithTags passes everything; a non-empty WithTags requires intersection.
// WithoutTags takes precedence over WithTags — a table matching any
// without_tags is excluded even if with_tags would otherwise include it.
type TagFilter struct {
	WithTags    template.TagSet
	WithoutTags template.TagSet
}

// Allows reports whether a template-Table with the given effective tag set
// survives the filter.
func (f TagFilter) Allows(tags template.TagSet) bool {
	if len(f.WithoutTags) > 0 && tags.Intersects(f.WithoutTags) {
		return false
	}
	if len(f.WithTags) > 0 && !tags.Intersects(f.WithTags) {
		return false
	}
	return true
}
