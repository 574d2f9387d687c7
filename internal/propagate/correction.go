// Copyright 2026 Oliver Eikemeier. All Rights Reserved.
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

package propagate

import (
	"fmt"

	"fillmore-labs.com/asyncplan/internal/graph"
)

// correct resolves explicitly ignored declarations that are contradicted by
// usage, before any phase runs.
func (e *Engine) correct() {
	for _, n := range e.graph.Functions() {
		if !n.ExplicitlyExcluded || n.State != graph.Ignore {
			continue
		}

		if n.Set() == nil {
			if usedBySurviving(n) {
				n.ToCopy()
				e.warn(n.Key, "explicitly ignored declaration is copied, it is used by code that will be generated")
			}

			continue
		}

		e.correctRelated(n)
	}
}

// correctRelated applies a common fate to the related set of the pinned node n.
func (e *Engine) correctRelated(n *graph.FunctionNode) {
	members := n.Set().Members()

	copied := n.Type.Regenerated()
	for _, m := range members {
		if usedBySurviving(m) {
			copied = true

			break
		}
	}

	if !copied {
		for _, m := range members {
			switch m.State {
			case graph.Pending:
				m.ToIgnore(fmt.Sprintf("related to explicitly ignored %s", n.Key))
				e.warn(m.Key, "ignored for consistency with explicitly ignored %s", n.Key)

			case graph.Async:
				e.warn(m.Key, "asynchronous declaration conflicts with explicitly ignored related %s", n.Key)
			}
		}

		return
	}

	for _, m := range members {
		if m.State == graph.Copy {
			continue
		}

		if m.Type.State == graph.TypeIgnore {
			e.warn(m.Key, "declaration of an ignored type cannot be copied for consistency with explicitly ignored %s", n.Key)

			continue
		}

		if m.State == graph.Async {
			e.warn(m.Key, "asynchronous declaration conflicts with explicitly ignored related %s", n.Key)

			continue
		}

		m.ToCopy()

		if m == n {
			e.warn(m.Key, "explicitly ignored declaration is copied, it is used by code that will be generated")
		} else {
			e.warn(m.Key, "copied for consistency with explicitly ignored %s", n.Key)
		}
	}
}

// usedBySurviving reports whether a dependent outside the related set of n is async or copied.
func usedBySurviving(n *graph.FunctionNode) bool {
	for _, d := range n.Dependents {
		if d.RelatedTo(n) {
			continue
		}

		if d.State == graph.Async || d.State == graph.Copy {
			return true
		}
	}

	return false
}
