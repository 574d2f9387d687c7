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

import "fillmore-labs.com/asyncplan/internal/graph"

// aggregate derives type and namespace states from the settled functions and
// records the reason of every ignored declaration.
func (e *Engine) aggregate() {
	for _, t := range e.graph.Types() {
		aggregateType(t)
	}

	for _, ns := range e.graph.Namespaces() {
		ns.State = graph.NamespaceIgnore
		ns.IgnoreReason = "has no async members"

		for _, t := range ns.Types {
			if t.State != graph.TypeIgnore {
				ns.State = graph.NamespaceGenerate
				ns.IgnoreReason = ""

				break
			}
		}
	}

	for _, n := range e.graph.Functions() {
		if n.State == graph.Ignore {
			e.graph.Diagnostics.Add(n.Key, graph.LevelInfo, "%s", n.IgnoreReason)
		}
	}
}

// aggregateType computes the state of t from its functions.
func aggregateType(t *graph.TypeNode) {
	var async, copied bool

	for _, f := range t.Functions {
		switch f.State {
		case graph.Async:
			async = true
		case graph.Copy:
			copied = true
		}
	}

	pinned := t.State == graph.TypeNewType

	switch {
	case t.State == graph.TypeIgnore:
		// pinned, all functions were ignored on creation

	case async && pinned:
		// stays a new type

	case async:
		t.State = graph.TypePartial

	case copied && pinned:
		// copies of a new type are emitted with it

	case copied:
		t.State = graph.TypeCopy

	default:
		t.State = graph.TypeIgnore
		t.IgnoreReason = "has no async methods"
	}
}
