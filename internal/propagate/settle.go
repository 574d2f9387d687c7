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
	"go.uber.org/zap"

	"fillmore-labs.com/asyncplan/internal/graph"
)

// ReasonArguments is recorded on invocations kept synchronous because a
// function passed to them stays synchronous.
const ReasonArguments = "function argument cannot be asynchronous"

// settle revisits async nodes once every state is final. An invocation
// passing a synchronous function as an argument stays synchronous. A node
// left without converting references is ignored, unless it is pinned, a
// missing member or related to an async node, and its async callers are
// revisited in turn.
func (e *Engine) settle() {
	var queue []*graph.FunctionNode

	for _, n := range e.graph.Functions() {
		if n.State == graph.Async && e.keepInvocations(n) {
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if !unsettled(n) {
			continue
		}

		n.ToIgnore(ReasonNoInvocations)
		e.log.Debug("Settled to ignore", zap.String("decl", string(n.Key)))

		for _, d := range n.Dependents {
			if d.State != graph.Async {
				continue
			}

			e.keepInvocations(d)
			queue = append(queue, d)
		}
	}
}

// keepInvocations ignores the converting invocations of n with a synchronous
// function argument. It reports whether any invocation changed.
func (e *Engine) keepInvocations(n *graph.FunctionNode) bool {
	var changed bool

	for _, r := range n.References {
		if r.IsArgument() || !r.Converts() {
			continue
		}

		for _, a := range r.Arguments() {
			if a.Generating() && a.Conversion() == graph.Keep {
				r.Ignore(ReasonArguments)
				e.log.Debug("Invocation stays synchronous",
					zap.String("decl", string(n.Key)),
					zap.String("site", r.Site.ID),
					zap.String("argument", string(a.Site.Callee)))

				changed = true

				break
			}
		}
	}

	return changed
}

// unsettled reports whether the async node n lost every reason to convert.
func unsettled(n *graph.FunctionNode) bool {
	if n.State != graph.Async || n.ExplicitlyAsync() || n.Missing {
		return false
	}

	for _, r := range n.References {
		if r.Converts() {
			return false
		}
	}

	for _, m := range n.Related() {
		if m.State == graph.Async {
			return false
		}
	}

	return true
}
