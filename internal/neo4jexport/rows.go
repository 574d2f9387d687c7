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

package neo4jexport

import "fillmore-labs.com/asyncplan/internal/graph"

// NamespaceRows returns one row per namespace.
func NamespaceRows(g *graph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Namespaces()))
	for _, ns := range g.Namespaces() {
		rows = append(rows, map[string]any{
			"path":   ns.Path,
			"state":  ns.State.String(),
			"reason": ns.IgnoreReason,
		})
	}

	return rows
}

// TypeRows returns one row per type.
func TypeRows(g *graph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Types()))
	for _, t := range g.Types() {
		rows = append(rows, map[string]any{
			"key":       string(t.Key),
			"name":      t.Name,
			"namespace": t.Namespace.Path,
			"state":     t.State.String(),
			"reason":    t.IgnoreReason,
		})
	}

	return rows
}

// FunctionRows returns one row per function.
func FunctionRows(g *graph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Functions()))
	for _, n := range g.Functions() {
		cancellation := ""
		if n.CancellationRequired {
			cancellation = n.Cancellation.String()
		}

		rows = append(rows, map[string]any{
			"key":          string(n.Key),
			"name":         n.Decl.Name,
			"kind":         n.Decl.Kind.String(),
			"owner":        string(n.Type.Key),
			"state":        n.State.String(),
			"reason":       n.IgnoreReason,
			"cancellation": cancellation,
			"omit_suspend": n.OmitSuspendKeyword,
			"split_tail":   n.SplitTail,
			"wrap_guarded": n.WrapGuarded,
			"forward_call": n.ForwardCall,
		})
	}

	return rows
}

// CallRows returns one row per reference target. Ambiguous references yield
// a row per candidate; references leaving the graph target a node keyed by
// the declaration.
func CallRows(g *graph.Graph) []map[string]any {
	var rows []map[string]any

	for _, n := range g.Functions() {
		for _, r := range n.References {
			for _, callee := range targets(r) {
				rows = append(rows, map[string]any{
					"caller":     string(n.Key),
					"callee":     callee,
					"site":       r.Site.ID,
					"context":    r.Site.Context.String(),
					"conversion": r.Conversion().String(),
					"suspend":    r.RequiresSuspension,
					"cancel":     r.PassesCancellation,
				})
			}
		}
	}

	return rows
}

func targets(r *graph.Reference) []string {
	switch {
	case len(r.Candidates) > 0:
		keys := make([]string, 0, len(r.Candidates))
		for _, c := range r.Candidates {
			keys = append(keys, string(c.Key))
		}

		return keys

	case r.Callee != nil:
		return []string{string(r.Callee.Key)}

	case r.CounterpartKey != "":
		return []string{string(r.CounterpartKey)}

	default:
		return nil
	}
}

// RelatedRows returns one row per pair of related functions, from the lower key.
func RelatedRows(g *graph.Graph) []map[string]any {
	var rows []map[string]any

	for _, n := range g.Functions() {
		for _, m := range n.Related() {
			if n.Key < m.Key {
				rows = append(rows, map[string]any{"from": string(n.Key), "to": string(m.Key)})
			}
		}
	}

	return rows
}
