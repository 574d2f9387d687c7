// Copyright 2025-2026 Oliver Eikemeier. All Rights Reserved.
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

// Package flow answers control-flow questions about a single function body.
//
// A [Graph] is built lazily on the first query. It is not safe for
// concurrent use.
package flow

import (
	"go/ast"
	"go/token"
	"go/types"
	"slices"
)

// interval is the source range of a basic block with the indices of its successors.
type interval struct {
	start, end token.Pos
	succ       []int
}

func (iv interval) compare(p token.Pos) int {
	switch {
	case iv.end <= p:
		return -1

	case iv.start > p:
		return 1

	default:
		return 0
	}
}

// Graph is the control-flow graph of one function body.
type Graph struct {
	build     func() []interval
	intervals []interval

	// reused breadth-first search state
	seen  []bool
	queue []int
}

// New returns the control-flow graph of a function with signature typ and body.
func New(info *types.Info, typ *ast.FuncType, body *ast.BlockStmt) *Graph {
	return &Graph{build: func() []interval {
		if body == nil {
			return nil
		}

		b := builder{info: info, labels: make(map[string]*label)}

		entry := b.block(typ.Pos())
		entry.addFields(typ.Params)
		entry.addFields(typ.Results)
		b.addList(entry, body.List)

		return intervals(b.blocks())
	}}
}

func (g *Graph) init() {
	if g.intervals != nil || g.build == nil {
		return
	}

	g.intervals = g.build()
	g.build = nil
	g.seen = make([]bool, len(g.intervals))
	g.queue = make([]int, len(g.intervals))
}

// Reachable reports whether to can execute after from.
// ok is false when a position lies outside the body.
func (g *Graph) Reachable(from, to token.Pos) (reachable, ok bool) {
	g.init()

	source, ok := g.index(from)
	if !ok {
		return true, false
	}

	target, ok := g.index(to)
	if !ok {
		return true, false
	}

	if source == target && to >= from {
		return true, true
	}

	clear(g.seen)

	tail := g.enqueue(source, 0)
	for head := 0; head < tail; head++ {
		if g.queue[head] == target {
			return true, true
		}

		tail = g.enqueue(g.queue[head], tail)
	}

	return false, true
}

// Terminal reports whether nothing executes after the statement ending at end.
func (g *Graph) Terminal(end token.Pos) bool {
	g.init()

	i, ok := g.index(end - 1)
	if !ok {
		return false
	}

	iv := g.intervals[i]

	return iv.end == end && len(iv.succ) == 0
}

func (g *Graph) enqueue(s, tail int) int {
	for _, next := range g.intervals[s].succ {
		if g.seen[next] {
			continue
		}

		g.seen[next] = true
		g.queue[tail] = next
		tail++
	}

	return tail
}

func (g *Graph) index(pos token.Pos) (int, bool) {
	return slices.BinarySearchFunc(g.intervals, pos, interval.compare)
}

// intervals flattens blocks into intervals. Successors that are empty
// blocks are replaced by their own successors.
func intervals(blocks []*block) []interval {
	index := make(map[*block]int, len(blocks))
	for i, b := range blocks {
		index[b] = i
	}

	seen := make(map[*block]struct{}, len(blocks))
	ivs := make([]interval, len(blocks))

	for i, b := range blocks {
		ivs[i] = interval{start: b.pos, end: b.end, succ: successors(nil, b, index, seen)}
		clear(seen)
	}

	return ivs
}

func successors(succ []int, b *block, index map[*block]int, seen map[*block]struct{}) []int {
	for _, next := range [...]*block{b.next, b.alt} {
		if next == nil {
			continue
		}

		if _, ok := seen[next]; ok {
			continue
		}

		seen[next] = struct{}{}

		if i, ok := index[next]; ok {
			succ = append(succ, i)
		} else {
			succ = successors(succ, next, index, seen)
		}
	}

	return succ
}
