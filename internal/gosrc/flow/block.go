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

package flow

import (
	"go/ast"
	"go/token"
	"slices"
)

// block is a basic block: statements with a single entry and exit.
//
// For unconditional jumps next is the only successor. Conditional branches
// continue with next when taken and alt otherwise.
type block struct {
	pos, end  token.Pos
	next, alt *block
}

func (b *block) empty() bool { return !b.end.IsValid() }

// extend grows the source range of b to cover [pos, end).
func (b *block) extend(pos, end token.Pos) {
	if !b.pos.IsValid() || pos < b.pos {
		b.pos = pos
	}

	if end > b.end {
		b.end = end
	}
}

func (b *block) addNode(n ast.Node) { b.extend(n.Pos(), n.End()) }

func (b *block) addExprs(exprs []ast.Expr) {
	if len(exprs) == 0 {
		return
	}

	b.extend(exprs[0].Pos(), exprs[len(exprs)-1].End())
}

func (b *block) addFields(fields *ast.FieldList) {
	if fields == nil || len(fields.List) == 0 {
		return
	}

	first, last := fields.List[0].Names, fields.List[len(fields.List)-1].Names
	if len(first) == 0 || len(last) == 0 {
		return
	}

	b.extend(first[0].Pos(), last[len(last)-1].End())
}

// start moves the beginning of a block created before its position was known.
func (b *block) start(pos token.Pos) { b.pos = pos }

func (b *block) jump(to *block) { b.next = to }

func (b *block) branch(taken, other *block) { b.next, b.alt = taken, other }

// clause links a case clause to its body and the following clause.
// A clause without body falls through to the next one.
func (b *block) clause(body, next *block) {
	if body == nil {
		b.next = next

		return
	}

	b.branch(body, next)
}

// slab allocates blocks in fixed-size chunks.
type slab struct {
	chunks [][]block
}

const chunkSize = 127

func (s *slab) block(pos token.Pos) *block {
	if n := len(s.chunks); n == 0 || len(s.chunks[n-1]) == chunkSize {
		s.chunks = append(s.chunks, make([]block, 0, chunkSize))
	}

	c := &s.chunks[len(s.chunks)-1]
	*c = append(*c, block{pos: pos})

	return &(*c)[len(*c)-1]
}

// blocks returns the non-empty blocks in source order.
func (s *slab) blocks() []*block {
	var all []*block

	for _, c := range s.chunks {
		for i := range c {
			if !c[i].empty() {
				all = append(all, &c[i])
			}
		}
	}

	slices.SortFunc(all, func(a, b *block) int { return int(a.pos - b.pos) })

	return all
}
