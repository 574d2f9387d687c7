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

package graph

import (
	"cmp"
	"slices"
)

// RelatedSet links a declaration with its interface counterparts and every override.
//
// Sets are merged on link, so membership is symmetric and transitively closed.
type RelatedSet struct {
	members []*FunctionNode
}

// Members returns the members of the set ordered by key.
func (s *RelatedSet) Members() []*FunctionNode {
	if s == nil {
		return nil
	}

	return s.members
}

// Len returns the number of members.
func (s *RelatedSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.members)
}

// Set returns the related set of n, or nil.
func (n *FunctionNode) Set() *RelatedSet { return n.related }

// Link merges the related sets of a and b.
func (g *Graph) Link(a, b *FunctionNode) {
	if a == b {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case a.related == nil && b.related == nil:
		s := &RelatedSet{members: []*FunctionNode{a, b}}
		a.related, b.related = s, s

	case a.related == nil:
		a.related = b.related
		b.related.members = append(b.related.members, a)

	case b.related == nil:
		b.related = a.related
		a.related.members = append(a.related.members, b)

	case a.related != b.related:
		large, small := a.related, b.related
		if len(large.members) < len(small.members) {
			large, small = small, large
		}

		for _, m := range small.members {
			m.related = large
		}

		large.members = append(large.members, small.members...)
	}
}

func (s *RelatedSet) sort() {
	slices.SortFunc(s.members, func(a, b *FunctionNode) int { return cmp.Compare(a.Key, b.Key) })
}
