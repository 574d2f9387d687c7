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
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// State is the conversion state of a [FunctionNode].
type State uint8

const (
	// Pending nodes are not decided yet.
	Pending State = iota

	// Async nodes get an asynchronous counterpart.
	Async

	// Copy nodes are kept verbatim.
	Copy

	// Ignore nodes are left out.
	Ignore
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Async:
		return "async"
	case Copy:
		return "copy"
	case Ignore:
		return "ignore"
	default:
		return "unknown"
	}
}

// FunctionNode is one function-like declaration.
type FunctionNode struct {
	Key  symbol.Key
	Decl symbol.Decl
	Type *TypeNode

	State        State
	IgnoreReason string

	Pin                policy.Pin
	Missing            bool
	ExplicitlyExcluded bool
	MustRunExclusively bool

	CancellationRequired bool
	Cancellation         policy.Cancellation

	PreserveReturnType bool
	SplitTail          bool
	OmitSuspendKeyword bool
	WrapGuarded        bool
	ForwardCall        bool
	Faulted            bool

	// Preconditions are indices into the body statements.
	Preconditions []int

	// References are the outgoing references in the body, ordered by position.
	References []*Reference

	// Dependents are the nodes whose conversion depends on this one.
	Dependents []*FunctionNode

	related *RelatedSet
	deps    map[*FunctionNode]struct{}
}

// ExplicitlyAsync reports whether the user pinned the node to be converted.
func (n *FunctionNode) ExplicitlyAsync() bool { return n.Pin == policy.PinAsync }

// ScanBody reports whether the pin asks for the body to be scanned.
func (n *FunctionNode) ScanBody() bool {
	return n.Pin == policy.PinAsync || n.Pin == policy.PinSmart
}

// Related returns the other members of the node's related set.
func (n *FunctionNode) Related() []*FunctionNode {
	if n.related == nil {
		return nil
	}

	others := make([]*FunctionNode, 0, len(n.related.members)-1)
	for _, m := range n.related.members {
		if m != n {
			others = append(others, m)
		}
	}

	return others
}

// RelatedTo reports whether n and o share a related set.
func (n *FunctionNode) RelatedTo(o *FunctionNode) bool {
	return n.related != nil && n.related == o.related && n != o
}

// IsInterface reports whether the node declares an interface method.
func (n *FunctionNode) IsInterface() bool { return n.Decl.Kind == symbol.InterfaceMethod }

// ToAsync marks the node as converted. Ignored nodes are not promoted.
func (n *FunctionNode) ToAsync() bool {
	if n.State == Ignore {
		return false
	}

	n.State = Async

	return true
}

// ToCopy keeps the node verbatim.
func (n *FunctionNode) ToCopy() {
	n.State = Copy
	n.IgnoreReason = ""
}

// ToIgnore excludes the node with a reason.
func (n *FunctionNode) ToIgnore(reason string) {
	n.State = Ignore
	n.IgnoreReason = reason
}

// addDependent records that d depends on n.
func (n *FunctionNode) addDependent(d *FunctionNode) {
	if n.deps == nil {
		n.deps = make(map[*FunctionNode]struct{})
	}

	if _, ok := n.deps[d]; ok {
		return
	}

	n.deps[d] = struct{}{}
	n.Dependents = append(n.Dependents, d)
}

// ReferencesTo returns the references of n whose callee or candidates include target.
func (n *FunctionNode) ReferencesTo(target *FunctionNode) []*Reference {
	var refs []*Reference

	for _, r := range n.References {
		if r.Refers(target) {
			refs = append(refs, r)
		}
	}

	return refs
}
