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

// Package graph holds the declaration graph the decision engine operates on.
//
// Nodes are created concurrently while building, mutated sequentially during
// propagation and frozen afterwards.
package graph

import (
	"cmp"
	"slices"
	"sync"

	"fillmore-labs.com/asyncplan/internal/symbol"
)

// Graph is the declaration graph of one run.
type Graph struct {
	mu         sync.Mutex
	functions  map[symbol.Key]*FunctionNode
	types      map[symbol.Key]*TypeNode
	namespaces map[string]*NamespaceNode

	// sorted views, valid after Freeze
	sortedFunctions  []*FunctionNode
	sortedTypes      []*TypeNode
	sortedNamespaces []*NamespaceNode

	Diagnostics Diagnostics
}

// New creates an empty [Graph].
func New() *Graph {
	return &Graph{
		functions:  make(map[symbol.Key]*FunctionNode),
		types:      make(map[symbol.Key]*TypeNode),
		namespaces: make(map[string]*NamespaceNode),
	}
}

// Function returns the node for key.
func (g *Graph) Function(key symbol.Key) (*FunctionNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.functions[key]

	return n, ok
}

// Type returns the type node for key.
func (g *Graph) Type(key symbol.Key) (*TypeNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.types[key]

	return t, ok
}

// Namespace returns the namespace node for path.
func (g *Graph) Namespace(path string) (*NamespaceNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ns, ok := g.namespaces[path]

	return ns, ok
}

// AddFunction returns the node for decl, creating it with init when absent.
// The boolean result is true when the node was created.
func (g *Graph) AddFunction(decl symbol.Decl, init func(*FunctionNode)) (*FunctionNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, ok := g.functions[decl.Key]; ok {
		return n, false
	}

	n := &FunctionNode{Key: decl.Key, Decl: decl}
	n.Type = g.typeLocked(decl)
	n.Type.Functions = append(n.Type.Functions, n)
	g.functions[decl.Key] = n

	if init != nil {
		init(n)
	}

	g.sortedFunctions = nil

	return n, true
}

func (g *Graph) typeLocked(decl symbol.Decl) *TypeNode {
	if t, ok := g.types[decl.Owner]; ok {
		return t
	}

	ns, ok := g.namespaces[decl.Namespace]
	if !ok {
		ns = &NamespaceNode{Path: decl.Namespace}
		g.namespaces[decl.Namespace] = ns
	}

	t := &TypeNode{Key: decl.Owner, Name: decl.OwnerName, Namespace: ns}
	ns.Types = append(ns.Types, t)
	g.types[decl.Owner] = t

	return t
}

// AddReference records r on its caller and the dependency edges it implies.
func (g *Graph) AddReference(r *Reference) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r.Caller.References = append(r.Caller.References, r)

	if r.Callee != nil {
		r.Callee.addDependent(r.Caller)
	}

	for _, c := range r.Candidates {
		c.addDependent(r.Caller)
	}
}

// Freeze orders all collections by key and position.
// It must be called after building and before propagation.
func (g *Graph) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()

	byKey := func(a, b *FunctionNode) int { return cmp.Compare(a.Key, b.Key) }

	g.sortedFunctions = make([]*FunctionNode, 0, len(g.functions))
	for _, n := range g.functions {
		g.sortedFunctions = append(g.sortedFunctions, n)
	}

	slices.SortFunc(g.sortedFunctions, byKey)

	for _, n := range g.sortedFunctions {
		slices.SortStableFunc(n.References, func(a, b *Reference) int {
			return cmp.Or(cmp.Compare(a.Site.Pos, b.Site.Pos), cmp.Compare(a.Site.ID, b.Site.ID))
		})
		slices.SortFunc(n.Dependents, byKey)

		if n.related != nil {
			n.related.sort()
		}
	}

	g.sortedTypes = make([]*TypeNode, 0, len(g.types))
	for _, t := range g.types {
		slices.SortFunc(t.Functions, byKey)
		g.sortedTypes = append(g.sortedTypes, t)
	}

	slices.SortFunc(g.sortedTypes, func(a, b *TypeNode) int { return cmp.Compare(a.Key, b.Key) })

	g.sortedNamespaces = make([]*NamespaceNode, 0, len(g.namespaces))
	for _, ns := range g.namespaces {
		slices.SortFunc(ns.Types, func(a, b *TypeNode) int { return cmp.Compare(a.Key, b.Key) })
		g.sortedNamespaces = append(g.sortedNamespaces, ns)
	}

	slices.SortFunc(g.sortedNamespaces, func(a, b *NamespaceNode) int { return cmp.Compare(a.Path, b.Path) })
}

// Functions returns all function nodes ordered by key.
func (g *Graph) Functions() []*FunctionNode {
	if g.sortedFunctions == nil {
		g.Freeze()
	}

	return g.sortedFunctions
}

// Types returns all type nodes ordered by key.
func (g *Graph) Types() []*TypeNode {
	if g.sortedTypes == nil {
		g.Freeze()
	}

	return g.sortedTypes
}

// Namespaces returns all namespace nodes ordered by path.
func (g *Graph) Namespaces() []*NamespaceNode {
	if g.sortedNamespaces == nil {
		g.Freeze()
	}

	return g.sortedNamespaces
}
