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

// Package symboltest provides an in-memory [symbol.Resolver] for tests.
//
// Declarations and call sites are registered with small builder methods,
// so graphs for the decision engine can be described without parsing source.
package symboltest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fillmore-labs.com/asyncplan/internal/symbol"
)

const pkg = "test"

// Resolver is an in-memory [symbol.Resolver].
type Resolver struct {
	mu sync.Mutex

	decls        map[symbol.Key]symbol.Decl
	order        []symbol.Key
	overrides    map[symbol.Key][]symbol.Key
	impls        map[symbol.Key][]symbol.Key
	implemented  map[symbol.Key][]symbol.Key
	overridden   map[symbol.Key]symbol.Key
	virtual      map[symbol.Key]bool
	sites        map[symbol.Key][]symbol.Site
	calls        map[symbol.Key][]symbol.Key
	counterparts map[symbol.Key]symbol.Counterpart
	bodies       map[symbol.Key]symbol.Body
	missing      []symbol.Missing
	positions    map[symbol.Key]int

	// Errors are returned from FindReferences for the given key.
	Errors map[symbol.Key]error
}

var _ symbol.Resolver = (*Resolver)(nil)

// New creates an empty [Resolver].
func New() *Resolver {
	return &Resolver{
		decls:        make(map[symbol.Key]symbol.Decl),
		overrides:    make(map[symbol.Key][]symbol.Key),
		impls:        make(map[symbol.Key][]symbol.Key),
		implemented:  make(map[symbol.Key][]symbol.Key),
		overridden:   make(map[symbol.Key]symbol.Key),
		virtual:      make(map[symbol.Key]bool),
		sites:        make(map[symbol.Key][]symbol.Site),
		calls:        make(map[symbol.Key][]symbol.Key),
		counterparts: make(map[symbol.Key]symbol.Counterpart),
		bodies:       make(map[symbol.Key]symbol.Body),
		positions:    make(map[symbol.Key]int),
		Errors:       make(map[symbol.Key]error),
	}
}

// Func declares a package-level function.
func (r *Resolver) Func(name string) symbol.Key {
	return r.add(symbol.Decl{
		Key:       symbol.Key(pkg + "." + name),
		Name:      name,
		Kind:      symbol.Function,
		Owner:     pkg,
		OwnerName: pkg,
		Namespace: pkg,
	})
}

// Method declares a method on typ.
func (r *Resolver) Method(typ, name string) symbol.Key {
	return r.add(symbol.Decl{
		Key:       symbol.Key(fmt.Sprintf("(%s.%s).%s", pkg, typ, name)),
		Name:      name,
		Kind:      symbol.Method,
		Owner:     symbol.Key(pkg + "." + typ),
		OwnerName: typ,
		Namespace: pkg,
	})
}

// InterfaceMethod declares a method of the interface typ.
func (r *Resolver) InterfaceMethod(typ, name string) symbol.Key {
	key := r.Method(typ, name)
	r.Update(key, func(d *symbol.Decl) { d.Kind = symbol.InterfaceMethod })

	r.mu.Lock()
	r.virtual[key] = true
	r.mu.Unlock()

	return key
}

// Literal declares a function literal inside parent.
func (r *Resolver) Literal(parent symbol.Key, n int) symbol.Key {
	d, _ := r.Decl(parent)

	return r.add(symbol.Decl{
		Key:       symbol.Key(fmt.Sprintf("%s$%d", parent, n)),
		Name:      fmt.Sprintf("%s$%d", d.Name, n),
		Kind:      symbol.Literal,
		Owner:     d.Owner,
		OwnerName: d.OwnerName,
		Namespace: d.Namespace,
		Parent:    parent,
	})
}

// External registers a declaration outside the analyzed source with an asynchronous counterpart.
func (r *Resolver) External(name string, c symbol.Cancellation) symbol.Key {
	key := symbol.Key("ext." + name)
	r.Counterpart(key, symbol.Counterpart{Key: key + "Context", Name: name + "Context", Cancellation: c})

	return key
}

// Counterpart registers the asynchronous counterpart of key.
func (r *Resolver) Counterpart(key symbol.Key, c symbol.Counterpart) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counterparts[key] = c
}

// Update modifies the declaration of key.
func (r *Resolver) Update(key symbol.Key, f func(d *symbol.Decl)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.decls[key]
	f(&d)
	r.decls[key] = d
}

// Implements records that impl implements the interface method iface.
func (r *Resolver) Implements(iface, impl symbol.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.impls[iface] = append(r.impls[iface], impl)
	r.implemented[impl] = append(r.implemented[impl], iface)
}

// Overrides records that o overrides base.
func (r *Resolver) Overrides(base, o symbol.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overrides[base] = append(r.overrides[base], o)
	r.overridden[o] = base
	r.virtual[base] = true
}

// CallOption modifies a registered call site.
type CallOption func(s *symbol.Site)

// Returned marks the call as the returned expression and the last call.
func Returned() CallOption {
	return func(s *symbol.Site) { s.ReturnedDirectly, s.LastCall = true, true }
}

// Last marks the call as the last executed call.
func Last() CallOption { return func(s *symbol.Site) { s.LastCall = true } }

// Assigned marks the call result as assigned.
func Assigned() CallOption { return func(s *symbol.Site) { s.Assigned = true } }

// Guarded marks the call as inside a region released on return.
func Guarded() CallOption { return func(s *symbol.Site) { s.Guarded = true } }

// Incompatible marks the call result as incompatible with the enclosing result.
func Incompatible() CallOption { return func(s *symbol.Site) { s.ResultCompatible = false } }

// Argument marks the site as an argument of another invocation.
func Argument() CallOption { return func(s *symbol.Site) { s.ArgumentOf = true } }

// ArgumentTo marks the site as an argument of the invocation at call.
func ArgumentTo(call symbol.Site) CallOption {
	return func(s *symbol.Site) {
		s.ArgumentOf = true
		s.Call = call.ID
	}
}

// AsValue marks the site as a value reference.
func AsValue() CallOption { return func(s *symbol.Site) { s.Context = symbol.Value } }

// Doc marks the site as a documentation link.
func Doc() CallOption { return func(s *symbol.Site) { s.Context = symbol.Documentation } }

// Unmapped clears the enclosing declaration.
func Unmapped() CallOption { return func(s *symbol.Site) { s.Enclosing = "" } }

// InStmt sets the top-level statement index.
func InStmt(i int) CallOption { return func(s *symbol.Site) { s.Stmt = i } }

// NameRef makes the site an ambiguous name reference.
func NameRef(candidates ...symbol.Key) CallOption {
	return func(s *symbol.Site) {
		s.Context = symbol.NameReference
		s.Candidates = candidates
	}
}

// Call registers a call site of callee inside caller.
func (r *Resolver) Call(caller, callee symbol.Key, opts ...CallOption) symbol.Site {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.positions[caller] + 10
	r.positions[caller] = pos

	site := symbol.Site{
		ID:               fmt.Sprintf("%s@%d", caller, pos),
		Callee:           callee,
		Enclosing:        caller,
		Context:          symbol.Invocation,
		Pos:              pos,
		Stmt:             -1,
		ResultCompatible: true,
	}
	for _, opt := range opts {
		opt(&site)
	}

	if body, ok := r.bodies[caller]; ok && site.Stmt < 0 {
		site.Stmt = body.StmtAt(pos)
	}

	target := callee
	if site.Context == symbol.NameReference && len(site.Candidates) > 0 {
		target = site.Candidates[0]
	}

	r.sites[target] = append(r.sites[target], site)
	if site.Context == symbol.Invocation && !slices.Contains(r.calls[caller], callee) {
		r.calls[caller] = append(r.calls[caller], callee)
	}

	return site
}

// SetBody registers the body statements of key.
func (r *Resolver) SetBody(key symbol.Key, stmts ...symbol.Stmt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bodies[key] = symbol.Body{Stmts: stmts}
}

// AddMissing registers an asynchronous member without source form.
func (r *Resolver) AddMissing(m symbol.Missing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.missing = append(r.missing, m)
}

func (r *Resolver) add(d symbol.Decl) symbol.Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.decls[d.Key]; !ok {
		r.order = append(r.order, d.Key)
	}

	r.decls[d.Key] = d

	return d.Key
}

// Decls implements [symbol.Resolver].
func (r *Resolver) Decls() []symbol.Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.order)
}

// Decl implements [symbol.Resolver].
func (r *Resolver) Decl(key symbol.Key) (symbol.Decl, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.decls[key]

	return d, ok
}

// FindOverrides implements [symbol.Resolver].
func (r *Resolver) FindOverrides(ctx context.Context, key symbol.Key) ([]symbol.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.overrides[key]), nil
}

// FindImplementations implements [symbol.Resolver].
func (r *Resolver) FindImplementations(ctx context.Context, key symbol.Key) ([]symbol.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.impls[key]), nil
}

// FindReferences implements [symbol.Resolver].
func (r *Resolver) FindReferences(ctx context.Context, key symbol.Key) ([]symbol.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.Errors[key]; err != nil {
		return nil, err
	}

	return slices.Clone(r.sites[key]), nil
}

// CounterpartOf implements [symbol.Resolver].
func (r *Resolver) CounterpartOf(key symbol.Key) (symbol.Counterpart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counterparts[key]

	return c, ok
}

// IsAbstractOrVirtual implements [symbol.Resolver].
func (r *Resolver) IsAbstractOrVirtual(key symbol.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.virtual[key]
}

// Implemented implements [symbol.Resolver].
func (r *Resolver) Implemented(key symbol.Key) []symbol.Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.implemented[key])
}

// Overridden implements [symbol.Resolver].
func (r *Resolver) Overridden(key symbol.Key) (symbol.Key, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base, ok := r.overridden[key]

	return base, ok
}

// Calls implements [symbol.Resolver].
func (r *Resolver) Calls(key symbol.Key) []symbol.Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.calls[key])
}

// Body implements [symbol.Resolver].
func (r *Resolver) Body(key symbol.Key) (symbol.Body, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bodies[key]

	return b, ok
}

// Missing implements [symbol.Resolver].
func (r *Resolver) Missing() []symbol.Missing {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.missing)
}
