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

// Package gosrc resolves declarations, hierarchies and references of
// type-checked Go packages.
//
// The asynchronous counterpart of a function F is a function FContext (or
// FWithContext) in the same scope. A counterpart whose first parameter is a
// [context.Context] requires cancellation.
package gosrc

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/inspector"

	"fillmore-labs.com/asyncplan/internal/gosrc/flow"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// DefaultSuffixes name asynchronous counterparts, tried in order.
var DefaultSuffixes = []string{"Context", "WithContext"}

// Package is one type-checked package.
type Package struct {
	Types *types.Package
	Info  *types.Info
	Files []*ast.File

	// Inspector over Files, created when nil.
	Inspector *inspector.Inspector
}

// Options configure an [Index].
type Options struct {
	// Suffixes name asynchronous counterparts. Empty uses [DefaultSuffixes].
	Suffixes []string

	// IncludeGenerated includes declarations of generated files.
	IncludeGenerated bool

	// Cancellation is the generation policy of declarations without directive.
	Cancellation policy.Cancellation

	Logger *zap.Logger
}

// Index answers symbol queries over a fixed set of packages.
// It is immutable after construction and safe for concurrent use.
type Index struct {
	fset *token.FileSet
	opts Options
	log  *zap.Logger

	order []symbol.Key
	decls map[symbol.Key]*decl
	nodes map[ast.Node]symbol.Key

	// funcs holds every function seen, including those outside the source.
	funcs map[symbol.Key]*types.Func

	sites  map[symbol.Key][]symbol.Site
	calls  map[symbol.Key][]symbol.Key
	guards map[ast.Stmt]bool

	impls       map[symbol.Key][]symbol.Key
	implemented map[symbol.Key][]symbol.Key
	overrides   map[symbol.Key][]symbol.Key
	overridden  map[symbol.Key]symbol.Key
	missing     []symbol.Missing

	typePins map[symbol.Key]policy.TypePin
}

var _ symbol.Resolver = (*Index)(nil)

// decl is a declaration of the analyzed source.
type decl struct {
	symbol.Decl
	sig        *types.Signature
	typ        *ast.FuncType
	body       *ast.BlockStmt
	shape      symbol.Body
	defers     []token.Pos
	directives directives

	// flow is the control-flow graph of body, dropped after indexing.
	flow *flow.Graph
}

// New indexes pkgs.
func New(fset *token.FileSet, pkgs []Package, opts Options) *Index {
	if len(opts.Suffixes) == 0 {
		opts.Suffixes = DefaultSuffixes
	}

	if opts.Cancellation == 0 {
		opts.Cancellation = policy.CancelRequired
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	x := &Index{
		fset:        fset,
		opts:        opts,
		log:         log,
		decls:       make(map[symbol.Key]*decl),
		nodes:       make(map[ast.Node]symbol.Key),
		funcs:       make(map[symbol.Key]*types.Func),
		sites:       make(map[symbol.Key][]symbol.Site),
		calls:       make(map[symbol.Key][]symbol.Key),
		guards:      make(map[ast.Stmt]bool),
		impls:       make(map[symbol.Key][]symbol.Key),
		implemented: make(map[symbol.Key][]symbol.Key),
		overrides:   make(map[symbol.Key][]symbol.Key),
		overridden:  make(map[symbol.Key]symbol.Key),
		typePins:    make(map[symbol.Key]policy.TypePin),
	}

	pkgs = slices.Clone(pkgs)
	for i := range pkgs {
		if pkgs[i].Inspector == nil {
			pkgs[i].Inspector = inspector.New(pkgs[i].Files)
		}
	}

	for _, p := range pkgs {
		x.collect(p)
	}

	x.hierarchy(pkgs)

	for _, p := range pkgs {
		x.scan(p)
	}

	for _, d := range x.decls {
		d.flow = nil
	}

	log.Debug("Indexed packages",
		zap.Int("packages", len(pkgs)),
		zap.Int("declarations", len(x.order)),
		zap.Int("functions", len(x.funcs)))

	return x
}

// Decls implements [symbol.Resolver].
func (x *Index) Decls() []symbol.Key { return slices.Clone(x.order) }

// Decl implements [symbol.Resolver].
func (x *Index) Decl(key symbol.Key) (symbol.Decl, bool) {
	d, ok := x.decls[key]
	if !ok {
		return symbol.Decl{}, false
	}

	return d.Decl, true
}

// FindOverrides implements [symbol.Resolver].
func (x *Index) FindOverrides(ctx context.Context, key symbol.Key) ([]symbol.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return slices.Clone(x.overrides[key]), nil
}

// FindImplementations implements [symbol.Resolver].
func (x *Index) FindImplementations(ctx context.Context, key symbol.Key) ([]symbol.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return slices.Clone(x.impls[key]), nil
}

// FindReferences implements [symbol.Resolver].
func (x *Index) FindReferences(ctx context.Context, key symbol.Key) ([]symbol.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return slices.Clone(x.sites[key]), nil
}

// CounterpartOf implements [symbol.Resolver].
func (x *Index) CounterpartOf(key symbol.Key) (symbol.Counterpart, bool) {
	fn, ok := x.funcs[key]
	if !ok {
		return symbol.Counterpart{}, false
	}

	return x.counterpart(fn)
}

// IsAbstractOrVirtual implements [symbol.Resolver].
func (x *Index) IsAbstractOrVirtual(key symbol.Key) bool {
	if d, ok := x.decls[key]; ok && d.Kind == symbol.InterfaceMethod {
		return true
	}

	return len(x.overrides[key]) > 0
}

// Implemented implements [symbol.Resolver].
func (x *Index) Implemented(key symbol.Key) []symbol.Key { return slices.Clone(x.implemented[key]) }

// Overridden implements [symbol.Resolver].
func (x *Index) Overridden(key symbol.Key) (symbol.Key, bool) {
	base, ok := x.overridden[key]

	return base, ok
}

// Calls implements [symbol.Resolver].
func (x *Index) Calls(key symbol.Key) []symbol.Key { return slices.Clone(x.calls[key]) }

// Body implements [symbol.Resolver].
func (x *Index) Body(key symbol.Key) (symbol.Body, bool) {
	d, ok := x.decls[key]
	if !ok || d.body == nil {
		return symbol.Body{}, false
	}

	return d.shape, true
}

// Missing implements [symbol.Resolver].
func (x *Index) Missing() []symbol.Missing { return slices.Clone(x.missing) }

// Position returns the source position of the declaration key.
func (x *Index) Position(key symbol.Key) (token.Pos, bool) {
	fn, ok := x.funcs[key]
	if ok {
		return fn.Pos(), true
	}

	d, ok := x.decls[key]
	if !ok || d.body == nil {
		return token.NoPos, false
	}

	return d.body.Pos(), true
}

// funcKey returns the key of fn.
func funcKey(fn *types.Func) symbol.Key { return symbol.Key(fn.Origin().FullName()) }

// appendUnique appends key to the list stored under k.
func appendUnique(m map[symbol.Key][]symbol.Key, k, key symbol.Key) {
	if !slices.Contains(m[k], key) {
		m[k] = append(m[k], key)
	}
}
