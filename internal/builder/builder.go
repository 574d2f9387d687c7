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

// Package builder materializes the declaration graph from resolver queries.
//
// Builds are idempotent and may run concurrently. Every declaration is
// scanned at most once per [Builder]: the first caller claims it in a visited
// set, later callers return immediately without waiting for the winner.
package builder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/trace"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// ErrUnknownDeclaration is returned when a seed is not part of the analyzed source.
var ErrUnknownDeclaration = errors.New("unknown declaration")

// Options configure a [Builder].
type Options struct {
	// ScanAllBodies scans every body, regardless of the conversion pin.
	ScanAllBodies bool

	// UseCancellation derives cancellation requirements from counterparts.
	UseCancellation bool

	// Concurrency limits the number of concurrent seeds in [Builder.BuildAll].
	// Zero uses GOMAXPROCS.
	Concurrency int

	Logger *zap.Logger
}

// Builder builds one graph. It must not be reused across runs.
type Builder struct {
	graph    *graph.Graph
	resolver symbol.Resolver
	policies policy.Policies
	opts     Options
	log      *zap.Logger

	scanned  sync.Map // symbol.Key: declaration scan claimed
	searched sync.Map // symbol.Key: reference search claimed
	sites    sync.Map // site ID: reference recorded
}

// New creates a [Builder] filling g.
func New(g *graph.Graph, r symbol.Resolver, p policy.Policies, opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Builder{
		graph:    g,
		resolver: r,
		policies: p.WithDefaults(),
		opts:     opts,
		log:      log,
	}
}

// BuildAll builds all seeds concurrently.
func (b *Builder) BuildAll(ctx context.Context, seeds []symbol.Key) error {
	defer trace.StartRegion(ctx, "BuildAll").End()

	limit := b.opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, seed := range seeds {
		g.Go(func() error {
			_, err := b.Build(ctx, seed)

			return err
		})
	}

	return g.Wait()
}

// Build materializes the node for key and everything reachable from it.
func (b *Builder) Build(ctx context.Context, key symbol.Key) (*graph.FunctionNode, error) {
	decl, ok := b.resolver.Decl(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDeclaration, key)
	}

	n := b.node(decl)

	frontier := []symbol.Key{key}
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		more, err := b.scan(ctx, next)
		if err != nil {
			return nil, err
		}

		frontier = append(frontier, more...)
	}

	return n, nil
}

// AddMissing seeds nodes for asynchronous members without a source form.
// It must run before concurrent builds.
func (b *Builder) AddMissing(ctx context.Context) error {
	for _, m := range b.resolver.Missing() {
		decl, ok := b.resolver.Decl(m.Sync)
		if !ok {
			b.log.Warn("Missing member without declaration", zap.String("decl", string(m.Sync)))

			continue
		}

		_, created := b.graph.AddFunction(decl, func(n *graph.FunctionNode) {
			b.init(n)
			n.Missing = true
			n.State = graph.Async
			n.IgnoreReason = ""

			if m.Counterpart.Cancellation != symbol.CancellationNone {
				n.CancellationRequired = true
				n.Cancellation = policy.CancelRequired
				if m.Counterpart.Cancellation == symbol.CancellationOptional {
					n.Cancellation = policy.CancelOptional
				}
			}
		})
		if !created {
			b.log.Warn("Missing member already built", zap.String("decl", string(m.Sync)))
		}

		if _, err := b.Build(ctx, m.Sync); err != nil {
			return err
		}
	}

	return nil
}

// Finish freezes the graph and derives cancellation requirements from
// invoked counterparts. Counterparts passed as arguments do not count.
// It must run after all builds have completed.
func (b *Builder) Finish() {
	b.graph.Freeze()

	if !b.opts.UseCancellation {
		return
	}

	for _, n := range b.graph.Functions() {
		for _, r := range n.References {
			if r.Generating() && !r.IsArgument() && r.Counterpart != nil &&
				r.Counterpart.Cancellation == symbol.CancellationRequired {
				n.CancellationRequired = true

				break
			}
		}
	}
}

func (b *Builder) node(decl symbol.Decl) *graph.FunctionNode {
	n, _ := b.graph.AddFunction(decl, b.init)

	return n
}

// init runs under the graph lock when a node is created.
func (b *Builder) init(n *graph.FunctionNode) {
	decl := n.Decl
	n.Pin = b.policies.Conversion.Pin(decl)
	n.MustRunExclusively = decl.Exclusive

	if n.Type.State == graph.TypeUnknown {
		switch b.policies.Conversion.TypePin(decl.Owner) {
		case policy.TypeNew:
			n.Type.State = graph.TypeNewType
		case policy.TypeIgnored:
			n.Type.State = graph.TypeIgnore
			n.Type.IgnoreReason = "explicitly ignored"
		}
	}

	switch {
	case n.Type.State == graph.TypeIgnore:
		n.ToIgnore("owning type is ignored")

	case n.Pin == policy.PinIgnore:
		n.ExplicitlyExcluded = true
		n.ToIgnore("explicitly ignored")

	case n.Pin == policy.PinCopy:
		n.ToCopy()

	case decl.ContextAware:
		n.ToIgnore("already accepts a context")

	case b.hasCounterpart(decl.Key):
		n.ToIgnore("has an asynchronous counterpart")

	case n.Pin == policy.PinAsync:
		n.ToAsync()
	}

	if b.opts.UseCancellation {
		if required, ok := b.policies.Cancellation.RequiresCancellation(decl); ok {
			n.CancellationRequired = required
		}
	}
}

func (b *Builder) hasCounterpart(key symbol.Key) bool {
	_, ok := b.resolver.CounterpartOf(key)

	return ok
}

// scanBody reports whether the body of n is scanned for invocations.
func (b *Builder) scanBody(n *graph.FunctionNode) bool {
	return b.opts.ScanAllBodies || n.ScanBody()
}

// scan processes the reference family of key and returns the declarations to build next.
func (b *Builder) scan(ctx context.Context, key symbol.Key) ([]symbol.Key, error) {
	if _, loaded := b.scanned.LoadOrStore(key, struct{}{}); loaded {
		return nil, nil
	}

	decl, ok := b.resolver.Decl(key)
	if !ok {
		b.log.Debug("Skipping declaration outside the analyzed source", zap.String("decl", string(key)))

		return nil, nil
	}

	n := b.node(decl)
	if n.State == graph.Ignore && !n.ExplicitlyExcluded {
		b.log.Debug("Skipping ignored declaration",
			zap.String("decl", string(key)),
			zap.String("reason", n.IgnoreReason))

		return nil, nil
	}

	fam, err := b.family(ctx, n)
	if err != nil {
		return nil, err
	}

	var next []symbol.Key

	for _, m := range fam.members {
		if m != n.Key {
			next = append(next, m)
		}
	}

	// Calls leaving the analyzed source are recorded, so their counterparts
	// can be resolved. Declarations inside are searched when they are scanned.
	for _, m := range fam.bodies {
		for _, callee := range b.resolver.Calls(m.Key) {
			if fam.contains(callee) {
				continue
			}

			if _, ok := b.resolver.Decl(callee); ok && !b.hasCounterpart(callee) {
				continue
			}

			more, err := b.references(ctx, callee)
			if err != nil {
				return nil, err
			}

			next = append(next, more...)
		}
	}

	for _, m := range fam.members {
		more, err := b.references(ctx, m)
		if err != nil {
			return nil, err
		}

		next = append(next, more...)
	}

	return next, nil
}

// family is the reference family of a declaration.
type family struct {
	members []symbol.Key
	seen    map[symbol.Key]struct{}
	bodies  []*graph.FunctionNode
}

func (f *family) add(key symbol.Key) bool {
	if _, ok := f.seen[key]; ok {
		return false
	}

	f.seen[key] = struct{}{}
	f.members = append(f.members, key)

	return true
}

func (f *family) contains(key symbol.Key) bool {
	_, ok := f.seen[key]

	return ok
}

// family collects n, the interface methods it implements and its override chain,
// linking every discovered pair into a related set.
func (b *Builder) family(ctx context.Context, n *graph.FunctionNode) (*family, error) {
	fam := &family{seen: make(map[symbol.Key]struct{})}
	fam.add(n.Key)

	if b.scanBody(n) {
		fam.bodies = append(fam.bodies, n)
	}

	ifaces := b.resolver.Implemented(n.Key)
	if n.IsInterface() {
		ifaces = append(ifaces, n.Key)
	}

	for _, iface := range ifaces {
		in, ok := b.member(fam, iface)
		if !ok {
			continue
		}

		impls, err := b.resolver.FindImplementations(ctx, iface)
		if err != nil {
			return nil, fmt.Errorf("implementations of %s: %w", iface, err)
		}

		for _, impl := range impls {
			im, ok := b.member(fam, impl)
			if !ok {
				continue
			}

			b.graph.Link(in, im)

			if !b.resolver.IsAbstractOrVirtual(impl) {
				continue
			}

			if err := b.overrides(ctx, fam, im, in); err != nil {
				return nil, err
			}
		}
	}

	base := n
	for {
		up, ok := b.resolver.Overridden(base.Key)
		if !ok {
			break
		}

		bn, ok := b.member(fam, up)
		if !ok {
			break
		}

		b.graph.Link(base, bn)
		base = bn
	}

	if base != n || (!n.IsInterface() && b.resolver.IsAbstractOrVirtual(n.Key)) {
		if err := b.overrides(ctx, fam, base); err != nil {
			return nil, err
		}
	}

	return fam, nil
}

// member adds key to the family, returning its node when it is part of the analyzed source.
func (b *Builder) member(fam *family, key symbol.Key) (*graph.FunctionNode, bool) {
	decl, ok := b.resolver.Decl(key)
	if !ok {
		b.log.Debug("Related declaration outside the analyzed source", zap.String("decl", string(key)))

		return nil, false
	}

	m := b.node(decl)
	if fam.add(key) && b.scanBody(m) {
		fam.bodies = append(fam.bodies, m)
	}

	return m, true
}

// overrides links every transitive override of base to base and the given nodes.
func (b *Builder) overrides(ctx context.Context, fam *family, base *graph.FunctionNode, also ...*graph.FunctionNode) error {
	queue := []*graph.FunctionNode{base}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		keys, err := b.resolver.FindOverrides(ctx, cur.Key)
		if err != nil {
			return fmt.Errorf("overrides of %s: %w", cur.Key, err)
		}

		for _, key := range keys {
			if fam.contains(key) {
				continue
			}

			o, ok := b.member(fam, key)
			if !ok {
				continue
			}

			b.graph.Link(cur, o)

			for _, a := range also {
				b.graph.Link(a, o)
			}

			queue = append(queue, o)
		}
	}

	return nil
}

// references records every reference to key and returns the enclosing declarations.
func (b *Builder) references(ctx context.Context, key symbol.Key) ([]symbol.Key, error) {
	if _, loaded := b.searched.LoadOrStore(key, struct{}{}); loaded {
		return nil, nil
	}

	sites, err := b.resolver.FindReferences(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("references of %s: %w", key, err)
	}

	var next []symbol.Key

	for _, site := range sites {
		if _, loaded := b.sites.LoadOrStore(site.ID, struct{}{}); loaded {
			continue
		}

		if site.Enclosing == "" {
			b.log.Debug("Skipping reference without enclosing declaration",
				zap.String("callee", string(key)),
				zap.String("site", site.ID))

			continue
		}

		decl, ok := b.resolver.Decl(site.Enclosing)
		if !ok {
			b.log.Info("Skipping reference in a declaration that cannot be converted",
				zap.String("callee", string(key)),
				zap.String("enclosing", string(site.Enclosing)))

			continue
		}

		r := &graph.Reference{Caller: b.node(decl), Site: site}

		if site.Context == symbol.NameReference {
			for _, c := range site.Candidates {
				cd, ok := b.resolver.Decl(c)
				if !ok {
					continue
				}

				r.Candidates = append(r.Candidates, b.node(cd))
				next = append(next, c)
			}
		} else {
			b.resolve(r, site.Callee)
		}

		b.graph.AddReference(r)

		next = append(next, site.Enclosing)
	}

	return next, nil
}

// resolve sets the callee of r. Declarations with an existing counterpart
// are referenced through it, so their callers never depend on their state.
func (b *Builder) resolve(r *graph.Reference, callee symbol.Key) {
	r.CounterpartKey = callee

	if c, ok := b.resolver.CounterpartOf(callee); ok {
		r.Counterpart = &c

		return
	}

	if decl, ok := b.resolver.Decl(callee); ok {
		r.Callee = b.node(decl)
	}
}
