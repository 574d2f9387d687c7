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

// Package propagate assigns every declaration its final conversion state.
//
// Propagation is strictly sequential. Phases run in a fixed order over the
// nodes that are still open, and each phase drains completely before the
// next one starts.
package propagate

import (
	"context"
	"fmt"
	"runtime/trace"

	"go.uber.org/zap"

	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// Options configure an [Engine].
type Options struct {
	// UseCancellation seeds propagation from nodes requiring cancellation.
	UseCancellation bool

	Logger *zap.Logger
}

// Engine runs the propagation phases over one graph.
type Engine struct {
	graph    *graph.Graph
	resolver symbol.Resolver
	policies policy.Policies
	opts     Options
	log      *zap.Logger

	// open holds the nodes not yet propagated or finalized.
	open map[*graph.FunctionNode]struct{}
}

// New creates an [Engine] for g. The resolver is consulted to retry
// counterpart lookups of deferred nodes.
func New(g *graph.Graph, r symbol.Resolver, p policy.Policies, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{
		graph:    g,
		resolver: r,
		policies: p.WithDefaults(),
		opts:     opts,
		log:      log,
	}
}

// Run executes consistency correction, the propagation phases, the final
// conversion of invocations with function arguments and the aggregate
// finalization.
func (e *Engine) Run(ctx context.Context) error {
	defer trace.StartRegion(ctx, "Propagate").End()

	e.correct()

	e.open = make(map[*graph.FunctionNode]struct{})
	for _, n := range e.graph.Functions() {
		if n.State == graph.Pending || n.State == graph.Async {
			e.open[n] = struct{}{}
		}
	}

	if e.opts.UseCancellation {
		if err := e.seed(ctx, "cancellation", func(n *graph.FunctionNode) bool { return n.CancellationRequired }); err != nil {
			return err
		}
	}

	if err := e.seed(ctx, "explicit", func(n *graph.FunctionNode) bool { return n.State == graph.Async }); err != nil {
		return err
	}

	deferred, err := e.closure(ctx)
	if err != nil {
		return err
	}

	if err := e.retry(ctx, deferred); err != nil {
		return err
	}

	e.finalize()
	e.settle()
	e.aggregate()

	return nil
}

// seed forces every open node matching pred to async and propagates it.
func (e *Engine) seed(ctx context.Context, phase string, pred func(*graph.FunctionNode) bool) error {
	defer trace.StartRegion(ctx, "Seed").End()

	var seeded int

	for _, n := range e.openNodes() {
		if len(e.open) == 0 {
			break
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if _, ok := e.open[n]; !ok || !pred(n) {
			continue
		}

		n.ToAsync()
		e.propagate(n)
		seeded++
	}

	e.log.Debug("Seeded", zap.String("phase", phase), zap.Int("nodes", seeded))

	return nil
}

// closure forces nodes with a converting invocation to async until a full
// pass changes nothing. It returns the deferred nodes.
func (e *Engine) closure(ctx context.Context) ([]*graph.FunctionNode, error) {
	defer trace.StartRegion(ctx, "Closure").End()

	for changed := true; changed; {
		changed = false

		for _, n := range e.openNodes() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if _, ok := e.open[n]; !ok || !invokesAsync(n) {
				continue
			}

			n.ToAsync()
			e.propagate(n)
			changed = true
		}
	}

	children := make(map[symbol.Key][]*graph.FunctionNode)
	for n := range e.open {
		if n.Decl.Parent != "" {
			children[n.Decl.Parent] = append(children[n.Decl.Parent], n)
		}
	}

	var deferred []*graph.FunctionNode

	for _, n := range e.openNodes() {
		if len(children[n.Key]) > 0 || passesUnresolved(n) {
			deferred = append(deferred, n)
		}
	}

	return deferred, nil
}

// retry re-examines deferred nodes exactly once.
func (e *Engine) retry(ctx context.Context, deferred []*graph.FunctionNode) error {
	defer trace.StartRegion(ctx, "Retry").End()

	for _, n := range deferred {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, ok := e.open[n]; !ok {
			continue
		}

		for _, r := range n.References {
			if r.Counterpart != nil || r.Callee != nil || len(r.Candidates) > 0 || r.CounterpartKey == "" {
				continue
			}

			if c, ok := e.resolver.CounterpartOf(r.CounterpartKey); ok {
				r.Counterpart = &c
			}
		}

		if !invokesAsync(n) {
			continue
		}

		n.ToAsync()
		e.propagate(n)
	}

	return nil
}

// Reasons for declarations ignored after propagation settled.
const (
	ReasonNoInvocations = "no asynchronous invocations"
	ReasonUnused        = "not used by asynchronous code"
)

// finalize copies or ignores every node still open.
func (e *Engine) finalize() {
	for _, n := range e.openNodes() {
		delete(e.open, n)

		if regenerated(n.Type) && usedByAsync(n) {
			n.ToCopy()

			continue
		}

		reason := ReasonNoInvocations
		for _, r := range n.References {
			if r.Converts() {
				reason = ReasonUnused

				break
			}
		}

		n.ToIgnore(reason)
	}
}

// propagate forces the dependents of start to async, breadth first.
func (e *Engine) propagate(start *graph.FunctionNode) {
	queue := []*graph.FunctionNode{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if _, ok := e.open[n]; !ok {
			continue
		}

		delete(e.open, n)
		e.cancellation(n)

		for _, d := range dependents(n) {
			if !n.RelatedTo(d) && !convertsTo(d, n) {
				continue
			}

			if d.ExplicitlyExcluded && d.State == graph.Ignore {
				e.warn(d.Key, "explicitly ignored declaration has an invocation of %s that could be asynchronous", n.Key)

				continue
			}

			if _, ok := e.open[d]; !ok {
				continue
			}

			d.ToAsync()

			if n.CancellationRequired {
				d.CancellationRequired = true
			}

			queue = append(queue, d)
		}
	}
}

// cancellation applies the cancellation policy to a node leaving the open set.
func (e *Engine) cancellation(n *graph.FunctionNode) {
	if !e.opts.UseCancellation || n.Missing {
		return
	}

	if required, ok := e.policies.Cancellation.RequiresCancellation(n.Decl); ok {
		n.CancellationRequired = required
	}

	if n.CancellationRequired {
		n.Cancellation = e.policies.Cancellation.GenerationPolicy(n.Decl)
	}
}

func (e *Engine) warn(key symbol.Key, format string, args ...any) {
	e.graph.Diagnostics.Add(key, graph.LevelWarning, format, args...)
	e.log.Warn(fmt.Sprintf(format, args...), zap.String("decl", string(key)))
}

// openNodes returns the open nodes ordered by key.
func (e *Engine) openNodes() []*graph.FunctionNode {
	nodes := make([]*graph.FunctionNode, 0, len(e.open))
	for _, n := range e.graph.Functions() {
		if _, ok := e.open[n]; ok {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// dependents returns the callers and related members of n without duplicates.
func dependents(n *graph.FunctionNode) []*graph.FunctionNode {
	related := n.Related()
	if len(related) == 0 {
		return n.Dependents
	}

	seen := make(map[*graph.FunctionNode]struct{}, len(n.Dependents)+len(related))
	deps := make([]*graph.FunctionNode, 0, len(n.Dependents)+len(related))

	for _, list := range [...][]*graph.FunctionNode{n.Dependents, related} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}

			seen[d] = struct{}{}
			deps = append(deps, d)
		}
	}

	return deps
}

// convertsTo reports whether any reference of d to n will convert.
func convertsTo(d, n *graph.FunctionNode) bool {
	for _, r := range d.ReferencesTo(n) {
		if r.Converts() {
			return true
		}
	}

	return false
}

// invokesAsync reports whether n has a converting reference that is not an argument.
func invokesAsync(n *graph.FunctionNode) bool {
	for _, r := range n.References {
		if !r.IsArgument() && r.Converts() {
			return true
		}
	}

	return false
}

// passesUnresolved reports whether n passes a possibly asynchronous declaration as an argument.
func passesUnresolved(n *graph.FunctionNode) bool {
	for _, r := range n.References {
		if r.IsArgument() && r.Generating() && r.Conversion() != graph.Keep {
			return true
		}
	}

	return false
}

// usedByAsync reports whether an async dependent references n in generated code.
func usedByAsync(n *graph.FunctionNode) bool {
	for _, d := range n.Dependents {
		if d.State != graph.Async {
			continue
		}

		for _, r := range d.ReferencesTo(n) {
			if r.Generating() {
				return true
			}
		}
	}

	return false
}

// regenerated reports whether t is pinned as a new type or has an async member.
func regenerated(t *graph.TypeNode) bool {
	if t.Regenerated() {
		return true
	}

	for _, f := range t.Functions {
		if f.State == graph.Async {
			return true
		}
	}

	return false
}
