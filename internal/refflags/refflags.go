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

// Package refflags derives per-reference and per-function generation flags
// for declarations that end asynchronous.
package refflags

import (
	"context"
	"fmt"
	"runtime/trace"

	"go.uber.org/zap"

	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// Options configure a [Calculator].
type Options struct {
	// UseCancellation validates cancellation policies and threads cancellation.
	UseCancellation bool

	Logger *zap.Logger
}

// Calculator computes flags on a settled graph.
type Calculator struct {
	graph    *graph.Graph
	resolver symbol.Resolver
	policies policy.Policies
	opts     Options
	log      *zap.Logger
}

// New creates a [Calculator] for g.
func New(g *graph.Graph, r symbol.Resolver, p policy.Policies, opts Options) *Calculator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Calculator{
		graph:    g,
		resolver: r,
		policies: p.WithDefaults(),
		opts:     opts,
		log:      log,
	}
}

// Run computes the flags of every async function.
func (c *Calculator) Run(ctx context.Context) error {
	defer trace.StartRegion(ctx, "ReferenceFlags").End()

	for _, n := range c.graph.Functions() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if n.State != graph.Async {
			continue
		}

		if c.opts.UseCancellation {
			c.cancellation(n)
		}

		suspension(n)
		c.body(n)
	}

	return nil
}

// cancellation validates the generation policy and decides which converted
// calls pass the cancellation argument.
func (c *Calculator) cancellation(n *graph.FunctionNode) {
	if n.CancellationRequired && !n.Missing {
		corrected, warnings := n.Cancellation.Correct(n.IsInterface())
		for _, w := range warnings {
			c.graph.Diagnostics.Add(n.Key, graph.LevelWarning, "invalid cancellation policy %s: %s", n.Cancellation, w)
			c.log.Warn("Invalid cancellation policy",
				zap.String("decl", string(n.Key)),
				zap.Stringer("policy", n.Cancellation),
				zap.String("correction", w))
		}

		n.Cancellation = corrected
	}

	for _, r := range n.References {
		if !r.Converts() {
			r.PassesCancellation = false

			continue
		}

		switch r.CalleeCancellation() {
		case symbol.CancellationNone:
			r.PassesCancellation = false
		case symbol.CancellationOptional:
			r.PassesCancellation = n.CancellationRequired
		default:
			r.PassesCancellation = true
		}
	}
}

// suspension decides which converted calls must suspend. Relaxation applies
// to all calls of a function or to none.
func suspension(n *graph.FunctionNode) {
	var converted []*graph.Reference

	for _, r := range n.References {
		if r.IsArgument() || !r.Generating() {
			continue
		}

		r.RequiresSuspension = r.Conversion() == graph.ToAsync
		if r.RequiresSuspension {
			converted = append(converted, r)
		}
	}

	if n.MustRunExclusively {
		return
	}

	for _, r := range converted {
		if !skippable(r.Site) {
			return
		}
	}

	for _, r := range converted {
		r.RequiresSuspension = false
		r.UsedAsReturnValue = true
	}
}

// skippable reports whether the result of the call at s can be handed back without waiting.
func skippable(s symbol.Site) bool {
	switch {
	case !s.ReturnedDirectly && !s.LastCall:
		return false

	case s.Assigned, s.Guarded:
		return false

	default:
		return s.ResultCompatible
	}
}

// body computes the flags depending on the statements of n.
func (c *Calculator) body(n *graph.FunctionNode) {
	b, hasBody := c.resolver.Body(n.Key)
	if hasBody {
		c.preconditions(n, b)

		if len(n.Preconditions) > 0 && suspends(n) {
			n.SplitTail = true
		}
	}

	n.OmitSuspendKeyword = n.SplitTail || !suspends(n)

	if n.OmitSuspendKeyword {
		c.preserveReturnType(n)
	}

	if n.Faulted || n.PreserveReturnType || !n.OmitSuspendKeyword {
		return
	}

	if keepsAll(n) && c.policies.Forwarding.ShouldForward(n.Decl) {
		n.WrapGuarded = true
		n.ForwardCall = true

		return
	}

	if hasBody {
		n.WrapGuarded = wrapGuarded(n, b)
	}
}

// preconditions collects the leading guard statements before the first converted call.
func (c *Calculator) preconditions(n *graph.FunctionNode, b symbol.Body) {
	first := -1

	for _, r := range n.References {
		if r.Converts() && (first < 0 || r.Site.Pos < first) {
			first = r.Site.Pos
		}
	}

	n.Preconditions = nil

	for i, s := range b.Stmts {
		if first >= 0 && s.End > first {
			break
		}

		if !c.policies.Preconditions.IsPrecondition(s) {
			n.Faulted = s.Kind == symbol.PanicStmt

			break
		}

		n.Preconditions = append(n.Preconditions, i)
	}
}

// preserveReturnType keeps the declared result when every call converts to an
// external counterpart returning a plain value. Functions of a related set
// must keep a common signature and are skipped.
func (c *Calculator) preserveReturnType(n *graph.FunctionNode) {
	if n.Set() != nil {
		return
	}

	for _, r := range n.References {
		if r.IsArgument() || !r.Generating() {
			continue
		}

		if r.Conversion() != graph.ToAsync || r.Callee != nil || len(r.Candidates) > 0 ||
			r.Counterpart == nil || r.Counterpart.ReturnsFuture {
			return
		}
	}

	n.PreserveReturnType = c.policies.ReturnType.PreserveReturnType(n.Decl)
}

// wrapGuarded reports whether the body must be wrapped to capture failures.
// It is not required when the body, aside from preconditions, is a single
// compatible converted call.
func wrapGuarded(n *graph.FunctionNode, b symbol.Body) bool {
	if n.SplitTail || len(b.Stmts) == 0 {
		return false
	}

	if len(b.Stmts) != len(n.Preconditions)+1 {
		return true
	}

	idx := len(n.Preconditions)
	s := b.Stmts[idx]

	if s.Kind == symbol.ReturnStmt && s.Literal {
		return false
	}

	if (s.Kind != symbol.ReturnStmt && s.Kind != symbol.ExprStmt) || s.Calls != 1 {
		return true
	}

	for _, r := range n.References {
		if r.Site.Stmt != idx || r.Site.Context != symbol.Invocation || r.IsArgument() {
			continue
		}

		return r.Conversion() != graph.ToAsync || !r.Site.ResultCompatible
	}

	return true
}

// suspends reports whether a converted call of n must suspend.
func suspends(n *graph.FunctionNode) bool {
	for _, r := range n.References {
		if r.RequiresSuspension {
			return true
		}
	}

	return false
}

// keepsAll reports whether no call of n converts.
func keepsAll(n *graph.FunctionNode) bool {
	for _, r := range n.References {
		if r.Generating() && r.Conversion() != graph.Keep {
			return false
		}
	}

	return true
}

// Describe summarizes the flags of n for diagnostics.
func Describe(n *graph.FunctionNode) string {
	return fmt.Sprintf("suspend=%t split=%t preconditions=%d wrap=%t forward=%t preserve=%t cancel=%s",
		!n.OmitSuspendKeyword, n.SplitTail, len(n.Preconditions), n.WrapGuarded, n.ForwardCall,
		n.PreserveReturnType, cancellationOf(n))
}

func cancellationOf(n *graph.FunctionNode) policy.Cancellation {
	if !n.CancellationRequired {
		return 0
	}

	return n.Cancellation
}
