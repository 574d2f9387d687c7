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

// Package engine runs the decision engine: it builds the declaration graph,
// propagates conversion states and derives the generation flags.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/trace"
	"time"

	"go.uber.org/zap"

	"fillmore-labs.com/asyncplan/internal/builder"
	"fillmore-labs.com/asyncplan/internal/config"
	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/propagate"
	"fillmore-labs.com/asyncplan/internal/refflags"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// ErrInvariant signals a defect in graph construction. Runs failing with it
// produce no result.
var ErrInvariant = errors.New("invariant violation")

// Options configure a run.
type Options struct {
	// Behavior holds the enabled behavioral flags.
	Behavior config.Behavior

	// Concurrency limits concurrent graph building. Zero uses GOMAXPROCS.
	Concurrency int

	// Seeds are the declarations to start from. Empty uses all declarations.
	Seeds []symbol.Key

	// Logger overrides [Logger].
	Logger *zap.Logger
}

// Result is the outcome of a run.
type Result struct {
	Graph       *graph.Graph
	Diagnostics []graph.Diagnostic
}

// Run executes the decision engine over the declarations of r.
func Run(ctx context.Context, r symbol.Resolver, p policy.Policies, opts Options) (*Result, error) {
	ctx, task := trace.NewTask(ctx, "AsyncPlan")
	defer task.End()

	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	if p.Forwarding == nil && opts.Behavior.Enabled(config.CallForwarding) {
		p.Forwarding = policy.Defaults{Forward: true}
	}

	if p.ReturnType == nil && opts.Behavior.Enabled(config.PreserveReturnType) {
		p.ReturnType = policy.Defaults{Preserve: true}
	}

	p = p.WithDefaults()
	cancellation := opts.Behavior.Enabled(config.UseCancellation)
	g := graph.New()
	start := time.Now()

	b := builder.New(g, r, p, builder.Options{
		ScanAllBodies:   opts.Behavior.Enabled(config.ScanAllBodies),
		UseCancellation: cancellation,
		Concurrency:     opts.Concurrency,
		Logger:          log.Named("builder"),
	})

	if opts.Behavior.Enabled(config.ScanMissing) {
		if err := b.AddMissing(ctx); err != nil {
			return nil, fmt.Errorf("missing members: %w", err)
		}
	}

	seeds := opts.Seeds
	if len(seeds) == 0 {
		seeds = r.Decls()
	}

	if err := b.BuildAll(ctx, seeds); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	b.Finish()

	log.Debug("Graph built",
		zap.Stringer("behavior", opts.Behavior),
		zap.Int("functions", len(g.Functions())),
		zap.Int("types", len(g.Types())),
		zap.Duration("elapsed", time.Since(start)))

	e := propagate.New(g, r, p, propagate.Options{
		UseCancellation: cancellation,
		Logger:          log.Named("propagate"),
	})
	if err := e.Run(ctx); err != nil {
		return nil, fmt.Errorf("propagate: %w", err)
	}

	if err := Verify(g); err != nil {
		return nil, err
	}

	c := refflags.New(g, r, p, refflags.Options{
		UseCancellation: cancellation,
		Logger:          log.Named("refflags"),
	})
	if err := c.Run(ctx); err != nil {
		return nil, fmt.Errorf("reference flags: %w", err)
	}

	log.Debug("Run complete", zap.Duration("elapsed", time.Since(start)))

	return &Result{Graph: g, Diagnostics: g.Diagnostics.Entries()}, nil
}

// Verify checks the invariants of a settled graph.
func Verify(g *graph.Graph) error {
	for _, n := range g.Functions() {
		if n.State == graph.Pending {
			return fmt.Errorf("%w: %s is still pending", ErrInvariant, n.Key)
		}

		if n.State == graph.Ignore && n.IgnoreReason == "" {
			return fmt.Errorf("%w: %s is ignored without reason", ErrInvariant, n.Key)
		}

		for _, r := range n.References {
			if r.Conversion() == graph.ToAsync && r.Callee == nil && len(r.Candidates) == 0 && r.Counterpart == nil {
				return fmt.Errorf("%w: reference %s in %s misses its counterpart", ErrInvariant, r.Site.ID, n.Key)
			}
		}

		if n.State == graph.Async {
			if err := verifyRelated(n); err != nil {
				return err
			}
		}
	}

	for _, t := range g.Types() {
		if t.State == graph.TypeIgnore {
			for _, f := range t.Functions {
				if f.State == graph.Async {
					return fmt.Errorf("%w: ignored type %s has async %s", ErrInvariant, t.Key, f.Key)
				}
			}
		}
	}

	return nil
}

// verifyRelated fails when an async node has a sibling that propagation
// left behind. Sets with an explicitly ignored member were reported during
// correction.
func verifyRelated(n *graph.FunctionNode) error {
	related := n.Related()

	for _, m := range related {
		if m.ExplicitlyExcluded {
			return nil
		}
	}

	for _, m := range related {
		if m.State == graph.Ignore && (m.IgnoreReason == propagate.ReasonNoInvocations || m.IgnoreReason == propagate.ReasonUnused) {
			return fmt.Errorf("%w: %s is async, related %s is ignored", ErrInvariant, n.Key, m.Key)
		}
	}

	return nil
}
