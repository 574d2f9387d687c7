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

package builder_test

import (
	"context"
	"errors"
	"testing"

	. "fillmore-labs.com/asyncplan/internal/builder"
	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
	"fillmore-labs.com/asyncplan/internal/symbol/symboltest"
)

func build(t *testing.T, r *symboltest.Resolver, opts Options, seeds ...symbol.Key) *graph.Graph {
	t.Helper()

	g := graph.New()
	b := New(g, r, policy.Policies{}, opts)

	if err := b.AddMissing(t.Context()); err != nil {
		t.Fatalf("AddMissing() = %v", err)
	}

	if err := b.BuildAll(t.Context(), seeds); err != nil {
		t.Fatalf("BuildAll() = %v", err)
	}

	b.Finish()

	return g
}

func node(t *testing.T, g *graph.Graph, key symbol.Key) *graph.FunctionNode {
	t.Helper()

	n, ok := g.Function(key)
	if !ok {
		t.Fatalf("Node %s not built", key)
	}

	return n
}

func TestReferenceFamily(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	iface := r.InterfaceMethod("Doer", "Do")
	a := r.Method("A", "Do")
	b := r.Method("B", "Do")
	c := r.Method("C", "Do")
	r.Implements(iface, a)
	r.Implements(iface, b)
	r.Overrides(b, c)

	g := build(t, r, Options{}, a)

	for _, key := range []symbol.Key{iface, a, b, c} {
		n := node(t, g, key)
		if got := n.Set().Len(); got != 4 {
			t.Errorf("Related set of %s has %d members, want 4", key, got)
		}
	}

	if !node(t, g, a).RelatedTo(node(t, g, c)) {
		t.Errorf("%s not related to %s", a, c)
	}
}

func TestCallersOfCounterparts(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationRequired)
	f := r.Func("F")
	g := r.Func("G")
	r.Call(f, read)
	r.Call(g, f, symboltest.Returned())

	gr := build(t, r, Options{UseCancellation: true}, f)

	fn := node(t, gr, f)
	if len(fn.References) != 1 || fn.References[0].Counterpart == nil {
		t.Fatalf("Got references %v of %s, want one counterpart reference", fn.References, f)
	}

	if !fn.CancellationRequired {
		t.Errorf("%s does not require cancellation", f)
	}

	gn := node(t, gr, g)
	if len(gn.References) != 1 || gn.References[0].Callee != fn {
		t.Fatalf("Got references %v of %s, want one reference to %s", gn.References, g, f)
	}

	if len(fn.Dependents) != 1 || fn.Dependents[0] != gn {
		t.Errorf("Got dependents %v of %s, want %s", fn.Dependents, f, g)
	}
}

func TestArgumentCounterpartsNeedNoCancellation(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationRequired)
	apply, only, direct := r.Func("Apply"), r.Func("Only"), r.Func("Direct")
	call := r.Call(only, apply, symboltest.Returned())
	r.Call(only, read, symboltest.AsValue(), symboltest.ArgumentTo(call))
	r.Call(direct, read, symboltest.Returned())

	gr := build(t, r, Options{UseCancellation: true}, only, direct)

	if node(t, gr, only).CancellationRequired {
		t.Errorf("%s requires cancellation for passing %s", only, read)
	}

	if !node(t, gr, direct).CancellationRequired {
		t.Errorf("%s does not require cancellation", direct)
	}
}

func TestConcurrentSeeds(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationNone)

	keys := make([]symbol.Key, 0, 20)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"} {
		keys = append(keys, r.Func(name))
	}

	for i, k := range keys {
		r.Call(k, read)

		if i > 0 {
			r.Call(k, keys[i-1])
			r.Call(keys[i-1], k)
		}
	}

	seeds := append(keys, keys...)
	g := build(t, r, Options{Concurrency: 4}, seeds...)

	for i, k := range keys {
		want := 3
		if i == 0 || i == len(keys)-1 {
			want = 2
		}

		if got := len(node(t, g, k).References); got != want {
			t.Errorf("%s has %d references, want %d", k, got, want)
		}
	}
}

func TestNameReference(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	a := r.Method("A", "Close")
	b := r.Method("B", "Close")
	f := r.Func("F")
	r.Call(f, a, symboltest.NameRef(a, b))

	g := build(t, r, Options{}, a)

	refs := node(t, g, f).References
	if len(refs) != 1 {
		t.Fatalf("Got %d references, want 1", len(refs))
	}

	if got := len(refs[0].Candidates); got != 2 {
		t.Errorf("Got %d candidates, want 2", got)
	}

	if !refs[0].Refers(node(t, g, b)) {
		t.Errorf("Reference does not refer to %s", b)
	}
}

func TestDocumentationLink(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationNone)
	f := r.Func("F")
	r.Call(f, read)
	r.Call(f, read, symboltest.Doc())

	g := build(t, r, Options{}, f)

	refs := node(t, g, f).References
	if len(refs) != 2 {
		t.Fatalf("Got %d references, want 2", len(refs))
	}

	if !refs[0].Generating() || refs[1].Generating() {
		t.Errorf("Got generating %t, %t, want true, false", refs[0].Generating(), refs[1].Generating())
	}
}

func TestUnmappedSite(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	f := r.Func("F")
	g := r.Func("G")
	r.Call(g, f, symboltest.Unmapped())

	gr := build(t, r, Options{}, f)

	if got := len(node(t, gr, f).Dependents); got != 0 {
		t.Errorf("Got %d dependents, want 0", got)
	}
}

func TestMissing(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	m := r.Method("T", "Get")
	r.AddMissing(symbol.Missing{
		Sync:        m,
		Counterpart: symbol.Counterpart{Key: "(test.T).GetContext", Cancellation: symbol.CancellationOptional},
	})

	g := build(t, r, Options{})

	n := node(t, g, m)
	if !n.Missing || n.State != graph.Async {
		t.Errorf("Got missing=%t state=%s, want missing async", n.Missing, n.State)
	}

	if !n.CancellationRequired || !n.Cancellation.Has(policy.CancelOptional) {
		t.Errorf("Got cancellation %t %s, want required optional", n.CancellationRequired, n.Cancellation)
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	errTest := errors.New("test error")

	r := symboltest.New()
	f := r.Func("F")
	broken := r.Func("Broken")
	r.Errors[broken] = errTest

	tests := []struct {
		name string
		ctx  func() context.Context
		key  symbol.Key
		want error
	}{
		{"unknown", context.Background, "test.Unknown", ErrUnknownDeclaration},
		{"resolver", context.Background, broken, errTest},
		{"canceled", func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			return ctx
		}, f, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := New(graph.New(), r, policy.Policies{}, Options{})
			if _, err := b.Build(tt.ctx(), tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Build() = %v, want %v", err, tt.want)
			}
		})
	}
}
