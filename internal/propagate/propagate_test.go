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

package propagate_test

import (
	"maps"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"fillmore-labs.com/asyncplan/internal/builder"
	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/policy"
	. "fillmore-labs.com/asyncplan/internal/propagate"
	"fillmore-labs.com/asyncplan/internal/symbol"
	"fillmore-labs.com/asyncplan/internal/symbol/symboltest"
)

type pins struct {
	policy.Defaults
	funcs map[symbol.Key]policy.Pin
	types map[symbol.Key]policy.TypePin
}

func (p pins) Pin(d symbol.Decl) policy.Pin {
	if pin, ok := p.funcs[d.Key]; ok {
		return pin
	}

	return policy.PinSmart
}

func (p pins) TypePin(owner symbol.Key) policy.TypePin { return p.types[owner] }

func run(t *testing.T, r *symboltest.Resolver, p policy.Policies, opts Options) (*graph.Graph, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	g := graph.New()
	b := builder.New(g, r, p, builder.Options{UseCancellation: opts.UseCancellation, Logger: log})

	if err := b.AddMissing(t.Context()); err != nil {
		t.Fatalf("AddMissing() = %v", err)
	}

	if err := b.BuildAll(t.Context(), r.Decls()); err != nil {
		t.Fatalf("BuildAll() = %v", err)
	}

	b.Finish()

	opts.Logger = log
	if err := New(g, r, p, opts).Run(t.Context()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	return g, logs
}

func state(t *testing.T, g *graph.Graph, key symbol.Key) graph.State {
	t.Helper()

	n, ok := g.Function(key)
	if !ok {
		t.Fatalf("Node %s not built", key)
	}

	return n.State
}

func node(t *testing.T, g *graph.Graph, key symbol.Key) *graph.FunctionNode {
	t.Helper()

	n, ok := g.Function(key)
	if !ok {
		t.Fatalf("Node %s not built", key)
	}

	return n
}

func TestIgnoredWithoutAsyncInvocations(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	f := r.Func("F")
	r.Call(f, "ext.Print")

	g, _ := run(t, r, policy.Policies{}, Options{})

	n, _ := g.Function(f)
	if n.State != graph.Ignore || n.IgnoreReason != "no asynchronous invocations" {
		t.Errorf("Got %s %q, want ignore with reason", n.State, n.IgnoreReason)
	}

	var found bool
	for _, d := range g.Diagnostics.Entries() {
		if d.Key == f && d.Level == graph.LevelInfo && d.Message == "no asynchronous invocations" {
			found = true
		}
	}

	if !found {
		t.Errorf("No diagnostic for %s in %v", f, g.Diagnostics.Entries())
	}
}

func TestClosure(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationRequired)
	f, g, h, unused := r.Func("F"), r.Func("G"), r.Func("H"), r.Func("Unused")
	r.Call(f, read)
	r.Call(g, f)
	r.Call(h, g)
	r.Call(unused, "ext.Print")

	gr, _ := run(t, r, policy.Policies{}, Options{UseCancellation: true})

	for _, key := range []symbol.Key{f, g, h} {
		if got := state(t, gr, key); got != graph.Async {
			t.Errorf("%s is %s, want async", key, got)
		}

		if n, _ := gr.Function(key); !n.CancellationRequired {
			t.Errorf("%s does not require cancellation", key)
		}
	}

	if got := state(t, gr, unused); got != graph.Ignore {
		t.Errorf("%s is %s, want ignore", unused, got)
	}

	checkClosure(t, gr)
}

func TestArgumentReferencesDoNotConvert(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationNone)
	f, g := r.Func("F"), r.Func("G")
	r.Call(f, read, symboltest.Argument())
	r.Call(g, f)

	gr, _ := run(t, r, policy.Policies{}, Options{})

	n, _ := gr.Function(f)
	if n.State != graph.Ignore || n.IgnoreReason != "not used by asynchronous code" {
		t.Errorf("Got %s %q, want ignore not used", n.State, n.IgnoreReason)
	}
}

func TestSynchronousArgumentKeepsInvocation(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationNone)
	apply, pure := r.Func("Apply"), r.Func("Pure")
	only, top, passes := r.Func("Only"), r.Func("Top"), r.Func("Passes")
	r.Call(apply, read)
	r.Call(only, pure, symboltest.AsValue(), symboltest.ArgumentTo(r.Call(only, apply)))
	r.Call(top, only)
	r.Call(passes, read, symboltest.AsValue(), symboltest.ArgumentTo(r.Call(passes, apply)))

	gr, _ := run(t, r, policy.Policies{}, Options{})

	tests := []struct {
		key  symbol.Key
		want graph.State
	}{
		{apply, graph.Async},
		{only, graph.Ignore},
		{top, graph.Ignore},
		{passes, graph.Async},
	}

	for _, tt := range tests {
		if got := state(t, gr, tt.key); got != tt.want {
			t.Errorf("%s is %s, want %s", tt.key, got, tt.want)
		}
	}

	n, _ := gr.Function(only)
	for _, ref := range n.ReferencesTo(node(t, gr, apply)) {
		if ref.Conversion() != graph.Keep || ref.IgnoreReason() != ReasonArguments {
			t.Errorf("Got invocation %s %q, want kept", ref.Conversion(), ref.IgnoreReason())
		}
	}

	checkClosure(t, gr)
}

func TestRelatedSetConsistency(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationNone)
	iface := r.InterfaceMethod("Reader", "Read")
	a, b := r.Method("A", "Read"), r.Method("B", "Read")
	r.Implements(iface, a)
	r.Implements(iface, b)
	r.Call(a, read)

	g, _ := run(t, r, policy.Policies{}, Options{})

	for _, key := range []symbol.Key{iface, a, b} {
		if got := state(t, g, key); got != graph.Async {
			t.Errorf("%s is %s, want async", key, got)
		}
	}

	if tn, _ := g.Type("test.B"); tn.State != graph.TypePartial {
		t.Errorf("Type B is %s, want partial", tn.State)
	}

	checkClosure(t, g)
}

func TestIgnoredImplementationIsCopied(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	iface := r.InterfaceMethod("Doer", "Do")
	a, b := r.Method("A", "Do"), r.Method("B", "Do")
	user := r.Func("User")
	r.Implements(iface, a)
	r.Implements(iface, b)
	r.Call(user, b)

	p := policy.Policies{Conversion: pins{funcs: map[symbol.Key]policy.Pin{
		a:    policy.PinIgnore,
		user: policy.PinAsync,
	}}}

	g, logs := run(t, r, p, Options{})

	for _, key := range []symbol.Key{a, b} {
		if got := state(t, g, key); got != graph.Copy {
			t.Errorf("%s is %s, want copy", key, got)
		}
	}

	warnings := g.Diagnostics.Warnings()
	if len(warnings) == 0 {
		t.Fatal("No warnings")
	}

	for _, w := range warnings {
		if w.Key != a && !strings.Contains(w.Message, string(a)) {
			t.Errorf("Warning %q does not name %s", w, a)
		}
	}

	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != len(warnings) {
		t.Errorf("Got %d logged warnings, want %d", logs.Len(), len(warnings))
	}
}

func TestPinnedIgnoreStopsPropagation(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationNone)
	f, g, h := r.Func("F"), r.Func("G"), r.Func("H")
	r.Call(f, read)
	r.Call(g, f)
	r.Call(h, g)

	p := policy.Policies{Conversion: pins{funcs: map[symbol.Key]policy.Pin{g: policy.PinIgnore}}}

	gr, logs := run(t, r, p, Options{})

	want := map[symbol.Key]graph.State{f: graph.Async, g: graph.Ignore, h: graph.Ignore}
	for key, w := range want {
		if got := state(t, gr, key); got != w {
			t.Errorf("%s is %s, want %s", key, got, w)
		}
	}

	if logs.FilterField(zap.String("decl", string(g))).Len() != 1 {
		t.Errorf("Got logs %v, want one warning for %s", logs.All(), g)
	}
}

func TestMonotonicity(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	f, g := r.Func("F"), r.Func("G")
	r.Call(g, f)

	p := policy.Policies{Conversion: pins{funcs: map[symbol.Key]policy.Pin{f: policy.PinAsync}}}

	gr, _ := run(t, r, p, Options{})

	for _, key := range []symbol.Key{f, g} {
		if got := state(t, gr, key); got != graph.Async {
			t.Errorf("%s is %s, want async", key, got)
		}
	}
}

func TestRetryResolvesCounterpart(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	p := r.Func("P")
	r.Literal(p, 1)
	r.Call(p, "ext.Late")

	g := graph.New()
	b := builder.New(g, r, policy.Policies{}, builder.Options{})

	if err := b.BuildAll(t.Context(), r.Decls()); err != nil {
		t.Fatalf("BuildAll() = %v", err)
	}

	b.Finish()

	r.Counterpart("ext.Late", symbol.Counterpart{Key: "ext.LateContext"})

	if err := New(g, r, policy.Policies{}, Options{}).Run(t.Context()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if got := state(t, g, p); got != graph.Async {
		t.Errorf("%s is %s, want async", p, got)
	}
}

func TestCopyInRegeneratedType(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	read := r.External("Read", symbol.CancellationNone)
	load, helper := r.Method("Store", "Load"), r.Method("Store", "helper")
	r.Call(load, read)
	r.Call(load, helper, symboltest.Argument())

	p := policy.Policies{Conversion: pins{types: map[symbol.Key]policy.TypePin{"test.Store": policy.TypeNew}}}

	g, _ := run(t, r, p, Options{})

	if got := state(t, g, helper); got != graph.Copy {
		t.Errorf("%s is %s, want copy", helper, got)
	}

	if tn, _ := g.Type("test.Store"); tn.State != graph.TypeNewType {
		t.Errorf("Type Store is %s, want new", tn.State)
	}
}

func TestAggregateIgnored(t *testing.T) {
	t.Parallel()

	r := symboltest.New()
	r.Method("Plain", "String")

	g, _ := run(t, r, policy.Policies{}, Options{})

	if tn, _ := g.Type("test.Plain"); tn.State != graph.TypeIgnore || tn.IgnoreReason != "has no async methods" {
		t.Errorf("Got type %s %q, want ignore", tn.State, tn.IgnoreReason)
	}

	if ns, _ := g.Namespace("test"); ns.State != graph.NamespaceIgnore || ns.IgnoreReason != "has no async members" {
		t.Errorf("Got namespace %s %q, want ignore", ns.State, ns.IgnoreReason)
	}
}

func TestDeterminism(t *testing.T) {
	t.Parallel()

	resolver := func() *symboltest.Resolver {
		r := symboltest.New()
		read := r.External("Read", symbol.CancellationOptional)
		iface := r.InterfaceMethod("I", "M")
		keys := []symbol.Key{r.Method("A", "M"), r.Method("B", "M"), r.Func("F"), r.Func("G"), r.Func("H")}
		r.Implements(iface, keys[0])
		r.Implements(iface, keys[1])
		r.Call(keys[0], read)
		r.Call(keys[2], iface)
		r.Call(keys[3], keys[2], symboltest.Argument())
		r.Call(keys[4], keys[3])
		r.Call(keys[3], keys[4])

		return r
	}

	snapshot := func() map[symbol.Key]graph.State {
		g, _ := run(t, resolver(), policy.Policies{}, Options{UseCancellation: true})

		states := make(map[symbol.Key]graph.State)
		for _, n := range g.Functions() {
			states[n.Key] = n.State
		}

		return states
	}

	first := snapshot()
	for range 5 {
		if next := snapshot(); !maps.Equal(first, next) {
			t.Fatalf("Got %v, want %v", next, first)
		}
	}
}

// checkClosure verifies that every dependent converting a call to an async
// node is async itself or explicitly ignored.
func checkClosure(t *testing.T, g *graph.Graph) {
	t.Helper()

	for _, n := range g.Functions() {
		if n.State != graph.Async {
			continue
		}

		for _, d := range n.Dependents {
			for _, r := range d.ReferencesTo(n) {
				if !r.Converts() {
					continue
				}

				if d.State != graph.Async && !(d.ExplicitlyExcluded && d.IgnoreReason != "") {
					t.Errorf("Dependent %s of async %s is %s", d.Key, n.Key, d.State)
				}
			}
		}
	}
}
