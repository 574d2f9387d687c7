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

package gosrc_test

import (
	"go/ast"
	"slices"
	"testing"

	. "fillmore-labs.com/asyncplan/internal/gosrc"
	"fillmore-labs.com/asyncplan/internal/symbol"
	"fillmore-labs.com/asyncplan/internal/testsource"
)

const storeSrc = `package test

import (
	"context"
	"sync"
)

type Store interface {
	Get(key string) (string, error)
	GetContext(ctx context.Context, key string) (string, error)
}

type Base struct{}

func (Base) Get(key string) (string, error) { return key, nil }

func (Base) GetContext(ctx context.Context, key string) (string, error) { return key, nil }

type Cached struct {
	Base
	mu sync.Mutex
}

func (c *Cached) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Base.Get(key)
}

func Fetch(s Store, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	return s.Get(key)
}

// Lookup wraps [Fetch].
func Lookup(s Store) string {
	v, _ := Fetch(s, "k")
	f := s.Get
	_, _ = f("x")

	go func() {
		_, _ = Fetch(s, "y")
	}()

	return v
}
`

const (
	storeGet     symbol.Key = "(test.Store).Get"
	storeGetCtx  symbol.Key = "(test.Store).GetContext"
	baseGet      symbol.Key = "(test.Base).Get"
	baseGetCtx   symbol.Key = "(test.Base).GetContext"
	cachedGet    symbol.Key = "(*test.Cached).Get"
	fetch        symbol.Key = "test.Fetch"
	lookup       symbol.Key = "test.Lookup"
	lookupFunc   symbol.Key = "test.Lookup$1"
	mutexLock    symbol.Key = "(*sync.Mutex).Lock"
	mutexUnlock  symbol.Key = "(*sync.Mutex).Unlock"
	cachedGetCtx symbol.Key = "(*test.Cached).GetContext"
)

func index(t *testing.T, src string, opts Options) *Index {
	t.Helper()

	fset, f, pkg, info := testsource.Load(t, src)

	return New(fset, []Package{{Types: pkg, Info: info, Files: []*ast.File{f}}}, opts)
}

func TestDecls(t *testing.T) {
	t.Parallel()

	x := index(t, storeSrc, Options{})

	want := []symbol.Key{storeGet, storeGetCtx, baseGet, baseGetCtx, cachedGet, fetch, lookup, lookupFunc}
	if got := x.Decls(); !slices.Equal(got, want) {
		t.Errorf("Decls() = %v, want %v", got, want)
	}

	tests := []struct {
		key   symbol.Key
		kind  symbol.Kind
		owner symbol.Key
	}{
		{storeGet, symbol.InterfaceMethod, "test.Store"},
		{baseGet, symbol.Method, "test.Base"},
		{cachedGet, symbol.Method, "test.Cached"},
		{fetch, symbol.Function, "test"},
		{lookupFunc, symbol.Literal, "test"},
	}

	for _, tt := range tests {
		d, ok := x.Decl(tt.key)
		if !ok {
			t.Errorf("Decl(%s) not found", tt.key)

			continue
		}

		if d.Kind != tt.kind || d.Owner != tt.owner {
			t.Errorf("Decl(%s) = %s owned by %s, want %s owned by %s", tt.key, d.Kind, d.Owner, tt.kind, tt.owner)
		}
	}

	if d, _ := x.Decl(lookupFunc); d.Parent != lookup {
		t.Errorf("Parent of %s = %s, want %s", lookupFunc, d.Parent, lookup)
	}

	if d, _ := x.Decl(baseGetCtx); !d.ContextAware {
		t.Errorf("%s is not context aware", baseGetCtx)
	}

	if d, _ := x.Decl(cachedGet); !d.Exclusive {
		t.Errorf("%s is not exclusive", cachedGet)
	}

	if _, ok := x.Decl(mutexLock); ok {
		t.Errorf("Declaration outside the source found: %s", mutexLock)
	}
}

func TestHierarchy(t *testing.T) {
	t.Parallel()

	x := index(t, storeSrc, Options{})

	impls, err := x.FindImplementations(t.Context(), storeGet)
	if err != nil {
		t.Fatalf("FindImplementations() = %v", err)
	}

	if want := []symbol.Key{baseGet, cachedGet}; !slices.Equal(impls, want) {
		t.Errorf("FindImplementations(%s) = %v, want %v", storeGet, impls, want)
	}

	if got := x.Implemented(cachedGet); !slices.Equal(got, []symbol.Key{storeGet}) {
		t.Errorf("Implemented(%s) = %v", cachedGet, got)
	}

	overrides, _ := x.FindOverrides(t.Context(), baseGet)
	if !slices.Equal(overrides, []symbol.Key{cachedGet}) {
		t.Errorf("FindOverrides(%s) = %v", baseGet, overrides)
	}

	if base, ok := x.Overridden(cachedGet); !ok || base != baseGet {
		t.Errorf("Overridden(%s) = %s, %t", cachedGet, base, ok)
	}

	for _, key := range []symbol.Key{storeGet, baseGet} {
		if !x.IsAbstractOrVirtual(key) {
			t.Errorf("%s is not virtual", key)
		}
	}

	if x.IsAbstractOrVirtual(fetch) {
		t.Errorf("%s is virtual", fetch)
	}
}

func TestMissing(t *testing.T) {
	t.Parallel()

	x := index(t, storeSrc, Options{})

	missing := x.Missing()
	if len(missing) != 1 {
		t.Fatalf("Missing() = %v, want one member", missing)
	}

	m := missing[0]
	if m.Sync != cachedGet || m.Counterpart.Key != cachedGetCtx || m.Counterpart.Cancellation != symbol.CancellationRequired {
		t.Errorf("Missing() = %+v", m)
	}
}

func TestCounterpartOf(t *testing.T) {
	t.Parallel()

	x := index(t, storeSrc, Options{})

	tests := []struct {
		key  symbol.Key
		want symbol.Key
		ok   bool
	}{
		{storeGet, storeGetCtx, true},
		{baseGet, baseGetCtx, true},
		{cachedGet, baseGetCtx, true},
		{fetch, "", false},
		{mutexLock, "", false},
	}

	for _, tt := range tests {
		c, ok := x.CounterpartOf(tt.key)
		if ok != tt.ok || c.Key != tt.want {
			t.Errorf("CounterpartOf(%s) = %s, %t, want %s, %t", tt.key, c.Key, ok, tt.want, tt.ok)
		}

		if ok && (c.Cancellation != symbol.CancellationRequired || c.ReturnsVoid || c.ReturnsFuture) {
			t.Errorf("CounterpartOf(%s) = %+v", tt.key, c)
		}
	}
}

func TestCounterpartShape(t *testing.T) {
	t.Parallel()

	const src = `
import "context"

func Wait() error { return nil }

func WaitWithContext() error { return nil }

func Start() int { return 0 }

func StartContext(ctx context.Context) <-chan int { return nil }
`

	x := index(t, src, Options{})

	wait, ok := x.CounterpartOf("test.Wait")
	if !ok || wait.Key != "test.WaitWithContext" || !wait.ReturnsVoid || wait.Cancellation != symbol.CancellationNone {
		t.Errorf("CounterpartOf(Wait) = %+v, %t", wait, ok)
	}

	start, ok := x.CounterpartOf("test.Start")
	if !ok || !start.ReturnsFuture || start.ReturnsVoid {
		t.Errorf("CounterpartOf(Start) = %+v, %t", start, ok)
	}

	x = index(t, src, Options{Suffixes: []string{"Context"}})
	if _, ok := x.CounterpartOf("test.Wait"); ok {
		t.Error("Counterpart found with restricted suffixes")
	}
}

func TestCalls(t *testing.T) {
	t.Parallel()

	x := index(t, storeSrc, Options{})

	tests := []struct {
		key  symbol.Key
		want []symbol.Key
	}{
		{cachedGet, []symbol.Key{mutexLock, mutexUnlock, baseGet}},
		{fetch, []symbol.Key{storeGet}},
		{lookup, []symbol.Key{fetch}},
		{lookupFunc, []symbol.Key{fetch}},
	}

	for _, tt := range tests {
		if got := x.Calls(tt.key); !slices.Equal(got, tt.want) {
			t.Errorf("Calls(%s) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestBody(t *testing.T) {
	t.Parallel()

	x := index(t, storeSrc, Options{})

	b, ok := x.Body(fetch)
	if !ok || len(b.Stmts) != 2 {
		t.Fatalf("Body(%s) = %+v, %t", fetch, b, ok)
	}

	if !x.IsPrecondition(b.Stmts[0]) {
		t.Error("Guard is not a precondition")
	}

	if s := b.Stmts[1]; s.Kind != symbol.ReturnStmt || s.Calls != 1 || s.Literal || x.IsPrecondition(s) {
		t.Errorf("Return statement = %+v", s)
	}

	if _, ok := x.Body(storeGet); ok {
		t.Errorf("Interface method %s has a body", storeGet)
	}
}
