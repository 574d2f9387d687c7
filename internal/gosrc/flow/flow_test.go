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

package flow_test

import (
	"go/ast"
	"go/token"
	"slices"
	"testing"

	. "fillmore-labs.com/asyncplan/internal/gosrc/flow"
	"fillmore-labs.com/asyncplan/internal/testsource"
)

const terminalSrc = `
import (
	"log"
	"os"
)

func f() {}

func Sequence() {
	f()
	f()
}

func Branch(b bool) {
	if b {
		f()
		return
	}
	f()
}

func Else(b bool) {
	if b {
		f()
	} else {
		f()
	}
}

func Loop() {
	for range 3 {
		f()
	}
}

func Exit() {
	f()
	os.Exit(1)
}

func Fatal(b bool) {
	if b {
		log.Fatal("failed")
	}
	f()
}

func Switch(n int) {
	switch n {
	case 1:
		f()
	case 2:
		f()
		fallthrough
	default:
		f()
	}
}

func Deferred() {
	defer f()
	f()
}

func Labeled() {
outer:
	for {
		f()
		break outer
	}
	f()
}
`

func TestTerminal(t *testing.T) {
	t.Parallel()

	_, file, _, info := testsource.Load(t, terminalSrc)

	want := map[string][]bool{
		"f":        nil,
		"Sequence": {false, true},
		"Branch":   {false, true},
		"Else":     {true, true},
		"Loop":     {false},
		"Exit":     {false, true},
		"Fatal":    {true, true},
		"Switch":   {true, false, true},
		"Deferred": {true},
		"Labeled":  {false, true},
	}

	for _, d := range file.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}

		t.Run(fd.Name.Name, func(t *testing.T) {
			t.Parallel()

			g := New(info, fd.Type, fd.Body)

			var got []bool

			ast.Inspect(fd.Body, func(n ast.Node) bool {
				if s, ok := n.(*ast.ExprStmt); ok {
					got = append(got, g.Terminal(s.End()))
				}

				return true
			})

			if w := want[fd.Name.Name]; !slices.Equal(got, w) {
				t.Errorf("Terminal = %v, want %v", got, w)
			}
		})
	}
}

const reachableSrc = `
func g() {}
func h() {}
func k() {}

func Guard(b bool) {
	if b {
		defer g()
		h()
	} else {
		k()
	}
	g()
}

func Loop() {
	for i := 0; i < 3; i++ {
		h()
		k()
	}
}
`

func TestReachable(t *testing.T) {
	t.Parallel()

	_, file, _, info := testsource.Load(t, reachableSrc)

	tests := []struct {
		fun      string
		from, to string // callee names, first occurrence
		want     bool
	}{
		{"Guard", "defer", "h", true},
		{"Guard", "defer", "k", false},
		{"Guard", "k", "h", false},
		{"Guard", "h", "g", true},
		{"Loop", "k", "h", true},
	}

	for _, tt := range tests {
		t.Run(tt.fun+"/"+tt.from+"-"+tt.to, func(t *testing.T) {
			t.Parallel()

			fd := funcDecl(t, file, tt.fun)
			g := New(info, fd.Type, fd.Body)

			got, ok := g.Reachable(position(fd, tt.from), position(fd, tt.to))
			if !ok {
				t.Fatal("Positions outside the body")
			}

			if got != tt.want {
				t.Errorf("Reachable = %t, want %t", got, tt.want)
			}
		})
	}
}

func funcDecl(tb testing.TB, file *ast.File, name string) *ast.FuncDecl {
	tb.Helper()

	for _, d := range file.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && fd.Name.Name == name {
			return fd
		}
	}

	tb.Fatalf("Function %s not found", name)

	return nil
}

// position returns the position of the first defer statement or the first
// call statement of name in fd, skipping deferred calls.
func position(fd *ast.FuncDecl, name string) token.Pos {
	var pos token.Pos

	ast.Inspect(fd.Body, func(n ast.Node) bool {
		if pos.IsValid() {
			return false
		}

		switch n := n.(type) {
		case *ast.DeferStmt:
			if name == "defer" {
				pos = n.Pos()
			}

			return false

		case *ast.ExprStmt:
			if call, ok := n.X.(*ast.CallExpr); ok {
				if id, ok := call.Fun.(*ast.Ident); ok && id.Name == name {
					pos = n.Pos()
				}
			}
		}

		return true
	})

	return pos
}

func TestNoReturn(t *testing.T) {
	t.Parallel()

	const src = `
import (
	"log"
	"os"
	"testing"
)

func f() {}

func Calls(tb testing.TB, t *testing.T, l *log.Logger) {
	panic("x")
	(panic)("x")
	os.Exit(1)
	log.Fatalf("%d", 1)
	l.Panic("x")
	tb.Fatal("x")
	t.FailNow()
	f()
	log.Print("x")
}
`

	_, file, _, info := testsource.Load(t, src)
	fd := funcDecl(t, file, "Calls")

	want := []bool{true, true, true, true, true, true, true, false, false}

	var got []bool
	for _, s := range fd.Body.List {
		got = append(got, NoReturn(info, s.(*ast.ExprStmt).X.(*ast.CallExpr)))
	}

	if !slices.Equal(got, want) {
		t.Errorf("NoReturn = %v, want %v", got, want)
	}
}
