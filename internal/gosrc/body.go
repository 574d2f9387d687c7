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

package gosrc

import (
	"go/ast"
	"go/token"
	"go/types"

	"fillmore-labs.com/asyncplan/internal/gosrc/flow"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// shape computes the statement shape of body and the positions of its defer statements.
func (x *Index) shape(info *types.Info, body *ast.BlockStmt) (symbol.Body, []token.Pos) {
	b := symbol.Body{Stmts: make([]symbol.Stmt, 0, len(body.List))}

	for _, s := range body.List {
		stmt := symbol.Stmt{
			Kind:  symbol.OtherStmt,
			Pos:   int(s.Pos()),
			End:   int(s.End()),
			Calls: countCalls(info, s),
			Node:  s,
		}

		switch s := s.(type) {
		case *ast.ReturnStmt:
			stmt.Kind = symbol.ReturnStmt
			stmt.Literal = constantResults(info, s)

		case *ast.ExprStmt:
			stmt.Kind = symbol.ExprStmt
			if isPanic(info, s) {
				stmt.Kind = symbol.PanicStmt
			}

		case *ast.IfStmt:
			x.guards[s] = isGuard(info, s)
		}

		b.Stmts = append(b.Stmts, stmt)
	}

	var defers []token.Pos
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false

		case *ast.DeferStmt:
			defers = append(defers, n.Pos())

			return false
		}

		return true
	})

	return b, defers
}

// IsPrecondition implements [policy.PreconditionClassifier].
//
// A precondition is an if statement without init or else, a condition that
// calls nothing but builtins, and a body that only returns or does not return.
// Results may call functions, as in `return errors.New("...")`.
func (x *Index) IsPrecondition(s symbol.Stmt) bool {
	n, ok := s.Node.(ast.Stmt)

	return ok && x.guards[n]
}

func isGuard(info *types.Info, s *ast.IfStmt) bool {
	if s.Init != nil || s.Else != nil || len(s.Body.List) != 1 {
		return false
	}

	if countCalls(info, s.Cond) > 0 {
		return false
	}

	switch b := s.Body.List[0].(type) {
	case *ast.ReturnStmt:
		return true

	case *ast.ExprStmt:
		return isPanic(info, b)

	default:
		return false
	}
}

// countCalls counts the function invocations in n, excluding conversions,
// builtins and nested function literals.
func countCalls(info *types.Info, n ast.Node) int {
	var calls int

	ast.Inspect(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false

		case *ast.CallExpr:
			if tv, ok := info.Types[n.Fun]; ok && (tv.IsType() || tv.IsBuiltin()) {
				return true
			}

			calls++
		}

		return true
	})

	return calls
}

// isPanic reports whether s calls a function that never returns.
func isPanic(info *types.Info, s *ast.ExprStmt) bool {
	call, ok := s.X.(*ast.CallExpr)

	return ok && flow.NoReturn(info, call)
}

// constantResults reports whether s returns only constants or nil.
func constantResults(info *types.Info, s *ast.ReturnStmt) bool {
	if len(s.Results) == 0 {
		return false
	}

	for _, r := range s.Results {
		tv, ok := info.Types[r]
		if !ok || (tv.Value == nil && !tv.IsNil()) {
			return false
		}
	}

	return true
}
