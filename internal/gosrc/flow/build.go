// Copyright 2025-2026 Oliver Eikemeier. All Rights Reserved.
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

package flow

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
)

// builder translates a function body into blocks.
//
// The add* methods return the block following the translated statement.
type builder struct {
	slab
	info   *types.Info
	labels map[string]*label

	// innermost targets of unlabeled branch statements
	breakTo, continueTo, fallthroughTo *block
}

// label holds the targets of a labeled statement.
type label struct {
	stmt, breakTo, continueTo *block
}

func (l *label) target(tok token.Token) *block {
	switch tok {
	case token.BREAK:
		return l.breakTo

	case token.CONTINUE:
		return l.continueTo

	case token.GOTO:
		return l.stmt

	default:
		panic(fmt.Sprintf("unexpected labeled branch: %s", tok))
	}
}

func (b *builder) target(tok token.Token) *block {
	switch tok {
	case token.BREAK:
		return b.breakTo

	case token.CONTINUE:
		return b.continueTo

	case token.FALLTHROUGH:
		return b.fallthroughTo

	default:
		panic(fmt.Sprintf("unexpected branch: %s", tok))
	}
}

func (b *builder) addList(current *block, list []ast.Stmt) *block {
	for _, s := range list {
		current = b.add(current, s, nil)
	}

	return current
}

func (b *builder) add(current *block, stmt ast.Stmt, l *label) *block {
	switch stmt := stmt.(type) {
	case *ast.AssignStmt, *ast.BadStmt, *ast.DeferStmt, *ast.EmptyStmt, *ast.GoStmt, *ast.IncDecStmt, *ast.SendStmt:
		current.addNode(stmt)

		return current

	case *ast.BlockStmt:
		return b.addList(current, stmt.List)

	case *ast.BranchStmt:
		return b.addBranch(current, stmt)

	case *ast.DeclStmt:
		if d, ok := stmt.Decl.(*ast.GenDecl); ok && d.Tok == token.VAR {
			current.addNode(stmt)
		}

		return current

	case *ast.ExprStmt:
		current.addNode(stmt)

		if call, ok := stmt.X.(*ast.CallExpr); ok && NoReturn(b.info, call) {
			return b.block(stmt.End()) // unreachable
		}

		return current

	case *ast.ForStmt:
		return b.addFor(current, stmt, l)

	case *ast.IfStmt:
		return b.addIf(current, stmt)

	case *ast.LabeledStmt:
		ls := b.label(stmt.Label)
		ls.stmt.start(stmt.Stmt.Pos())
		current.jump(ls.stmt)

		return b.add(ls.stmt, stmt.Stmt, ls)

	case *ast.RangeStmt:
		return b.addRange(current, stmt, l)

	case *ast.ReturnStmt:
		current.addNode(stmt)

		return b.block(stmt.End()) // unreachable

	case *ast.SelectStmt:
		return b.addSelect(current, stmt, l)

	case *ast.SwitchStmt:
		if stmt.Init != nil {
			current.addNode(stmt.Init)
		}

		if stmt.Tag != nil {
			current.addNode(stmt.Tag)
		}

		return b.addCases(current, stmt.Body, l, false)

	case *ast.TypeSwitchStmt:
		if stmt.Init != nil {
			current.addNode(stmt.Init)
		}

		current.addNode(stmt.Assign)

		return b.addCases(current, stmt.Body, l, true)

	default:
		panic(fmt.Sprintf("unexpected statement: %T", stmt))
	}
}

func (b *builder) addBranch(current *block, stmt *ast.BranchStmt) *block {
	var to *block
	if stmt.Label == nil {
		to = b.target(stmt.Tok)
	} else {
		to = b.label(stmt.Label).target(stmt.Tok)
	}

	current.addNode(stmt)

	if to != nil {
		current.jump(to)
	}

	return b.block(stmt.End()) // unreachable
}

// label returns the targets of a label, creating them on first reference.
func (b *builder) label(id *ast.Ident) *label {
	if l, ok := b.labels[id.Name]; ok {
		return l
	}

	l := &label{stmt: b.block(token.NoPos)}
	b.labels[id.Name] = l

	return l
}

func (b *builder) addIf(current *block, stmt *ast.IfStmt) *block {
	if stmt.Init != nil {
		current.addNode(stmt.Init)
	}

	current.addNode(stmt.Cond)

	after := b.block(stmt.End())
	body := b.block(stmt.Body.Pos())
	b.addList(body, stmt.Body.List).jump(after)

	other := after
	if stmt.Else != nil {
		other = b.block(stmt.Else.Pos())
		b.add(other, stmt.Else, nil).jump(after)
	}

	current.branch(body, other)

	return after
}

// loop opens the break target of a loop, switch or select.
// The returned function restores the enclosing targets.
func (b *builder) loop(l *label, end token.Pos) (after *block, restore func()) {
	after = b.block(end)
	if l != nil {
		l.breakTo = after
	}

	breakTo, continueTo := b.breakTo, b.continueTo
	b.breakTo = after

	return after, func() { b.breakTo, b.continueTo = breakTo, continueTo }
}

func (b *builder) addFor(current *block, stmt *ast.ForStmt, l *label) *block {
	if stmt.Init != nil {
		current.addNode(stmt.Init)
	}

	body := b.block(stmt.Body.Lbrace + 1)
	after, restore := b.loop(l, stmt.End())

	cond := body
	if stmt.Cond != nil {
		cond = b.block(stmt.Cond.Pos())
		cond.addNode(stmt.Cond)
		cond.branch(body, after)
	}

	current.jump(cond)

	post := cond
	if stmt.Post != nil {
		post = b.block(stmt.Post.Pos())
		post.addNode(stmt.Post)
		post.jump(cond)
	}

	if l != nil {
		l.continueTo = post
	}

	b.continueTo = post
	b.addList(body, stmt.Body.List).jump(post)
	restore()

	return after
}

func (b *builder) addRange(current *block, stmt *ast.RangeStmt, l *label) *block {
	if stmt.Key != nil {
		current.addNode(stmt.Key)
	}

	if stmt.Value != nil {
		current.addNode(stmt.Value)
	}

	current.addNode(stmt.X)

	body := b.block(stmt.Body.Lbrace + 1)
	after, restore := b.loop(l, stmt.End())

	current.branch(body, after)

	if l != nil {
		l.continueTo = body
	}

	b.continueTo = body
	b.addList(body, stmt.Body.List).branch(body, after)
	restore()

	return after
}

// addCases translates the clauses of an expression or type switch.
// Case expressions are evaluated in order; default is taken last.
func (b *builder) addCases(current *block, cases *ast.BlockStmt, l *label, typeSwitch bool) *block {
	if len(cases.List) == 0 {
		return current
	}

	after, restore := b.loop(l, cases.End())
	defer restore()

	deflt := after
	expr := current

	var prevBody *block

	next := b.block(token.NoPos)

	for i, c := range cases.List {
		clause := c.(*ast.CaseClause)

		if clause.List == nil {
			deflt = next
		} else {
			caseExpr := b.block(clause.Case + token.Pos(len("case")))
			if !typeSwitch {
				caseExpr.addExprs(clause.List)
			}

			expr.clause(prevBody, caseExpr)
			prevBody, expr = next, caseExpr
		}

		body := next
		body.start(clause.Colon + 1)

		next = nil
		if i < len(cases.List)-1 {
			next = b.block(token.NoPos)
		}

		fallthroughTo := b.fallthroughTo
		if typeSwitch {
			b.fallthroughTo = nil
		} else {
			b.fallthroughTo = next
		}

		b.addList(body, clause.Body).jump(after)
		b.fallthroughTo = fallthroughTo
	}

	expr.clause(prevBody, deflt)

	return after
}

// addSelect evaluates all channel operands, then dispatches to one clause.
func (b *builder) addSelect(current *block, stmt *ast.SelectStmt, l *label) *block {
	after, restore := b.loop(l, stmt.End())
	defer restore()

	operands := current

	for _, c := range stmt.Body.List {
		var operand *block

		switch comm := c.(*ast.CommClause).Comm.(type) {
		case nil: // default

		case *ast.SendStmt:
			operand = b.block(comm.Pos())
			operand.addNode(comm)

		case *ast.AssignStmt:
			operand = b.block(comm.TokPos + token.Pos(len(comm.Tok.String())))
			operand.addExprs(comm.Rhs)

		case *ast.ExprStmt:
			operand = b.block(comm.Pos())
			operand.addNode(comm.X)

		default:
			panic(fmt.Sprintf("unexpected communication clause: %T", comm))
		}

		if operand != nil {
			operands.jump(operand)
			operands = operand
		}
	}

	dispatch := operands

	var prevBody *block

	for _, c := range stmt.Body.List {
		clause := c.(*ast.CommClause)

		next := b.block(token.NoPos)
		dispatch.clause(prevBody, next)

		body := after
		if len(clause.Body) > 0 {
			body = b.block(clause.Colon + 1)
		}

		dispatch, prevBody = next, body

		if assign, ok := clause.Comm.(*ast.AssignStmt); ok {
			received := b.block(assign.Pos())
			received.addExprs(assign.Lhs)
			received.jump(body)
			prevBody = received
		}

		if len(clause.Body) > 0 {
			b.addList(body, clause.Body).jump(after)
		}
	}

	if prevBody != nil {
		dispatch.jump(prevBody)
	}

	return after
}
