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
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/edge"
	"golang.org/x/tools/go/ast/inspector"

	"fillmore-labs.com/asyncplan/internal/symbol"
)

// scan records the reference sites of every function used in p.
func (x *Index) scan(p Package) {
	for f := range x.files(p) {
		for c := range f.Preorder((*ast.Ident)(nil), (*ast.FuncDecl)(nil)) {
			switch n := c.Node().(type) {
			case *ast.Ident:
				x.ident(p, c, n)

			case *ast.FuncDecl:
				if n.Doc != nil {
					x.docLinks(p, n)
				}
			}
		}
	}
}

// ident records a use of a function.
func (x *Index) ident(p Package, c inspector.Cursor, id *ast.Ident) {
	fn, ok := p.Info.Uses[id].(*types.Func)
	if !ok {
		return
	}

	callee := funcKey(fn)
	if _, ok := x.funcs[callee]; !ok {
		x.funcs[callee] = fn.Origin()
	}

	site := symbol.Site{
		ID:               x.fset.Position(id.Pos()).String(),
		Callee:           callee,
		Context:          symbol.Value,
		Pos:              int(id.Pos()),
		Stmt:             -1,
		ResultCompatible: true,
	}

	expr := c
	if k, _ := c.ParentEdge(); k == edge.SelectorExpr_Sel {
		expr = c.Parent()
	}

	encl, d := x.enclosing(expr)
	site.Enclosing = encl

	if d != nil {
		site.Stmt = d.shape.StmtAt(site.Pos)
	}

	switch k, _ := expr.ParentEdge(); k {
	case edge.CallExpr_Fun:
		site.Context = symbol.Invocation
		x.invocation(&site, expr.Parent(), fn, d)

		if encl != "" && !slices.Contains(x.calls[encl], callee) {
			x.calls[encl] = append(x.calls[encl], callee)
		}

	case edge.CallExpr_Args:
		site.ArgumentOf = true
		if id := funIdent(expr.Parent().Node().(*ast.CallExpr)); id != nil {
			site.Call = x.fset.Position(id.Pos()).String()
		}
	}

	if site.Context == symbol.Value && isInterfaceMethod(fn) {
		site.Context = symbol.NameReference
		site.Candidates = append([]symbol.Key{callee}, x.impls[callee]...)
	}

	if encl == "" {
		x.log.Debug("Unmapped reference site", zap.String("site", site.ID), zap.String("decl", string(callee)))
	}

	x.sites[callee] = append(x.sites[callee], site)
}

// enclosing returns the innermost declaration containing c.
func (x *Index) enclosing(c inspector.Cursor) (symbol.Key, *decl) {
	for e := range c.Enclosing((*ast.FuncLit)(nil), (*ast.FuncDecl)(nil)) {
		key, ok := x.nodes[e.Node()]
		if !ok {
			return "", nil
		}

		return key, x.decls[key]
	}

	return "", nil
}

// invocation fills the facts of a call site.
func (x *Index) invocation(site *symbol.Site, call inspector.Cursor, fn *types.Func, d *decl) {
	if d == nil {
		return
	}

	switch k, _ := call.ParentEdge(); k {
	case edge.ReturnStmt_Results:
		if len(call.Parent().Node().(*ast.ReturnStmt).Results) == 1 {
			site.ReturnedDirectly = true
			site.LastCall = true
		}

	case edge.ExprStmt_X:
		site.LastCall = d.flow != nil && d.flow.Terminal(call.Parent().Node().End())

	case edge.AssignStmt_Rhs, edge.ValueSpec_Values:
		site.Assigned = true
	}

	site.Guarded = d.guarded(call.Node().Pos())
	site.ResultCompatible = types.Identical(resultsOf(fn.Signature()), resultsOf(d.sig))
}

// funIdent returns the identifier naming the called function, or nil.
func funIdent(call *ast.CallExpr) *ast.Ident {
	fun := ast.Unparen(call.Fun)

	switch f := fun.(type) {
	case *ast.IndexExpr:
		fun = f.X
	case *ast.IndexListExpr:
		fun = f.X
	}

	switch f := ast.Unparen(fun).(type) {
	case *ast.Ident:
		return f
	case *ast.SelectorExpr:
		return f.Sel
	default:
		return nil
	}
}

// guarded reports whether a deferred call can be pending at pos.
func (d *decl) guarded(pos token.Pos) bool {
	for _, p := range d.defers {
		if d.flow == nil {
			return p < pos
		}

		reachable, ok := d.flow.Reachable(p, pos)
		if !ok {
			reachable = p < pos
		}

		if reachable {
			return true
		}
	}

	return false
}

// resultsOf returns the result types without a trailing error.
func resultsOf(sig *types.Signature) *types.Tuple {
	res := sig.Results()
	if n := res.Len(); n > 0 && isError(res.At(n-1).Type()) {
		vars := make([]*types.Var, 0, n-1)
		for i := range n - 1 {
			vars = append(vars, res.At(i))
		}

		return types.NewTuple(vars...)
	}

	return res
}

func isInterfaceMethod(fn *types.Func) bool {
	recv := fn.Signature().Recv()

	return recv != nil && types.IsInterface(recv.Type())
}

var docLink = regexp.MustCompile(`\[(\*?[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)?)\]`)

// docLinks records the doc links of fd to functions of the same package.
func (x *Index) docLinks(p Package, fd *ast.FuncDecl) {
	encl, ok := x.nodes[fd]
	if !ok {
		return
	}

	text := fd.Doc.Text()
	for _, m := range docLink.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]

		fn, ok := lookupLink(p.Types, name)
		if !ok {
			continue
		}

		callee := funcKey(fn)
		if _, ok := x.funcs[callee]; !ok {
			x.funcs[callee] = fn
		}

		x.sites[callee] = append(x.sites[callee], symbol.Site{
			ID:               fmt.Sprintf("%s#%s", x.fset.Position(fd.Doc.Pos()), name),
			Callee:           callee,
			Enclosing:        encl,
			Context:          symbol.Documentation,
			Pos:              int(fd.Doc.Pos()) + m[0],
			Stmt:             -1,
			ResultCompatible: true,
		})
	}
}

// lookupLink resolves a doc link of the form Name or Type.Method.
func lookupLink(pkg *types.Package, name string) (*types.Func, bool) {
	typ, method, ok := strings.Cut(strings.TrimPrefix(name, "*"), ".")
	if !ok {
		fn, ok := pkg.Scope().Lookup(typ).(*types.Func)

		return fn, ok
	}

	tn, ok := pkg.Scope().Lookup(typ).(*types.TypeName)
	if !ok {
		return nil, false
	}

	obj, _, _ := types.LookupFieldOrMethod(tn.Type(), true, pkg, method)
	fn, ok := obj.(*types.Func)

	return fn, ok
}
