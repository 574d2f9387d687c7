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

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/inspector"

	"fillmore-labs.com/asyncplan/internal/astutil"
	"fillmore-labs.com/asyncplan/internal/gosrc/flow"
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// files yields the files of p that take part in the analysis.
func (x *Index) files(p Package) func(yield func(inspector.Cursor) bool) {
	return func(yield func(inspector.Cursor) bool) {
		for f := range p.Inspector.Root().Children() {
			file := f.Node().(*ast.File)

			currentFile := astutil.NewCurrentFile(x.fset, file)
			if !currentFile.Valid() {
				x.log.Warn("File without position information", zap.String("file", file.Name.Name))

				continue
			}

			if currentFile.Generated() && !x.opts.IncludeGenerated {
				continue
			}

			if !yield(f) {
				return
			}
		}
	}
}

// collect registers the declarations of p.
func (x *Index) collect(p Package) {
	for f := range x.files(p) {
		for c := range f.Preorder((*ast.FuncDecl)(nil), (*ast.GenDecl)(nil)) {
			switch n := c.Node().(type) {
			case *ast.FuncDecl:
				if key, ok := x.addFunc(p, n); ok {
					x.addLiterals(p, c, key)
				}

			case *ast.GenDecl:
				if n.Tok == token.TYPE {
					x.addTypes(p, n)
				}
			}
		}
	}
}

func (x *Index) addFunc(p Package, fd *ast.FuncDecl) (symbol.Key, bool) {
	fn, ok := p.Info.Defs[fd.Name].(*types.Func)
	if !ok || fd.Name.Name == "_" {
		return "", false
	}

	sig := fn.Signature()
	d := &decl{
		Decl: symbol.Decl{
			Key:          funcKey(fn),
			Name:         fn.Name(),
			Kind:         symbol.Function,
			Owner:        symbol.Key(p.Types.Path()),
			OwnerName:    p.Types.Name(),
			Namespace:    p.Types.Path(),
			ContextAware: acceptsContext(sig),
		},
		sig:        sig,
		typ:        fd.Type,
		body:       fd.Body,
		directives: parseDirectives(fd.Doc),
	}

	if recv := sig.Recv(); recv != nil {
		named, ok := namedOf(recv.Type())
		if !ok {
			return "", false
		}

		d.Kind = symbol.Method
		d.Owner, d.OwnerName = typeKey(named.Obj()), named.Obj().Name()
	}

	if fd.Body != nil {
		d.Exclusive = exclusive(p.Info, fd.Body)
	}

	x.funcs[d.Key] = fn
	x.nodes[fd] = d.Key
	x.add(p, d)

	return d.Key, true
}

// addLiterals registers the function literals inside the declaration at c.
// Literals are numbered per enclosing declaration in source order.
func (x *Index) addLiterals(p Package, c inspector.Cursor, key symbol.Key) {
	counts := make(map[symbol.Key]int)

	for lc := range c.Preorder((*ast.FuncLit)(nil)) {
		lit := lc.Node().(*ast.FuncLit)

		parent := key
		for e := range lc.Parent().Enclosing((*ast.FuncLit)(nil)) {
			if k, ok := x.nodes[e.Node()]; ok {
				parent = k
			}

			break
		}

		sig, ok := p.Info.TypeOf(lit).(*types.Signature)
		if !ok {
			continue
		}

		pd := x.decls[parent]
		counts[parent]++
		n := counts[parent]

		d := &decl{
			Decl: symbol.Decl{
				Key:          symbol.Key(fmt.Sprintf("%s$%d", parent, n)),
				Name:         fmt.Sprintf("%s$%d", pd.Name, n),
				Kind:         symbol.Literal,
				Owner:        pd.Owner,
				OwnerName:    pd.OwnerName,
				Namespace:    pd.Namespace,
				Parent:       parent,
				ContextAware: acceptsContext(sig),
				Exclusive:    exclusive(p.Info, lit.Body),
			},
			sig:  sig,
			typ:  lit.Type,
			body: lit.Body,
		}

		x.nodes[lit] = d.Key
		x.add(p, d)
	}
}

// addTypes registers interface methods and type directives.
func (x *Index) addTypes(p Package, gd *ast.GenDecl) {
	for _, spec := range gd.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		tn, ok := p.Info.Defs[ts.Name].(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}

		doc := ts.Doc
		if doc == nil && len(gd.Specs) == 1 {
			doc = gd.Doc
		}

		owner := typeKey(tn)
		if pin := parseDirectives(doc).typePin; pin != policy.TypeUnpinned {
			x.typePins[owner] = pin
		}

		it, ok := ts.Type.(*ast.InterfaceType)
		if !ok {
			continue
		}

		for _, field := range it.Methods.List {
			if len(field.Names) == 0 {
				continue // embedded
			}

			fn, ok := p.Info.Defs[field.Names[0]].(*types.Func)
			if !ok {
				continue
			}

			d := &decl{
				Decl: symbol.Decl{
					Key:          funcKey(fn),
					Name:         fn.Name(),
					Kind:         symbol.InterfaceMethod,
					Owner:        owner,
					OwnerName:    tn.Name(),
					Namespace:    p.Types.Path(),
					ContextAware: acceptsContext(fn.Signature()),
				},
				sig:        fn.Signature(),
				directives: parseDirectives(field.Doc),
			}

			x.funcs[d.Key] = fn
			x.add(p, d)
		}
	}
}

func (x *Index) add(p Package, d *decl) {
	if _, ok := x.decls[d.Key]; ok {
		return
	}

	if d.body != nil {
		d.shape, d.defers = x.shape(p.Info, d.body)
		d.flow = flow.New(p.Info, d.typ, d.body)
	}

	for _, err := range d.directives.errs {
		x.log.Warn("Invalid directive", zap.String("decl", string(d.Key)), zap.Error(err))
	}

	x.decls[d.Key] = d
	x.order = append(x.order, d.Key)
}

// typeKey returns the owner key of a named type.
func typeKey(tn *types.TypeName) symbol.Key {
	if tn.Pkg() == nil {
		return symbol.Key(tn.Name())
	}

	return symbol.Key(tn.Pkg().Path() + "." + tn.Name())
}

// namedOf returns the named type of t, dereferencing pointers.
func namedOf(t types.Type) (*types.Named, bool) {
	if ptr, ok := types.Unalias(t).(*types.Pointer); ok {
		t = ptr.Elem()
	}

	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, false
	}

	return named.Origin(), true
}

// isContext reports whether t is [context.Context].
func isContext(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}

	obj := named.Obj()

	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}

// acceptsContext reports whether the first parameter of sig is a [context.Context].
func acceptsContext(sig *types.Signature) bool {
	return sig.Params().Len() > 0 && isContext(sig.Params().At(0).Type())
}

// exclusive reports whether body starts by acquiring a [sync.Mutex] or [sync.RWMutex].
func exclusive(info *types.Info, body *ast.BlockStmt) bool {
	if body == nil || len(body.List) == 0 {
		return false
	}

	stmt, ok := body.List[0].(*ast.ExprStmt)
	if !ok {
		return false
	}

	call, ok := stmt.X.(*ast.CallExpr)
	if !ok {
		return false
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}

	fn, ok := info.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != "sync" {
		return false
	}

	return fn.Name() == "Lock" || fn.Name() == "RLock"
}
