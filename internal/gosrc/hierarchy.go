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
	"go/types"
	"strings"

	"fillmore-labs.com/asyncplan/internal/symbol"
)

// hierarchy links interface methods to their implementations and embedded
// methods to the methods redeclaring them.
func (x *Index) hierarchy(pkgs []Package) {
	var ifaces, concretes []*types.Named

	for _, p := range pkgs {
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}

			named, ok := tn.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 {
				continue
			}

			if types.IsInterface(named) {
				ifaces = append(ifaces, named)
			} else {
				concretes = append(concretes, named)
			}
		}
	}

	for _, t := range concretes {
		ptr := types.NewPointer(t)

		for _, i := range ifaces {
			iface := i.Underlying().(*types.Interface)
			if iface.NumMethods() == 0 || !types.Implements(ptr, iface) {
				continue
			}

			x.implements(t, i, iface)
		}

		x.embedded(t)
	}
}

// implements links the methods of t to those of the interface i.
func (x *Index) implements(t, i *types.Named, iface *types.Interface) {
	ptr := types.NewPointer(t)

	for m := range iface.Methods() {
		mk := funcKey(m)
		if _, ok := x.decls[mk]; !ok {
			continue
		}

		obj, _, _ := types.LookupFieldOrMethod(ptr, false, m.Pkg(), m.Name())

		fn, ok := obj.(*types.Func)
		if !ok {
			continue
		}

		key := funcKey(fn)
		if _, ok := x.decls[key]; !ok {
			continue
		}

		appendUnique(x.impls, mk, key)
		appendUnique(x.implemented, key, mk)

		x.missingCounterpart(t, i, fn, m)
	}
}

// embedded links the methods of embedded types to the methods of t redeclaring them.
func (x *Index) embedded(t *types.Named) {
	st, ok := t.Underlying().(*types.Struct)
	if !ok {
		return
	}

	for field := range st.Fields() {
		if !field.Embedded() {
			continue
		}

		e, ok := namedOf(field.Type())
		if !ok {
			continue
		}

		for _, base := range declaredMethods(e) {
			bk := funcKey(base)
			if _, ok := x.decls[bk]; !ok {
				continue
			}

			obj, _, _ := types.LookupFieldOrMethod(types.NewPointer(t), false, base.Pkg(), base.Name())

			fn, ok := obj.(*types.Func)
			if !ok {
				continue
			}

			key := funcKey(fn)
			if key == bk {
				continue // promoted
			}

			if _, ok := x.decls[key]; !ok {
				continue
			}

			appendUnique(x.overrides, bk, key)
			x.overridden[key] = bk
		}
	}
}

// missingCounterpart records the asynchronous form of fn, when t redeclares
// fn but only inherits the counterpart the interface i demands.
func (x *Index) missingCounterpart(t, i *types.Named, fn, m *types.Func) {
	recv, ok := namedOf(fn.Signature().Recv().Type())
	if !ok || recv != t.Origin() {
		return
	}

	for _, suffix := range x.opts.Suffixes {
		name := m.Name() + suffix

		cm, _, _ := types.LookupFieldOrMethod(i, false, m.Pkg(), name)

		c, ok := cm.(*types.Func)
		if !ok {
			continue
		}

		obj, _, _ := types.LookupFieldOrMethod(types.NewPointer(t), false, m.Pkg(), name)

		impl, ok := obj.(*types.Func)
		if !ok {
			continue
		}

		if owner, ok := namedOf(impl.Signature().Recv().Type()); ok && owner == t.Origin() {
			return // declared
		}

		cp := counterpartOf(c)
		cp.Key = symbol.Key(strings.TrimSuffix(string(funcKey(fn)), fn.Name()) + name)
		x.missing = append(x.missing, symbol.Missing{Sync: funcKey(fn), Counterpart: cp})

		return
	}
}

// declaredMethods returns the methods declared by t. For interfaces these
// are the explicit methods.
func declaredMethods(t *types.Named) []*types.Func {
	if iface, ok := t.Underlying().(*types.Interface); ok {
		methods := make([]*types.Func, 0, iface.NumExplicitMethods())
		for i := range iface.NumExplicitMethods() {
			methods = append(methods, iface.ExplicitMethod(i))
		}

		return methods
	}

	methods := make([]*types.Func, 0, t.NumMethods())
	for i := range t.NumMethods() {
		methods = append(methods, t.Method(i))
	}

	return methods
}
