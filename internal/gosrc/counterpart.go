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

	"fillmore-labs.com/asyncplan/internal/symbol"
)

// counterpart finds the asynchronous form of fn in its scope.
func (x *Index) counterpart(fn *types.Func) (symbol.Counterpart, bool) {
	sig := fn.Signature()

	for _, suffix := range x.opts.Suffixes {
		name := fn.Name() + suffix

		var obj types.Object
		switch recv := sig.Recv(); {
		case recv != nil:
			obj, _, _ = types.LookupFieldOrMethod(recv.Type(), true, fn.Pkg(), name)

		case fn.Pkg() != nil:
			obj = fn.Pkg().Scope().Lookup(name)
		}

		if c, ok := obj.(*types.Func); ok {
			return counterpartOf(c), true
		}
	}

	return symbol.Counterpart{}, false
}

// counterpartOf describes the asynchronous function c.
func counterpartOf(c *types.Func) symbol.Counterpart {
	sig := c.Signature()

	cp := symbol.Counterpart{
		Key:         funcKey(c),
		Name:        c.Name(),
		ReturnsVoid: true,
	}

	if acceptsContext(sig) {
		cp.Cancellation = symbol.CancellationRequired
	}

	for v := range sig.Results().Variables() {
		if isError(v.Type()) {
			continue
		}

		cp.ReturnsVoid = false

		if _, ok := v.Type().Underlying().(*types.Chan); ok {
			cp.ReturnsFuture = true
		}
	}

	return cp
}

var errorType = types.Universe.Lookup("error").Type()

func isError(t types.Type) bool { return types.Identical(t, errorType) }
