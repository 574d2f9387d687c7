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
	"strings"

	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

const directivePrefix = "//asyncplan:"

// directives are the //asyncplan: comments of a declaration.
//
//	//asyncplan:async         convert
//	//asyncplan:ignore        exclude (declaration or type)
//	//asyncplan:copy          keep verbatim
//	//asyncplan:none          decide without scanning the body
//	//asyncplan:new           regenerate the type as a new type
//	//asyncplan:cancel=flags  require cancellation, generated with flags
//	//asyncplan:nocancel      never require cancellation
type directives struct {
	pin      policy.Pin
	pinned   bool
	typePin  policy.TypePin
	cancel   policy.Cancellation
	required *bool
	errs     []error
}

func parseDirectives(doc *ast.CommentGroup) directives {
	var d directives
	if doc == nil {
		return d
	}

	for _, c := range doc.List {
		text, ok := strings.CutPrefix(c.Text, directivePrefix)
		if !ok {
			continue
		}

		name, arg, _ := strings.Cut(strings.TrimSpace(text), "=")
		switch name {
		case "async":
			d.pin, d.pinned = policy.PinAsync, true

		case "ignore":
			d.pin, d.pinned = policy.PinIgnore, true
			d.typePin = policy.TypeIgnored

		case "copy":
			d.pin, d.pinned = policy.PinCopy, true

		case "none":
			d.pin, d.pinned = policy.PinNone, true

		case "new":
			d.typePin = policy.TypeNew

		case "cancel":
			flags, err := policy.ParseCancellation(arg)
			if err != nil {
				d.errs = append(d.errs, err)

				continue
			}

			required := true
			d.cancel, d.required = flags, &required

		case "nocancel":
			required := false
			d.required = &required

		default:
			d.errs = append(d.errs, fmt.Errorf("unknown directive %q", name))
		}
	}

	return d
}

// Policies returns the policies read from directives. Policies not covered
// by directives are left nil.
func (x *Index) Policies() policy.Policies {
	return policy.Policies{
		Conversion:    x,
		Cancellation:  x,
		Preconditions: x,
	}
}

// Pin implements [policy.ConversionPolicy].
func (x *Index) Pin(decl symbol.Decl) policy.Pin {
	if d, ok := x.decls[decl.Key]; ok && d.directives.pinned {
		return d.directives.pin
	}

	return policy.PinSmart
}

// TypePin implements [policy.ConversionPolicy].
func (x *Index) TypePin(owner symbol.Key) policy.TypePin { return x.typePins[owner] }

// RequiresCancellation implements [policy.CancellationPolicy].
func (x *Index) RequiresCancellation(decl symbol.Decl) (required, ok bool) {
	d, found := x.decls[decl.Key]
	if !found || d.directives.required == nil {
		return false, false
	}

	return *d.directives.required, true
}

// GenerationPolicy implements [policy.CancellationPolicy].
func (x *Index) GenerationPolicy(decl symbol.Decl) policy.Cancellation {
	if d, ok := x.decls[decl.Key]; ok && d.directives.cancel != 0 {
		return d.directives.cancel
	}

	return x.opts.Cancellation
}
