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

package graph

import (
	"fillmore-labs.com/asyncplan/internal/policy"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// Conversion is the decision for a [Reference].
type Conversion uint8

const (
	// Unresolved references depend on a pending callee.
	Unresolved Conversion = iota

	// ToAsync references call the asynchronous counterpart.
	ToAsync

	// Keep references stay synchronous.
	Keep
)

// String returns the name of the conversion.
func (c Conversion) String() string {
	switch c {
	case Unresolved:
		return "unresolved"
	case ToAsync:
		return "async"
	case Keep:
		return "ignore"
	default:
		return "unknown"
	}
}

// Reference is a directed edge from a caller to a callee at one site.
type Reference struct {
	Caller *FunctionNode
	Callee *FunctionNode // nil for declarations outside the graph
	Site   symbol.Site

	// Candidates are the nodes of an ambiguous name reference.
	Candidates []*FunctionNode

	// Counterpart of an external callee.
	Counterpart    *symbol.Counterpart
	CounterpartKey symbol.Key // lookup key, retried when Counterpart is nil

	ignoreReason string

	RequiresSuspension bool
	UsedAsReturnValue  bool
	PassesCancellation bool
}

// IsArgument reports whether the callee is passed as a value.
func (r *Reference) IsArgument() bool {
	return r.Site.Context == symbol.Value || r.Site.ArgumentOf
}

// IsLastCall reports whether nothing executes after the call in its scope.
func (r *Reference) IsLastCall() bool { return r.Site.LastCall }

// Generating reports whether the reference produces code.
func (r *Reference) Generating() bool { return r.Site.Context != symbol.Documentation }

// Refers reports whether the reference points to n.
func (r *Reference) Refers(n *FunctionNode) bool {
	if r.Callee == n {
		return true
	}

	for _, c := range r.Candidates {
		if c == n {
			return true
		}
	}

	return false
}

// Ignore pins the reference to stay synchronous.
func (r *Reference) Ignore(reason string) { r.ignoreReason = reason }

// IgnoreReason returns why the reference was pinned, or the empty string.
func (r *Reference) IgnoreReason() string { return r.ignoreReason }

// Arguments returns the references of the caller passed as arguments to r.
func (r *Reference) Arguments() []*Reference {
	var args []*Reference

	for _, a := range r.Caller.References {
		if a.Site.ArgumentOf && a.Site.Call != "" && a.Site.Call == r.Site.ID {
			args = append(args, a)
		}
	}

	return args
}

// Conversion derives the reference decision from the callee.
func (r *Reference) Conversion() Conversion {
	if r.ignoreReason != "" {
		return Keep
	}

	if len(r.Candidates) > 0 {
		result := Keep
		for _, c := range r.Candidates {
			switch c.State {
			case Async:
				return ToAsync
			case Pending:
				result = Unresolved
			}
		}

		return result
	}

	if r.Callee != nil {
		switch r.Callee.State {
		case Async:
			return ToAsync
		case Pending:
			return Unresolved
		default:
			return Keep
		}
	}

	if r.Counterpart != nil {
		return ToAsync
	}

	return Keep
}

// Converts reports whether the reference will call an asynchronous counterpart.
func (r *Reference) Converts() bool {
	return r.Generating() && r.Conversion() == ToAsync
}

// CalleeCancellation returns how the asynchronous callee accepts cancellation.
func (r *Reference) CalleeCancellation() symbol.Cancellation {
	if r.Callee != nil {
		if !r.Callee.CancellationRequired {
			return symbol.CancellationNone
		}

		if r.Callee.Cancellation.Has(policy.CancelOptional) {
			return symbol.CancellationOptional
		}

		return symbol.CancellationRequired
	}

	if r.Counterpart != nil {
		return r.Counterpart.Cancellation
	}

	return symbol.CancellationNone
}
