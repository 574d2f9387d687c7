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

// Package policy defines the pluggable decisions the engine delegates to its caller.
package policy

import "fillmore-labs.com/asyncplan/internal/symbol"

// Pin is a user-selected conversion for a declaration.
type Pin uint8

const (
	// PinNone leaves the decision to the engine without scanning the body.
	PinNone Pin = iota

	// PinSmart leaves the decision to the engine and scans the body.
	PinSmart

	// PinAsync forces the declaration to be converted.
	PinAsync

	// PinIgnore excludes the declaration.
	PinIgnore

	// PinCopy keeps the declaration verbatim.
	PinCopy
)

// String returns the directive name of the pin.
func (p Pin) String() string {
	switch p {
	case PinNone:
		return "none"
	case PinSmart:
		return "smart"
	case PinAsync:
		return "async"
	case PinIgnore:
		return "ignore"
	case PinCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// TypePin is a user-selected conversion for a type.
type TypePin uint8

const (
	// TypeUnpinned derives the type conversion from its members.
	TypeUnpinned TypePin = iota

	// TypeNew regenerates the type as a new type.
	TypeNew

	// TypeIgnored excludes the type and all its members.
	TypeIgnored
)

// ConversionPolicy pins declarations and types.
type ConversionPolicy interface {
	Pin(decl symbol.Decl) Pin
	TypePin(owner symbol.Key) TypePin
}

// CancellationPolicy decides cancellation parameters.
type CancellationPolicy interface {
	// RequiresCancellation overrides the computed requirement when ok is true.
	RequiresCancellation(decl symbol.Decl) (required, ok bool)

	// GenerationPolicy returns the flags used to generate the parameter.
	GenerationPolicy(decl symbol.Decl) Cancellation
}

// PreconditionClassifier recognizes guard statements.
type PreconditionClassifier interface {
	IsPrecondition(stmt symbol.Stmt) bool
}

// ForwardingPolicy decides whether trivially forwarding bodies call the synchronous form.
type ForwardingPolicy interface {
	ShouldForward(decl symbol.Decl) bool
}

// ReturnTypePolicy decides whether a declaration may keep its synchronous result type.
type ReturnTypePolicy interface {
	PreserveReturnType(decl symbol.Decl) bool
}

// Policies bundles all policies of a run.
type Policies struct {
	Conversion    ConversionPolicy
	Cancellation  CancellationPolicy
	Preconditions PreconditionClassifier
	Forwarding    ForwardingPolicy
	ReturnType    ReturnTypePolicy
}

// WithDefaults returns p with nil policies replaced by [Defaults].
func (p Policies) WithDefaults() Policies {
	var d Defaults

	if p.Conversion == nil {
		p.Conversion = d
	}

	if p.Cancellation == nil {
		p.Cancellation = d
	}

	if p.Preconditions == nil {
		p.Preconditions = d
	}

	if p.Forwarding == nil {
		p.Forwarding = d
	}

	if p.ReturnType == nil {
		p.ReturnType = d
	}

	return p
}

// Defaults implements every policy with neutral answers.
type Defaults struct {
	// Generation is returned by GenerationPolicy.
	Generation Cancellation
	// Forward is returned by ShouldForward.
	Forward bool
	// Preserve is returned by PreserveReturnType.
	Preserve bool
}

// Pin implements [ConversionPolicy].
func (Defaults) Pin(symbol.Decl) Pin { return PinSmart }

// TypePin implements [ConversionPolicy].
func (Defaults) TypePin(symbol.Key) TypePin { return TypeUnpinned }

// RequiresCancellation implements [CancellationPolicy].
func (Defaults) RequiresCancellation(symbol.Decl) (bool, bool) { return false, false }

// GenerationPolicy implements [CancellationPolicy].
func (d Defaults) GenerationPolicy(symbol.Decl) Cancellation {
	if d.Generation == 0 {
		return CancelRequired
	}

	return d.Generation
}

// IsPrecondition implements [PreconditionClassifier].
func (Defaults) IsPrecondition(symbol.Stmt) bool { return false }

// ShouldForward implements [ForwardingPolicy].
func (d Defaults) ShouldForward(symbol.Decl) bool { return d.Forward }

// PreserveReturnType implements [ReturnTypePolicy].
func (d Defaults) PreserveReturnType(symbol.Decl) bool { return d.Preserve }
