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

// Package symbol defines the declaration model and the queries the decision
// engine needs from a symbol resolver.
package symbol

import "context"

// Resolver answers override, implementation and reference queries.
//
// Implementations must be safe for concurrent use.
type Resolver interface {
	// Decls returns all declarations of the analyzed source in stable order.
	Decls() []Key

	// Decl returns the declaration for key, if it is part of the analyzed source.
	Decl(key Key) (Decl, bool)

	// FindOverrides returns declarations overriding key.
	FindOverrides(ctx context.Context, key Key) ([]Key, error)

	// FindImplementations returns declarations implementing the interface method key.
	FindImplementations(ctx context.Context, key Key) ([]Key, error)

	// FindReferences returns every reference location of key.
	FindReferences(ctx context.Context, key Key) ([]Site, error)

	// CounterpartOf returns the asynchronous counterpart of key.
	CounterpartOf(key Key) (Counterpart, bool)

	// IsAbstractOrVirtual reports whether calls to key are dynamically dispatched.
	IsAbstractOrVirtual(key Key) bool

	// Implemented returns the interface methods key implements.
	Implemented(key Key) []Key

	// Overridden returns the declaration key overrides.
	Overridden(key Key) (Key, bool)

	// Calls returns the declarations invoked in the body of key.
	Calls(key Key) []Key

	// Body returns the statements of key.
	Body(key Key) (Body, bool)

	// Missing returns asynchronous members without a source form.
	Missing() []Missing
}
