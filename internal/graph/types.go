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

import "fillmore-labs.com/asyncplan/internal/symbol"

// TypeState is the conversion state of a [TypeNode].
type TypeState uint8

const (
	// TypeUnknown types derive their state from their members.
	TypeUnknown TypeState = iota

	// TypeNewType types are regenerated as a new type.
	TypeNewType

	// TypeCopy types are copied verbatim.
	TypeCopy

	// TypePartial types are partially regenerated.
	TypePartial

	// TypeIgnore types are left out.
	TypeIgnore
)

// String returns the name of the state.
func (s TypeState) String() string {
	switch s {
	case TypeUnknown:
		return "unknown"
	case TypeNewType:
		return "new"
	case TypeCopy:
		return "copy"
	case TypePartial:
		return "partial"
	case TypeIgnore:
		return "ignore"
	default:
		return "invalid"
	}
}

// TypeNode aggregates the functions of one named type, or the package-level
// functions of a package. Function-local types are not modeled; their
// methods belong to the enclosing package.
type TypeNode struct {
	Key       symbol.Key
	Name      string
	Namespace *NamespaceNode

	State        TypeState
	IgnoreReason string

	Functions []*FunctionNode
}

// Regenerated reports whether the type is regenerated as a new type.
func (t *TypeNode) Regenerated() bool { return t.State == TypeNewType }

// NamespaceState is the conversion state of a [NamespaceNode].
type NamespaceState uint8

const (
	// NamespaceUnknown namespaces derive their state from their types.
	NamespaceUnknown NamespaceState = iota

	// NamespaceGenerate namespaces are generated.
	NamespaceGenerate

	// NamespaceIgnore namespaces are left out.
	NamespaceIgnore
)

// String returns the name of the state.
func (s NamespaceState) String() string {
	switch s {
	case NamespaceUnknown:
		return "unknown"
	case NamespaceGenerate:
		return "generate"
	case NamespaceIgnore:
		return "ignore"
	default:
		return "invalid"
	}
}

// NamespaceNode aggregates the types of one package.
type NamespaceNode struct {
	Path         string
	State        NamespaceState
	IgnoreReason string

	Types []*TypeNode
}
