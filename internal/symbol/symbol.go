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

package symbol

// Key is the stable identity of a declaration.
type Key string

// Kind classifies a function-like declaration.
type Kind uint8

const (
	// Function is a package-level function.
	Function Kind = iota

	// Method is a method with a concrete receiver.
	Method

	// InterfaceMethod is a method declared by an interface type.
	InterfaceMethod

	// Literal is a function literal.
	Literal
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case Function:
		return "func"
	case Method:
		return "method"
	case InterfaceMethod:
		return "interface method"
	case Literal:
		return "func literal"
	default:
		return "unknown"
	}
}

// Decl describes a function-like declaration.
type Decl struct {
	Key       Key
	Name      string
	Kind      Kind
	Owner     Key    // owning type, or the package for functions
	OwnerName string // human-readable owner name
	Namespace string // package path
	Parent    Key    // enclosing declaration of a literal

	// Exclusive marks bodies that run under an exclusive lock.
	Exclusive bool

	// ContextAware marks declarations that already accept a context.
	ContextAware bool
}

// Cancellation describes whether a counterpart accepts a cancellation argument.
type Cancellation uint8

const (
	// CancellationNone means the counterpart takes no cancellation argument.
	CancellationNone Cancellation = iota

	// CancellationOptional means the cancellation argument may be omitted.
	CancellationOptional

	// CancellationRequired means the cancellation argument must be passed.
	CancellationRequired
)

// Counterpart is the asynchronous form of a declaration.
type Counterpart struct {
	Key          Key
	Name         string
	Cancellation Cancellation

	// ReturnsFuture is true when the result is itself a deferred value.
	ReturnsFuture bool

	// ReturnsVoid is true when the counterpart has no result besides an error.
	ReturnsVoid bool
}

// SiteContext describes how a declaration is referenced at a site.
type SiteContext uint8

const (
	// Invocation is a direct call.
	Invocation SiteContext = iota

	// Value is a reference passed or stored as a value.
	Value

	// NameReference is a non-invoking reference with ambiguous candidates.
	NameReference

	// Documentation is a reference inside a doc comment.
	Documentation
)

// String returns a short name for the site context.
func (c SiteContext) String() string {
	switch c {
	case Invocation:
		return "invocation"
	case Value:
		return "value"
	case NameReference:
		return "name reference"
	case Documentation:
		return "documentation"
	default:
		return "unknown"
	}
}

// Site is one reference location of a declaration.
type Site struct {
	ID         string // unique per location
	Callee     Key
	Candidates []Key // for NameReference contexts
	Enclosing  Key   // empty when the location cannot be mapped
	Context    SiteContext
	Pos        int // ordering within the enclosing body

	// Stmt is the index of the enclosing top-level body statement, -1 if none.
	Stmt int

	// ArgumentOf is set when the site is an argument of another invocation.
	ArgumentOf bool

	// Call is the ID of the invocation site taking this argument, if known.
	Call string

	LastCall         bool // nothing executes after this call in its scope
	ReturnedDirectly bool // the call is the returned expression
	Assigned         bool // the result is assigned to a variable
	Guarded          bool // inside a region that must release before returning

	// ResultCompatible reports whether the callee result matches the enclosing result.
	ResultCompatible bool
}

// StmtKind classifies a top-level body statement.
type StmtKind uint8

const (
	// OtherStmt is any statement not covered below.
	OtherStmt StmtKind = iota

	// ReturnStmt is a return statement.
	ReturnStmt

	// ExprStmt is an expression statement.
	ExprStmt

	// PanicStmt raises a panic.
	PanicStmt
)

// Stmt is a top-level statement of a function body.
type Stmt struct {
	Kind  StmtKind
	Pos   int
	End   int
	Calls int // invocations, excluding those of nested literals

	// Literal is true for return statements that only return constants.
	Literal bool

	// Node is the resolver's syntax node, passed to policies.
	Node any
}

// Body is the shape of a function body.
type Body struct {
	Stmts []Stmt
}

// StmtAt returns the index of the top-level statement containing pos, or -1.
func (b Body) StmtAt(pos int) int {
	for i, s := range b.Stmts {
		if s.Pos <= pos && pos < s.End {
			return i
		}
	}

	return -1
}

// Missing is an asynchronous member that is declared but has no source form.
type Missing struct {
	Sync        Key // synchronous declaration that will be generated
	Counterpart Counterpart
}
