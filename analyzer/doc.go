// Copyright 2025-2026 Oliver Eikemeier. All Rights Reserved.
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

// Package analyzer implements the asyncplan static analysis pass.
//
// # Overview
//
// AsyncPlan decides which functions of a package need an asynchronous
// counterpart. A call to a function F that has a counterpart FContext
// converts its caller, and the conversion propagates to every caller,
// interface method and override of a converted function.
//
// # Example
//
//	func Read() string { ... }
//	func ReadContext(ctx context.Context) (string, error) { ... }
//
//	func Load() string { // Load gets an asynchronous counterpart requiring cancellation
//	    v := Read()
//	    return v
//	}
//
// # Directives
//
// Declarations are pinned with comments in their documentation:
//
//	//asyncplan:async         convert
//	//asyncplan:ignore        exclude (declaration or type)
//	//asyncplan:copy          keep verbatim
//	//asyncplan:none          decide without scanning the body
//	//asyncplan:new           regenerate the type as a new type
//	//asyncplan:cancel=flags  require cancellation, generated with flags
//	//asyncplan:nocancel      never require cancellation
//
// Diagnostics are suppressed with a //nolint:asyncplan comment on the line
// of the declaration.
package analyzer
