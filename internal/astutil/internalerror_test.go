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

package astutil_test

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"golang.org/x/tools/go/analysis"

	. "fillmore-labs.com/asyncplan/internal/astutil"
)

func TestInternalError(t *testing.T) {
	t.Parallel()

	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, "test.go", "package test\n", 0)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var got []analysis.Diagnostic

	p := &analysis.Pass{
		Fset:   fset,
		Files:  []*ast.File{f},
		Report: func(d analysis.Diagnostic) { got = append(got, d) },
	}

	if !InternalError(p, errors.New("broken invariant")) {
		t.Fatal("No diagnostic reported")
	}

	if len(got) != 1 || got[0].Pos != f.Package || got[0].Category != "internal" ||
		!strings.Contains(got[0].Message, "broken invariant") {
		t.Errorf("Got diagnostics %+v", got)
	}

	if InternalError(&analysis.Pass{}, errors.New("no files")) {
		t.Error("Reported without files")
	}
}
