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

package run

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"runtime/trace"

	"go.uber.org/zap"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"fillmore-labs.com/asyncplan/internal/astutil"
	"fillmore-labs.com/asyncplan/internal/config"
	"fillmore-labs.com/asyncplan/internal/engine"
	"fillmore-labs.com/asyncplan/internal/gosrc"
	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/symbol"
)

// ErrResultMissing is returned when a required analyzer result is missing.
// This typically indicates a configuration error where the analyzer's
// Requires field is not properly set.
var ErrResultMissing = errors.New("analyzer result missing")

// Run executes the asyncplan analyzer's pipeline.
func (r *Options) Run(p *analysis.Pass) (any, error) {
	// Retrieves the [inspector.Inspector] from the pass results.
	in, ok := p.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("asyncplan: %s %w", inspect.Analyzer.Name, ErrResultMissing)
	}

	ctx := context.Background()

	ctx, task := trace.NewTask(ctx, "AsyncPlanPass")
	defer task.End()

	trace.Log(ctx, "package", p.Pkg.Path())

	log := engine.Logger().With(zap.String("package", p.Pkg.Path()))

	// Stage 1: index declarations, hierarchies and references of the package
	x := gosrc.New(p.Fset, []gosrc.Package{{
		Types:     p.Pkg,
		Info:      p.TypesInfo,
		Files:     p.Files,
		Inspector: in,
	}}, gosrc.Options{
		Suffixes:         r.Suffixes,
		IncludeGenerated: r.Behavior.Enabled(config.IncludeGenerated),
		Cancellation:     r.Cancellation,
		Logger:           log.Named("gosrc"),
	})

	// Stage 2: decide conversion states
	res, err := engine.Run(ctx, x, x.Policies(), engine.Options{
		Behavior:    r.Behavior,
		Concurrency: r.Concurrency,
		Logger:      log,
	})

	switch {
	case errors.Is(err, engine.ErrInvariant):
		astutil.InternalError(p, err)

		return nil, nil

	case err != nil:
		return nil, fmt.Errorf("asyncplan: %w", err)
	}

	// Stage 3: report decisions
	rp := reporter{pass: p, index: x}
	rp.decisions(res.Graph)
	rp.warnings(res.Diagnostics)

	return nil, nil
}

type reporter struct {
	pass  *analysis.Pass
	index *gosrc.Index
}

func (rp reporter) decisions(g *graph.Graph) {
	for _, n := range g.Functions() {
		if n.State != graph.Async {
			continue
		}

		pos, ok := rp.position(n.Key)
		if !ok {
			continue
		}

		msg := fmt.Sprintf("%s gets an asynchronous counterpart", displayName(n.Decl))
		if n.CancellationRequired {
			msg += " requiring cancellation"
		}

		rp.pass.Report(analysis.Diagnostic{Pos: pos, Message: msg})
	}
}

func (rp reporter) warnings(diags []graph.Diagnostic) {
	for _, d := range diags {
		if d.Level != graph.LevelWarning {
			continue
		}

		pos, ok := rp.position(d.Key)
		if !ok {
			continue
		}

		rp.pass.Report(analysis.Diagnostic{Pos: pos, Message: d.Message})
	}
}

// position returns the reportable position of key, honoring nolint comments.
func (rp reporter) position(key symbol.Key) (token.Pos, bool) {
	pos, ok := rp.index.Position(key)
	if !ok || !pos.IsValid() {
		return token.NoPos, false
	}

	file := fileOf(rp.pass.Files, pos)
	if file == nil {
		return token.NoPos, false
	}

	if astutil.NewCurrentFile(rp.pass.Fset, file).NoLintComment(pos) {
		return token.NoPos, false
	}

	return pos, true
}

func fileOf(files []*ast.File, pos token.Pos) *ast.File {
	for _, f := range files {
		if f.FileStart <= pos && pos <= f.FileEnd {
			return f
		}
	}

	return nil
}

func displayName(d symbol.Decl) string {
	switch d.Kind {
	case symbol.Method, symbol.InterfaceMethod:
		return d.OwnerName + "." + d.Name

	case symbol.Literal:
		return "Function literal"

	default:
		return d.Name
	}
}
