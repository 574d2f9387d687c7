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

// Command asyncplan loads Go packages and prints which declarations get an
// asynchronous counterpart. Decisions can be stored in SQLite and exported
// to Neo4j.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"fillmore-labs.com/asyncplan/internal/config"
	"fillmore-labs.com/asyncplan/internal/engine"
	"fillmore-labs.com/asyncplan/internal/gosrc"
	"fillmore-labs.com/asyncplan/internal/graph"
	"fillmore-labs.com/asyncplan/internal/neo4jexport"
	"fillmore-labs.com/asyncplan/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "asyncplan:", err)
		}

		stop()
		os.Exit(1)
	}
}

type options struct {
	dir         string
	sqlite      string
	neo4jURI    string
	neo4jUser   string
	neo4jPass   string
	clean       bool
	verbose     bool
	concurrency int
	behavior    config.Behavior
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	o := &options{behavior: config.DefaultBehavior()}

	fs := flag.NewFlagSet("asyncplan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.dir, "dir", ".", "directory to load packages from")
	fs.StringVar(&o.sqlite, "sqlite", "", "write decisions to this SQLite database")
	fs.StringVar(&o.neo4jURI, "neo4j-uri", "", "export the declaration graph to this Neo4j bolt URI")
	fs.StringVar(&o.neo4jUser, "neo4j-user", "neo4j", "Neo4j username")
	fs.StringVar(&o.neo4jPass, "neo4j-pass", "", "Neo4j password")
	fs.BoolVar(&o.clean, "clean", false, "remove previously exported Neo4j data")
	fs.BoolVar(&o.verbose, "v", false, "log progress")
	fs.IntVar(&o.concurrency, "concurrency", 0, "concurrent graph building, 0 uses GOMAXPROCS")

	behavior := []struct {
		flag  config.Flag
		usage string
	}{
		{config.IncludeGenerated, "analyze generated files"},
		{config.ScanAllBodies, "scan every function body"},
		{config.UseCancellation, "thread a context through counterparts"},
		{config.ScanMissing, "plan counterparts missing from interface implementations"},
		{config.PreserveReturnType, "keep declared results where possible"},
		{config.CallForwarding, "forward to the synchronous declaration when nothing converts"},
	}
	for _, b := range behavior {
		fs.BoolFunc(b.flag.String(), b.usage, func(s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}

			o.behavior.Set(b.flag, v)

			return nil
		})
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	patterns := fs.Args()
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	return o, patterns, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, patterns, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if o.verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	engine.SetLogger(log)

	pkgs, err := load(ctx, o.dir, patterns)
	if err != nil {
		return err
	}

	log.Info("Loaded packages", zap.Int("packages", len(pkgs)))

	x := gosrc.New(pkgs[0].Fset, sources(pkgs), gosrc.Options{
		IncludeGenerated: o.behavior.Enabled(config.IncludeGenerated),
		Logger:           log.Named("gosrc"),
	})

	res, err := engine.Run(ctx, x, x.Policies(), engine.Options{
		Behavior:    o.behavior,
		Concurrency: o.concurrency,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	if err := printDecisions(stdout, res.Graph); err != nil {
		return err
	}

	if o.sqlite != "" {
		if err := store.Save(ctx, o.sqlite, res.Graph, res.Diagnostics); err != nil {
			return err
		}

		log.Info("Stored decisions", zap.String("path", o.sqlite))
	}

	if o.neo4jURI != "" {
		if err := export(ctx, o, res.Graph, log); err != nil {
			return err
		}
	}

	return nil
}

func load(ctx context.Context, dir string, patterns []string) ([]*packages.Package, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedImports |
			packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	if n := packages.PrintErrors(pkgs); n > 0 {
		return nil, fmt.Errorf("load packages: %d errors", n)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages matching %v", patterns)
	}

	return pkgs, nil
}

func sources(pkgs []*packages.Package) []gosrc.Package {
	src := make([]gosrc.Package, 0, len(pkgs))
	for _, p := range pkgs {
		src = append(src, gosrc.Package{Types: p.Types, Info: p.TypesInfo, Files: p.Syntax})
	}

	return src
}

func export(ctx context.Context, o *options, g *graph.Graph, log *zap.Logger) (err error) {
	d, err := neo4jexport.Connect(ctx, o.neo4jURI, o.neo4jUser, o.neo4jPass)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := d.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	e := neo4jexport.New(d, neo4jexport.Options{Clean: o.clean, Logger: log.Named("neo4j")})

	return e.Export(ctx, g)
}
