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

// Package neo4jexport loads finalized decisions into Neo4j using batched
// UNWIND queries.
package neo4jexport

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"fillmore-labs.com/asyncplan/internal/graph"
)

// DefaultBatchSize is the number of rows sent per query.
const DefaultBatchSize = 1000

// Runner executes one Cypher statement.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// Driver is a [Runner] backed by a Neo4j driver.
type Driver struct {
	driver neo4j.DriverWithContext
}

// Connect creates a driver for uri and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string) (*Driver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)

		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}

	return &Driver{driver: driver}, nil
}

// Run implements [Runner].
func (d *Driver) Run(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, d.driver, cypher, params, neo4j.EagerResultTransformer)

	return err
}

// Close releases the underlying driver resources.
func (d *Driver) Close(ctx context.Context) error { return d.driver.Close(ctx) }

// Options configure an [Exporter].
type Options struct {
	// BatchSize limits the rows per query. Zero uses [DefaultBatchSize].
	BatchSize int

	// Clean removes previously exported data first.
	Clean bool

	Logger *zap.Logger
}

// Exporter writes a graph through a [Runner].
type Exporter struct {
	run  Runner
	opts Options
	log  *zap.Logger
}

// New creates an [Exporter].
func New(r Runner, opts Options) *Exporter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Exporter{run: r, opts: opts, log: log}
}

var cleanQueries = []string{
	"MATCH (n:AsyncNamespace) DETACH DELETE n",
	"MATCH (n:AsyncType) DETACH DELETE n",
	"MATCH (n:AsyncFunc) DETACH DELETE n",
}

var indexQueries = []string{
	"CREATE INDEX async_namespace_path IF NOT EXISTS FOR (n:AsyncNamespace) ON (n.path)",
	"CREATE INDEX async_type_key IF NOT EXISTS FOR (n:AsyncType) ON (n.key)",
	"CREATE INDEX async_func_key IF NOT EXISTS FOR (n:AsyncFunc) ON (n.key)",
}

const (
	namespaceQuery = `UNWIND $batch AS row
		MERGE (n:AsyncNamespace {path: row.path})
		SET n.state = row.state, n.ignore_reason = row.reason`

	typeQuery = `UNWIND $batch AS row
		MERGE (t:AsyncType {key: row.key})
		SET t.name = row.name, t.state = row.state, t.ignore_reason = row.reason
		WITH t, row
		MATCH (n:AsyncNamespace {path: row.namespace})
		MERGE (t)-[:IN_NAMESPACE]->(n)`

	functionQuery = `UNWIND $batch AS row
		MERGE (f:AsyncFunc {key: row.key})
		SET f.name = row.name, f.kind = row.kind, f.state = row.state,
		    f.ignore_reason = row.reason, f.cancellation = row.cancellation,
		    f.omit_suspend = row.omit_suspend, f.split_tail = row.split_tail,
		    f.wrap_guarded = row.wrap_guarded, f.forward_call = row.forward_call
		WITH f, row
		MATCH (t:AsyncType {key: row.owner})
		MERGE (t)-[:HAS_FUNC]->(f)`

	callQuery = `UNWIND $batch AS row
		MATCH (caller:AsyncFunc {key: row.caller})
		MERGE (callee:AsyncFunc {key: row.callee})
		MERGE (caller)-[r:CALLS {site: row.site}]->(callee)
		SET r.context = row.context, r.conversion = row.conversion,
		    r.requires_suspension = row.suspend, r.passes_cancellation = row.cancel`

	relatedQuery = `UNWIND $batch AS row
		MATCH (a:AsyncFunc {key: row.from}), (b:AsyncFunc {key: row.to})
		MERGE (a)-[:RELATED]->(b)`
)

// Export writes g.
func (e *Exporter) Export(ctx context.Context, g *graph.Graph) error {
	if e.opts.Clean {
		for _, q := range cleanQueries {
			if err := e.run.Run(ctx, q, nil); err != nil {
				return fmt.Errorf("clean: %w", err)
			}
		}
	}

	for _, q := range indexQueries {
		if err := e.run.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	batches := []struct {
		name  string
		query string
		rows  []map[string]any
	}{
		{"namespaces", namespaceQuery, NamespaceRows(g)},
		{"types", typeQuery, TypeRows(g)},
		{"functions", functionQuery, FunctionRows(g)},
		{"calls", callQuery, CallRows(g)},
		{"related", relatedQuery, RelatedRows(g)},
	}

	for _, b := range batches {
		e.log.Debug("Exporting", zap.String("kind", b.name), zap.Int("rows", len(b.rows)))

		if err := e.unwind(ctx, b.query, b.rows); err != nil {
			return fmt.Errorf("export %s: %w", b.name, err)
		}
	}

	return nil
}

// unwind runs query once per batch of rows.
func (e *Exporter) unwind(ctx context.Context, query string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += e.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+e.opts.BatchSize, len(rows))
		if err := e.run.Run(ctx, query, map[string]any{"batch": rows[start:end]}); err != nil {
			return err
		}
	}

	return nil
}
