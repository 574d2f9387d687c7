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

// Package store persists finalized decisions in a SQLite database for the
// downstream transformer.
package store

import (
	"context"
	"fmt"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"fillmore-labs.com/asyncplan/internal/graph"
)

const schema = `
CREATE TABLE functions (
    key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    owner TEXT NOT NULL,
    namespace TEXT NOT NULL,
    state TEXT NOT NULL,
    ignore_reason TEXT,
    missing INTEGER NOT NULL,
    explicitly_excluded INTEGER NOT NULL,
    cancellation_required INTEGER NOT NULL,
    cancellation TEXT,
    omit_suspend INTEGER NOT NULL,
    split_tail INTEGER NOT NULL,
    preconditions INTEGER NOT NULL,
    wrap_guarded INTEGER NOT NULL,
    forward_call INTEGER NOT NULL,
    preserve_return_type INTEGER NOT NULL,
    faulted INTEGER NOT NULL
);

CREATE TABLE refs (
    caller TEXT NOT NULL,
    site TEXT NOT NULL,
    pos INTEGER NOT NULL,
    context TEXT NOT NULL,
    callee TEXT,
    counterpart TEXT,
    conversion TEXT NOT NULL,
    requires_suspension INTEGER NOT NULL,
    used_as_return_value INTEGER NOT NULL,
    passes_cancellation INTEGER NOT NULL,
    PRIMARY KEY (caller, site)
);

CREATE TABLE related (
    set_key TEXT NOT NULL,
    member TEXT NOT NULL PRIMARY KEY
);

CREATE TABLE types (
    key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    namespace TEXT NOT NULL,
    state TEXT NOT NULL,
    ignore_reason TEXT
);

CREATE TABLE namespaces (
    path TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    ignore_reason TEXT
);

CREATE TABLE diagnostics (
    seq INTEGER PRIMARY KEY,
    key TEXT NOT NULL,
    level TEXT NOT NULL,
    message TEXT NOT NULL
);
`

// Save writes g and diags to a new database at path, replacing any existing file.
func Save(ctx context.Context, path string, g *graph.Graph, diags []graph.Diagnostic) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return Write(ctx, conn, g, diags)
}

// Write creates the schema on conn and inserts g and diags in one transaction.
func Write(ctx context.Context, conn *sqlite.Conn, g *graph.Graph, diags []graph.Diagnostic) (err error) {
	conn.SetInterrupt(ctx.Done())
	defer conn.SetInterrupt(nil)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	if err := insertFunctions(conn, g); err != nil {
		return err
	}

	if err := insertReferences(conn, g); err != nil {
		return err
	}

	if err := insertRelated(conn, g); err != nil {
		return err
	}

	if err := insertTypes(conn, g); err != nil {
		return err
	}

	return insertDiagnostics(conn, diags)
}

func insertFunctions(conn *sqlite.Conn, g *graph.Graph) error {
	stmt, err := conn.Prepare(`INSERT INTO functions (key, name, kind, owner, namespace, state, ignore_reason,
		missing, explicitly_excluded, cancellation_required, cancellation, omit_suspend, split_tail,
		preconditions, wrap_guarded, forward_call, preserve_return_type, faulted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare function insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range g.Functions() {
		stmt.BindText(1, string(n.Key))
		stmt.BindText(2, n.Decl.Name)
		stmt.BindText(3, n.Decl.Kind.String())
		stmt.BindText(4, string(n.Decl.Owner))
		stmt.BindText(5, n.Decl.Namespace)
		stmt.BindText(6, n.State.String())
		bindTextOrNull(stmt, 7, n.IgnoreReason)
		stmt.BindBool(8, n.Missing)
		stmt.BindBool(9, n.ExplicitlyExcluded)
		stmt.BindBool(10, n.CancellationRequired)

		if n.CancellationRequired {
			stmt.BindText(11, n.Cancellation.String())
		} else {
			stmt.BindNull(11)
		}

		stmt.BindBool(12, n.OmitSuspendKeyword)
		stmt.BindBool(13, n.SplitTail)
		stmt.BindInt64(14, int64(len(n.Preconditions)))
		stmt.BindBool(15, n.WrapGuarded)
		stmt.BindBool(16, n.ForwardCall)
		stmt.BindBool(17, n.PreserveReturnType)
		stmt.BindBool(18, n.Faulted)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert function %s: %w", n.Key, err)
		}

		_ = stmt.Reset()
	}

	return nil
}

func insertReferences(conn *sqlite.Conn, g *graph.Graph) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO refs (caller, site, pos, context, callee, counterpart,
		conversion, requires_suspension, used_as_return_value, passes_cancellation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare reference insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range g.Functions() {
		for _, r := range n.References {
			stmt.BindText(1, string(n.Key))
			stmt.BindText(2, r.Site.ID)
			stmt.BindInt64(3, int64(r.Site.Pos))
			stmt.BindText(4, r.Site.Context.String())

			if r.Callee != nil {
				stmt.BindText(5, string(r.Callee.Key))
			} else {
				bindTextOrNull(stmt, 5, string(r.CounterpartKey))
			}

			if r.Counterpart != nil {
				stmt.BindText(6, string(r.Counterpart.Key))
			} else {
				stmt.BindNull(6)
			}

			stmt.BindText(7, r.Conversion().String())
			stmt.BindBool(8, r.RequiresSuspension)
			stmt.BindBool(9, r.UsedAsReturnValue)
			stmt.BindBool(10, r.PassesCancellation)

			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert reference %s: %w", r.Site.ID, err)
			}

			_ = stmt.Reset()
		}
	}

	return nil
}

func insertRelated(conn *sqlite.Conn, g *graph.Graph) error {
	stmt, err := conn.Prepare(`INSERT INTO related (set_key, member) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare related insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range g.Functions() {
		members := n.Set().Members()
		if len(members) == 0 || members[0] != n {
			continue
		}

		for _, m := range members {
			stmt.BindText(1, string(n.Key))
			stmt.BindText(2, string(m.Key))

			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert related %s: %w", m.Key, err)
			}

			_ = stmt.Reset()
		}
	}

	return nil
}

func insertTypes(conn *sqlite.Conn, g *graph.Graph) error {
	stmt, err := conn.Prepare(`INSERT INTO types (key, name, namespace, state, ignore_reason) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare type insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, t := range g.Types() {
		stmt.BindText(1, string(t.Key))
		stmt.BindText(2, t.Name)
		stmt.BindText(3, t.Namespace.Path)
		stmt.BindText(4, t.State.String())
		bindTextOrNull(stmt, 5, t.IgnoreReason)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert type %s: %w", t.Key, err)
		}

		_ = stmt.Reset()
	}

	for _, ns := range g.Namespaces() {
		if err := sqlitex.Execute(conn, `INSERT INTO namespaces (path, state, ignore_reason) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{ns.Path, ns.State.String(), nullable(ns.IgnoreReason)}}); err != nil {
			return fmt.Errorf("insert namespace %s: %w", ns.Path, err)
		}
	}

	return nil
}

func insertDiagnostics(conn *sqlite.Conn, diags []graph.Diagnostic) error {
	stmt, err := conn.Prepare(`INSERT INTO diagnostics (seq, key, level, message) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare diagnostic insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, d := range diags {
		stmt.BindInt64(1, int64(i))
		stmt.BindText(2, string(d.Key))
		stmt.BindText(3, d.Level.String())
		stmt.BindText(4, d.Message)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert diagnostic %d: %w", i, err)
		}

		_ = stmt.Reset()
	}

	return nil
}

func bindTextOrNull(stmt *sqlite.Stmt, col int, s string) {
	if s == "" {
		stmt.BindNull(col)
	} else {
		stmt.BindText(col, s)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
