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

package store

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Decision is the stored outcome for one function.
type Decision struct {
	Key          string
	State        string
	IgnoreReason string
	Cancellation string
	OmitSuspend  bool
	SplitTail    bool
	WrapGuarded  bool
}

// Call is the stored outcome for one reference.
type Call struct {
	Caller             string
	Site               string
	Callee             string
	Conversion         string
	RequiresSuspension bool
	PassesCancellation bool
}

// Open opens an existing database read-only.
func Open(path string) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return conn, nil
}

// Decisions returns the stored decisions in key order.
func Decisions(ctx context.Context, conn *sqlite.Conn) ([]Decision, error) {
	conn.SetInterrupt(ctx.Done())
	defer conn.SetInterrupt(nil)

	var decisions []Decision

	err := sqlitex.Execute(conn,
		`SELECT key, state, ignore_reason, cancellation, omit_suspend, split_tail, wrap_guarded
		 FROM functions ORDER BY key`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				decisions = append(decisions, Decision{
					Key:          stmt.ColumnText(0),
					State:        stmt.ColumnText(1),
					IgnoreReason: stmt.ColumnText(2),
					Cancellation: stmt.ColumnText(3),
					OmitSuspend:  stmt.ColumnBool(4),
					SplitTail:    stmt.ColumnBool(5),
					WrapGuarded:  stmt.ColumnBool(6),
				})

				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}

	return decisions, nil
}

// Calls returns the stored references of caller in position order.
func Calls(ctx context.Context, conn *sqlite.Conn, caller string) ([]Call, error) {
	conn.SetInterrupt(ctx.Done())
	defer conn.SetInterrupt(nil)

	var calls []Call

	err := sqlitex.Execute(conn,
		`SELECT caller, site, callee, conversion, requires_suspension, passes_cancellation
		 FROM refs WHERE caller = ? ORDER BY pos, site`,
		&sqlitex.ExecOptions{
			Args: []any{caller},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				calls = append(calls, Call{
					Caller:             stmt.ColumnText(0),
					Site:               stmt.ColumnText(1),
					Callee:             stmt.ColumnText(2),
					Conversion:         stmt.ColumnText(3),
					RequiresSuspension: stmt.ColumnBool(4),
					PassesCancellation: stmt.ColumnBool(5),
				})

				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query calls of %s: %w", caller, err)
	}

	return calls, nil
}

// Related returns the members of the related set containing key, in key order.
func Related(ctx context.Context, conn *sqlite.Conn, key string) ([]string, error) {
	conn.SetInterrupt(ctx.Done())
	defer conn.SetInterrupt(nil)

	var members []string

	err := sqlitex.Execute(conn,
		`SELECT member FROM related
		 WHERE set_key = (SELECT set_key FROM related WHERE member = ?)
		 ORDER BY member`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				members = append(members, stmt.ColumnText(0))

				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query related of %s: %w", key, err)
	}

	return members, nil
}
