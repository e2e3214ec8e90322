// Copyright 2025 The pgexec Authors.
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

// Package cursor is the Cursor Facade: the public surface a caller
// actually drives (execute, executemany, mogrify, close), sitting on
// top of the Execution Adapter.
package cursor

import (
	"context"

	"github.com/mdpgx/pgexec/exec"
	"github.com/mdpgx/pgexec/mogrify"
	"github.com/mdpgx/pgexec/pgerr"
	"github.com/mdpgx/pgexec/rewrite"
	"github.com/mdpgx/pgexec/transport"
)

// Cursor is a single client-side cursor bound to a connection. The
// zero value is not usable; construct one with New or NewNamed.
type Cursor struct {
	conn   *exec.Conn
	name   string // "" for an unnamed (ordinary) cursor
	closed bool

	// hasValidMark and executedOnce back the named-cursor preconditions:
	// a named cursor must be bound to a valid transaction mark before
	// its first execute, and may only be executed once.
	hasValidMark bool
	executedOnce bool

	LastQuery    string
	LastResult   transport.Result
	RowCount     int64
}

// New returns an ordinary, unnamed cursor on conn.
func New(conn *exec.Conn) *Cursor {
	return &Cursor{conn: conn}
}

// NewNamed returns a named, server-side cursor. It must be given a
// valid transaction mark with BindToTransactionMark before Execute is
// called.
func NewNamed(conn *exec.Conn, name string) *Cursor {
	return &Cursor{conn: conn, name: name}
}

// BindToTransactionMark records that this named cursor has been bound
// to a valid transaction savepoint/mark. Calling it on an unnamed
// cursor is a no-op (the precondition only applies to named cursors).
func (c *Cursor) BindToTransactionMark() {
	c.hasValidMark = true
}

func (c *Cursor) checkPreconditions() error {
	if c.closed {
		return pgerr.Programming("cursor already closed")
	}
	if c.conn.AsyncInFlight {
		return pgerr.Programming("an asynchronous operation is already in progress on this connection")
	}
	if c.conn.TwoPhasePending {
		return pgerr.Programming("a two-phase-commit transaction is pending on this connection")
	}
	if c.name != "" {
		if !c.conn.InTransaction {
			return pgerr.Programming("a named cursor can only be used inside a transaction")
		}
		if !c.hasValidMark {
			return pgerr.Programming("named cursor is not bound to a valid transaction mark")
		}
		if c.executedOnce {
			return pgerr.Programming("execute may be called at most once on a named cursor")
		}
	}
	return nil
}

// Execute runs sql with the given vars (use rewrite.NoVars() for none):
// SQL validation, then the query rewriter, and on refusal the textual
// fallback mogrifier.
func (c *Cursor) Execute(ctx context.Context, sql string, vars rewrite.Vars) error {
	return c.execute(ctx, sql, vars, false)
}

// ExecuteAsync is Execute with the async flag threaded through to the
// transport.
func (c *Cursor) ExecuteAsync(ctx context.Context, sql string, vars rewrite.Vars) error {
	return c.execute(ctx, sql, vars, true)
}

func (c *Cursor) execute(ctx context.Context, sql string, vars rewrite.Vars, async bool) error {
	if err := c.checkPreconditions(); err != nil {
		return err
	}

	c.LastResult = transport.Result{}
	c.LastQuery = ""

	query, result, err := exec.Execute(ctx, c.conn, sql, vars, c.name, async)
	c.LastQuery = query
	if c.name != "" {
		c.executedOnce = true
	}
	if err != nil {
		return err
	}

	c.LastResult = result
	c.RowCount = result.RowsAffected
	return nil
}

// ExecuteMany iterates varsList, calling Execute once per item and
// accumulating RowCount. It stops and returns the first error
// encountered.
func (c *Cursor) ExecuteMany(ctx context.Context, sql string, varsList []rewrite.Vars) error {
	var total int64
	for _, vars := range varsList {
		if err := c.Execute(ctx, sql, vars); err != nil {
			return err
		}
		total += c.RowCount
	}
	c.RowCount = total
	return nil
}

// Mogrify returns the fully substituted SQL that Execute would send on
// the textual-fallback path, without executing it.
func (c *Cursor) Mogrify(sql string, vars rewrite.Vars) (string, error) {
	if c.closed {
		return "", pgerr.Programming("cursor already closed")
	}
	return mogrify.Mogrify(sql, vars, c.conn)
}

// Close marks the cursor closed. Subsequent operations report
// programming-error.
func (c *Cursor) Close() {
	c.closed = true
}
