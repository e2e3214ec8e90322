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

// Package transport defines the wire contract between the Execution
// Adapter and the network/connection collaborator that this core
// treats as an external dependency. It names the two send shapes the
// backend's extended-query and simple-query protocols require; it does
// not implement either one.
package transport

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mdpgx/pgexec/paramsbuf"
)

// Result is the minimal outcome the Execution Adapter needs back from a
// send: how many rows the command reported affected, and the decoded
// row values if any. Cursor navigation over Rows is a separate,
// out-of-scope collaborator; Result.Rows exists only far enough to let
// this core's round-trip tests exercise the typecast contract below.
type Result struct {
	CommandTag   string
	RowsAffected int64
	Rows         [][]any
}

// Transport is the collaborator the Execution Adapter hands a rewritten
// query (and, on the typed path, a populated parameter buffer) to.
type Transport interface {
	// SendSimple submits sql as a simple-query-protocol string, with no
	// typed parameters.
	SendSimple(ctx context.Context, sql string, async bool) (Result, error)
	// SendTyped submits sql via the extended-query protocol with the
	// parallel parameter arrays in buf (type_oid[], bytes[], length[],
	// format[]), matching the PQexecParams wire shape.
	SendTyped(ctx context.Context, sql string, buf *paramsbuf.Buffer, async bool) (Result, error)
}

// TypecastMap is the result-decoding collaborator's contract: a
// typecast function keyed by column type oid, with a textual fallback
// when no typecast is registered for a given oid. It is backed by
// pgx's pgtype.Map, which already implements exactly this keyed
// lookup; this core adds nothing beyond naming the contract.
type TypecastMap struct {
	pg *pgtype.Map
}

// NewTypecastMap returns a TypecastMap backed by pgx's default type map.
func NewTypecastMap() *TypecastMap {
	return &TypecastMap{pg: pgtype.NewMap()}
}

// Decode decodes a column's wire bytes into dest using the oid/format
// registered for it, falling back to the textual representation if no
// binary typecast is registered and format is text.
func (t *TypecastMap) Decode(oid uint32, format int16, src []byte, dest interface{}) error {
	return t.pg.Scan(oid, format, src, dest)
}
