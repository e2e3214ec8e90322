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

package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdpgx/pgexec/encode"
	"github.com/mdpgx/pgexec/microprotocols"
	"github.com/mdpgx/pgexec/paramsbuf"
	"github.com/mdpgx/pgexec/rewrite"
	"github.com/mdpgx/pgexec/transport"
)

type fakeTransport struct {
	lastSQL    string
	lastTyped  bool
	lastParams int
	sendErr    error
}

func (f *fakeTransport) SendSimple(_ context.Context, sql string, _ bool) (transport.Result, error) {
	f.lastSQL = sql
	f.lastTyped = false
	if f.sendErr != nil {
		return transport.Result{}, f.sendErr
	}
	return transport.Result{RowsAffected: 1}, nil
}

func (f *fakeTransport) SendTyped(_ context.Context, sql string, buf *paramsbuf.Buffer, _ bool) (transport.Result, error) {
	f.lastSQL = sql
	f.lastTyped = true
	f.lastParams = buf.Len()
	if f.sendErr != nil {
		return transport.Result{}, f.sendErr
	}
	return transport.Result{RowsAffected: 1}, nil
}

func newTestConn(tr *fakeTransport) *Conn {
	return NewConn(tr, encode.NewRegistry(), microprotocols.NewMap())
}

func TestExecuteTypedPath(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConn(tr)

	query, _, err := Execute(context.Background(), conn, "SELECT %s", rewrite.Positional(int32(7)), "", false)
	require.NoError(t, err)
	require.Equal(t, "SELECT $1", query)
	require.True(t, tr.lastTyped)
	require.Equal(t, 1, tr.lastParams)
}

func TestExecuteNoVarsSendsVerbatim(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConn(tr)

	query, _, err := Execute(context.Background(), conn, "SELECT 1", rewrite.NoVars(), "", false)
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", query)
	require.False(t, tr.lastTyped)
}

func TestExecuteRefusedFallsBackToMogrify(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConn(tr)

	query, _, err := Execute(context.Background(), conn, "SELECT %s; DROP TABLE t", rewrite.Positional(int32(1)), "", false)
	require.NoError(t, err)
	require.Equal(t, "SELECT 1; DROP TABLE t", query)
	require.False(t, tr.lastTyped)
}

func TestExecuteNamedCursorWraps(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConn(tr)

	query, _, err := Execute(context.Background(), conn, "SELECT %s", rewrite.Positional(int32(1)), "c1", false)
	require.NoError(t, err)
	require.Equal(t, "DECLARE c1 CURSOR WITHOUT HOLD FOR SELECT 1", query)
	require.False(t, tr.lastTyped)
}

func TestExecuteTransportErrorSurfacesVerbatim(t *testing.T) {
	tr := &fakeTransport{sendErr: require.AnError}
	conn := newTestConn(tr)

	_, _, err := Execute(context.Background(), conn, "SELECT 1", rewrite.NoVars(), "", false)
	require.Error(t, err)
}

func TestExecuteEmptySQLIsProgrammingError(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConn(tr)

	_, _, err := Execute(context.Background(), conn, "", rewrite.NoVars(), "", false)
	require.Error(t, err)
}

func TestExecuteUnknownServerEncodingIsInterfaceError(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConn(tr)
	conn.SetServerEncoding("NOT_A_REAL_ENCODING")

	_, _, err := Execute(context.Background(), conn, "SELECT 1", rewrite.NoVars(), "", false)
	require.Error(t, err)
}

func TestExecuteUnencodableSQLIsInterfaceError(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConn(tr)
	conn.SetServerEncoding("LATIN1")

	_, _, err := Execute(context.Background(), conn, "SELECT '中文'", rewrite.NoVars(), "", false)
	require.Error(t, err)
}
