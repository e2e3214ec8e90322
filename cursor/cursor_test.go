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

package cursor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdpgx/pgexec/encode"
	"github.com/mdpgx/pgexec/exec"
	"github.com/mdpgx/pgexec/microprotocols"
	"github.com/mdpgx/pgexec/paramsbuf"
	"github.com/mdpgx/pgexec/rewrite"
	"github.com/mdpgx/pgexec/transport"
)

type fakeTransport struct{}

func (f *fakeTransport) SendSimple(_ context.Context, _ string, _ bool) (transport.Result, error) {
	return transport.Result{RowsAffected: 1}, nil
}

func (f *fakeTransport) SendTyped(_ context.Context, _ string, _ *paramsbuf.Buffer, _ bool) (transport.Result, error) {
	return transport.Result{RowsAffected: 1}, nil
}

func newTestConn() *exec.Conn {
	return exec.NewConn(&fakeTransport{}, encode.NewRegistry(), microprotocols.NewMap())
}

func TestCursorExecuteSetsLastQueryAndRowCount(t *testing.T) {
	c := New(newTestConn())
	err := c.Execute(context.Background(), "SELECT %s", rewrite.Positional(int32(1)))
	require.NoError(t, err)
	require.Equal(t, "SELECT $1", c.LastQuery)
	require.Equal(t, int64(1), c.RowCount)
}

func TestCursorExecuteOnClosedCursorIsProgrammingError(t *testing.T) {
	c := New(newTestConn())
	c.Close()
	err := c.Execute(context.Background(), "SELECT 1", rewrite.NoVars())
	require.Error(t, err)
}

func TestCursorExecuteManyAccumulatesRowCount(t *testing.T) {
	c := New(newTestConn())
	varsList := []rewrite.Vars{
		rewrite.Positional(int32(1)),
		rewrite.Positional(int32(2)),
	}
	err := c.ExecuteMany(context.Background(), "INSERT INTO t VALUES (%s)", varsList)
	require.NoError(t, err)
	require.Equal(t, int64(2), c.RowCount)
}

func TestCursorMogrifyDoesNotExecute(t *testing.T) {
	c := New(newTestConn())
	got, err := c.Mogrify("SELECT %s", rewrite.Positional("x"))
	require.NoError(t, err)
	require.Equal(t, "SELECT 'x'", got)
	require.Equal(t, "", c.LastQuery)
}

func TestNamedCursorRequiresTransactionMark(t *testing.T) {
	conn := newTestConn()
	conn.InTransaction = true
	c := NewNamed(conn, "c1")
	err := c.Execute(context.Background(), "SELECT %s", rewrite.Positional(int32(1)))
	require.Error(t, err)
}

func TestNamedCursorRequiresActiveTransaction(t *testing.T) {
	conn := newTestConn()
	c := NewNamed(conn, "c1")
	c.BindToTransactionMark()
	err := c.Execute(context.Background(), "SELECT %s", rewrite.Positional(int32(1)))
	require.Error(t, err)
}

func TestNamedCursorExecutesOnceOnly(t *testing.T) {
	conn := newTestConn()
	conn.InTransaction = true
	c := NewNamed(conn, "c1")
	c.BindToTransactionMark()

	err := c.Execute(context.Background(), "SELECT %s", rewrite.Positional(int32(1)))
	require.NoError(t, err)
	require.Equal(t, "DECLARE c1 CURSOR WITHOUT HOLD FOR SELECT 1", c.LastQuery)

	err = c.Execute(context.Background(), "SELECT %s", rewrite.Positional(int32(2)))
	require.Error(t, err)
}

func TestCursorExecuteRejectedWhileAsyncInFlight(t *testing.T) {
	conn := newTestConn()
	conn.AsyncInFlight = true
	c := New(conn)
	err := c.Execute(context.Background(), "SELECT 1", rewrite.NoVars())
	require.Error(t, err)
}

func TestCursorExecuteRejectedWhileTwoPhasePending(t *testing.T) {
	conn := newTestConn()
	conn.TwoPhasePending = true
	c := New(conn)
	err := c.Execute(context.Background(), "SELECT 1", rewrite.NoVars())
	require.Error(t, err)
}
