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

package rewrite

import (
	"strings"
	"testing"

	"github.com/mdpgx/pgexec/encode"
	"github.com/mdpgx/pgexec/microprotocols"
)

type fakeConn struct {
	adapters *microprotocols.Map
}

func newFakeConn() *fakeConn {
	return &fakeConn{adapters: microprotocols.NewMap()}
}

func (c *fakeConn) ServerEncoding() string        { return "UTF8" }
func (c *fakeConn) Adapters() *microprotocols.Map { return c.adapters }

func TestRewriteTwoPositionalPlaceholders(t *testing.T) {
	registry := encode.NewRegistry()
	res, err := Rewrite("SELECT %s, %s", Positional(int32(7), "hi"), newFakeConn(), registry)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeBound {
		t.Fatalf("expected OutcomeBound, got %v", res.Outcome)
	}
	if res.SQL != "SELECT $1, $2" {
		t.Fatalf("got %q", res.SQL)
	}
	if res.Buffer.Len() != 2 {
		t.Fatalf("expected 2 params, got %d", res.Buffer.Len())
	}
	res.Buffer.FreeAll()
}

func TestRewriteNamedPlaceholdersWithNull(t *testing.T) {
	registry := encode.NewRegistry()
	vars := Named(map[string]interface{}{"a": nil, "b": int32(42)})
	res, err := Rewrite("UPDATE t SET x=%(a)s WHERE id=%(b)s", vars, newFakeConn(), registry)
	if err != nil {
		t.Fatal(err)
	}
	if res.SQL != "UPDATE t SET x=$1 WHERE id=$2" {
		t.Fatalf("got %q", res.SQL)
	}
	slots := res.Buffer.Slots()
	if slots[0].Bytes != nil {
		t.Fatalf("expected first slot NULL, got %+v", slots[0])
	}
	res.Buffer.FreeAll()
}

func TestRewritePercentEscapeRoundTrip(t *testing.T) {
	registry := encode.NewRegistry()
	res, err := Rewrite("SELECT 100 %% %s", Positional(int32(3)), newFakeConn(), registry)
	if err != nil {
		t.Fatal(err)
	}
	if res.SQL != "SELECT 100 % $1" {
		t.Fatalf("got %q", res.SQL)
	}
	if res.Buffer.Len() != 1 {
		t.Fatalf("expected 1 param, got %d", res.Buffer.Len())
	}
	res.Buffer.FreeAll()
}

func TestRewriteMixedStylesIsProgrammingError(t *testing.T) {
	registry := encode.NewRegistry()
	vars := Positional(1)
	_, err := Rewrite("SELECT %s AND %(x)s", vars, newFakeConn(), registry)
	if err == nil {
		t.Fatal("expected a mixed-format error")
	}
}

func TestRewriteMultiStatementIsRefused(t *testing.T) {
	registry := encode.NewRegistry()
	res, err := Rewrite("SELECT %s; DROP TABLE t", Positional(1), newFakeConn(), registry)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeRefused {
		t.Fatalf("expected OutcomeRefused, got %v", res.Outcome)
	}
}

func TestRewriteArrayParameter(t *testing.T) {
	registry := encode.NewRegistry()
	res, err := Rewrite("SELECT %s", Positional([]int32{1, 2, 3}), newFakeConn(), registry)
	if err != nil {
		t.Fatal(err)
	}
	if res.SQL != "SELECT $1" {
		t.Fatalf("got %q", res.SQL)
	}
	if res.Buffer.Len() != 1 {
		t.Fatalf("expected a single array slot, got %d", res.Buffer.Len())
	}
	res.Buffer.FreeAll()
}

func TestRewriteEmptyTemplateIsProgrammingError(t *testing.T) {
	registry := encode.NewRegistry()
	_, err := Rewrite("", NoVars(), newFakeConn(), registry)
	if err == nil {
		t.Fatal("expected a programming error for an empty template")
	}
}

func TestRewriteUnsupportedPrefixIsRefused(t *testing.T) {
	registry := encode.NewRegistry()
	res, err := Rewrite("COMMENT ON TABLE t IS %s", Positional("x"), newFakeConn(), registry)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeRefused {
		t.Fatalf("expected OutcomeRefused for a non-allow-listed prefix, got %v", res.Outcome)
	}
}

func TestRewriteMarkerCountMatchesParamCount(t *testing.T) {
	registry := encode.NewRegistry()
	res, err := Rewrite("SELECT %s, %s, %s", Positional(int32(1), int32(2), int32(3)), newFakeConn(), registry)
	if err != nil {
		t.Fatal(err)
	}
	count := strings.Count(res.SQL, "$")
	if count != res.Buffer.Len() {
		t.Fatalf("marker count %d does not match param count %d", count, res.Buffer.Len())
	}
	res.Buffer.FreeAll()
}
