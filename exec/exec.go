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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mdpgx/pgexec/codec"
	"github.com/mdpgx/pgexec/mogrify"
	"github.com/mdpgx/pgexec/pgerr"
	"github.com/mdpgx/pgexec/rewrite"
	"github.com/mdpgx/pgexec/transport"
)

// Execute drives a single statement through the rewriter and, on
// refusal, the textual fallback mogrifier. namedCursor is "" for the
// ordinary, unnamed case. On every exit path the parameter buffer (if
// one was allocated) is freed before Execute returns, and the query
// actually sent is returned so the caller can stash it as the cursor's
// "last query" field regardless of success or failure.
func Execute(ctx context.Context, conn *Conn, sql string, vars rewrite.Vars, namedCursor string, async bool) (query string, result transport.Result, err error) {
	if len(sql) == 0 {
		return "", transport.Result{}, pgerr.Programming("empty query")
	}
	if err := validateSQLEncoding(sql, conn); err != nil {
		return "", transport.Result{}, err
	}

	var rr rewrite.Result
	defer func() {
		if rr.Buffer != nil {
			rr.Buffer.FreeAll()
		}
	}()

	switch {
	case namedCursor != "":
		// A named cursor always disables the typed-parameter path:
		// there is no point attempting the rewriter only to discard
		// its bound parameters, so this core goes straight to the
		// textual mogrifier and wraps its output.
		mogrified, mErr := mogrify.Mogrify(sql, vars, conn)
		if mErr != nil {
			return "", transport.Result{}, mErr
		}
		query = fmt.Sprintf("DECLARE %s CURSOR WITHOUT HOLD FOR %s", namedCursor, mogrified)

	case vars.Kind() != rewrite.VarsNone:
		var rErr error
		rr, rErr = rewrite.Rewrite(sql, vars, conn, conn.Registry)
		if rErr != nil {
			return "", transport.Result{}, rErr
		}
		if rr.Outcome == rewrite.OutcomeRefused {
			mogrified, mErr := mogrify.Mogrify(sql, vars, conn)
			if mErr != nil {
				return "", transport.Result{}, mErr
			}
			query = mogrified
		} else {
			query = rr.SQL
		}

	default:
		query = sql
	}

	logrus.Tracef("exec: submitting query %q with %d typed parameters", query, paramCount(rr))

	if namedCursor == "" && rr.Outcome == rewrite.OutcomeBound && paramCount(rr) > 0 {
		result, err = conn.Transport.SendTyped(ctx, query, rr.Buffer, async)
	} else {
		result, err = conn.Transport.SendSimple(ctx, query, async)
	}
	if err != nil {
		return query, transport.Result{}, pgerr.Transport(err)
	}
	return query, result, nil
}

func paramCount(rr rewrite.Result) int {
	if rr.Buffer == nil {
		return 0
	}
	return rr.Buffer.Len()
}

// validateSQLEncoding confirms sql is representable in conn's declared
// server_encoding before it reaches the rewriter or mogrifier. The
// transcoded bytes are discarded: the scan/emit passes work on the
// original UTF-8 string, byte-indexed over its ASCII control characters
// (%, $, ;, quotes), and re-encoding into a non-UTF8 codec would shift
// those byte offsets for any template carrying non-ASCII text.
func validateSQLEncoding(sql string, conn *Conn) error {
	c, ok := codec.Named(conn.ServerEncoding())
	if !ok {
		return pgerr.Interface("codec %q not found", conn.ServerEncoding())
	}
	if _, err := c.Encode(sql); err != nil {
		return pgerr.Wrap(pgerr.KindInterface, err, "transcoding query text to "+c.Name)
	}
	return nil
}
