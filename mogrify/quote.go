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

// Package mogrify is the Textual Fallback Mogrifier: it substitutes a
// fully quoted, self-contained SQL literal for every placeholder,
// producing one statement string with no typed parameters at all. It
// is used whenever the Query Rewriter refuses a template, and is also
// exposed directly as the cursor's mogrify operation.
package mogrify

import (
	"encoding/hex"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mdpgx/pgexec/encode"
	"github.com/mdpgx/pgexec/microprotocols"
	"github.com/mdpgx/pgexec/pgerr"
)

// Conn is the connection context the mogrifier needs.
type Conn interface {
	microprotocols.ConnInfo
	Adapters() *microprotocols.Map
}

// Quote produces a self-contained, already-quoted SQL literal for
// value. It tries the same built-in set encode.Registry fast-paths
// (so every value the typed path can bind also mogrifies), then falls
// back to the connection's adapter map's getquoted capability.
func Quote(value interface{}, conn Conn) (string, error) {
	if value == nil {
		return "NULL", nil
	}

	switch v := value.(type) {
	case string:
		return quoteString(v), nil
	case encode.EncodedText:
		return quoteString(string(v)), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case []byte:
		return quoteBytea(v), nil
	case decimal.Decimal:
		return v.String(), nil
	case uuid.UUID:
		return quoteString(v.String()), nil
	case encode.Tuple:
		return quoteTuple(v, conn)
	}

	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice && rv.Type() != reflect.TypeOf([]byte(nil)) {
		return quoteArray(rv, conn)
	}

	return quoteViaAdapterMap(value, conn)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			b.WriteString("''")
		} else {
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func quoteBytea(b []byte) string {
	return "'\\x" + hex.EncodeToString(b) + "'::bytea"
}

func quoteTuple(t encode.Tuple, conn Conn) (string, error) {
	parts := make([]string, len(t))
	for i, v := range t {
		q, err := Quote(v, conn)
		if err != nil {
			return "", err
		}
		parts[i] = q
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}

func quoteArray(rv reflect.Value, conn Conn) (string, error) {
	parts := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		q, err := Quote(rv.Index(i).Interface(), conn)
		if err != nil {
			return "", err
		}
		parts[i] = q
	}
	return "ARRAY[" + strings.Join(parts, ",") + "]", nil
}

func quoteViaAdapterMap(value interface{}, conn Conn) (string, error) {
	adapter, ok := conn.Adapters().Lookup(value)
	if !ok {
		return "", pgerr.TypeErr("no adapter registered for %T", value)
	}
	if preparer, ok := adapter.(microprotocols.Preparer); ok {
		if err := preparer.Prepare(conn); err != nil {
			return "", pgerr.Wrapf(pgerr.KindType, err, "adapter.Prepare for %T", value)
		}
	}
	getter, ok := adapter.(microprotocols.QuotedGetter)
	if !ok {
		return "", pgerr.TypeErr("adapter for %T implements no GetQuoted", value)
	}
	quoted, err := getter.GetQuoted(conn)
	if err != nil {
		return "", pgerr.Wrapf(pgerr.KindInterface, err, "adapter.GetQuoted for %T", value)
	}
	return quoted, nil
}
