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

// Package oidname turns a wire type oid into the short name Postgres
// itself uses for it ("int4", "text", ...), purely for error messages.
// pgtype carries an oid->name table too, but it's geared towards value
// decoding and doesn't export a bare lookup; lib/pq's oid package does
// nothing but this, so it's the one used here.
package oidname

import (
	"strings"

	"github.com/lib/pq/oid"
)

// Name returns the short Postgres type name for o, or "unknown" if this
// core has no record of it (never an error: this is a debug aid, not a
// validation step).
func Name(o uint32) string {
	if name, ok := oid.TypeName[oid.Oid(o)]; ok {
		return strings.ToLower(name)
	}
	return "unknown"
}
