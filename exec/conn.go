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

// Package exec is the Execution Adapter: it drives the Query Rewriter,
// chooses the typed or textual-fallback path, and hands the result to
// the transport collaborator.
package exec

import (
	"github.com/mdpgx/pgexec/encode"
	"github.com/mdpgx/pgexec/microprotocols"
	"github.com/mdpgx/pgexec/transport"
)

// Conn is the per-connection state the Execution Adapter and Cursor
// Facade share. It is accessed only from the thread/task driving this
// connection; there is no internal locking.
type Conn struct {
	Transport transport.Transport
	Registry  *encode.Registry
	adapters  *microprotocols.Map
	encoding  string

	// InTransaction, TwoPhasePending and AsyncInFlight back the cursor
	// preconditions. They live on Conn, not Cursor, because they
	// describe the connection as a whole.
	InTransaction   bool
	TwoPhasePending bool
	AsyncInFlight   bool
}

// NewConn builds a Conn around the given transport, encoder registry
// and adapter map, with server_encoding defaulting to UTF8.
func NewConn(t transport.Transport, registry *encode.Registry, adapters *microprotocols.Map) *Conn {
	return &Conn{
		Transport: t,
		Registry:  registry,
		adapters:  adapters,
		encoding:  "UTF8",
	}
}

// ServerEncoding implements microprotocols.ConnInfo and encode.Conn.
func (c *Conn) ServerEncoding() string { return c.encoding }

// SetServerEncoding updates the codec used for EncodedText values and
// SQL-string validation.
func (c *Conn) SetServerEncoding(name string) { c.encoding = name }

// Adapters implements encode.Conn and mogrify.Conn.
func (c *Conn) Adapters() *microprotocols.Map { return c.adapters }
