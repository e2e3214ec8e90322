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

// Package microprotocols is the user-extensible half of the Value
// Encoder Registry: a process-wide table from a value's Go type to an
// Adapter capable of producing either a raw typed parameter or a
// quoted textual literal for it. The fast built-in encoders (strings,
// ints, floats...) live in package encode and never touch this table;
// this table is consulted only once those are exhausted.
package microprotocols

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// ProtocolTag identifies which contract a caller wants from an adapter.
type ProtocolTag int

const (
	// ProtocolQuoted asks for a self-contained, already-quoted SQL
	// literal (the getquoted capability), used by the textual fallback
	// mogrifier.
	ProtocolQuoted ProtocolTag = iota
	// ProtocolRaw asks for a raw typed value (the getraw capability),
	// used by the typed-parameter encode path.
	ProtocolRaw
)

// OIDHintKind distinguishes the three outcomes GetRawOID can report.
type OIDHintKind int

const (
	// OIDInfer means "force type_oid=0, let the backend infer".
	OIDInfer OIDHintKind = iota
	// OIDAsProduced means "leave the oid as the recursive encode step
	// produced it".
	OIDAsProduced
	// OIDExplicit carries a concrete oid to use instead.
	OIDExplicit
)

// OIDHint is the tri-state result of Adapter.GetRawOID.
type OIDHint struct {
	Kind OIDHintKind
	OID  uint32
}

// ConnInfo is the minimal connection context an adapter may need: the
// codec name it should quote/encode against. It intentionally does not
// expose the transport; adapters never talk to the network directly.
type ConnInfo interface {
	ServerEncoding() string
}

// Preparer is implemented by adapters that need a one-time setup step
// before GetRaw/GetQuoted is called (e.g. to look up a type oid from
// the connection's catalog cache).
type Preparer interface {
	Prepare(conn ConnInfo) error
}

// RawGetter is the "raw typed form" capability: getraw. It returns the
// value to encode next (often a plain Go type like string or []byte);
// the caller recurses through the encoder registry on the result. An
// adapter that cannot produce a raw form at all should simply not
// implement this interface — the registry reports refusal.
type RawGetter interface {
	GetRaw(conn ConnInfo) (interface{}, error)
}

// RawOIDGetter lets an adapter override the type oid produced by the
// recursive encode of GetRaw's result. Implementing RawGetter without
// RawOIDGetter leaves the oid exactly as the recursion produced it.
type RawOIDGetter interface {
	GetRawOID(conn ConnInfo) OIDHint
}

// QuotedGetter is the "quoted textual form" capability: getquoted. It
// returns a fully self-contained SQL literal, already quoted.
type QuotedGetter interface {
	GetQuoted(conn ConnInfo) (string, error)
}

// Adapter is the union of optional capabilities a registered value type
// may expose: a plain interface{} that is type-asserted against the
// capability interfaces above at call time, so an adapter can implement
// any subset of them.
type Adapter = interface{}

// AdapterFactory builds an Adapter wrapping value. Registrations store a
// factory rather than a prototype adapter so that every encode gets a
// fresh adapter instance around the specific value being encoded.
type AdapterFactory func(value interface{}) Adapter

type exactEntry struct {
	typ     reflect.Type
	factory AdapterFactory
}

type predicateEntry struct {
	predicate func(interface{}) bool
	factory   AdapterFactory
}

// Map is the process-wide adapter registry. The zero value is not
// usable; use NewMap. A Map is written only during
// RegisterAdapter/RegisterAdapterPredicate calls; reads never lock, matching the "write once, swap to publish"
// discipline described for the process-wide registries.
type Map struct {
	mu         sync.Mutex // guards registration only; see publish below
	exact      atomic.Pointer[[]exactEntry]
	predicates atomic.Pointer[[]predicateEntry]
}

// NewMap returns an empty, ready-to-use Map.
func NewMap() *Map {
	m := &Map{}
	empty1 := []exactEntry{}
	empty2 := []predicateEntry{}
	m.exact.Store(&empty1)
	m.predicates.Store(&empty2)
	return m
}

// RegisterAdapter associates every value of exactly typ's type with an
// adapter built by factory. Matches are attempted in registration order
// and stop at the first match. Matching is by exact type equality with
// the value's concrete type, so a registered interface type matches no
// value.
func (m *Map) RegisterAdapter(typ reflect.Type, factory AdapterFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := *m.exact.Load()
	next := make([]exactEntry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, exactEntry{typ: typ, factory: factory})
	m.exact.Store(&next)
}

// RegisterAdapterPredicate associates any value for which predicate
// returns true with an adapter built by factory. Predicate entries are
// tried after all exact-type entries, in registration order, and the
// first predicate to match wins (this is the slow path of the
// resolution order applied to the adapter map itself).
func (m *Map) RegisterAdapterPredicate(predicate func(interface{}) bool, factory AdapterFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := *m.predicates.Load()
	next := make([]predicateEntry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, predicateEntry{predicate: predicate, factory: factory})
	m.predicates.Store(&next)
}

// Lookup performs the ancestry walk: exact type match first (in
// registration order, first match wins — in practice there is at most
// one exact entry per concrete type, but ordering still matters for
// predicate fallthrough), then predicate entries in registration
// order. Results are deliberately not memoized: memoizing by
// reflect.Type would grow unboundedly for dynamically generated types.
func (m *Map) Lookup(value interface{}) (Adapter, bool) {
	if value == nil {
		return nil, false
	}
	vt := reflect.TypeOf(value)
	for _, e := range *m.exact.Load() {
		if e.typ == vt {
			return e.factory(value), true
		}
	}
	for _, e := range *m.predicates.Load() {
		if e.predicate(value) {
			return e.factory(value), true
		}
	}
	return nil, false
}
