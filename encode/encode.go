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

// Package encode is the Value Encoder Registry: it turns a runtime
// value into one or more paramsbuf.Slot entries, preferring a binary
// wire encoding over a textual one whenever a type has an obvious
// binary layout.
package encode

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mdpgx/pgexec/codec"
	"github.com/mdpgx/pgexec/microprotocols"
	"github.com/mdpgx/pgexec/paramsbuf"
	"github.com/mdpgx/pgexec/pgerr"
)

// refusedSentinel is returned as the error from Encode when the value
// cannot be bound safely and the caller must switch the whole statement
// to the textual fallback path. It is not a user-visible error: the
// rewriter compares the returned error against it with == and never
// propagates it.
type refusedSentinel struct{}

func (refusedSentinel) Error() string { return "encode: refused, switch to textual fallback" }

// ErrRefused is the sentinel value described above.
var ErrRefused error = refusedSentinel{}

// Tuple marks a composite value (e.g. a literal row for a multi-column
// IN clause) that this core never binds as a typed parameter. Wrap a
// value in Tuple to force the rewriter down the textual fallback path
// for that placeholder's whole statement: tuple parameters are always
// refused unconditionally.
type Tuple []interface{}

// EncodedText marks a string that must be transcoded through the
// connection's codec before being sent, rather than passed through
// byte-for-byte the way a plain Go string is. Use this for values that
// originated outside the connection's native encoding.
type EncodedText string

// Conn is the connection context an encoder needs: the adapter map for
// user-registered types and the server encoding name for codec
// resolution. The array-oid table lives on the Registry, not here.
type Conn interface {
	microprotocols.ConnInfo
	Adapters() *microprotocols.Map
}

// Result describes what Encode did to the buffer.
type Result struct {
	// Expansion is the number of consecutive slots this call appended
	// (1 for every built-in except arrays-of-composites, which never
	// occurs here, and any user adapter result that itself expands).
	Expansion int
	// Snippet, when non-empty, is the literal text the rewriter must
	// splice into the query instead of a single "$N" reference (used
	// for inline expansions — this core never actually produces a
	// multi-slot inline expansion on its own built-ins, but the hook
	// exists for adapters that do).
	Snippet string
}

type encodeFunc func(r *Registry, value interface{}, conn Conn, buf *paramsbuf.Buffer) (Result, error)

type predicateEncoder struct {
	match func(interface{}) bool
	fn    encodeFunc
}

// Registry is the Value Encoder Registry: an exact-type fast path, a
// predicate fast path, and a fallback to the connection's adapter map.
// The zero value is not usable; use NewRegistry.
type Registry struct {
	exact      map[reflect.Type]encodeFunc
	predicates []predicateEncoder
	arrayOIDs  map[uint32]uint32
}

// NewRegistry builds a Registry with every built-in encoder installed.
func NewRegistry() *Registry {
	r := &Registry{
		exact: make(map[reflect.Type]encodeFunc),
		arrayOIDs: map[uint32]uint32{
			pgtype.Int4OID:    pgtype.Int4ArrayOID,
			pgtype.Int8OID:    pgtype.Int8ArrayOID,
			pgtype.Int2OID:    pgtype.Int2ArrayOID,
			pgtype.BoolOID:    pgtype.BoolArrayOID,
			pgtype.Float8OID:  pgtype.Float8ArrayOID,
			pgtype.Float4OID:  pgtype.Float4ArrayOID,
			pgtype.ByteaOID:   pgtype.ByteaArrayOID,
			pgtype.TextOID:    pgtype.TextArrayOID,
			pgtype.VarcharOID: pgtype.VarcharArrayOID,
			pgtype.UUIDOID:    pgtype.UUIDArrayOID,
			pgtype.NumericOID: pgtype.NumericArrayOID,
		},
	}

	r.exact[reflect.TypeOf("")] = encodeString
	r.exact[reflect.TypeOf(int32(0))] = encodeInt32
	r.exact[reflect.TypeOf(int64(0))] = encodeInt64
	r.exact[reflect.TypeOf(int(0))] = encodeInt
	r.exact[reflect.TypeOf(bool(false))] = encodeBool
	r.exact[reflect.TypeOf(float64(0))] = encodeFloat64
	r.exact[reflect.TypeOf([]byte(nil))] = encodeBytea
	r.exact[reflect.TypeOf(EncodedText(""))] = encodeEncodedText
	r.exact[reflect.TypeOf(decimal.Decimal{})] = encodeDecimal
	r.exact[reflect.TypeOf(uuid.UUID{})] = encodeUUID
	r.exact[reflect.TypeOf(Tuple(nil))] = encodeTuple

	// Homogeneous one-dimensional arrays: any slice type that isn't
	// []byte (already claimed above as BYTEA) or Tuple. Checked after
	// every exact match fails, in insertion order — this is the only
	// predicate entry the built-in table needs.
	r.predicates = append(r.predicates, predicateEncoder{
		match: func(v interface{}) bool {
			t := reflect.TypeOf(v)
			return t != nil && t.Kind() == reflect.Slice && t != reflect.TypeOf([]byte(nil))
		},
		fn: encodeArray,
	})

	return r
}

// Encode dispatches value through the resolution order: exact type
// match, predicate match, then the connection's adapter map. A nil
// value is bound directly as SQL NULL with type_oid left at 0 (format
// text) so the backend infers the column type from context.
func (r *Registry) Encode(value interface{}, conn Conn, buf *paramsbuf.Buffer) (Result, error) {
	if value == nil {
		var s paramsbuf.Slot
		s.Format = paramsbuf.Text
		s.SetNull()
		buf.Append(s)
		return Result{Expansion: 1}, nil
	}

	vt := reflect.TypeOf(value)
	if fn, ok := r.exact[vt]; ok {
		return fn(r, value, conn, buf)
	}
	for _, p := range r.predicates {
		if p.match(value) {
			return p.fn(r, value, conn, buf)
		}
	}
	return r.encodeViaAdapterMap(value, conn, buf)
}

// ArrayOID returns the array type oid for a homogeneous element oid, or
// false if this core has no mapping for it, in which case an array of
// that element type is a type error.
func (r *Registry) ArrayOID(elemOID uint32) (uint32, bool) {
	oid, ok := r.arrayOIDs[elemOID]
	return oid, ok
}

func encodeString(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	s := value.(string)
	b := []byte(s)
	var slot paramsbuf.Slot
	slot.SetBorrowed(pgtype.VarcharOID, b, paramsbuf.Text, nil)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

func encodeInt32(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	v := value.(int32)
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	var slot paramsbuf.Slot
	slot.SetOwned(pgtype.Int4OID, b, paramsbuf.Binary)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

func encodeInt64(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	v := value.(int64)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	var slot paramsbuf.Slot
	slot.SetOwned(pgtype.Int8OID, b, paramsbuf.Binary)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

// encodeInt treats Go's platform int the same as int64: every target
// platform this core runs on has a 64-bit int, and picking anything
// narrower would silently truncate values PostgreSQL's int8 can hold.
func encodeInt(r *Registry, value interface{}, conn Conn, buf *paramsbuf.Buffer) (Result, error) {
	return encodeInt64(r, int64(value.(int)), conn, buf)
}

func encodeBool(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	v := value.(bool)
	b := []byte{0}
	if v {
		b[0] = 1
	}
	var slot paramsbuf.Slot
	slot.SetOwned(pgtype.BoolOID, b, paramsbuf.Binary)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

// encodeFloat64 performs a full 64-bit big-endian byte swap of the
// IEEE-754 bit pattern. A variant that instead halves the double and
// swaps each 32-bit half independently loses precision; this core only
// ever does the correct full-width swap.
func encodeFloat64(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	v := value.(float64)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	var slot paramsbuf.Slot
	slot.SetOwned(pgtype.Float8OID, b, paramsbuf.Binary)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

func encodeBytea(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	b := value.([]byte)
	var slot paramsbuf.Slot
	slot.SetBorrowed(pgtype.ByteaOID, b, paramsbuf.Binary, nil)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

func encodeEncodedText(_ *Registry, value interface{}, conn Conn, buf *paramsbuf.Buffer) (Result, error) {
	v := string(value.(EncodedText))
	c, ok := codec.Named(conn.ServerEncoding())
	if !ok {
		return Result{}, pgerr.Interface("codec %q not found", conn.ServerEncoding())
	}
	b, err := c.Encode(v)
	if err != nil {
		return Result{}, pgerr.Wrap(pgerr.KindInterface, err, "transcoding to "+c.Name)
	}
	var slot paramsbuf.Slot
	slot.SetOwned(pgtype.VarcharOID, b, paramsbuf.Binary)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

func encodeDecimal(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	d := value.(decimal.Decimal)
	b := []byte(d.String())
	var slot paramsbuf.Slot
	slot.SetOwned(pgtype.NumericOID, b, paramsbuf.Text)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

func encodeUUID(_ *Registry, value interface{}, _ Conn, buf *paramsbuf.Buffer) (Result, error) {
	u := value.(uuid.UUID)
	b := make([]byte, 16)
	copy(b, u[:])
	var slot paramsbuf.Slot
	slot.SetOwned(pgtype.UUIDOID, b, paramsbuf.Binary)
	buf.Append(slot)
	return Result{Expansion: 1}, nil
}

// encodeTuple always refuses: tuple parameters can only be expressed
// safely by inlining their quoted elements, which only the textual
// fallback mogrifier does.
func encodeTuple(_ *Registry, _ interface{}, _ Conn, _ *paramsbuf.Buffer) (Result, error) {
	return Result{}, ErrRefused
}

// encodeViaAdapterMap is the final resolution step: the ancestry walk
// against the "raw typed form" protocol.
func (r *Registry) encodeViaAdapterMap(value interface{}, conn Conn, buf *paramsbuf.Buffer) (Result, error) {
	adapter, ok := conn.Adapters().Lookup(value)
	if !ok {
		return Result{}, pgerr.TypeErr("no adapter registered for %T", value)
	}

	if preparer, ok := adapter.(microprotocols.Preparer); ok {
		if err := preparer.Prepare(conn); err != nil {
			return Result{}, pgerr.Wrapf(pgerr.KindType, err, "adapter.Prepare for %T", value)
		}
	}

	getter, ok := adapter.(microprotocols.RawGetter)
	if !ok {
		logrus.Tracef("encode: adapter for %T implements no GetRaw, refusing", value)
		return Result{}, ErrRefused
	}

	raw, err := getter.GetRaw(conn)
	if err != nil {
		return Result{}, pgerr.Wrapf(pgerr.KindType, err, "adapter.GetRaw for %T", value)
	}
	if sameValue(raw, value) {
		return Result{}, pgerr.TypeErr("adapter.GetRaw for %T made no progress (returned the same value)", value)
	}

	startLen := buf.Len()
	result, err := r.Encode(raw, conn, buf)
	if err != nil {
		return Result{}, err
	}

	if oidGetter, ok := adapter.(microprotocols.RawOIDGetter); ok {
		hint := oidGetter.GetRawOID(conn)
		slot := buf.At(startLen + 1)
		switch hint.Kind {
		case microprotocols.OIDInfer:
			if slot.Format == paramsbuf.Text {
				slot.TypeOID = 0
			}
		case microprotocols.OIDExplicit:
			slot.TypeOID = hint.OID
		case microprotocols.OIDAsProduced:
			// leave as-is
		}
	}

	return result, nil
}

// sameValue detects the non-progression case: a GetRaw that returns
// the caller's own input unchanged would recurse forever.
// Values of different concrete types are never the same; values of one
// comparable type are compared with ==. Values of a non-comparable type
// are never reported as the same.
func sameValue(raw, original interface{}) bool {
	rt, ot := reflect.TypeOf(raw), reflect.TypeOf(original)
	if rt != ot {
		return false
	}
	if !rt.Comparable() {
		return false
	}
	return raw == original
}
