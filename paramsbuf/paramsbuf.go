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

// Package paramsbuf holds the Buffer of typed parameters built up by a
// single rewrite pass and handed to the transport's extended-query send.
// Ownership bookkeeping here has no bearing on Go's garbage collector —
// slots don't leak memory either way — but an Ownership discriminant is
// still modeled explicitly because a borrowed slot can reference a
// foreign resource (a pinned C buffer behind a user adapter, a file
// descriptor an adapter opened to stream a value) that must be released
// exactly once, in the order the slots were populated.
package paramsbuf

import "github.com/jackc/pgx/v5/pgproto3"

// Format is the wire encoding of a single parameter.
type Format int16

const (
	Text   Format = Format(pgproto3.TextFormat)
	Binary Format = Format(pgproto3.BinaryFormat)
)

// Ownership discriminates who is responsible for releasing a slot's
// backing bytes at teardown.
type Ownership int

const (
	// Null slots carry no bytes; releasing one is a no-op.
	Null Ownership = iota
	// OwnedBytes slots were allocated by an encoder for this call and
	// are simply dropped at FreeAll (Go's GC reclaims them).
	OwnedBytes
	// BorrowedValue slots reference bytes owned by the producing value
	// (e.g. a string's underlying array, or a resource pinned by a
	// user adapter); FreeAll runs the value's release hook, if any.
	BorrowedValue
)

// Slot is a single bound parameter destined for the backend.
//
// Invariants: if Bytes is nil, Format is irrelevant and Length is 0;
// TypeOID of 0 is only valid when Format is Text (let the backend
// infer the type from context).
type Slot struct {
	TypeOID   uint32
	Bytes     []byte
	Length    int
	Format    Format
	Ownership Ownership
	release   func()
	released  bool
}

// SetNull configures the slot to represent SQL NULL.
func (s *Slot) SetNull() {
	s.Bytes = nil
	s.Length = 0
	s.Ownership = Null
	s.release = nil
}

// SetOwned configures the slot with bytes this call allocated.
func (s *Slot) SetOwned(oid uint32, b []byte, format Format) {
	s.TypeOID = oid
	s.Bytes = b
	s.Length = len(b)
	s.Format = format
	s.Ownership = OwnedBytes
	s.release = nil
}

// SetBorrowed configures the slot with bytes owned by the producing
// value; release, if non-nil, is called exactly once at teardown.
func (s *Slot) SetBorrowed(oid uint32, b []byte, format Format, release func()) {
	s.TypeOID = oid
	s.Bytes = b
	s.Length = len(b)
	s.Format = format
	s.Ownership = BorrowedValue
	s.release = release
}

func (s *Slot) free() {
	if s.released {
		return
	}
	s.released = true
	switch s.Ownership {
	case BorrowedValue:
		if s.release != nil {
			s.release()
		}
	case OwnedBytes, Null:
		// Nothing to do beyond letting the GC reclaim Bytes.
	}
	s.Bytes = nil
	s.release = nil
}

// Buffer is the growable, parallel-array-shaped parameter list for one
// execute call. The zero value is an empty, usable Buffer.
type Buffer struct {
	slots []Slot
}

// Len returns the number of slots, including zero-initialized slots
// added by Reserve.
func (b *Buffer) Len() int { return len(b.slots) }

// Reserve grows the buffer to at least n slots, zero-initializing any
// new tail. It is a no-op if the buffer already holds n or more slots.
func (b *Buffer) Reserve(n int) {
	if n <= len(b.slots) {
		return
	}
	grown := make([]Slot, n)
	copy(grown, b.slots)
	b.slots = grown
}

// Append adds slot to the end of the buffer and returns its 1-based
// wire position (the PostgreSQL extended-query protocol is 1-indexed).
func (b *Buffer) Append(slot Slot) int {
	b.slots = append(b.slots, slot)
	return len(b.slots)
}

// At returns a pointer to the slot at 1-based position i so callers can
// read or populate it in place (the array encoder reads back the slot
// each element just appended; the adapter-map path adjusts the type oid
// of the slot its recursive encode appended).
func (b *Buffer) At(i int) *Slot {
	return &b.slots[i-1]
}

// Slots returns the buffer's slots in wire order. The returned slice
// aliases the buffer's storage and must not be retained past FreeAll.
func (b *Buffer) Slots() []Slot { return b.slots }

// TypeOIDs, Lengths, Formats and Values project the parallel arrays the
// wire contract expects (see transport.Transport.SendTyped).
func (b *Buffer) TypeOIDs() []uint32 {
	out := make([]uint32, len(b.slots))
	for i, s := range b.slots {
		out[i] = s.TypeOID
	}
	return out
}

func (b *Buffer) Lengths() []int {
	out := make([]int, len(b.slots))
	for i, s := range b.slots {
		out[i] = s.Length
	}
	return out
}

func (b *Buffer) Formats() []Format {
	out := make([]Format, len(b.slots))
	for i, s := range b.slots {
		out[i] = s.Format
	}
	return out
}

func (b *Buffer) Values() [][]byte {
	out := make([][]byte, len(b.slots))
	for i, s := range b.slots {
		out[i] = s.Bytes
	}
	return out
}

// FreeAll releases every slot's held resource in population order and
// empties the buffer. It is idempotent: calling it twice, or on an
// empty buffer, is a no-op.
func (b *Buffer) FreeAll() {
	for i := range b.slots {
		b.slots[i].free()
	}
	b.slots = b.slots[:0]
}
