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

package encode

import (
	"encoding/binary"
	"reflect"

	"github.com/mdpgx/pgexec/paramsbuf"
	"github.com/mdpgx/pgexec/pgerr"
)

// encodeArray recursively encodes every element into a scratch buffer,
// requires every non-null element to share one type oid and binary
// format, then assembles the one-dimensional PostgreSQL array binary
// layout:
//
//	int32 ndims=1; int32 has_nulls; int32 element_oid; int32 dim; int32 lbound=0
//	repeated (int32 len | -1, bytes[len])
func encodeArray(r *Registry, value interface{}, conn Conn, buf *paramsbuf.Buffer) (Result, error) {
	rv := reflect.ValueOf(value)
	n := rv.Len()

	var scratch paramsbuf.Buffer
	var elemOID uint32
	oidSet := false
	hasNulls := false

	for i := 0; i < n; i++ {
		elem := rv.Index(i).Interface()
		if isNilElement(elem) {
			var slot paramsbuf.Slot
			slot.SetNull()
			scratch.Append(slot)
			hasNulls = true
			continue
		}

		if _, err := r.Encode(elem, conn, &scratch); err != nil {
			scratch.FreeAll()
			if err == ErrRefused {
				return Result{}, ErrRefused
			}
			return Result{}, pgerr.Wrapf(pgerr.KindType, err, "encoding array element %d", i)
		}

		slot := scratch.At(scratch.Len())
		if slot.Format != paramsbuf.Binary {
			scratch.FreeAll()
			return Result{}, pgerr.TypeErr("array element %d did not encode to binary format", i)
		}
		if !oidSet {
			elemOID = slot.TypeOID
			oidSet = true
		} else if slot.TypeOID != elemOID {
			scratch.FreeAll()
			return Result{}, pgerr.TypeErr("array elements have differing type oids (%d and %d)", elemOID, slot.TypeOID)
		}
	}

	if !oidSet {
		scratch.FreeAll()
		return Result{}, pgerr.TypeErr("array has no non-null elements; element type oid cannot be determined")
	}

	arrayOID, ok := r.ArrayOID(elemOID)
	if !ok {
		scratch.FreeAll()
		return Result{}, pgerr.TypeErr("no array oid mapped for element oid %d", elemOID)
	}

	payload := make([]byte, 0, 20+n*8)
	payload = appendInt32(payload, 1) // ndims
	if hasNulls {
		payload = appendInt32(payload, 1)
	} else {
		payload = appendInt32(payload, 0)
	}
	payload = appendInt32(payload, int32(elemOID))
	payload = appendInt32(payload, int32(n)) // dim
	payload = appendInt32(payload, 0)        // lbound

	for _, slot := range scratch.Slots() {
		if slot.Bytes == nil {
			payload = appendInt32(payload, -1)
			continue
		}
		payload = appendInt32(payload, int32(len(slot.Bytes)))
		payload = append(payload, slot.Bytes...)
	}
	scratch.FreeAll()

	var out paramsbuf.Slot
	out.SetOwned(arrayOID, payload, paramsbuf.Binary)
	buf.Append(out)
	return Result{Expansion: 1}, nil
}

func appendInt32(b []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(b, tmp[:]...)
}

func isNilElement(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
