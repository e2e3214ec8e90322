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

package microprotocols

import (
	"reflect"
	"testing"
)

type point struct{ x, y int }

func TestLookupExactMatch(t *testing.T) {
	m := NewMap()
	m.RegisterAdapter(reflect.TypeOf(point{}), func(v interface{}) Adapter {
		return v.(point)
	})

	adapter, ok := m.Lookup(point{1, 2})
	if !ok {
		t.Fatal("expected a registered adapter to be found")
	}
	if adapter.(point) != (point{1, 2}) {
		t.Fatalf("unexpected adapter value %+v", adapter)
	}
}

func TestLookupExactBeatsPredicate(t *testing.T) {
	m := NewMap()
	var calledPredicate bool
	m.RegisterAdapterPredicate(func(interface{}) bool {
		calledPredicate = true
		return true
	}, func(v interface{}) Adapter { return "predicate" })
	m.RegisterAdapter(reflect.TypeOf(point{}), func(v interface{}) Adapter { return "exact" })

	adapter, ok := m.Lookup(point{})
	if !ok || adapter != "exact" {
		t.Fatalf("expected the exact-type entry to win, got %v", adapter)
	}
	if calledPredicate {
		t.Fatal("predicate entries must not be tried once an exact match is found")
	}
}

func TestLookupFallsThroughToPredicateInOrder(t *testing.T) {
	m := NewMap()
	m.RegisterAdapterPredicate(func(v interface{}) bool { return false }, func(v interface{}) Adapter { return "first" })
	m.RegisterAdapterPredicate(func(v interface{}) bool { return true }, func(v interface{}) Adapter { return "second" })

	adapter, ok := m.Lookup(42)
	if !ok || adapter != "second" {
		t.Fatalf("expected the first matching predicate to win, got %v", adapter)
	}
}

func TestLookupNilValue(t *testing.T) {
	m := NewMap()
	if _, ok := m.Lookup(nil); ok {
		t.Fatal("expected Lookup(nil) to report not found")
	}
}

func TestLookupUnregisteredTypeNotFound(t *testing.T) {
	m := NewMap()
	if _, ok := m.Lookup(point{}); ok {
		t.Fatal("expected an empty map to find nothing")
	}
}
