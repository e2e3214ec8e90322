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

// VarsKind identifies the shape a caller supplied its parameters in.
type VarsKind int

const (
	// VarsNone means the caller passed no parameters at all: the
	// template must not reference %s or %(name)s, and any $N in it is
	// passed through untouched as native syntax.
	VarsNone VarsKind = iota
	VarsPositional
	VarsNamed
)

// Vars wraps whatever shape of parameters a caller handed to execute:
// an ordered sequence for %s placeholders, or a keyed mapping for
// %(name)s placeholders. The zero value is VarsNone.
type Vars struct {
	kind  VarsKind
	pos   []interface{}
	named map[string]interface{}
}

// NoVars represents an execute call with no parameters.
func NoVars() Vars { return Vars{kind: VarsNone} }

// Positional wraps an ordered parameter sequence for %s placeholders.
func Positional(vals ...interface{}) Vars {
	return Vars{kind: VarsPositional, pos: vals}
}

// Named wraps a keyed parameter mapping for %(name)s placeholders.
func Named(m map[string]interface{}) Vars {
	return Vars{kind: VarsNamed, named: m}
}

func (v Vars) Kind() VarsKind { return v.kind }

// Len is the number of positional parameters supplied.
func (v Vars) Len() int { return len(v.pos) }

// At returns the i'th positional parameter (0-based).
func (v Vars) At(i int) (interface{}, bool) {
	if i < 0 || i >= len(v.pos) {
		return nil, false
	}
	return v.pos[i], true
}

// Get returns the named parameter for key.
func (v Vars) Get(key string) (interface{}, bool) {
	val, ok := v.named[key]
	return val, ok
}
