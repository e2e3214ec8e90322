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

// Package rewrite is the Query Rewriter: the two-pass scanner that
// turns a placeholder-bearing template into a numbered-parameter query
// and the parallel typed-parameter buffer.
package rewrite

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mdpgx/pgexec/encode"
	"github.com/mdpgx/pgexec/paramsbuf"
	"github.com/mdpgx/pgexec/pgerr"
)

// Outcome distinguishes the two non-error results of a Rewrite call.
type Outcome int

const (
	// OutcomeBound means sql and buf are ready for the typed-parameter
	// send.
	OutcomeBound Outcome = iota
	// OutcomeRefused means this template cannot be safely bound via the
	// typed-parameter path; the caller must fall back to the textual
	// mogrifier. This is a control signal, not an error.
	OutcomeRefused
)

// Result is what Rewrite produces.
type Result struct {
	Outcome Outcome
	SQL     string
	Buffer  *paramsbuf.Buffer
}

// Rewrite executes both scan/emit passes against template. On
// OutcomeBound the caller owns Result.Buffer and must eventually call
// FreeAll on it. On error, any partial buffer has already been
// released.
func Rewrite(template string, vars Vars, conn encode.Conn, registry *encode.Registry) (Result, error) {
	varsSupplied := vars.Kind() != VarsNone

	scanned, err := scan(template, varsSupplied)
	if err != nil {
		return Result{}, err
	}
	if scanned.refused {
		logrus.Tracef("rewrite: refusing template (%s), falling back to textual mogrifier", scanned.refusedReason)
		return Result{Outcome: OutcomeRefused}, nil
	}

	// The buffer starts empty, created fresh for each execute.
	buf := &paramsbuf.Buffer{}

	out := newEmitBuffer(scanned.estimatedLength)

	if err := emit(template, vars, conn, registry, out, buf); err != nil {
		buf.FreeAll()
		if err == encode.ErrRefused {
			logrus.Tracef("rewrite: encoder refused a parameter, falling back to textual mogrifier")
			return Result{Outcome: OutcomeRefused}, nil
		}
		return Result{}, err
	}

	return Result{Outcome: OutcomeBound, SQL: out.String(), Buffer: buf}, nil
}

func emit(template string, vars Vars, conn encode.Conn, registry *encode.Registry, out *emitBuffer, buf *paramsbuf.Buffer) error {
	i := 0
	n := len(template)
	positionalIndex := 0
	style := StyleUnknown

	for i < n {
		c := template[i]

		switch {
		case c == '%' && i+1 < n && template[i+1] == '%':
			out.writeByte('%')
			i += 2

		case c == '$' && i+1 < n && template[i+1] == '$':
			out.writeString("$$")
			i += 2

		case c == '%' && i+1 < n && template[i+1] == '(':
			style = StyleNamed
			closeIdx := strings.IndexByte(template[i+2:], ')')
			closeIdx += i + 2
			key := template[i+2 : closeIdx]
			j := closeIdx + 1
			for j < n && !isLetter(template[j]) {
				j++
			}
			j++ // consume the type letter itself

			value, ok := vars.Get(key)
			if !ok {
				return pgerr.Programming("key not found: %q", key)
			}
			if err := bindOne(registry, value, conn, out, buf); err != nil {
				return err
			}
			i = j

		case c == '%':
			style = StylePositional
			j := i + 1
			for j < n && !isLetter(template[j]) {
				j++
			}
			j++ // consume the type letter itself

			value, ok := vars.At(positionalIndex)
			if !ok {
				return pgerr.Programming("not enough arguments for format string (index %d)", positionalIndex)
			}
			positionalIndex++
			if err := bindOne(registry, value, conn, out, buf); err != nil {
				return err
			}
			i = j

		case c == '$':
			j := i + 1
			for j < n && isDigit(template[j]) {
				j++
			}
			if j == i+1 {
				out.writeByte('$')
				i++
				continue
			}
			style = StyleNativeNumbered
			out.writeString(template[i:j])
			i = j

		default:
			out.writeByte(c)
			i++
		}
	}

	if style == StylePositional && positionalIndex < vars.Len() {
		return pgerr.Programming("not all arguments converted during query formatting")
	}
	return nil
}

// bindOne calls the encoder registry for value, emitting either a "$N"
// reference or the encoder's inline snippet, per the encoder's Result.
func bindOne(registry *encode.Registry, value interface{}, conn encode.Conn, out *emitBuffer, buf *paramsbuf.Buffer) error {
	before := buf.Len()
	result, err := registry.Encode(value, conn, buf)
	if err == encode.ErrRefused {
		return err
	}
	if err != nil {
		return err
	}

	if result.Snippet != "" {
		out.writeString(result.Snippet)
		return nil
	}

	// A single bound slot: emit its 1-based wire position.
	pos := before + 1
	out.writeByte('$')
	out.writeString(strconv.Itoa(pos))
	return nil
}
