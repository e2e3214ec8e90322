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

package mogrify

import (
	"strings"

	"github.com/mdpgx/pgexec/pgerr"
	"github.com/mdpgx/pgexec/rewrite"
)

// Mogrify substitutes a quoted literal for every placeholder in
// template and returns the single, self-contained resulting statement.
// It uses the same %%/%(k)s/%s syntax as the Query Rewriter, but never
// emits a "$N" reference: every value is inlined. A NULL value
// substitutes the bare token NULL; the placeholder's type letter is
// normalized away (it never appears in the output either way).
func Mogrify(template string, vars rewrite.Vars, conn Conn) (string, error) {
	var out strings.Builder
	i := 0
	n := len(template)
	positionalIndex := 0

	for i < n {
		c := template[i]

		switch {
		case c == '%' && i+1 < n && template[i+1] == '%':
			out.WriteByte('%')
			i += 2

		case c == '$' && i+1 < n && template[i+1] == '$':
			out.WriteString("$$")
			i += 2

		case c == '%' && i+1 < n && template[i+1] == '(':
			closeIdx := strings.IndexByte(template[i+2:], ')')
			if closeIdx < 0 {
				return "", pgerr.Programming("unterminated %%(name)s placeholder")
			}
			closeIdx += i + 2
			key := template[i+2 : closeIdx]
			j := closeIdx + 1
			for j < n && !isLetter(template[j]) {
				j++
			}
			if j >= n {
				return "", pgerr.Programming("unterminated %%(name)s placeholder: missing type letter")
			}
			j++

			value, ok := vars.Get(key)
			if !ok {
				return "", pgerr.Programming("key not found: %q", key)
			}
			quoted, err := Quote(value, conn)
			if err != nil {
				return "", err
			}
			out.WriteString(quoted)
			i = j

		case c == '%':
			j := i + 1
			for j < n && !isLetter(template[j]) {
				j++
			}
			if j >= n {
				return "", pgerr.Programming("unterminated %%s placeholder: missing type letter")
			}
			j++

			value, ok := vars.At(positionalIndex)
			if !ok {
				return "", pgerr.Programming("not enough arguments for format string (index %d)", positionalIndex)
			}
			positionalIndex++
			quoted, err := Quote(value, conn)
			if err != nil {
				return "", err
			}
			out.WriteString(quoted)
			i = j

		default:
			out.WriteByte(c)
			i++
		}
	}

	if positionalIndex < vars.Len() {
		return "", pgerr.Programming("not all arguments converted during query formatting")
	}
	return out.String(), nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
