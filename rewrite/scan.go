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

import (
	"strings"

	"github.com/mdpgx/pgexec/pgerr"
)

// Style is the placeholder syntax a template uses. A template must use
// exactly one style throughout.
type Style int

const (
	StyleUnknown Style = iota
	StyleNamed
	StylePositional
	StyleNativeNumbered
)

// AllowedPrefixes is the restricted-binary-path allow-list: the
// typed-parameter path is restricted to statements whose first keyword
// is one of these; anything else is refused (falls back to textual
// substitution).
var AllowedPrefixes = []string{"SELECT", "INSERT", "UPDATE", "DELETE"}

type scanResult struct {
	style           Style
	paramCount      int
	estimatedLength int
	refused         bool
	refusedReason   string
}

// decimalLength returns the number of base-10 digits needed to print n
// (n >= 0): sizing the "$N" text the rewriter is about to emit.
func decimalLength(n int) int {
	if n == 0 {
		return 1
	}
	digits := 0
	for n > 0 {
		digits++
		n /= 10
	}
	return digits
}

// scan performs the first pass: validate placeholder-style uniformity,
// reject multi-statement input, check the restricted-binary-path
// prefix allow-list, and estimate the rewritten query's length.
func scan(template string, varsSupplied bool) (scanResult, error) {
	var res scanResult
	if len(template) == 0 {
		return res, pgerr.Programming("empty query")
	}

	if !hasAllowedPrefix(template) {
		res.refused = true
		res.refusedReason = "statement prefix not in the typed-parameter allow-list"
		return res, nil
	}

	i := 0
	n := len(template)
	sawSemicolon := false

	setStyle := func(s Style) error {
		if res.style == StyleUnknown {
			res.style = s
			return nil
		}
		if res.style != s {
			return pgerr.Programming("argument formats can't be mixed")
		}
		return nil
	}

	for i < n {
		c := template[i]

		if sawSemicolon && !isSpace(c) {
			res.refused = true
			res.refusedReason = "multi-statement; switch to fallback"
			return res, nil
		}

		switch {
		case c == ';':
			sawSemicolon = true
			i++
			res.estimatedLength++

		case c == '%' && i+1 < n && template[i+1] == '%':
			i += 2
			res.estimatedLength++

		case c == '$' && i+1 < n && template[i+1] == '$':
			i += 2
			res.estimatedLength += 2

		case c == '%' && i+1 < n && template[i+1] == '(':
			closeIdx := strings.IndexByte(template[i+2:], ')')
			if closeIdx < 0 {
				return res, pgerr.Programming("unterminated %%(name)s placeholder")
			}
			closeIdx += i + 2
			j := closeIdx + 1
			for j < n && !isLetter(template[j]) {
				j++
			}
			if j >= n {
				return res, pgerr.Programming("unterminated %%(name)s placeholder: missing type letter")
			}
			if err := setStyle(StyleNamed); err != nil {
				return res, err
			}
			res.paramCount++
			res.estimatedLength += decimalLength(res.paramCount) + 1
			i = j + 1

		case c == '%':
			j := i + 1
			for j < n && !isLetter(template[j]) {
				j++
			}
			if j >= n {
				return res, pgerr.Programming("unterminated %%s placeholder: missing type letter")
			}
			if err := setStyle(StylePositional); err != nil {
				return res, err
			}
			res.paramCount++
			res.estimatedLength += decimalLength(res.paramCount) + 1
			i = j + 1

		case c == '$':
			j := i + 1
			for j < n && isDigit(template[j]) {
				j++
			}
			if j == i+1 {
				// Lone '$' not followed by a digit: pass through literally.
				i++
				res.estimatedLength++
				continue
			}
			if varsSupplied {
				return res, pgerr.Programming("native $N placeholders are forbidden when vars are supplied")
			}
			if err := setStyle(StyleNativeNumbered); err != nil {
				return res, err
			}
			res.estimatedLength += 2
			i = j

		default:
			i++
			res.estimatedLength++
		}
	}

	return res, nil
}

func hasAllowedPrefix(template string) bool {
	trimmed := strings.TrimLeftFunc(template, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	upper := strings.ToUpper(trimmed)
	for _, prefix := range AllowedPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
