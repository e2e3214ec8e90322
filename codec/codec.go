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

// Package codec holds the per-connection text codec used to transcode
// "encoded text" values (arbitrary unicode-ish strings that arrive as a
// distinct Go type from plain string) into the connection's declared
// server_encoding before they're handed to the wire as a VARCHAR
// parameter, and to validate/transcode the SQL template itself.
package codec

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Codec names the small set of server_encoding values this driver core
// knows how to transcode to. Anything else is reported as "codec not
// found" (pgerr.KindInterface) rather than guessed at.
type Codec struct {
	Name string
	enc  encoding.Encoding
}

// Named resolves a PostgreSQL server_encoding name to a Codec, or
// reports ok=false if this core doesn't carry a transcoder for it.
func Named(name string) (Codec, bool) {
	switch name {
	case "", "UTF8", "UNICODE":
		return Codec{Name: "UTF8", enc: unicode.UTF8}, true
	case "LATIN1":
		return Codec{Name: "LATIN1", enc: charmap.ISO8859_1}, true
	case "LATIN9":
		return Codec{Name: "LATIN9", enc: charmap.ISO8859_15}, true
	case "WIN1252":
		return Codec{Name: "WIN1252", enc: charmap.Windows1252}, true
	case "SQL_ASCII":
		return Codec{Name: "SQL_ASCII", enc: encoding.Nop}, true
	default:
		return Codec{}, false
	}
}

// Default is the codec used when a connection hasn't negotiated one.
func Default() Codec {
	c, _ := Named("UTF8")
	return c
}

// Encode transcodes s from UTF-8 (Go's native string encoding) into the
// codec's byte representation. For UTF8/SQL_ASCII this is a no-op copy.
func (c Codec) Encode(s string) ([]byte, error) {
	if c.enc == nil {
		c = Default()
	}
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	return out, nil
}
