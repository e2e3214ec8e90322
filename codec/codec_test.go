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

package codec

import "testing"

func TestNamedUTF8RoundTrips(t *testing.T) {
	c, ok := Named("UTF8")
	if !ok {
		t.Fatal("expected UTF8 to be known")
	}
	got, err := c.Encode("héllo")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "héllo" {
		t.Fatalf("expected a UTF8 no-op transcode, got %q", got)
	}
}

func TestNamedUnknownEncodingNotFound(t *testing.T) {
	if _, ok := Named("NOT_A_REAL_ENCODING"); ok {
		t.Fatal("expected an unknown server_encoding to report not found")
	}
}

func TestNamedLatin1TranscodesNonASCII(t *testing.T) {
	c, ok := Named("LATIN1")
	if !ok {
		t.Fatal("expected LATIN1 to be known")
	}
	got, err := c.Encode("é")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 0xE9 {
		t.Fatalf("expected a single Latin-1 byte 0xE9, got %x", got)
	}
}

func TestZeroValueCodecDefaultsToUTF8(t *testing.T) {
	var c Codec
	got, err := c.Encode("abc")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Fatalf("expected the zero-value codec to default to UTF8, got %q", got)
	}
}
