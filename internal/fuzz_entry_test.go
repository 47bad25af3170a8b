package internal

import (
	"testing"
)

// FuzzDecodeEntry exercises cache entry decoding with arbitrary strings.
// Goal: no panics; anything that decodes must re-encode to the same value.
func FuzzDecodeEntry(f *testing.F) {
	f.Add("")
	f.Add("a|")
	f.Add("r|")
	f.Add("w|alice")
	f.Add("w|a|b|c")
	f.Add("a|refkey|eyJhbGciOiJIUzI1NiJ9.e30.sig")
	f.Add("x|whatever")

	if key, err := NewTokenKey(); err == nil {
		f.Add(RefreshEntry(key).Encode())
		f.Add(AuthEntry(key, "header.payload.signature").Encode())
	}

	f.Fuzz(func(t *testing.T, input string) {
		e, err := DecodeEntry(input)
		if err != nil {
			return
		}

		if got := e.Encode(); got != input {
			t.Fatalf("roundtrip mismatch: %q -> %q", input, got)
		}
	})
}
