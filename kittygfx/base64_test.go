package kittygfx

import (
	"bytes"
	"testing"
)

func TestBase64RoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		[]byte("hello, kitty"),
		bytes.Repeat([]byte{0xff, 0x00, 0x7f}, 100),
	}
	for _, c := range cases {
		enc := base64Encode(c)
		got := base64Decode(enc)
		if !bytes.Equal(got, c) && !(len(got) == 0 && len(c) == 0) {
			t.Fatalf("round trip mismatch for %v: got %v", c, got)
		}
	}
}

func TestBase64DecodeSkipsWhitespace(t *testing.T) {
	enc := base64Encode([]byte("kitty graphics"))
	var wrapped []byte
	for i, b := range enc {
		wrapped = append(wrapped, b)
		if i%4 == 3 {
			wrapped = append(wrapped, '\n')
		}
	}
	got := base64Decode(wrapped)
	if string(got) != "kitty graphics" {
		t.Fatalf("got %q, want %q", got, "kitty graphics")
	}
}

func TestBase64DecodeStopsAtPadding(t *testing.T) {
	got := base64Decode([]byte("aGk=garbage"))
	if string(got) != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}
