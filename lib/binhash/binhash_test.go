// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"bytes"
	"testing"

	"github.com/zeebo/blake3"
)

func TestHashReader(t *testing.T) {
	content := []byte("hello, partforge")

	got, err := HashReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}

	want := blake3.Sum256(content)
	if got != want {
		t.Errorf("HashReader = %x, want %x", got, want)
	}
}

func TestHashReaderEmpty(t *testing.T) {
	got, err := HashReader(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}

	want := blake3.Sum256(nil)
	if got != want {
		t.Errorf("HashReader(empty) = %x, want %x", got, want)
	}
}

func TestHashReaderLarge(t *testing.T) {
	// Ensure streaming works for inputs larger than typical buffers.
	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i % 251) // Prime modulus to avoid simple patterns.
	}

	got, err := HashReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}

	want := blake3.Sum256(content)
	if got != want {
		t.Errorf("HashReader(large) = %x, want %x", got, want)
	}
}

func TestHashBytesMatchesReader(t *testing.T) {
	content := []byte("determinism check")

	fromReader, err := HashReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if fromBytes := HashBytes(content); fromBytes != fromReader {
		t.Errorf("HashBytes = %x, HashReader = %x", fromBytes, fromReader)
	}
}

func TestHashDifferentContent(t *testing.T) {
	hash1 := HashBytes([]byte("content A"))
	hash2 := HashBytes([]byte("content B"))
	if hash1 == hash2 {
		t.Error("different inputs should produce different hashes")
	}
}

func TestFormatDigest(t *testing.T) {
	digest := HashBytes([]byte("test"))
	formatted := FormatDigest(digest)
	if length := len(formatted); length != 64 {
		t.Errorf("FormatDigest length = %d, want 64", length)
	}
}

func TestParseDigestRoundTrip(t *testing.T) {
	original := HashBytes([]byte("round-trip"))
	formatted := FormatDigest(original)

	parsed, err := ParseDigest(formatted)
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != original {
		t.Errorf("ParseDigest round-trip failed: %x != %x", parsed, original)
	}
}

func TestParseDigestInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{"too short", "abcd"},
		{"too long", "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789aa"},
		{"empty", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseDigest(test.input)
			if err == nil {
				t.Errorf("ParseDigest(%q) should fail", test.input)
			}
		})
	}
}
