// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// sampleRecord stands in for a mesh record: flat numeric arrays plus
// scalar metadata, using cbor struct tags (the convention for purely
// internal types).
type sampleRecord struct {
	NumProp  int       `cbor:"numProp"`
	Verts    []float64 `cbor:"vertProperties"`
	TriVerts []uint32  `cbor:"triVerts"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{
		NumProp:  3,
		Verts:    []float64{0, 0, 0, 1, 0, 0, 0, 1, 0},
		TriVerts: []uint32{0, 1, 2},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.NumProp != original.NumProp ||
		len(decoded.Verts) != len(original.Verts) ||
		len(decoded.TriVerts) != len(original.TriVerts) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	record := map[string]any{
		"numProp": 3,
		"volume":  1000.0,
		"name":    "cube",
	}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("deterministic encoding produced different bytes for same value")
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	messages := []sampleRecord{
		{NumProp: 3, Verts: []float64{1, 2, 3}, TriVerts: []uint32{0, 0, 0}},
		{NumProp: 6, Verts: []float64{4, 5, 6}, TriVerts: []uint32{1, 1, 1}},
	}
	for _, m := range messages {
		if err := enc.Encode(m); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i := range messages {
		var got sampleRecord
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", i, err)
		}
		if got.NumProp != messages[i].NumProp {
			t.Errorf("message %d: numProp = %d, want %d", i, got.NumProp, messages[i].NumProp)
		}
	}
}

func TestCompressedBlobRoundtrip(t *testing.T) {
	// Large repetitive vertex data should compress well and survive
	// the round trip exactly.
	verts := make([]float64, 3000)
	for i := range verts {
		verts[i] = float64(i % 10)
	}
	original := sampleRecord{NumProp: 3, Verts: verts, TriVerts: []uint32{0, 1, 2}}

	blob, err := EncodeCompressed(original)
	if err != nil {
		t.Fatalf("EncodeCompressed: %v", err)
	}

	raw, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(blob) >= len(raw) {
		t.Errorf("compressed blob (%d bytes) not smaller than raw CBOR (%d bytes)", len(blob), len(raw))
	}

	var decoded sampleRecord
	if err := DecodeCompressed(blob, &decoded); err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if len(decoded.Verts) != len(original.Verts) {
		t.Fatalf("vertex count = %d, want %d", len(decoded.Verts), len(original.Verts))
	}
	for i := range decoded.Verts {
		if decoded.Verts[i] != original.Verts[i] {
			t.Fatalf("vertex %d = %v, want %v", i, decoded.Verts[i], original.Verts[i])
		}
	}
}
