// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Serialized mesh records for high-resolution models run to tens of
// megabytes of mostly-redundant float text; the persistence layer
// stores them as opaque blobs. EncodeCompressed produces the blob
// format: deterministic CBOR wrapped in a zstd frame.

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	// Concurrency 1: encoders are shared package-level state and the
	// EncodeAll/DecodeAll paths are already safe for concurrent use.
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeCompressed marshals v to CBOR and compresses it into a zstd
// frame. The output is self-describing: DecodeCompressed needs no
// length or dictionary out of band.
func EncodeCompressed(v any) ([]byte, error) {
	raw, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding blob: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// DecodeCompressed decompresses a zstd frame and unmarshals the CBOR
// content into v.
func DecodeCompressed(data []byte, v any) error {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompressing blob: %w", err)
	}
	if err := Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding blob: %w", err)
	}
	return nil
}
