// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the canonical serialization for PartForge's
// internal data: deterministic CBOR for message envelopes and mesh
// records, plus zstd-framed blob helpers for the large mesh payloads
// handed to the persistence layer.
//
// The HTTP surface uses encoding/json directly; codec is for internal
// transfer where determinism (stable digests) and compactness matter.
package codec
