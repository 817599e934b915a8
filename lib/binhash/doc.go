// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides BLAKE3 content hashing for uploaded files.
//
// The conversion pipeline digests every uploaded CAD file before
// running the converter. The digest names the per-request temp
// directory and correlates log lines across the pipeline, so repeated
// uploads of the same file are recognizable in logs without storing
// the file itself.
//
// The API surface is three functions:
//
//   - [HashReader] -- streams a reader through BLAKE3, returning a
//     [32]byte digest with constant memory usage
//   - [FormatDigest] -- converts a [32]byte digest to its canonical
//     hex-encoded string representation, used in temp names and logs
//   - [ParseDigest] -- parses a hex-encoded digest string back to a
//     [32]byte array, validating length and encoding
//
// This package has no dependencies on other PartForge packages.
package binhash
