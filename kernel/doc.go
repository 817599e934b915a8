// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package kernel is the geometry kernel behind the script sandbox: a
// triangle-mesh solid representation with constructors, affine and
// warp transforms, composition booleans, half-space trimming, derived
// quantities (volume, surface area, bounding box), manifold validity
// checking, and the transferable MeshGL record.
//
// The API mirrors the contract of a native CSG kernel so the rest of
// the system treats it as a fixed dependency. Booleans are shell
// compositions: Union expects disjoint operands and Difference expects
// the tool to be contained in the target. Those are the only patterns
// the helper library and the import pipeline produce; volumes, bounds
// and serialization are exact for them. A full intersecting-boolean
// kernel can replace the implementation without changing callers.
//
// Manifold values are immutable: every operation returns a new value
// and never mutates its receiver or arguments.
package kernel
