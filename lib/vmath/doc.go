// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package vmath provides the pure numeric routines underneath the
// geometry helper library: path specifications, arc-length tables,
// Frenet and rotation-minimizing orientation frames, and Catmull-Rom
// interpolation. Vectors are gonum's spatial/r3.Vec. Nothing in this
// package holds state between calls.
package vmath
