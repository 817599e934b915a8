// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// computeStatus classifies a mesh: finite vertices, in-range indices,
// and edge-manifoldness. Edge-manifold means every directed edge
// appears exactly once, so every undirected edge is shared by exactly
// two triangles with opposite orientation. Multiple disjoint shells
// (outer surface plus inverted cavity shells) pass, which is what the
// composition booleans produce.
func computeStatus(verts []r3.Vec, tris [][3]uint32) Status {
	for _, v := range verts {
		if !isFinite(v.X) || !isFinite(v.Y) || !isFinite(v.Z) {
			return StatusNonFiniteVertex
		}
	}

	numVert := uint32(len(verts))
	for _, t := range tris {
		if t[0] >= numVert || t[1] >= numVert || t[2] >= numVert {
			return StatusVertexOutOfBounds
		}
	}

	// Count directed edges. A watertight oriented mesh has every
	// directed edge exactly once and its reverse exactly once.
	type edge struct{ a, b uint32 }
	seen := make(map[edge]int, len(tris)*3)
	for _, t := range tris {
		edges := [3]edge{{t[0], t[1]}, {t[1], t[2]}, {t[2], t[0]}}
		for _, e := range edges {
			if e.a == e.b {
				return StatusNotManifold
			}
			seen[e]++
			if seen[e] > 1 {
				return StatusNotManifold
			}
		}
	}
	for e := range seen {
		if seen[edge{e.b, e.a}] != 1 {
			return StatusNotManifold
		}
	}

	return StatusValid
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
