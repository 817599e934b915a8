// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Merge welds vertices with exactly equal positions and drops the
// triangles that become degenerate. Converter output routinely
// duplicates vertices per face; welding restores shared edges so the
// manifold check can pass. Returns a new manifold with recomputed
// status.
func (m *Manifold) Merge() *Manifold {
	return m.weld(func(v r3.Vec) [3]float64 {
		return [3]float64{v.X, v.Y, v.Z}
	})
}

// MergeTolerance welds vertices whose positions agree within the
// given tolerance, by snapping coordinates to a grid of that pitch.
// The second rung of the import repair ladder, for meshes with
// near-coincident seam vertices.
func (m *Manifold) MergeTolerance(tolerance float64) *Manifold {
	if tolerance <= 0 {
		return m.Merge()
	}
	return m.weld(func(v r3.Vec) [3]float64 {
		return [3]float64{
			math.Round(v.X / tolerance),
			math.Round(v.Y / tolerance),
			math.Round(v.Z / tolerance),
		}
	})
}

// Repair runs the import repair ladder: the mesh as-is, then an exact
// weld, then a tolerance weld, stopping at the first valid manifold.
// The boolean reports whether any rung succeeded; defects welding
// cannot fix (non-finite vertices, true topology errors) return the
// original manifold and false.
func (m *Manifold) Repair(tolerance float64) (*Manifold, bool) {
	if m.status == StatusValid {
		return m, true
	}
	if welded := m.Merge(); welded.status == StatusValid {
		return welded, true
	}
	if welded := m.MergeTolerance(tolerance); welded.status == StatusValid {
		return welded, true
	}
	return m, false
}

// weld rebuilds the mesh with vertices grouped by the given position
// key. The first vertex of each group keeps its original position.
func (m *Manifold) weld(key func(r3.Vec) [3]float64) *Manifold {
	remap := make([]uint32, len(m.verts))
	byKey := make(map[[3]float64]uint32, len(m.verts))
	var verts []r3.Vec

	for i, v := range m.verts {
		k := key(v)
		if idx, ok := byKey[k]; ok {
			remap[i] = idx
			continue
		}
		idx := uint32(len(verts))
		byKey[k] = idx
		verts = append(verts, v)
		remap[i] = idx
	}

	var tris [][3]uint32
	for _, t := range m.tris {
		a, b, c := remap[t[0]], remap[t[1]], remap[t[2]]
		if a == b || b == c || c == a {
			continue // collapsed by welding
		}
		tris = append(tris, [3]uint32{a, b, c})
	}

	return newManifold(verts, tris, nil)
}
