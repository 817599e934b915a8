// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// trimEpsilon classifies vertices lying numerically on the cut plane.
const trimEpsilon = 1e-9

// TrimByPlane cuts the solid by the plane dot(p, normal) = offset,
// removing everything on the normal side and capping the cut face.
// The receiver is unchanged; trimming is a preview operation.
func (m *Manifold) TrimByPlane(normal r3.Vec, offset float64) (*Manifold, error) {
	if r3.Norm(normal) == 0 {
		return nil, fmt.Errorf("trim plane normal must be nonzero")
	}
	n := r3.Unit(normal)

	var verts []r3.Vec
	var tris [][3]uint32
	vertIndex := make(map[[3]float64]uint32)

	// Deduplicate on quantized position so cut edges share vertices
	// and the capped result can be watertight.
	addVert := func(v r3.Vec) uint32 {
		k := quantizeKey(v)
		if idx, ok := vertIndex[k]; ok {
			return idx
		}
		idx := uint32(len(verts))
		vertIndex[k] = idx
		verts = append(verts, v)
		return idx
	}
	addTri := func(a, b, c r3.Vec) {
		ia, ib, ic := addVert(a), addVert(b), addVert(c)
		if ia == ib || ib == ic || ic == ia {
			return
		}
		tris = append(tris, [3]uint32{ia, ib, ic})
	}

	// Directed cut segments, inherited from the outward orientation
	// of the kept surface. Chained into loops for the cap below.
	var cuts []cutSegment

	dist := func(v r3.Vec) float64 { return r3.Dot(v, n) - offset }

	// Interpolating from the lower-indexed endpoint makes the cut
	// point bitwise identical for the two triangles sharing an edge,
	// so the quantized dedup always welds them.
	cutPoint := func(ii, jj uint32, vi, vj r3.Vec, di, dj float64) r3.Vec {
		if ii > jj {
			ii, jj = jj, ii
			vi, vj = vj, vi
			di, dj = dj, di
		}
		frac := di / (di - dj)
		return r3.Add(vi, r3.Scale(frac, r3.Sub(vj, vi)))
	}

	for _, t := range m.tris {
		tri := [3]r3.Vec{m.verts[t[0]], m.verts[t[1]], m.verts[t[2]]}
		d := [3]float64{dist(tri[0]), dist(tri[1]), dist(tri[2])}

		inside := 0
		for _, dd := range d {
			if dd < trimEpsilon {
				inside++
			}
		}
		if inside == 3 {
			addTri(tri[0], tri[1], tri[2])
			continue
		}
		if inside == 0 {
			continue
		}

		// Mixed triangle: clip against the half-space. Walking the
		// original (outward) winding keeps the kept polygon outward.
		var kept []r3.Vec
		var onPlane []int // positions of cut points within kept
		for i := 0; i < 3; i++ {
			j := (i + 1) % 3
			vi, vj := tri[i], tri[j]
			di, dj := d[i], d[j]
			if di < trimEpsilon {
				kept = append(kept, vi)
			}
			if (di < -trimEpsilon && dj > trimEpsilon) || (di > trimEpsilon && dj < -trimEpsilon) {
				cut := cutPoint(t[i], t[j], vi, vj, di, dj)
				onPlane = append(onPlane, len(kept))
				kept = append(kept, cut)
			}
		}
		for i := 1; i+1 < len(kept); i++ {
			addTri(kept[0], kept[i], kept[i+1])
		}
		// The chord lies on the kept polygon's boundary edge that
		// connects the two cut points in winding order.
		if len(onPlane) == 2 {
			a, b := onPlane[0], onPlane[1]
			if (a+1)%len(kept) == b {
				cuts = append(cuts, cutSegment{from: kept[a], to: kept[b]})
			} else if (b+1)%len(kept) == a {
				cuts = append(cuts, cutSegment{from: kept[b], to: kept[a]})
			}
		}
	}

	if len(tris) == 0 {
		return nil, fmt.Errorf("trim plane removes the entire geometry")
	}

	// Cap each closed cut loop. The loop direction inherited from the
	// walls bounds the hole; the cap reuses it reversed, which in the
	// (u, v, n) basis means winding counter-clockwise, facing +n.
	u := vmathPerp(n)
	v := r3.Cross(n, u)
	for _, loop := range chainLoops(cuts) {
		if len(loop) < 3 {
			continue
		}
		poly := make([]Vec2, len(loop))
		for i, p := range loop {
			poly[i] = Vec2{X: r3.Dot(p, u), Y: r3.Dot(p, v)}
		}
		// Normalize polygon and loop together to counter-clockwise.
		if signedArea(poly) < 0 {
			for i, j := 0, len(poly)-1; i < j; i, j = i+1, j-1 {
				poly[i], poly[j] = poly[j], poly[i]
				loop[i], loop[j] = loop[j], loop[i]
			}
		}
		cs := CrossSection{points: poly}
		for _, t := range cs.triangulate() {
			addTri(loop[t[0]], loop[t[1]], loop[t[2]])
		}
	}

	return newManifold(verts, tris, nil), nil
}

type cutSegment struct{ from, to r3.Vec }

// chainLoops joins directed segments end-to-start into closed loops.
// Chains that cannot be closed are dropped.
func chainLoops(segments []cutSegment) [][]r3.Vec {
	byStart := make(map[[3]float64]int, len(segments))
	used := make([]bool, len(segments))
	for i, s := range segments {
		byStart[quantizeKey(s.from)] = i
	}

	var loops [][]r3.Vec
	for i := range segments {
		if used[i] {
			continue
		}
		var loop []r3.Vec
		current := i
		start := segments[i].from
		for {
			used[current] = true
			loop = append(loop, segments[current].from)
			next := segments[current].to
			if quantizeKey(next) == quantizeKey(start) {
				loops = append(loops, loop)
				break
			}
			idx, ok := byStart[quantizeKey(next)]
			if !ok || used[idx] {
				break // open chain, drop
			}
			current = idx
		}
	}
	return loops
}

const quantizePitch = 1e-9

func quantizeKey(v r3.Vec) [3]float64 {
	return [3]float64{
		math.Round(v.X / quantizePitch),
		math.Round(v.Y / quantizePitch),
		math.Round(v.Z / quantizePitch),
	}
}

// vmathPerp returns a stable unit vector perpendicular to n. Kept
// local so the kernel has no dependency on the math helpers built on
// top of it.
func vmathPerp(n r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	var axis r3.Vec
	switch {
	case ax <= ay && ax <= az:
		axis = r3.Vec{X: 1}
	case ay <= az:
		axis = r3.Vec{Y: 1}
	default:
		axis = r3.Vec{Z: 1}
	}
	return r3.Unit(r3.Sub(axis, r3.Scale(r3.Dot(axis, n), n)))
}
