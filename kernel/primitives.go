// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Cube returns an axis-aligned box with the given edge lengths. When
// center is true the box is centered on the origin, otherwise its
// minimum corner sits at the origin.
func Cube(size [3]float64, center bool) *Manifold {
	var lo, hi r3.Vec
	if center {
		lo = r3.Vec{X: -size[0] / 2, Y: -size[1] / 2, Z: -size[2] / 2}
		hi = r3.Vec{X: size[0] / 2, Y: size[1] / 2, Z: size[2] / 2}
	} else {
		hi = r3.Vec{X: size[0], Y: size[1], Z: size[2]}
	}

	verts := []r3.Vec{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, // 0
		{X: hi.X, Y: lo.Y, Z: lo.Z}, // 1
		{X: hi.X, Y: hi.Y, Z: lo.Z}, // 2
		{X: lo.X, Y: hi.Y, Z: lo.Z}, // 3
		{X: lo.X, Y: lo.Y, Z: hi.Z}, // 4
		{X: hi.X, Y: lo.Y, Z: hi.Z}, // 5
		{X: hi.X, Y: hi.Y, Z: hi.Z}, // 6
		{X: lo.X, Y: hi.Y, Z: hi.Z}, // 7
	}
	tris := [][3]uint32{
		{0, 2, 1}, {0, 3, 2}, // bottom (z = lo)
		{4, 5, 6}, {4, 6, 7}, // top (z = hi)
		{0, 1, 5}, {0, 5, 4}, // front (y = lo)
		{2, 3, 7}, {2, 7, 6}, // back (y = hi)
		{1, 2, 6}, {1, 6, 5}, // right (x = hi)
		{3, 0, 4}, {3, 4, 7}, // left (x = lo)
	}
	return newManifold(verts, tris, nil)
}

// Cylinder returns a frustum of the given height with radiusLow at
// z=0 and radiusHigh at z=height (radiusHigh defaults to radiusLow
// when negative). segments is the circumference division (minimum 3;
// 6 gives a hexagonal prism). When center is true, the solid is
// centered on the origin instead of sitting on z=0.
func Cylinder(height, radiusLow, radiusHigh float64, segments int, center bool) *Manifold {
	if segments < 3 {
		segments = 3
	}
	if radiusHigh < 0 {
		radiusHigh = radiusLow
	}

	zLo := 0.0
	if center {
		zLo = -height / 2
	}
	zHi := zLo + height

	var verts []r3.Vec
	var tris [][3]uint32

	ring := func(radius, z float64) []uint32 {
		idx := make([]uint32, segments)
		for i := 0; i < segments; i++ {
			angle := 2 * math.Pi * float64(i) / float64(segments)
			idx[i] = uint32(len(verts))
			verts = append(verts, r3.Vec{X: radius * math.Cos(angle), Y: radius * math.Sin(angle), Z: z})
		}
		return idx
	}

	bottom := ring(radiusLow, zLo)

	apex := radiusHigh == 0
	var top []uint32
	var apexIdx uint32
	if apex {
		apexIdx = uint32(len(verts))
		verts = append(verts, r3.Vec{Z: zHi})
	} else {
		top = ring(radiusHigh, zHi)
	}

	// Bottom cap, wound downward.
	bottomCenter := uint32(len(verts))
	verts = append(verts, r3.Vec{Z: zLo})
	for i := 0; i < segments; i++ {
		j := (i + 1) % segments
		tris = append(tris, [3]uint32{bottomCenter, bottom[j], bottom[i]})
	}

	if apex {
		for i := 0; i < segments; i++ {
			j := (i + 1) % segments
			tris = append(tris, [3]uint32{bottom[i], bottom[j], apexIdx})
		}
	} else {
		// Side wall.
		for i := 0; i < segments; i++ {
			j := (i + 1) % segments
			tris = append(tris,
				[3]uint32{bottom[i], bottom[j], top[j]},
				[3]uint32{bottom[i], top[j], top[i]})
		}
		// Top cap, wound upward.
		topCenter := uint32(len(verts))
		verts = append(verts, r3.Vec{Z: zHi})
		for i := 0; i < segments; i++ {
			j := (i + 1) % segments
			tris = append(tris, [3]uint32{topCenter, top[i], top[j]})
		}
	}

	return newManifold(verts, tris, nil)
}

// Sphere returns a UV sphere of the given radius centered on the
// origin. segments is the equatorial division; it is rounded up to a
// multiple of 4 so vertices land exactly on the coordinate planes
// (the rounded-box construction depends on that).
func Sphere(radius float64, segments int) *Manifold {
	if segments < 4 {
		segments = 4
	}
	if segments%4 != 0 {
		segments += 4 - segments%4
	}
	stacks := segments / 2

	var verts []r3.Vec
	var tris [][3]uint32

	southIdx := uint32(len(verts))
	verts = append(verts, r3.Vec{Z: -radius})
	northIdx := uint32(1)
	verts = append(verts, r3.Vec{Z: radius})

	// Interior rings from south to north.
	rings := make([][]uint32, 0, stacks-1)
	for s := 1; s < stacks; s++ {
		phi := math.Pi*float64(s)/float64(stacks) - math.Pi/2
		z := radius * math.Sin(phi)
		r := radius * math.Cos(phi)
		ringIdx := make([]uint32, segments)
		for i := 0; i < segments; i++ {
			angle := 2 * math.Pi * float64(i) / float64(segments)
			ringIdx[i] = uint32(len(verts))
			verts = append(verts, r3.Vec{X: r * math.Cos(angle), Y: r * math.Sin(angle), Z: z})
		}
		rings = append(rings, ringIdx)
	}

	first, last := rings[0], rings[len(rings)-1]
	for i := 0; i < segments; i++ {
		j := (i + 1) % segments
		tris = append(tris, [3]uint32{southIdx, first[j], first[i]})
		tris = append(tris, [3]uint32{northIdx, last[i], last[j]})
	}
	for s := 0; s+1 < len(rings); s++ {
		lower, upper := rings[s], rings[s+1]
		for i := 0; i < segments; i++ {
			j := (i + 1) % segments
			tris = append(tris,
				[3]uint32{lower[i], lower[j], upper[j]},
				[3]uint32{lower[i], upper[j], upper[i]})
		}
	}

	return newManifold(verts, tris, nil)
}

// Extrude sweeps the cross-section straight along +Z from z=0 to
// z=height, capping both ends.
func Extrude(cs CrossSection, height float64) (*Manifold, error) {
	return ExtrudeSteps(cs, height, 1)
}

// ExtrudeSteps extrudes like Extrude but subdivides the wall into
// steps rings along Z, so a later Warp can bend the solid along a
// path without faceting artifacts.
func ExtrudeSteps(cs CrossSection, height float64, steps int) (*Manifold, error) {
	n := cs.NumPoints()
	if n < 3 {
		return nil, fmt.Errorf("extrude needs a cross-section with at least 3 points")
	}
	if height <= 0 {
		return nil, fmt.Errorf("extrude height must be positive, got %v", height)
	}
	if steps < 1 {
		steps = 1
	}

	pts := cs.Points()
	verts := make([]r3.Vec, 0, (steps+1)*n)
	for s := 0; s <= steps; s++ {
		z := height * float64(s) / float64(steps)
		for _, p := range pts {
			verts = append(verts, r3.Vec{X: p.X, Y: p.Y, Z: z})
		}
	}

	var tris [][3]uint32
	topBase := steps * n
	for _, t := range cs.triangulate() {
		// Bottom cap faces -Z: reverse the CCW triangulation.
		tris = append(tris, [3]uint32{uint32(t[0]), uint32(t[2]), uint32(t[1])})
		// Top cap faces +Z.
		tris = append(tris, [3]uint32{uint32(t[0] + topBase), uint32(t[1] + topBase), uint32(t[2] + topBase)})
	}
	for s := 0; s < steps; s++ {
		lower, upper := s*n, (s+1)*n
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			tris = append(tris,
				[3]uint32{uint32(lower + i), uint32(lower + j), uint32(upper + j)},
				[3]uint32{uint32(lower + i), uint32(upper + j), uint32(upper + i)})
		}
	}

	return newManifold(verts, tris, nil), nil
}

// Revolve rotates the cross-section a full turn around the Z axis,
// mapping each section point (x, y) to (x·cosθ, x·sinθ, y). Every
// point must satisfy x > 0 (the profile may not touch the axis);
// segments is the angular division (minimum 3).
func Revolve(cs CrossSection, segments int) (*Manifold, error) {
	if segments < 3 {
		segments = 3
	}
	pts := cs.Points()
	for _, p := range pts {
		if p.X <= 0 {
			return nil, fmt.Errorf("revolve profile must have x > 0, got x = %v", p.X)
		}
	}

	n := len(pts)
	verts := make([]r3.Vec, 0, n*segments)
	for s := 0; s < segments; s++ {
		angle := 2 * math.Pi * float64(s) / float64(segments)
		cos, sin := math.Cos(angle), math.Sin(angle)
		for _, p := range pts {
			verts = append(verts, r3.Vec{X: p.X * cos, Y: p.X * sin, Z: p.Y})
		}
	}

	var tris [][3]uint32
	for s := 0; s < segments; s++ {
		next := (s + 1) % segments
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			a := uint32(s*n + i)
			b := uint32(s*n + j)
			c := uint32(next*n + j)
			d := uint32(next*n + i)
			// Profile CCW in the (radial, z) plane plus increasing θ
			// puts the outward face on the a→d→c side.
			tris = append(tris, [3]uint32{a, d, c}, [3]uint32{a, c, b})
		}
	}

	return newManifold(verts, tris, nil), nil
}
