// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"fmt"
	"math"
)

// Vec2 is a 2D point in a cross-section's local plane.
type Vec2 struct {
	X, Y float64
}

// CrossSection is a simple (non-self-intersecting) 2D polygon used as
// extrusion, revolve, and sweep input. The boundary is stored in
// counter-clockwise order.
type CrossSection struct {
	points []Vec2
}

// Polygon builds a cross-section from a boundary point list. The
// winding is normalized to counter-clockwise. At least 3 points are
// required.
func Polygon(points []Vec2) (CrossSection, error) {
	if len(points) < 3 {
		return CrossSection{}, fmt.Errorf("polygon needs at least 3 points, got %d", len(points))
	}
	pts := make([]Vec2, len(points))
	copy(pts, points)
	if signedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return CrossSection{points: pts}, nil
}

// Circle builds a regular polygon approximating a circle of the
// given radius with the given segment count (minimum 3).
func Circle(radius float64, segments int) CrossSection {
	if segments < 3 {
		segments = 3
	}
	pts := make([]Vec2, segments)
	for i := range pts {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		pts[i] = Vec2{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}
	return CrossSection{points: pts}
}

// Rectangle builds a w×h rectangle centered on the origin.
func Rectangle(w, h float64) CrossSection {
	return CrossSection{points: []Vec2{
		{-w / 2, -h / 2}, {w / 2, -h / 2}, {w / 2, h / 2}, {-w / 2, h / 2},
	}}
}

// Points returns a copy of the boundary in counter-clockwise order.
func (c CrossSection) Points() []Vec2 {
	out := make([]Vec2, len(c.points))
	copy(out, c.points)
	return out
}

// NumPoints returns the boundary point count.
func (c CrossSection) NumPoints() int { return len(c.points) }

// Area returns the enclosed area.
func (c CrossSection) Area() float64 { return signedArea(c.points) }

func signedArea(pts []Vec2) float64 {
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// triangulate ear-clips the polygon into triangles over the boundary
// point indices. The boundary must be simple and counter-clockwise.
func (c CrossSection) triangulate() [][3]int {
	n := len(c.points)
	if n < 3 {
		return nil
	}

	// Working index list; ears are clipped until a triangle remains.
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	var tris [][3]int
	guard := 0
	for len(indices) > 3 && guard < n*n {
		guard++
		clipped := false
		for i := 0; i < len(indices); i++ {
			prev := indices[(i+len(indices)-1)%len(indices)]
			curr := indices[i]
			next := indices[(i+1)%len(indices)]
			if c.isEar(prev, curr, next, indices) {
				tris = append(tris, [3]int{prev, curr, next})
				indices = append(indices[:i], indices[i+1:]...)
				clipped = true
				break
			}
		}
		if !clipped {
			// Degenerate geometry (collinear runs). Fall back to a
			// fan to stay total; area-zero slivers are harmless for
			// extrusion caps.
			break
		}
	}
	if len(indices) >= 3 {
		for i := 1; i+1 < len(indices); i++ {
			tris = append(tris, [3]int{indices[0], indices[i], indices[i+1]})
		}
	}
	return tris
}

func (c CrossSection) isEar(prev, curr, next int, indices []int) bool {
	a, b, d := c.points[prev], c.points[curr], c.points[next]

	// Reflex corner cannot be an ear.
	if cross2(sub2(b, a), sub2(d, b)) <= 0 {
		return false
	}

	// No remaining vertex may lie inside the candidate ear.
	for _, idx := range indices {
		if idx == prev || idx == curr || idx == next {
			continue
		}
		if pointInTriangle(c.points[idx], a, b, d) {
			return false
		}
	}
	return true
}

func sub2(a, b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }

func cross2(a, b Vec2) float64 { return a.X*b.Y - a.Y*b.X }

func pointInTriangle(p, a, b, c Vec2) bool {
	d1 := cross2(sub2(b, a), sub2(p, a))
	d2 := cross2(sub2(c, b), sub2(p, b))
	d3 := cross2(sub2(a, c), sub2(p, c))
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
