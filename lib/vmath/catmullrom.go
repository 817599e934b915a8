// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package vmath

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// CatmullRom fits a uniform Catmull-Rom spline through the given
// points and returns it as a Path parameterized over [0, 1] with
// analytic derivatives.
//
// Open splines get reflected phantom endpoints (2·p₀ − p₁ before the
// first point, 2·pₙ₋₁ − pₙ₋₂ after the last) so the curve passes
// through all input points. Closed splines wrap around instead and
// return to the first point. At least two points are required.
func CatmullRom(points []r3.Vec, closed bool) (*Path, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("catmull-rom spline needs at least 2 points, got %d", len(points))
	}

	// control returns the control point at logical index i, which may
	// be -1 or len(points)(+1) for phantom/wrapped access.
	n := len(points)
	control := func(i int) r3.Vec {
		if closed {
			return points[((i%n)+n)%n]
		}
		if i < 0 {
			return r3.Sub(r3.Scale(2, points[0]), points[1])
		}
		if i >= n {
			return r3.Sub(r3.Scale(2, points[n-1]), points[n-2])
		}
		return points[i]
	}

	segments := n - 1
	if closed {
		segments = n
	}

	// locate maps global t in [0,1] to a segment index and local u.
	locate := func(t float64) (int, float64) {
		t = Clamp(t, 0, 1)
		scaled := t * float64(segments)
		seg := int(scaled)
		if seg >= segments {
			seg = segments - 1
		}
		return seg, scaled - float64(seg)
	}

	position := func(t float64) r3.Vec {
		seg, u := locate(t)
		p0, p1, p2, p3 := control(seg-1), control(seg), control(seg+1), control(seg+2)

		u2 := u * u
		u3 := u2 * u
		// Standard uniform Catmull-Rom basis (tension 0.5).
		c0 := -0.5*u3 + u2 - 0.5*u
		c1 := 1.5*u3 - 2.5*u2 + 1
		c2 := -1.5*u3 + 2*u2 + 0.5*u
		c3 := 0.5*u3 - 0.5*u2

		out := r3.Scale(c0, p0)
		out = r3.Add(out, r3.Scale(c1, p1))
		out = r3.Add(out, r3.Scale(c2, p2))
		out = r3.Add(out, r3.Scale(c3, p3))
		return out
	}

	derivative := func(t float64) r3.Vec {
		seg, u := locate(t)
		p0, p1, p2, p3 := control(seg-1), control(seg), control(seg+1), control(seg+2)

		u2 := u * u
		d0 := -1.5*u2 + 2*u - 0.5
		d1 := 4.5*u2 - 5*u
		d2 := -4.5*u2 + 4*u + 0.5
		d3 := 1.5*u2 - u

		out := r3.Scale(d0, p0)
		out = r3.Add(out, r3.Scale(d1, p1))
		out = r3.Add(out, r3.Scale(d2, p2))
		out = r3.Add(out, r3.Scale(d3, p3))
		// Chain rule: local u runs segments-times faster than t.
		return r3.Scale(float64(segments), out)
	}

	return &Path{
		Position:   position,
		Derivative: derivative,
		TMin:       0,
		TMax:       1,
	}, nil
}
