// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package vmath

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func line(from, to r3.Vec) *Path {
	dir := r3.Sub(to, from)
	return &Path{
		Position:   func(t float64) r3.Vec { return r3.Add(from, r3.Scale(t, dir)) },
		Derivative: func(t float64) r3.Vec { return dir },
		TMin:       0,
		TMax:       1,
	}
}

func helix(radius, pitch float64) *Path {
	return &Path{
		Position: func(t float64) r3.Vec {
			return r3.Vec{X: radius * math.Cos(t), Y: radius * math.Sin(t), Z: pitch * t}
		},
		Derivative: func(t float64) r3.Vec {
			return r3.Vec{X: -radius * math.Sin(t), Y: radius * math.Cos(t), Z: pitch}
		},
		TMin: 0,
		TMax: 4 * math.Pi,
	}
}

func TestArcLengthStraightLine(t *testing.T) {
	path := line(r3.Vec{}, r3.Vec{X: 3, Y: 4})
	table := BuildArcLengthTable(path, 64)

	if got := table.Total(); math.Abs(got-5) > 1e-9 {
		t.Errorf("Total = %v, want 5", got)
	}

	// Halfway along the length must be halfway in parameter for a
	// constant-speed path.
	if got := table.ParamAt(2.5); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("ParamAt(2.5) = %v, want 0.5", got)
	}
}

func TestArcLengthHelix(t *testing.T) {
	// Helix speed is constant sqrt(r² + pitch²), so total length is
	// exact even under trapezoidal integration.
	path := helix(2, 0.5)
	table := BuildArcLengthTable(path, 200)
	want := math.Sqrt(4+0.25) * 4 * math.Pi
	if got := table.Total(); math.Abs(got-want) > 1e-6 {
		t.Errorf("Total = %v, want %v", got, want)
	}
}

func TestArcLengthParamAtClamps(t *testing.T) {
	table := BuildArcLengthTable(line(r3.Vec{}, r3.Vec{X: 1}), 8)
	if got := table.ParamAt(-1); got != 0 {
		t.Errorf("ParamAt(-1) = %v, want 0", got)
	}
	if got := table.ParamAt(100); got != 1 {
		t.Errorf("ParamAt(100) = %v, want 1", got)
	}
}

func TestNumericDerivativeFallback(t *testing.T) {
	path := &Path{
		Position: func(t float64) r3.Vec { return r3.Vec{X: t * t} },
		TMin:     0,
		TMax:     1,
	}
	v := path.Velocity(0.5)
	if math.Abs(v.X-1.0) > 1e-4 {
		t.Errorf("numeric Velocity(0.5).X = %v, want 1", v.X)
	}
}

func checkOrthonormal(t *testing.T, f Frame) {
	t.Helper()
	if math.Abs(r3.Norm(f.Tangent)-1) > 1e-9 ||
		math.Abs(r3.Norm(f.Normal)-1) > 1e-9 ||
		math.Abs(r3.Norm(f.Binormal)-1) > 1e-6 {
		t.Fatalf("frame vectors not unit length: %+v", f)
	}
	if math.Abs(r3.Dot(f.Tangent, f.Normal)) > 1e-9 {
		t.Fatalf("tangent and normal not orthogonal: %+v", f)
	}
}

func TestFrenetFrameOnCircle(t *testing.T) {
	circle := &Path{
		Position: func(t float64) r3.Vec {
			return r3.Vec{X: math.Cos(t), Y: math.Sin(t)}
		},
		Derivative: func(t float64) r3.Vec {
			return r3.Vec{X: -math.Sin(t), Y: math.Cos(t)}
		},
		SecondDerivative: func(t float64) r3.Vec {
			return r3.Vec{X: -math.Cos(t), Y: -math.Sin(t)}
		},
		TMin: 0, TMax: 2 * math.Pi,
	}

	f := FrenetFrame(circle, 0)
	checkOrthonormal(t, f)
	// At t=0 the circle's normal points toward the center: -X.
	if math.Abs(f.Normal.X+1) > 1e-9 {
		t.Errorf("Normal = %+v, want -X", f.Normal)
	}
}

func TestFrenetFrameDegenerateFallback(t *testing.T) {
	straight := line(r3.Vec{}, r3.Vec{Z: 10})
	f := FrenetFrame(straight, 0.5)
	checkOrthonormal(t, f)
	// No NaNs on a zero-curvature path.
	if math.IsNaN(f.Normal.X) || math.IsNaN(f.Normal.Y) || math.IsNaN(f.Normal.Z) {
		t.Error("degenerate path produced NaN normal")
	}
}

func TestRMFNoTwistOnStraightPath(t *testing.T) {
	path := line(r3.Vec{}, r3.Vec{Z: 10})
	set := RotationMinimizingFrames(path, 32)

	first := set.At(0)
	for _, u := range []float64{0.25, 0.5, 0.75, 1} {
		f := set.At(u)
		checkOrthonormal(t, f)
		if r3.Dot(f.Normal, first.Normal) < 1-1e-6 {
			t.Errorf("normal twisted on straight path at t=%v: %+v vs %+v", u, f.Normal, first.Normal)
		}
	}
}

func TestRMFContinuousOnHelix(t *testing.T) {
	set := RotationMinimizingFrames(helix(2, 0.5), 256)

	// Consecutive frames along a smooth path must stay close; the
	// RMF property that Frenet frames violate at inflections.
	prev := set.At(0)
	for i := 1; i <= 100; i++ {
		f := set.At(float64(i) / 100 * 4 * math.Pi)
		checkOrthonormal(t, f)
		if r3.Dot(f.Normal, prev.Normal) < 0.9 {
			t.Fatalf("frame jump at step %d: dot = %v", i, r3.Dot(f.Normal, prev.Normal))
		}
		prev = f
	}
}

func TestCatmullRomInterpolatesPoints(t *testing.T) {
	points := []r3.Vec{
		{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 3, Y: 3}, {X: 5, Y: 0},
	}
	path, err := CatmullRom(points, false)
	if err != nil {
		t.Fatalf("CatmullRom: %v", err)
	}

	// The spline passes through every input point at uniform
	// parameter values.
	for i, want := range points {
		u := float64(i) / float64(len(points)-1)
		got := path.Position(u)
		if r3.Norm(r3.Sub(got, want)) > 1e-9 {
			t.Errorf("Position(%v) = %+v, want %+v", u, got, want)
		}
	}
}

func TestCatmullRomClosedWrapsAround(t *testing.T) {
	points := []r3.Vec{
		{X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: -1},
	}
	path, err := CatmullRom(points, true)
	if err != nil {
		t.Fatalf("CatmullRom: %v", err)
	}

	start := path.Position(0)
	end := path.Position(1)
	if r3.Norm(r3.Sub(start, end)) > 1e-9 {
		t.Errorf("closed spline has a seam: start %+v, end %+v", start, end)
	}
}

func TestCatmullRomRejectsSinglePoint(t *testing.T) {
	if _, err := CatmullRom([]r3.Vec{{X: 1}}, false); err == nil {
		t.Error("expected error for a single point")
	}
}

func TestPerpendicularBasis(t *testing.T) {
	for _, v := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, r3.Unit(r3.Vec{X: 1, Y: 2, Z: 3})} {
		p := PerpendicularBasis(v)
		if math.Abs(r3.Dot(p, v)) > 1e-9 {
			t.Errorf("PerpendicularBasis(%+v) = %+v not perpendicular", v, p)
		}
		if math.Abs(r3.Norm(p)-1) > 1e-9 {
			t.Errorf("PerpendicularBasis(%+v) = %+v not unit", v, p)
		}
	}
}
