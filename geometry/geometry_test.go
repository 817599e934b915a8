// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/lib/vmath"
)

func withinRelative(got, want, tolerance float64) bool {
	return math.Abs(got-want) <= tolerance*math.Abs(want)
}

func TestShellToolDimensions(t *testing.T) {
	cube := kernel.Cube([3]float64{10, 10, 10}, false)

	tool, err := Shell(cube, 1, AxisZ)
	if err != nil {
		t.Fatalf("Shell: %v", err)
	}

	dims := GetDimensions(tool)
	if !withinRelative(dims.Size[0], 8, 1e-9) || !withinRelative(dims.Size[1], 8, 1e-9) {
		t.Errorf("cross size = %v,%v, want 8,8", dims.Size[0], dims.Size[1])
	}
	if !withinRelative(dims.Size[2], 9, 1e-9) {
		t.Errorf("axis size = %v, want 9", dims.Size[2])
	}
	// Flush with the minimum face: the wall at the top measures the
	// requested thickness, the cross walls measure it on each side.
	if math.Abs(dims.Min[2]) > 1e-9 {
		t.Errorf("tool min z = %v, want 0", dims.Min[2])
	}
	if !withinRelative(dims.Min[0], 1, 1e-9) || !withinRelative(dims.Max[0], 9, 1e-9) {
		t.Errorf("tool x bounds = [%v, %v], want [1, 9]", dims.Min[0], dims.Max[0])
	}

	hollowed, err := kernel.Difference(cube, tool)
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if got, want := hollowed.Volume(), 1000-8*8*9.0; !withinRelative(got, want, 1e-9) {
		t.Errorf("hollowed volume = %v, want %v", got, want)
	}
}

func TestShellRejectsOversizedThickness(t *testing.T) {
	cube := kernel.Cube([3]float64{10, 10, 10}, false)
	for _, thickness := range []float64{5, 6, 0, -1} {
		_, err := Shell(cube, thickness, AxisZ)
		if !fault.HasCode(err, fault.InvalidParameter) {
			t.Errorf("thickness %v: err = %v, want InvalidParameter", thickness, err)
		}
	}
}

func TestAddDraftFrustumVolume(t *testing.T) {
	cube := kernel.Cube([3]float64{10, 10, 10}, false)

	angle := math.Atan(0.2) * 180 / math.Pi
	drafted, err := AddDraft(cube, angle, AxisZ)
	if err != nil {
		t.Fatalf("AddDraft: %v", err)
	}
	if drafted.Status() != kernel.StatusValid {
		t.Fatalf("status = %v", drafted.Status())
	}

	// taper = 10·tan(angle) = 2 per side: 10×10 base, 6×6 top.
	want := 10.0 / 3 * (100 + 36 + 60)
	if got := drafted.Volume(); !withinRelative(got, want, 1e-9) {
		t.Errorf("volume = %v, want %v", got, want)
	}

	dims := GetDimensions(drafted)
	if !withinRelative(dims.Size[0], 10, 1e-9) {
		t.Errorf("base width = %v, want 10 (full scale at axis minimum)", dims.Size[0])
	}
}

func TestAddDraftRejectsInvertingAngle(t *testing.T) {
	cube := kernel.Cube([3]float64{10, 10, 10}, false)
	_, err := AddDraft(cube, 45, AxisZ)
	if !fault.HasCode(err, fault.InvalidParameter) {
		t.Errorf("err = %v, want InvalidParameter", err)
	}
}

func straightPath(length float64) *vmath.Path {
	dir := r3.Unit(r3.Vec{X: 1, Y: 2, Z: 2})
	return &vmath.Path{
		Position:   func(t float64) r3.Vec { return r3.Scale(t*length, dir) },
		Derivative: func(t float64) r3.Vec { return r3.Scale(length, dir) },
		TMin:       0,
		TMax:       1,
	}
}

func TestSweepStraightLineVolume(t *testing.T) {
	const (
		radius = 2.0
		length = 20.0
	)
	profile := kernel.Circle(radius, 64)

	for _, mode := range []FrameMode{FrameRotationMinimizing, FrameFrenet} {
		swept, err := Sweep(profile, straightPath(length), SweepOptions{Frame: mode})
		if err != nil {
			t.Fatalf("frame %v: Sweep: %v", mode, err)
		}
		if swept.Status() != kernel.StatusValid {
			t.Fatalf("frame %v: status = %v", mode, swept.Status())
		}
		want := math.Pi * radius * radius * length
		if got := swept.Volume(); !withinRelative(got, want, 0.01) {
			t.Errorf("frame %v: volume = %v, want ≈ %v", mode, got, want)
		}
	}
}

func TestSweepDegeneratePath(t *testing.T) {
	stationary := &vmath.Path{
		Position: func(t float64) r3.Vec { return r3.Vec{X: 1, Y: 2, Z: 3} },
		TMin:     0,
		TMax:     1,
	}
	_, err := Sweep(kernel.Circle(1, 16), stationary, SweepOptions{})
	if !fault.HasCode(err, fault.DegeneratePath) {
		t.Errorf("err = %v, want DegeneratePath", err)
	}
}

func TestSweepPointsClosedRing(t *testing.T) {
	const ringRadius = 10.0
	points := make([]r3.Vec, 8)
	for i := range points {
		angle := 2 * math.Pi * float64(i) / 8
		points[i] = r3.Vec{X: ringRadius * math.Cos(angle), Y: ringRadius * math.Sin(angle)}
	}

	swept, err := SweepPoints(kernel.Circle(1, 32), points, SweepOptions{Closed: true})
	if err != nil {
		t.Fatalf("SweepPoints: %v", err)
	}

	// The seam's coincident start and end sections cancel in the
	// signed volume, so a gap or offset would show up here.
	want := 2 * math.Pi * ringRadius * math.Pi
	if got := swept.Volume(); !withinRelative(got, want, 0.05) {
		t.Errorf("volume = %v, want ≈ %v", got, want)
	}

	dims := GetDimensions(swept)
	if !withinRelative(dims.Max[0], -dims.Min[0], 0.02) {
		t.Errorf("ring not symmetric: x bounds [%v, %v]", dims.Min[0], dims.Max[0])
	}
}

func TestSweepPointsNeedsTwoPoints(t *testing.T) {
	_, err := SweepPoints(kernel.Circle(1, 16), []r3.Vec{{X: 1}}, SweepOptions{})
	if !fault.HasCode(err, fault.InvalidParameter) {
		t.Errorf("err = %v, want InvalidParameter", err)
	}
}

func TestLoftFrustum(t *testing.T) {
	profile := kernel.Circle(5, 32)

	solid, err := Loft(profile, profile, 3, LoftOptions{TopScale: 0.5})
	if err != nil {
		t.Fatalf("Loft: %v", err)
	}

	// Frustum of the 32-gon prism: A₀·h·(1 + s + s²)/3 with s = 0.5.
	baseArea := 0.5 * 32 * 25 * math.Sin(2*math.Pi/32)
	want := baseArea * 3 * (1 + 0.5 + 0.25) / 3
	if got := solid.Volume(); !withinRelative(got, want, 0.02) {
		t.Errorf("volume = %v, want ≈ %v", got, want)
	}

	dims := GetDimensions(solid)
	if !withinRelative(dims.Size[2], 3, 1e-9) {
		t.Errorf("height = %v, want 3", dims.Size[2])
	}
}

func TestLoftTwistPreservesVolume(t *testing.T) {
	profile := kernel.Circle(4, 48)

	plain, err := Loft(profile, profile, 10, LoftOptions{})
	if err != nil {
		t.Fatalf("Loft: %v", err)
	}
	twisted, err := Loft(profile, profile, 10, LoftOptions{TwistDegrees: 90})
	if err != nil {
		t.Fatalf("Loft twisted: %v", err)
	}
	if !withinRelative(twisted.Volume(), plain.Volume(), 0.05) {
		t.Errorf("twisted volume = %v, plain %v", twisted.Volume(), plain.Volume())
	}
}

func TestLoftAlignedRectangles(t *testing.T) {
	bottom := kernel.Rectangle(8, 2)
	top := kernel.Rectangle(8, 2)

	solid, err := Loft(top, bottom, 5, LoftOptions{Align: true, Resolution: 128})
	if err != nil {
		t.Fatalf("Loft: %v", err)
	}
	// Identical contours align at zero offset: a straight prism.
	if got, want := solid.Volume(), 8*2*5.0; !withinRelative(got, want, 0.03) {
		t.Errorf("volume = %v, want ≈ %v", got, want)
	}
}

func TestLoftRejectsOffOriginProfile(t *testing.T) {
	offset, err := kernel.Polygon([]kernel.Vec2{{X: 10, Y: 10}, {X: 12, Y: 10}, {X: 12, Y: 12}, {X: 10, Y: 12}})
	if err != nil {
		t.Fatalf("Polygon: %v", err)
	}
	_, err = Loft(offset, offset, 5, LoftOptions{})
	if !fault.HasCode(err, fault.InvalidParameter) {
		t.Errorf("err = %v, want InvalidParameter", err)
	}
}

func TestArray3D(t *testing.T) {
	cube := kernel.Cube([3]float64{1, 1, 1}, false)

	grid, err := Array3D(cube, [3]int{2, 2, 1}, [3]float64{3, 3, 3})
	if err != nil {
		t.Fatalf("Array3D: %v", err)
	}
	if got := grid.Volume(); !withinRelative(got, 4, 1e-9) {
		t.Errorf("volume = %v, want 4", got)
	}
	dims := GetDimensions(grid)
	if !withinRelative(dims.Max[0], 4, 1e-9) || !withinRelative(dims.Max[1], 4, 1e-9) {
		t.Errorf("bounds = %+v", dims.Max)
	}

	if _, err := Array3D(cube, [3]int{0, 1, 1}, [3]float64{}); !fault.HasCode(err, fault.InvalidParameter) {
		t.Errorf("zero count: err = %v, want InvalidParameter", err)
	}
}

func TestPolarArray(t *testing.T) {
	cube := kernel.Cube([3]float64{1, 1, 1}, true)

	ringed, err := PolarArray(cube, 4, 10, AxisZ)
	if err != nil {
		t.Fatalf("PolarArray: %v", err)
	}
	if got := ringed.Volume(); !withinRelative(got, 4, 1e-9) {
		t.Errorf("volume = %v, want 4", got)
	}
	dims := GetDimensions(ringed)
	if !withinRelative(dims.Max[0], 10.5, 1e-9) || !withinRelative(dims.Min[0], -10.5, 1e-9) {
		t.Errorf("x bounds = [%v, %v]", dims.Min[0], dims.Max[0])
	}
}

func TestMirrorDisjointUnions(t *testing.T) {
	cube := kernel.Cube([3]float64{1, 1, 1}, false).Translate(1, 0, 0)

	combined := Mirror(cube, r3.Vec{X: 1})
	if got := combined.Volume(); !withinRelative(got, 2, 1e-9) {
		t.Errorf("volume = %v, want 2", got)
	}
	dims := GetDimensions(combined)
	if !withinRelative(dims.Min[0], -2, 1e-9) || !withinRelative(dims.Max[0], 2, 1e-9) {
		t.Errorf("x bounds = [%v, %v]", dims.Min[0], dims.Max[0])
	}
}

func TestMirrorFallsBackWhenUnionImpossible(t *testing.T) {
	// A cube symmetric about the mirror plane: the union of the two
	// coincident halves is not a valid manifold, so the mirrored copy
	// alone comes back.
	cube := kernel.Cube([3]float64{2, 2, 2}, true)

	mirrored := Mirror(cube, r3.Vec{X: 1})
	if got := mirrored.Volume(); !withinRelative(got, 8, 1e-9) {
		t.Errorf("volume = %v, want 8 (mirrored copy alone)", got)
	}
	if mirrored.Status() != kernel.StatusValid {
		t.Errorf("status = %v", mirrored.Status())
	}
}

func TestCenterAndAlign(t *testing.T) {
	cube := kernel.Cube([3]float64{2, 4, 6}, false)

	centered := Center(cube, true, true, false)
	dims := GetDimensions(centered)
	if math.Abs(dims.Center[0]) > 1e-9 || math.Abs(dims.Center[1]) > 1e-9 {
		t.Errorf("center = %+v", dims.Center)
	}
	if math.Abs(dims.Min[2]) > 1e-9 {
		t.Errorf("z min = %v, want unchanged 0", dims.Min[2])
	}

	aligned := Align(cube, AxisX, AlignMax, 0)
	if got := GetDimensions(aligned).Max[0]; math.Abs(got) > 1e-9 {
		t.Errorf("aligned max x = %v, want 0", got)
	}
}

func TestGetDimensions(t *testing.T) {
	cube := kernel.Cube([3]float64{2, 4, 6}, true)
	dims := GetDimensions(cube)
	if dims.Size != [3]float64{2, 4, 6} {
		t.Errorf("size = %v", dims.Size)
	}
	if dims.Center != [3]float64{0, 0, 0} {
		t.Errorf("center = %v", dims.Center)
	}
}

func TestTubeVolume(t *testing.T) {
	tube, err := Tube(10, 8, 5, 32)
	if err != nil {
		t.Fatalf("Tube: %v", err)
	}
	if tube.Status() != kernel.StatusValid {
		t.Fatalf("status = %v", tube.Status())
	}
	want := math.Pi * (100 - 64) * 5
	if got := tube.Volume(); !withinRelative(got, want, 0.02) {
		t.Errorf("volume = %v, want ≈ %v within 2%%", got, want)
	}
}

func TestTubeRejectsInnerNotBelowOuter(t *testing.T) {
	for _, inner := range []float64{10, 12} {
		_, err := Tube(10, inner, 5, 32)
		if !fault.HasCode(err, fault.InvalidParameter) {
			t.Errorf("inner %v: err = %v, want InvalidParameter", inner, err)
		}
	}
}

func TestHexPrismVolume(t *testing.T) {
	hex, err := HexPrism(4, 10)
	if err != nil {
		t.Fatalf("HexPrism: %v", err)
	}
	want := 1.5 * math.Sqrt(3) * 16 * 10
	if got := hex.Volume(); !withinRelative(got, want, 1e-9) {
		t.Errorf("volume = %v, want %v", got, want)
	}
}

func TestRoundedBox(t *testing.T) {
	box, err := RoundedBox([3]float64{10, 10, 10}, 2, 32)
	if err != nil {
		t.Fatalf("RoundedBox: %v", err)
	}
	if box.Status() != kernel.StatusValid {
		t.Fatalf("status = %v", box.Status())
	}

	dims := GetDimensions(box)
	for i := 0; i < 3; i++ {
		if !withinRelative(dims.Size[i], 10, 1e-9) {
			t.Errorf("size[%d] = %v, want 10", i, dims.Size[i])
		}
	}

	// Inner box + face slabs + quarter-cylinder edges + sphere corners.
	want := 216 + 432 + 12*(math.Pi*4/4)*6 + 4.0/3*math.Pi*8
	if got := box.Volume(); !withinRelative(got, want, 0.03) {
		t.Errorf("volume = %v, want ≈ %v", got, want)
	}
}

func TestRoundedBoxRejectsOversizedRadius(t *testing.T) {
	_, err := RoundedBox([3]float64{4, 10, 10}, 3, 32)
	if !fault.HasCode(err, fault.InvalidParameter) {
		t.Errorf("err = %v, want InvalidParameter", err)
	}
}

func TestHelperNamesComplete(t *testing.T) {
	names := HelperNames()
	if len(names) != 14 {
		t.Fatalf("helper count = %d, want 14", len(names))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate helper name %q", n)
		}
		seen[n] = true
	}
}
