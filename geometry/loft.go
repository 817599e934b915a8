// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/lib/vmath"
)

// LoftOptions tunes Loft. The zero value lofts without twist or
// scaling at the default resolution.
type LoftOptions struct {
	// TwistDegrees rotates the top contour relative to the bottom,
	// ramped linearly over the height.
	TwistDegrees float64

	// TopScale scales the top contour about the origin. Zero means 1.
	TopScale float64

	// Align rotationally aligns the top contour to the bottom by
	// brute-force search over Resolution rotation steps, minimizing
	// the summed squared radial distance.
	Align bool

	// Resolution is the number of equal arc-length samples taken on
	// each contour. Defaults to 64.
	Resolution int
}

func (o LoftOptions) resolution() int {
	if o.Resolution < 8 {
		return 64
	}
	return o.Resolution
}

func (o LoftOptions) topScale() float64 {
	if o.TopScale == 0 {
		return 1
	}
	return o.TopScale
}

// Loft interpolates from the bottom profile at z=0 to the top profile
// at z=height. Both contours are resampled to Resolution equal
// arc-length-spaced points and converted to radius-by-angle tables
// about the origin; a straight extrusion of the bottom profile is
// then warped by per-angle radial interpolation between the two, plus
// the optional twist ramp. Both profiles must enclose the origin.
func Loft(top, bottom kernel.CrossSection, height float64, opts LoftOptions) (*kernel.Manifold, error) {
	if height <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, "loft height must be positive, got %v", height)
	}
	if top.NumPoints() < 3 || bottom.NumPoints() < 3 {
		return nil, fault.New(fault.InvalidParameter, "loft profiles need at least 3 points")
	}

	res := opts.resolution()
	bottomPts := resampleContour(bottom.Points(), res)
	topPts := resampleContour(top.Points(), res)

	scale := opts.topScale()
	if scale <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, "loft topScale must be positive, got %v", opts.TopScale)
	}
	for i := range topPts {
		topPts[i].X *= scale
		topPts[i].Y *= scale
	}

	bottomPolar, err := polarTable(bottomPts)
	if err != nil {
		return nil, err
	}
	topPolar, err := polarTable(topPts)
	if err != nil {
		return nil, err
	}

	// Alignment is a rotation of the top contour; in the per-angle
	// radial form that is an angular offset applied when sampling it.
	var alignOffset float64
	if opts.Align {
		alignOffset = bestAlignment(bottomPolar, topPolar, res)
	}

	steps := res / 4
	if steps < 8 {
		steps = 8
	}
	straight, err := kernel.ExtrudeSteps(bottom, height, steps)
	if err != nil {
		return nil, fault.Errorf(fault.InvalidParameter, "loft: %w", err)
	}

	twist := opts.TwistDegrees * math.Pi / 180
	warped := straight.Warp(func(v r3.Vec) r3.Vec {
		f := vmath.Clamp(v.Z/height, 0, 1)
		theta := math.Atan2(v.Y, v.X)
		radius := math.Hypot(v.X, v.Y)

		rBottom := bottomPolar.radiusAt(theta)
		rTop := topPolar.radiusAt(theta + alignOffset)
		// Scale relative to the bottom contour so interior structure
		// (if any) interpolates proportionally.
		newRadius := radius * vmath.Lerp(1, rTop/rBottom, f)

		phi := theta + twist*f
		return r3.Vec{X: newRadius * math.Cos(phi), Y: newRadius * math.Sin(phi), Z: v.Z}
	})
	if warped.Status() != kernel.StatusValid {
		return nil, fault.Errorf(fault.InvalidParameter, "loft produced invalid geometry: %v", warped.Status())
	}
	return warped, nil
}

// resampleContour walks the closed contour emitting n points at equal
// arc-length spacing, starting at the first input point.
func resampleContour(pts []kernel.Vec2, n int) []kernel.Vec2 {
	m := len(pts)
	cumulative := make([]float64, m+1)
	for i := 0; i < m; i++ {
		next := pts[(i+1)%m]
		cumulative[i+1] = cumulative[i] + math.Hypot(next.X-pts[i].X, next.Y-pts[i].Y)
	}
	total := cumulative[m]

	out := make([]kernel.Vec2, n)
	seg := 0
	for i := 0; i < n; i++ {
		target := total * float64(i) / float64(n)
		for seg+1 < m && cumulative[seg+1] < target {
			seg++
		}
		segLen := cumulative[seg+1] - cumulative[seg]
		frac := 0.0
		if segLen > 0 {
			frac = (target - cumulative[seg]) / segLen
		}
		a, b := pts[seg], pts[(seg+1)%m]
		out[i] = kernel.Vec2{
			X: vmath.Lerp(a.X, b.X, frac),
			Y: vmath.Lerp(a.Y, b.Y, frac),
		}
	}
	return out
}

// polar is a radius-by-angle table over [-π, π), sorted by angle and
// sampled with wraparound interpolation. It assumes the contour is
// star-shaped about the origin.
type polar struct {
	angles []float64
	radii  []float64
}

func polarTable(pts []kernel.Vec2) (*polar, error) {
	type sample struct{ angle, radius float64 }
	samples := make([]sample, len(pts))
	for i, p := range pts {
		r := math.Hypot(p.X, p.Y)
		if r < 1e-12 {
			return nil, fault.New(fault.InvalidParameter, "loft profiles must enclose the origin")
		}
		samples[i] = sample{angle: math.Atan2(p.Y, p.X), radius: r}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].angle < samples[j].angle })

	t := &polar{
		angles: make([]float64, len(samples)),
		radii:  make([]float64, len(samples)),
	}
	for i, s := range samples {
		t.angles[i] = s.angle
		t.radii[i] = s.radius
	}
	return t, nil
}

func (p *polar) radiusAt(theta float64) float64 {
	// Wrap into [-π, π).
	theta = math.Mod(theta+math.Pi, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	theta -= math.Pi

	n := len(p.angles)
	i := sort.SearchFloat64s(p.angles, theta)
	// Neighbors with wraparound; j precedes i in angle order.
	j := i - 1
	if j < 0 {
		j = n - 1
	}
	if i == n {
		i = 0
	}

	a0, a1 := p.angles[j], p.angles[i]
	span := a1 - a0
	if span <= 0 {
		span += 2 * math.Pi
	}
	offset := theta - a0
	if offset < 0 {
		offset += 2 * math.Pi
	}
	if span < 1e-12 {
		return p.radii[j]
	}
	return vmath.Lerp(p.radii[j], p.radii[i], offset/span)
}

// bestAlignment searches steps uniform angular offsets for the one
// minimizing the summed squared radial distance between the contours.
func bestAlignment(bottom, top *polar, steps int) float64 {
	best, bestCost := 0.0, math.Inf(1)
	for k := 0; k < steps; k++ {
		offset := 2 * math.Pi * float64(k) / float64(steps)
		var cost float64
		for i := 0; i < steps; i++ {
			theta := 2*math.Pi*float64(i)/float64(steps) - math.Pi
			d := top.radiusAt(theta+offset) - bottom.radiusAt(theta)
			cost += d * d
		}
		if cost < bestCost {
			best, bestCost = offset, cost
		}
	}
	return best
}
