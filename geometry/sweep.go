// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/lib/vmath"
)

// FrameMode selects the orientation-frame strategy for sweeps.
type FrameMode int

const (
	// FrameRotationMinimizing propagates frames by double reflection,
	// avoiding twist discontinuities. The default.
	FrameRotationMinimizing FrameMode = iota

	// FrameFrenet derives frames from curvature, falling back to a
	// stable arbitrary normal where curvature vanishes.
	FrameFrenet
)

// SweepOptions tunes Sweep and SweepPoints. The zero value selects
// rotation-minimizing frames with default sampling.
type SweepOptions struct {
	// Frame is the orientation-frame strategy.
	Frame FrameMode

	// ArcSamples is the resolution of the arc-length table; the speed
	// is integrated over ArcSamples+1 uniform parameter steps.
	// Defaults to 256.
	ArcSamples int

	// Segments is the number of profile rings along the path.
	// Defaults to ArcSamples.
	Segments int

	// Closed treats SweepPoints input as a closed loop: the spline
	// wraps around instead of reflecting phantom endpoints.
	Closed bool
}

// minArcLength is the degeneracy threshold for a sweep path's total
// arc length.
const minArcLength = 1e-9

func (o SweepOptions) arcSamples() int {
	if o.ArcSamples < 1 {
		return 256
	}
	return o.ArcSamples
}

func (o SweepOptions) segments() int {
	if o.Segments < 1 {
		return o.arcSamples()
	}
	return o.Segments
}

// Sweep extrudes the profile straight to the path's total arc length,
// then bends it along the path: each vertex is mapped by looking up
// its arc-length position's parameter, evaluating the orientation
// frame there, and placing the profile's local (x, y) in the frame's
// normal/binormal plane at the path position.
func Sweep(profile kernel.CrossSection, path *vmath.Path, opts SweepOptions) (*kernel.Manifold, error) {
	if profile.NumPoints() < 3 {
		return nil, fault.Errorf(fault.InvalidParameter, "sweep profile needs at least 3 points, got %d", profile.NumPoints())
	}
	if path == nil || path.Position == nil {
		return nil, fault.New(fault.InvalidParameter, "sweep path must provide a position function")
	}

	table := vmath.BuildArcLengthTable(path, opts.arcSamples())
	length := table.Total()
	if length < minArcLength {
		return nil, fault.Errorf(fault.DegeneratePath, "sweep path arc length %v is below %v", length, minArcLength)
	}

	var frameAt func(t float64) vmath.Frame
	switch opts.Frame {
	case FrameFrenet:
		frameAt = func(t float64) vmath.Frame { return vmath.FrenetFrame(path, t) }
	default:
		set := vmath.RotationMinimizingFrames(path, opts.arcSamples())
		frameAt = set.At
	}

	straight, err := kernel.ExtrudeSteps(profile, length, opts.segments())
	if err != nil {
		return nil, fault.Errorf(fault.InvalidParameter, "sweep: %w", err)
	}

	return straight.Warp(func(v r3.Vec) r3.Vec {
		t := table.ParamAt(v.Z)
		f := frameAt(t)
		p := path.Position(t)
		p = r3.Add(p, r3.Scale(v.X, f.Normal))
		return r3.Add(p, r3.Scale(v.Y, f.Binormal))
	}), nil
}

// SweepPoints fits a Catmull-Rom spline through the points (wrapping
// around when opts.Closed) and sweeps the profile along it.
func SweepPoints(profile kernel.CrossSection, points []r3.Vec, opts SweepOptions) (*kernel.Manifold, error) {
	if len(points) < 2 {
		return nil, fault.Errorf(fault.InvalidParameter, "sweepPoints needs at least 2 points, got %d", len(points))
	}
	path, err := vmath.CatmullRom(points, opts.Closed)
	if err != nil {
		return nil, fault.Errorf(fault.InvalidParameter, "sweepPoints: %w", err)
	}
	return Sweep(profile, path, opts)
}
