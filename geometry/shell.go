// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
)

// Shell returns the inner tool that, subtracted from g, leaves walls
// of the given thickness. The two cross axes are scaled by a single
// ratio derived from the smaller cross extent, preserving the
// cross-section shape; the shell axis is shortened by one thickness.
// The tool is positioned flush with g's minimum face along axis, so
// the subtracted result is open at that face.
func Shell(g *kernel.Manifold, thickness float64, axis Axis) (*kernel.Manifold, error) {
	if thickness <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, "shell thickness must be positive, got %v", thickness)
	}

	box := g.BoundingBox()
	size := box.Size()
	a, b := axis.cross()
	minCross := math.Min(size[a], size[b])
	if thickness >= minCross/2 {
		return nil, fault.Errorf(fault.InvalidParameter,
			"shell thickness %v must be below half the minimum cross extent %v", thickness, minCross)
	}
	if size[axis] <= thickness {
		return nil, fault.Errorf(fault.InvalidParameter,
			"shell thickness %v leaves no interior along %v (extent %v)", thickness, axis, size[axis])
	}

	ratio := (minCross - 2*thickness) / minCross
	axisRatio := (size[axis] - thickness) / size[axis]

	var factors [3]float64
	factors[a], factors[b] = ratio, ratio
	factors[axis] = axisRatio
	tool := g.Scale(factors[0], factors[1], factors[2])

	// Flush with the minimum face along axis, centered on the cross
	// axes.
	tb := tool.BoundingBox()
	oc, tc := box.Center(), tb.Center()
	var offset [3]float64
	offset[a] = oc[a] - tc[a]
	offset[b] = oc[b] - tc[b]
	offset[axis] = box.Min[axis] - tb.Min[axis]
	return tool.Translate(offset[0], offset[1], offset[2]), nil
}

// AddDraft applies a linear taper along axis: full scale at the axis
// minimum, shrinking toward the maximum by height·tan(angle) per
// side, each cross axis scaled symmetrically about its own center.
func AddDraft(g *kernel.Manifold, angleDegrees float64, axis Axis) (*kernel.Manifold, error) {
	if angleDegrees <= 0 || angleDegrees >= 90 {
		return nil, fault.Errorf(fault.InvalidParameter, "draft angle must be in (0, 90) degrees, got %v", angleDegrees)
	}

	box := g.BoundingBox()
	size := box.Size()
	height := size[axis]
	if height <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, "geometry has no extent along %v", axis)
	}

	a, b := axis.cross()
	taper := height * math.Tan(angleDegrees*math.Pi/180)
	minCross := math.Min(size[a], size[b])
	if 2*taper >= minCross {
		return nil, fault.Errorf(fault.InvalidParameter,
			"draft of %v degrees over height %v would invert the cross-section", angleDegrees, height)
	}

	center := box.Center()
	scaleAt := func(extent, f float64) float64 {
		if extent <= 0 {
			return 1
		}
		return (extent - 2*taper*f) / extent
	}

	return g.Warp(func(v r3.Vec) r3.Vec {
		c := [3]float64{v.X, v.Y, v.Z}
		f := (c[axis] - box.Min[axis]) / height
		c[a] = center[a] + (c[a]-center[a])*scaleAt(size[a], f)
		c[b] = center[b] + (c[b]-center[b])*scaleAt(size[b], f)
		return r3.Vec{X: c[0], Y: c[1], Z: c[2]}
	}), nil
}
