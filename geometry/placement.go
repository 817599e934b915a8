// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
)

// Array3D replicates g on a rectangular grid: count[i] copies along
// axis i, spaced spacing[i] apart, all unioned. Counts below 1 are
// invalid.
func Array3D(g *kernel.Manifold, count [3]int, spacing [3]float64) (*kernel.Manifold, error) {
	for i, c := range count {
		if c < 1 {
			return nil, fault.Errorf(fault.InvalidParameter, "array3D count[%d] must be at least 1, got %d", i, c)
		}
	}

	result := g
	for i := 0; i < count[0]; i++ {
		for j := 0; j < count[1]; j++ {
			for k := 0; k < count[2]; k++ {
				if i == 0 && j == 0 && k == 0 {
					continue
				}
				copyG := g.Translate(float64(i)*spacing[0], float64(j)*spacing[1], float64(k)*spacing[2])
				combined, err := kernel.Union(result, copyG)
				if err != nil {
					return nil, fault.Errorf(fault.InvalidParameter, "array3D union: %w", err)
				}
				result = combined
			}
		}
	}
	return result, nil
}

// PolarArray replicates g count times around axis: each copy is
// offset radially by radius, then rotated to its angular station.
// The radial offset direction is the next axis in x→y→z→x order.
func PolarArray(g *kernel.Manifold, count int, radius float64, axis Axis) (*kernel.Manifold, error) {
	if count < 1 {
		return nil, fault.Errorf(fault.InvalidParameter, "polarArray count must be at least 1, got %d", count)
	}

	place := func(angleDeg float64) *kernel.Manifold {
		switch axis {
		case AxisX:
			return g.Translate(0, radius, 0).Rotate(angleDeg, 0, 0)
		case AxisY:
			return g.Translate(0, 0, radius).Rotate(0, angleDeg, 0)
		default:
			return g.Translate(radius, 0, 0).Rotate(0, 0, angleDeg)
		}
	}

	step := 360.0 / float64(count)
	result := place(0)
	for i := 1; i < count; i++ {
		combined, err := kernel.Union(result, place(float64(i)*step))
		if err != nil {
			return nil, fault.Errorf(fault.InvalidParameter, "polarArray union: %w", err)
		}
		result = combined
	}
	return result, nil
}

// Mirror reflects g through the origin plane with the given normal
// and unions the copy with the original. When the kernel cannot
// perform that union (the halves' interiors overlap, or the union
// comes out invalid), the mirrored copy alone is returned rather than
// failing.
func Mirror(g *kernel.Manifold, normal r3.Vec) *kernel.Manifold {
	mirrored := g.MirrorPlane(normal)
	if boxesOverlap(g.BoundingBox(), mirrored.BoundingBox()) {
		return mirrored
	}
	combined, err := kernel.Union(g, mirrored)
	if err != nil || combined.Status() != kernel.StatusValid {
		return mirrored
	}
	return combined
}

// boxesOverlap reports whether the boxes' interiors intersect.
// Touching faces do not count; a shared boundary plane still unions
// cleanly.
func boxesOverlap(a, b kernel.Box) bool {
	const eps = 1e-9
	for i := 0; i < 3; i++ {
		if a.Max[i] <= b.Min[i]+eps || b.Max[i] <= a.Min[i]+eps {
			return false
		}
	}
	return true
}

// Center translates g so its bounding-box center sits at the origin
// on the selected axes.
func Center(g *kernel.Manifold, x, y, z bool) *kernel.Manifold {
	c := g.BoundingBox().Center()
	var offset [3]float64
	if x {
		offset[0] = -c[0]
	}
	if y {
		offset[1] = -c[1]
	}
	if z {
		offset[2] = -c[2]
	}
	return g.Translate(offset[0], offset[1], offset[2])
}

// AlignSide selects which bounding-box feature Align positions.
type AlignSide int

const (
	AlignMin AlignSide = iota
	AlignCenter
	AlignMax
)

// Align translates g along axis so the selected bounding-box feature
// lands at the given coordinate.
func Align(g *kernel.Manifold, axis Axis, side AlignSide, to float64) *kernel.Manifold {
	box := g.BoundingBox()
	var current float64
	switch side {
	case AlignMin:
		current = box.Min[axis]
	case AlignMax:
		current = box.Max[axis]
	default:
		current = box.Center()[axis]
	}

	var offset [3]float64
	offset[axis] = to - current
	return g.Translate(offset[0], offset[1], offset[2])
}

// Dimensions is the bounding-box summary returned by GetDimensions.
type Dimensions struct {
	Size   [3]float64 `json:"size" cbor:"size"`
	Min    [3]float64 `json:"min" cbor:"min"`
	Max    [3]float64 `json:"max" cbor:"max"`
	Center [3]float64 `json:"center" cbor:"center"`
}

// GetDimensions returns g's bounding-box extents, corners and center.
func GetDimensions(g *kernel.Manifold) Dimensions {
	box := g.BoundingBox()
	return Dimensions{
		Size:   box.Size(),
		Min:    box.Min,
		Max:    box.Max,
		Center: box.Center(),
	}
}
