// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
)

// Tube returns a hollow cylinder sitting on z=0: an outer cylinder
// with an inner one subtracted.
func Tube(outerRadius, innerRadius, height float64, segments int) (*kernel.Manifold, error) {
	if outerRadius <= 0 || innerRadius <= 0 || height <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter,
			"tube dimensions must be positive, got outer %v inner %v height %v", outerRadius, innerRadius, height)
	}
	if innerRadius >= outerRadius {
		return nil, fault.Errorf(fault.InvalidParameter,
			"tube inner radius %v must be below outer radius %v", innerRadius, outerRadius)
	}

	outer := kernel.Cylinder(height, outerRadius, outerRadius, segments, false)
	inner := kernel.Cylinder(height, innerRadius, innerRadius, segments, false)
	result, err := kernel.Difference(outer, inner)
	if err != nil {
		return nil, fault.Errorf(fault.InvalidParameter, "tube: %w", err)
	}
	return result, nil
}

// HexPrism returns a hexagonal prism sitting on z=0 with the given
// circumradius (a 6-segment cylinder).
func HexPrism(radius, height float64) (*kernel.Manifold, error) {
	if radius <= 0 || height <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter,
			"hexPrism dimensions must be positive, got radius %v height %v", radius, height)
	}
	return kernel.Cylinder(height, radius, radius, 6, false), nil
}

// RoundedBox returns a box of the given outer size, centered on the
// origin, with edges and corners rounded at the given radius: the
// Minkowski sum of an inner box with a sphere, built by splitting a
// sphere into octants and pulling them apart to the inner box's
// corners. segments is the sphere resolution (rounded up to a
// multiple of 4 so the octant seams land on the coordinate planes).
func RoundedBox(size [3]float64, radius float64, segments int) (*kernel.Manifold, error) {
	minSize := math.Min(size[0], math.Min(size[1], size[2]))
	if minSize <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, "roundedBox size must be positive, got %v", size)
	}
	if radius <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, "roundedBox radius must be positive, got %v", radius)
	}
	if 2*radius > minSize {
		return nil, fault.Errorf(fault.InvalidParameter,
			"roundedBox radius %v must not exceed half the smallest extent %v", radius, minSize)
	}

	half := [3]float64{size[0]/2 - radius, size[1]/2 - radius, size[2]/2 - radius}
	shift := func(c, h float64) float64 {
		if c > 0 {
			return c + h
		}
		if c < 0 {
			return c - h
		}
		return c
	}

	sphere := kernel.Sphere(radius, segments)
	return sphere.Warp(func(v r3.Vec) r3.Vec {
		return r3.Vec{
			X: shift(v.X, half[0]),
			Y: shift(v.Y, half[1]),
			Z: shift(v.Z, half[2]),
		}
	}), nil
}
