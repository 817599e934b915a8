// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package vmath

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// curvatureEpsilon is the squared-norm threshold below which the
// normal direction from the Frenet construction is considered
// degenerate (straight path segment or inflection point).
const curvatureEpsilon = 1e-12

// Frame is a right-handed orthonormal orientation frame along a
// path: Binormal = Tangent × Normal.
type Frame struct {
	Tangent  r3.Vec
	Normal   r3.Vec
	Binormal r3.Vec
}

// FrenetFrame evaluates the Frenet-Serret frame at parameter t. The
// normal comes from the acceleration component perpendicular to the
// tangent; at zero-curvature points (where the Frenet frame is
// undefined and flips discontinuously) it falls back to a stable
// arbitrary normal.
func FrenetFrame(path *Path, t float64) Frame {
	tangent := r3.Unit(path.Velocity(t))

	accel := path.Acceleration(t)
	// Project out the tangential component; what remains points
	// toward the center of curvature.
	normal := r3.Sub(accel, r3.Scale(r3.Dot(accel, tangent), tangent))
	if r3.Norm2(normal) < curvatureEpsilon {
		normal = PerpendicularBasis(tangent)
	} else {
		normal = r3.Unit(normal)
	}

	return Frame{
		Tangent:  tangent,
		Normal:   normal,
		Binormal: r3.Cross(tangent, normal),
	}
}

// FrameSet is a sequence of frames sampled at uniform parameter
// values, queried by interpolation.
type FrameSet struct {
	tMin, tMax float64
	frames     []Frame
}

// RotationMinimizingFrames propagates an initial frame along the path
// by the double reflection method (Wang et al.), which avoids the
// twist discontinuities of the Frenet frame. samples+1 frames are
// computed at uniform parameter steps.
func RotationMinimizingFrames(path *Path, samples int) *FrameSet {
	if samples < 1 {
		samples = 1
	}
	step := (path.TMax - path.TMin) / float64(samples)

	frames := make([]Frame, samples+1)

	t0 := path.TMin
	tangent := r3.Unit(path.Velocity(t0))
	normal := PerpendicularBasis(tangent)
	frames[0] = Frame{Tangent: tangent, Normal: normal, Binormal: r3.Cross(tangent, normal)}

	position := path.Position(t0)
	for i := 1; i <= samples; i++ {
		t := path.TMin + float64(i)*step
		nextPosition := path.Position(t)
		nextTangent := r3.Unit(path.Velocity(t))

		// First reflection: across the plane bisecting the segment
		// between consecutive sample points.
		v1 := r3.Sub(nextPosition, position)
		c1 := r3.Norm2(v1)
		var reflectedNormal, reflectedTangent r3.Vec
		if c1 < curvatureEpsilon {
			reflectedNormal = frames[i-1].Normal
			reflectedTangent = frames[i-1].Tangent
		} else {
			reflectedNormal = r3.Sub(frames[i-1].Normal, r3.Scale(2/c1*r3.Dot(v1, frames[i-1].Normal), v1))
			reflectedTangent = r3.Sub(frames[i-1].Tangent, r3.Scale(2/c1*r3.Dot(v1, frames[i-1].Tangent), v1))
		}

		// Second reflection: aligns the reflected tangent with the
		// true tangent at the new sample.
		v2 := r3.Sub(nextTangent, reflectedTangent)
		c2 := r3.Norm2(v2)
		nextNormal := reflectedNormal
		if c2 >= curvatureEpsilon {
			nextNormal = r3.Sub(reflectedNormal, r3.Scale(2/c2*r3.Dot(v2, reflectedNormal), v2))
		}
		nextNormal = r3.Unit(nextNormal)

		frames[i] = Frame{
			Tangent:  nextTangent,
			Normal:   nextNormal,
			Binormal: r3.Cross(nextTangent, nextNormal),
		}
		position = nextPosition
	}

	return &FrameSet{tMin: path.TMin, tMax: path.TMax, frames: frames}
}

// At returns the frame at parameter t, interpolating between the two
// nearest samples with normalized linear interpolation. t is clamped
// to the sampled range.
func (s *FrameSet) At(t float64) Frame {
	n := len(s.frames) - 1
	u := (t - s.tMin) / (s.tMax - s.tMin) * float64(n)
	u = Clamp(u, 0, float64(n))

	i := int(math.Floor(u))
	if i >= n {
		return s.frames[n]
	}
	frac := u - float64(i)
	a, b := s.frames[i], s.frames[i+1]

	tangent := r3.Unit(nlerp(a.Tangent, b.Tangent, frac))
	normal := nlerp(a.Normal, b.Normal, frac)
	// Re-orthogonalize against the interpolated tangent.
	normal = r3.Sub(normal, r3.Scale(r3.Dot(normal, tangent), tangent))
	if r3.Norm2(normal) < curvatureEpsilon {
		normal = PerpendicularBasis(tangent)
	} else {
		normal = r3.Unit(normal)
	}

	return Frame{Tangent: tangent, Normal: normal, Binormal: r3.Cross(tangent, normal)}
}

func nlerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(r3.Scale(1-t, a), r3.Scale(t, b))
}
