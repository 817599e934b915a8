// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package vmath

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// differentiationStep is the parameter step for numeric fallback
// derivatives. Paths are parameterized over ranges of order 1, so a
// fixed step is adequate.
const differentiationStep = 1e-5

// Path is the capability set describing a sweep path: a position
// function over [TMin, TMax] with optional analytic derivatives.
// Paths are constructed per invocation and consumed once.
type Path struct {
	// Position maps the parameter t to a point in space. Required.
	Position func(t float64) r3.Vec

	// Derivative is the analytic first derivative. Optional; when
	// nil, Velocity falls back to a central difference.
	Derivative func(t float64) r3.Vec

	// SecondDerivative is the analytic second derivative. Optional;
	// when nil, Acceleration differences Velocity.
	SecondDerivative func(t float64) r3.Vec

	// TMin and TMax bound the parameter range.
	TMin, TMax float64
}

// Velocity returns the first derivative at t, numerically when no
// analytic derivative was supplied.
func (p *Path) Velocity(t float64) r3.Vec {
	if p.Derivative != nil {
		return p.Derivative(t)
	}
	h := differentiationStep * (p.TMax - p.TMin)
	if h == 0 {
		h = differentiationStep
	}
	a := p.Position(t - h)
	b := p.Position(t + h)
	return r3.Scale(1/(2*h), r3.Sub(b, a))
}

// Acceleration returns the second derivative at t, numerically when
// no analytic second derivative was supplied.
func (p *Path) Acceleration(t float64) r3.Vec {
	if p.SecondDerivative != nil {
		return p.SecondDerivative(t)
	}
	h := differentiationStep * (p.TMax - p.TMin)
	if h == 0 {
		h = differentiationStep
	}
	a := p.Velocity(t - h)
	b := p.Velocity(t + h)
	return r3.Scale(1/(2*h), r3.Sub(b, a))
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PerpendicularBasis returns a unit vector perpendicular to the unit
// vector t, chosen stably: the coordinate axis least aligned with t
// is projected out. Used as the arbitrary-but-stable frame normal
// when curvature vanishes.
func PerpendicularBasis(t r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(t.X), math.Abs(t.Y), math.Abs(t.Z)
	var axis r3.Vec
	switch {
	case ax <= ay && ax <= az:
		axis = r3.Vec{X: 1}
	case ay <= az:
		axis = r3.Vec{Y: 1}
	default:
		axis = r3.Vec{Z: 1}
	}
	perp := r3.Sub(axis, r3.Scale(r3.Dot(axis, t), t))
	return r3.Unit(perp)
}
