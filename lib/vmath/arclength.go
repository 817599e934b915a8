// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package vmath

import "gonum.org/v1/gonum/spatial/r3"

// ArcLengthTable maps cumulative arc length to path parameter. Built
// once per sweep by trapezoidal integration of speed over uniform
// parameter steps, then queried by binary search for every warped
// vertex.
type ArcLengthTable struct {
	params  []float64 // uniform parameter samples, len = samples+1
	lengths []float64 // cumulative arc length at each sample
}

// BuildArcLengthTable samples the path's speed at samples+1 uniform
// parameter steps and trapezoidally integrates it. samples must be
// at least 1.
func BuildArcLengthTable(path *Path, samples int) *ArcLengthTable {
	if samples < 1 {
		samples = 1
	}
	table := &ArcLengthTable{
		params:  make([]float64, samples+1),
		lengths: make([]float64, samples+1),
	}

	step := (path.TMax - path.TMin) / float64(samples)
	prevSpeed := r3.Norm(path.Velocity(path.TMin))
	table.params[0] = path.TMin

	for i := 1; i <= samples; i++ {
		t := path.TMin + float64(i)*step
		speed := r3.Norm(path.Velocity(t))
		table.params[i] = t
		table.lengths[i] = table.lengths[i-1] + 0.5*(prevSpeed+speed)*step
		prevSpeed = speed
	}
	return table
}

// Total returns the total arc length of the path.
func (a *ArcLengthTable) Total() float64 {
	return a.lengths[len(a.lengths)-1]
}

// ParamAt returns the path parameter at cumulative arc length s,
// found by binary search with linear interpolation between samples.
// s is clamped to [0, Total].
func (a *ArcLengthTable) ParamAt(s float64) float64 {
	n := len(a.lengths)
	if s <= 0 {
		return a.params[0]
	}
	if s >= a.lengths[n-1] {
		return a.params[n-1]
	}

	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if a.lengths[mid] <= s {
			lo = mid
		} else {
			hi = mid
		}
	}

	segment := a.lengths[hi] - a.lengths[lo]
	if segment <= 0 {
		return a.params[lo]
	}
	frac := (s - a.lengths[lo]) / segment
	return Lerp(a.params[lo], a.params[hi], frac)
}
