// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"fmt"
	"math"
)

// MeshGL is the transferable plain-data mesh record: interleaved
// vertex properties and a flat triangle index list. It is the only
// mesh shape that crosses the sandbox boundary or reaches the
// persistence layer.
type MeshGL struct {
	// NumProp is the number of interleaved properties per vertex.
	// Always ≥ 3; the first three are x, y, z position.
	NumProp int `json:"numProp" cbor:"numProp"`

	// VertProperties holds NumProp values per vertex, interleaved.
	VertProperties []float64 `json:"vertProperties" cbor:"vertProperties"`

	// TriVerts holds three vertex indices per triangle.
	TriVerts []uint32 `json:"triVerts" cbor:"triVerts"`

	// RunIndex partitions TriVerts into contiguous runs sharing an
	// origin identity. Parallel with RunOriginalID; optional.
	RunIndex []uint32 `json:"runIndex,omitempty" cbor:"runIndex,omitempty"`

	// RunOriginalID gives the origin ID of each run. Used to carry
	// per-face provenance through boolean operations.
	RunOriginalID []uint32 `json:"runOriginalID,omitempty" cbor:"runOriginalID,omitempty"`
}

// NumVert returns the vertex count implied by the record shape.
func (m *MeshGL) NumVert() int {
	if m.NumProp < 3 {
		return 0
	}
	return len(m.VertProperties) / m.NumProp
}

// NumTri returns the triangle count implied by the record shape.
func (m *MeshGL) NumTri() int { return len(m.TriVerts) / 3 }

// Validate checks the record's structural invariants: NumProp ≥ 3,
// VertProperties a multiple of NumProp, TriVerts a multiple of 3,
// every index in range, and runs (when present) parallel, sorted and
// covering the triangle list.
func (m *MeshGL) Validate() error {
	if m.NumProp < 3 {
		return fmt.Errorf("numProp must be at least 3, got %d", m.NumProp)
	}
	if len(m.VertProperties)%m.NumProp != 0 {
		return fmt.Errorf("vertProperties length %d is not a multiple of numProp %d",
			len(m.VertProperties), m.NumProp)
	}
	if len(m.TriVerts)%3 != 0 {
		return fmt.Errorf("triVerts length %d is not a multiple of 3", len(m.TriVerts))
	}
	numVert := uint32(m.NumVert())
	for i, idx := range m.TriVerts {
		if idx >= numVert {
			return fmt.Errorf("triVerts[%d] = %d exceeds vertex count %d", i, idx, numVert)
		}
	}
	if len(m.RunIndex) > 0 || len(m.RunOriginalID) > 0 {
		if len(m.RunIndex) != len(m.RunOriginalID)+1 {
			return fmt.Errorf("runIndex length %d does not bracket runOriginalID length %d",
				len(m.RunIndex), len(m.RunOriginalID))
		}
		if m.RunIndex[0] != 0 || int(m.RunIndex[len(m.RunIndex)-1]) != len(m.TriVerts) {
			return fmt.Errorf("runIndex must start at 0 and end at %d", len(m.TriVerts))
		}
		for i := 1; i < len(m.RunIndex); i++ {
			if m.RunIndex[i] < m.RunIndex[i-1] || m.RunIndex[i]%3 != 0 {
				return fmt.Errorf("runIndex[%d] = %d is not a sorted multiple of 3", i, m.RunIndex[i])
			}
		}
	}
	return nil
}

// Position returns the x,y,z position of vertex i.
func (m *MeshGL) Position(i int) (x, y, z float64) {
	base := i * m.NumProp
	return m.VertProperties[base], m.VertProperties[base+1], m.VertProperties[base+2]
}

// Box is an axis-aligned bounding box. For non-empty geometry,
// Min[i] ≤ Max[i] on every axis.
type Box struct {
	Min [3]float64 `json:"min" cbor:"min"`
	Max [3]float64 `json:"max" cbor:"max"`
}

// Size returns the extent of the box on each axis.
func (b Box) Size() [3]float64 {
	return [3]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Center returns the midpoint of the box.
func (b Box) Center() [3]float64 {
	return [3]float64{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

func emptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: [3]float64{inf, inf, inf},
		Max: [3]float64{-inf, -inf, -inf},
	}
}
