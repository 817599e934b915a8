// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// Status is the validity code of a manifold. Zero means a watertight,
// consistently oriented mesh; nonzero identifies the defect class.
type Status int

const (
	// StatusValid is a watertight, consistently oriented mesh.
	StatusValid Status = iota

	// StatusNonFiniteVertex means a vertex coordinate is NaN or Inf.
	StatusNonFiniteVertex

	// StatusVertexOutOfBounds means a triangle references a vertex
	// index past the vertex list.
	StatusVertexOutOfBounds

	// StatusNotManifold means an edge is not shared by exactly two
	// triangles with opposite orientation.
	StatusNotManifold
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusNonFiniteVertex:
		return "non-finite vertex"
	case StatusVertexOutOfBounds:
		return "vertex index out of bounds"
	case StatusNotManifold:
		return "non-manifold edges"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// run is a contiguous span of triangles sharing an origin identity.
type run struct {
	firstTri   int // index of the first triangle in the run
	originalID uint32
}

// Manifold is a solid: a triangle mesh with cached validity status.
// Values are immutable; operations return new Manifolds.
type Manifold struct {
	verts  []r3.Vec
	tris   [][3]uint32
	runs   []run
	status Status
}

// originalIDCounter assigns a fresh origin ID to each constructed
// primitive, used to track face provenance through booleans.
var originalIDCounter atomic.Uint32

func nextOriginalID() uint32 { return originalIDCounter.Add(1) }

// newManifold builds a manifold from raw geometry, computing status.
// The slices are owned by the new value and must not be mutated by
// the caller afterward.
func newManifold(verts []r3.Vec, tris [][3]uint32, runs []run) *Manifold {
	if len(runs) == 0 {
		runs = []run{{firstTri: 0, originalID: nextOriginalID()}}
	}
	m := &Manifold{verts: verts, tris: tris, runs: runs}
	m.status = computeStatus(verts, tris)
	return m
}

// NumVert returns the vertex count.
func (m *Manifold) NumVert() int { return len(m.verts) }

// NumTri returns the triangle count.
func (m *Manifold) NumTri() int { return len(m.tris) }

// Status returns the validity code.
func (m *Manifold) Status() Status { return m.status }

// IsEmpty reports whether the manifold has no triangles.
func (m *Manifold) IsEmpty() bool { return len(m.tris) == 0 }

// BoundingBox returns the axis-aligned bounds of all vertices.
func (m *Manifold) BoundingBox() Box {
	box := emptyBox()
	for _, v := range m.verts {
		box.Min[0] = math.Min(box.Min[0], v.X)
		box.Min[1] = math.Min(box.Min[1], v.Y)
		box.Min[2] = math.Min(box.Min[2], v.Z)
		box.Max[0] = math.Max(box.Max[0], v.X)
		box.Max[1] = math.Max(box.Max[1], v.Y)
		box.Max[2] = math.Max(box.Max[2], v.Z)
	}
	return box
}

// Volume returns the enclosed volume, computed as the sum of signed
// tetrahedron volumes against the origin. Exact for watertight,
// consistently oriented meshes, including inner cavity shells with
// inverted orientation.
func (m *Manifold) Volume() float64 {
	var total float64
	for _, t := range m.tris {
		a, b, c := m.verts[t[0]], m.verts[t[1]], m.verts[t[2]]
		total += r3.Dot(a, r3.Cross(b, c))
	}
	return total / 6
}

// SurfaceArea returns the total area of all triangles.
func (m *Manifold) SurfaceArea() float64 {
	var total float64
	for _, t := range m.tris {
		a, b, c := m.verts[t[0]], m.verts[t[1]], m.verts[t[2]]
		total += r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
	}
	return total / 2
}

// Warp applies fn to every vertex position and returns the warped
// manifold. Topology is unchanged; status is recomputed for the
// finite-vertex check.
func (m *Manifold) Warp(fn func(r3.Vec) r3.Vec) *Manifold {
	verts := make([]r3.Vec, len(m.verts))
	for i, v := range m.verts {
		verts[i] = fn(v)
	}
	return newManifold(verts, m.tris, m.runs)
}

// Translate returns the manifold moved by the given offsets.
func (m *Manifold) Translate(x, y, z float64) *Manifold {
	offset := r3.Vec{X: x, Y: y, Z: z}
	return m.Warp(func(v r3.Vec) r3.Vec { return r3.Add(v, offset) })
}

// Scale returns the manifold scaled per axis about the origin. A
// negative total determinant flips triangle winding to preserve
// outward orientation.
func (m *Manifold) Scale(x, y, z float64) *Manifold {
	scaled := m.Warp(func(v r3.Vec) r3.Vec {
		return r3.Vec{X: v.X * x, Y: v.Y * y, Z: v.Z * z}
	})
	if x*y*z < 0 {
		return scaled.flipOrientation()
	}
	return scaled
}

// Rotate returns the manifold rotated about the origin by the given
// Euler angles in degrees, applied in X, Y, Z order.
func (m *Manifold) Rotate(xDeg, yDeg, zDeg float64) *Manifold {
	rx, ry, rz := xDeg*math.Pi/180, yDeg*math.Pi/180, zDeg*math.Pi/180
	sx, cx := math.Sin(rx), math.Cos(rx)
	sy, cy := math.Sin(ry), math.Cos(ry)
	sz, cz := math.Sin(rz), math.Cos(rz)
	return m.Warp(func(v r3.Vec) r3.Vec {
		// X axis.
		v = r3.Vec{X: v.X, Y: cx*v.Y - sx*v.Z, Z: sx*v.Y + cx*v.Z}
		// Y axis.
		v = r3.Vec{X: cy*v.X + sy*v.Z, Y: v.Y, Z: -sy*v.X + cy*v.Z}
		// Z axis.
		return r3.Vec{X: cz*v.X - sz*v.Y, Y: sz*v.X + cz*v.Y, Z: v.Z}
	})
}

// MirrorPlane returns the manifold reflected through the plane with
// the given normal passing through the origin. Winding is flipped so
// the result stays outward-oriented.
func (m *Manifold) MirrorPlane(normal r3.Vec) *Manifold {
	n := r3.Unit(normal)
	mirrored := m.Warp(func(v r3.Vec) r3.Vec {
		return r3.Sub(v, r3.Scale(2*r3.Dot(v, n), n))
	})
	return mirrored.flipOrientation()
}

// flipOrientation reverses the winding of every triangle.
func (m *Manifold) flipOrientation() *Manifold {
	tris := make([][3]uint32, len(m.tris))
	for i, t := range m.tris {
		tris[i] = [3]uint32{t[0], t[2], t[1]}
	}
	return newManifold(m.verts, tris, m.runs)
}

// Union combines two solids into one. The operands must be disjoint;
// for disjoint shells the result's volume, area and bounds are exact.
// Returns an error when either operand is empty or invalid.
func Union(a, b *Manifold) (*Manifold, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return nil, fmt.Errorf("union of empty manifold")
	}
	if a.status != StatusValid || b.status != StatusValid {
		return nil, fmt.Errorf("union of invalid manifold: %v, %v", a.status, b.status)
	}
	return compose(a, b), nil
}

// Difference subtracts tool from target. The tool must be contained
// in the target; the tool's shell is inverted so it bounds a cavity.
// Returns an error when either operand is empty or invalid.
func Difference(target, tool *Manifold) (*Manifold, error) {
	if target.IsEmpty() || tool.IsEmpty() {
		return nil, fmt.Errorf("difference with empty manifold")
	}
	if target.status != StatusValid || tool.status != StatusValid {
		return nil, fmt.Errorf("difference with invalid manifold: %v, %v", target.status, tool.status)
	}
	return compose(target, tool.flipOrientation()), nil
}

// compose concatenates two meshes, preserving each side's runs so
// origin IDs round-trip through the boolean.
func compose(a, b *Manifold) *Manifold {
	verts := make([]r3.Vec, 0, len(a.verts)+len(b.verts))
	verts = append(verts, a.verts...)
	verts = append(verts, b.verts...)

	offset := uint32(len(a.verts))
	tris := make([][3]uint32, 0, len(a.tris)+len(b.tris))
	tris = append(tris, a.tris...)
	for _, t := range b.tris {
		tris = append(tris, [3]uint32{t[0] + offset, t[1] + offset, t[2] + offset})
	}

	runs := make([]run, 0, len(a.runs)+len(b.runs))
	runs = append(runs, a.runs...)
	for _, r := range b.runs {
		runs = append(runs, run{firstTri: r.firstTri + len(a.tris), originalID: r.originalID})
	}

	return newManifold(verts, tris, runs)
}

// MeshGL extracts the transferable mesh record: position-only
// (numProp 3) interleaved vertices, flat triangle indices, and the
// run table carrying origin IDs.
func (m *Manifold) MeshGL() *MeshGL {
	record := &MeshGL{
		NumProp:        3,
		VertProperties: make([]float64, 0, len(m.verts)*3),
		TriVerts:       make([]uint32, 0, len(m.tris)*3),
	}
	for _, v := range m.verts {
		record.VertProperties = append(record.VertProperties, v.X, v.Y, v.Z)
	}
	for _, t := range m.tris {
		record.TriVerts = append(record.TriVerts, t[0], t[1], t[2])
	}

	record.RunIndex = make([]uint32, 0, len(m.runs)+1)
	record.RunOriginalID = make([]uint32, 0, len(m.runs))
	for _, r := range m.runs {
		record.RunIndex = append(record.RunIndex, uint32(r.firstTri*3))
		record.RunOriginalID = append(record.RunOriginalID, r.originalID)
	}
	record.RunIndex = append(record.RunIndex, uint32(len(m.tris)*3))
	return record
}

// FromMeshGL reconstructs a manifold from a mesh record, using only
// the position properties. The record's structural invariants are
// checked first; manifoldness is validated during construction and
// reported via Status. Reconstruction never repairs; that is the
// import pipeline's job.
func FromMeshGL(record *MeshGL) (*Manifold, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mesh record: %w", err)
	}

	numVert := record.NumVert()
	verts := make([]r3.Vec, numVert)
	for i := 0; i < numVert; i++ {
		x, y, z := record.Position(i)
		verts[i] = r3.Vec{X: x, Y: y, Z: z}
	}

	tris := make([][3]uint32, record.NumTri())
	for i := range tris {
		tris[i] = [3]uint32{record.TriVerts[i*3], record.TriVerts[i*3+1], record.TriVerts[i*3+2]}
	}

	var runs []run
	for i, id := range record.RunOriginalID {
		runs = append(runs, run{firstTri: int(record.RunIndex[i]) / 3, originalID: id})
	}

	return newManifold(verts, tris, runs), nil
}

// FromMesh builds a manifold from raw vertex and triangle arrays, the
// shape the import pipeline produces. Manifoldness is reported via
// Status, not an error.
func FromMesh(verts []r3.Vec, tris [][3]uint32) *Manifold {
	v := make([]r3.Vec, len(verts))
	copy(v, verts)
	t := make([][3]uint32, len(tris))
	copy(t, tris)
	return newManifold(v, t, nil)
}
