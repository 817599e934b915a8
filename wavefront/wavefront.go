// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package wavefront parses Wavefront OBJ geometry defensively. Only
// vertex and face statements are consumed; everything else (normals,
// texture coordinates, materials, groups) is ignored. Malformed or
// non-finite input lines are skipped with a warning rather than
// aborting the parse, because converter output and user uploads are
// routinely sloppy.
package wavefront

import (
	"bufio"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/lib/fault"
)

// Limits caps the parsed mesh size. Zero fields mean unlimited. The
// server-side conversion pipeline fails closed at these caps; the
// in-sandbox importer parses uncapped.
type Limits struct {
	MaxVertices  int
	MaxTriangles int
}

// ServerLimits is the cap set for attacker-supplied files arriving
// over HTTP.
var ServerLimits = Limits{MaxVertices: 400_000, MaxTriangles: 800_000}

// Mesh is the parse result: raw vertices and fan-triangulated faces,
// ready for manifold construction.
type Mesh struct {
	Verts []r3.Vec
	Tris  [][3]uint32

	// SkippedLines counts input lines dropped with a warning.
	SkippedLines int
}

// maxLineBytes bounds a single input line. OBJ faces can list many
// vertices but a megabyte line is corrupt or hostile either way.
const maxLineBytes = 1 << 20

// Parse reads OBJ text from r. Vertex lines with non-finite or
// unparseable coordinates and face lines with bad indices are skipped
// and logged. Exceeding limits fails closed with
// fault.ConverterOutputInvalid; a result with zero vertices or zero
// triangles is fault.EmptyGeometry.
func Parse(r io.Reader, limits Limits, logger *slog.Logger) (*Mesh, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mesh := &Mesh{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if !mesh.parseVertex(fields, lineNo, logger) {
				continue
			}
			if limits.MaxVertices > 0 && len(mesh.Verts) > limits.MaxVertices {
				return nil, fault.Errorf(fault.ConverterOutputInvalid,
					"obj exceeds vertex cap of %d", limits.MaxVertices)
			}
		case "f":
			if !mesh.parseFace(fields, lineNo, logger) {
				continue
			}
			if limits.MaxTriangles > 0 && len(mesh.Tris) > limits.MaxTriangles {
				return nil, fault.Errorf(fault.ConverterOutputInvalid,
					"obj exceeds triangle cap of %d", limits.MaxTriangles)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fault.Errorf(fault.ConverterOutputInvalid, "reading obj: %w", err)
	}

	if len(mesh.Verts) == 0 || len(mesh.Tris) == 0 {
		return nil, fault.Errorf(fault.EmptyGeometry,
			"obj produced %d vertices and %d triangles", len(mesh.Verts), len(mesh.Tris))
	}
	return mesh, nil
}

// ParseString parses OBJ text held in memory, the shape the sandbox
// protocol delivers it in.
func ParseString(text string, limits Limits, logger *slog.Logger) (*Mesh, error) {
	return Parse(strings.NewReader(text), limits, logger)
}

func (m *Mesh) skip(lineNo int, reason string, logger *slog.Logger) bool {
	m.SkippedLines++
	logger.Warn("skipping obj line", "line", lineNo, "reason", reason)
	return false
}

func (m *Mesh) parseVertex(fields []string, lineNo int, logger *slog.Logger) bool {
	if len(fields) < 4 {
		return m.skip(lineNo, "vertex with fewer than 3 coordinates", logger)
	}
	var coords [3]float64
	for i := 0; i < 3; i++ {
		value, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return m.skip(lineNo, "unparseable vertex coordinate", logger)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return m.skip(lineNo, "non-finite vertex coordinate", logger)
		}
		coords[i] = value
	}
	m.Verts = append(m.Verts, r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]})
	return true
}

func (m *Mesh) parseFace(fields []string, lineNo int, logger *slog.Logger) bool {
	if len(fields) < 4 {
		return m.skip(lineNo, "face with fewer than 3 vertices", logger)
	}

	indices := make([]uint32, 0, len(fields)-1)
	for _, field := range fields[1:] {
		// Faces may carry v/vt/vn tuples; only the vertex index is
		// used.
		if slash := strings.IndexByte(field, '/'); slash >= 0 {
			field = field[:slash]
		}
		raw, err := strconv.Atoi(field)
		if err != nil || raw == 0 {
			return m.skip(lineNo, "unparseable face index", logger)
		}
		idx := raw
		if idx < 0 {
			// Negative indices count back from the latest vertex.
			idx = len(m.Verts) + 1 + idx
		}
		if idx < 1 || idx > len(m.Verts) {
			return m.skip(lineNo, "face index out of range", logger)
		}
		indices = append(indices, uint32(idx-1))
	}

	// Fan triangulation for polygons beyond triangles.
	for i := 1; i+1 < len(indices); i++ {
		m.Tris = append(m.Tris, [3]uint32{indices[0], indices[i], indices[i+1]})
	}
	return true
}
