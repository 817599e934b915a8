// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package wavefront

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const tetrahedron = `
# a regular-ish tetrahedron
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
f 1 3 2
f 1 2 4
f 1 4 3
f 2 3 4
`

func TestParseTetrahedron(t *testing.T) {
	mesh, err := ParseString(tetrahedron, Limits{}, discard())
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(mesh.Verts) != 4 || len(mesh.Tris) != 4 {
		t.Fatalf("got %d verts, %d tris", len(mesh.Verts), len(mesh.Tris))
	}

	solid := kernel.FromMesh(mesh.Verts, mesh.Tris)
	if solid.Status() != kernel.StatusValid {
		t.Errorf("status = %v, want valid", solid.Status())
	}
	if got, want := solid.Volume(), 1.0/6; got < want*0.999 || got > want*1.001 {
		t.Errorf("volume = %v, want %v", got, want)
	}
}

func TestParseQuadFanTriangulation(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`
	mesh, err := ParseString(obj, Limits{}, discard())
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(mesh.Tris) != 2 {
		t.Fatalf("tri count = %d, want 2 from fan", len(mesh.Tris))
	}
	if mesh.Tris[0] != [3]uint32{0, 1, 2} || mesh.Tris[1] != [3]uint32{0, 2, 3} {
		t.Errorf("fan = %v", mesh.Tris)
	}
}

func TestParseNegativeIndices(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	mesh, err := ParseString(obj, Limits{}, discard())
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if mesh.Tris[0] != [3]uint32{0, 1, 2} {
		t.Errorf("tri = %v, want [0 1 2]", mesh.Tris[0])
	}
}

func TestParseFaceTupleSyntax(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 3/1/1
`
	mesh, err := ParseString(obj, Limits{}, discard())
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(mesh.Tris) != 1 {
		t.Fatalf("tri count = %d", len(mesh.Tris))
	}
}

func TestParseSkipsBadLinesAndContinues(t *testing.T) {
	obj := `
v 0 0 0
v NaN 0 0
v 1 0 0
v 0 1 0
v Inf 1 1
f 1 2 3
f 1 2 99
f 1 2
`
	mesh, err := ParseString(obj, Limits{}, discard())
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(mesh.Verts) != 3 {
		t.Errorf("vert count = %d, want 3 (non-finite skipped)", len(mesh.Verts))
	}
	if len(mesh.Tris) != 1 {
		t.Errorf("tri count = %d, want 1 (bad faces skipped)", len(mesh.Tris))
	}
	if mesh.SkippedLines != 4 {
		t.Errorf("skipped = %d, want 4", mesh.SkippedLines)
	}
}

func TestParseEmptyGeometry(t *testing.T) {
	cases := []string{
		"",
		"# only comments\n",
		"v 0 0 0\nv 1 0 0\nv 0 1 0\n", // vertices but no faces
		"f 1 2 3\n",                   // face referencing nothing
	}
	for _, obj := range cases {
		_, err := ParseString(obj, Limits{}, discard())
		if !fault.HasCode(err, fault.EmptyGeometry) {
			t.Errorf("input %q: err = %v, want EmptyGeometry", obj, err)
		}
	}
}

// buildLargeOBJ emits count vertices and enough degenerate-free faces
// to exercise the caps.
func buildLargeOBJ(count int) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "v %d 0 0\nv %d 1 0\nv %d 0 1\n", i, i, i)
		fmt.Fprintf(&b, "f %d %d %d\n", i*3+1, i*3+2, i*3+3)
	}
	return b.String()
}

func TestServerCapFailsClosed(t *testing.T) {
	// 133,335 triangles of 3 vertices each crosses 400,000 vertices.
	obj := buildLargeOBJ(133_335)

	_, err := ParseString(obj, ServerLimits, discard())
	if !fault.HasCode(err, fault.ConverterOutputInvalid) {
		t.Fatalf("err = %v, want ConverterOutputInvalid", err)
	}

	// The sandbox importer has no caps and accepts the same input.
	mesh, err := ParseString(obj, Limits{}, discard())
	if err != nil {
		t.Fatalf("uncapped parse: %v", err)
	}
	if len(mesh.Verts) != 400_005 {
		t.Errorf("vert count = %d", len(mesh.Verts))
	}
}

func TestRepairLadderWeldsParsedSoup(t *testing.T) {
	// A cube exported as disconnected triangles (vertex soup).
	cube := kernel.Cube([3]float64{2, 2, 2}, true)
	record := cube.MeshGL()

	var b strings.Builder
	for _, idx := range record.TriVerts {
		x, y, z := record.Position(int(idx))
		fmt.Fprintf(&b, "v %v %v %v\n", x, y, z)
	}
	for i := 0; i < len(record.TriVerts); i += 3 {
		fmt.Fprintf(&b, "f %d %d %d\n", i+1, i+2, i+3)
	}

	mesh, err := ParseString(b.String(), Limits{}, discard())
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	raw := kernel.FromMesh(mesh.Verts, mesh.Tris)
	if raw.Status() == kernel.StatusValid {
		t.Fatal("soup should not be manifold before repair")
	}

	repaired, ok := raw.Repair(1e-6)
	if !ok {
		t.Fatal("repair ladder failed")
	}
	if got := repaired.Volume(); got < 7.999 || got > 8.001 {
		t.Errorf("repaired volume = %v, want 8", got)
	}
}
