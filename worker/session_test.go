// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"log/slog"
	"math"
	"testing"

	"github.com/partforge/partforge/geometry"
	"github.com/partforge/partforge/lib/fault"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func request(t *testing.T, kind MessageType, id string, payload any) Envelope {
	t.Helper()
	env, err := NewRequest(kind, id, payload)
	if err != nil {
		t.Fatalf("NewRequest(%s): %v", kind, err)
	}
	return env
}

func readySession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(discard())
	rep := s.Handle(request(t, TypeInit, "init-1", InitPayload{
		Environment: map[string]string{"runtime": "partforge"},
	}))
	if rep.Type != TypeReady {
		t.Fatalf("init reply = %s (%+v)", rep.Type, rep.Fault())
	}
	return s
}

func executeScript(t *testing.T, s *Session, id, source string) Envelope {
	t.Helper()
	return s.Handle(request(t, TypeExecute, id, ExecutePayload{Script: source}))
}

func decodeResult(t *testing.T, rep Envelope) ResultPayload {
	t.Helper()
	if rep.Type != TypeResult {
		t.Fatalf("reply = %s (%+v), want result", rep.Type, rep.Fault())
	}
	var body ResultPayload
	if err := rep.DecodePayload(&body); err != nil {
		t.Fatalf("decoding result payload: %v", err)
	}
	return body
}

func wantErrorReply(t *testing.T, rep Envelope, code fault.Code) {
	t.Helper()
	if rep.Type != TypeError {
		t.Fatalf("reply = %s, want error", rep.Type)
	}
	f := rep.Fault()
	if f == nil || f.Code != code {
		t.Fatalf("error reply = %+v, want code %s", f, code)
	}
}

func TestInitTransitionsToReady(t *testing.T) {
	s := NewSession(discard())
	if s.State() != StateUninitialized {
		t.Fatalf("initial state = %s", s.State())
	}

	rep := s.Handle(request(t, TypeInit, "a", InitPayload{}))
	if rep.Type != TypeReady || rep.ID != "a" {
		t.Fatalf("reply = %s id %q", rep.Type, rep.ID)
	}
	if s.State() != StateReady {
		t.Errorf("state = %s, want ready", s.State())
	}

	// Repeated init is a no-op success.
	rep = s.Handle(request(t, TypeInit, "b", InitPayload{}))
	if rep.Type != TypeReady || rep.ID != "b" {
		t.Errorf("second init reply = %s id %q", rep.Type, rep.ID)
	}
}

func TestExecuteCubeEndToEnd(t *testing.T) {
	s := readySession(t)
	rep := executeScript(t, s, "exec-1", `return Manifold.cube([10, 10, 10], true);`)
	if rep.ID != "exec-1" {
		t.Errorf("reply id = %q", rep.ID)
	}

	body := decodeResult(t, rep)
	if math.Abs(body.Volume-1000) > 1e-9 {
		t.Errorf("volume = %v, want 1000", body.Volume)
	}
	if body.BoundingBox.Min != [3]float64{-5, -5, -5} ||
		body.BoundingBox.Max != [3]float64{5, 5, 5} {
		t.Errorf("bounding box = %+v", body.BoundingBox)
	}
	if err := body.Mesh.Validate(); err != nil {
		t.Errorf("result mesh invalid: %v", err)
	}
	if !s.HasModel() {
		t.Error("successful execute should cache the model")
	}
}

func TestExecuteRequiresReadyState(t *testing.T) {
	s := NewSession(discard())
	rep := executeScript(t, s, "x", `return Manifold.cube([1,1,1], false);`)
	wantErrorReply(t, rep, fault.InvalidParameter)
}

func TestUnknownMessageType(t *testing.T) {
	s := readySession(t)
	rep := s.Handle(Envelope{Type: "frobnicate", ID: "u-1"})
	if rep.ID != "u-1" {
		t.Errorf("reply id = %q, want echo", rep.ID)
	}
	wantErrorReply(t, rep, fault.UnknownMessageType)
}

func TestExecuteFailureKeepsCachedModel(t *testing.T) {
	s := readySession(t)
	decodeResult(t, executeScript(t, s, "1", `return Manifold.cube([10,10,10], true);`))

	rep := executeScript(t, s, "2", `return 42;`)
	wantErrorReply(t, rep, fault.InvalidResult)
	if s.State() != StateReady {
		t.Errorf("state after failure = %s, want ready", s.State())
	}

	// The previous model is still current.
	info := s.Handle(request(t, TypeGetModelInfo, "3", nil))
	if info.Type != TypeResult {
		t.Fatalf("getModelInfo reply = %s", info.Type)
	}
	var body ModelInfoPayload
	if err := info.DecodePayload(&body); err != nil {
		t.Fatalf("decoding model info: %v", err)
	}
	if math.Abs(body.Volume-1000) > 1e-9 {
		t.Errorf("cached volume = %v, want 1000", body.Volume)
	}
	if math.Abs(body.SurfaceArea-600) > 1e-9 {
		t.Errorf("cached surface area = %v, want 600", body.SurfaceArea)
	}
}

func TestGetModelInfoWithoutModel(t *testing.T) {
	s := readySession(t)
	rep := s.Handle(request(t, TypeGetModelInfo, "q", nil))
	wantErrorReply(t, rep, fault.NoCachedModel)
}

func TestImportOBJCachesModel(t *testing.T) {
	s := readySession(t)
	obj := `
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
f 1 3 2
f 1 2 4
f 1 4 3
f 2 3 4
`
	rep := s.Handle(request(t, TypeImportOBJ, "imp", ImportOBJPayload{Text: obj}))
	body := decodeResult(t, rep)
	if want := 1.0 / 6; math.Abs(body.Volume-want) > 1e-9 {
		t.Errorf("imported volume = %v, want %v", body.Volume, want)
	}
	if !s.HasModel() {
		t.Error("import should cache the model")
	}
}

func TestImportOBJEmptyGeometry(t *testing.T) {
	s := readySession(t)
	rep := s.Handle(request(t, TypeImportOBJ, "imp", ImportOBJPayload{Text: "# nothing\n"}))
	wantErrorReply(t, rep, fault.EmptyGeometry)
}

func TestTrimByPlaneIsPreviewOnly(t *testing.T) {
	s := readySession(t)
	decodeResult(t, executeScript(t, s, "1", `return Manifold.cube([10,10,10], true);`))

	rep := s.Handle(request(t, TypeTrimByPlane, "2", TrimByPlanePayload{
		Normal: [3]float64{0, 0, 1},
		Offset: 0,
	}))
	body := decodeResult(t, rep)
	if math.Abs(body.Volume-500) > 1e-6 {
		t.Errorf("trimmed volume = %v, want 500", body.Volume)
	}

	// The cached model is unchanged by the preview.
	info := s.Handle(request(t, TypeGetModelInfo, "3", nil))
	var infoBody ModelInfoPayload
	if err := info.DecodePayload(&infoBody); err != nil {
		t.Fatalf("decoding model info: %v", err)
	}
	if math.Abs(infoBody.Volume-1000) > 1e-9 {
		t.Errorf("cached volume after trim = %v, want 1000", infoBody.Volume)
	}
}

func TestTrimByPlaneWithoutModel(t *testing.T) {
	s := readySession(t)
	rep := s.Handle(request(t, TypeTrimByPlane, "t", TrimByPlanePayload{
		Normal: [3]float64{0, 0, 1},
	}))
	wantErrorReply(t, rep, fault.NoCachedModel)
}

func TestTrimByPlaneRejectsBadNormal(t *testing.T) {
	s := readySession(t)
	decodeResult(t, executeScript(t, s, "1", `return Manifold.cube([2,2,2], true);`))

	for _, normal := range [][3]float64{
		{0, 0, 0},
		{math.NaN(), 0, 1},
		{math.Inf(1), 0, 0},
	} {
		rep := s.Handle(request(t, TypeTrimByPlane, "t", TrimByPlanePayload{Normal: normal}))
		wantErrorReply(t, rep, fault.InvalidParameter)
	}
}

func TestGetHelperListValidInAnyState(t *testing.T) {
	s := NewSession(discard()) // deliberately uninitialized
	rep := s.Handle(request(t, TypeGetHelperList, "h", nil))
	if rep.Type != TypeResult {
		t.Fatalf("reply = %s", rep.Type)
	}
	var body HelperListPayload
	if err := rep.DecodePayload(&body); err != nil {
		t.Fatalf("decoding helper list: %v", err)
	}
	want := geometry.HelperNames()
	if len(body.Helpers) != len(want) {
		t.Fatalf("helper count = %d, want %d", len(body.Helpers), len(want))
	}
	for i, name := range want {
		if body.Helpers[i] != name {
			t.Errorf("helpers[%d] = %q, want %q", i, body.Helpers[i], name)
		}
	}
}

func TestExecutePassesEnvironmentThrough(t *testing.T) {
	s := readySession(t)
	rep := executeScript(t, s, "env", `
		if (environment.runtime !== "partforge") {
			throw new Error("environment not installed");
		}
		return Manifold.cube([1,1,1], false);
	`)
	decodeResult(t, rep)
}
