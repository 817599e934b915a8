// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"errors"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/geometry"
	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/codec"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/script"
	"github.com/partforge/partforge/wavefront"
)

// State is the execution context's protocol state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// maxStackDetail caps the stack text carried in error replies. Stack
// traces are script-influenced and unbounded.
const maxStackDetail = 4096

// importRepairTolerance is the quantized-weld tolerance the import
// repair ladder falls back to.
const importRepairTolerance = 1e-6

// Session is one execution context: a script engine plus the protocol
// state machine around it. Messages are handled one at a time; the
// only retained cross-message state is the current model, set by a
// successful execute or importOBJ.
//
// Not safe for concurrent Handle calls. Interrupt is safe from other
// goroutines.
type Session struct {
	engine  *script.Engine
	logger  *slog.Logger
	state   State
	current *kernel.Manifold
}

// NewSession creates a context in the Uninitialized state.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		engine: script.NewEngine(logger),
		logger: logger,
		state:  StateUninitialized,
	}
}

// State returns the context's protocol state.
func (s *Session) State() State { return s.state }

// HasModel reports whether a current model is cached.
func (s *Session) HasModel() bool { return s.current != nil }

// Interrupt aborts a script running in this context. Safe from other
// goroutines.
func (s *Session) Interrupt(reason string) { s.engine.Interrupt(reason) }

// ClearInterrupt discards an interrupt that landed after the script
// already completed.
func (s *Session) ClearInterrupt() { s.engine.ClearInterrupt() }

// Handle processes one request envelope and returns its reply. Every
// reply echoes the request's correlation ID; failures are error
// replies, never dropped messages.
func (s *Session) Handle(req Envelope) Envelope {
	switch req.Type {
	case TypeInit:
		return s.handleInit(req)
	case TypeExecute:
		return s.handleExecute(req)
	case TypeGetModelInfo:
		return s.handleGetModelInfo(req)
	case TypeImportOBJ:
		return s.handleImportOBJ(req)
	case TypeTrimByPlane:
		return s.handleTrimByPlane(req)
	case TypeGetHelperList:
		return s.handleGetHelperList(req)
	default:
		return errorReply(req.ID, fault.Errorf(fault.UnknownMessageType,
			"unknown message type %q", req.Type))
	}
}

func (s *Session) handleInit(req Envelope) Envelope {
	if s.state == StateReady {
		// Repeated init is a no-op success.
		return Envelope{Type: TypeReady, ID: req.ID}
	}
	if s.state == StateExecuting {
		return errorReply(req.ID, fault.New(fault.InvalidParameter,
			"init is not valid while a script is executing"))
	}

	var payload InitPayload
	if len(req.Payload) > 0 {
		if err := req.DecodePayload(&payload); err != nil {
			return errorReply(req.ID, err)
		}
	}

	s.state = StateInitializing
	if err := s.engine.Lockdown(payload.Environment); err != nil {
		s.state = StateUninitialized
		return errorReply(req.ID, err)
	}
	s.state = StateReady
	return Envelope{Type: TypeReady, ID: req.ID}
}

func (s *Session) handleExecute(req Envelope) Envelope {
	if s.state != StateReady {
		return errorReply(req.ID, fault.Errorf(fault.InvalidParameter,
			"execute requires the ready state, context is %s", s.state))
	}
	var payload ExecutePayload
	if err := req.DecodePayload(&payload); err != nil {
		return errorReply(req.ID, err)
	}

	s.state = StateExecuting
	result, err := s.engine.Execute(payload.Script, payload.ImportedModels,
		script.Budget{MemoryLimitMB: payload.MemoryLimitMB})
	s.state = StateReady
	if err != nil {
		// Failure leaves the cached model unchanged.
		return errorReply(req.ID, err)
	}

	s.current = result.Geometry
	return resultReply(req.ID, result.Geometry, result.MemoryUsedMB)
}

func (s *Session) handleGetModelInfo(req Envelope) Envelope {
	if s.current == nil {
		return errorReply(req.ID, fault.New(fault.NoCachedModel,
			"no model has been executed or imported yet"))
	}
	return reply(req.ID, TypeResult, ModelInfoPayload{
		Volume:      s.current.Volume(),
		SurfaceArea: s.current.SurfaceArea(),
		BoundingBox: s.current.BoundingBox(),
	})
}

func (s *Session) handleImportOBJ(req Envelope) Envelope {
	if s.state != StateReady {
		return errorReply(req.ID, fault.Errorf(fault.InvalidParameter,
			"importOBJ requires the ready state, context is %s", s.state))
	}
	var payload ImportOBJPayload
	if err := req.DecodePayload(&payload); err != nil {
		return errorReply(req.ID, err)
	}

	// In-sandbox import is uncapped; caps apply server-side only.
	mesh, err := wavefront.ParseString(payload.Text, wavefront.Limits{}, s.logger)
	if err != nil {
		return errorReply(req.ID, err)
	}
	raw := kernel.FromMesh(mesh.Verts, mesh.Tris)
	repaired, ok := raw.Repair(importRepairTolerance)
	if !ok {
		return errorReply(req.ID, fault.Errorf(fault.UnrepairableGeometry,
			"imported mesh is not manifold: %s", repaired.Status()))
	}

	s.current = repaired
	return resultReply(req.ID, repaired, 0)
}

func (s *Session) handleTrimByPlane(req Envelope) Envelope {
	if s.current == nil {
		return errorReply(req.ID, fault.New(fault.NoCachedModel,
			"no model has been executed or imported yet"))
	}
	var payload TrimByPlanePayload
	if err := req.DecodePayload(&payload); err != nil {
		return errorReply(req.ID, err)
	}
	normal := r3.Vec{X: payload.Normal[0], Y: payload.Normal[1], Z: payload.Normal[2]}
	if !isFiniteVec(normal) || r3.Norm(normal) == 0 {
		return errorReply(req.ID, fault.New(fault.InvalidParameter,
			"trim plane normal must be finite and non-zero"))
	}

	trimmed, err := s.current.TrimByPlane(normal, payload.Offset)
	if err != nil {
		var fe *fault.Error
		if !errors.As(err, &fe) {
			err = fault.Errorf(fault.InvalidParameter, "trim: %w", err)
		}
		return errorReply(req.ID, err)
	}
	// Preview only: the cached model stays as it was.
	return resultReply(req.ID, trimmed, 0)
}

func (s *Session) handleGetHelperList(req Envelope) Envelope {
	// Static and valid in any state.
	return reply(req.ID, TypeResult, HelperListPayload{Helpers: geometry.HelperNames()})
}

func resultReply(id string, m *kernel.Manifold, memoryUsedMB float64) Envelope {
	return reply(id, TypeResult, ResultPayload{
		Mesh:         m.MeshGL(),
		Volume:       m.Volume(),
		BoundingBox:  m.BoundingBox(),
		MemoryUsedMB: memoryUsedMB,
	})
}

func reply(id string, kind MessageType, payload any) Envelope {
	raw, err := codec.Marshal(payload)
	if err != nil {
		return errorReply(id, fault.Errorf(fault.InvalidResult, "encoding reply: %w", err))
	}
	return Envelope{Type: kind, ID: id, Payload: raw}
}

func errorReply(id string, err error) Envelope {
	body := ErrorPayload{Code: fault.ScriptRuntimeError, Message: err.Error()}
	var fe *fault.Error
	if errors.As(err, &fe) {
		body.Code = fe.Code
		body.Message = fe.Message
		body.Stack = fault.TrimDetail(fe.Detail, maxStackDetail)
	}
	raw, encErr := codec.Marshal(body)
	if encErr != nil {
		// A plain-struct encode cannot realistically fail; an empty
		// body still carries the correlation ID.
		raw = nil
	}
	return Envelope{Type: TypeError, ID: id, Payload: raw}
}

func isFiniteVec(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
