// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the host↔sandbox message protocol: tagged
// envelopes with correlation IDs, a per-context state machine, and a
// host supervisor that enforces the execution deadline.
//
// The wire format is CBOR (lib/codec). Envelope payloads are carried
// as raw CBOR so dispatch routes on the type tag before decoding the
// kind-specific payload, the same split the daemon↔launcher IPC types
// use.
package worker

import (
	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/codec"
	"github.com/partforge/partforge/lib/fault"
)

// MessageType selects the operation of a request envelope or the
// disposition of a reply envelope.
type MessageType string

// Request kinds. The set is exhaustive; anything else is answered
// with an UnknownMessageType error reply.
const (
	TypeInit          MessageType = "init"
	TypeExecute       MessageType = "execute"
	TypeGetModelInfo  MessageType = "getModelInfo"
	TypeImportOBJ     MessageType = "importOBJ"
	TypeTrimByPlane   MessageType = "trimByPlane"
	TypeGetHelperList MessageType = "getHelperList"
)

// Reply kinds.
const (
	TypeReady  MessageType = "ready"
	TypeResult MessageType = "result"
	TypeError  MessageType = "error"
)

// Envelope is one protocol message. ID is caller-chosen and
// correlates a request to exactly one reply; every reply echoes the
// request's ID verbatim.
type Envelope struct {
	Type MessageType `cbor:"type" json:"type"`

	ID string `cbor:"id" json:"id"`

	// Payload is the kind-specific body, raw so it can be decoded
	// after dispatch on Type. Empty for messages without a body
	// (getHelperList, ready replies).
	Payload codec.RawMessage `cbor:"payload,omitempty" json:"payload,omitempty"`
}

// InitPayload configures the execution context. Environment becomes
// the frozen introspection snapshot installed at lockdown.
type InitPayload struct {
	Environment map[string]string `cbor:"environment,omitempty" json:"environment,omitempty"`
}

// ExecutePayload runs one script against the locked-down context.
type ExecutePayload struct {
	Script string `cbor:"script" json:"script"`

	// ImportedModels are reconstructed into geometry objects and
	// exposed to the script as importedGeometries, keyed by name.
	ImportedModels map[string]*kernel.MeshGL `cbor:"importedModels,omitempty" json:"importedModels,omitempty"`

	// MemoryLimitMB is the advisory memory ceiling. Zero means
	// unlimited.
	MemoryLimitMB int `cbor:"memoryLimitMB,omitempty" json:"memoryLimitMB,omitempty"`
}

// ImportOBJPayload loads mesh data from OBJ text, independent of any
// script.
type ImportOBJPayload struct {
	Text string `cbor:"text" json:"text"`
}

// TrimByPlanePayload clips the current model by the half-space
// dot(normal, p) ≤ offset. The reply carries the clipped mesh; the
// cached current model is not changed.
type TrimByPlanePayload struct {
	Normal [3]float64 `cbor:"normal" json:"normal"`
	Offset float64    `cbor:"offset" json:"offset"`
}

// ResultPayload answers execute, importOBJ and trimByPlane.
type ResultPayload struct {
	Mesh        *kernel.MeshGL `cbor:"mesh" json:"mesh"`
	Volume      float64        `cbor:"volume" json:"volume"`
	BoundingBox kernel.Box     `cbor:"boundingBox" json:"boundingBox"`

	// MemoryUsedMB is the sampled heap growth of an execute run.
	// Zero for importOBJ and trimByPlane replies.
	MemoryUsedMB float64 `cbor:"memoryUsedMB,omitempty" json:"memoryUsedMB,omitempty"`
}

// ModelInfoPayload answers getModelInfo.
type ModelInfoPayload struct {
	Volume      float64    `cbor:"volume" json:"volume"`
	SurfaceArea float64    `cbor:"surfaceArea" json:"surfaceArea"`
	BoundingBox kernel.Box `cbor:"boundingBox" json:"boundingBox"`
}

// HelperListPayload answers getHelperList.
type HelperListPayload struct {
	Helpers []string `cbor:"helpers" json:"helpers"`
}

// ErrorPayload answers any failed request. Stack carries diagnostic
// detail (script stack traces), already size-capped by the sender.
type ErrorPayload struct {
	Code    fault.Code `cbor:"code" json:"code"`
	Message string     `cbor:"message" json:"message"`
	Stack   string     `cbor:"stack,omitempty" json:"stack,omitempty"`
}

// NewRequest builds a request envelope, encoding payload to CBOR.
// A nil payload produces an empty body.
func NewRequest(kind MessageType, id string, payload any) (Envelope, error) {
	env := Envelope{Type: kind, ID: id}
	if payload == nil {
		return env, nil
	}
	raw, err := codec.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = raw
	return env, nil
}

// DecodePayload decodes an envelope's body into v.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fault.Errorf(fault.InvalidParameter, "%s message has no payload", e.Type)
	}
	if err := codec.Unmarshal(e.Payload, v); err != nil {
		return fault.Errorf(fault.InvalidParameter, "%s payload: %w", e.Type, err)
	}
	return nil
}

// Fault extracts the fault from an error reply. Returns nil for
// non-error envelopes or undecodable bodies.
func (e Envelope) Fault() *fault.Error {
	if e.Type != TypeError {
		return nil
	}
	var body ErrorPayload
	if err := codec.Unmarshal(e.Payload, &body); err != nil {
		return nil
	}
	return fault.New(body.Code, body.Message).WithDetail(body.Stack)
}
