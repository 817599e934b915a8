// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/partforge/partforge/lib/clock"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/lib/metrics"
)

// DefaultExecuteDeadline bounds one execute message wall-clock time
// when HostOptions leaves Deadline zero.
const DefaultExecuteDeadline = 30 * time.Second

// HostOptions configures a Host.
type HostOptions struct {
	Logger *slog.Logger

	// Clock drives the execution deadline. Defaults to clock.Real();
	// tests inject a *clock.Fake.
	Clock clock.Clock

	// Deadline is the wall-clock budget for one execute message.
	// Zero means DefaultExecuteDeadline.
	Deadline time.Duration

	// Environment is the introspection snapshot handed to the context
	// at init, and again after a post-timeout recreate.
	Environment map[string]string

	// Metrics receives one execution observation per execute message,
	// labelled with the fault code or "ok". Nil disables recording.
	Metrics *metrics.Metrics
}

// Host supervises one execution context. It is the deadline
// authority: the context itself never self-interrupts, the host arms
// a timer around each execute and on expiry interrupts, discards and
// recreates the context. The cached current model does not survive a
// recreate; it is scoped to the context's lifetime.
//
// Not safe for concurrent Send calls.
type Host struct {
	logger    *slog.Logger
	clock     clock.Clock
	deadline  time.Duration
	env       map[string]string
	metrics   *metrics.Metrics
	session   *Session
	sessionID string
}

// NewHost creates a supervisor with a fresh Uninitialized context.
func NewHost(opts HostOptions) *Host {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultExecuteDeadline
	}
	h := &Host{
		logger:   opts.Logger,
		clock:    opts.Clock,
		deadline: opts.Deadline,
		env:      opts.Environment,
		metrics:  opts.Metrics,
	}
	h.newSession()
	return h
}

// SessionID identifies the current context in logs. It changes when
// the context is recreated after a timeout.
func (h *Host) SessionID() string { return h.sessionID }

// State returns the current context's protocol state.
func (h *Host) State() State { return h.session.State() }

// Send routes one request through the supervised context and returns
// its reply. Execute messages run under the wall-clock deadline; on
// expiry the script is interrupted, the reply is an ExecutionTimeout
// error, and the context is replaced by a fresh Ready one.
func (h *Host) Send(req Envelope) Envelope {
	if req.Type == TypeInit {
		// Remember the environment so a post-timeout recreate restores
		// the same snapshot.
		var payload InitPayload
		if len(req.Payload) > 0 && req.DecodePayload(&payload) == nil {
			h.env = payload.Environment
		}
	}

	if req.Type != TypeExecute {
		return h.session.Handle(req)
	}

	session := h.session
	started := h.clock.Now()
	stop := h.clock.AfterFunc(h.deadline, func() {
		session.Interrupt("execution deadline exceeded")
	})
	reply := session.Handle(req)
	stopped := stop()

	if h.metrics != nil {
		outcome := "ok"
		if f := reply.Fault(); f != nil {
			outcome = string(f.Code)
		}
		h.metrics.ObserveExecution(outcome, h.clock.Now().Sub(started))
	}

	if f := reply.Fault(); f != nil && f.Code == fault.ExecutionTimeout {
		h.logger.Warn("execution deadline exceeded, recreating context",
			"session_id", h.sessionID, "deadline", h.deadline)
		h.recreate()
		return reply
	}
	if !stopped {
		// The timer fired after the script completed; drop the stale
		// interrupt so the next run is unaffected.
		session.ClearInterrupt()
	}
	return reply
}

func (h *Host) newSession() {
	h.session = NewSession(h.logger)
	h.sessionID = uuid.NewString()
}

// recreate discards the context and brings a fresh one to Ready with
// the remembered environment.
func (h *Host) recreate() {
	h.newSession()
	init, err := NewRequest(TypeInit, "host-reinit", InitPayload{Environment: h.env})
	if err != nil {
		h.logger.Error("encoding reinit message", "error", err)
		return
	}
	if rep := h.session.Handle(init); rep.Type != TypeReady {
		h.logger.Error("reinitializing recreated context failed",
			"session_id", h.sessionID, "reply", rep.Type)
		return
	}
	h.logger.Info("context recreated", "session_id", h.sessionID)
}
