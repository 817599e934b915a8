// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// DefaultMaxCaptureBytes caps captured converter stdout/stderr. The
// output is attacker-influenced diagnostic text used only for logs.
const DefaultMaxCaptureBytes = 64 * 1024

// Sandbox runs commands inside a bwrap environment described by a
// profile. One Sandbox is reusable across runs; each run gets its own
// work directory.
type Sandbox struct {
	profile *Profile
	bwrap   string
	logger  *slog.Logger
}

// New creates a sandbox for the given resolved profile. Fails if the
// bwrap binary is not installed.
func New(profile *Profile, logger *slog.Logger) (*Sandbox, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	bwrap, err := BwrapPath()
	if err != nil {
		return nil, err
	}
	return &Sandbox{profile: profile, bwrap: bwrap, logger: logger}, nil
}

// RunSpec describes one sandboxed invocation.
type RunSpec struct {
	// WorkDir is the host directory bound read-write at the profile's
	// work_dir. It holds the converter's input and output files.
	WorkDir string

	// Command is the converter argv, with in-sandbox paths.
	Command []string

	// MaxCaptureBytes caps stdout/stderr capture. Zero means
	// DefaultMaxCaptureBytes.
	MaxCaptureBytes int
}

// Result is the outcome of one sandboxed run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Run executes the command in the sandbox, enforcing the profile's
// rlimits and wall-clock ceiling. A non-zero converter exit is not a
// Go error; callers inspect Result. Errors mean the sandbox itself
// could not run.
func (s *Sandbox) Run(ctx context.Context, spec RunSpec) (*Result, error) {
	if spec.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	profile := Variables{"WORKDIR": spec.WorkDir}.ExpandProfile(s.profile)
	args, err := NewBwrapBuilder().Build(&BwrapOptions{
		Profile: profile,
		Command: spec.Command,
	})
	if err != nil {
		return nil, err
	}

	if profile.Limits.WallClockSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx,
			time.Duration(profile.Limits.WallClockSeconds)*time.Second)
		defer cancel()
	}

	maxCapture := spec.MaxCaptureBytes
	if maxCapture <= 0 {
		maxCapture = DefaultMaxCaptureBytes
	}
	stdout := newCappedBuffer(maxCapture)
	stderr := newCappedBuffer(maxCapture)

	cmd := exec.CommandContext(ctx, s.bwrap, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting sandbox: %w", err)
	}
	if err := ApplyLimits(cmd.Process.Pid, profile.Limits); err != nil {
		// The process is already running without limits; kill it
		// rather than let it run unconstrained.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	waitErr := cmd.Wait()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
	switch {
	case waitErr == nil:
		result.ExitCode = 0
	case result.TimedOut:
		result.ExitCode = -1
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("waiting for sandbox: %w", waitErr)
		}
	}

	s.logger.Debug("sandbox run finished",
		"exit_code", result.ExitCode,
		"timed_out", result.TimedOut,
		"duration", result.Duration,
	)
	return result, nil
}

// cappedBuffer keeps the first cap bytes written and drops the rest.
type cappedBuffer struct {
	buf []byte
	cap int
}

func newCappedBuffer(capBytes int) *cappedBuffer {
	return &cappedBuffer{cap: capBytes}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.cap - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	// Report full consumption so the child never blocks on a full
	// capture buffer.
	return len(p), nil
}

func (b *cappedBuffer) String() string { return string(b.buf) }
