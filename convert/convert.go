// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package convert implements the server-side STEP conversion
// pipeline: an uploaded CAD exchange file is digested, handed to an
// external converter running under the OS sandbox, and the resulting
// OBJ is parsed under hard caps and repaired into a kernel mesh.
//
// The converter subprocess is the only hard pre-emptive resource
// boundary in the system. Killing it on timeout is safe because all
// communication happens through a per-request temp directory that is
// removed unconditionally on every path.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/binhash"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/sandbox"
	"github.com/partforge/partforge/wavefront"
)

// Upload constraints.
const (
	// MaxUploadBytes caps the uploaded CAD file size.
	MaxUploadBytes = 50 << 20

	// minOutputBytes is the smallest converter output accepted. An
	// OBJ below this holds no usable geometry; absence or undersize
	// is a hard failure, never silently ignored.
	minOutputBytes = 64
)

// allowedExtensions is the upload extension allowlist.
var allowedExtensions = map[string]bool{
	".step": true,
	".stp":  true,
}

// Tessellation parameter ranges. Out-of-range values clamp; NaN and
// Inf substitute the default.
const (
	DefaultDeflection = 0.1
	MinDeflection     = 0.01
	MaxDeflection     = 1.0

	DefaultTolerance = 0.001
	MinTolerance     = 0.0001
	MaxTolerance     = 0.1
)

// Params are the parameters of one conversion. Deflection controls
// the converter's tessellation density; Tolerance is the quantized
// weld pitch of the repair ladder's final rung.
type Params struct {
	Deflection float64
	Tolerance  float64
}

// Clamped returns params forced into the safe ranges. Zero, NaN and
// Inf become the defaults.
func (p Params) Clamped() Params {
	return Params{
		Deflection: clamp(p.Deflection, MinDeflection, MaxDeflection, DefaultDeflection),
		Tolerance:  clamp(p.Tolerance, MinTolerance, MaxTolerance, DefaultTolerance),
	}
}

func clamp(v, min, max, def float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Runner executes a command in the converter sandbox. *sandbox.Sandbox
// is the production implementation; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, spec sandbox.RunSpec) (*sandbox.Result, error)
}

// Options configures a Pipeline.
type Options struct {
	Runner Runner
	Logger *slog.Logger

	// ConverterPath is the in-sandbox path of the converter binary.
	ConverterPath string

	// TempRoot holds per-request work directories. Defaults to the
	// system temp directory.
	TempRoot string

	// SandboxWorkDir is the in-sandbox mount point of the work
	// directory, matching the profile's work_dir.
	SandboxWorkDir string
}

// Pipeline converts uploaded STEP files into validated kernel meshes.
// Safe for concurrent use; each conversion gets its own work
// directory.
type Pipeline struct {
	runner         Runner
	logger         *slog.Logger
	converterPath  string
	tempRoot       string
	sandboxWorkDir string
}

// NewPipeline creates a conversion pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConverterPath == "" {
		opts.ConverterPath = "step2obj"
	}
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	if opts.SandboxWorkDir == "" {
		opts.SandboxWorkDir = "/work"
	}
	return &Pipeline{
		runner:         opts.Runner,
		logger:         opts.Logger,
		converterPath:  opts.ConverterPath,
		tempRoot:       opts.TempRoot,
		sandboxWorkDir: opts.SandboxWorkDir,
	}, nil
}

// Output is a successful conversion.
type Output struct {
	Mesh        *kernel.MeshGL
	Volume      float64
	BoundingBox kernel.Box

	// Digest is the hex BLAKE3 digest of the uploaded file.
	Digest string

	// SkippedLines counts malformed OBJ lines the parser skipped.
	SkippedLines int
}

// Convert runs the full pipeline for one upload. filename supplies
// only the extension; content is read fully, capped at
// MaxUploadBytes.
func (p *Pipeline) Convert(ctx context.Context, filename string, content io.Reader, params Params) (*Output, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, fault.Errorf(fault.InvalidParameter,
			"unsupported file extension %q", ext)
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxUploadBytes+1))
	if err != nil {
		return nil, fault.Errorf(fault.InvalidParameter, "reading upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fault.Errorf(fault.InvalidParameter,
			"upload exceeds %d bytes", MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, fault.New(fault.EmptyGeometry, "upload is empty")
	}

	digest := binhash.FormatDigest(binhash.HashBytes(data))
	params = params.Clamped()
	logger := p.logger.With("digest", digest[:16])

	workDir, err := os.MkdirTemp(p.tempRoot, "convert-")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	// Input and output never outlive the request, on any path.
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			logger.Error("removing work directory", "path", workDir, "error", rmErr)
		}
	}()

	inputName := "input" + ext
	if err := os.WriteFile(filepath.Join(workDir, inputName), data, 0o600); err != nil {
		return nil, fmt.Errorf("writing converter input: %w", err)
	}

	result, err := p.runner.Run(ctx, sandbox.RunSpec{
		WorkDir: workDir,
		Command: []string{
			p.converterPath,
			"--deflection", strconv.FormatFloat(params.Deflection, 'g', -1, 64),
			path.Join(p.sandboxWorkDir, inputName),
			path.Join(p.sandboxWorkDir, "output.obj"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("running converter: %w", err)
	}
	if result.TimedOut {
		logger.Warn("converter timed out", "duration", result.Duration)
		return nil, fault.New(fault.ExecutionTimeout, "converter exceeded its wall-clock budget").
			WithDetail(converterDetail(result))
	}
	if result.ExitCode != 0 {
		logger.Warn("converter failed", "exit_code", result.ExitCode)
		return nil, fault.Errorf(fault.ConverterOutputInvalid,
			"converter exited with status %d", result.ExitCode).
			WithDetail(converterDetail(result))
	}

	outputPath := filepath.Join(workDir, "output.obj")
	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fault.New(fault.ConverterOutputInvalid, "converter produced no output file").
			WithDetail(converterDetail(result))
	}
	if info.Size() < minOutputBytes {
		return nil, fault.Errorf(fault.ConverterOutputInvalid,
			"converter output is %d bytes, below the %d byte minimum", info.Size(), minOutputBytes).
			WithDetail(converterDetail(result))
	}

	output, err := os.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("opening converter output: %w", err)
	}
	defer output.Close()

	// Server-side parse is hard-capped: oversize output is rejected,
	// never truncated.
	mesh, err := wavefront.Parse(output, wavefront.ServerLimits, logger)
	if err != nil {
		return nil, err
	}

	raw := kernel.FromMesh(mesh.Verts, mesh.Tris)
	repaired, ok := raw.Repair(params.Tolerance)
	if !ok {
		return nil, fault.Errorf(fault.UnrepairableGeometry,
			"converted mesh is not manifold: %s", repaired.Status())
	}

	volume := repaired.Volume()
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume <= 0 {
		return nil, fault.Errorf(fault.ConverterOutputInvalid,
			"converted mesh volume %v is not finite and positive", volume)
	}

	logger.Info("conversion succeeded",
		"vertices", len(mesh.Verts),
		"triangles", len(mesh.Tris),
		"skipped_lines", mesh.SkippedLines,
		"volume", volume,
	)
	return &Output{
		Mesh:         repaired.MeshGL(),
		Volume:       volume,
		BoundingBox:  repaired.BoundingBox(),
		Digest:       digest,
		SkippedLines: mesh.SkippedLines,
	}, nil
}

// converterDetail formats capped converter output for server-side
// diagnostics. Never sent to remote callers.
func converterDetail(result *sandbox.Result) string {
	const maxDetail = 8 * 1024
	detail := "stdout:\n" + result.Stdout + "\nstderr:\n" + result.Stderr
	return fault.TrimDetail(detail, maxDetail)
}
