// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/codec"
	"github.com/partforge/partforge/lib/config"
	"github.com/partforge/partforge/lib/metrics"
	"github.com/partforge/partforge/lib/version"
	"github.com/partforge/partforge/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// scriptResult is the JSON record printed on success.
type scriptResult struct {
	Volume       float64         `json:"volume"`
	BoundingBox  kernel.Box      `json:"boundingBox"`
	MemoryUsedMB float64         `json:"memoryUsedMB"`
	NumVert      int             `json:"numVert"`
	NumTri       int             `json:"numTri"`
	Mesh         *kernel.MeshGL  `json:"mesh,omitempty"`
	ModelInfo    *modelInfoBlock `json:"modelInfo,omitempty"`
}

type modelInfoBlock struct {
	Volume      float64    `json:"volume"`
	SurfaceArea float64    `json:"surfaceArea"`
	BoundingBox kernel.Box `json:"boundingBox"`
}

func run() error {
	var configPath string
	var envPairs []string
	var imports []string
	var meshOut string
	var deadline time.Duration
	var memoryLimitMB int
	var includeMesh bool
	var modelInfo bool
	var listHelpers bool
	var verbose bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("partforge-exec", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $PARTFORGE_CONFIG, optional)")
	flagSet.StringArrayVar(&envPairs, "env", nil, "KEY=VALUE pair exposed to the script (repeatable)")
	flagSet.StringArrayVar(&imports, "import", nil, "NAME=FILE compressed mesh record exposed as importedGeometries[NAME] (repeatable)")
	flagSet.StringVar(&meshOut, "mesh-out", "", "write the result mesh as a compressed record to this file")
	flagSet.DurationVar(&deadline, "deadline", 0, "wall-clock budget per execution (overrides config)")
	flagSet.IntVar(&memoryLimitMB, "memory-limit-mb", 0, "script heap growth budget in MB (0 disables)")
	flagSet.BoolVar(&includeMesh, "mesh", false, "include the full mesh arrays in the output")
	flagSet.BoolVar(&modelInfo, "model-info", false, "query the cached model after execution")
	flagSet.BoolVar(&listHelpers, "helpers", false, "print the helper function list and exit")
	flagSet.BoolVar(&verbose, "verbose", false, "log session activity to stderr")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("partforge-exec %s\n", version.Info())
		return nil
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	environment, execDeadline, err := resolveSettings(configPath, envPairs, deadline)
	if err != nil {
		return err
	}

	host := worker.NewHost(worker.HostOptions{
		Logger:   logger,
		Deadline: execDeadline,
		Metrics:  metrics.New(),
	})

	if listHelpers {
		return printHelpers(host)
	}

	args := flagSet.Args()
	if len(args) != 1 {
		return fmt.Errorf("usage: partforge-exec [flags] <script.js>")
	}
	script, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	req, err := worker.NewRequest(worker.TypeInit, "exec-init", worker.InitPayload{
		Environment: environment,
	})
	if err != nil {
		return err
	}
	if reply := host.Send(req); reply.Fault() != nil {
		return reply.Fault()
	}

	importedModels, err := loadImports(imports)
	if err != nil {
		return err
	}

	req, err = worker.NewRequest(worker.TypeExecute, "exec-run", worker.ExecutePayload{
		Script:         string(script),
		ImportedModels: importedModels,
		MemoryLimitMB:  memoryLimitMB,
	})
	if err != nil {
		return err
	}
	reply := host.Send(req)
	if fe := reply.Fault(); fe != nil {
		return fe
	}

	var payload worker.ResultPayload
	if err := reply.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	result := scriptResult{
		Volume:       payload.Volume,
		BoundingBox:  payload.BoundingBox,
		MemoryUsedMB: payload.MemoryUsedMB,
	}
	if payload.Mesh != nil {
		result.NumVert = payload.Mesh.NumVert()
		result.NumTri = payload.Mesh.NumTri()
		if includeMesh {
			result.Mesh = payload.Mesh
		}
		if meshOut != "" {
			blob, err := codec.EncodeCompressed(payload.Mesh)
			if err != nil {
				return fmt.Errorf("encoding mesh record: %w", err)
			}
			if err := os.WriteFile(meshOut, blob, 0o644); err != nil {
				return fmt.Errorf("writing mesh record: %w", err)
			}
		}
	}

	if modelInfo {
		req, err = worker.NewRequest(worker.TypeGetModelInfo, "exec-info", nil)
		if err != nil {
			return err
		}
		infoReply := host.Send(req)
		if fe := infoReply.Fault(); fe != nil {
			return fe
		}
		var info worker.ModelInfoPayload
		if err := infoReply.DecodePayload(&info); err != nil {
			return fmt.Errorf("decoding model info: %w", err)
		}
		result.ModelInfo = &modelInfoBlock{
			Volume:      info.Volume,
			SurfaceArea: info.SurfaceArea,
			BoundingBox: info.BoundingBox,
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// resolveSettings merges config-file execution settings with the
// command-line overrides. The config file is optional here: the CLI
// works standalone with built-in defaults.
func resolveSettings(configPath string, envPairs []string, deadline time.Duration) (map[string]string, time.Duration, error) {
	environment := map[string]string{}
	execDeadline := worker.DefaultExecuteDeadline

	var cfg *config.Config
	var err error
	switch {
	case configPath != "":
		cfg, err = config.LoadFile(configPath)
	case os.Getenv("PARTFORGE_CONFIG") != "":
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, 0, fmt.Errorf("loading config: %w", err)
	}
	if cfg != nil {
		for k, v := range cfg.Execute.Environment {
			environment[k] = v
		}
		if cfg.Execute.Deadline != "" {
			d, err := time.ParseDuration(cfg.Execute.Deadline)
			if err != nil {
				return nil, 0, fmt.Errorf("invalid execute.deadline: %w", err)
			}
			execDeadline = d
		}
	}

	for _, pair := range envPairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, 0, fmt.Errorf("invalid --env %q, want KEY=VALUE", pair)
		}
		environment[key] = value
	}

	if deadline > 0 {
		execDeadline = deadline
	}
	return environment, execDeadline, nil
}

// loadImports reads compressed mesh records produced by --mesh-out
// and keys them for the script's importedGeometries accessor. The
// records are revalidated inside the execution context before any
// geometry is constructed from them.
func loadImports(pairs []string) (map[string]*kernel.MeshGL, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	models := make(map[string]*kernel.MeshGL, len(pairs))
	for _, pair := range pairs {
		name, file, ok := strings.Cut(pair, "=")
		if !ok || name == "" || file == "" {
			return nil, fmt.Errorf("invalid --import %q, want NAME=FILE", pair)
		}
		blob, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading mesh record %s: %w", file, err)
		}
		var mesh kernel.MeshGL
		if err := codec.DecodeCompressed(blob, &mesh); err != nil {
			return nil, fmt.Errorf("decoding mesh record %s: %w", file, err)
		}
		models[name] = &mesh
	}
	return models, nil
}

func printHelpers(host *worker.Host) error {
	req, err := worker.NewRequest(worker.TypeGetHelperList, "exec-helpers", nil)
	if err != nil {
		return err
	}
	reply := host.Send(req)
	if fe := reply.Fault(); fe != nil {
		return fe
	}
	var payload worker.HelperListPayload
	if err := reply.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decoding helper list: %w", err)
	}
	for _, name := range payload.Helpers {
		fmt.Println(name)
	}
	return nil
}
