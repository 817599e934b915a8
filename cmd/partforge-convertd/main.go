// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"

	"github.com/partforge/partforge/convert"
	"github.com/partforge/partforge/lib/config"
	"github.com/partforge/partforge/lib/metrics"
	"github.com/partforge/partforge/lib/version"
	"github.com/partforge/partforge/sandbox"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var listenAddr string
	var showVersion bool

	flagSet := pflag.NewFlagSet("partforge-convertd", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $PARTFORGE_CONFIG)")
	flagSet.StringVar(&listenAddr, "listen", "", "listen address (overrides server.listen_addr)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("partforge-convertd %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}
	if err := cfg.EnsurePaths(); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}

	logger.Info("starting partforge-convertd",
		"version", version.Info(),
		"listen_addr", cfg.Server.ListenAddr,
		"profile", cfg.Convert.Profile,
	)

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if cfg.Server.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", m.Handler())
	}
	if pipeline != nil {
		router.Post("/api/convert", convert.Handler(pipeline, m, logger))
	} else {
		// Degraded mode: the sandbox is unavailable and the config
		// allows startup anyway. Conversions are refused outright.
		router.Post("/api/convert", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "conversion sandbox unavailable", http.StatusServiceUnavailable)
		})
	}

	readTimeout, err := time.ParseDuration(cfg.Server.ReadTimeout)
	if err != nil {
		return fmt.Errorf("invalid server.read_timeout: %w", err)
	}
	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		return fmt.Errorf("invalid server.shutdown_timeout: %w", err)
	}

	server := &http.Server{
		Addr:        cfg.Server.ListenAddr,
		Handler:     router,
		ReadTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildPipeline resolves the sandbox profile and constructs the
// conversion pipeline. A missing sandbox is fatal when the config
// says "error" and yields a nil pipeline (degraded mode) when it
// says "warn".
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*convert.Pipeline, error) {
	loader := sandbox.NewProfileLoader()
	if err := loader.LoadDefaults(); err != nil {
		return nil, fmt.Errorf("loading default sandbox profiles: %w", err)
	}
	if cfg.Paths.Profiles != "" {
		if err := loader.LoadDirectory(cfg.Paths.Profiles); err != nil {
			return nil, fmt.Errorf("loading operator sandbox profiles: %w", err)
		}
	}

	profile, err := loader.Resolve(cfg.Convert.Profile)
	if err != nil {
		return nil, fmt.Errorf("resolving sandbox profile %q: %w", cfg.Convert.Profile, err)
	}

	if err := sandbox.Preflight(profile); err != nil {
		if cfg.Convert.Fallback.NoBwrap == "error" {
			return nil, fmt.Errorf("sandbox preflight failed: %w", err)
		}
		logger.Warn("sandbox preflight failed, conversions disabled", "error", err)
		return nil, nil
	}

	box, err := sandbox.New(profile, logger)
	if err != nil {
		if cfg.Convert.Fallback.NoBwrap == "error" {
			return nil, fmt.Errorf("creating sandbox: %w", err)
		}
		logger.Warn("sandbox unavailable, conversions disabled", "error", err)
		return nil, nil
	}

	// The converter runs in-sandbox, resolved against the profile's
	// PATH, but a host-side existence check catches the common
	// misconfiguration early.
	if _, err := cfg.BinaryPath(cfg.Convert.Converter); err != nil {
		logger.Warn("converter binary not found on host", "error", err)
	}

	return convert.NewPipeline(convert.Options{
		Runner:         box,
		Logger:         logger,
		ConverterPath:  cfg.Convert.Converter,
		TempRoot:       cfg.Paths.TempRoot,
		SandboxWorkDir: profile.WorkDir,
	})
}
