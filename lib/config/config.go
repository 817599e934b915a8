// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for PartForge.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Server configures the HTTP conversion daemon.
	Server ServerConfig `yaml:"server"`

	// Convert configures the STEP conversion pipeline.
	Convert ConvertConfig `yaml:"convert"`

	// Execute configures script execution sessions.
	Execute ExecuteConfig `yaml:"execute"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Convert *ConvertConfig `yaml:"convert,omitempty"`
	Execute *ExecuteConfig `yaml:"execute,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for PartForge data.
	Root string `yaml:"root"`

	// Bin is where PartForge binaries are installed.
	// This provides hermetic binary paths independent of user PATH.
	// Contains: step2obj and any other converters.
	Bin string `yaml:"bin"`

	// TempRoot holds per-request conversion work directories.
	TempRoot string `yaml:"temp_root"`

	// Profiles is a directory of operator sandbox profile overrides.
	// Optional; the embedded defaults apply when empty or missing.
	Profiles string `yaml:"profiles"`
}

// ServerConfig configures the HTTP conversion daemon.
type ServerConfig struct {
	// ListenAddr is the address the daemon binds.
	// Default: 127.0.0.1:8380
	ListenAddr string `yaml:"listen_addr"`

	// ReadTimeout bounds reading a full request, upload included.
	// Default: 120s
	ReadTimeout string `yaml:"read_timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	// Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout"`

	// MetricsEnabled exposes /metrics when true.
	// Default: true
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// ConvertConfig configures the STEP conversion pipeline.
type ConvertConfig struct {
	// Converter is the converter binary name, resolved via
	// Paths.Bin first and PATH second.
	// Default: step2obj
	Converter string `yaml:"converter"`

	// Profile is the sandbox profile the converter runs under.
	// Default: converter
	Profile string `yaml:"profile"`

	// Fallback configures behavior when sandbox capabilities are unavailable.
	Fallback FallbackConfig `yaml:"fallback"`
}

// FallbackConfig configures startup behavior when capabilities are missing.
type FallbackConfig struct {
	// NoBwrap specifies behavior when bubblewrap is unavailable.
	// Values: "warn" (warn and refuse conversions), "error" (fail startup)
	// Default: warn (development), error (production)
	NoBwrap string `yaml:"no_bwrap"`
}

// ExecuteConfig configures script execution sessions.
type ExecuteConfig struct {
	// Deadline is the wall-clock budget for one script execution.
	// Default: 30s
	Deadline string `yaml:"deadline"`

	// MemoryLimitMB is the default script heap growth budget.
	// Zero disables the budget.
	MemoryLimitMB int `yaml:"memory_limit_mb"`

	// Environment is the frozen snapshot exposed to scripts as the
	// global "environment" object.
	Environment map[string]string `yaml:"environment"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "partforge")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:     defaultRoot,
			Bin:      filepath.Join(defaultRoot, "bin"),
			TempRoot: filepath.Join(defaultRoot, "tmp"),
			Profiles: "",
		},
		Server: ServerConfig{
			ListenAddr:      "127.0.0.1:8380",
			ReadTimeout:     "120s",
			ShutdownTimeout: "30s",
			MetricsEnabled:  true,
		},
		Convert: ConvertConfig{
			Converter: "step2obj",
			Profile:   "converter",
			Fallback: FallbackConfig{
				NoBwrap: "warn",
			},
		},
		Execute: ExecuteConfig{
			Deadline:      "30s",
			MemoryLimitMB: 0,
			Environment:   map[string]string{},
		},
	}
}

// Load loads configuration from the PARTFORGE_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if PARTFORGE_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("PARTFORGE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PARTFORGE_CONFIG environment variable not set; " +
			"set it to the path of your partforge.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: a missing sandbox is a startup failure.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Convert: &ConvertConfig{
					Fallback: FallbackConfig{
						NoBwrap: "error",
					},
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Bin != "" {
			c.Paths.Bin = overrides.Paths.Bin
		}
		if overrides.Paths.TempRoot != "" {
			c.Paths.TempRoot = overrides.Paths.TempRoot
		}
		if overrides.Paths.Profiles != "" {
			c.Paths.Profiles = overrides.Paths.Profiles
		}
	}

	if overrides.Server != nil {
		if overrides.Server.ListenAddr != "" {
			c.Server.ListenAddr = overrides.Server.ListenAddr
		}
		if overrides.Server.ReadTimeout != "" {
			c.Server.ReadTimeout = overrides.Server.ReadTimeout
		}
		if overrides.Server.ShutdownTimeout != "" {
			c.Server.ShutdownTimeout = overrides.Server.ShutdownTimeout
		}
		// MetricsEnabled is a bool, so we always apply it from overrides.
		c.Server.MetricsEnabled = overrides.Server.MetricsEnabled
	}

	if overrides.Convert != nil {
		if overrides.Convert.Converter != "" {
			c.Convert.Converter = overrides.Convert.Converter
		}
		if overrides.Convert.Profile != "" {
			c.Convert.Profile = overrides.Convert.Profile
		}
		if overrides.Convert.Fallback.NoBwrap != "" {
			c.Convert.Fallback.NoBwrap = overrides.Convert.Fallback.NoBwrap
		}
	}

	if overrides.Execute != nil {
		if overrides.Execute.Deadline != "" {
			c.Execute.Deadline = overrides.Execute.Deadline
		}
		if overrides.Execute.MemoryLimitMB != 0 {
			c.Execute.MemoryLimitMB = overrides.Execute.MemoryLimitMB
		}
		for k, v := range overrides.Execute.Environment {
			c.Execute.Environment[k] = v
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"PARTFORGE_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["PARTFORGE_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Bin = expandVars(c.Paths.Bin, vars)
	c.Paths.TempRoot = expandVars(c.Paths.TempRoot, vars)
	c.Paths.Profiles = expandVars(c.Paths.Profiles, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if c.Server.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("server.listen_addr is required"))
	}

	if c.Convert.Converter == "" {
		errs = append(errs, fmt.Errorf("convert.converter is required"))
	}
	if c.Convert.Profile == "" {
		errs = append(errs, fmt.Errorf("convert.profile is required"))
	}

	fallbackValues := []string{"warn", "error"}
	if !contains(fallbackValues, c.Convert.Fallback.NoBwrap) {
		errs = append(errs, fmt.Errorf("convert.fallback.no_bwrap must be one of: %v", fallbackValues))
	}

	if c.Execute.MemoryLimitMB < 0 {
		errs = append(errs, fmt.Errorf("execute.memory_limit_mb must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Bin,
		c.Paths.TempRoot,
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// BinaryPath returns the full path to a PartForge binary.
// It looks in Paths.Bin first, then falls back to exec.LookPath.
// This provides hermetic binary resolution when Bin is configured.
func (c *Config) BinaryPath(name string) (string, error) {
	// If Bin is configured, look there first.
	if c.Paths.Bin != "" {
		binPath := filepath.Join(c.Paths.Bin, name)
		if _, err := os.Stat(binPath); err == nil {
			return binPath, nil
		}
	}

	// Fall back to PATH lookup.
	path, err := exec.LookPath(name)
	if err != nil {
		if c.Paths.Bin != "" {
			return "", fmt.Errorf("%s not found in %s or PATH", name, c.Paths.Bin)
		}
		return "", fmt.Errorf("%s not found in PATH", name)
	}
	return path, nil
}
