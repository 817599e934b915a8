// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ProfileLoader loads and resolves sandbox profiles. Built-in
// defaults load first; files loaded later override profiles of the
// same name, so an operator YAML can replace the shipped converter
// profile wholesale.
type ProfileLoader struct {
	configs  []*ProfilesConfig
	resolved map[string]*Profile
}

// NewProfileLoader creates an empty loader.
func NewProfileLoader() *ProfileLoader {
	return &ProfileLoader{resolved: make(map[string]*Profile)}
}

// LoadDefaults loads the built-in profile definitions.
func (l *ProfileLoader) LoadDefaults() error {
	config, err := ParseProfilesConfig([]byte(defaultProfilesYAML))
	if err != nil {
		return fmt.Errorf("parsing default profiles: %w", err)
	}
	l.configs = append(l.configs, config)
	return nil
}

// LoadFile loads profiles from a YAML file.
func (l *ProfileLoader) LoadFile(path string) error {
	config, err := LoadProfilesConfig(path)
	if err != nil {
		return err
	}
	l.configs = append(l.configs, config)
	return nil
}

// LoadDirectory loads every .yaml/.yml file in dir. A missing
// directory is not an error.
func (l *ProfileLoader) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading profile directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := l.LoadFile(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// Resolve returns the named profile with inheritance applied. Later
// loaded configs shadow earlier ones.
func (l *ProfileLoader) Resolve(name string) (*Profile, error) {
	if profile, ok := l.resolved[name]; ok {
		return profile, nil
	}

	var base *Profile
	for _, config := range l.configs {
		if profile, ok := config.Profiles[name]; ok {
			base = profile
		}
	}
	if base == nil {
		return nil, fmt.Errorf("profile not found: %s", name)
	}

	var profile *Profile
	if base.Inherit != "" {
		parent, err := l.Resolve(base.Inherit)
		if err != nil {
			return nil, fmt.Errorf("resolving parent profile %q: %w", base.Inherit, err)
		}
		profile = mergeProfiles(parent, base)
	} else {
		profile = base.Clone()
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	l.resolved[name] = profile
	return profile, nil
}

// List returns all available profile names, sorted.
func (l *ProfileLoader) List() []string {
	names := make(map[string]bool)
	for _, config := range l.configs {
		for name := range config.Profiles {
			names[name] = true
		}
	}
	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// defaultProfilesYAML holds the built-in profiles. The converter
// profile is the production one; converter-relaxed exists for local
// debugging of converter crashes with more headroom.
const defaultProfilesYAML = `
profiles:
  converter:
    description: "STEP converter: no network, read-only system, one work directory"

    work_dir: /work

    filesystem:
      - source: ${WORKDIR}
        dest: /work
        mode: rw
      - type: tmpfs
        dest: /tmp
      - source: /usr
        dest: /usr
        mode: ro
      - source: /bin
        dest: /bin
        mode: ro
      - source: /lib
        dest: /lib
        mode: ro
      - source: /lib64
        dest: /lib64
        mode: ro
        optional: true
      - source: /etc/alternatives
        dest: /etc/alternatives
        mode: ro
        optional: true

    namespaces:
      pid: true
      net: true
      ipc: true
      uts: true
      cgroup: true

    environment:
      PATH: "/usr/local/bin:/usr/bin:/bin"
      HOME: "/work"
      TMPDIR: "/tmp"

    limits:
      cpu_seconds: 60
      address_space_mb: 2048
      wall_clock_seconds: 120

    security:
      new_session: true
      die_with_parent: true

    create_dirs:
      - /var/tmp

  converter-relaxed:
    description: "Converter debugging with wider resource headroom"
    inherit: converter

    limits:
      cpu_seconds: 600
      address_space_mb: 8192
      wall_clock_seconds: 1200
`
