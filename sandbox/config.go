// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile defines the sandbox configuration for a converter role.
type Profile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Inherit     string            `yaml:"inherit,omitempty"`
	Filesystem  []Mount           `yaml:"filesystem,omitempty"`
	Namespaces  NamespaceConfig   `yaml:"namespaces,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Limits      LimitsConfig      `yaml:"limits,omitempty"`
	Security    SecurityConfig    `yaml:"security,omitempty"`
	CreateDirs  []string          `yaml:"create_dirs,omitempty"`

	// WorkDir is the in-sandbox path of the read-write work
	// directory; the converter is started with this as its cwd.
	WorkDir string `yaml:"work_dir,omitempty"`
}

// Mount defines one filesystem mount in the sandbox.
type Mount struct {
	Source   string `yaml:"source,omitempty"`
	Dest     string `yaml:"dest"`
	Mode     string `yaml:"mode,omitempty"`
	Type     string `yaml:"type,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
}

// Mount types for the Type field.
const (
	MountTypeBind  = ""      // default: bind mount
	MountTypeTmpfs = "tmpfs" // tmpfs mount
	MountTypeProc  = "proc"  // /proc
	MountTypeDev   = "dev"   // minimal /dev
)

// Mount modes for the Mode field.
const (
	MountModeRO = "ro"
	MountModeRW = "rw"
)

// NamespaceConfig defines which namespaces to unshare. The converter
// profile unshares all of them; Net in particular is never shared.
type NamespaceConfig struct {
	PID    bool `yaml:"pid"`
	Net    bool `yaml:"net"`
	IPC    bool `yaml:"ipc"`
	UTS    bool `yaml:"uts"`
	Cgroup bool `yaml:"cgroup"`
	User   bool `yaml:"user"`
}

// LimitsConfig defines the converter's resource ceilings. CPUSeconds
// and AddressSpaceMB become rlimits on the subprocess; wall-clock
// enforcement is the caller's run context, independent of CPU time.
type LimitsConfig struct {
	CPUSeconds       uint64 `yaml:"cpu_seconds,omitempty"`
	AddressSpaceMB   uint64 `yaml:"address_space_mb,omitempty"`
	WallClockSeconds int    `yaml:"wall_clock_seconds,omitempty"`
}

// SecurityConfig defines process-level security settings.
type SecurityConfig struct {
	NewSession    bool `yaml:"new_session"`
	DieWithParent bool `yaml:"die_with_parent"`
}

// ProfilesConfig is the top-level shape of a profiles YAML file.
type ProfilesConfig struct {
	Profiles map[string]*Profile `yaml:"profiles"`
}

// ParseProfilesConfig parses a profiles YAML document and stamps each
// profile with its map key as Name.
func ParseProfilesConfig(data []byte) (*ProfilesConfig, error) {
	var config ProfilesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	for name, profile := range config.Profiles {
		if profile == nil {
			return nil, fmt.Errorf("profile %q is empty", name)
		}
		profile.Name = name
	}
	return &config, nil
}

// LoadProfilesConfig reads and parses a profiles YAML file.
func LoadProfilesConfig(path string) (*ProfilesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}
	return ParseProfilesConfig(data)
}

// Clone creates a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	clone := &Profile{
		Name:        p.Name,
		Description: p.Description,
		Inherit:     p.Inherit,
		Namespaces:  p.Namespaces,
		Limits:      p.Limits,
		Security:    p.Security,
		WorkDir:     p.WorkDir,
	}
	if p.Filesystem != nil {
		clone.Filesystem = make([]Mount, len(p.Filesystem))
		copy(clone.Filesystem, p.Filesystem)
	}
	if p.CreateDirs != nil {
		clone.CreateDirs = make([]string, len(p.CreateDirs))
		copy(clone.CreateDirs, p.CreateDirs)
	}
	if p.Environment != nil {
		clone.Environment = make(map[string]string, len(p.Environment))
		for k, v := range p.Environment {
			clone.Environment[k] = v
		}
	}
	return clone
}

// mergeProfiles merges child settings into parent. Mounts replace by
// destination path; environment merges key-wise; scalar sections
// override when the child sets them.
func mergeProfiles(parent, child *Profile) *Profile {
	result := parent.Clone()
	result.Name = child.Name
	result.Inherit = ""

	if child.Description != "" {
		result.Description = child.Description
	}
	if child.WorkDir != "" {
		result.WorkDir = child.WorkDir
	}

	if len(child.Filesystem) > 0 {
		byDest := make(map[string]int, len(result.Filesystem))
		for i, m := range result.Filesystem {
			byDest[m.Dest] = i
		}
		for _, m := range child.Filesystem {
			if i, ok := byDest[m.Dest]; ok {
				result.Filesystem[i] = m
			} else {
				result.Filesystem = append(result.Filesystem, m)
			}
		}
	}

	if child.Namespaces != (NamespaceConfig{}) {
		result.Namespaces = child.Namespaces
	}
	if child.Security != (SecurityConfig{}) {
		result.Security = child.Security
	}

	if len(child.Environment) > 0 {
		if result.Environment == nil {
			result.Environment = make(map[string]string)
		}
		for k, v := range child.Environment {
			result.Environment[k] = v
		}
	}

	if child.Limits.CPUSeconds != 0 {
		result.Limits.CPUSeconds = child.Limits.CPUSeconds
	}
	if child.Limits.AddressSpaceMB != 0 {
		result.Limits.AddressSpaceMB = child.Limits.AddressSpaceMB
	}
	if child.Limits.WallClockSeconds != 0 {
		result.Limits.WallClockSeconds = child.Limits.WallClockSeconds
	}

	if len(child.CreateDirs) > 0 {
		seen := make(map[string]bool, len(result.CreateDirs))
		for _, d := range result.CreateDirs {
			seen[d] = true
		}
		for _, d := range child.CreateDirs {
			if !seen[d] {
				result.CreateDirs = append(result.CreateDirs, d)
				seen[d] = true
			}
		}
	}

	return result
}

// Variables holds values for ${VAR} expansion in profiles.
type Variables map[string]string

var variablePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Expand replaces ${VAR} references from the variable map, falling
// back to the process environment. Unknown variables are left as-is
// so validation can flag them.
func (v Variables) Expand(s string) string {
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := v[name]; ok {
			return val
		}
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}

// ExpandProfile expands all variables in a profile, returning a copy.
func (v Variables) ExpandProfile(p *Profile) *Profile {
	result := p.Clone()
	for i := range result.Filesystem {
		result.Filesystem[i].Source = v.Expand(result.Filesystem[i].Source)
		result.Filesystem[i].Dest = v.Expand(result.Filesystem[i].Dest)
	}
	for key, val := range result.Environment {
		result.Environment[key] = v.Expand(val)
	}
	for i := range result.CreateDirs {
		result.CreateDirs[i] = v.Expand(result.CreateDirs[i])
	}
	result.WorkDir = v.Expand(result.WorkDir)
	return result
}

// Validate checks structural validity of a profile.
func (p *Profile) Validate() error {
	var problems []string

	for i, m := range p.Filesystem {
		if m.Dest == "" {
			problems = append(problems, fmt.Sprintf("filesystem[%d]: dest is required", i))
		}
		if m.Type == MountTypeBind && m.Source == "" {
			problems = append(problems, fmt.Sprintf("filesystem[%d]: source is required for bind mounts", i))
		}
		if m.Mode != "" && m.Mode != MountModeRO && m.Mode != MountModeRW {
			problems = append(problems, fmt.Sprintf("filesystem[%d]: invalid mode %q (must be ro or rw)", i, m.Mode))
		}
	}

	if !p.Namespaces.Net {
		problems = append(problems, "namespaces.net must be true: the converter never gets network access")
	}
	if p.Limits.WallClockSeconds < 0 {
		problems = append(problems, "limits.wall_clock_seconds must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("profile %q validation failed:\n  %s", p.Name, strings.Join(problems, "\n  "))
	}
	return nil
}
