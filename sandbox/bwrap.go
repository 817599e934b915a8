// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"sort"
)

// BwrapOptions holds everything needed to build one bwrap invocation.
type BwrapOptions struct {
	// Profile is the resolved, expanded profile.
	Profile *Profile

	// Command is the converter argv to run inside the sandbox.
	Command []string
}

// BwrapBuilder translates a profile into bubblewrap command-line
// arguments.
type BwrapBuilder struct {
	args []string
}

// NewBwrapBuilder creates an empty builder.
func NewBwrapBuilder() *BwrapBuilder {
	return &BwrapBuilder{}
}

// Build constructs the bwrap argument list. The environment is always
// cleared; only profile-declared variables reach the converter.
func (b *BwrapBuilder) Build(opts *BwrapOptions) ([]string, error) {
	if opts.Profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}
	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}

	b.args = b.args[:0]
	b.addNamespaces(opts.Profile.Namespaces)
	b.addSecurity(opts.Profile.Security)

	// Standard /proc and minimal /dev.
	b.args = append(b.args, "--proc", "/proc")
	b.args = append(b.args, "--dev", "/dev")

	if err := b.addMounts(opts.Profile.Filesystem); err != nil {
		return nil, err
	}
	for _, dir := range opts.Profile.CreateDirs {
		b.args = append(b.args, "--dir", dir)
	}

	b.args = append(b.args, "--clearenv")
	keys := make([]string, 0, len(opts.Profile.Environment))
	for key := range opts.Profile.Environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.args = append(b.args, "--setenv", key, opts.Profile.Environment[key])
	}

	if opts.Profile.WorkDir != "" {
		b.args = append(b.args, "--chdir", opts.Profile.WorkDir)
	}

	b.args = append(b.args, "--")
	b.args = append(b.args, opts.Command...)
	return b.args, nil
}

func (b *BwrapBuilder) addNamespaces(ns NamespaceConfig) {
	if ns.PID {
		b.args = append(b.args, "--unshare-pid")
	}
	if ns.Net {
		b.args = append(b.args, "--unshare-net")
	}
	if ns.IPC {
		b.args = append(b.args, "--unshare-ipc")
	}
	if ns.UTS {
		b.args = append(b.args, "--unshare-uts")
	}
	if ns.Cgroup {
		b.args = append(b.args, "--unshare-cgroup")
	}
	if ns.User {
		b.args = append(b.args, "--unshare-user")
	}
}

func (b *BwrapBuilder) addSecurity(sec SecurityConfig) {
	if sec.NewSession {
		b.args = append(b.args, "--new-session")
	}
	if sec.DieWithParent {
		b.args = append(b.args, "--die-with-parent")
	}
}

func (b *BwrapBuilder) addMounts(mounts []Mount) error {
	for _, mount := range mounts {
		switch mount.Type {
		case MountTypeTmpfs:
			b.args = append(b.args, "--tmpfs", mount.Dest)

		case MountTypeProc:
			b.args = append(b.args, "--proc", mount.Dest)

		case MountTypeDev:
			b.args = append(b.args, "--dev", mount.Dest)

		case MountTypeBind:
			if mount.Optional {
				if _, err := os.Stat(mount.Source); os.IsNotExist(err) {
					continue
				}
			}
			if mount.Mode == MountModeRW {
				b.args = append(b.args, "--bind", mount.Source, mount.Dest)
			} else {
				b.args = append(b.args, "--ro-bind", mount.Source, mount.Dest)
			}

		default:
			return fmt.Errorf("unknown mount type %q for %s", mount.Type, mount.Dest)
		}
	}
	return nil
}

// BwrapPath returns the path of the bwrap executable.
func BwrapPath() (string, error) {
	paths := []string{
		"/usr/bin/bwrap",
		"/usr/local/bin/bwrap",
		"/bin/bwrap",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("bwrap not found in standard locations")
}
