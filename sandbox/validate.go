// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"strings"
)

// Preflight checks that a resolved profile can actually run on this
// host: bwrap is installed and every required bind source exists.
// Run once at service startup so a misconfigured host fails fast
// instead of on the first conversion request.
func Preflight(profile *Profile) error {
	var problems []string

	if _, err := BwrapPath(); err != nil {
		problems = append(problems, err.Error())
	}

	for _, mount := range profile.Filesystem {
		if mount.Type != MountTypeBind || mount.Optional {
			continue
		}
		// The work directory source is created per run.
		if strings.Contains(mount.Source, "${") {
			continue
		}
		if _, err := os.Stat(mount.Source); err != nil {
			problems = append(problems, fmt.Sprintf("mount source %s: %v", mount.Source, err))
		}
	}

	if err := profile.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("sandbox preflight failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
