// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ApplyLimits sets rlimits on an already started process via
// prlimit(2). The limits land within the first milliseconds of the
// child's life, before the converter reads any input; the wall-clock
// boundary enforced by the run context covers the window in between.
func ApplyLimits(pid int, limits LimitsConfig) error {
	if limits.CPUSeconds > 0 {
		lim := unix.Rlimit{Cur: limits.CPUSeconds, Max: limits.CPUSeconds}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &lim, nil); err != nil {
			return fmt.Errorf("setting RLIMIT_CPU: %w", err)
		}
	}
	if limits.AddressSpaceMB > 0 {
		bytes := limits.AddressSpaceMB << 20
		lim := unix.Rlimit{Cur: bytes, Max: bytes}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, &lim, nil); err != nil {
			return fmt.Errorf("setting RLIMIT_AS: %w", err)
		}
	}
	return nil
}
