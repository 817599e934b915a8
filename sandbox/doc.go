// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox runs the native STEP converter in an isolated
// environment built from bubblewrap (bwrap) Linux namespaces.
//
// The central type is [Sandbox], which assembles a bwrap command from
// a [Profile] and executes it under resource limits. Profiles are
// YAML-driven: they declare filesystem mounts, namespace isolation,
// environment variables, rlimits, and directories to create, with
// single inheritance via the Inherit field and ${VAR} expansion
// ([Variables.ExpandProfile]) before use.
//
// Filesystem isolation is the security boundary. Every mount is
// declared explicitly; there is no implicit host visibility. The
// converter sees read-only system paths, a tmpfs /tmp, and one
// read-write work directory holding its input and output files. The
// network namespace is always unshared: the converter has no reason
// to speak to anything.
//
// Resource limits are enforced two ways: CPU-seconds and address
// space via prlimit on the started process, and wall clock via the
// run context. The wall-clock kill is safe because all communication
// with the converter happens through temp files that the caller
// removes unconditionally.
package sandbox
