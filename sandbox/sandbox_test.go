// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"strings"
	"testing"
)

func TestCappedBufferKeepsPrefix(t *testing.T) {
	buf := newCappedBuffer(10)

	n, err := buf.Write([]byte("hello "))
	if err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	// Over the cap: consumed fully, stored partially.
	n, err = buf.Write([]byte("world and more"))
	if err != nil || n != 14 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := buf.String(); got != "hello worl" {
		t.Errorf("buffer = %q, want first 10 bytes", got)
	}

	// Further writes are consumed without growing the buffer.
	if n, _ := buf.Write([]byte("x")); n != 1 {
		t.Errorf("post-cap write consumed %d bytes", n)
	}
	if len(buf.String()) != 10 {
		t.Errorf("buffer grew past cap: %d bytes", len(buf.String()))
	}
}

func TestPreflightCatchesMissingMountSource(t *testing.T) {
	profile := &Profile{
		Name:       "p",
		Namespaces: NamespaceConfig{Net: true},
		Filesystem: []Mount{
			{Source: "/definitely/not/a/real/path", Dest: "/x", Mode: MountModeRO},
		},
	}
	err := Preflight(profile)
	if err == nil || !strings.Contains(err.Error(), "/definitely/not/a/real/path") {
		t.Fatalf("err = %v, want missing mount source", err)
	}
}

func TestPreflightSkipsOptionalAndUnexpanded(t *testing.T) {
	profile := &Profile{
		Name:       "p",
		Namespaces: NamespaceConfig{Net: true},
		Filesystem: []Mount{
			{Source: "/definitely/not/a/real/path", Dest: "/x", Mode: MountModeRO, Optional: true},
			{Source: "${WORKDIR}", Dest: "/work", Mode: MountModeRW},
		},
	}
	// Only bwrap availability can fail here; mount checks pass.
	if err := Preflight(profile); err != nil && !strings.Contains(err.Error(), "bwrap") {
		t.Fatalf("unexpected preflight failure: %v", err)
	}
}
