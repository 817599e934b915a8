// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"strings"
	"testing"
)

func TestParseProfilesConfig(t *testing.T) {
	config, err := ParseProfilesConfig([]byte(defaultProfilesYAML))
	if err != nil {
		t.Fatalf("ParseProfilesConfig: %v", err)
	}
	converter, ok := config.Profiles["converter"]
	if !ok {
		t.Fatal("missing converter profile")
	}
	if converter.Name != "converter" {
		t.Errorf("name = %q, want stamped from map key", converter.Name)
	}
	if !converter.Namespaces.Net {
		t.Error("converter profile must unshare the network namespace")
	}
	if converter.Limits.CPUSeconds == 0 || converter.Limits.AddressSpaceMB == 0 {
		t.Errorf("converter limits incomplete: %+v", converter.Limits)
	}
	if converter.WorkDir != "/work" {
		t.Errorf("work_dir = %q", converter.WorkDir)
	}
}

func TestResolveInheritance(t *testing.T) {
	loader := NewProfileLoader()
	if err := loader.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}

	relaxed, err := loader.Resolve("converter-relaxed")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if relaxed.Limits.CPUSeconds != 600 {
		t.Errorf("cpu_seconds = %d, want child override 600", relaxed.Limits.CPUSeconds)
	}
	if relaxed.WorkDir != "/work" {
		t.Errorf("work_dir = %q, want inherited /work", relaxed.WorkDir)
	}
	if len(relaxed.Filesystem) == 0 {
		t.Error("inherited filesystem mounts missing")
	}
	if relaxed.Inherit != "" {
		t.Error("resolved profile should have inheritance cleared")
	}
}

func TestResolveUnknownProfile(t *testing.T) {
	loader := NewProfileLoader()
	if err := loader.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	if _, err := loader.Resolve("no-such-profile"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestMergeReplacesMountsByDest(t *testing.T) {
	parent := &Profile{
		Name: "parent",
		Filesystem: []Mount{
			{Source: "/usr", Dest: "/usr", Mode: MountModeRO},
			{Source: "/data", Dest: "/work", Mode: MountModeRO},
		},
		Namespaces: NamespaceConfig{Net: true},
	}
	child := &Profile{
		Name: "child",
		Filesystem: []Mount{
			{Source: "/other", Dest: "/work", Mode: MountModeRW},
			{Type: MountTypeTmpfs, Dest: "/tmp"},
		},
	}

	merged := mergeProfiles(parent, child)
	if len(merged.Filesystem) != 3 {
		t.Fatalf("mount count = %d, want 3", len(merged.Filesystem))
	}
	var work *Mount
	for i := range merged.Filesystem {
		if merged.Filesystem[i].Dest == "/work" {
			work = &merged.Filesystem[i]
		}
	}
	if work == nil || work.Source != "/other" || work.Mode != MountModeRW {
		t.Errorf("/work mount = %+v, want child replacement", work)
	}
	if !merged.Namespaces.Net {
		t.Error("unset child namespaces should keep parent's")
	}
}

func TestVariableExpansion(t *testing.T) {
	profile := &Profile{
		Name: "p",
		Filesystem: []Mount{
			{Source: "${WORKDIR}", Dest: "/work", Mode: MountModeRW},
		},
		Environment: map[string]string{"HOME": "${WORKDIR}"},
		WorkDir:     "/work",
		Namespaces:  NamespaceConfig{Net: true},
	}

	expanded := Variables{"WORKDIR": "/tmp/convert-123"}.ExpandProfile(profile)
	if expanded.Filesystem[0].Source != "/tmp/convert-123" {
		t.Errorf("source = %q", expanded.Filesystem[0].Source)
	}
	if expanded.Environment["HOME"] != "/tmp/convert-123" {
		t.Errorf("HOME = %q", expanded.Environment["HOME"])
	}
	// The original is untouched.
	if profile.Filesystem[0].Source != "${WORKDIR}" {
		t.Error("expansion mutated the input profile")
	}
}

func TestValidateRejectsSharedNetwork(t *testing.T) {
	profile := &Profile{
		Name:       "bad",
		Namespaces: NamespaceConfig{PID: true, Net: false},
	}
	err := profile.Validate()
	if err == nil || !strings.Contains(err.Error(), "namespaces.net") {
		t.Fatalf("err = %v, want network namespace complaint", err)
	}
}

func TestValidateRejectsBadMounts(t *testing.T) {
	profile := &Profile{
		Name:       "bad",
		Namespaces: NamespaceConfig{Net: true},
		Filesystem: []Mount{
			{Dest: ""},
			{Source: "", Dest: "/x"},
			{Source: "/a", Dest: "/a", Mode: "rwx"},
		},
	}
	err := profile.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"dest is required", "source is required", "invalid mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
