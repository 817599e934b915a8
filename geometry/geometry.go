// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package geometry is the helper library exposed to sandboxed scripts:
// parametric operations (shell, draft, sweep, loft, arrays, mirror,
// alignment, closed-form shapes) built from kernel primitives and the
// vmath utilities. Every helper is a pure function over geometry
// values and numeric parameters; none retain state between calls.
//
// Parameter violations are reported as fault.InvalidParameter so the
// script engine can surface them with a stable code.
package geometry

import (
	"github.com/partforge/partforge/lib/fault"
)

// Axis selects a coordinate axis for helpers that operate along or
// around one.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "invalid"
}

// ParseAxis maps the script-facing axis name to an Axis.
func ParseAxis(name string) (Axis, error) {
	switch name {
	case "x", "X":
		return AxisX, nil
	case "y", "Y":
		return AxisY, nil
	case "z", "Z":
		return AxisZ, nil
	}
	return 0, fault.Errorf(fault.InvalidParameter, "axis must be x, y or z, got %q", name)
}

// cross returns the two axes perpendicular to a.
func (a Axis) cross() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

// HelperNames enumerates the script-visible helper set, in the order
// reported by the protocol's getHelperList message.
func HelperNames() []string {
	return []string{
		"shell",
		"addDraft",
		"sweep",
		"sweepPoints",
		"loft",
		"array3D",
		"polarArray",
		"mirror",
		"center",
		"align",
		"getDimensions",
		"tube",
		"hexPrism",
		"roundedBox",
	}
}
