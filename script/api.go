// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package script

import (
	"github.com/dop251/goja"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/partforge/partforge/geometry"
	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
	"github.com/partforge/partforge/lib/vmath"
)

// jsGeometry wraps a kernel manifold for script use. Methods are
// exposed under JavaScript naming by the engine's field name mapper
// (Volume becomes volume, and so on).
type jsGeometry struct {
	m *kernel.Manifold
}

func (g *jsGeometry) Volume() float64      { return g.m.Volume() }
func (g *jsGeometry) SurfaceArea() float64 { return g.m.SurfaceArea() }
func (g *jsGeometry) Status() int          { return int(g.m.Status()) }

func (g *jsGeometry) BoundingBox() kernel.Box { return g.m.BoundingBox() }

// GetMesh serializes the geometry into the transferable mesh record.
func (g *jsGeometry) GetMesh() *kernel.MeshGL { return g.m.MeshGL() }

func (g *jsGeometry) Translate(x, y, z float64) *jsGeometry {
	return &jsGeometry{m: g.m.Translate(x, y, z)}
}

func (g *jsGeometry) Rotate(x, y, z float64) *jsGeometry {
	return &jsGeometry{m: g.m.Rotate(x, y, z)}
}

func (g *jsGeometry) Scale(x, y, z float64) *jsGeometry {
	return &jsGeometry{m: g.m.Scale(x, y, z)}
}

func (g *jsGeometry) Union(other *jsGeometry) (*jsGeometry, error) {
	if other == nil {
		return nil, fault.New(fault.InvalidParameter, "union requires a geometry argument")
	}
	m, err := kernel.Union(g.m, other.m)
	if err != nil {
		return nil, fault.Errorf(fault.InvalidParameter, "union: %w", err)
	}
	return &jsGeometry{m: m}, nil
}

func (g *jsGeometry) Subtract(other *jsGeometry) (*jsGeometry, error) {
	if other == nil {
		return nil, fault.New(fault.InvalidParameter, "subtract requires a geometry argument")
	}
	m, err := kernel.Difference(g.m, other.m)
	if err != nil {
		return nil, fault.Errorf(fault.InvalidParameter, "subtract: %w", err)
	}
	return &jsGeometry{m: m}, nil
}

// jsCrossSection wraps a 2D profile for script use.
type jsCrossSection struct {
	cs kernel.CrossSection
}

func (c *jsCrossSection) Area() float64 { return c.cs.Area() }

// scope is the complete, ordered set of bindings a script sees. The
// names become the parameters of the compiled function wrapper; the
// values are passed positionally at call time.
type scope struct {
	entries []scopeEntry
}

type scopeEntry struct {
	name  string
	value any
}

func (s *scope) names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

func (s *scope) values(vm *goja.Runtime) []goja.Value {
	values := make([]goja.Value, len(s.entries))
	for i, e := range s.entries {
		values[i] = vm.ToValue(e.value)
	}
	return values
}

// buildScope assembles the execution scope: the two kernel namespaces,
// the helper library in HelperNames order, and the imported
// geometries. Rebuilt fresh for every execution.
func (e *Engine) buildScope(imported map[string]*jsGeometry) *scope {
	s := &scope{}
	add := func(name string, value any) {
		s.entries = append(s.entries, scopeEntry{name: name, value: value})
	}

	add("Manifold", e.manifoldNamespace())
	add("CrossSection", e.crossSectionNamespace())

	helpers := map[string]any{
		"shell":         e.bindShell,
		"addDraft":      e.bindAddDraft,
		"sweep":         e.bindSweep,
		"sweepPoints":   e.bindSweepPoints,
		"loft":          e.bindLoft,
		"array3D":       e.bindArray3D,
		"polarArray":    e.bindPolarArray,
		"mirror":        e.bindMirror,
		"center":        e.bindCenter,
		"align":         e.bindAlign,
		"getDimensions": e.bindGetDimensions,
		"tube":          e.bindTube,
		"hexPrism":      e.bindHexPrism,
		"roundedBox":    e.bindRoundedBox,
	}
	for _, name := range geometry.HelperNames() {
		add(name, helpers[name])
	}

	add("importedGeometries", imported)
	return s
}

func (e *Engine) manifoldNamespace() map[string]any {
	return map[string]any{
		"cube": func(size []float64, center bool) (*jsGeometry, error) {
			if len(size) != 3 {
				return nil, fault.Errorf(fault.InvalidParameter, "cube size must be [x, y, z], got %d values", len(size))
			}
			if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
				return nil, fault.Errorf(fault.InvalidParameter, "cube size must be positive, got %v", size)
			}
			return &jsGeometry{m: kernel.Cube([3]float64{size[0], size[1], size[2]}, center)}, nil
		},
		// radiusHigh below zero means equal to radiusLow; exactly zero
		// makes a cone.
		"cylinder": func(height, radiusLow, radiusHigh float64, segments int, center bool) (*jsGeometry, error) {
			if height <= 0 || radiusLow <= 0 {
				return nil, fault.Errorf(fault.InvalidParameter,
					"cylinder needs positive height and radius, got %v, %v", height, radiusLow)
			}
			return &jsGeometry{m: kernel.Cylinder(height, radiusLow, radiusHigh, segments, center)}, nil
		},
		"sphere": func(radius float64, segments int) (*jsGeometry, error) {
			if radius <= 0 {
				return nil, fault.Errorf(fault.InvalidParameter, "sphere radius must be positive, got %v", radius)
			}
			return &jsGeometry{m: kernel.Sphere(radius, segments)}, nil
		},
		"extrude": func(profile *jsCrossSection, height float64) (*jsGeometry, error) {
			if profile == nil {
				return nil, fault.New(fault.InvalidParameter, "extrude requires a cross-section")
			}
			m, err := kernel.Extrude(profile.cs, height)
			if err != nil {
				return nil, fault.Errorf(fault.InvalidParameter, "extrude: %w", err)
			}
			return &jsGeometry{m: m}, nil
		},
		"revolve": func(profile *jsCrossSection, segments int) (*jsGeometry, error) {
			if profile == nil {
				return nil, fault.New(fault.InvalidParameter, "revolve requires a cross-section")
			}
			m, err := kernel.Revolve(profile.cs, segments)
			if err != nil {
				return nil, fault.Errorf(fault.InvalidParameter, "revolve: %w", err)
			}
			return &jsGeometry{m: m}, nil
		},
		"union": func(a, b *jsGeometry) (*jsGeometry, error) {
			if a == nil || b == nil {
				return nil, fault.New(fault.InvalidParameter, "union requires two geometries")
			}
			return a.Union(b)
		},
		"difference": func(a, b *jsGeometry) (*jsGeometry, error) {
			if a == nil || b == nil {
				return nil, fault.New(fault.InvalidParameter, "difference requires two geometries")
			}
			return a.Subtract(b)
		},
	}
}

func (e *Engine) crossSectionNamespace() map[string]any {
	return map[string]any{
		"circle": func(radius float64, segments int) (*jsCrossSection, error) {
			if radius <= 0 {
				return nil, fault.Errorf(fault.InvalidParameter, "circle radius must be positive, got %v", radius)
			}
			return &jsCrossSection{cs: kernel.Circle(radius, segments)}, nil
		},
		"rectangle": func(w, h float64) (*jsCrossSection, error) {
			if w <= 0 || h <= 0 {
				return nil, fault.Errorf(fault.InvalidParameter, "rectangle needs positive dimensions, got %v, %v", w, h)
			}
			return &jsCrossSection{cs: kernel.Rectangle(w, h)}, nil
		},
		"polygon": func(points [][]float64) (*jsCrossSection, error) {
			pts := make([]kernel.Vec2, len(points))
			for i, p := range points {
				if len(p) < 2 {
					return nil, fault.Errorf(fault.InvalidParameter, "polygon point %d must be [x, y]", i)
				}
				pts[i] = kernel.Vec2{X: p[0], Y: p[1]}
			}
			cs, err := kernel.Polygon(pts)
			if err != nil {
				return nil, fault.Errorf(fault.InvalidParameter, "polygon: %w", err)
			}
			return &jsCrossSection{cs: cs}, nil
		},
	}
}

// requireGeometry rejects undefined/null geometry arguments before
// they reach a kernel call.
func requireGeometry(g *jsGeometry, helper string) error {
	if g == nil || g.m == nil {
		return fault.Errorf(fault.InvalidParameter, "%s requires a geometry argument", helper)
	}
	return nil
}

func (e *Engine) bindShell(g *jsGeometry, thickness float64, axisName string) (*jsGeometry, error) {
	if err := requireGeometry(g, "shell"); err != nil {
		return nil, err
	}
	axis, err := geometry.ParseAxis(axisName)
	if err != nil {
		return nil, err
	}
	m, err := geometry.Shell(g.m, thickness, axis)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindAddDraft(g *jsGeometry, angleDegrees float64, axisName string) (*jsGeometry, error) {
	if err := requireGeometry(g, "addDraft"); err != nil {
		return nil, err
	}
	axis, err := geometry.ParseAxis(axisName)
	if err != nil {
		return nil, err
	}
	m, err := geometry.AddDraft(g.m, angleDegrees, axis)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindSweep(profile *jsCrossSection, pathSpec *goja.Object, options *goja.Object) (*jsGeometry, error) {
	if profile == nil {
		return nil, fault.New(fault.InvalidParameter, "sweep requires a cross-section profile")
	}
	path, err := e.extractPath(pathSpec)
	if err != nil {
		return nil, err
	}
	opts, err := e.sweepOptions(options)
	if err != nil {
		return nil, err
	}
	m, err := geometry.Sweep(profile.cs, path, opts)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindSweepPoints(profile *jsCrossSection, points [][]float64, options *goja.Object) (*jsGeometry, error) {
	if profile == nil {
		return nil, fault.New(fault.InvalidParameter, "sweepPoints requires a cross-section profile")
	}
	vecs, err := toVecs(points)
	if err != nil {
		return nil, err
	}
	opts, err := e.sweepOptions(options)
	if err != nil {
		return nil, err
	}
	m, err := geometry.SweepPoints(profile.cs, vecs, opts)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindLoft(top, bottom *jsCrossSection, height float64, options *goja.Object) (*jsGeometry, error) {
	if top == nil || bottom == nil {
		return nil, fault.New(fault.InvalidParameter, "loft requires top and bottom cross-sections")
	}
	var opts geometry.LoftOptions
	if options != nil {
		opts.TwistDegrees = numberField(options, "twistDegrees", 0)
		opts.TopScale = numberField(options, "topScale", 0)
		opts.Resolution = int(numberField(options, "resolution", 0))
		if v := options.Get("align"); v != nil && !goja.IsUndefined(v) {
			opts.Align = v.ToBoolean()
		}
	}
	m, err := geometry.Loft(top.cs, bottom.cs, height, opts)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindArray3D(g *jsGeometry, count []int, spacing []float64) (*jsGeometry, error) {
	if err := requireGeometry(g, "array3D"); err != nil {
		return nil, err
	}
	if len(count) != 3 || len(spacing) != 3 {
		return nil, fault.New(fault.InvalidParameter, "array3D needs [nx, ny, nz] counts and [dx, dy, dz] spacing")
	}
	m, err := geometry.Array3D(g.m, [3]int{count[0], count[1], count[2]},
		[3]float64{spacing[0], spacing[1], spacing[2]})
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindPolarArray(g *jsGeometry, count int, radius float64, axisName string) (*jsGeometry, error) {
	if err := requireGeometry(g, "polarArray"); err != nil {
		return nil, err
	}
	axis, err := geometry.ParseAxis(axisName)
	if err != nil {
		return nil, err
	}
	m, err := geometry.PolarArray(g.m, count, radius, axis)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindMirror(g *jsGeometry, axisName string) (*jsGeometry, error) {
	if err := requireGeometry(g, "mirror"); err != nil {
		return nil, err
	}
	axis, err := geometry.ParseAxis(axisName)
	if err != nil {
		return nil, err
	}
	normal := [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}[axis]
	return &jsGeometry{m: geometry.Mirror(g.m, normal)}, nil
}

// bindCenter centers on every axis by default; explicit booleans
// select a subset.
func (e *Engine) bindCenter(g *jsGeometry, axes ...bool) (*jsGeometry, error) {
	if err := requireGeometry(g, "center"); err != nil {
		return nil, err
	}
	x, y, z := true, true, true
	if len(axes) > 0 {
		x, y, z = false, false, false
		x = axes[0]
		if len(axes) > 1 {
			y = axes[1]
		}
		if len(axes) > 2 {
			z = axes[2]
		}
	}
	return &jsGeometry{m: geometry.Center(g.m, x, y, z)}, nil
}

func (e *Engine) bindAlign(g *jsGeometry, axisName, sideName string, to float64) (*jsGeometry, error) {
	if err := requireGeometry(g, "align"); err != nil {
		return nil, err
	}
	axis, err := geometry.ParseAxis(axisName)
	if err != nil {
		return nil, err
	}
	var side geometry.AlignSide
	switch sideName {
	case "min":
		side = geometry.AlignMin
	case "center":
		side = geometry.AlignCenter
	case "max":
		side = geometry.AlignMax
	default:
		return nil, fault.Errorf(fault.InvalidParameter, "align side must be min, center or max, got %q", sideName)
	}
	return &jsGeometry{m: geometry.Align(g.m, axis, side, to)}, nil
}

func (e *Engine) bindGetDimensions(g *jsGeometry) (geometry.Dimensions, error) {
	if err := requireGeometry(g, "getDimensions"); err != nil {
		return geometry.Dimensions{}, err
	}
	return geometry.GetDimensions(g.m), nil
}

func (e *Engine) bindTube(outer, inner, height float64, segments int) (*jsGeometry, error) {
	m, err := geometry.Tube(outer, inner, height, segments)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindHexPrism(radius, height float64) (*jsGeometry, error) {
	m, err := geometry.HexPrism(radius, height)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

func (e *Engine) bindRoundedBox(size []float64, radius float64, segments int) (*jsGeometry, error) {
	if len(size) != 3 {
		return nil, fault.Errorf(fault.InvalidParameter, "roundedBox size must be [x, y, z], got %d values", len(size))
	}
	m, err := geometry.RoundedBox([3]float64{size[0], size[1], size[2]}, radius, segments)
	if err != nil {
		return nil, err
	}
	return &jsGeometry{m: m}, nil
}

// extractPath converts the script's path specification object into a
// vmath.Path. position is required; derivative and secondDerivative
// are optional callables; tMin/tMax default to [0, 1].
func (e *Engine) extractPath(pathSpec *goja.Object) (*vmath.Path, error) {
	if pathSpec == nil {
		return nil, fault.New(fault.InvalidParameter, "sweep requires a path specification")
	}
	position, ok := goja.AssertFunction(pathSpec.Get("position"))
	if !ok {
		return nil, fault.New(fault.InvalidParameter, "path specification must have a position(t) function")
	}

	path := &vmath.Path{
		Position: e.vectorFunc(position),
		TMin:     numberField(pathSpec, "tMin", 0),
		TMax:     numberField(pathSpec, "tMax", 1),
	}
	if derivative, ok := goja.AssertFunction(pathSpec.Get("derivative")); ok {
		path.Derivative = e.vectorFunc(derivative)
	}
	if second, ok := goja.AssertFunction(pathSpec.Get("secondDerivative")); ok {
		path.SecondDerivative = e.vectorFunc(second)
	}
	if path.TMax <= path.TMin {
		return nil, fault.Errorf(fault.InvalidParameter, "path tMax %v must exceed tMin %v", path.TMax, path.TMin)
	}
	return path, nil
}

// vectorFunc adapts a script callable returning [x, y, z] to a Go
// vector function. Failures propagate as script exceptions.
func (e *Engine) vectorFunc(fn goja.Callable) func(float64) r3.Vec {
	return func(t float64) r3.Vec {
		value, err := fn(goja.Undefined(), e.vm.ToValue(t))
		if err != nil {
			panic(err)
		}
		var out []float64
		if err := e.vm.ExportTo(value, &out); err != nil || len(out) != 3 {
			panic(e.vm.NewTypeError("path function must return [x, y, z]"))
		}
		return r3.Vec{X: out[0], Y: out[1], Z: out[2]}
	}
}

func (e *Engine) sweepOptions(options *goja.Object) (geometry.SweepOptions, error) {
	var opts geometry.SweepOptions
	if options == nil {
		return opts, nil
	}
	if v := options.Get("frame"); v != nil && !goja.IsUndefined(v) {
		switch v.String() {
		case "rmf", "rotationMinimizing":
			opts.Frame = geometry.FrameRotationMinimizing
		case "frenet":
			opts.Frame = geometry.FrameFrenet
		default:
			return opts, fault.Errorf(fault.InvalidParameter, "frame must be rmf or frenet, got %q", v.String())
		}
	}
	opts.ArcSamples = int(numberField(options, "arcSamples", 0))
	opts.Segments = int(numberField(options, "segments", 0))
	if v := options.Get("closed"); v != nil && !goja.IsUndefined(v) {
		opts.Closed = v.ToBoolean()
	}
	return opts, nil
}

func numberField(obj *goja.Object, name string, fallback float64) float64 {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return fallback
	}
	return v.ToFloat()
}

func toVecs(points [][]float64) ([]r3.Vec, error) {
	vecs := make([]r3.Vec, len(points))
	for i, p := range points {
		switch len(p) {
		case 2:
			vecs[i] = r3.Vec{X: p[0], Y: p[1]}
		case 3:
			vecs[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
		default:
			return nil, fault.Errorf(fault.InvalidParameter, "point %d must be [x, y] or [x, y, z]", i)
		}
	}
	return vecs, nil
}
