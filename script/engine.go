// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package script executes untrusted geometry scripts in an embedded
// JavaScript engine. The script sees exactly one enumerable set of
// bindings (the kernel namespaces, the helper library, and the
// imported geometries), assembled fresh per execution; ambient
// capabilities on the denylist are replaced at lockdown with
// accessors that throw CapabilityDenied.
//
// An Engine is single-threaded: one Execute runs to completion before
// the next, matching the cooperative model of the sandbox protocol.
// Wall-clock enforcement lives in the host supervisor, which calls
// Interrupt and discards the engine on deadline.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/dop251/goja"

	"github.com/partforge/partforge/kernel"
	"github.com/partforge/partforge/lib/fault"
)

// Budget is the per-execution resource ceiling. Memory is sampled
// before and after the run, not continuously enforced: a script can
// exhaust memory inside one synchronous call before the post-check
// runs, so this is a best-effort control. The wall-clock ceiling is
// the host supervisor's, not the engine's.
type Budget struct {
	MemoryLimitMB int
}

// Result is a successful execution's output.
type Result struct {
	Geometry     *kernel.Manifold
	MemoryUsedMB float64
}

// Engine wraps one JavaScript runtime. Not safe for concurrent use.
type Engine struct {
	vm         *goja.Runtime
	logger     *slog.Logger
	lockedDown bool
}

// NewEngine creates a runtime with Go-style bindings exposed under
// JavaScript naming and a console that writes to the logger.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	e := &Engine{vm: vm, logger: logger}
	e.installConsole()
	return e
}

// deniedCapabilities is the fixed lockdown denylist: network, storage,
// nested context spawning, and cross-context broadcast.
var deniedCapabilities = []string{
	"fetch",
	"XMLHttpRequest",
	"WebSocket",
	"EventSource",
	"localStorage",
	"sessionStorage",
	"indexedDB",
	"caches",
	"Worker",
	"SharedWorker",
	"BroadcastChannel",
	"importScripts",
}

// lockdownSource installs non-configurable throwing accessors for
// every denied capability. Running it twice would trip on the
// non-configurable properties, so Lockdown guards with a flag.
const lockdownSource = `
(function(global, names) {
	names.forEach(function(name) {
		var deny = function() {
			var e = new Error("access to " + name + " is denied in the sandbox");
			e.code = "CapabilityDenied";
			throw e;
		};
		Object.defineProperty(global, name, {
			configurable: false,
			enumerable: false,
			get: deny,
			set: deny
		});
	});
})`

// environmentSource publishes a frozen shallow copy of the ambient
// snapshot: readable, never a live handle, mutations silently inert.
const environmentSource = `
(function(global, snapshot) {
	var frozen = Object.freeze(Object.assign({}, snapshot));
	Object.defineProperty(global, "environment", {
		value: frozen,
		configurable: false,
		writable: false
	});
})`

// Lockdown irreversibly narrows the execution context: denylisted
// capabilities become throwing accessors and env is published as a
// frozen snapshot. Runs exactly once; later calls are no-op successes
// so a repeated protocol init stays idempotent.
func (e *Engine) Lockdown(env map[string]string) error {
	if e.lockedDown {
		return nil
	}

	if err := e.callGlobalSetup(lockdownSource, e.vm.ToValue(deniedCapabilities)); err != nil {
		return fault.Errorf(fault.CapabilityDenied, "lockdown failed: %w", err)
	}

	snapshot := make(map[string]string, len(env))
	for k, v := range env {
		snapshot[k] = v
	}
	if err := e.callGlobalSetup(environmentSource, e.vm.ToValue(snapshot)); err != nil {
		return fault.Errorf(fault.CapabilityDenied, "environment snapshot failed: %w", err)
	}

	e.lockedDown = true
	return nil
}

func (e *Engine) callGlobalSetup(source string, arg goja.Value) error {
	v, err := e.vm.RunString(source)
	if err != nil {
		return err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return fmt.Errorf("setup source did not evaluate to a function")
	}
	_, err = fn(goja.Undefined(), e.vm.GlobalObject(), arg)
	return err
}

// Interrupt aborts the currently running script. Safe to call from
// another goroutine; the engine must be discarded afterward.
func (e *Engine) Interrupt(reason string) {
	e.vm.Interrupt(reason)
}

// ClearInterrupt discards an interrupt that landed after the script
// already completed, so the next run is not aborted spuriously.
func (e *Engine) ClearInterrupt() {
	e.vm.ClearInterrupt()
}

// Execute runs scriptText with the imported mesh records reconstructed
// into geometry bindings. The script evaluates as a function body
// whose parameters are the complete visible scope and must return a
// geometry object.
func (e *Engine) Execute(scriptText string, imports map[string]*kernel.MeshGL, budget Budget) (*Result, error) {
	if !e.lockedDown {
		// Untrusted code never runs in an unlocked context.
		if err := e.Lockdown(nil); err != nil {
			return nil, err
		}
	}

	imported := make(map[string]*jsGeometry, len(imports))
	for name, record := range imports {
		m, err := kernel.FromMeshGL(record)
		if err != nil {
			return nil, fault.Errorf(fault.InvalidResult, "imported geometry %q: %w", name, err)
		}
		imported[name] = &jsGeometry{m: m}
	}

	scope := e.buildScope(imported)
	program, err := compileScript(scriptText, scope.names())
	if err != nil {
		return nil, err
	}

	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	value, err := e.run(program, scope)
	if err != nil {
		return nil, e.mapException(err)
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	usedMB := 0.0
	if after.HeapAlloc > before.HeapAlloc {
		usedMB = float64(after.HeapAlloc-before.HeapAlloc) / (1 << 20)
	}
	if budget.MemoryLimitMB > 0 && usedMB > float64(budget.MemoryLimitMB) {
		return nil, fault.Errorf(fault.ResourceExceeded,
			"script used %.1f MB, limit is %d MB", usedMB, budget.MemoryLimitMB)
	}

	g, ok := value.Export().(*jsGeometry)
	if !ok || g == nil || g.m == nil {
		return nil, fault.New(fault.InvalidResult,
			"script must return a geometry object")
	}
	return &Result{Geometry: g.m, MemoryUsedMB: usedMB}, nil
}

// compileScript wraps the untrusted text as a function body over the
// enumerated scope names. Non-strict mode, so writes to the frozen
// environment snapshot are inert instead of throwing.
func compileScript(text string, scopeNames []string) (*goja.Program, error) {
	wrapped := "(function(" + strings.Join(scopeNames, ", ") + ") {\n" + text + "\n})"
	program, err := goja.Compile("script", wrapped, false)
	if err != nil {
		return nil, fault.Errorf(fault.ScriptSyntaxError, "script failed to compile: %v", err)
	}
	return program, nil
}

func (e *Engine) run(program *goja.Program, scope *scope) (goja.Value, error) {
	defer e.vm.ClearInterrupt()

	fnValue, err := e.vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, fault.New(fault.ScriptSyntaxError, "script did not compile to a callable body")
	}
	return fn(goja.Undefined(), scope.values(e.vm)...)
}

// mapException converts engine failures to faults: interrupts become
// ExecutionTimeout, thrown values carrying a known code keep it, and
// everything else is a ScriptRuntimeError with the stack preserved as
// server-side detail.
func (e *Engine) mapException(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fault.Errorf(fault.ExecutionTimeout, "script interrupted: %v", interrupted.Value())
	}

	var exception *goja.Exception
	if !errors.As(err, &exception) {
		return fault.Errorf(fault.ScriptRuntimeError, "script failed: %v", err)
	}

	// A fault thrown by a Go binding (helper parameter errors and the
	// like) passes through with its code.
	if wrapped, ok := exception.Value().Export().(error); ok {
		var fe *fault.Error
		if errors.As(wrapped, &fe) {
			return fe
		}
	}

	message := exception.Value().String()
	code := fault.ScriptRuntimeError
	if obj, ok := exception.Value().(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
			message = m.String()
		}
		if c := obj.Get("code"); c != nil && claimableCode(fault.Code(c.String())) {
			code = fault.Code(c.String())
		}
	}
	// Faults rethrown by the engine stringify as "Code: message";
	// recover the code so helper errors keep their classification.
	if idx := strings.Index(message, ": "); idx > 0 {
		if candidate := fault.Code(message[:idx]); claimableCode(candidate) {
			code = candidate
			message = message[idx+2:]
		}
	}
	return fault.New(code, message).WithDetail(exception.String())
}

// claimableCode reports whether a thrown script value may classify
// itself with the given code. ExecutionTimeout is host-reserved: it
// only ever originates from an interrupt, and the host discards the
// whole context when it sees it, so a script must not be able to
// forge it by throwing a crafted message or code property.
func claimableCode(c fault.Code) bool {
	return c.Valid() && c != fault.ExecutionTimeout
}

func (e *Engine) installConsole() {
	log := func(level slog.Level) func(args ...goja.Value) {
		return func(args ...goja.Value) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = a.String()
			}
			e.logger.Log(context.Background(), level, "script console", "message", strings.Join(parts, " "))
		}
	}
	_ = e.vm.Set("console", map[string]any{
		"log":   log(slog.LevelInfo),
		"warn":  log(slog.LevelWarn),
		"error": log(slog.LevelError),
	})
}
