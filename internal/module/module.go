// Package module defines the module contract of spec §4.5 (C6): the
// interface every module implements, the result type the task interpreter
// consumes, and the registry that maps a module name to its implementation.
//
// Grounded on the teacher's dsl.Registry (a name→type-definition map used
// during DSL expansion) generalized from "name resolves to a type
// definition to expand" into "name resolves to an executable unit", and on
// gosible's Task/Result field shapes (`other_examples/...types.go.go`) for
// the ModuleResult contract itself.
package module

import (
	"fmt"

	"rash/internal/rasherr"
	"rash/internal/value"
)

// GlobalParams carries the task-interpreter-wide settings every module
// invocation needs but that are not part of its own parameter mapping:
// check-mode, diff requests, and become/privilege context (spec §4.5,
// §4.7). Modules never mutate this; it flows down from C8 and C10.
type GlobalParams struct {
	CheckMode  bool
	Diff       bool
	Become     bool
	BecomeUser string

	// ContextVars is a snapshot of the full variable context (env.*,
	// rash.*, set_vars/register bindings, task-local vars) at dispatch
	// time, for the rare module (template's file-content render) that
	// needs to template against more than its own already-rendered
	// params. Most modules never touch this field.
	ContextVars map[string]value.Value
}

// ModuleResult is the value every module invocation produces (spec §3).
type ModuleResult struct {
	Changed bool
	Extra   value.Value // mapping; may be the zero Value (absent)
	Output  string
	HasOutput bool
}

// AsValue renders a ModuleResult as a Value mapping, the form bound by a
// task's `register` clause (spec §4.6: "ctx.bind_persistent(task.register,
// result.as_value())").
func (r ModuleResult) AsValue() value.Value {
	out := value.Map(
		value.KV{Key: "changed", Val: value.Bool(r.Changed)},
	)
	if r.Extra.Kind() == value.KindMap {
		out = out.MapSet("extra", r.Extra)
	} else {
		out = out.MapSet("extra", value.NewMap())
	}
	if r.HasOutput {
		out = out.MapSet("output", value.String(r.Output))
	} else {
		out = out.MapSet("output", value.Null())
	}
	return out
}

// Module is the contract every module satisfies (spec §4.5): "execute
// (params: Value (mapping), check_mode: bool, global_params) →
// Result<ModuleResult, Error>". params has already had Omit-sentinel
// fields removed and all template values rendered by the time a module
// sees them (the task interpreter's responsibility, not the module's).
type Module interface {
	Execute(params value.Value, global GlobalParams) (ModuleResult, error)
}

// Func adapts a plain function to the Module interface, mirroring the
// teacher's preference for small single-purpose registrations over
// boilerplate wrapper types.
type Func func(params value.Value, global GlobalParams) (ModuleResult, error)

func (f Func) Execute(params value.Value, global GlobalParams) (ModuleResult, error) {
	return f(params, global)
}

// WrapFailure translates an underlying module error into the
// ModuleFailed error kind, carrying a short parameter summary for
// diagnostics (spec §4.5: "Errors returned by a module are translated to
// ModuleFailed{module, params_summary, source}").
func WrapFailure(moduleName string, params value.Value, err error) error {
	return rasherr.New(rasherr.KindModuleFailed, "dispatch", moduleName,
		fmt.Errorf("module=%s params=%s: %w", moduleName, summarize(params), err))
}

func summarize(v value.Value) string {
	s := v.String()
	const maxLen = 200
	if len(s) > maxLen {
		return s[:maxLen] + "...(truncated)"
	}
	return s
}
