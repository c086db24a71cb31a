package modules

import (
	"rash/internal/module"
	"rash/internal/value"
)

// Debug implements the `debug` module: emit a message at info level.
// `var` takes precedence over `msg` when both are present — SPEC_FULL.md's
// resolution of the feature the distilled spec only sketches ("msg or
// var"), following Ansible's debug module (the original_source/ reference)
// where var wins when both are given. `changed` is always false.
type Debug struct {
	// Log receives the rendered text to emit; defaults to formatting into
	// Output only. internal/cliapp wires this to its zap logger.
	Log func(text string)
}

func (d *Debug) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	text := debugText(params)
	if d.Log != nil {
		d.Log(text)
	}
	return module.ModuleResult{Changed: false, HasOutput: true, Output: text}, nil
}

func debugText(params value.Value) string {
	if v, ok := params.MapGet("var"); ok {
		return v.String()
	}
	if v, ok := params.MapGet("msg"); ok {
		return v.String()
	}
	return ""
}
