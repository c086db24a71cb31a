package modules

import (
	"fmt"

	"rash/internal/module"
	"rash/internal/value"
)

// Assert implements the `assert` module: evaluate a sequence of already-
// rendered boolean expressions, fail on the first false one. `changed` is
// always false (spec §4.5 table) — assert never mutates state.
type Assert struct{}

func (Assert) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	that, ok := params.MapGet("that")
	if !ok || !that.IsSeq() {
		return module.ModuleResult{}, module.WrapFailure("assert", params, fmt.Errorf("assert requires a 'that' sequence"))
	}
	for i, cond := range that.SeqVal() {
		if !cond.Truthy() {
			msg := msgField(params)
			if msg == "" {
				msg = fmt.Sprintf("assertion %d failed: %s", i, cond.String())
			}
			return module.ModuleResult{}, module.WrapFailure("assert", params, fmt.Errorf("%s", msg))
		}
	}
	return module.ModuleResult{Changed: false, HasOutput: true, Output: "all assertions passed"}, nil
}

func msgField(params value.Value) string {
	if v, ok := params.MapGet("msg"); ok && v.IsString() {
		return v.Str()
	}
	return ""
}
