// Package modules implements the core module set of spec §4.5 (C6):
// command, assert, set_vars, debug, copy/file/template, and find. block and
// include are not modules here — they need access to the interpreter's own
// program-execution loop (sub-programs, rescue/always control flow), so
// they are handled directly by internal/interp against the Task's
// IsBlock()/IsInclude() shape instead of going through the Module
// interface (see DESIGN.md, C6).
package modules

import (
	"fmt"
	"os"

	"rash/internal/module"
	"rash/internal/procrun"
	"rash/internal/value"
)

// Command implements the `command` module (spec §4.5 table): spawn a
// process, capture its output, optionally skip via creates/removes,
// optionally replace the engine's own process image via transfer_pid.
//
// Grounded on the teacher's executor.go `execute` function, which builds
// argv from either a single string or a list and wires chdir, generalized
// here to also support creates/removes gating and transfer_pid.
type Command struct {
	// TransferPid performs the process-image replacement. Overridable in
	// tests; defaults to procrun.TransferPid (never returns on success).
	TransferPid func(argv []string, env map[string]string) error
}

func NewCommand() *Command {
	return &Command{TransferPid: procrun.TransferPid}
}

func (c *Command) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	argv, err := commandArgv(params)
	if err != nil {
		return module.ModuleResult{}, err
	}

	chdir := stringField(params, "chdir", "")
	env := envOverrides(params)

	if creates, ok := params.MapGet("creates"); ok && creates.IsString() && creates.Str() != "" {
		if _, statErr := os.Stat(creates.Str()); statErr == nil {
			return module.ModuleResult{Changed: false, HasOutput: true, Output: "skipped: creates path exists"}, nil
		}
	}
	if removes, ok := params.MapGet("removes"); ok && removes.IsString() && removes.Str() != "" {
		if _, statErr := os.Stat(removes.Str()); statErr != nil {
			return module.ModuleResult{Changed: false, HasOutput: true, Output: "skipped: removes path absent"}, nil
		}
	}

	if global.CheckMode {
		return module.ModuleResult{Changed: true, HasOutput: true, Output: "check-mode: would run " + fmt.Sprint(argv)}, nil
	}

	if transfer, ok := params.MapGet("transfer_pid"); ok && transfer.Truthy() {
		// Never returns on success; the process image is replaced.
		if err := c.TransferPid(argv, env); err != nil {
			return module.ModuleResult{}, module.WrapFailure("command", params, err)
		}
		return module.ModuleResult{}, nil
	}

	res, err := procrun.Run(procrun.Spec{Argv: argv, Chdir: chdir, EnvOverride: env})
	if err != nil {
		return module.ModuleResult{}, module.WrapFailure("command", params, err)
	}

	extra := value.Map(
		value.KV{Key: "rc", Val: value.Int(int64(res.ExitCode))},
		value.KV{Key: "stdout", Val: value.String(res.Stdout)},
		value.KV{Key: "stderr", Val: value.String(res.Stderr)},
	)
	if res.ExitCode != 0 {
		return module.ModuleResult{Extra: extra, HasOutput: true, Output: res.Stdout},
			module.WrapFailure("command", params, fmt.Errorf("exit status %d: %s", res.ExitCode, res.Stderr))
	}
	return module.ModuleResult{Changed: true, Extra: extra, HasOutput: true, Output: res.Stdout}, nil
}

func commandArgv(params value.Value) ([]string, error) {
	if argv, ok := params.MapGet("argv"); ok && argv.IsSeq() {
		out := make([]string, 0, len(argv.SeqVal()))
		for _, v := range argv.SeqVal() {
			out = append(out, v.String())
		}
		if len(out) == 0 {
			return nil, module.WrapFailure("command", params, fmt.Errorf("argv must not be empty"))
		}
		return out, nil
	}
	if cmd, ok := params.MapGet("cmd"); ok && cmd.IsString() && cmd.Str() != "" {
		return []string{"/bin/sh", "-c", cmd.Str()}, nil
	}
	return nil, module.WrapFailure("command", params, fmt.Errorf("command requires cmd or argv"))
}

func envOverrides(params value.Value) map[string]string {
	envVal, ok := params.MapGet("env")
	if !ok || !envVal.IsMap() {
		return nil
	}
	out := make(map[string]string, len(envVal.MapKeys()))
	for _, k := range envVal.MapKeys() {
		v, _ := envVal.MapGet(k)
		out[k] = v.String()
	}
	return out
}

func stringField(params value.Value, key, fallback string) string {
	if v, ok := params.MapGet(key); ok && v.IsString() {
		return v.Str()
	}
	return fallback
}
