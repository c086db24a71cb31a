package cliapp

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"rash/internal/docopt"
	"rash/internal/interp"
	"rash/internal/module"
	"rash/internal/modules"
	"rash/internal/rashtemplate"
	"rash/internal/script"
	"rash/internal/value"
	"rash/internal/varctx"
	"rash/pkg/lib"
)

// Run loads and executes one script per opts (spec §6's invocation
// contract) and returns the process exit code to use.
func Run(opts Options) int {
	sc, err := loadScript(opts)
	if err != nil {
		return lib.ReportError(err)
	}

	scriptArgs, helpPrinted, err := matchScriptArgs(sc, opts)
	if err != nil {
		return lib.ReportError(err)
	}
	if helpPrinted {
		return 0
	}

	ctx := varctx.New()
	ctx.WithFrame("rash", rashFrame(sc, opts.ScriptArgs))
	ctx.WithFrame("env", envFrame(opts.Env))
	ctx.WithFrame("script-args", flattenMap(scriptArgs))

	logger := NewLogger(opts)
	defer logger.Sync()

	engine := rashtemplate.New(modules.FindLookup)
	reg := module.NewRegistry()
	modules.RegisterCore(reg, engine)
	wireModuleHooks(reg, ctx, logger)

	global := module.GlobalParams{
		CheckMode:  opts.Check,
		Diff:       opts.Diff,
		Become:     opts.Become,
		BecomeUser: opts.BecomeUser,
	}

	ip := interp.New(reg, engine, ctx, logger, global)
	if workerBinary, err := os.Executable(); err == nil {
		ip.Become = interp.NewProcrunBecomeRunner(workerBinary)
	}
	renderer := TaskLineRenderer{Format: opts.Output, Diff: opts.Diff}
	ip.Observe = renderer.Observe

	if runErr := ip.Run(sc.Tasks, sc.Dir); runErr != nil {
		return lib.ReportError(runErr)
	}
	return 0
}

func loadScript(opts Options) (*script.Script, error) {
	if opts.InlineScript != "" {
		return script.LoadInline(opts.InlineScript, opts.ScriptPath)
	}
	return script.Load(opts.ScriptPath)
}

// matchScriptArgs runs the script's docopt usage (if any) against the
// script argv. helpPrinted is true when --help/-h short-circuited the run
// (spec §4.2: print the doc block, exit 0 before the interpreter runs).
func matchScriptArgs(sc *script.Script, opts Options) (value.Value, bool, error) {
	if !sc.Usage.HasUsage() {
		return value.NewMap(), false, nil
	}
	result, err := sc.Usage.Match(opts.ScriptArgs)
	if err != nil {
		if errors.Is(err, docopt.ErrHelpRequested) {
			fmt.Println(sc.Usage.RawDoc())
			return value.Value{}, true, nil
		}
		return value.Value{}, false, err
	}
	return result, false, nil
}

// rashFrame builds the `rash.*` builtin frame (spec §6: path/dir/args/argv/
// user.uid/user.gid), layering script-specific fields onto varctx.Builtins'
// host/user facts rather than pushing a second "rash"-named frame, since a
// later frame shadows an earlier one by full key, not by sub-field.
func rashFrame(sc *script.Script, argv []string) map[string]value.Value {
	builtins := varctx.Builtins()
	rashVal := builtins["rash"]

	argSeq := make([]value.Value, len(argv))
	for i, a := range argv {
		argSeq[i] = value.String(a)
	}
	rashVal = rashVal.MapSet("path", value.String(sc.Path))
	rashVal = rashVal.MapSet("dir", value.String(sc.Dir))
	rashVal = rashVal.MapSet("args", value.Seq(argSeq...))
	rashVal = rashVal.MapSet("argv", value.Seq(argSeq...))

	return map[string]value.Value{"rash": rashVal}
}

// envFrame builds the `env.*` frame from the process environment, with
// `-e KEY=VALUE` overrides applied both to this frame and to the process's
// own environment (spec §6: "-e KEY=VALUE: Add/override an environment
// variable visible as env.KEY" — child processes spawned by the command
// module inherit os.Environ(), so the override has to reach both places).
func envFrame(overrides map[string]string) map[string]value.Value {
	envMap := value.NewMap()
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			envMap = envMap.MapSet(parts[0], value.String(parts[1]))
		}
	}
	for k, v := range overrides {
		envMap = envMap.MapSet(k, value.String(v))
		os.Setenv(k, v)
	}
	return map[string]value.Value{"env": envMap}
}

func flattenMap(v value.Value) map[string]value.Value {
	out := make(map[string]value.Value)
	for _, k := range v.MapKeys() {
		val, _ := v.MapGet(k)
		out[k] = val
	}
	return out
}

// wireModuleHooks sets the context-access fields the registry's set_vars
// and debug modules need but the Module interface does not otherwise carry
// (see internal/modules' doc comments on SetVars.Lookup and Debug.Log).
func wireModuleHooks(reg *module.Registry, ctx *varctx.Context, logger *zap.Logger) {
	if m, err := reg.Lookup("set_vars"); err == nil {
		if sv, ok := m.(*modules.SetVars); ok {
			sv.Lookup = ctx.GetPersistent
		}
	}
	if m, err := reg.Lookup("debug"); err == nil {
		if d, ok := m.(*modules.Debug); ok {
			d.Log = func(text string) { logger.Info(text) }
		}
	}
}
