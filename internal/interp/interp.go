// Package interp implements the task interpreter of spec §4.6 (C8): the
// single-threaded state machine that walks a TaskProgram, rendering each
// task's parameters, evaluating when/loop/changed_when, dispatching to a
// module (or to the block/include structural forms, which need the
// program-execution loop itself rather than the Module interface), and
// feeding results back into the variable context.
//
// Grounded on the teacher's dsl/engine.go Engine.Build three-phase
// pipeline (validate -> expand -> validate), generalized from a one-shot
// tree expansion into the render/evaluate/dispatch/record loop spec §4.6
// describes; per-task logging follows theRebelliousNerd-codenerd's
// zap-logger wiring pattern.
package interp

import (
	"path/filepath"

	"go.uber.org/zap"

	"rash/internal/module"
	"rash/internal/procrun"
	"rash/internal/rasherr"
	"rash/internal/rashtemplate"
	"rash/internal/script"
	"rash/internal/value"
	"rash/internal/varctx"
)

// BecomeRunner executes one module invocation under a different user,
// out-of-process (spec §4.7's become protocol). Nil means no become runner
// is configured; a task requesting become then fails with BecomeFailed
// rather than silently running unprivileged.
type BecomeRunner func(moduleName, targetUser string, params value.Value, checkMode bool) (module.ModuleResult, error)

// Interp holds everything the task loop needs across the whole program
// run: the module registry, template engine, variable context, logger,
// and the ambient GlobalParams (check_mode/diff) the CLI established.
type Interp struct {
	Registry *module.Registry
	Engine   *rashtemplate.Engine
	Ctx      *varctx.Context
	Log      *zap.Logger
	Global   module.GlobalParams
	Become   BecomeRunner

	// Observe, when set, is called once per module-task dispatch (not for
	// block/include themselves, which report through their own nested
	// tasks) with the same outcome logTask records. internal/cliapp wires this to
	// its `-o ansible|raw` task-line renderer; nil is a no-op, so tests and
	// other embedders never need to supply one.
	Observe func(task script.Task, result module.ModuleResult, err error)

	// baseDir resolves relative `include` paths; set by Run from the
	// originating script's directory.
	baseDir string

	// loadInclude loads another script's TaskProgram by path. A field
	// rather than a direct script.Load call so tests can substitute a
	// fake loader without touching the filesystem.
	loadInclude func(path string) (script.TaskProgram, error)
}

// New constructs an Interp. logger must not be nil; pass zap.NewNop() in
// tests that don't care about log output.
func New(reg *module.Registry, engine *rashtemplate.Engine, ctx *varctx.Context, logger *zap.Logger, global module.GlobalParams) *Interp {
	return &Interp{
		Registry: reg,
		Engine:   engine,
		Ctx:      ctx,
		Log:      logger,
		Global:   global,
		loadInclude: func(path string) (script.TaskProgram, error) {
			s, err := script.Load(path)
			if err != nil {
				return nil, err
			}
			return s.Tasks, nil
		},
	}
}

// Run executes prog to completion starting from baseDir (used to resolve
// relative include paths). Returns the first unrecovered error, if any.
func (ip *Interp) Run(prog script.TaskProgram, baseDir string) error {
	ip.baseDir = baseDir
	_, err := ip.runProgram(prog)
	return err
}

// runProgram executes every task in prog in order, returning the aggregate
// OR of every task's reported `changed` and the first unrecovered error.
func (ip *Interp) runProgram(prog script.TaskProgram) (changed bool, err error) {
	for _, task := range prog {
		taskChanged, taskErr := ip.runTask(task)
		changed = changed || taskChanged
		if taskErr != nil {
			return changed, taskErr
		}
	}
	return changed, nil
}

// runTask implements one iteration of spec §4.6's pseudocode: push
// task.vars, expand the loop (or run once with item=None), and within each
// iteration evaluate when, render params, dispatch, and record.
func (ip *Interp) runTask(task script.Task) (changed bool, err error) {
	frame, err := ip.renderVars(task)
	if err != nil {
		return false, err
	}
	g := ip.Ctx.WithFrame("task-vars", frame)
	defer g.Drop()

	if !task.HasLoop {
		return ip.runIteration(task, value.Value{}, false)
	}

	items, err := ip.expandLoop(task)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		itemChanged, itemErr := ip.runIteration(task, item, true)
		changed = changed || itemChanged
		if itemErr != nil {
			return changed, itemErr
		}
	}
	return changed, nil
}

// runIteration runs task once, with ctx.item bound to item when hasItem is
// true (a single non-looped task runs with no item frame at all, matching
// the pseudocode's `[None]` single-pass case meaning "no loop frame", not
// "item bound to null").
func (ip *Interp) runIteration(task script.Task, item value.Value, hasItem bool) (bool, error) {
	var g *varctx.Guard
	if hasItem {
		g = ip.Ctx.WithFrame("loop-item", map[string]value.Value{"item": item})
		defer g.Drop()
	}

	ok, err := ip.evalWhen(task)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if task.IsBlock() {
		changed, err := ip.runBlock(task)
		return ip.applyIgnoreErrors(task, changed, err)
	}
	if task.IsInclude() {
		changed, err := ip.runInclude(task)
		return ip.applyIgnoreErrors(task, changed, err)
	}
	return ip.runModuleTask(task)
}

// applyIgnoreErrors routes a block/include's own outcome through the same
// ignore_errors check runModuleTask applies to ordinary module tasks (spec
// §3, §7: ignore_errors is a task-generic field, not module-task-specific).
func (ip *Interp) applyIgnoreErrors(task script.Task, changed bool, err error) (bool, error) {
	if err == nil {
		return changed, nil
	}
	ignore, ignoreErr := ip.shouldIgnore(task)
	if ignoreErr != nil {
		return false, ignoreErr
	}
	if ignore {
		ip.logTask(task, module.ModuleResult{Changed: changed}, err)
		return changed, nil
	}
	return changed, err
}

func (ip *Interp) evalWhen(task script.Task) (bool, error) {
	if !task.HasWhen {
		return true, nil
	}
	return ip.renderBoolLike(task.When)
}

func (ip *Interp) renderBoolLike(v value.Value) (bool, error) {
	if v.IsString() {
		return ip.Engine.RenderWhen(v.Str(), ip.snapshotFrame())
	}
	return v.Truthy(), nil
}

// renderVars renders task.vars (spec §4.6: "frame.update(render_each(...,
// ctx))") against the context as it stands before this task's own frame is
// pushed, so a task's vars can reference outer bindings but not each
// other.
func (ip *Interp) renderVars(task script.Task) (map[string]value.Value, error) {
	frame := make(map[string]value.Value)
	if !task.Vars.IsMap() {
		return frame, nil
	}
	rendered, err := ip.Engine.RenderDeep(task.Vars, ip.snapshotFrame())
	if err != nil {
		return nil, err
	}
	for _, k := range rendered.MapKeys() {
		v, _ := rendered.MapGet(k)
		frame[k] = v
	}
	return frame, nil
}

// expandLoop renders task.loop to a sequence of items. Only called when
// task.HasLoop is true; a task with no loop runs once with no item frame
// at all (runTask handles that case directly).
func (ip *Interp) expandLoop(task script.Task) ([]value.Value, error) {
	rendered, err := ip.Engine.RenderDeep(task.Loop, ip.snapshotFrame())
	if err != nil {
		return nil, err
	}
	if !rendered.IsSeq() {
		return nil, rasherr.New(rasherr.KindParamInvalid, "interp", task.Name, errLoopNotSequence)
	}
	return rendered.SeqVal(), nil
}

// snapshotFrame flattens the current variable-context stack into the flat
// map the template engine expects. Rebuilt per render rather than cached,
// since the stack changes between task.vars, loop, when, and params
// renders within the same iteration.
func (ip *Interp) snapshotFrame() map[string]value.Value {
	return ip.Ctx.Snapshot()
}

func (ip *Interp) runModuleTask(task script.Task) (changed bool, err error) {
	mod, lookupErr := ip.Registry.Lookup(task.Module)
	if lookupErr != nil {
		return false, lookupErr
	}

	rendered, renderErr := ip.Engine.RenderDeep(task.ModuleParams, ip.snapshotFrame())
	if renderErr != nil {
		return false, renderErr
	}

	global := ip.taskGlobal(task)
	global.ContextVars = ip.snapshotFrame()

	result, execErr := ip.dispatch(task, mod, rendered, global)
	if execErr != nil {
		ignore, ignoreErr := ip.shouldIgnore(task)
		if ignoreErr != nil {
			return false, ignoreErr
		}
		if ignore {
			ip.logTask(task, module.ModuleResult{}, execErr)
			ip.observe(task, module.ModuleResult{}, execErr)
			return false, nil
		}
		ip.observe(task, module.ModuleResult{}, execErr)
		return false, execErr
	}

	if task.HasChangedWhen {
		override, overrideErr := ip.renderBoolLike(task.ChangedWhen)
		if overrideErr != nil {
			return false, overrideErr
		}
		result.Changed = override
	}

	if task.Module == "set_vars" && result.Extra.IsMap() {
		bindings := make(map[string]value.Value)
		for _, k := range result.Extra.MapKeys() {
			v, _ := result.Extra.MapGet(k)
			bindings[k] = v
		}
		ip.Ctx.SetPersistent(bindings)
	}

	if task.Register != "" {
		ip.Ctx.BindRegister(task.Register, result.AsValue())
	}

	ip.logTask(task, result, nil)
	ip.observe(task, result, nil)
	return result.Changed, nil
}

func (ip *Interp) observe(task script.Task, result module.ModuleResult, err error) {
	if ip.Observe != nil {
		ip.Observe(task, result, err)
	}
}

func (ip *Interp) dispatch(task script.Task, mod module.Module, params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	if global.Become {
		if ip.Become == nil {
			return module.ModuleResult{}, rasherr.New(rasherr.KindBecomeFailed, "interp", task.Name, errBecomeUnsupported)
		}
		return ip.Become(task.Module, global.BecomeUser, params, global.CheckMode)
	}
	result, err := mod.Execute(params, global)
	if err != nil {
		return module.ModuleResult{}, module.WrapFailure(task.Module, params, err)
	}
	return result, nil
}

func (ip *Interp) shouldIgnore(task script.Task) (bool, error) {
	if !task.HasIgnoreErrors {
		return false, nil
	}
	return ip.renderBoolLike(task.IgnoreErrors)
}

func (ip *Interp) taskGlobal(task script.Task) module.GlobalParams {
	g := ip.Global
	if task.HasCheckMode {
		if v, err := ip.renderBoolLike(task.CheckMode); err == nil {
			g.CheckMode = v
		}
	}
	if task.HasBecome {
		if v, err := ip.renderBoolLike(task.Become); err == nil {
			g.Become = v
		}
	}
	if task.BecomeUser != "" {
		g.BecomeUser = task.BecomeUser
	}
	return g
}

// runBlock implements the `block`/`rescue`/`always` structural form (spec
// §4.5 table, §4.6: "rescue only runs when the main body raises"; "always
// runs after the main body and after any rescue"). Per spec §4.6's loop
// note, when a loop is applied to a block, rescue/always apply per
// iteration — runBlock is itself called once per iteration by runIteration,
// so this naturally falls out without special-casing.
func (ip *Interp) runBlock(task script.Task) (changed bool, err error) {
	bodyChanged, bodyErr := ip.runProgram(task.Block)
	changed = bodyChanged

	if bodyErr != nil {
		if task.Rescue != nil {
			rescueChanged, rescueErr := ip.runProgram(task.Rescue)
			changed = changed || rescueChanged
			err = rescueErr
		} else {
			err = bodyErr
		}
	}

	if task.Always != nil {
		alwaysChanged, alwaysErr := ip.runProgram(task.Always)
		changed = changed || alwaysChanged
		if err == nil {
			err = alwaysErr
		}
	}

	if err == nil && task.Register != "" {
		ip.Ctx.BindRegister(task.Register, module.ModuleResult{Changed: changed}.AsValue())
	}
	return changed, err
}

// runInclude implements the `include` structural form: load another
// script's task list and execute it in the current context (spec §4.5
// table: "Load and execute another script's task list in the current
// context"). Relative paths resolve against the including script's
// directory, not the process's working directory.
func (ip *Interp) runInclude(task script.Task) (bool, error) {
	path := task.IncludeFile
	if !filepath.IsAbs(path) && ip.baseDir != "" {
		path = filepath.Join(ip.baseDir, path)
	}
	tasks, err := ip.loadInclude(path)
	if err != nil {
		return false, err
	}
	return ip.runProgram(tasks)
}

func (ip *Interp) logTask(task script.Task, result module.ModuleResult, err error) {
	if ip.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.String("task", task.Name),
		zap.String("module", task.Module),
		zap.Bool("changed", result.Changed),
	}
	if err != nil {
		ip.Log.Error("task failed", append(fields, zap.Error(err))...)
		return
	}
	ip.Log.Info("task complete", fields...)
}

// NewProcrunBecomeRunner is the standard BecomeRunner internal/cliapp installs:
// marshal params through procrun's become IPC protocol and unmarshal the
// response back into a ModuleResult.
func NewProcrunBecomeRunner(workerBinary string) BecomeRunner {
	return func(moduleName, targetUser string, params value.Value, checkMode bool) (module.ModuleResult, error) {
		paramsJSON, err := value.MarshalJSON(params)
		if err != nil {
			return module.ModuleResult{}, rasherr.New(rasherr.KindBecomeFailed, "interp", moduleName, err)
		}
		resp, err := procrun.Become(workerBinary, targetUser, moduleName, paramsJSON, checkMode)
		if err != nil {
			return module.ModuleResult{}, err
		}
		extra := value.Null()
		if len(resp.Extra) > 0 {
			extra, err = value.UnmarshalJSON(resp.Extra)
			if err != nil {
				return module.ModuleResult{}, rasherr.New(rasherr.KindBecomeFailed, "interp", moduleName, err)
			}
		}
		return module.ModuleResult{
			Changed:   resp.Changed,
			Extra:     extra,
			Output:    resp.Output,
			HasOutput: resp.Output != "",
		}, nil
	}
}
