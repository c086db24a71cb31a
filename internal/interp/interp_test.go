package interp

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"rash/internal/module"
	"rash/internal/rashtemplate"
	"rash/internal/script"
	"rash/internal/value"
	"rash/internal/varctx"
)

func newTestInterp(reg *module.Registry) *Interp {
	engine := rashtemplate.New(nil)
	ctx := varctx.New()
	return New(reg, engine, ctx, zap.NewNop(), module.GlobalParams{})
}

// recordingModule captures every params.Value it was invoked with, and
// optionally returns a fixed error for testing ignore_errors/rescue paths.
type recordingModule struct {
	calls []value.Value
	err   error
}

func (m *recordingModule) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return module.ModuleResult{}, m.err
	}
	return module.ModuleResult{Changed: true}, nil
}

func newRegistryWith(name string, mod module.Module) *module.Registry {
	reg := module.NewRegistry()
	reg.Register(name, mod)
	return reg
}

func TestRunModuleTaskRegistersResult(t *testing.T) {
	rec := &recordingModule{}
	reg := newRegistryWith("echo", rec)
	ip := newTestInterp(reg)

	task := script.Task{
		Name:         "say hi",
		Module:       "echo",
		ModuleParams: value.Map(value.KV{Key: "msg", Val: value.String("hi")}),
		Register:     "out",
	}
	changed, err := ip.runTask(task)
	if err != nil {
		t.Fatalf("runTask: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true")
	}
	bound, ok := ip.Ctx.Get("out")
	if !ok {
		t.Fatal("expected register binding 'out' to be visible")
	}
	c, _ := bound.MapGet("changed")
	if !c.Bool() {
		t.Fatal("registered result.changed should be true")
	}
}

func TestWhenFalseSkipsTask(t *testing.T) {
	rec := &recordingModule{}
	reg := newRegistryWith("echo", rec)
	ip := newTestInterp(reg)

	task := script.Task{
		Module:       "echo",
		ModuleParams: value.NewMap(),
		When:         value.Bool(false),
		HasWhen:      true,
	}
	changed, err := ip.runTask(task)
	if err != nil {
		t.Fatalf("runTask: %v", err)
	}
	if changed {
		t.Fatal("expected no change when skipped")
	}
	if len(rec.calls) != 0 {
		t.Fatal("module must not be invoked when when=false")
	}
}

func TestLoopRunsOncePerItem(t *testing.T) {
	rec := &recordingModule{}
	reg := newRegistryWith("echo", rec)
	ip := newTestInterp(reg)

	task := script.Task{
		Module:       "echo",
		ModuleParams: value.Map(value.KV{Key: "item", Val: value.String("{{ item }}")}),
		Loop:         value.Seq(value.String("a"), value.String("b"), value.String("c")),
		HasLoop:      true,
	}
	_, err := ip.runTask(task)
	if err != nil {
		t.Fatalf("runTask: %v", err)
	}
	if len(rec.calls) != 3 {
		t.Fatalf("expected 3 invocations, got %d", len(rec.calls))
	}
	got := []string{}
	for _, c := range rec.calls {
		v, _ := c.MapGet("item")
		got = append(got, v.Str())
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d item = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIgnoreErrorsSuppressesFailure(t *testing.T) {
	rec := &recordingModule{err: errors.New("boom")}
	reg := newRegistryWith("echo", rec)
	ip := newTestInterp(reg)

	task := script.Task{
		Module:          "echo",
		ModuleParams:    value.NewMap(),
		IgnoreErrors:    value.Bool(true),
		HasIgnoreErrors: true,
	}
	_, err := ip.runTask(task)
	if err != nil {
		t.Fatalf("expected error to be suppressed, got %v", err)
	}
}

func TestErrorPropagatesWithoutIgnore(t *testing.T) {
	rec := &recordingModule{err: errors.New("boom")}
	reg := newRegistryWith("echo", rec)
	ip := newTestInterp(reg)

	task := script.Task{Module: "echo", ModuleParams: value.NewMap()}
	_, err := ip.runTask(task)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestChangedWhenOverridesResult(t *testing.T) {
	rec := &recordingModule{}
	reg := newRegistryWith("echo", rec)
	ip := newTestInterp(reg)

	task := script.Task{
		Module:         "echo",
		ModuleParams:   value.NewMap(),
		ChangedWhen:    value.Bool(false),
		HasChangedWhen: true,
	}
	changed, err := ip.runTask(task)
	if err != nil {
		t.Fatalf("runTask: %v", err)
	}
	if changed {
		t.Fatal("changed_when=false should override module's own changed=true")
	}
}

func TestBlockRescueRunsOnFailure(t *testing.T) {
	failing := &recordingModule{err: errors.New("boom")}
	rescued := &recordingModule{}
	reg := module.NewRegistry()
	reg.Register("fail", failing)
	reg.Register("rescue_mod", rescued)
	ip := newTestInterp(reg)

	task := script.Task{
		Block: script.TaskProgram{
			{Module: "fail", ModuleParams: value.NewMap()},
		},
		Rescue: script.TaskProgram{
			{Module: "rescue_mod", ModuleParams: value.NewMap()},
		},
	}
	_, err := ip.runTask(task)
	if err != nil {
		t.Fatalf("rescue should have recovered the error: %v", err)
	}
	if len(rescued.calls) != 1 {
		t.Fatal("expected rescue subprogram to run")
	}
}

func TestBlockAlwaysRunsWithoutRescue(t *testing.T) {
	failing := &recordingModule{err: errors.New("boom")}
	always := &recordingModule{}
	reg := module.NewRegistry()
	reg.Register("fail", failing)
	reg.Register("always_mod", always)
	ip := newTestInterp(reg)

	task := script.Task{
		Block: script.TaskProgram{
			{Module: "fail", ModuleParams: value.NewMap()},
		},
		Always: script.TaskProgram{
			{Module: "always_mod", ModuleParams: value.NewMap()},
		},
	}
	_, err := ip.runTask(task)
	if err == nil {
		t.Fatal("expected failure to propagate when no rescue is present")
	}
	if len(always.calls) != 1 {
		t.Fatal("expected always subprogram to run even without rescue")
	}
}

func TestSetVarsPersistsAcrossTasks(t *testing.T) {
	reg := module.NewRegistry()
	engine := rashtemplate.New(nil)
	ctx := varctx.New()
	sv := &setVarsStub{ctx: ctx}
	reg.Register("set_vars", sv)
	reg.Register("echo", &recordingModule{})

	ip := New(reg, engine, ctx, zap.NewNop(), module.GlobalParams{})

	task1 := script.Task{Module: "set_vars", ModuleParams: value.Map(value.KV{Key: "x", Val: value.Int(1)})}
	if _, err := ip.runTask(task1); err != nil {
		t.Fatalf("runTask 1: %v", err)
	}

	v, ok := ip.Ctx.Get("x")
	if !ok || v.Int() != 1 {
		t.Fatalf("expected x=1 visible after set_vars, got %v, %v", v, ok)
	}
}

// setVarsStub mimics modules.SetVars without importing internal/modules
// (which would make interp_test.go depend on a sibling package's internal
// test fixtures); it merges params directly into the context.
type setVarsStub struct {
	ctx *varctx.Context
}

func (s *setVarsStub) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	bindings := make(map[string]value.Value)
	for _, k := range params.MapKeys() {
		v, _ := params.MapGet(k)
		bindings[k] = v
	}
	s.ctx.SetPersistent(bindings)
	return module.ModuleResult{Changed: true}, nil
}
