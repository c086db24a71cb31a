package varctx

import (
	"testing"

	"rash/internal/value"
)

func TestShadowingHigherFrameWins(t *testing.T) {
	ctx := New()
	ctx.WithFrame("env", map[string]value.Value{"x": value.String("env")})
	g := ctx.WithFrame("task-vars", map[string]value.Value{"x": value.String("task")})
	defer g.Drop()

	v, ok := ctx.Get("x")
	if !ok || v.Str() != "task" {
		t.Fatalf("Get(x) = %v, %v; want task", v, ok)
	}
}

func TestGuardDropRestoresPriorFrame(t *testing.T) {
	ctx := New()
	ctx.WithFrame("env", map[string]value.Value{"x": value.String("env")})
	g := ctx.WithFrame("loop-item", map[string]value.Value{"x": value.String("item")})
	g.Drop()

	v, ok := ctx.Get("x")
	if !ok || v.Str() != "env" {
		t.Fatalf("after Drop, Get(x) = %v, %v; want env", v, ok)
	}
}

func TestGuardDropIsIdempotent(t *testing.T) {
	ctx := New()
	ctx.WithFrame("a", map[string]value.Value{"x": value.Int(1)})
	g := ctx.WithFrame("b", map[string]value.Value{"x": value.Int(2)})
	g.Drop()
	g.Drop() // must not pop frame "a" too

	v, ok := ctx.Get("x")
	if !ok || v.Int() != 1 {
		t.Fatalf("double Drop popped too much: %v, %v", v, ok)
	}
}

func TestSetPersistentSurvivesFramePops(t *testing.T) {
	ctx := New()
	ctx.SetPersistent(map[string]value.Value{"p": value.Int(1)})

	g := ctx.WithFrame("task-vars", map[string]value.Value{"q": value.Int(2)})
	g.Drop()

	v, ok := ctx.Get("p")
	if !ok || v.Int() != 1 {
		t.Fatalf("persistent binding lost after frame pop: %v, %v", v, ok)
	}
}

func TestTaskLocalVarsShadowSetVars(t *testing.T) {
	ctx := New()
	ctx.SetPersistent(map[string]value.Value{"x": value.String("from-set-vars")})
	g := ctx.WithFrame("task-vars", map[string]value.Value{"x": value.String("from-task")})
	defer g.Drop()

	v, ok := ctx.Get("x")
	if !ok || v.Str() != "from-task" {
		t.Fatalf("Get(x) = %v, %v; want task-local to win per spec §4.4", v, ok)
	}
}

func TestBindRegisterVisibleAfterFramePop(t *testing.T) {
	ctx := New()
	g := ctx.WithFrame("task-vars", map[string]value.Value{"tmp": value.Int(1)})
	ctx.BindRegister("result", value.Int(42))
	g.Drop()

	v, ok := ctx.Get("result")
	if !ok || v.Int() != 42 {
		t.Fatalf("register binding not visible after frame pop: %v, %v", v, ok)
	}
	if _, ok := ctx.Get("tmp"); ok {
		t.Fatal("task-local binding should not survive its frame's pop")
	}
}

func TestBindRegisterDoesNotCorruptSetVarsChangedDetection(t *testing.T) {
	ctx := New()
	ctx.BindRegister("x", value.Int(99))

	if _, ok := ctx.GetPersistent("x"); ok {
		t.Fatal("GetPersistent must only see set_vars's own writes, not a register binding of the same name")
	}
	v, ok := ctx.Get("x")
	if !ok || v.Int() != 99 {
		t.Fatalf("Get(x) = %v, %v; want the register binding still visible through the ordinary lookup", v, ok)
	}
}

func TestGetUndefinedReturnsFalse(t *testing.T) {
	ctx := New()
	if _, ok := ctx.Get("nope"); ok {
		t.Fatal("expected undefined variable to report ok=false")
	}
}
