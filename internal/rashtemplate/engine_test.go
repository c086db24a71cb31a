package rashtemplate

import (
	"testing"

	"rash/internal/rasherr"
	"rash/internal/value"
)

func TestRenderForceString(t *testing.T) {
	e := New(nil)
	frame := map[string]value.Value{"name": value.String("world")}
	got, err := e.Render("hello {{ name }}", frame, true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got.Str() != "hello world" {
		t.Fatalf("Render() = %q, want %q", got.Str(), "hello world")
	}
}

func TestRenderDeepOmitsField(t *testing.T) {
	e := New(nil)
	frame := map[string]value.Value{"env": value.NewMap()}
	params := value.Map(
		value.KV{Key: "src", Val: value.String("a")},
		value.KV{Key: "dest", Val: value.String("b")},
		value.KV{Key: "mode", Val: value.String("{{ env.MODE | default(omit) }}")},
	)
	out, err := e.RenderDeep(params, frame)
	if err != nil {
		t.Fatalf("RenderDeep: %v", err)
	}
	if _, ok := out.MapGet("mode"); ok {
		t.Fatal("mode key must be absent after omit, not null")
	}
	if v, ok := out.MapGet("src"); !ok || v.Str() != "a" {
		t.Fatal("src must survive RenderDeep unchanged")
	}
}

func TestRenderWhenTruthy(t *testing.T) {
	e := New(nil)
	frame := map[string]value.Value{"x": value.Int(1)}
	ok, err := e.RenderWhen("{{ x }}", frame)
	if err != nil {
		t.Fatalf("RenderWhen: %v", err)
	}
	if !ok {
		t.Fatal("RenderWhen({{ x }}) with x=1 must be truthy")
	}
}

func TestRenderFailsOnUndefinedVariable(t *testing.T) {
	e := New(nil)
	frame := map[string]value.Value{"environment": value.NewMap()}
	_, err := e.Render("hello {{ enviroment.FOO }}", frame, true)
	if err == nil {
		t.Fatal("expected an error for a typo'd top-level identifier")
	}
	if rasherr.KindOf(err) != rasherr.KindTemplateUndefined {
		t.Fatalf("KindOf(err) = %v, want TemplateUndefined", rasherr.KindOf(err))
	}
}

func TestRenderAllowsUndefinedGuardedByDefault(t *testing.T) {
	e := New(nil)
	frame := map[string]value.Value{"env": value.NewMap()}
	got, err := e.Render("{{ env.MODE | default('x') }}", frame, false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got.Str() != "x" {
		t.Fatalf("Render() = %q, want %q", got.Str(), "x")
	}
}

func TestRenderWhenFalsy(t *testing.T) {
	e := New(nil)
	frame := map[string]value.Value{"x": value.Int(0)}
	ok, err := e.RenderWhen("{{ x }}", frame)
	if err != nil {
		t.Fatalf("RenderWhen: %v", err)
	}
	if ok {
		t.Fatal("RenderWhen({{ x }}) with x=0 must be falsy")
	}
}
