package modules

import (
	"os"
	"path/filepath"
	"testing"

	"rash/internal/module"
	"rash/internal/rashtemplate"
	"rash/internal/value"
)

func TestCommandRunsAndCapturesOutput(t *testing.T) {
	c := NewCommand()
	params := value.Map(value.KV{Key: "cmd", Val: value.String("echo hello")})
	res, err := c.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected changed=true")
	}
	stdout, _ := res.Extra.MapGet("stdout")
	if stdout.Str() != "hello\n" {
		t.Fatalf("stdout = %q", stdout.Str())
	}
}

func TestCommandCreatesSkipsWhenPresent(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	c := NewCommand()
	params := value.Map(
		value.KV{Key: "cmd", Val: value.String("echo should-not-run")},
		value.KV{Key: "creates", Val: value.String(marker)},
	)
	res, err := c.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Changed {
		t.Fatal("expected changed=false when creates path exists")
	}
}

func TestCommandCheckModeDoesNotRun(t *testing.T) {
	c := NewCommand()
	dir := t.TempDir()
	marker := filepath.Join(dir, "should-not-exist")
	params := value.Map(value.KV{Key: "cmd", Val: value.String("touch " + marker)})
	res, err := c.Execute(params, module.GlobalParams{CheckMode: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected changed=true reported in check-mode")
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatal("check-mode must not mutate state")
	}
}

func TestAssertFailsOnFirstFalse(t *testing.T) {
	params := value.Map(value.KV{Key: "that", Val: value.Seq(value.Bool(true), value.Bool(false))})
	_, err := Assert{}.Execute(params, module.GlobalParams{})
	if err == nil {
		t.Fatal("expected failure")
	}
}

func TestAssertAllTruePasses(t *testing.T) {
	params := value.Map(value.KV{Key: "that", Val: value.Seq(value.Bool(true), value.Int(1))})
	res, err := Assert{}.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Changed {
		t.Fatal("assert must never report changed")
	}
}

func TestSetVarsChangedDetection(t *testing.T) {
	existing := map[string]value.Value{"x": value.Int(1)}
	sv := &SetVars{Lookup: func(name string) (value.Value, bool) {
		v, ok := existing[name]
		return v, ok
	}}
	params := value.Map(value.KV{Key: "x", Val: value.Int(1)})
	res, err := sv.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Changed {
		t.Fatal("expected changed=false when value unchanged")
	}

	params2 := value.Map(value.KV{Key: "x", Val: value.Int(2)})
	res2, err := sv.Execute(params2, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res2.Changed {
		t.Fatal("expected changed=true when value differs")
	}
}

func TestDebugPrefersVarOverMsg(t *testing.T) {
	var logged string
	d := &Debug{Log: func(s string) { logged = s }}
	params := value.Map(
		value.KV{Key: "msg", Val: value.String("from msg")},
		value.KV{Key: "var", Val: value.String("from var")},
	)
	res, err := d.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Changed {
		t.Fatal("debug must never report changed")
	}
	if logged != "from var" {
		t.Fatalf("logged = %q, want var to win", logged)
	}
}

func TestFindListsFilesNonRecursive(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	params := value.Map(value.KV{Key: "paths", Val: value.String(dir)})
	res, err := Find{}.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Changed {
		t.Fatal("find must never report changed")
	}
	files, _ := res.Extra.MapGet("files")
	if files.Len() != 1 {
		t.Fatalf("expected 1 file non-recursive, got %d", files.Len())
	}
}

func TestFileOpCopyCreatesAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	copyMod := NewCopy()
	params := value.Map(
		value.KV{Key: "dest", Val: value.String(dest)},
		value.KV{Key: "content", Val: value.String("hello")},
	)
	res1, err := copyMod.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res1.Changed {
		t.Fatal("expected changed=true on first write")
	}
	res2, err := copyMod.Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res2.Changed {
		t.Fatal("expected changed=false on second, idempotent write")
	}
}

func TestFileOpTemplateRendersAgainstFullContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "motd.tmpl")
	if err := os.WriteFile(src, []byte("host={{ rash.host }} mode={{ env.MODE }}"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	dest := filepath.Join(dir, "motd")

	tpl := NewTemplate(rashtemplate.New(nil))
	params := value.Map(
		value.KV{Key: "dest", Val: value.String(dest)},
		value.KV{Key: "src", Val: value.String(src)},
	)
	global := module.GlobalParams{ContextVars: map[string]value.Value{
		"rash": value.Map(value.KV{Key: "host", Val: value.String("box1")}),
		"env":  value.Map(value.KV{Key: "MODE", Val: value.String("prod")}),
	}}
	res, err := tpl.Execute(params, global)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected changed=true on first render")
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "host=box1 mode=prod" {
		t.Fatalf("rendered content = %q, want full context substituted", string(got))
	}
}

func TestFileOpAbsentRemoves(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(dest, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	params := value.Map(
		value.KV{Key: "dest", Val: value.String(dest)},
		value.KV{Key: "state", Val: value.String("absent")},
	)
	res, err := NewFile().Execute(params, module.GlobalParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected changed=true removing existing file")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("expected file to be removed")
	}
}
