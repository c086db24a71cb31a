package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"rash/internal/difftext"
	"rash/internal/module"
	"rash/internal/rashtemplate"
	"rash/internal/value"
)

// FileOp implements the `copy`, `file`, and `template` modules (spec §4.5
// table): create, update, or remove a filesystem entry and compute a diff.
// The three share one implementation because they differ only in where
// their content comes from (copy: a literal `content` or a `src` file
// read verbatim; template: `src` rendered through the template engine
// first) and `file` manages only path/mode/state with no content at all.
type FileOp struct {
	Kind   FileOpKind
	Engine *rashtemplate.Engine // only used when Kind == FileOpTemplate
}

type FileOpKind int

const (
	FileOpCopy FileOpKind = iota
	FileOpFile
	FileOpTemplate
)

func NewCopy() *FileOp     { return &FileOp{Kind: FileOpCopy} }
func NewFile() *FileOp     { return &FileOp{Kind: FileOpFile} }
func NewTemplate(e *rashtemplate.Engine) *FileOp { return &FileOp{Kind: FileOpTemplate, Engine: e} }

func (f *FileOp) Execute(params value.Value, global module.GlobalParams) (module.ModuleResult, error) {
	dest := stringField(params, "dest", "")
	if dest == "" {
		dest = stringField(params, "path", "")
	}
	if dest == "" {
		return module.ModuleResult{}, module.WrapFailure(f.name(), params, fmt.Errorf("dest/path is required"))
	}

	if state := stringField(params, "state", ""); state == "absent" {
		return f.executeAbsent(dest, global)
	}

	var desired []byte
	var hasContent bool
	switch f.Kind {
	case FileOpFile:
		hasContent = false
	case FileOpCopy:
		if c, ok := params.MapGet("content"); ok {
			desired = []byte(c.String())
			hasContent = true
		} else if src := stringField(params, "src", ""); src != "" {
			b, err := os.ReadFile(src)
			if err != nil {
				return module.ModuleResult{}, module.WrapFailure(f.name(), params, err)
			}
			desired = b
			hasContent = true
		} else {
			return module.ModuleResult{}, module.WrapFailure(f.name(), params, fmt.Errorf("copy requires content or src"))
		}
	case FileOpTemplate:
		src := stringField(params, "src", "")
		if src == "" {
			return module.ModuleResult{}, module.WrapFailure(f.name(), params, fmt.Errorf("template requires src"))
		}
		raw, err := os.ReadFile(src)
		if err != nil {
			return module.ModuleResult{}, module.WrapFailure(f.name(), params, err)
		}
		frame := templateFrame(params, global)
		rendered, err := f.Engine.Render(string(raw), frame, true)
		if err != nil {
			return module.ModuleResult{}, module.WrapFailure(f.name(), params, err)
		}
		desired = []byte(rendered.String())
		hasContent = true
	}

	mode := modeField(params)
	existing, readErr := os.ReadFile(dest)
	existed := readErr == nil

	contentChanged := hasContent && (!existed || string(existing) != string(desired))
	modeChanged := mode != 0 && existed && fileMode(dest) != mode
	changed := contentChanged || modeChanged || !existed

	extra := value.NewMap()
	if hasContent {
		diff, _ := difftext.Unified(dest, dest, string(existing), string(desired))
		if diff != "" {
			extra = extra.MapSet("diff", value.String(diff))
		}
	}

	if global.CheckMode {
		return module.ModuleResult{Changed: changed, Extra: extra, HasOutput: true, Output: "check-mode: would write " + dest}, nil
	}
	if !changed {
		return module.ModuleResult{Changed: false, Extra: extra}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return module.ModuleResult{}, module.WrapFailure(f.name(), params, err)
	}
	if hasContent {
		perm := os.FileMode(0o644)
		if mode != 0 {
			perm = mode
		}
		if err := os.WriteFile(dest, desired, perm); err != nil {
			return module.ModuleResult{}, module.WrapFailure(f.name(), params, err)
		}
	} else if mode != 0 {
		if err := os.Chmod(dest, mode); err != nil {
			return module.ModuleResult{}, module.WrapFailure(f.name(), params, err)
		}
	} else if !existed {
		if err := os.WriteFile(dest, nil, 0o644); err != nil {
			return module.ModuleResult{}, module.WrapFailure(f.name(), params, err)
		}
	}

	return module.ModuleResult{Changed: true, Extra: extra}, nil
}

func (f *FileOp) executeAbsent(dest string, global module.GlobalParams) (module.ModuleResult, error) {
	_, err := os.Stat(dest)
	if os.IsNotExist(err) {
		return module.ModuleResult{Changed: false}, nil
	}
	if global.CheckMode {
		return module.ModuleResult{Changed: true, HasOutput: true, Output: "check-mode: would remove " + dest}, nil
	}
	if err := os.RemoveAll(dest); err != nil {
		return module.ModuleResult{}, module.WrapFailure(f.name(), value.NewMap(), err)
	}
	return module.ModuleResult{Changed: true}, nil
}

func (f *FileOp) name() string {
	switch f.Kind {
	case FileOpCopy:
		return "copy"
	case FileOpTemplate:
		return "template"
	default:
		return "file"
	}
}

func modeField(params value.Value) os.FileMode {
	v, ok := params.MapGet("mode")
	if !ok || !v.IsString() {
		return 0
	}
	n, err := strconv.ParseUint(v.Str(), 8, 32)
	if err != nil {
		return 0
	}
	return os.FileMode(n)
}

func fileMode(path string) os.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Mode().Perm()
}

// templateFrame builds the frame a templated file's contents render
// against: the full ambient context the interpreter snapshotted at
// dispatch time (env.*, rash.*, set_vars/register bindings, task-local
// vars), with the template module's own `vars:` sub-key layered on top as
// a final override — the same precedence task.vars gets over its
// surrounding scope elsewhere in the interpreter.
func templateFrame(params value.Value, global module.GlobalParams) map[string]value.Value {
	frame := make(map[string]value.Value, len(global.ContextVars))
	for k, v := range global.ContextVars {
		frame[k] = v
	}
	if vars, ok := params.MapGet("vars"); ok && vars.IsMap() {
		for _, k := range vars.MapKeys() {
			v, _ := vars.MapGet(k)
			frame[k] = v
		}
	}
	return frame
}
