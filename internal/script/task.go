package script

import "rash/internal/value"

// reservedKeys are the task-mapping keys of spec §6 ("Script file format")
// that are never module names.
var reservedKeys = map[string]bool{
	"name":          true,
	"when":          true,
	"loop":          true,
	"register":      true,
	"vars":          true,
	"ignore_errors": true,
	"changed_when":  true,
	"check_mode":    true,
	"become":        true,
	"become_user":   true,
	"rescue":        true,
	"always":        true,
}

// structuralKeys select a Task's structural form rather than a module
// invocation (spec §3: "exactly one module invocation ... OR a structural
// form (block, include)").
const (
	keyBlock   = "block"
	keyInclude = "include"
)

// Task is one element of a TaskProgram (spec §3's Task).
type Task struct {
	Name string

	// Exactly one of Module/Block/IncludeFile is set, enforced at parse
	// time (spec §3 invariant: "exactly one module-like key per task").
	Module       string
	ModuleParams value.Value // mapping, unrendered

	Block  TaskProgram
	Rescue TaskProgram
	Always TaskProgram

	IncludeFile string

	// When/Loop/IgnoreErrors/ChangedWhen/Become hold raw, unrendered
	// expression text or a literal Value decoded straight from YAML (a
	// bare `true`/`false` scalar, say) — the task interpreter (C8) decides
	// whether to evaluate as an expression or use the literal directly.
	When         value.Value
	HasWhen      bool
	Loop         value.Value
	HasLoop      bool
	Register     string
	Vars         value.Value // mapping, unrendered
	IgnoreErrors value.Value
	HasIgnoreErrors bool
	ChangedWhen  value.Value
	HasChangedWhen bool
	CheckMode    value.Value
	HasCheckMode bool
	Become       value.Value
	HasBecome    bool
	BecomeUser   string
}

// IsBlock reports whether this Task is a structural block form.
func (t Task) IsBlock() bool { return t.Module == "" && t.IncludeFile == "" && (t.Block != nil || t.Rescue != nil || t.Always != nil) }

// IsInclude reports whether this Task is a structural include form.
func (t Task) IsInclude() bool { return t.IncludeFile != "" }

// TaskProgram is a finite ordered sequence of Tasks (spec §3).
type TaskProgram []Task
