package cliapp

import (
	"fmt"
	"os"

	"rash/internal/module"
	"rash/internal/script"
)

// TaskLineRenderer renders per-task outcomes to standard output in one of
// the two styles spec §6's `-o` flag selects. "ansible" prints a single
// structured status line per task, the shape Ansible playbook runs are
// recognized by; "raw" prints only the module's own Output text, with no
// framing, for scripts meant to be piped. Grounded on the teacher's
// dryrun.go, which formats its own structured preview lines rather than
// dumping raw Go values.
type TaskLineRenderer struct {
	Format string
	Diff   bool
}

// Observe is wired to interp.Interp.Observe.
func (r TaskLineRenderer) Observe(task script.Task, result module.ModuleResult, err error) {
	if r.Format == "raw" {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if result.HasOutput && result.Output != "" {
			fmt.Println(result.Output)
		}
		return
	}

	name := task.Name
	if name == "" {
		name = task.Module
	}
	status := "ok"
	switch {
	case err != nil:
		status = "failed"
	case result.Changed:
		status = "changed"
	}
	fmt.Printf("%s: [%s]\n", status, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
	}
	if r.Diff {
		if diff, ok := result.Extra.MapGet("diff"); ok && diff.IsString() && diff.Str() != "" {
			fmt.Print(diff.Str())
		}
	}
}
