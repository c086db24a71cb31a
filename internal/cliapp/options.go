// Package cliapp wires C1–C9 together behind the CLI contract of spec §6
// (C10): it builds the variable context's bottom frames (builtins, env,
// script args), the module registry, the template engine, and the task
// interpreter, then runs one script to completion and reports its outcome.
//
// Grounded on the teacher's cmd_root.go RunE shape — one command, flags
// collected up front, a single load/resolve/execute pipeline — generalized
// from devshell's tree-of-runnables dispatch to rash's single
// script-to-completion run.
package cliapp

// Options collects the CLI's global parameters (spec §6's flag table),
// built from cobra/pflag flags in cmd/rash.
type Options struct {
	Become       bool
	BecomeUser   string
	Check        bool
	Diff         bool
	Env          map[string]string // -e KEY=VALUE, repeatable
	Verbosity    int               // number of -v occurrences (-vv == 2)
	Output       string            // "ansible" or "raw"
	InlineScript string            // -s/--script
	ScriptPath   string
	ScriptArgs   []string
}
