package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rash/internal/cliapp"
)

// version is set at build time via -ldflags; "rash --version" is cobra's
// own built-in flag, a purely ambient convenience with no script-semantic
// effect (SPEC_FULL.md's Supplemented Features).
var version = "dev"

var (
	flagBecome       bool
	flagBecomeUser   string
	flagCheck        bool
	flagDiff         bool
	flagEnv          []string
	flagVerbose      int
	flagOutput       string
	flagInlineScript string
)

var rootCmd = &cobra.Command{
	Use:     "rash [options] <script_path> [script_args...]",
	Short:   "rash — a declarative shell scripting engine",
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := buildOptions(args)
		if err != nil {
			return err
		}
		exitCode = cliapp.Run(opts)
		return nil
	},
}

// exitCode carries the result of cliapp.Run out of RunE, since cobra's own
// Execute only distinguishes "errored while parsing/running" (non-nil
// error) from success — it has no channel for a script's own exit code.
var exitCode int

func buildOptions(args []string) (cliapp.Options, error) {
	if flagInlineScript == "" && len(args) == 0 {
		return cliapp.Options{}, fmt.Errorf("missing <script_path> (or use -s/--script for an inline script)")
	}

	scriptPath := "<inline>"
	scriptArgs := args
	if len(args) > 0 {
		scriptPath = args[0]
		scriptArgs = args[1:]
	}

	env, err := parseEnvOverrides(flagEnv)
	if err != nil {
		return cliapp.Options{}, err
	}

	return cliapp.Options{
		Become:       flagBecome,
		BecomeUser:   flagBecomeUser,
		Check:        flagCheck,
		Diff:         flagDiff,
		Env:          env,
		Verbosity:    flagVerbose,
		Output:       flagOutput,
		InlineScript: flagInlineScript,
		ScriptPath:   scriptPath,
		ScriptArgs:   scriptArgs,
	}, nil
}

func parseEnvOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, val, ok := splitKV(p)
		if !ok {
			return nil, fmt.Errorf("-e expects KEY=VALUE, got %q", p)
		}
		out[key] = val
	}
	return out, nil
}

func splitKV(s string) (key, val string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVarP(&flagBecome, "become", "b", false, "turn on become for every task")
	flags.StringVarP(&flagBecomeUser, "become-user", "u", "root", "target user for become")
	flags.BoolVarP(&flagCheck, "check", "c", false, "dry-run; no side effects")
	flags.BoolVarP(&flagDiff, "diff", "d", false, "emit unified diffs for change-producing modules")
	flags.StringArrayVarP(&flagEnv, "set-env", "e", nil, "add/override an environment variable (KEY=VALUE)")
	flags.CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (-v debug, -vv trace)")
	flags.StringVarP(&flagOutput, "output", "o", "ansible", "output style: ansible|raw")
	flags.StringVarP(&flagInlineScript, "script", "s", "", "execute an inline script")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		return 2
	}
	return exitCode
}
