// Package difftext renders unified diffs for the `--diff` CLI flag and for
// modules (copy/file/template) that report a textual diff in their
// ModuleResult.Extra under check-mode or --diff. Grounded on erraggy-oastools'
// go.mod, which already pulls in go-difflib for exactly this purpose; no
// pack repo hand-rolls a diff algorithm, so that is the library to use
// rather than reimplementing Myers diff by hand.
package difftext

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified renders a unified diff between before and after, labeled with
// fromFile/toFile. Returns "" when the two texts are identical.
func Unified(fromFile, toFile, before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("render diff: %w", err)
	}
	return text, nil
}
