// Package lib holds small process-lifecycle helpers shared by rash's
// command entrypoints.
package lib

import (
	"fmt"
	"os"

	"rash/internal/rasherr"
)

// Exit prints err and exits the program with its rasherr.Kind's exit code
// (spec §6's exit-code table), falling back to 1 for an error that doesn't
// wrap a *rasherr.Error. Generalized from the teacher's flat "always exit
// 1" Exit helper, which predates the multi-code exit contract rash needs.
func Exit(err error) {
	os.Exit(ReportError(err))
}

// ReportError prints err the same way Exit does but returns the exit code
// instead of calling os.Exit, so callers that need to run deferred cleanup
// (closing a logger, say) before the process actually exits can still use
// the teacher's message format.
func ReportError(err error) int {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return rasherr.KindOf(err).ExitCode()
}
