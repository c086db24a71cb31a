// Command rash is the entrypoint for the declarative shell scripting
// engine (spec §6): it runs a script file, or re-execs itself as a become
// worker when launched with the hidden --rash-become-worker flag (spec
// §4.7's become protocol, internal/procrun/become.go).
package main

import (
	"os"

	"rash/internal/procrun"

	"rash/internal/cliapp"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--rash-become-worker" {
		os.Exit(procrun.RunBecomeWorker(cliapp.BecomeWorkerHandler))
	}
	os.Exit(Execute())
}
