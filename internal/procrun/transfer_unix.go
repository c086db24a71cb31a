//go:build unix

package procrun

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"rash/internal/rasherr"
)

// TransferPid replaces the calling process's image with argv via execve,
// per spec §4.7: "the last task in a script may request transfer_pid: the
// runtime's own process image is replaced (not forked) ... legal only as
// the final task of the top-level program; the process never returns to
// rash's own code afterward." On success this function never returns.
func TransferPid(argv []string, envOverride map[string]string) error {
	if len(argv) == 0 {
		return rasherr.New(rasherr.KindParamInvalid, "procrun", "", fmt.Errorf("empty argv"))
	}
	path, err := resolvePath(argv[0])
	if err != nil {
		return rasherr.New(rasherr.KindModuleFailed, "procrun", argv[0], err)
	}

	env := os.Environ()
	for k, v := range envOverride {
		env = append(env, k+"="+v)
	}

	err = unix.Exec(path, argv, env)
	// unix.Exec only returns on failure; a successful call never reaches here.
	return rasherr.New(rasherr.KindModuleFailed, "procrun", argv[0], fmt.Errorf("transfer_pid exec failed: %w", err))
}

func resolvePath(name string) (string, error) {
	if len(name) > 0 && (name[0] == '/' || name[0] == '.') {
		return name, nil
	}
	return lookPath(name)
}
