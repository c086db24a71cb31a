//go:build !unix

package procrun

import "fmt"

// TransferPid is unsupported outside unix: there is no portable
// process-image-replacement syscall to ground it on.
func TransferPid(argv []string, envOverride map[string]string) error {
	return fmt.Errorf("transfer_pid is not supported on this platform")
}
