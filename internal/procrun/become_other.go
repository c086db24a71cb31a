//go:build !unix

package procrun

import "fmt"

func dropPrivileges(uid, gid int) error {
	return fmt.Errorf("become is not supported on this platform")
}
