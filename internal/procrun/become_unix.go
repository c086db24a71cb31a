//go:build unix

package procrun

import "golang.org/x/sys/unix"

// dropPrivileges switches the calling process's real/effective/saved
// gid and uid to gid/uid, in that order (group first, since a process
// that has already dropped its uid usually lacks permission to change
// its gid). Spec §4.7 become step 2: "In the child, switches effective
// uid/gid to the target user... Requires CAP_SETUID/CAP_SETGID (or
// root) in the parent process."
func dropPrivileges(uid, gid int) error {
	if gid != 0 {
		if err := unix.Setresgid(gid, gid, gid); err != nil {
			return err
		}
	}
	if uid != 0 {
		if err := unix.Setresuid(uid, uid, uid); err != nil {
			return err
		}
	}
	return nil
}
