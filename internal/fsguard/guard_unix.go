//go:build unix

package fsguard

import "golang.org/x/sys/unix"

// fileOwner reads the owner uid without following a final symlink.
func fileOwner(path string) (uint32, bool) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, false
	}
	return st.Uid, true
}
