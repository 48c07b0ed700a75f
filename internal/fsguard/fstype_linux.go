//go:build linux

package fsguard

import (
	"errors"
	"fmt"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"golang.org/x/sys/unix"
)

// Superblock magics of filesystems that fake or ignore POSIX modes.
var permissionless = map[uint32]string{
	0x4d44:     "vfat",
	0x2011bab0: "exfat",
	0x5346544e: "ntfs",
	0x7366746e: "ntfs3",
}

func checkFilesystem(path string) error {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return kuerrors.IOError{Op: "statfs", Path: path, Err: err}
		}
		return unsupported(path, fmt.Sprintf("statfs: %v", err))
	}
	if name, bad := permissionless[uint32(st.Type)]; bad {
		return unsupported(path, name+" does not store POSIX permissions")
	}
	return nil
}
