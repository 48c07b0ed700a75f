//go:build unix && !linux

package fsguard

import (
	"errors"
	"fmt"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"golang.org/x/sys/unix"
)

func checkFilesystem(path string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return kuerrors.IOError{Op: "stat", Path: path, Err: err}
		}
		return unsupported(path, fmt.Sprintf("stat: %v", err))
	}
	return nil
}
