// Package fsguard decides whether a path is safe to use as a credential
// store: a regular file, not a symlink, mode 0600, owned by the caller, on a
// filesystem that can actually hold POSIX permission bits.
package fsguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"

	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// Mode is the only permission set accepted on a users file.
const Mode fs.FileMode = 0o600

// specialBits are rejected alongside any group/other bits.
const specialBits = fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// Guard validates and enforces file security.
type Guard struct {
	euid func() int
}

// Option configures a Guard.
type Option func(*Guard)

// WithEUID replaces the effective uid lookup, for tests.
func WithEUID(fn func() int) Option {
	return func(g *Guard) { g.euid = fn }
}

// New creates a Guard that compares file ownership with the process's
// effective uid.
func New(opts ...Option) *Guard {
	g := &Guard{euid: os.Geteuid}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate runs every check against path without following symlinks and
// returns the first violation as a SecurityError.
func (g *Guard) Validate(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return kuerrors.SecurityError{
				Kind:       kuerrors.ErrFileNotFound,
				Path:       path,
				Message:    fmt.Sprintf("users file not found: %s", path),
				Suggestion: "Check --users-file or KARAF_ETC",
			}
		}
		return kuerrors.IOError{Op: "lstat", Path: path, Err: err}
	}

	mode := info.Mode()
	if mode&fs.ModeSymlink != 0 {
		return kuerrors.SecurityError{
			Kind:       kuerrors.ErrSymlinkRejected,
			Path:       path,
			Message:    fmt.Sprintf("refusing to operate on symbolic link: %s", path),
			Suggestion: "Point --users-file at the real file",
		}
	}
	if !mode.IsRegular() {
		return kuerrors.SecurityError{
			Kind:    kuerrors.ErrNotRegularFile,
			Path:    path,
			Message: fmt.Sprintf("not a regular file: %s (%s)", path, describeType(mode)),
		}
	}

	if err := checkFilesystem(path); err != nil {
		return err
	}

	if actual := mode & (fs.ModePerm | specialBits); actual != Mode {
		return kuerrors.SecurityError{
			Kind: kuerrors.ErrInsecurePermissions,
			Path: path,
			Message: fmt.Sprintf("insecure permissions on %s: expected %s (%04o), found %s (%04o)",
				path, Symbolic(Mode), uint32(Mode), Symbolic(actual), unixBits(actual)),
			Suggestion: "chmod 600 " + path,
		}
	}

	owner, ok := fileOwner(path)
	if !ok {
		return unsupported(path, "file ownership cannot be determined")
	}
	if euid := g.euid(); int64(owner) != int64(euid) {
		return kuerrors.SecurityError{
			Kind: kuerrors.ErrOwnershipMismatch,
			Path: path,
			Message: fmt.Sprintf("%s is owned by %s but the current user is %s",
				path, describeUID(int64(owner)), describeUID(int64(euid))),
			Suggestion: "Run as the file owner, or chown the file to the current user",
		}
	}
	return nil
}

// Enforce sets path's mode to exactly 0600.
func (g *Guard) Enforce(path string) error {
	if err := checkFilesystem(path); err != nil {
		return err
	}
	if err := os.Chmod(path, Mode); err != nil {
		return kuerrors.IOError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}

// Symbolic renders mode's permission bits the way ls does, without the type
// character: 0600 is "rw-------", 04755 is "rwsr-xr-x".
func Symbolic(mode fs.FileMode) string {
	const rwx = "rwxrwxrwx"
	b := []byte("---------")
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			b[i] = rwx[i]
		}
	}
	special := func(idx int, set bool, lower, upper byte) {
		if !set {
			return
		}
		if b[idx] == 'x' {
			b[idx] = lower
		} else {
			b[idx] = upper
		}
	}
	special(2, mode&fs.ModeSetuid != 0, 's', 'S')
	special(5, mode&fs.ModeSetgid != 0, 's', 'S')
	special(8, mode&fs.ModeSticky != 0, 't', 'T')
	return string(b)
}

func unixBits(mode fs.FileMode) uint32 {
	bits := uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}

func describeType(mode fs.FileMode) string {
	switch {
	case mode.IsDir():
		return "directory"
	case mode&fs.ModeNamedPipe != 0:
		return "named pipe"
	case mode&fs.ModeSocket != 0:
		return "socket"
	case mode&fs.ModeDevice != 0:
		return "device"
	}
	return "irregular file"
}

func describeUID(uid int64) string {
	id := strconv.FormatInt(uid, 10)
	if u, err := user.LookupId(id); err == nil && u.Username != "" {
		return fmt.Sprintf("%s (uid %s)", u.Username, id)
	}
	return "uid " + id
}

func unsupported(path, reason string) error {
	return kuerrors.SecurityError{
		Kind:       kuerrors.ErrUnsupportedFilesystem,
		Path:       path,
		Message:    fmt.Sprintf("cannot verify permissions of %s: %s", path, reason),
		Suggestion: "Keep the users file on a filesystem with POSIX permissions (ext4, xfs, btrfs, apfs)",
	}
}
