// Package txwrite replaces a credential file without ever exposing a partial
// or world-readable version of it.
//
// Commit writes to a sibling temporary file, fsyncs it, locks its mode down
// and renames it over the target. Readers see either the old or the new file.
// On failure the target is untouched; the temporary file is left behind for
// inspection.
package txwrite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/logging"
)

// BackupTimeFormat is the timestamp suffix of backup files.
const BackupTimeFormat = "20060102150405"

// Enforcer sets owner-only permissions on a path.
type Enforcer interface {
	Enforce(path string) error
}

// Writer performs backups and commits.
type Writer struct {
	guard  Enforcer
	logger *logging.Logger
	now    func() time.Time
	rename func(oldpath, newpath string) error
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithRename replaces os.Rename, for tests.
func WithRename(fn func(oldpath, newpath string) error) Option {
	return func(w *Writer) { w.rename = fn }
}

// WithLogger sets a logger for protocol steps.
func WithLogger(l *logging.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// New creates a Writer that re-asserts permissions through guard.
func New(guard Enforcer, opts ...Option) *Writer {
	w := &Writer{
		guard:  guard,
		now:    time.Now,
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// BackupPath returns the name a backup of path taken at t would get.
func BackupPath(path string, t time.Time) string {
	return path + ".bak-" + t.Format(BackupTimeFormat)
}

// Backup copies path to a timestamped sibling, keeping its modification
// time, and returns the backup's path. A backup taken in the same second
// overwrites the earlier one. The copy is staged in a temporary file and
// renamed into place, so whatever already sits at the backup path (a
// symlink included) is replaced rather than written through.
func (w *Writer) Backup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", kuerrors.IOError{Op: "backup: open", Path: path, Err: err}
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", kuerrors.IOError{Op: "backup: stat", Path: path, Err: err}
	}

	dest := BackupPath(path, w.now())
	w.logger.Debug("Backing up %s to %s", path, dest)

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", kuerrors.IOError{Op: "backup: create", Path: dest, Err: err}
	}
	tmpName := tmp.Name()
	defer tmp.Close()

	staged := false
	defer func() {
		if !staged {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return "", kuerrors.IOError{Op: "backup: copy", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return "", kuerrors.IOError{Op: "backup: sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", kuerrors.IOError{Op: "backup: close", Path: tmpName, Err: err}
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return "", kuerrors.IOError{Op: "backup: chtimes", Path: tmpName, Err: err}
	}
	if err := w.guard.Enforce(tmpName); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", kuerrors.IOError{Op: "backup: rename", Path: dest, Err: err}
	}
	staged = true
	return dest, nil
}

// Commit atomically replaces target with content.
func (w *Writer) Commit(target string, content []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return kuerrors.IOError{Op: "commit: create temp", Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	defer tmp.Close()
	w.logger.Debug("Writing %d bytes to %s", len(content), tmpName)

	if _, err := tmp.Write(content); err != nil {
		return kuerrors.IOError{Op: "commit: write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return kuerrors.IOError{Op: "commit: sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return kuerrors.IOError{Op: "commit: close", Path: tmpName, Err: err}
	}
	if err := w.guard.Enforce(tmpName); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := w.rename(tmpName, target); err != nil {
		if !isCrossDevice(err) {
			return kuerrors.IOError{Op: "commit: rename", Path: target, Err: err}
		}
		w.logger.Warn("Atomic rename not possible for %s, replacing in place", target)
		if err := replaceInPlace(target, tmpName, content); err != nil {
			return err
		}
	}

	if err := w.guard.Enforce(target); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.logger.Debug("Committed %s", target)
	return nil
}

// replaceInPlace overwrites target with content, then drops the temp file.
// The mode is narrowed to owner-only before the file is truncated, so the
// new content is never readable by anyone else.
func replaceInPlace(target, tmpName string, content []byte) error {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return kuerrors.IOError{Op: "commit: open target", Path: target, Err: err}
	}
	defer out.Close()

	if err := out.Chmod(0o600); err != nil {
		return kuerrors.IOError{Op: "commit: chmod target", Path: target, Err: err}
	}
	if err := out.Truncate(0); err != nil {
		return kuerrors.IOError{Op: "commit: truncate target", Path: target, Err: err}
	}
	if _, err := out.Write(content); err != nil {
		return kuerrors.IOError{Op: "commit: write target", Path: target, Err: err}
	}
	if err := out.Sync(); err != nil {
		return kuerrors.IOError{Op: "commit: sync target", Path: target, Err: err}
	}
	if err := out.Close(); err != nil {
		return kuerrors.IOError{Op: "commit: close target", Path: target, Err: err}
	}
	if err := os.Remove(tmpName); err != nil {
		return kuerrors.IOError{Op: "commit: remove temp", Path: tmpName, Err: err}
	}
	return nil
}
