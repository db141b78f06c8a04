// Package fsutil holds the file-system helpers the executor relies on:
// free-space queries, same-file detection and work file promotion.
package fsutil

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupported is returned by FreeBytes on platforms without a
// free-space query.
var ErrUnsupported = errors.New("free space query not supported on this platform")

// FreeBytes returns the bytes available to an unprivileged user on the file
// system holding dir.
func FreeBytes(dir string) (uint64, error) {
	return freeBytes(dir)
}

// SameFile reports whether a and b name the same existing file. Missing
// files are never the same.
func SameFile(a, b string) bool {
	if a == b {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// FileSize returns the size of path, or 0 when it cannot be stat'd.
func FileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// Promote renames work onto final, replacing any existing file there. Both
// paths must be on the same file system.
func Promote(work, final string) error {
	if err := os.Rename(work, final); err != nil {
		return fmt.Errorf("promote %s: %w", final, err)
	}
	return nil
}
