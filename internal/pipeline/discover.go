package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/vidcompress/internal/planner"
)

// Supported media file extensions (lowercase, with leading dot).
var mediaExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m2ts": true,
}

// IsMediaFile reports whether path has a supported extension and is not one
// of our own in-progress work files. The comparison is case-insensitive.
func IsMediaFile(path string) bool {
	if planner.IsWorkFile(path) {
		return false
	}
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover walks root recursively, collects media files, and returns the
// paths sorted lexicographically for deterministic processing order. Only an
// unreadable root is an error; other entries that cannot be read are passed
// to warn (which may be nil) and skipped.
func Discover(root string, warn func(path string, err error)) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return skipUnreadable(root, path, d, err, warn)
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if IsMediaFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// skipUnreadable is the WalkDir error policy shared by discovery and watch
// mode.
func skipUnreadable(root, path string, d fs.DirEntry, err error, warn func(string, error)) error {
	if path == root {
		return err
	}
	if warn != nil {
		warn(path, err)
	}
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}
