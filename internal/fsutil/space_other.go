//go:build !linux && !darwin && !freebsd && !windows

package fsutil

func freeBytes(string) (uint64, error) {
	return 0, ErrUnsupported
}
