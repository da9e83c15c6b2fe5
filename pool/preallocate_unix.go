//go:build linux

package pool

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves space for fd up to size bytes using fallocate,
// falling back to a no-op when the filesystem does not support it (e.g.
// tmpfs on some kernels, or a network filesystem) — preallocation is
// strictly a performance hint, never required for correctness.
func preallocate(fd *os.File, size int64) error {
	fi, err := fd.Stat()
	if err != nil {
		return err
	}
	if fi.Size() >= size {
		return nil
	}
	err = unix.Fallocate(int(fd.Fd()), 0, 0, size)
	if err == unix.ENOTSUP || err == unix.EOPNOTSUPP {
		return nil
	}
	return err
}
