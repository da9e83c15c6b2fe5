//go:build !linux

package pool

import "os"

// preallocate is a no-op on platforms without a fallocate equivalent
// wired in; the segment writer still functions correctly, just without
// the sequential-write sizing hint.
func preallocate(fd *os.File, size int64) error {
	return nil
}
