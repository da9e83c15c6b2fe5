package pool

import (
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ErrLocked reports that another process already holds the segment set
// lock — the on-disk enforcement of the single-writer contract.
var ErrLocked = errors.New("pool: segment set locked by another process")

// flockGuard wraps an advisory lock held alongside a writable segment
// file, released together with the file descriptor that opened it.
type flockGuard struct {
	fl *flock.Flock
}

// newFlockGuard acquires an advisory lock on path+".lock". When
// exclusive is false the lock is shared, allowing multiple read-only
// openers to coexist with the rule enforced elsewhere that only one
// writer may hold the exclusive form at a time.
func newFlockGuard(path string, exclusive bool) (*flockGuard, error) {
	fl := flock.New(path + ".lock")

	var locked bool
	var err error
	if exclusive {
		locked, err = fl.TryLock()
	} else {
		locked, err = fl.TryRLock()
	}
	if err != nil {
		return nil, errors.Wrap(err, "acquire advisory lock")
	}
	if !locked {
		return nil, ErrLocked
	}
	return &flockGuard{fl: fl}, nil
}

func (g *flockGuard) unlock() error {
	return g.fl.Unlock()
}
