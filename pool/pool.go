// Package pool manages the open file descriptors behind a segment file
// set: it bounds how many segment files stay open at once, guards
// exclusive access to the set with an advisory file lock, and exposes
// the low-level ReadAt/WriteAt/Size surface segment readers and writers
// are built on.
package pool

import (
	"io"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// Mode selects how a pool opens files.
type Mode int

const (
	// ModeReadOnly opens files O_RDONLY and never preallocates.
	ModeReadOnly Mode = iota
	// ModeReadWrite opens files O_RDWR|O_CREATE, suitable for a
	// segment currently being written.
	ModeReadWrite
)

const fileModePerm = 0o644

// DefaultOpenFileCap bounds the number of segment files kept open
// simultaneously by a Pool before the least recently used descriptor is
// evicted — the design note's "LRU cap on concurrently open file
// descriptors", independent of the chunk cache in package cache.
const DefaultOpenFileCap = 1000

// ErrClosed is returned by any operation on a Pool after Close.
var ErrClosed = errors.New("pool: closed")

type handle struct {
	fd    *os.File
	lock  *flockGuard
	mode  Mode
	path  string
	index uint16
}

// Pool owns the open file descriptors for one segment file set, indexed
// by segment number (the EWF "file index" — 1 for .E01/.s01, 2 for
// .E02/.s02, and so on).
type Pool struct {
	mu   sync.Mutex
	open *lru.Cache[uint16, *handle]
	path func(index uint16) string
	mode func(index uint16) Mode
	exclusiveLock bool
	closed bool
}

// New builds a Pool. path resolves a segment index to its file path;
// mode reports whether that segment should be opened read-only or
// read-write; openFileCap <= 0 selects DefaultOpenFileCap.
// Every opened file holds an advisory lock: shared for read-only files,
// and for writable files exclusive when exclusiveLock is set (rejecting
// concurrent writers against the same segment set, the single-writer
// contract of the concurrency model) and shared otherwise.
func New(path func(uint16) string, mode func(uint16) Mode, openFileCap int, exclusiveLock bool) (*Pool, error) {
	if openFileCap <= 0 {
		openFileCap = DefaultOpenFileCap
	}
	p := &Pool{path: path, mode: mode, exclusiveLock: exclusiveLock}

	evictCallback := func(_ uint16, h *handle) {
		_ = closeHandle(h)
	}
	open, err := lru.NewWithEvict[uint16, *handle](openFileCap, evictCallback)
	if err != nil {
		return nil, errors.Wrap(err, "pool: create fd cache")
	}
	p.open = open
	return p, nil
}

func (p *Pool) acquire(index uint16) (*handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if h, ok := p.open.Get(index); ok {
		return h, nil
	}

	mode := p.mode(index)
	flag := os.O_RDONLY
	if mode == ModeReadWrite {
		flag = os.O_RDWR | os.O_CREATE
	}
	path := p.path(index)
	fd, err := os.OpenFile(path, flag, fileModePerm)
	if err != nil {
		return nil, errors.Wrapf(err, "pool: open segment %d at %s", index, path)
	}

	var lg *flockGuard
	if mode == ModeReadWrite {
		lg, err = newFlockGuard(path, p.exclusiveLock)
		if err != nil {
			fd.Close()
			return nil, errors.Wrapf(err, "pool: lock segment %d", index)
		}
	} else {
		lg, err = newFlockGuard(path, false)
		if err != nil {
			fd.Close()
			return nil, errors.Wrapf(err, "pool: lock segment %d", index)
		}
	}

	h := &handle{fd: fd, lock: lg, mode: mode, path: path, index: index}
	p.open.Add(index, h)
	return h, nil
}

// ReadAt reads from the segment at the given index.
func (p *Pool) ReadAt(index uint16, buf []byte, off int64) (int, error) {
	h, err := p.acquire(index)
	if err != nil {
		return 0, err
	}
	return h.fd.ReadAt(buf, off)
}

// WriteAt writes to the segment at the given index. The pool must have
// been built with that index reporting ModeReadWrite.
func (p *Pool) WriteAt(index uint16, buf []byte, off int64) (int, error) {
	h, err := p.acquire(index)
	if err != nil {
		return 0, err
	}
	if h.mode != ModeReadWrite {
		return 0, errors.Errorf("pool: segment %d is not open for writing", index)
	}
	return h.fd.WriteAt(buf, off)
}

// Size reports the current size of the segment at the given index.
func (p *Pool) Size(index uint16) (int64, error) {
	h, err := p.acquire(index)
	if err != nil {
		return 0, err
	}
	fi, err := h.fd.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "pool: stat segment %d", index)
	}
	return fi.Size(), nil
}

// Preallocate extends the segment file at index to at least size bytes
// (on Linux the file's reported size grows to size), so a long sequential
// write run does not pay for on-demand block allocation one write at a
// time. It is a best-effort hint — see preallocate_unix.go and
// preallocate_other.go.
func (p *Pool) Preallocate(index uint16, size int64) error {
	h, err := p.acquire(index)
	if err != nil {
		return err
	}
	if h.mode != ModeReadWrite {
		return nil
	}
	return preallocate(h.fd, size)
}

// Sync flushes the segment at index to stable storage.
func (p *Pool) Sync(index uint16) error {
	h, err := p.acquire(index)
	if err != nil {
		return err
	}
	return h.fd.Sync()
}

// Evict closes and forgets one segment's descriptor without removing it
// from disk, freeing its slot in the open-file cap ahead of LRU
// eviction — used once a segment is sealed and finalized.
func (p *Pool) Evict(index uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.open.Get(index)
	if !ok {
		return nil
	}
	p.open.Remove(index)
	return closeHandle(h)
}

// CloseAll closes every open descriptor and releases the pool. The pool
// must not be used afterward.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for _, index := range p.open.Keys() {
		h, ok := p.open.Get(index)
		if !ok {
			continue
		}
		if err := closeHandle(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.open.Purge()
	return firstErr
}

func closeHandle(h *handle) error {
	var firstErr error
	if h.lock != nil {
		if err := h.lock.unlock(); err != nil {
			firstErr = err
		}
	}
	if err := h.fd.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ io.Closer = (*Pool)(nil)

// Close satisfies io.Closer by delegating to CloseAll.
func (p *Pool) Close() error { return p.CloseAll() }
