package chunktable

import (
	"sync"

	"github.com/pkg/errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrOutOfRange reports a lookup past the last appended entry.
var ErrOutOfRange = errors.New("chunktable: index out of range")

// DefaultHotCacheSize bounds the in-process LRU that fronts a
// disk-spilled table, independent of the chunk data cache in package
// cache — this one caches index entries, not chunk payloads.
const DefaultHotCacheSize = 1 << 14

// Table is the chunk-index build up incrementally as segment files are
// opened or written to. Below DiskIndexThreshold entries it is a plain
// growable in-memory slice; above it, entries spill to a disk-backed
// index (package chunktable's diskindex.go) fronted by a small LRU so
// recently touched chunks still resolve without a disk round trip.
type Table struct {
	mu sync.RWMutex

	threshold int
	dir       string  // where the disk index is created on spill
	entries   []Entry // used while len(entries) <= threshold and disk is nil

	disk *diskIndex
	hot  *lru.Cache[int, Entry]
}

// New builds an empty Table. threshold <= 0 disables disk spill
// entirely — every entry stays resident in memory, matching the
// default handle configuration for ordinary-sized media.
func New(dirPath string, threshold int) (*Table, error) {
	return &Table{threshold: threshold, dir: dirPath}, nil
}

// Len returns the number of entries appended so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.len()
}

func (t *Table) len() int {
	if t.disk != nil {
		return t.disk.count
	}
	return len(t.entries)
}

// Append adds one entry, spilling to disk once the in-memory slice
// crosses threshold. It returns the entry's chunk index.
func (t *Table) Append(e Entry) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disk != nil {
		idx := t.disk.count
		if err := t.disk.put(idx, e); err != nil {
			return 0, errors.Wrap(err, "chunktable: append to disk index")
		}
		t.hot.Add(idx, e)
		return idx, nil
	}

	idx := len(t.entries)
	t.entries = append(t.entries, e)

	if t.threshold > 0 && len(t.entries) > t.threshold {
		if err := t.spillLocked(); err != nil {
			return 0, err
		}
	}
	return idx, nil
}

func (t *Table) spillLocked() error {
	hot, err := lru.New[int, Entry](DefaultHotCacheSize)
	if err != nil {
		return errors.Wrap(err, "chunktable: create hot cache")
	}
	di, err := openDiskIndex(t.dir)
	if err != nil {
		return errors.Wrap(err, "chunktable: open disk index")
	}
	for i, e := range t.entries {
		if err := di.put(i, e); err != nil {
			return errors.Wrap(err, "chunktable: spill entry")
		}
	}
	t.disk = di
	t.hot = hot
	t.entries = nil
	return nil
}

// Get resolves a chunk index to its entry.
func (t *Table) Get(index int) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= t.len() {
		return Entry{}, ErrOutOfRange
	}
	if t.disk == nil {
		return t.entries[index], nil
	}
	if e, ok := t.hot.Get(index); ok {
		return e, nil
	}
	e, err := t.disk.get(index)
	if err != nil {
		return Entry{}, errors.Wrap(err, "chunktable: disk index lookup")
	}
	t.hot.Add(index, e)
	return e, nil
}

// MarkUnverified clears the ChecksumKnown flag on an already-appended
// entry — used when a table section's checksum did not validate and
// only table2 (or neither) confirmed the offsets, per invariant 6.
func (t *Table) MarkUnverified(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= t.len() {
		return ErrOutOfRange
	}
	if t.disk == nil {
		t.entries[index].ChecksumKnown = false
		return nil
	}
	e, err := t.disk.get(index)
	if err != nil {
		return errors.Wrap(err, "chunktable: disk index lookup")
	}
	e.ChecksumKnown = false
	if err := t.disk.put(index, e); err != nil {
		return errors.Wrap(err, "chunktable: disk index update")
	}
	t.hot.Add(index, e)
	return nil
}

// Close releases the disk-spilled index, if any.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disk == nil {
		return nil
	}
	return t.disk.close()
}
