// Package resume persists acquisition progress so a write-mode Handle
// can continue an interrupted acquisition without re-processing chunks
// already flushed to disk.
package resume

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var checkpointBucket = []byte("checkpoint")
var checkpointKey = []byte("state")

// ErrNoCheckpoint is returned by Load when the store has never been
// written to, i.e. there is nothing to resume from.
var ErrNoCheckpoint = errors.New("resume: no checkpoint recorded")

// Checkpoint is the resume hint recorded after each successfully
// flushed chunk table batch. It is not a durability guarantee: on reopen the
// chunk table is re-derived from the segment files themselves, and
// the checkpoint is only used to skip re-acquiring chunks already on
// disk.
type Checkpoint struct {
	ChunkIndex        int
	SegmentNumber     uint16
	SegmentOffset     int64
	FirstVolumeOffset int64
	MD5State          []byte
	SHA1State         []byte
	PrefixDigest      uint64
}

// Store wraps one bbolt database per output base path, holding the
// single current Checkpoint for that acquisition.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the resume store for the given
// output base path, rooted under dir. dir is created if absent.
func Open(dir, baseName string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "resume: create resume directory")
	}
	path := filepath.Join(dir, baseName+".resume.db")
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, errors.Wrap(err, "resume: open checkpoint store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(checkpointBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "resume: init checkpoint bucket")
	}
	return &Store{db: db}, nil
}

// Save overwrites the stored Checkpoint. Not synchronously fsynced on
// every call by the caller's discipline; bbolt itself fsyncs each
// Update transaction, but callers are expected to call Save once per
// flushed chunk table batch rather than per chunk to keep resume
// cheap on damaged-media acquisitions with many small chunks.
func (s *Store) Save(cp Checkpoint) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cp); err != nil {
		return errors.Wrap(err, "resume: encode checkpoint")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(checkpointBucket)
		return b.Put(checkpointKey, buf.Bytes())
	})
}

// Load returns the last saved Checkpoint, or ErrNoCheckpoint if Save
// has never been called on this store.
func (s *Store) Load() (Checkpoint, error) {
	var cp Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(checkpointBucket)
		raw := b.Get(checkpointKey)
		if raw == nil {
			return ErrNoCheckpoint
		}
		return gob.NewDecoder(bytes.NewReader(raw)).Decode(&cp)
	})
	if err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}

// Clear removes the checkpoint, used once an acquisition finalizes
// successfully and there is nothing left to resume.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(checkpointBucket)
		return b.Delete(checkpointKey)
	})
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}
