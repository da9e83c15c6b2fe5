package resume

import (
	"encoding/binary"
	"encoding/gob"
	"bytes"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/dfirgo/ewfcore/segment"
)

// ErrorKind distinguishes why a ledger entry was recorded.
type ErrorKind uint8

const (
	// KindAcquiry marks a range the source media itself failed to
	// deliver during acquisition (error2 territory).
	KindAcquiry ErrorKind = iota
	// KindRead marks a range a later read-back of already-acquired
	// chunks failed a checksum or I/O check.
	KindRead
)

// ErrorEntry is one recorded bad-sector range, keyed in the ledger by
// (kind, first sector) so range scans stay ordered.
type ErrorEntry struct {
	Kind        ErrorKind
	FirstSector uint32
	SectorCount uint32
}

var (
	ledgerErrorPrefix   = []byte("err/")
	ledgerSessionPrefix = []byte("sess/")
)

// Ledger is a badger-backed, append-mostly log of acquiry/read-error
// ranges and session records, supplementing the in-memory Handle
// accumulators described in spec.md so a long acquisition of severely
// damaged media does not have to hold every range in RAM.
type Ledger struct {
	db *badger.DB
}

// OpenLedger opens (creating if necessary) the badger database backing
// the ledger, rooted at dir.
func OpenLedger(dir string) (*Ledger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "resume: open error ledger")
	}
	return &Ledger{db: db}, nil
}

func errorKey(kind ErrorKind, firstSector uint32) []byte {
	key := make([]byte, len(ledgerErrorPrefix)+1+4)
	n := copy(key, ledgerErrorPrefix)
	key[n] = byte(kind)
	binary.BigEndian.PutUint32(key[n+1:], firstSector)
	return key
}

func sessionKey(firstSector uint32) []byte {
	key := make([]byte, len(ledgerSessionPrefix)+4)
	n := copy(key, ledgerSessionPrefix)
	binary.BigEndian.PutUint32(key[n:], firstSector)
	return key
}

// RecordError appends one acquiry or read error range to the ledger.
func (l *Ledger) RecordError(kind ErrorKind, r segment.ErrorRange) error {
	entry := ErrorEntry{Kind: kind, FirstSector: r.FirstSector, SectorCount: r.SectorCount}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return errors.Wrap(err, "resume: encode error entry")
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(errorKey(kind, r.FirstSector), buf.Bytes())
	})
}

// RecordSession appends one session record to the ledger.
func (l *Ledger) RecordSession(s segment.SessionEntry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return errors.Wrap(err, "resume: encode session entry")
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(s.FirstSector), buf.Bytes())
	})
}

// Errors iterates every recorded error entry of the given kind in
// first-sector order, calling fn for each until it returns false or the
// ledger is exhausted.
func (l *Ledger) Errors(kind ErrorKind, fn func(ErrorEntry) bool) error {
	prefix := append(append([]byte{}, ledgerErrorPrefix...), byte(kind))
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry ErrorEntry
			err := it.Item().Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&entry)
			})
			if err != nil {
				return errors.Wrap(err, "resume: decode error entry")
			}
			if !fn(entry) {
				return nil
			}
		}
		return nil
	})
}

// Sessions iterates every recorded session record in first-sector order.
func (l *Ledger) Sessions(fn func(segment.SessionEntry) bool) error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = ledgerSessionPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(ledgerSessionPrefix); it.ValidForPrefix(ledgerSessionPrefix); it.Next() {
			var entry segment.SessionEntry
			err := it.Item().Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&entry)
			})
			if err != nil {
				return errors.Wrap(err, "resume: decode session entry")
			}
			if !fn(entry) {
				return nil
			}
		}
		return nil
	})
}

// Close closes the underlying badger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
