package chunktable

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
	"github.com/rosedblabs/diskhash"
)

// diskIndex is the disk-spilled half of Table, used once a segment set
// grows past DiskIndexThreshold chunks and keeping every Entry resident
// would cost too much process memory. It is deliberately the only file
// in this package that touches the diskhash API, so a mismatch between
// our assumptions and the library's actual surface stays contained to
// one translation layer.
type diskIndex struct {
	table *diskhash.Table
	dir   string
	count int
}

func indexKey(i int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func matchAnySlot([]byte) (bool, error) {
	return true, nil
}

func openDiskIndex(dirPath string) (*diskIndex, error) {
	if dirPath == "" {
		d, err := os.MkdirTemp("", "ewfcore-chunktable-*")
		if err != nil {
			return nil, errors.Wrap(err, "create spill directory")
		}
		dirPath = d
	} else if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return nil, errors.Wrap(err, "create spill directory")
	}

	tbl, err := diskhash.Open(diskhash.Options{
		DirPath:         dirPath,
		TableName:       "chunks",
		KeyHashFunction: diskhash.Murmur3,
		SlotValueLength: EncodedSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open diskhash table")
	}
	return &diskIndex{table: tbl, dir: dirPath}, nil
}

func (d *diskIndex) put(index int, e Entry) error {
	if err := d.table.Put(indexKey(index), e.Encode()); err != nil {
		return errors.Wrapf(err, "put chunk %d", index)
	}
	if index >= d.count {
		d.count = index + 1
	}
	return nil
}

func (d *diskIndex) get(index int) (Entry, error) {
	var found []byte
	err := d.table.Get(indexKey(index), func(slotValue []byte) (bool, error) {
		match, err := matchAnySlot(slotValue)
		if match {
			found = append([]byte(nil), slotValue...)
		}
		return match, err
	})
	if err != nil {
		return Entry{}, errors.Wrapf(err, "get chunk %d", index)
	}
	if found == nil {
		return Entry{}, ErrOutOfRange
	}
	return DecodeEntry(found), nil
}

func (d *diskIndex) close() error {
	if d.table == nil {
		return nil
	}
	return d.table.Close()
}
