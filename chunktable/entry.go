// Package chunktable implements the in-memory (and, for very large
// media, disk-spilled) mapping from chunk index to the segment, file
// offset, and stored size a chunk lives at — built incrementally as
// segment files are opened, and validated against the table/table2
// redundant pair described by the section codec.
package chunktable

import "encoding/binary"

// Entry describes where one chunk's stored bytes live.
type Entry struct {
	Segment       uint16
	Offset        uint64
	StoredSize    uint32
	Compressed    bool
	ChecksumKnown bool
}

// EncodedSize is the fixed width of an Entry once serialized for the
// disk-spilled index.
const EncodedSize = 2 + 8 + 4 + 1

// Encode renders the entry as a fixed-width record.
func (e Entry) Encode() []byte {
	buf := make([]byte, EncodedSize)
	binary.LittleEndian.PutUint16(buf[0:2], e.Segment)
	binary.LittleEndian.PutUint64(buf[2:10], e.Offset)
	binary.LittleEndian.PutUint32(buf[10:14], e.StoredSize)
	var flags byte
	if e.Compressed {
		flags |= 0x1
	}
	if e.ChecksumKnown {
		flags |= 0x2
	}
	buf[14] = flags
	return buf
}

// DecodeEntry parses a fixed-width record produced by Entry.Encode.
func DecodeEntry(buf []byte) Entry {
	flags := buf[14]
	return Entry{
		Segment:       binary.LittleEndian.Uint16(buf[0:2]),
		Offset:        binary.LittleEndian.Uint64(buf[2:10]),
		StoredSize:    binary.LittleEndian.Uint32(buf[10:14]),
		Compressed:    flags&0x1 != 0,
		ChecksumKnown: flags&0x2 != 0,
	}
}
