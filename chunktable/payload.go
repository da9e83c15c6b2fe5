package chunktable

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/dfirgo/ewfcore/codec"
)

// CompressedFlag is the high bit of each stored 32-bit offset that
// marks the corresponding chunk as compressed.
const CompressedFlag uint32 = 0x80000000

// tablePrefixSize is the size of the fixed table/table2 payload prefix:
// 4-byte entry count, 4-byte reserved, 8-byte base offset, 16-byte
// reserved, 4-byte checksum of the prefix.
const tablePrefixSize = 4 + 4 + 8 + 16 + 4

// ErrShortPayload reports a table/table2 payload too small to hold the
// entry count it declares.
var ErrShortPayload = errors.New("chunktable: short table payload")

// Decoded is a parsed table or table2 payload, along with whether each
// of its two checksum-guarded regions validated.
type Decoded struct {
	BaseOffset  uint64
	Offsets     []uint32 // high bit (CompressedFlag) marks a compressed chunk
	PrefixValid bool
	ArrayValid  bool
}

// EncodePayload renders a table/table2 payload: the base offset plus
// one 32-bit offset per chunk, each relative to baseOffset and with its
// high bit set when the chunk is stored compressed.
func EncodePayload(baseOffset uint64, offsets []uint32) []byte {
	n := len(offsets)
	buf := make([]byte, tablePrefixSize+4*n+4)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	binary.LittleEndian.PutUint64(buf[8:16], baseOffset)
	prefixSum := codec.Checksum(buf[0:32])
	binary.LittleEndian.PutUint32(buf[32:36], prefixSum)

	off := tablePrefixSize
	for _, o := range offsets {
		binary.LittleEndian.PutUint32(buf[off:off+4], o)
		off += 4
	}
	arraySum := codec.Checksum(buf[tablePrefixSize : tablePrefixSize+4*n])
	binary.LittleEndian.PutUint32(buf[off:off+4], arraySum)
	return buf
}

// DecodePayload parses a table/table2 payload without rejecting a bad
// checksum outright — callers decide, per invariant 6, whether to trust
// table or fall back to table2 based on PrefixValid/ArrayValid.
func DecodePayload(payload []byte) (Decoded, error) {
	if len(payload) < tablePrefixSize+4 {
		return Decoded{}, ErrShortPayload
	}
	n := binary.LittleEndian.Uint32(payload[0:4])
	base := binary.LittleEndian.Uint64(payload[8:16])
	prefixSum := binary.LittleEndian.Uint32(payload[32:36])
	prefixValid := codec.Checksum(payload[0:32]) == prefixSum

	need := tablePrefixSize + 4*int(n) + 4
	if len(payload) < need {
		return Decoded{}, ErrShortPayload
	}
	offsets := make([]uint32, n)
	for i := 0; i < int(n); i++ {
		offsets[i] = binary.LittleEndian.Uint32(payload[tablePrefixSize+4*i : tablePrefixSize+4*i+4])
	}
	arraySum := binary.LittleEndian.Uint32(payload[tablePrefixSize+4*int(n) : need])
	arrayValid := codec.Checksum(payload[tablePrefixSize:tablePrefixSize+4*int(n)]) == arraySum

	return Decoded{BaseOffset: base, Offsets: offsets, PrefixValid: prefixValid, ArrayValid: arrayValid}, nil
}

// Valid reports whether the decoded payload is trustworthy as a whole.
func (d Decoded) Valid() bool { return d.PrefixValid && d.ArrayValid }

// EntriesFromDecoded converts a decoded table payload into chunk table
// entries for one segment, given the total size of the associated
// sectors section payload (needed to size the final chunk's run).
func EntriesFromDecoded(d Decoded, segment uint16, sectorsPayloadSize uint64, checksumKnown bool) []Entry {
	n := len(d.Offsets)
	entries := make([]Entry, n)
	for i := 0; i < n; i++ {
		raw := d.Offsets[i]
		compressed := raw&CompressedFlag != 0
		start := uint64(raw &^ CompressedFlag)

		var end uint64
		if i+1 < n {
			end = uint64(d.Offsets[i+1] &^ CompressedFlag)
		} else {
			end = sectorsPayloadSize
		}
		size := uint32(0)
		if end > start {
			size = uint32(end - start)
		}
		entries[i] = Entry{
			Segment:       segment,
			Offset:        d.BaseOffset + start,
			StoredSize:    size,
			Compressed:    compressed,
			ChecksumKnown: checksumKnown,
		}
	}
	return entries
}

// OffsetsFromEntries is the write-side inverse: given the entries
// written into one segment's current sectors run (already relative byte
// offsets within that run, smallest first) it produces the 32-bit
// offset array EncodePayload expects.
func OffsetsFromEntries(relativeOffsets []uint64, compressedFlags []bool) []uint32 {
	out := make([]uint32, len(relativeOffsets))
	for i, off := range relativeOffsets {
		v := uint32(off)
		if compressedFlags[i] {
			v |= CompressedFlag
		}
		out[i] = v
	}
	return out
}
