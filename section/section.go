// Package section implements the codec for the typed record ("section")
// that segment files are built from: a 76-byte self-describing header
// (type tag, next-section offset, size, checksum) followed by a
// type-specific payload. The next-section offset threads every section
// of a segment file into a singly-linked chain terminated by a section
// whose next-offset equals its own start offset.
package section

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"

	"github.com/dfirgo/ewfcore/codec"
)

// HeaderSize is the fixed size of a section header, per the external
// interface: 16-byte type tag + 8-byte next offset + 8-byte size +
// 40 bytes reserved + 4-byte checksum.
const HeaderSize = 76

const (
	tagOffset  = 0
	tagLen     = 16
	nextOffset = 16
	sizeOffset = 24
	checksumAt = 72
)

// Recognized type tags, named by purpose rather than on-disk order.
const (
	TagHeader  = "header"
	TagHeader2 = "header2"
	TagXHeader = "xheader"
	TagVolume  = "volume"
	TagDisk    = "disk"
	TagSectors = "sectors"
	TagTable   = "table"
	TagTable2  = "table2"
	TagData    = "data"
	TagDigest  = "digest"
	TagHash    = "hash"
	TagXHash   = "xhash"
	TagError2  = "error2"
	TagSession = "session"
	TagNext    = "next"
	TagDone    = "done"
)

// ErrBadChecksum reports a section header whose trailing checksum does
// not match the bytes it guards.
var ErrBadChecksum = errors.New("section: bad header checksum")

// ErrShortHeader reports a read that produced fewer than HeaderSize
// bytes.
var ErrShortHeader = errors.New("section: short header read")

// Header is a decoded section header.
type Header struct {
	Type       string
	NextOffset uint64
	Size       uint64
}

// IsTerminal reports whether a section at selfOffset is the terminal
// section of its chain — the special rule where next-offset equal to
// the section's own start offset signals the end of the chain.
func (h Header) IsTerminal(selfOffset int64) bool {
	return h.NextOffset == uint64(selfOffset)
}

// PayloadSize returns the number of payload bytes following the header.
func (h Header) PayloadSize() int64 {
	if h.Size < HeaderSize {
		return 0
	}
	return int64(h.Size) - HeaderSize
}

// Decode parses a section header from exactly HeaderSize bytes and
// validates its trailing checksum.
func Decode(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	tag := strings.TrimRight(string(buf[tagOffset:tagOffset+tagLen]), "\x00")
	next := binary.LittleEndian.Uint64(buf[nextOffset : nextOffset+8])
	size := binary.LittleEndian.Uint64(buf[sizeOffset : sizeOffset+8])
	want := binary.LittleEndian.Uint32(buf[checksumAt : checksumAt+4])
	got := codec.Checksum(buf[0:checksumAt])
	if got != want {
		return Header{Type: tag, NextOffset: next, Size: size}, ErrBadChecksum
	}
	return Header{Type: tag, NextOffset: next, Size: size}, nil
}

// Encode renders a section header. nextOffset must already be the
// absolute file offset immediately following the payload (or equal to
// selfOffset for a terminal section); size is HeaderSize plus the
// payload length.
func Encode(tag string, nextOffsetVal, size uint64) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[tagOffset:tagOffset+tagLen], tag)
	binary.LittleEndian.PutUint64(buf[nextOffset:nextOffset+8], nextOffsetVal)
	binary.LittleEndian.PutUint64(buf[sizeOffset:sizeOffset+8], size)
	sum := codec.Checksum(buf[0:checksumAt])
	binary.LittleEndian.PutUint32(buf[checksumAt:checksumAt+4], sum)
	return buf
}
