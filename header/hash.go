package header

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/dfirgo/ewfcore/codec"
)

// Hashes holds the whole-media digests carried by a hash/xhash section,
// computed incrementally over every chunk's raw bytes as they are
// written or read.
type Hashes struct {
	MD5  [16]byte
	SHA1 [20]byte
}

// hashPayloadSize is MD5 + SHA1 + 4 reserved bytes + checksum.
const hashPayloadSize = 16 + 20 + 4 + 4

// ErrShortHashPayload reports a hash/digest section payload shorter
// than the fixed layout requires.
var ErrShortHashPayload = errors.New("header: short hash section payload")

// EncodeHashes renders a hash/digest section payload.
func EncodeHashes(h Hashes) []byte {
	buf := make([]byte, hashPayloadSize)
	copy(buf[0:16], h.MD5[:])
	copy(buf[16:36], h.SHA1[:])
	sum := codec.Checksum(buf[0:40])
	binary.LittleEndian.PutUint32(buf[40:44], sum)
	return buf
}

// DecodeHashes parses a hash/digest section payload and validates its
// trailing checksum.
func DecodeHashes(payload []byte) (Hashes, error) {
	if len(payload) < hashPayloadSize {
		return Hashes{}, ErrShortHashPayload
	}
	var h Hashes
	copy(h.MD5[:], payload[0:16])
	copy(h.SHA1[:], payload[16:36])

	want := binary.LittleEndian.Uint32(payload[40:44])
	got := codec.Checksum(payload[0:40])
	if got != want {
		return h, codec.ErrChecksumMismatch
	}
	return h, nil
}
