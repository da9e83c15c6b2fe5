package segment

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/dfirgo/ewfcore/codec"
)

// MediaType enumerates the handle's media_type configuration option.
type MediaType uint8

const (
	MediaRemovable MediaType = 0x00
	MediaFixed     MediaType = 0x01
	MediaOptical   MediaType = 0x03
	MediaMemory    MediaType = 0x10
)

// MediaFlags is the bitset carried by media_flags.
type MediaFlags uint8

const (
	MediaFlagPhysical  MediaFlags = 1 << 0
	MediaFlagFastblock MediaFlags = 1 << 1
	MediaFlagTableau   MediaFlags = 1 << 2
)

// Volume is the decoded media-geometry record carried by a segment
// file's volume/disk section and echoed by its data section.
type Volume struct {
	MediaType        MediaType
	MediaFlags       MediaFlags
	ChunkCount       uint32
	SectorsPerChunk  uint32
	BytesPerSector   uint32
	SectorCount      uint64
	CompressionLevel uint8
	ErrorGranularity uint32
	SegmentSetID     [16]byte
}

// volumePayloadSize mirrors the 1052-byte classic volume/disk/data
// section payload: a field block, reserved padding, and a trailing
// signature + checksum.
const volumePayloadSize = 1052

var volumeSignature = [5]byte{'E', 'W', 'F', 0x00, 0x00}

// ErrShortVolumePayload reports a volume/disk/data payload smaller than
// the fixed layout requires.
var ErrShortVolumePayload = errors.New("segment: short volume payload")

// EncodeVolume renders a volume/disk/data section payload.
func EncodeVolume(v Volume) []byte {
	buf := make([]byte, volumePayloadSize)
	buf[0] = byte(v.MediaType)
	binary.LittleEndian.PutUint32(buf[4:8], v.ChunkCount)
	binary.LittleEndian.PutUint32(buf[8:12], v.SectorsPerChunk)
	binary.LittleEndian.PutUint32(buf[12:16], v.BytesPerSector)
	binary.LittleEndian.PutUint64(buf[16:24], v.SectorCount)
	buf[36] = byte(v.MediaFlags)
	buf[45] = v.CompressionLevel
	binary.LittleEndian.PutUint32(buf[48:52], v.ErrorGranularity)
	copy(buf[56:72], v.SegmentSetID[:])

	copy(buf[volumePayloadSize-9:volumePayloadSize-4], volumeSignature[:])
	sum := codec.Checksum(buf[0 : volumePayloadSize-4])
	binary.LittleEndian.PutUint32(buf[volumePayloadSize-4:], sum)
	return buf
}

// DecodeVolume parses a volume/disk/data section payload and validates
// its trailing checksum.
func DecodeVolume(payload []byte) (Volume, error) {
	if len(payload) < volumePayloadSize {
		return Volume{}, ErrShortVolumePayload
	}
	want := binary.LittleEndian.Uint32(payload[volumePayloadSize-4:])
	got := codec.Checksum(payload[0 : volumePayloadSize-4])
	if got != want {
		return Volume{}, codec.ErrChecksumMismatch
	}

	v := Volume{
		MediaType:        MediaType(payload[0]),
		ChunkCount:       binary.LittleEndian.Uint32(payload[4:8]),
		SectorsPerChunk:  binary.LittleEndian.Uint32(payload[8:12]),
		BytesPerSector:   binary.LittleEndian.Uint32(payload[12:16]),
		SectorCount:      binary.LittleEndian.Uint64(payload[16:24]),
		MediaFlags:       MediaFlags(payload[36]),
		CompressionLevel: payload[45],
		ErrorGranularity: binary.LittleEndian.Uint32(payload[48:52]),
	}
	copy(v.SegmentSetID[:], payload[56:72])
	return v, nil
}

// ErrorRange is one entry of an error2 section: a run of sectors the
// acquisition encountered a read error on.
type ErrorRange struct {
	FirstSector uint32
	SectorCount uint32
}

const errorRangeEncodedSize = 4 + 4

// EncodeErrorRanges renders an error2 section payload: entry count,
// reserved, checksum of the prefix, then one 8-byte record per range,
// then a trailing checksum over the records — mirroring the
// table/table2 prefix-plus-array-plus-checksum shape.
func EncodeErrorRanges(ranges []ErrorRange) []byte {
	n := len(ranges)
	buf := make([]byte, 8+4+errorRangeEncodedSize*n+4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	sum := codec.Checksum(buf[0:8])
	binary.LittleEndian.PutUint32(buf[8:12], sum)

	off := 12
	for _, r := range ranges {
		binary.LittleEndian.PutUint32(buf[off:off+4], r.FirstSector)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], r.SectorCount)
		off += errorRangeEncodedSize
	}
	arraySum := codec.Checksum(buf[12 : 12+errorRangeEncodedSize*n])
	binary.LittleEndian.PutUint32(buf[off:off+4], arraySum)
	return buf
}

// DecodeErrorRanges parses an error2 section payload.
func DecodeErrorRanges(payload []byte) ([]ErrorRange, error) {
	if len(payload) < 12 {
		return nil, ErrShortVolumePayload
	}
	n := binary.LittleEndian.Uint32(payload[0:4])
	need := 12 + errorRangeEncodedSize*int(n) + 4
	if len(payload) < need {
		return nil, ErrShortVolumePayload
	}
	out := make([]ErrorRange, n)
	off := 12
	for i := 0; i < int(n); i++ {
		out[i] = ErrorRange{
			FirstSector: binary.LittleEndian.Uint32(payload[off : off+4]),
			SectorCount: binary.LittleEndian.Uint32(payload[off+4 : off+8]),
		}
		off += errorRangeEncodedSize
	}
	return out, nil
}

// SessionEntry is one entry of a session section: the first sector of
// one optical-media session.
type SessionEntry struct {
	FirstSector uint32
	SectorCount uint32
	Flags       uint32
}

const sessionEntryEncodedSize = 4 + 4 + 4

// EncodeSessions renders a session section payload, following the same
// prefix/array/checksum shape as error2.
func EncodeSessions(entries []SessionEntry) []byte {
	n := len(entries)
	buf := make([]byte, 8+4+sessionEntryEncodedSize*n+4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	sum := codec.Checksum(buf[0:8])
	binary.LittleEndian.PutUint32(buf[8:12], sum)

	off := 12
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[off:off+4], e.FirstSector)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], e.SectorCount)
		binary.LittleEndian.PutUint32(buf[off+8:off+12], e.Flags)
		off += sessionEntryEncodedSize
	}
	arraySum := codec.Checksum(buf[12 : 12+sessionEntryEncodedSize*n])
	binary.LittleEndian.PutUint32(buf[off:off+4], arraySum)
	return buf
}

// DecodeSessions parses a session section payload.
func DecodeSessions(payload []byte) ([]SessionEntry, error) {
	if len(payload) < 12 {
		return nil, ErrShortVolumePayload
	}
	n := binary.LittleEndian.Uint32(payload[0:4])
	need := 12 + sessionEntryEncodedSize*int(n) + 4
	if len(payload) < need {
		return nil, ErrShortVolumePayload
	}
	out := make([]SessionEntry, n)
	off := 12
	for i := 0; i < int(n); i++ {
		out[i] = SessionEntry{
			FirstSector: binary.LittleEndian.Uint32(payload[off : off+4]),
			SectorCount: binary.LittleEndian.Uint32(payload[off+4 : off+8]),
			Flags:       binary.LittleEndian.Uint32(payload[off+8 : off+12]),
		}
		off += sessionEntryEncodedSize
	}
	return out, nil
}
