package chunktable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/chunktable"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	offsets := []uint32{0, 32768, 32768 | chunktable.CompressedFlag, 98304}
	payload := chunktable.EncodePayload(76, offsets)

	decoded, err := chunktable.DecodePayload(payload)
	require.NoError(t, err)
	assert.True(t, decoded.Valid())
	assert.Equal(t, uint64(76), decoded.BaseOffset)
	assert.Equal(t, offsets, decoded.Offsets)
}

func TestDecodePayloadDetectsCorruption(t *testing.T) {
	payload := chunktable.EncodePayload(0, []uint32{0, 4096})
	payload[10] ^= 0xff // corrupt a byte inside the prefix

	decoded, err := chunktable.DecodePayload(payload)
	require.NoError(t, err)
	assert.False(t, decoded.PrefixValid)
}

func TestDecodePayloadShort(t *testing.T) {
	_, err := chunktable.DecodePayload([]byte{1, 2, 3})
	assert.ErrorIs(t, err, chunktable.ErrShortPayload)
}

func TestEntriesFromDecoded(t *testing.T) {
	offsets := []uint32{0, 16384 | chunktable.CompressedFlag}
	payload := chunktable.EncodePayload(1000, offsets)
	decoded, err := chunktable.DecodePayload(payload)
	require.NoError(t, err)

	entries := chunktable.EntriesFromDecoded(decoded, 2, 32768, true)
	require.Len(t, entries, 2)

	assert.Equal(t, uint16(2), entries[0].Segment)
	assert.Equal(t, uint64(1000), entries[0].Offset)
	assert.Equal(t, uint32(16384), entries[0].StoredSize)
	assert.False(t, entries[0].Compressed)

	assert.Equal(t, uint64(1000+16384), entries[1].Offset)
	assert.Equal(t, uint32(32768-16384), entries[1].StoredSize)
	assert.True(t, entries[1].Compressed)
	assert.True(t, entries[1].ChecksumKnown)
}

func TestOffsetsFromEntries(t *testing.T) {
	got := chunktable.OffsetsFromEntries([]uint64{0, 4096, 9000}, []bool{false, true, false})
	assert.Equal(t, []uint32{0, 4096 | chunktable.CompressedFlag, 9000}, got)
}
