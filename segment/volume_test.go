package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/codec"
	"github.com/dfirgo/ewfcore/segment"
)

func TestEncodeDecodeVolumeRoundTrip(t *testing.T) {
	v := segment.Volume{
		MediaType:        segment.MediaFixed,
		MediaFlags:       segment.MediaFlagPhysical,
		ChunkCount:       32,
		SectorsPerChunk:  64,
		BytesPerSector:   512,
		SectorCount:      2048,
		CompressionLevel: 1,
		ErrorGranularity: 64,
	}
	copy(v.SegmentSetID[:], []byte("0123456789abcdef"))

	payload := segment.EncodeVolume(v)
	got, err := segment.DecodeVolume(payload)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestDecodeVolumeDetectsCorruption(t *testing.T) {
	payload := segment.EncodeVolume(segment.Volume{ChunkCount: 1})
	payload[0] ^= 0xff

	_, err := segment.DecodeVolume(payload)
	assert.ErrorIs(t, err, codec.ErrChecksumMismatch)
}

func TestEncodeDecodeErrorRangesRoundTrip(t *testing.T) {
	ranges := []segment.ErrorRange{{FirstSector: 10, SectorCount: 3}, {FirstSector: 500, SectorCount: 1}}
	payload := segment.EncodeErrorRanges(ranges)

	got, err := segment.DecodeErrorRanges(payload)
	require.NoError(t, err)
	assert.Equal(t, ranges, got)
}

func TestEncodeDecodeSessionsRoundTrip(t *testing.T) {
	sessions := []segment.SessionEntry{{FirstSector: 0, SectorCount: 1000, Flags: 1}}
	payload := segment.EncodeSessions(sessions)

	got, err := segment.DecodeSessions(payload)
	require.NoError(t, err)
	assert.Equal(t, sessions, got)
}
