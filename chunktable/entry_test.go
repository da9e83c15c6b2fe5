package chunktable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfirgo/ewfcore/chunktable"
)

func TestEntryRoundTrip(t *testing.T) {
	e := chunktable.Entry{
		Segment:       3,
		Offset:        1 << 20,
		StoredSize:    32768,
		Compressed:    true,
		ChecksumKnown: true,
	}
	got := chunktable.DecodeEntry(e.Encode())
	assert.Equal(t, e, got)
}

func TestEntryRoundTripUncompressed(t *testing.T) {
	e := chunktable.Entry{Segment: 1, Offset: 76, StoredSize: 32768}
	got := chunktable.DecodeEntry(e.Encode())
	assert.Equal(t, e, got)
	assert.False(t, got.Compressed)
	assert.False(t, got.ChecksumKnown)
}
