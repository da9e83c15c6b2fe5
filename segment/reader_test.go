package segment_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/chunktable"
	"github.com/dfirgo/ewfcore/codec"
	"github.com/dfirgo/ewfcore/header"
	"github.com/dfirgo/ewfcore/segment"
)

func buildOneSegmentWriter(t *testing.T) (*memPool, *segment.Writer) {
	t.Helper()
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	w, err := segment.NewWriter(mp, newWriterConfig(), table)
	require.NoError(t, err)
	return mp, w
}

func TestIndexSegmentDecodesHeaderVolumeAndEntries(t *testing.T) {
	mp, w := buildOneSegmentWriter(t)

	require.NoError(t, w.WriteChunk(make([]byte, 64*512)))
	require.NoError(t, w.WriteChunk(make([]byte, 64*512)))
	require.NoError(t, w.Finalize())

	idx, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.NoError(t, err)

	require.NotNil(t, idx.Volume)
	assert.EqualValues(t, 2, idx.Volume.ChunkCount)
	assert.EqualValues(t, 64, idx.Volume.SectorsPerChunk)
	assert.EqualValues(t, 512, idx.Volume.BytesPerSector)
	assert.Equal(t, "case-100", idx.Header.Get(header.FieldCaseNumber))
	assert.Len(t, idx.Entries, 2)
	assert.True(t, idx.Entries[0].ChecksumKnown)
	assert.Equal(t, segment.TerminalDone, idx.Terminal)
	require.NotNil(t, idx.Hashes)
}

func TestIndexSegmentRejectsBadSignature(t *testing.T) {
	mp := newMemPool()
	mp.grow(1, segment.FileHeaderSize)
	copy(mp.files[1], bytes.Repeat([]byte{0xFF}, segment.FileHeaderSize))

	_, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	assert.ErrorIs(t, err, segment.ErrBadSignature)
}

func TestIndexSegmentRejectsSegmentNumberMismatch(t *testing.T) {
	mp, w := buildOneSegmentWriter(t)
	require.NoError(t, w.Finalize())

	_, err := segment.IndexSegment(bound{mp, 1}, 7, header.ASCII)
	assert.ErrorIs(t, err, segment.ErrFormatMismatch)
}

// sectionTagOffset finds the absolute offset of a section header whose
// type tag is exactly tag (not a prefix of a longer tag, e.g. "table"
// vs "table2") by searching for the tag followed by its null pad byte.
func sectionTagOffset(t *testing.T, raw []byte, tag string) int64 {
	t.Helper()
	marker := append([]byte(tag), 0)
	idx := bytes.Index(raw, marker)
	require.GreaterOrEqualf(t, idx, 0, "section tag %q not found", tag)
	return int64(idx)
}

// corruptSectionPrefixChecksum flips a byte inside a table/table2
// section's checksum-guarded prefix region, invalidating it without
// disturbing the chunk offsets it describes.
func corruptSectionPrefixChecksum(t *testing.T, raw []byte, tag string) {
	t.Helper()
	hdrOffset := sectionTagOffset(t, raw, tag)
	payloadOffset := hdrOffset + 76 // section.HeaderSize
	raw[payloadOffset+4] ^= 0xFF
}

func TestIndexSegmentFallsBackToTable2WhenTableCorrupt(t *testing.T) {
	mp, w := buildOneSegmentWriter(t)
	require.NoError(t, w.WriteChunk(make([]byte, 64*512)))
	require.NoError(t, w.Finalize())

	corruptSectionPrefixChecksum(t, mp.files[1], "table")

	idx, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.True(t, idx.Entries[0].ChecksumKnown)
}

func TestIndexSegmentMarksEntriesUnverifiedWhenBothTablesCorrupt(t *testing.T) {
	mp, w := buildOneSegmentWriter(t)
	require.NoError(t, w.WriteChunk(make([]byte, 64*512)))
	require.NoError(t, w.Finalize())

	corruptSectionPrefixChecksum(t, mp.files[1], "table")
	corruptSectionPrefixChecksum(t, mp.files[1], "table2")

	idx, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.False(t, idx.Entries[0].ChecksumKnown)
}

func TestIndexSegmentReportsResumeOffsetAtTerminalSection(t *testing.T) {
	mp, w := buildOneSegmentWriter(t)
	require.NoError(t, w.WriteChunk(make([]byte, 64*512)))
	require.NoError(t, w.Finalize())

	idx, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.NoError(t, err)
	assert.Equal(t, segment.TerminalDone, idx.Terminal)
	assert.Greater(t, idx.ResumeOffset, int64(0))
}

func TestIndexSegmentReportsResumeOffsetOnTruncatedChain(t *testing.T) {
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	cfg := newWriterConfig()
	// Uncompressed 32 KiB chunks under a 128 KiB cap: segment 1 takes
	// three chunks, flushes table/table2, then rotates with a next section.
	cfg.MaxSegmentSize = 1 << 17
	cfg.CompressionLevel = codec.LevelNone
	w, err := segment.NewWriter(mp, cfg, table)
	require.NoError(t, err)

	chunk := make([]byte, 64*512)
	for i := 0; i < 8; i++ {
		require.NoError(t, w.WriteChunk(chunk))
	}
	require.NoError(t, w.Finalize())

	// Index the intact chain first to learn exactly where its "next"
	// section sits — the clean boundary a crash right after the table2
	// flush, but before the rotate-closing next section completed,
	// would leave a resumed writer to continue from.
	idxBefore, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.NoError(t, err)
	require.Equal(t, segment.TerminalNext, idxBefore.Terminal)
	cleanOffset := idxBefore.ResumeOffset

	mp.files[1] = mp.files[1][:cleanOffset]

	idxAfter, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.Error(t, err)
	assert.Equal(t, segment.TerminalNone, idxAfter.Terminal)
	assert.Equal(t, cleanOffset, idxAfter.ResumeOffset)
}
