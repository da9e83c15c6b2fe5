package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/chunktable"
	"github.com/dfirgo/ewfcore/codec"
	"github.com/dfirgo/ewfcore/header"
	"github.com/dfirgo/ewfcore/segment"
)

// memPool is a minimal in-memory stand-in for *pool.Pool, sized to
// exactly what segment.Writer and segment.IndexSegment need.
type memPool struct {
	files map[uint16][]byte
}

func newMemPool() *memPool { return &memPool{files: map[uint16][]byte{}} }

func (m *memPool) grow(index uint16, size int64) {
	f := m.files[index]
	if int64(len(f)) < size {
		grown := make([]byte, size)
		copy(grown, f)
		m.files[index] = grown
	}
}

func (m *memPool) WriteAt(index uint16, buf []byte, off int64) (int, error) {
	m.grow(index, off+int64(len(buf)))
	copy(m.files[index][off:], buf)
	return len(buf), nil
}

func (m *memPool) ReadAt(index uint16, buf []byte, off int64) (int, error) {
	f := m.files[index]
	if off+int64(len(buf)) > int64(len(f)) {
		return 0, errShortRead
	}
	copy(buf, f[off:off+int64(len(buf))])
	return len(buf), nil
}

func (m *memPool) Size(index uint16) (int64, error) { return int64(len(m.files[index])), nil }
func (m *memPool) Preallocate(uint16, int64) error  { return nil }
func (m *memPool) Sync(uint16) error                { return nil }

// bound adapts one segment index of memPool to section.ReaderAt, the
// same role pool.Bound plays for *pool.Pool in the real handle.
type bound struct {
	m     *memPool
	index uint16
}

func (b bound) ReadAt(buf []byte, off int64) (int, error) {
	return b.m.ReadAt(b.index, buf, off)
}

type shortReadErr struct{}

func (shortReadErr) Error() string { return "memPool: short read" }

var errShortRead = shortReadErr{}

func newWriterConfig() segment.WriterConfig {
	v := header.NewValues()
	v.Set(header.FieldCaseNumber, "case-100")
	return segment.WriterConfig{
		Format:           segment.FormatEnCase6,
		MaxSegmentSize:   1 << 20,
		SectorsPerChunk:  64,
		BytesPerSector:   512,
		CompressionLevel: codec.LevelFast,
		MediaType:        segment.MediaFixed,
		HeaderCodepage:   header.ASCII,
		HeaderValues:     v,
	}
}

func TestWriterSingleSegmentRoundTrip(t *testing.T) {
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	w, err := segment.NewWriter(mp, newWriterConfig(), table)
	require.NoError(t, err)

	chunk := make([]byte, 64*512)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	require.NoError(t, w.WriteChunk(chunk))
	require.NoError(t, w.WriteChunk(chunk))
	require.NoError(t, w.Finalize())

	assert.EqualValues(t, 2, w.ChunkCount())
	assert.EqualValues(t, 1, w.CurrentSegment())

	idx, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.NoError(t, err)
	assert.Equal(t, segment.TerminalDone, idx.Terminal)
	assert.Len(t, idx.Entries, 2)
	assert.Equal(t, "case-100", idx.Header.Get(header.FieldCaseNumber))
	require.NotNil(t, idx.Hashes)
}

func TestWriterRotatesAcrossSegments(t *testing.T) {
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	cfg := newWriterConfig()
	cfg.MaxSegmentSize = 4096 // force rotation quickly
	// Stored raw: deflated zero chunks would all fit in one segment.
	cfg.CompressionLevel = codec.LevelNone
	w, err := segment.NewWriter(mp, cfg, table)
	require.NoError(t, err)

	chunk := make([]byte, 64*512)
	for i := 0; i < 8; i++ {
		require.NoError(t, w.WriteChunk(chunk))
	}
	require.NoError(t, w.Finalize())

	assert.Greater(t, w.CurrentSegment(), uint16(1))

	idx1, err := segment.IndexSegment(bound{mp, 1}, 1, header.ASCII)
	require.NoError(t, err)
	assert.Equal(t, segment.TerminalNext, idx1.Terminal)

	idxLast, err := segment.IndexSegment(bound{mp, w.CurrentSegment()}, w.CurrentSegment(), header.ASCII)
	require.NoError(t, err)
	assert.Equal(t, segment.TerminalDone, idxLast.Terminal)
}

func TestWriterRejectsWriteAfterFinalize(t *testing.T) {
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	w, err := segment.NewWriter(mp, newWriterConfig(), table)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())

	err = w.WriteChunk(make([]byte, 64*512))
	assert.ErrorIs(t, err, segment.ErrFinalized)
}

// S5: a non-WideSegments format rejects a configured maximum segment
// size beyond the 32-bit cap, while a WideSegments format (EnCase 6,
// EWFX) accepts the same configuration.
func TestWriterEnforcesFormatSegmentSizeCap(t *testing.T) {
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	cfg := newWriterConfig()
	cfg.Format = segment.FormatEWF
	cfg.MaxSegmentSize = segment.MaxSegmentSize32 + 1

	_, err = segment.NewWriter(mp, cfg, table)
	assert.ErrorIs(t, err, segment.ErrSegmentSizeExceedsFormatCap)
}

func TestWriterAllowsWideSegmentSizeOnWideFormat(t *testing.T) {
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	cfg := newWriterConfig()
	cfg.Format = segment.FormatEnCase6
	cfg.MaxSegmentSize = segment.MaxSegmentSize32 + 1

	w, err := segment.NewWriter(mp, cfg, table)
	require.NoError(t, err)
	require.NoError(t, w.WriteChunk(make([]byte, 64*512)))
	require.NoError(t, w.Finalize())
}

func TestWriterDefaultsMaxSegmentSizeToFormatCap(t *testing.T) {
	mp := newMemPool()
	table, err := chunktable.New("", 0)
	require.NoError(t, err)

	cfg := newWriterConfig()
	cfg.MaxSegmentSize = 0
	cfg.Format = segment.FormatEnCase6

	w, err := segment.NewWriter(mp, cfg, table)
	require.NoError(t, err)
	require.NoError(t, w.WriteChunk(make([]byte, 64*512)))
	require.NoError(t, w.Finalize())
}
