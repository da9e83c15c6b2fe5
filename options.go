package ewfcore

import (
	"github.com/dfirgo/ewfcore/codec"
	"github.com/dfirgo/ewfcore/header"
	"github.com/dfirgo/ewfcore/segment"
)

// Options configures a Handle's output geometry, format variant, and
// resource limits. The exhaustive configuration surface matches the
// handle configuration options of the external interface, plus the
// disk-spill, resume, and open-file-cap additions.
type Options struct {
	CompressionLevel codec.Level
	Format           segment.Format
	MediaType        segment.MediaType
	MediaFlags       segment.MediaFlags

	SectorsPerChunk         uint32
	BytesPerSector          uint32
	ErrorGranularitySectors uint32
	MaximumSegmentSize      int64

	HeaderCodepage string

	ReadErrorRetries         int
	ZeroChunkOnReadError     bool
	WipeChunkOnChecksumError bool

	// CacheCapacity bounds the chunk cache (package cache); <= 0
	// selects cache.DefaultCapacity.
	CacheCapacity int

	// OpenFileCap bounds the pool's simultaneously open descriptors;
	// <= 0 selects pool.DefaultOpenFileCap.
	OpenFileCap int

	// DiskIndexThreshold enables the chunk table's disk-spilled index
	// once this many entries have accumulated. 0 disables spill
	// entirely, keeping every entry resident in memory.
	DiskIndexThreshold int

	// ResumeDirectory, when non-empty, enables the bbolt/badger-backed
	// resume checkpoint store and error/session ledger for write-mode
	// handles, rooted at this directory.
	ResumeDirectory string

	// SegmentFileSetID is the 16-byte GUID embedded in every segment's
	// volume/disk record. A zero value causes Open(write) to generate
	// one via snowflake.
	SegmentFileSetID [16]byte

	// HeaderValues seeds the case metadata (case_number, examiner_name,
	// and so on) a write-mode handle emits in its header sections.
	HeaderValues header.Values
}

// DefaultOptions returns the configuration a handle uses for any field
// left at its zero value, matching common EnCase6-era acquisition
// defaults: DEFLATE-fast compression, 64 sectors/chunk, 512-byte
// sectors, a 2 GiB (32-bit-safe) segment cap, ASCII headers, three read
// retries, chunks that fail to read zero-filled, and checksum-mismatched
// chunks surfaced as errors rather than wiped.
func DefaultOptions() Options {
	return Options{
		CompressionLevel:         codec.LevelFast,
		Format:                   segment.FormatEnCase6,
		MediaType:                segment.MediaFixed,
		SectorsPerChunk:          64,
		BytesPerSector:           512,
		ErrorGranularitySectors:  64,
		MaximumSegmentSize:       segment.MaxSegmentSize32,
		HeaderCodepage:           "ascii",
		ReadErrorRetries:         3,
		ZeroChunkOnReadError:     true,
		WipeChunkOnChecksumError: false,
		HeaderValues:             header.NewValues(),
	}
}

// chunkSize returns the configured chunk size in bytes: sectors/chunk *
// bytes/sector.
func (o Options) chunkSize() int {
	return int(o.SectorsPerChunk) * int(o.BytesPerSector)
}

func (o Options) codepage() header.Codepage {
	return header.CodepageByName(o.HeaderCodepage)
}
