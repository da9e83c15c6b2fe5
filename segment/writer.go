package segment

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"encoding"

	"github.com/pkg/errors"

	"github.com/dfirgo/ewfcore/chunktable"
	"github.com/dfirgo/ewfcore/codec"
	"github.com/dfirgo/ewfcore/header"
	"github.com/dfirgo/ewfcore/section"
)

// MaxEntriesPerTable bounds how many chunk offsets accumulate in one
// table/table2 pair before the writer flushes it and starts a new
// sectors/table group within the current segment.
const MaxEntriesPerTable = 16375

// WriterConfig configures a Writer's output geometry and metadata. It
// is built from the handle's Options.
type WriterConfig struct {
	Format           Format
	MaxSegmentSize   int64
	SectorsPerChunk  uint32
	BytesPerSector   uint32
	CompressionLevel codec.Level
	MediaType        MediaType
	MediaFlags       MediaFlags
	ErrorGranularity uint32
	HeaderCodepage   header.Codepage
	HeaderValues     header.Values
	SegmentSetID     [16]byte

	// Resume, when non-nil, reopens the writer at a prior acquisition's
	// last clean boundary instead of starting segment 1 fresh.
	Resume *ResumeState
}

// ResumeState carries a Writer back to the point a prior, interrupted
// acquisition last reached a clean section-chain boundary: the
// already-open segment/offset to keep appending at, the chunk count
// already committed to the chunk table, and the running MD5/SHA-1
// accumulator state (marshaled via encoding.BinaryMarshaler) so the
// final digest still covers every chunk, not just the ones written
// after reopening.
type ResumeState struct {
	SegmentNumber     uint16
	SegmentOffset     int64
	ChunkCount        uint32
	FirstVolumeOffset int64
	MD5State          []byte
	SHA1State         []byte
}

// ioPool is the subset of *pool.Pool the writer needs, kept narrow so
// tests can substitute a fake without importing package pool.
type ioPool interface {
	WriteAt(index uint16, buf []byte, off int64) (int, error)
	ReadAt(index uint16, buf []byte, off int64) (int, error)
	Size(index uint16) (int64, error)
	Preallocate(index uint16, size int64) error
	Sync(index uint16) error
}

type pendingChunk struct {
	relOffset  uint64
	compressed bool
}

// Writer is the segment-size-budgeted state machine that emits a
// segment file set: Header -> Volume -> ChunksInProgress -> TableFlush
// -> (more chunks pending? Next : Done). It writes chunks as they
// arrive and only knows the final chunk count once Finalize is called,
// at which point the first segment's volume record is rewritten with
// the definitive geometry.
type Writer struct {
	pool   ioPool
	cfg    WriterConfig
	table  *chunktable.Table
	cursor uint16 // current segment number, 1-based

	segSize       int64 // bytes written to the current segment so far
	sectorsStart  int64 // absolute offset the current sectors run began at
	pending       []pendingChunk
	chunkCount    uint32

	md5  hashWriter
	sha1 hashWriter

	firstVolumeOffset int64 // where segment 1's volume payload starts, for back-patching
	finalized         bool

	// flush* snapshot the writer's state at the most recent clean
	// section-chain boundary (right after a table/table2 flush, before
	// whatever chunk's ensureRoom call triggered it gets appended) — the
	// only state a resumed writer can safely pick back up from.
	flushSegment    uint16
	flushOffset     int64
	flushChunkCount uint32
	flushMD5        []byte
	flushSHA1       []byte
	flushed         bool

	errorRanges []ErrorRange
	sessions    []SessionEntry
}

// SetErrorRanges records the acquiry-error sector ranges to emit in the
// final segment's error2 section at Finalize. Ignored if empty.
func (w *Writer) SetErrorRanges(ranges []ErrorRange) { w.errorRanges = ranges }

// SetSessions records the optical-media session table to emit in the
// final segment's session section at Finalize. Ignored if empty.
func (w *Writer) SetSessions(sessions []SessionEntry) { w.sessions = sessions }

type hashWriter interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
}

// ErrFinalized reports a write attempted after Finalize.
var ErrFinalized = errors.New("segment: writer already finalized")

// NewWriter opens segment 1 and emits its file header and volume
// section, ready to accept chunks.
func NewWriter(p ioPool, cfg WriterConfig, table *chunktable.Table) (*Writer, error) {
	sizeCap := cfg.Format.MaxSegmentSize()
	if cfg.MaxSegmentSize <= 0 {
		cfg.MaxSegmentSize = sizeCap
	} else if cfg.MaxSegmentSize > sizeCap {
		return nil, errors.Wrapf(ErrSegmentSizeExceedsFormatCap, "configured %d exceeds cap %d", cfg.MaxSegmentSize, sizeCap)
	}

	w := &Writer{pool: p, cfg: cfg, table: table, cursor: 1, md5: md5.New(), sha1: sha1.New()}

	if r := cfg.Resume; r != nil {
		w.cursor = r.SegmentNumber
		w.segSize = r.SegmentOffset
		w.chunkCount = r.ChunkCount
		w.firstVolumeOffset = r.FirstVolumeOffset
		if err := restoreHashState(w.md5, r.MD5State); err != nil {
			return nil, errors.Wrap(err, "segment: restore md5 state")
		}
		if err := restoreHashState(w.sha1, r.SHA1State); err != nil {
			return nil, errors.Wrap(err, "segment: restore sha1 state")
		}
		return w, nil
	}

	if err := w.openSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

func restoreHashState(h hashWriter, state []byte) error {
	if len(state) == 0 {
		return nil
	}
	um, ok := h.(encoding.BinaryUnmarshaler)
	if !ok {
		return errors.New("hash implementation does not support state restore")
	}
	return um.UnmarshalBinary(state)
}

func (w *Writer) openSegment() error {
	buf := make([]byte, FileHeaderSize)
	sig := w.cfg.Format.Signature()
	copy(buf[0:8], sig[:])
	buf[8] = fieldsStart
	binary.LittleEndian.PutUint16(buf[9:11], w.cursor)
	// bytes 11:13 are the end-of-fields marker, left zero.
	if _, err := w.pool.WriteAt(w.cursor, buf, 0); err != nil {
		return errors.Wrapf(err, "segment: write file header for segment %d", w.cursor)
	}
	w.segSize = FileHeaderSize

	if err := w.writeHeaderSections(); err != nil {
		return err
	}
	return w.writeVolumeSection(0)
}

func (w *Writer) writeHeaderSections() error {
	payload, err := header.Encode(w.cfg.HeaderValues, w.cfg.HeaderCodepage)
	if err != nil {
		return errors.Wrap(err, "segment: encode header section")
	}
	if err := w.appendSectionTag("header", payload); err != nil {
		return err
	}
	if w.cfg.Format.EmitsHeader2() {
		p2, err := header.Encode(w.cfg.HeaderValues, header.UTF16LE)
		if err != nil {
			return errors.Wrap(err, "segment: encode header2 section")
		}
		return w.appendSectionTag("header2", p2)
	}
	if w.cfg.Format.EmitsXHeader() {
		p2, err := header.Encode(w.cfg.HeaderValues, header.UTF8)
		if err != nil {
			return errors.Wrap(err, "segment: encode xheader section")
		}
		return w.appendSectionTag("xheader", p2)
	}
	return nil
}

func (w *Writer) writeVolumeSection(chunkCount uint32) error {
	v := Volume{
		MediaType:        w.cfg.MediaType,
		MediaFlags:       w.cfg.MediaFlags,
		ChunkCount:       chunkCount,
		SectorsPerChunk:  w.cfg.SectorsPerChunk,
		BytesPerSector:   w.cfg.BytesPerSector,
		SectorCount:      uint64(chunkCount) * uint64(w.cfg.SectorsPerChunk),
		CompressionLevel: uint8(w.cfg.CompressionLevel),
		ErrorGranularity: w.cfg.ErrorGranularity,
		SegmentSetID:     w.cfg.SegmentSetID,
	}
	payload := EncodeVolume(v)
	if w.cursor == 1 {
		w.firstVolumeOffset = w.segSize + section.HeaderSize
	}
	return w.appendSectionTag("volume", payload)
}

// appendSectionTag writes one section (header + payload) at the
// current end of the active segment file, advancing segSize. next is
// computed by the caller's subsequent call or by sealSegment/rotate;
// here next always points immediately past the payload, i.e. this
// section is never terminal.
func (w *Writer) appendSectionTag(tag string, payload []byte) error {
	selfOffset := w.segSize
	size := uint64(section.HeaderSize) + uint64(len(payload))
	next := uint64(selfOffset) + size
	hdr := section.Encode(tag, next, size)

	if _, err := w.pool.WriteAt(w.cursor, hdr, selfOffset); err != nil {
		return errors.Wrapf(err, "segment: write %s header", tag)
	}
	if len(payload) > 0 {
		if _, err := w.pool.WriteAt(w.cursor, payload, selfOffset+section.HeaderSize); err != nil {
			return errors.Wrapf(err, "segment: write %s payload", tag)
		}
	}
	w.segSize = int64(next)
	return nil
}

// WriteChunk compresses and appends one chunk's raw bytes to the active
// segment's current sectors run, flushing the table and rotating to a
// new segment first if the chunk would not fit under the configured
// segment-size budget.
func (w *Writer) WriteChunk(raw []byte) error {
	if w.finalized {
		return ErrFinalized
	}

	stored, compressed, err := codec.Compress(w.cfg.CompressionLevel, raw)
	if err != nil {
		return errors.Wrap(err, "segment: compress chunk")
	}
	chunkBytes := len(stored) + 4 // trailing checksum

	if err := w.ensureRoom(int64(chunkBytes)); err != nil {
		return err
	}
	if len(w.pending) == 0 {
		w.sectorsStart = w.segSize
		if err := w.beginSectorsSection(); err != nil {
			return err
		}
	}

	offset := w.segSize
	if _, err := w.pool.WriteAt(w.cursor, stored, offset); err != nil {
		return errors.Wrap(err, "segment: write chunk payload")
	}
	sum := codec.Checksum(stored)
	tail := make([]byte, 4)
	binary.LittleEndian.PutUint32(tail, sum)
	if _, err := w.pool.WriteAt(w.cursor, tail, offset+int64(len(stored))); err != nil {
		return errors.Wrap(err, "segment: write chunk checksum")
	}
	w.segSize += int64(chunkBytes)

	relOffset := uint64(offset) - uint64(w.sectorsStart+section.HeaderSize)
	w.pending = append(w.pending, pendingChunk{relOffset: relOffset, compressed: compressed})

	if _, err := w.table.Append(chunktable.Entry{
		Segment:       w.cursor,
		Offset:        uint64(offset),
		StoredSize:    uint32(chunkBytes),
		Compressed:    compressed,
		ChecksumKnown: true,
	}); err != nil {
		return errors.Wrap(err, "segment: append chunk table entry")
	}

	w.md5.Write(raw)
	w.sha1.Write(raw)
	w.chunkCount++

	if len(w.pending) >= MaxEntriesPerTable {
		return w.flushTable()
	}
	return nil
}

// beginSectorsSection writes a placeholder sectors section header; its
// next-offset and size are back-patched by flushTable once the run's
// total length is known, matching the design note's back-patch
// protocol for the running sectors section.
func (w *Writer) beginSectorsSection() error {
	hdr := section.Encode("sectors", uint64(w.segSize), uint64(section.HeaderSize))
	if _, err := w.pool.WriteAt(w.cursor, hdr, w.segSize); err != nil {
		return errors.Wrap(err, "segment: write sectors header")
	}
	w.segSize += section.HeaderSize
	return nil
}

// flushTable back-patches the open sectors section header with its
// final size, then emits the table and table2 sections describing the
// chunks written since the run began.
func (w *Writer) flushTable() error {
	if len(w.pending) == 0 {
		return nil
	}

	sectorsPayloadEnd := w.segSize
	sectorsSize := uint64(sectorsPayloadEnd - w.sectorsStart)
	hdr := section.Encode("sectors", uint64(sectorsPayloadEnd), sectorsSize)
	if _, err := w.pool.WriteAt(w.cursor, hdr, w.sectorsStart); err != nil {
		return errors.Wrap(err, "segment: back-patch sectors header")
	}

	relOffsets := make([]uint64, len(w.pending))
	flags := make([]bool, len(w.pending))
	for i, p := range w.pending {
		relOffsets[i] = p.relOffset
		flags[i] = p.compressed
	}
	offsets := chunktable.OffsetsFromEntries(relOffsets, flags)
	payload := chunktable.EncodePayload(uint64(w.sectorsStart+section.HeaderSize), offsets)

	if err := w.appendSectionTag("table", payload); err != nil {
		return err
	}
	if err := w.appendSectionTag("table2", payload); err != nil {
		return err
	}
	w.pending = nil

	md5State, err := marshalHashState(w.md5)
	if err != nil {
		return errors.Wrap(err, "segment: snapshot md5 state")
	}
	sha1State, err := marshalHashState(w.sha1)
	if err != nil {
		return errors.Wrap(err, "segment: snapshot sha1 state")
	}
	w.flushSegment = w.cursor
	w.flushOffset = w.segSize
	w.flushChunkCount = w.chunkCount
	w.flushMD5 = md5State
	w.flushSHA1 = sha1State
	w.flushed = true
	return nil
}

// ensureRoom flushes the table and rotates to a new segment if the
// next chunk, plus the table/table2/next sections a rotation would
// still need to close this one out, would exceed MaxSegmentSize.
func (w *Writer) ensureRoom(chunkBytes int64) error {
	const sealReserve = 3 * 76 // table + table2 + next headers, worst case sizes ignored for the estimate

	projected := w.segSize + chunkBytes
	if len(w.pending) == 0 {
		projected += section.HeaderSize // a new sectors header would be opened
	}
	if projected+sealReserve <= w.cfg.MaxSegmentSize {
		return nil
	}

	if err := w.flushTable(); err != nil {
		return err
	}
	return w.rotate()
}

func (w *Writer) rotate() error {
	if err := w.appendSectionTag("next", nil); err != nil {
		return err
	}
	// "next" is terminal: its own next-offset must equal its start
	// offset, so rewrite the header just written in place, re-encoded so
	// its checksum covers the corrected next-offset.
	nextHdrOffset := w.segSize - section.HeaderSize
	hdr := section.Encode("next", uint64(nextHdrOffset), uint64(section.HeaderSize))
	if _, err := w.pool.WriteAt(w.cursor, hdr, nextHdrOffset); err != nil {
		return errors.Wrap(err, "segment: patch next-section terminal offset")
	}
	if err := w.pool.Sync(w.cursor); err != nil {
		return errors.Wrap(err, "segment: sync sealed segment")
	}

	w.cursor++
	return w.openSegment()
}

// Finalize flushes any pending chunks, writes the error2 and session
// sections when there is anything to record, then the hash section,
// seals the final segment with done, and rewrites the first segment's
// volume record with the definitive chunk count now that it is known.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	if err := w.flushTable(); err != nil {
		return err
	}

	if len(w.errorRanges) > 0 {
		if err := w.appendSectionTag("error2", EncodeErrorRanges(w.errorRanges)); err != nil {
			return err
		}
	}
	if len(w.sessions) > 0 {
		if err := w.appendSectionTag("session", EncodeSessions(w.sessions)); err != nil {
			return err
		}
	}

	hashes := header.Hashes{}
	copy(hashes.MD5[:], w.md5.Sum(nil))
	copy(hashes.SHA1[:], w.sha1.Sum(nil))
	if err := w.appendSectionTag("hash", header.EncodeHashes(hashes)); err != nil {
		return err
	}

	if err := w.appendSectionTag("done", nil); err != nil {
		return err
	}
	doneHdrOffset := w.segSize - section.HeaderSize
	doneHdr := section.Encode("done", uint64(doneHdrOffset), uint64(section.HeaderSize))
	if _, err := w.pool.WriteAt(w.cursor, doneHdr, doneHdrOffset); err != nil {
		return errors.Wrap(err, "segment: patch done-section terminal offset")
	}

	if err := w.backpatchFirstVolume(); err != nil {
		return err
	}
	if err := w.pool.Sync(w.cursor); err != nil {
		return errors.Wrap(err, "segment: sync final segment")
	}

	w.finalized = true
	return nil
}

func (w *Writer) backpatchFirstVolume() error {
	v := Volume{
		MediaType:        w.cfg.MediaType,
		MediaFlags:       w.cfg.MediaFlags,
		ChunkCount:       w.chunkCount,
		SectorsPerChunk:  w.cfg.SectorsPerChunk,
		BytesPerSector:   w.cfg.BytesPerSector,
		SectorCount:      uint64(w.chunkCount) * uint64(w.cfg.SectorsPerChunk),
		CompressionLevel: uint8(w.cfg.CompressionLevel),
		ErrorGranularity: w.cfg.ErrorGranularity,
		SegmentSetID:     w.cfg.SegmentSetID,
	}
	payload := EncodeVolume(v)
	_, err := w.pool.WriteAt(1, payload, w.firstVolumeOffset)
	return errors.Wrap(err, "segment: back-patch first volume record")
}

// ChunkCount returns the number of chunks written so far.
func (w *Writer) ChunkCount() uint32 { return w.chunkCount }

// CurrentSegment returns the 1-based number of the segment currently
// being written to.
func (w *Writer) CurrentSegment() uint16 { return w.cursor }

// FirstVolumeOffset returns the byte offset of segment 1's volume
// payload, recorded so a resumed writer can still back-patch it.
func (w *Writer) FirstVolumeOffset() int64 { return w.firstVolumeOffset }

// FlushBoundary reports the most recent clean section-chain boundary
// this writer has flushed a table/table2 pair through: the segment and
// offset a resumed writer would continue appending at, the chunk count
// already durably committed, and the MD5/SHA-1 accumulator state as of
// that exact point. ok is false until the first table flush happens.
func (w *Writer) FlushBoundary() (segmentNumber uint16, offset int64, chunkCount uint32, md5State, sha1State []byte, ok bool) {
	return w.flushSegment, w.flushOffset, w.flushChunkCount, w.flushMD5, w.flushSHA1, w.flushed
}

func marshalHashState(h hashWriter) ([]byte, error) {
	m, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, errors.New("hash implementation does not support state capture")
	}
	return m.MarshalBinary()
}

// Hashes returns the MD5/SHA-1 accumulator state over every chunk
// written so far. Only meaningful as the final digest once Finalize has
// run; reading it beforehand returns a running-but-incomplete hash.
func (w *Writer) Hashes() header.Hashes {
	var h header.Hashes
	copy(h.MD5[:], w.md5.Sum(nil))
	copy(h.SHA1[:], w.sha1.Sum(nil))
	return h
}


