// Package ewfcore implements the core of a forensic disk-image library
// for the EWF (Expert Witness Compression Format) family: segment file
// layout, section codec, chunk table, chunk cache, compression and
// checksum discipline, and the Handle read/write/seek/finalize surface
// built on top of them. Acquisition front ends, device discovery, user
// prompts, and progress reporting are explicitly out of scope; this
// package only moves and verifies bytes.
package ewfcore

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dfirgo/ewfcore/cache"
	"github.com/dfirgo/ewfcore/chunktable"
	"github.com/dfirgo/ewfcore/codec"
	"github.com/dfirgo/ewfcore/header"
	"github.com/dfirgo/ewfcore/pool"
	"github.com/dfirgo/ewfcore/resume"
	"github.com/dfirgo/ewfcore/segment"
)

// Mode selects whether a Handle is reading an existing segment set or
// writing a new one. A handle is single-threaded-cooperative per the
// concurrency model: callers must not use the same Handle from more
// than one goroutine concurrently.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// AcquiryError is one sector range the source media failed to deliver
// during acquisition.
type AcquiryError struct {
	FirstSector uint32
	SectorCount uint32
}

// ReadError is one chunk a later read-back failed a checksum or I/O
// check on.
type ReadError struct {
	ChunkIndex int
	Err        error
}

// Handle is the public read/write/seek/finalize surface over one
// segment file set. It owns the pool, the chunk table, the chunk cache,
// and, for write mode, the segment writer and optional resume store.
type Handle struct {
	mu sync.Mutex

	mode Mode
	opts Options
	pool *pool.Pool

	table *chunktable.Table
	cache *cache.ChunkCache

	// read-mode state
	segments   []*segment.Index
	headerVals header.Values
	hashes     *header.Hashes

	// write-mode state
	writer       *segment.Writer
	writeBuf     []byte
	firstWritten bool
	finalized    bool

	resumeStore           *resume.Store
	resumeLedger          *resume.Ledger
	prefixDigest          *resume.PrefixDigest
	lastCheckpointedChunk uint32

	mediaSize     uint64
	chunkSize     int
	chunkCount    uint32
	guid          [16]byte
	currentOffset int64
	closed        bool

	acquiryErrors []AcquiryError
	readErrors    []ReadError
}

// Open opens a segment file set. In ModeRead, paths names every segment
// file belonging to the set (in segment-number order, i.e. paths[0] is
// segment 1 / ".E01" or ".s01"); every file is indexed and the result
// merged into one Handle. In ModeWrite, paths must contain exactly one
// entry: the output base path (without a segment-number extension),
// which the configured Options.Format's naming scheme extends into
// ".E01", ".E02", … (or the SMART equivalent) as segments are created.
func Open(paths []string, mode Mode, opts Options) (*Handle, error) {
	if len(paths) == 0 {
		return nil, newError(KindInvalidArgument, ErrNoSegments)
	}

	h := &Handle{mode: mode, opts: opts}
	h.chunkSize = opts.chunkSize()

	c, err := cache.New(opts.CacheCapacity)
	if err != nil {
		return nil, newError(KindIoOpen, err)
	}
	h.cache = c

	if mode == ModeRead {
		if err := h.openRead(paths); err != nil {
			return nil, err
		}
	} else {
		if err := h.openWrite(paths); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Handle) openRead(paths []string) error {
	p, err := pool.New(
		func(index uint16) string { return paths[index-1] },
		func(uint16) pool.Mode { return pool.ModeReadOnly },
		h.opts.OpenFileCap,
		false,
	)
	if err != nil {
		return newError(KindIoOpen, err)
	}
	h.pool = p

	cp := h.opts.codepage()
	segments := make([]*segment.Index, len(paths))
	segErrs := make([]error, len(paths))

	// Every segment is indexed concurrently and independently: a
	// malformed section chain in one segment file is fatal only to that
	// segment's own indexing (segErrs[i] records it and segments[i]
	// keeps whatever partial Index IndexSegment managed to build before
	// the error), so sibling segments and the chunks they cover stay
	// usable once Open returns.
	var g errgroup.Group
	for i := range paths {
		i := i
		g.Go(func() error {
			idx, err := segment.IndexSegment(p.Bind(uint16(i+1)), uint16(i+1), cp)
			segments[i] = idx
			segErrs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	// Segment 1 carries the signature and authoritative volume record;
	// without it there is no geometry to open a handle against at all.
	if segments[0] == nil || segErrs[0] != nil {
		p.CloseAll()
		return newError(KindBadSignature, errors.Wrap(segErrs[0], "segment 1"))
	}
	h.segments = segments

	table, err := chunktable.New(h.opts.ResumeDirectory, h.opts.DiskIndexThreshold)
	if err != nil {
		p.CloseAll()
		return newError(KindIoOpen, err)
	}
	h.headerVals = header.NewValues()

	for i, idx := range segments {
		if idx == nil {
			h.readErrors = append(h.readErrors, ReadError{ChunkIndex: -1, Err: errors.Wrapf(segErrs[i], "segment %d unreadable", i+1)})
			continue
		}
		for _, e := range idx.Entries {
			if _, err := table.Append(e); err != nil {
				return newError(KindCorruptTable, err)
			}
		}
		mergeInto(&h.headerVals, idx.Header)
		if idx.Hashes != nil {
			h.hashes = idx.Hashes
		}
		for _, r := range idx.ErrorRanges {
			h.acquiryErrors = append(h.acquiryErrors, AcquiryError{FirstSector: r.FirstSector, SectorCount: r.SectorCount})
		}
		if segErrs[i] != nil {
			h.readErrors = append(h.readErrors, ReadError{ChunkIndex: -1, Err: errors.Wrapf(segErrs[i], "segment %d partially indexed", i+1)})
		}
	}
	h.table = table

	if first := segments[0]; first.Volume != nil {
		h.chunkCount = first.Volume.ChunkCount
		h.mediaSize = first.Volume.SectorCount * uint64(first.Volume.BytesPerSector)
		h.chunkSize = int(first.Volume.SectorsPerChunk) * int(first.Volume.BytesPerSector)
		h.guid = first.Volume.SegmentSetID
	}
	return nil
}

func mergeInto(dst *header.Values, src header.Values) {
	for k, v := range src.Fields {
		dst.Fields[k] = v
	}
	for k, v := range src.Extra {
		dst.Extra[k] = v
	}
}

func (h *Handle) openWrite(paths []string) error {
	if len(paths) != 1 {
		return newError(KindInvalidArgument, errors.New("ewfcore: write mode takes exactly one base path"))
	}
	base := paths[0]

	guid := h.opts.SegmentFileSetID
	if guid == ([16]byte{}) {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return newError(KindIoOpen, errors.Wrap(err, "generate segment set id"))
		}
		id := node.Generate().Bytes()
		copy(guid[:], id)
	}

	format := h.opts.Format
	pathFor := func(index uint16) string {
		ext, err := format.Extension(index)
		if err != nil {
			return base
		}
		return base + ext
	}
	p, err := pool.New(pathFor, func(uint16) pool.Mode { return pool.ModeReadWrite }, h.opts.OpenFileCap, true)
	if err != nil {
		return newError(KindIoOpen, err)
	}
	h.pool = p

	table, err := chunktable.New(h.opts.ResumeDirectory, h.opts.DiskIndexThreshold)
	if err != nil {
		p.CloseAll()
		return newError(KindIoOpen, err)
	}
	h.table = table

	var resumeState *segment.ResumeState

	if h.opts.ResumeDirectory != "" {
		store, err := resume.Open(h.opts.ResumeDirectory, filepath.Base(base))
		if err != nil {
			p.CloseAll()
			table.Close()
			return newError(KindIoOpen, err)
		}
		h.resumeStore = store

		ledger, err := resume.OpenLedger(filepath.Join(h.opts.ResumeDirectory, filepath.Base(base)+".ledger"))
		if err != nil {
			p.CloseAll()
			table.Close()
			store.Close()
			return newError(KindIoOpen, err)
		}
		h.resumeLedger = ledger

		cp, loadErr := store.Load()
		switch {
		case loadErr == nil:
			rs, recoveredGUID, rerr := h.tryResume(p, pathFor, cp, table)
			if rerr != nil {
				p.CloseAll()
				table.Close()
				store.Close()
				ledger.Close()
				return newError(KindIoOpen, rerr)
			}
			if rs != nil {
				resumeState = rs
				guid = recoveredGUID
				h.chunkCount = uint32(cp.ChunkIndex)
			} else {
				// Checkpoint present but could not be trusted against
				// what is actually on disk (missing segment, diverged
				// prefix digest, already-finalized chain) — fall back
				// to starting a fresh acquisition.
				_ = store.Clear()
			}
		case errors.Is(loadErr, resume.ErrNoCheckpoint):
			// nothing to resume from.
		default:
			p.CloseAll()
			table.Close()
			store.Close()
			ledger.Close()
			return newError(KindIoOpen, loadErr)
		}
	}

	h.guid = guid

	cfg := segment.WriterConfig{
		Format:           format,
		MaxSegmentSize:   h.opts.MaximumSegmentSize,
		SectorsPerChunk:  h.opts.SectorsPerChunk,
		BytesPerSector:   h.opts.BytesPerSector,
		CompressionLevel: h.opts.CompressionLevel,
		MediaType:        h.opts.MediaType,
		MediaFlags:       h.opts.MediaFlags,
		ErrorGranularity: h.opts.ErrorGranularitySectors,
		HeaderCodepage:   h.opts.codepage(),
		HeaderValues:     h.opts.HeaderValues,
		SegmentSetID:     guid,
		Resume:           resumeState,
	}
	w, err := segment.NewWriter(p, cfg, table)
	if err != nil {
		p.CloseAll()
		table.Close()
		if errors.Is(err, segment.ErrSegmentSizeExceedsFormatCap) {
			return newError(KindInvalidArgument, err)
		}
		return newError(KindIoOpen, err)
	}
	h.writer = w
	h.headerVals = h.opts.HeaderValues
	return nil
}

// tryResume re-indexes the segment files a prior, interrupted
// acquisition already wrote, cross-checks them against cp, and — only
// if everything still lines up — feeds their chunk-table entries into
// table and returns the ResumeState and segment set GUID a Writer
// needs to pick up where that acquisition left off. A nil ResumeState
// means the checkpoint could not be trusted against what is actually
// on disk; the caller falls back to starting a fresh acquisition
// rather than failing Open outright.
func (h *Handle) tryResume(p *pool.Pool, pathFor func(uint16) string, cp resume.Checkpoint, table *chunktable.Table) (*segment.ResumeState, [16]byte, error) {
	var zero [16]byte
	if cp.SegmentNumber == 0 {
		return nil, zero, nil
	}
	for i := uint16(1); i <= cp.SegmentNumber; i++ {
		if _, err := os.Stat(pathFor(i)); err != nil {
			return nil, zero, nil
		}
	}

	codepage := h.opts.codepage()
	var entries []chunktable.Entry
	var lastIdx *segment.Index
	var guid [16]byte
	for i := uint16(1); i <= cp.SegmentNumber; i++ {
		idx, err := segment.IndexSegment(p.Bind(i), i, codepage)
		if idx == nil {
			return nil, zero, nil
		}
		if err != nil && i < cp.SegmentNumber {
			// An earlier segment in the set should already be sealed
			// (terminal next/done); a broken chain there means real
			// corruption, not just mid-acquisition truncation.
			return nil, zero, nil
		}
		if i == 1 {
			if idx.Volume == nil {
				return nil, zero, nil
			}
			guid = idx.Volume.SegmentSetID
		}
		entries = append(entries, idx.Entries...)
		lastIdx = idx
	}
	if lastIdx.Terminal == segment.TerminalDone {
		// A previous Finalize already completed; nothing to resume.
		return nil, zero, nil
	}
	if lastIdx.ResumeOffset != cp.SegmentOffset {
		return nil, zero, nil
	}
	if len(entries) < cp.ChunkIndex {
		return nil, zero, nil
	}
	entries = entries[:cp.ChunkIndex]

	rawChunks := make([][]byte, len(entries))
	for i, e := range entries {
		raw, err := h.fetchAndDecode(e, 0)
		if err != nil {
			return nil, zero, nil
		}
		rawChunks[i] = raw
	}
	if !resume.VerifyPrefix(cp.PrefixDigest, rawChunks) {
		return nil, zero, nil
	}
	digest := resume.NewPrefixDigest()
	for _, raw := range rawChunks {
		digest.Write(raw)
	}

	for _, e := range entries {
		if _, err := table.Append(e); err != nil {
			return nil, zero, errors.Wrap(err, "ewfcore: restore resumed chunk table")
		}
	}
	h.prefixDigest = digest

	return &segment.ResumeState{
		SegmentNumber:     cp.SegmentNumber,
		SegmentOffset:     cp.SegmentOffset,
		ChunkCount:        uint32(cp.ChunkIndex),
		FirstVolumeOffset: cp.FirstVolumeOffset,
		MD5State:          cp.MD5State,
		SHA1State:         cp.SHA1State,
	}, guid, nil
}

// Read copies up to len(buf) bytes starting at the current offset,
// advancing it. It returns 0, nil at or past MediaSize. A checksum
// mismatch on an individual chunk does not abort the read: the chunk is
// recorded in ReadErrors and its bytes are zero-filled or surfaced as an
// error per Options.WipeChunkOnChecksumError/ZeroChunkOnReadError.
func (h *Handle) Read(buf []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode != ModeRead {
		return 0, newError(KindInvalidArgument, ErrWriteOnlyHandle)
	}
	if h.closed {
		return 0, newError(KindIoRead, pool.ErrClosed)
	}
	if h.currentOffset >= int64(h.mediaSize) {
		return 0, nil
	}

	total := 0
	for total < len(buf) && h.currentOffset < int64(h.mediaSize) {
		chunkIdx := int(h.currentOffset) / h.chunkSize
		inChunkOff := int(h.currentOffset) % h.chunkSize

		payload, rerr := h.readChunk(chunkIdx)
		n := copy(buf[total:], payload[inChunkOff:])
		total += n
		h.currentOffset += int64(n)
		if rerr != nil {
			return total, rerr
		}
	}
	return total, nil
}

func (h *Handle) readChunk(chunkIdx int) ([]byte, error) {
	if cached, ok := h.cache.Get(chunkIdx); ok {
		return cached, nil
	}

	entry, err := h.table.Get(chunkIdx)
	if err != nil {
		return nil, newError(KindCorruptTable, err).withChunk(chunkIdx)
	}

	// An entry whose table/table2 offsets could not be cross-validated
	// is presumptively corrupt regardless of whether the bytes sitting
	// at its (possibly wrong) offset happen to pass their own embedded
	// checksum — surface or wipe it the same as a genuine mismatch.
	if !entry.ChecksumKnown {
		h.readErrors = append(h.readErrors, ReadError{ChunkIndex: chunkIdx, Err: codec.ErrChecksumMismatch})
		if h.opts.WipeChunkOnChecksumError {
			return make([]byte, h.chunkSize), nil
		}
		return make([]byte, h.chunkSize), newError(KindBadChecksumChunk, codec.ErrChecksumMismatch).withChunk(chunkIdx)
	}

	raw, decodeErr := h.fetchAndDecode(entry, chunkIdx)
	if decodeErr != nil {
		h.readErrors = append(h.readErrors, ReadError{ChunkIndex: chunkIdx, Err: decodeErr})

		// zero_chunk_on_read_error governs persistent I/O failures;
		// wipe_chunk_on_checksum_error governs checksum mismatches —
		// distinct configuration knobs for distinct failure modes.
		isChecksumFailure := errors.Is(decodeErr, codec.ErrChecksumMismatch)
		swallow := isChecksumFailure && h.opts.WipeChunkOnChecksumError
		swallow = swallow || (!isChecksumFailure && h.opts.ZeroChunkOnReadError)
		if !swallow {
			kind := KindIoRead
			if isChecksumFailure {
				kind = KindBadChecksumChunk
			}
			return raw, newError(kind, decodeErr).withChunk(chunkIdx)
		}
		return raw, nil
	}

	h.cache.Put(chunkIdx, raw)
	return raw, nil
}

func (h *Handle) fetchAndDecode(entry chunktable.Entry, chunkIdx int) ([]byte, error) {
	stored := make([]byte, entry.StoredSize)
	if _, err := h.readAtWithRetry(entry.Segment, stored, int64(entry.Offset)); err != nil {
		return make([]byte, h.chunkSize), err
	}

	payload := stored[:len(stored)-4]
	wantSum := binary.LittleEndian.Uint32(stored[len(stored)-4:])
	gotSum := codec.Checksum(payload)
	if gotSum != wantSum {
		return make([]byte, h.chunkSize), codec.ErrChecksumMismatch
	}

	if !entry.Compressed {
		return append([]byte(nil), payload...), nil
	}
	out, err := codec.Decompress(payload, h.chunkSize)
	if err != nil {
		return make([]byte, h.chunkSize), err
	}
	return out, nil
}

func (h *Handle) readAtWithRetry(segmentNum uint16, buf []byte, off int64) (int, error) {
	var lastErr error
	retries := h.opts.ReadErrorRetries
	if retries < 0 {
		retries = 0
	}
	for attempt := 0; attempt <= retries; attempt++ {
		n, err := h.pool.ReadAt(segmentNum, buf, off)
		if err == nil {
			return n, nil
		}
		lastErr = err
	}
	return 0, newError(KindIoRead, lastErr).withSegment(segmentNum).withOffset(off)
}

// Write buffers bytes until a whole chunk's worth is available, then
// encodes and emits it. A partial final chunk is held until Finalize.
// Header values can no longer be changed once the first byte has been
// written.
func (h *Handle) Write(buf []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode != ModeWrite {
		return 0, newError(KindInvalidArgument, ErrReadOnlyHandle)
	}
	if h.finalized {
		return 0, newError(KindInvalidArgument, ErrWriteAfterFinalize)
	}
	if h.writer == nil {
		return 0, newError(KindIoWrite, pool.ErrClosed)
	}

	h.firstWritten = true
	h.writeBuf = append(h.writeBuf, buf...)

	for len(h.writeBuf) >= h.chunkSize {
		chunk := h.writeBuf[:h.chunkSize]

		if h.resumeStore != nil && h.prefixDigest == nil {
			h.prefixDigest = resume.NewPrefixDigest()
		}
		var digestBefore uint64
		if h.prefixDigest != nil {
			digestBefore = h.prefixDigest.Sum()
		}

		if err := h.writer.WriteChunk(chunk); err != nil {
			return len(buf), newError(KindIoWrite, err)
		}
		h.chunkCount++

		if h.resumeStore != nil {
			h.prefixDigest.Write(chunk)
			digestAfter := h.prefixDigest.Sum()

			// FlushBoundary only reports the state as of the writer's most
			// recent table/table2 flush — the one point a resumed process
			// can pick back up from, since chunk-table entries for bytes
			// written since then only exist in the writer's in-memory
			// pending list.
			segNum, offset, cc, md5State, sha1State, ok := h.writer.FlushBoundary()
			if ok && cc > h.lastCheckpointedChunk {
				// ensureRoom flushes before appending the triggering chunk
				// (cc == chunkCount-1); the MaxEntriesPerTable cap flushes
				// after (cc == chunkCount). Pick the digest snapshot that
				// matches whichever boundary actually happened.
				digest := digestBefore
				if cc == h.chunkCount {
					digest = digestAfter
				}
				_ = h.resumeStore.Save(resume.Checkpoint{
					ChunkIndex:        int(cc),
					SegmentNumber:     segNum,
					SegmentOffset:     offset,
					FirstVolumeOffset: h.writer.FirstVolumeOffset(),
					MD5State:          md5State,
					SHA1State:         sha1State,
					PrefixDigest:      digest,
				})
				h.lastCheckpointedChunk = cc
			}
		}
		h.writeBuf = h.writeBuf[h.chunkSize:]
	}
	return len(buf), nil
}

// Seek updates the current logical offset; it does not touch the pool.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = h.currentOffset
	case io.SeekEnd:
		base = int64(h.mediaSize)
	default:
		return h.currentOffset, newError(KindInvalidArgument, ErrNegativeSeek)
	}
	next := base + offset
	if next < 0 {
		return h.currentOffset, newError(KindInvalidArgument, ErrNegativeSeek)
	}
	h.currentOffset = next
	return h.currentOffset, nil
}

// Finalize flushes any partial final chunk (zero-padded to chunk size,
// since every stored chunk decodes back to a fixed chunkSize), emits
// the trailer sections, and back-patches the segment set's definitive
// geometry. No further writes are accepted afterward.
func (h *Handle) Finalize() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode != ModeWrite {
		return 0, newError(KindInvalidArgument, ErrReadOnlyHandle)
	}
	if len(h.writeBuf) > 0 {
		padded := make([]byte, h.chunkSize)
		copy(padded, h.writeBuf)
		if err := h.writer.WriteChunk(padded); err != nil {
			return 0, newError(KindIoWrite, err)
		}
		h.chunkCount++
		h.writeBuf = nil
	}

	if len(h.acquiryErrors) > 0 {
		ranges := make([]segment.ErrorRange, len(h.acquiryErrors))
		for i, e := range h.acquiryErrors {
			ranges[i] = segment.ErrorRange{FirstSector: e.FirstSector, SectorCount: e.SectorCount}
		}
		h.writer.SetErrorRanges(ranges)
	}

	if err := h.writer.Finalize(); err != nil {
		return 0, newError(KindIoWrite, err)
	}
	hashes := h.writer.Hashes()
	h.hashes = &hashes
	h.finalized = true

	if h.resumeStore != nil {
		_ = h.resumeStore.Clear()
	}

	return int64(h.chunkCount) * int64(h.chunkSize), nil
}

// Close tears down the pool, cache, table, and any resume store/ledger.
// The handle must not be used afterward.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var firstErr error
	if h.pool != nil {
		if err := h.pool.CloseAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.table != nil {
		if err := h.table.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.resumeStore != nil {
		if err := h.resumeStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.resumeLedger != nil {
		if err := h.resumeLedger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.cache.Purge()
	return firstErr
}

// Abort tears down the handle the same way Close does but additionally
// purges the chunk cache first and discards any partially buffered
// write, reflecting the cooperative-abort contract: the current chunk
// loop iteration is allowed to complete (so on-disk state stays
// well-formed) and no further writes are accepted.
func (h *Handle) Abort() error {
	h.mu.Lock()
	h.writeBuf = nil
	h.mu.Unlock()
	return h.Close()
}

// --- metadata accessors ---

func (h *Handle) MediaSize() uint64       { return h.mediaSize }
func (h *Handle) ChunkSize() int          { return h.chunkSize }
func (h *Handle) SectorsPerChunk() uint32 { return h.opts.SectorsPerChunk }
func (h *Handle) BytesPerSector() uint32  { return h.opts.BytesPerSector }
func (h *Handle) ChunkCount() uint32      { return h.chunkCount }
func (h *Handle) Format() segment.Format  { return h.opts.Format }
func (h *Handle) GUID() [16]byte          { return h.guid }

// Hashes returns the final MD5/SHA-1 digest pair, if one has been read
// from a finalized segment set (read mode) or computed by Finalize
// (write mode, not yet reflected back into the Handle since the writer
// holds it internally until Finalize succeeds).
func (h *Handle) Hashes() *header.Hashes { return h.hashes }

// HeaderValue returns a known case-metadata field's value by tag (see
// package header's Field* constants).
func (h *Handle) HeaderValue(tag string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.headerVals.Get(tag)
}

// SetHeaderValue assigns a known case-metadata field. Rejected once any
// Write call has been made (even one shorter than a chunk), matching
// the external interface's
// "setters mirror getters but are rejected after the first chunk
// write."
func (h *Handle) SetHeaderValue(tag, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.firstWritten {
		return newError(KindInvalidArgument, ErrWriteAfterFinalize)
	}
	h.headerVals.Set(tag, value)
	return nil
}

// AcquiryErrors returns the sector ranges the source media failed to
// deliver during acquisition, in chunk-index order.
func (h *Handle) AcquiryErrors() []AcquiryError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]AcquiryError(nil), h.acquiryErrors...)
}

// ReadErrors returns every chunk a read-back failed a checksum or I/O
// check on, in the order encountered.
func (h *Handle) ReadErrors() []ReadError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ReadError(nil), h.readErrors...)
}

// RecordAcquiryError appends one unreadable-sector-range observation, as
// an acquisition front end would report a source-media read failure
// during imaging. It is persisted to the resume ledger when one is
// configured.
func (h *Handle) RecordAcquiryError(firstSector, sectorCount uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.acquiryErrors = append(h.acquiryErrors, AcquiryError{FirstSector: firstSector, SectorCount: sectorCount})
	if h.resumeLedger != nil {
		_ = h.resumeLedger.RecordError(resume.KindAcquiry, segment.ErrorRange{FirstSector: firstSector, SectorCount: sectorCount})
	}
}
