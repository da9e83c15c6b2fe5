package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// Level selects the per-chunk compression strategy. It mirrors the
// handle configuration's compression_level option.
type Level int

const (
	// LevelNone stores every chunk raw.
	LevelNone Level = iota
	// LevelEmptyBlockOnly compresses only chunks that are entirely
	// zero-filled; every other chunk is stored raw.
	LevelEmptyBlockOnly
	// LevelFast uses DEFLATE at its fastest setting.
	LevelFast
	// LevelBest uses DEFLATE at its best-ratio setting.
	LevelBest
)

// MaxCompressedSize returns the classical DEFLATE worst-case upper bound
// for a chunk of the given raw size, per the compression-buffer-sizing
// design note: chunkSize + chunkSize/1000 + 12.
func MaxCompressedSize(chunkSize int) int {
	return chunkSize + chunkSize/1000 + 12
}

func flateLevel(l Level) int {
	switch l {
	case LevelFast:
		return flate.BestSpeed
	case LevelBest:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

// Compress applies the configured per-chunk compression decision. It
// returns the bytes that should be stored and whether they are
// compressed. When level is LevelNone, or the compressed form is not
// strictly smaller than raw, the raw bytes are returned and compressed
// is false — the caller must leave the chunk table's compression flag
// clear in that case. LevelEmptyBlockOnly returns non-zero chunks raw
// and all-zero chunks compressed, without the size comparison.
func Compress(level Level, raw []byte) (out []byte, compressed bool, err error) {
	if level == LevelNone {
		return raw, false, nil
	}
	if level == LevelEmptyBlockOnly && !isAllZero(raw) {
		return raw, false, nil
	}

	buf := bytebufferpool.Get()
	buf.Reset()
	defer bytebufferpool.Put(buf)

	w, err := flate.NewWriter(buf, flateLevel(level))
	if err != nil {
		return nil, false, errors.Wrap(err, "codec: open deflate writer")
	}
	if _, err := w.Write(raw); err != nil {
		return nil, false, errors.Wrap(err, "codec: deflate write")
	}
	if err := w.Close(); err != nil {
		return nil, false, errors.Wrap(err, "codec: deflate close")
	}

	if level != LevelEmptyBlockOnly && buf.Len() >= len(raw) {
		return raw, false, nil
	}
	// buf returns to the pool on defer, so the compressed bytes must be
	// copied out rather than handed back by reference.
	out = append(out, buf.B...)
	return out, true, nil
}

// Decompress inflates a stored chunk payload known to be exactly
// chunkSize bytes once decompressed.
func Decompress(stored []byte, chunkSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(stored))
	defer r.Close()

	out := make([]byte, chunkSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "codec: inflate")
	}
	return out[:n], nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
