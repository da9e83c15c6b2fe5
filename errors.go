package ewfcore

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Kind classifies a Handle-level failure the way the component-level
// sentinel errors (codec.ErrChecksumMismatch, section.ErrBadChecksum,
// pool.ErrClosed, and so on) cannot on their own, since those are
// already wrapped in file/offset/chunk context by the time they reach
// a caller of this package.
type Kind int

const (
	KindIoRead Kind = iota
	KindIoWrite
	KindIoSeek
	KindIoOpen
	KindIoClose
	KindBadSignature
	KindBadChecksumSection
	KindBadChecksumChunk
	KindBadChecksumTable
	KindCorruptSection
	KindCorruptTable
	KindCorruptGeometry
	KindFormatUnsupported
	KindFormatMismatch
	KindInvalidArgument
	KindOverflow
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindIoRead:
		return "io-read"
	case KindIoWrite:
		return "io-write"
	case KindIoSeek:
		return "io-seek"
	case KindIoOpen:
		return "io-open"
	case KindIoClose:
		return "io-close"
	case KindBadSignature:
		return "bad-signature"
	case KindBadChecksumSection:
		return "bad-checksum-section"
	case KindBadChecksumChunk:
		return "bad-checksum-chunk"
	case KindBadChecksumTable:
		return "bad-checksum-table"
	case KindCorruptSection:
		return "corrupt-section"
	case KindCorruptTable:
		return "corrupt-table"
	case KindCorruptGeometry:
		return "corrupt-geometry"
	case KindFormatUnsupported:
		return "format-unsupported"
	case KindFormatMismatch:
		return "format-mismatch"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindOverflow:
		return "overflow"
	case KindAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Error is the public error type every Handle operation returns on
// failure. It carries the Kind taxonomy from the error handling design
// plus whatever logical context (segment number, chunk index, byte
// offset) was available where the failure was first classified; the
// underlying cause, if any, is preserved for errors.Unwrap/errors.Is.
type Error struct {
	Kind          Kind
	SegmentNumber uint16
	ChunkIndex    int
	Offset        int64
	cause         error
}

func (e *Error) Error() string {
	msg := "ewfcore: " + e.Kind.String()
	if e.SegmentNumber != 0 {
		msg += fmt.Sprintf(", segment %d", e.SegmentNumber)
	}
	if e.ChunkIndex != 0 {
		msg += fmt.Sprintf(", chunk %d", e.ChunkIndex)
	}
	if e.Offset != 0 {
		msg += fmt.Sprintf(", offset %s", humanize.Bytes(uint64(e.Offset)))
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// newError builds an *Error of the given kind wrapping cause, with no
// extra context — callers chain withSegment/withChunk/withOffset to add
// it.
func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) withSegment(n uint16) *Error {
	e.SegmentNumber = n
	return e
}

func (e *Error) withChunk(idx int) *Error {
	e.ChunkIndex = idx
	return e
}

func (e *Error) withOffset(off int64) *Error {
	e.Offset = off
	return e
}

// Sentinel errors for InvalidArgument-class misuse, checked with
// errors.Is at call sites.
var (
	ErrWriteAfterFinalize = errors.New("ewfcore: write after finalize")
	ErrNegativeSeek       = errors.New("ewfcore: negative seek offset")
	ErrReadOnlyHandle     = errors.New("ewfcore: operation not valid on a read-mode handle")
	ErrWriteOnlyHandle    = errors.New("ewfcore: operation not valid on a write-mode handle")
	ErrNoSegments         = errors.New("ewfcore: no segment paths given")
)
