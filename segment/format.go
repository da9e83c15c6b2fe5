// Package segment implements segment file layout: the 13-byte file
// header, the format-variant table that governs naming and section
// choices, the volume/disk geometry record, and the reader/writer state
// machines that walk or emit a segment file's section chain.
package segment

import (
	"bytes"

	"github.com/pkg/errors"
)

// Format selects the acquisition-tool variant a handle reads or writes,
// governing which optional sections (header2, xheader) are emitted and
// how segment file extensions are chosen.
type Format int

const (
	FormatEWF Format = iota
	FormatSMART
	FormatFTK
	FormatEnCase1
	FormatEnCase2
	FormatEnCase3
	FormatEnCase4
	FormatEnCase5
	FormatEnCase6
	FormatLinen5
	FormatLinen6
	FormatEWFX
)

// FileHeaderSize is the fixed size of the signature + fields-start +
// segment number + end-of-fields preamble at the start of every
// segment file.
const FileHeaderSize = 13

// SignatureEWF and SignatureSMART are the two recognized 8-byte segment
// file signatures; anything else is FormatMismatch/BadSignature.
var (
	SignatureEWF   = [8]byte{0x45, 0x56, 0x46, 0x09, 0x0D, 0x0A, 0xFF, 0x00}
	SignatureSMART = [8]byte{0x45, 0x56, 0x46, 0x2D, 0x53, 0x4D, 0x41, 0x52}
)

// fieldsStart is the constant marker byte following the 8-byte
// signature in every segment file header.
const fieldsStart = 0x01

// variantSpec captures what differs between format variants: which
// signature its segment files carry, whether it emits the legacy
// header section, the UTF-16 header2 section, the UTF-8 xheader
// section, and whether it permits 64-bit segment sizes.
type variantSpec struct {
	signature     [8]byte
	smartNaming   bool
	emitHeader    bool
	emitHeader2   bool
	emitXHeader   bool
	wideSegments  bool
}

var variants = map[Format]variantSpec{
	FormatEWF:     {signature: SignatureEWF, emitHeader: true},
	FormatSMART:   {signature: SignatureSMART, smartNaming: true, emitHeader: true},
	FormatFTK:     {signature: SignatureEWF, emitHeader: true},
	FormatEnCase1: {signature: SignatureEWF, emitHeader: true},
	FormatEnCase2: {signature: SignatureEWF, emitHeader: true},
	FormatEnCase3: {signature: SignatureEWF, emitHeader: true},
	FormatEnCase4: {signature: SignatureEWF, emitHeader: true},
	FormatEnCase5: {signature: SignatureEWF, emitHeader: true, emitHeader2: true},
	FormatEnCase6: {signature: SignatureEWF, emitHeader: true, emitHeader2: true, wideSegments: true},
	FormatLinen5:  {signature: SignatureEWF, emitHeader: true, emitHeader2: true},
	FormatLinen6:  {signature: SignatureEWF, emitHeader: true, emitHeader2: true},
	FormatEWFX:    {signature: SignatureEWF, emitHeader: true, emitXHeader: true, wideSegments: true},
}

// spec returns the variantSpec for a format, defaulting to the plain
// EWF variant's spec for any unrecognized value rather than panicking.
func (f Format) spec() variantSpec {
	if s, ok := variants[f]; ok {
		return s
	}
	return variants[FormatEWF]
}

// Signature returns the 8-byte segment file signature this format
// writes and expects to read.
func (f Format) Signature() [8]byte { return f.spec().signature }

// SmartNaming reports whether segment files use the lowercase
// ".s01"-style extension sequence instead of ".E01".
func (f Format) SmartNaming() bool { return f.spec().smartNaming }

// EmitsHeader2 reports whether this format writes the UTF-16 header2
// section alongside the legacy header section.
func (f Format) EmitsHeader2() bool { return f.spec().emitHeader2 }

// EmitsXHeader reports whether this format writes the UTF-8 xheader
// section after the legacy header section, in place of header2.
func (f Format) EmitsXHeader() bool { return f.spec().emitXHeader }

// WideSegments reports whether this format permits segment sizes beyond
// the 32-bit cap other variants are limited to.
func (f Format) WideSegments() bool { return f.spec().wideSegments }

// MaxSegmentSize32 is the largest segment size in bytes a
// non-WideSegments format may use.
const MaxSegmentSize32 = 1<<31 - 1

// MaxSegmentSize64 is the largest segment size in bytes a WideSegments
// format (EnCase 6, EWFX) may use.
const MaxSegmentSize64 = 1<<63 - 1

// MaxSegmentSize returns the segment-size cap this format permits:
// MaxSegmentSize64 for a WideSegments variant, MaxSegmentSize32
// otherwise.
func (f Format) MaxSegmentSize() int64 {
	if f.WideSegments() {
		return MaxSegmentSize64
	}
	return MaxSegmentSize32
}

// ErrSegmentSizeExceedsFormatCap reports a configured maximum segment
// size larger than what the chosen format variant permits.
var ErrSegmentSizeExceedsFormatCap = errors.New("segment: maximum segment size exceeds format cap")

// DetectSignature identifies which format family a segment file's
// first 8 bytes belong to. ok is false if neither signature matches;
// otherwise smart reports whether the SMART (EWF-S) signature matched
// rather than the EWF one.
func DetectSignature(first8 []byte) (smart bool, ok bool) {
	if bytes.Equal(first8, SignatureEWF[:]) {
		return false, true
	}
	if bytes.Equal(first8, SignatureSMART[:]) {
		return true, true
	}
	return false, false
}
