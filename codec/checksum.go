// Package codec implements the per-chunk compression and checksum
// discipline described by the chunked storage engine: an optional
// DEFLATE pass over raw chunk bytes followed by a 4-byte trailing
// checksum, and the Adler-32-style checksum used to guard section
// headers and table payloads.
package codec

import (
	"hash/adler32"

	"github.com/pkg/errors"
)

// ErrChecksumMismatch reports a trailing checksum that does not match
// the bytes it guards, wherever Checksum is used to validate on-disk
// data (chunk payloads, hash/digest sections, and so on).
var ErrChecksumMismatch = errors.New("codec: checksum mismatch")

// Checksum computes the Adler-32-style checksum used throughout the
// segment-file format: section headers, table/table2 payloads, and the
// trailing checksum appended to every stored chunk all use the same
// algorithm over different byte ranges.
func Checksum(b []byte) uint32 {
	return adler32.Checksum(b)
}
