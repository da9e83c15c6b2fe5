package segment

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/dfirgo/ewfcore/chunktable"
	"github.com/dfirgo/ewfcore/header"
	"github.com/dfirgo/ewfcore/section"
)

// ErrBadSignature reports a segment file whose first 8 bytes match
// neither the EWF nor EWF-S signature.
var ErrBadSignature = errors.New("segment: bad file signature")

// ErrFormatMismatch reports a segment file whose signature or
// declared segment number is inconsistent with the rest of the set.
var ErrFormatMismatch = errors.New("segment: format mismatch across segment set")

// TerminalKind distinguishes the two ways a segment file's section
// chain can end.
type TerminalKind int

const (
	TerminalNone TerminalKind = iota
	TerminalNext
	TerminalDone
)

// Index is everything absorbed from walking one segment file's section
// chain: its geometry, case metadata, integrity hashes, acquiry error
// and session records, and the chunk-table entries it contributed.
type Index struct {
	SegmentNumber uint16
	Smart         bool
	Volume        *Volume
	Header        header.Values
	Hashes        *header.Hashes
	ErrorRanges   []ErrorRange
	Sessions      []SessionEntry
	Entries       []chunktable.Entry
	Terminal      TerminalKind

	// ResumeOffset is the absolute offset of the section chain's cursor
	// at the point indexing stopped — the last offset known to be a
	// clean section boundary. For a segment whose chain ended cleanly
	// (Terminal != TerminalNone) it is the terminal section's own
	// offset; for one that broke off mid-chain (truncated or corrupt
	// write) it is the offset just past the last section read in full,
	// the safe point to resume writing from.
	ResumeOffset int64
}

// IndexSegment walks one segment file's section chain from the start,
// absorbing every section into an Index. Malformed sections are fatal
// to indexing this one segment but the caller decides whether sibling
// segments remain usable (per the design note that structural
// corruption in one segment's indexing does not poison others).
func IndexSegment(r section.ReaderAt, expectedNumber uint16, cp header.Codepage) (*Index, error) {
	fileHeader := make([]byte, FileHeaderSize)
	if _, err := r.ReadAt(fileHeader, 0); err != nil {
		return nil, errors.Wrap(err, "segment: read file header")
	}

	smart, ok := DetectSignature(fileHeader[0:8])
	if !ok {
		return nil, ErrBadSignature
	}
	gotNumber := binary.LittleEndian.Uint16(fileHeader[9:11])
	if gotNumber != expectedNumber {
		return nil, errors.Wrapf(ErrFormatMismatch, "segment number %d in file, %d expected", gotNumber, expectedNumber)
	}

	idx := &Index{SegmentNumber: expectedNumber, Smart: smart, Header: header.NewValues()}

	var sectorsOffset int64
	var sectorsSize uint64
	var pendingTableEntries []chunktable.Entry
	var tableValid bool

	cur := section.NewCursor(r, FileHeaderSize)
	for {
		hdr, payloadOffset, done, err := cur.Next()
		if err != nil {
			idx.ResumeOffset = cur.Offset()
			return idx, errors.Wrapf(err, "segment %d: read section at offset %d", expectedNumber, cur.Offset())
		}

		var payload []byte
		if size := hdr.PayloadSize(); size > 0 {
			payload = make([]byte, size)
			if _, err := r.ReadAt(payload, payloadOffset); err != nil {
				idx.ResumeOffset = payloadOffset - section.HeaderSize
				return idx, errors.Wrapf(err, "segment %d: read %s payload", expectedNumber, hdr.Type)
			}
		}

		switch hdr.Type {
		case section.TagHeader:
			v, err := header.Decode(payload, cp)
			if err == nil {
				mergeHeaderValues(&idx.Header, v)
			}
		case section.TagHeader2:
			v, err := header.Decode(payload, header.UTF16LE)
			if err == nil {
				mergeHeaderValues(&idx.Header, v)
			}
		case section.TagXHeader:
			v, err := header.Decode(payload, header.UTF8)
			if err == nil {
				mergeHeaderValues(&idx.Header, v)
			}
		case section.TagVolume, section.TagDisk:
			v, err := DecodeVolume(payload)
			if err != nil {
				return idx, errors.Wrapf(err, "segment %d: decode volume", expectedNumber)
			}
			idx.Volume = &v
		case section.TagData:
			v, err := DecodeVolume(payload)
			if err == nil && idx.Volume != nil && v != *idx.Volume {
				return idx, errors.Wrapf(ErrFormatMismatch, "segment %d: data section disagrees with volume", expectedNumber)
			}
		case section.TagSectors:
			sectorsOffset = payloadOffset
			sectorsSize = uint64(hdr.PayloadSize())
		case section.TagTable:
			dt, err := chunktable.DecodePayload(payload)
			if err == nil {
				pendingTableEntries = chunktable.EntriesFromDecoded(dt, expectedNumber, sectorsSize, dt.Valid())
				tableValid = dt.Valid()
			}
		case section.TagTable2:
			dt, err := chunktable.DecodePayload(payload)
			if err == nil && (!tableValid || pendingTableEntries == nil) {
				pendingTableEntries = chunktable.EntriesFromDecoded(dt, expectedNumber, sectorsSize, dt.Valid())
			}
			if pendingTableEntries != nil {
				idx.Entries = append(idx.Entries, pendingTableEntries...)
				pendingTableEntries = nil
			}
		case section.TagDigest, section.TagHash:
			h, err := header.DecodeHashes(payload)
			if err == nil {
				idx.Hashes = &h
			}
		case section.TagError2:
			ranges, err := DecodeErrorRanges(payload)
			if err == nil {
				idx.ErrorRanges = ranges
			}
		case section.TagSession:
			sessions, err := DecodeSessions(payload)
			if err == nil {
				idx.Sessions = sessions
			}
		case section.TagNext:
			idx.Terminal = TerminalNext
		case section.TagDone:
			idx.Terminal = TerminalDone
		}

		if done {
			break
		}
	}

	// A table section with no accompanying table2 still contributes its
	// entries once the chain ends.
	if pendingTableEntries != nil {
		idx.Entries = append(idx.Entries, pendingTableEntries...)
	}
	idx.ResumeOffset = cur.Offset()
	_ = sectorsOffset // retained for callers that want the sectors payload location
	return idx, nil
}

func mergeHeaderValues(dst *header.Values, src header.Values) {
	for k, v := range src.Fields {
		dst.Fields[k] = v
	}
	for k, v := range src.Extra {
		dst.Extra[k] = v
	}
}
