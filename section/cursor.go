package section

import "github.com/pkg/errors"

// ReaderAt is the minimal capability the cursor needs from a segment
// file. pool.Bound (from Pool.Bind on a single file index) satisfies it.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Cursor walks the next-offset chain of a single segment file one
// section at a time. It intentionally never builds an in-memory graph
// of sections — per the design note, the chain is modeled as iterator
// state (current offset) over a flat byte array, nothing more.
type Cursor struct {
	r      ReaderAt
	offset int64
	done   bool
}

// NewCursor starts a cursor at the first section of a segment file,
// i.e. immediately after the 13-byte file header.
func NewCursor(r ReaderAt, firstSectionOffset int64) *Cursor {
	return &Cursor{r: r, offset: firstSectionOffset}
}

// Offset returns the absolute offset of the section the cursor is
// currently positioned at (valid only until the next call to Next).
func (c *Cursor) Offset() int64 { return c.offset }

// Next decodes the section at the cursor's current position, advances
// to the next section in the chain, and returns the decoded header plus
// the absolute offset its payload starts at. It returns io.EOF-like
// done=true once a terminal section (next/done) has been returned.
func (c *Cursor) Next() (hdr Header, payloadOffset int64, done bool, err error) {
	if c.done {
		return Header{}, 0, true, errors.New("section: cursor already terminated")
	}

	buf := make([]byte, HeaderSize)
	if _, err := c.r.ReadAt(buf, c.offset); err != nil {
		return Header{}, 0, false, errors.Wrapf(err, "section: read header at offset %d", c.offset)
	}
	hdr, decErr := Decode(buf)
	payloadOffset = c.offset + HeaderSize

	terminal := hdr.IsTerminal(c.offset) || hdr.Type == TagNext || hdr.Type == TagDone
	if terminal {
		c.done = true
		return hdr, payloadOffset, true, decErr
	}
	if hdr.NextOffset <= uint64(c.offset) {
		c.done = true
		return hdr, payloadOffset, true, errors.Errorf("section: non-increasing next-offset at %d", c.offset)
	}
	c.offset = int64(hdr.NextOffset)
	return hdr, payloadOffset, false, decErr
}
