package section_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/section"
)

type memFile struct {
	data []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memFile) append(tag string, payload []byte) int64 {
	selfOffset := int64(len(m.data))
	size := uint64(section.HeaderSize) + uint64(len(payload))
	next := uint64(selfOffset) + size
	hdr := section.Encode(tag, next, size)
	m.data = append(m.data, hdr...)
	m.data = append(m.data, payload...)
	return selfOffset
}

func (m *memFile) appendTerminal(tag string) int64 {
	selfOffset := int64(len(m.data))
	hdr := section.Encode(tag, uint64(selfOffset), section.HeaderSize)
	m.data = append(m.data, hdr...)
	return selfOffset
}

func TestCursorWalksChain(t *testing.T) {
	f := &memFile{}
	f.append(section.TagHeader, []byte("header payload"))
	f.append(section.TagVolume, []byte("volume payload bytes"))
	f.appendTerminal(section.TagDone)

	c := section.NewCursor(f, 0)

	hdr, _, done, err := c.Next()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, section.TagHeader, hdr.Type)

	hdr, _, done, err = c.Next()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, section.TagVolume, hdr.Type)

	hdr, _, done, err = c.Next()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, section.TagDone, hdr.Type)
}

func TestCursorReturnsErrorAfterTermination(t *testing.T) {
	f := &memFile{}
	f.appendTerminal(section.TagDone)

	c := section.NewCursor(f, 0)
	_, _, done, err := c.Next()
	require.NoError(t, err)
	require.True(t, done)

	_, _, _, err = c.Next()
	assert.Error(t, err)
}

func TestCursorDetectsNonIncreasingOffset(t *testing.T) {
	f := &memFile{}
	f.append(section.TagHeader, []byte("first"))
	// A second section whose next-offset points backward into the
	// first: neither terminal nor increasing.
	hdr := section.Encode(section.TagVolume, 0, section.HeaderSize)
	f.data = append(f.data, hdr...)

	c := section.NewCursor(f, 0)
	_, _, done, err := c.Next()
	require.NoError(t, err)
	require.False(t, done)

	_, _, done, err = c.Next()
	assert.True(t, done)
	assert.Error(t, err)
}
