package resume_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/resume"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := resume.Open(dir, "case-100")
	require.NoError(t, err)
	defer s.Close()

	cp := resume.Checkpoint{
		ChunkIndex:    42,
		SegmentNumber: 3,
		SegmentOffset: 1024,
		MD5State:      []byte{1, 2, 3},
		SHA1State:     []byte{4, 5, 6},
		PrefixDigest:  0xdeadbeef,
	}
	require.NoError(t, s.Save(cp))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, cp, got)
}

func TestStoreLoadEmptyReturnsErrNoCheckpoint(t *testing.T) {
	dir := t.TempDir()
	s, err := resume.Open(dir, "case-100")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load()
	assert.ErrorIs(t, err, resume.ErrNoCheckpoint)
}

func TestStoreClear(t *testing.T) {
	dir := t.TempDir()
	s, err := resume.Open(dir, "case-100")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(resume.Checkpoint{ChunkIndex: 1}))
	require.NoError(t, s.Clear())

	_, err = s.Load()
	assert.ErrorIs(t, err, resume.ErrNoCheckpoint)
}

func TestStoreReopenPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := resume.Open(dir, "case-100")
	require.NoError(t, err)
	require.NoError(t, s.Save(resume.Checkpoint{ChunkIndex: 7}))
	require.NoError(t, s.Close())

	s2, err := resume.Open(dir, "case-100")
	require.NoError(t, err)
	defer s2.Close()

	cp, err := s2.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cp.ChunkIndex)
}
