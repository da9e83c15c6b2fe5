package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/segment"
)

func TestClassicExtensionLowRange(t *testing.T) {
	ext, err := segment.FormatEWF.Extension(1)
	require.NoError(t, err)
	assert.Equal(t, ".E01", ext)

	ext, err = segment.FormatEWF.Extension(99)
	require.NoError(t, err)
	assert.Equal(t, ".E99", ext)
}

func TestClassicExtensionLetterRange(t *testing.T) {
	ext, err := segment.FormatEWF.Extension(100)
	require.NoError(t, err)
	assert.Equal(t, ".EAA", ext)

	ext, err = segment.FormatEWF.Extension(101)
	require.NoError(t, err)
	assert.Equal(t, ".EAB", ext)

	ext, err = segment.FormatEWF.Extension(100 + 26)
	require.NoError(t, err)
	assert.Equal(t, ".EBA", ext)
}

func TestSmartExtension(t *testing.T) {
	ext, err := segment.FormatSMART.Extension(1)
	require.NoError(t, err)
	assert.Equal(t, ".s01", ext)

	ext, err = segment.FormatSMART.Extension(100)
	require.NoError(t, err)
	assert.Equal(t, ".saa", ext)
}

func TestExtensionRejectsZero(t *testing.T) {
	_, err := segment.FormatEWF.Extension(0)
	assert.Error(t, err)
}
