package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfirgo/ewfcore/segment"
)

func TestDetectSignature(t *testing.T) {
	smart, ok := segment.DetectSignature(segment.SignatureEWF[:])
	assert.True(t, ok)
	assert.False(t, smart)

	smart, ok = segment.DetectSignature(segment.SignatureSMART[:])
	assert.True(t, ok)
	assert.True(t, smart)

	_, ok = segment.DetectSignature([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	assert.False(t, ok)
}

func TestFormatProperties(t *testing.T) {
	assert.True(t, segment.FormatEnCase6.EmitsHeader2())
	assert.True(t, segment.FormatEWFX.EmitsXHeader())
	assert.True(t, segment.FormatEWFX.WideSegments())
	assert.True(t, segment.FormatEnCase6.WideSegments())
	assert.False(t, segment.FormatEWF.WideSegments())
	assert.True(t, segment.FormatSMART.SmartNaming())
}

func TestMaxSegmentSizeByFormat(t *testing.T) {
	assert.EqualValues(t, segment.MaxSegmentSize32, segment.FormatEWF.MaxSegmentSize())
	assert.EqualValues(t, segment.MaxSegmentSize64, segment.FormatEnCase6.MaxSegmentSize())
	assert.EqualValues(t, segment.MaxSegmentSize64, segment.FormatEWFX.MaxSegmentSize())
}
