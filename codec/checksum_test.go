package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfirgo/ewfcore/codec"
)

func TestChecksumDeterministic(t *testing.T) {
	data := []byte("chunk payload bytes")
	assert.Equal(t, codec.Checksum(data), codec.Checksum(data))
}

func TestChecksumDetectsMutation(t *testing.T) {
	a := []byte("chunk payload bytes")
	b := []byte("chunk payload Bytes")
	assert.NotEqual(t, codec.Checksum(a), codec.Checksum(b))
}

func TestChecksumEmpty(t *testing.T) {
	assert.NotPanics(t, func() { codec.Checksum(nil) })
}
