package resume_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfirgo/ewfcore/resume"
)

func TestVerifyPrefixMatches(t *testing.T) {
	chunks := [][]byte{[]byte("chunk one"), []byte("chunk two")}

	d := resume.NewPrefixDigest()
	for _, c := range chunks {
		d.Write(c)
	}
	want := d.Sum()

	assert.True(t, resume.VerifyPrefix(want, chunks))
}

func TestVerifyPrefixDetectsDivergence(t *testing.T) {
	original := [][]byte{[]byte("chunk one"), []byte("chunk two")}
	d := resume.NewPrefixDigest()
	for _, c := range original {
		d.Write(c)
	}
	want := d.Sum()

	diverged := [][]byte{[]byte("chunk one"), []byte("CHUNK TWO")}
	assert.False(t, resume.VerifyPrefix(want, diverged))
}
