package header_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfirgo/ewfcore/header"
)

func TestASCIIRoundTrip(t *testing.T) {
	s := "Case 001 - J. Doe"
	encoded := header.ASCII.Encode(s)
	assert.Equal(t, s, header.ASCII.Decode(encoded))
}

func TestWindows1252RoundTrip(t *testing.T) {
	s := "café — examiner"
	encoded := header.Windows1252.Encode(s)
	assert.Equal(t, s, header.Windows1252.Decode(encoded))
}

func TestUTF16LERoundTrip(t *testing.T) {
	s := "case-éè"
	encoded := header.UTF16LE.Encode(s)
	assert.Equal(t, s, header.UTF16LE.Decode(encoded))
}

func TestCodepageByNameFallsBackToWindows1252(t *testing.T) {
	assert.Equal(t, header.Windows1252, header.CodepageByName("windows-1251"))
	assert.Equal(t, header.ASCII, header.CodepageByName("ascii"))
}
