package segment

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSegmentNumberOverflow reports a segment count too large for this
// format's naming scheme to represent.
var ErrSegmentNumberOverflow = errors.New("segment: too many segments for naming scheme")

// Extension returns the filename extension (including the leading dot)
// for segment number n (1-based) under this format's naming scheme:
// base.E01 .. base.E99, then base.EAA .. base.EZZ, base.FAA and onward
// through base.ZZZ for the classic scheme, or the lowercase
// base.s01-style sequence for SMART.
func (f Format) Extension(n uint16) (string, error) {
	if n == 0 {
		return "", errors.New("segment: segment number must be >= 1")
	}
	if f.SmartNaming() {
		return smartExtension(n)
	}
	return classicExtension(n)
}

func classicExtension(n uint16) (string, error) {
	if n <= 99 {
		return fmt.Sprintf(".E%02d", n), nil
	}
	letters, err := letterPair(n-100, 'E', 'Z', 'A')
	if err != nil {
		return "", err
	}
	return "." + letters, nil
}

func smartExtension(n uint16) (string, error) {
	if n <= 99 {
		return fmt.Sprintf(".s%02d", n), nil
	}
	letters, err := letterPair(n-100, 's', 'z', 'a')
	if err != nil {
		return "", err
	}
	return "." + letters, nil
}

// letterPair renders a 0-based index as the classic two-letter-pair
// extension scheme: the lead character advances from first through last
// every 676 (26*26) segments, and within that band a base-26 two-letter
// counter (starting at letterBase, 'A' for the classic scheme or 'a'
// for SMART) runs through its 676 combinations.
func letterPair(index uint16, first, last, letterBase byte) (string, error) {
	const band = 26 * 26
	bandIndex := int(index) / band
	within := int(index) % band

	leadChar := int(first) + bandIndex
	if leadChar > int(last) {
		return "", ErrSegmentNumberOverflow
	}

	hi := within / 26
	lo := within % 26
	return string([]byte{byte(leadChar), letterBase + byte(hi), letterBase + byte(lo)}), nil
}
