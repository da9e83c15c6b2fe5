// Package header implements the codec for the case-metadata carried in
// a segment file's header/header2/xheader sections: a zlib-compressed,
// tab-separated value table keyed by a small set of single- and
// two-letter field tags.
package header

import (
	"bytes"
	"compress/zlib"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Field tags, matching the on-disk single/two-letter keys of the
// header value table.
const (
	FieldCaseNumber        = "c"
	FieldEvidenceNumber    = "n"
	FieldUniqueDescription = "a"
	FieldExaminerName      = "e"
	FieldNotes             = "t"
	FieldAcquiryVersion    = "av"
	FieldAcquiryPlatform   = "ov"
	FieldAcquiryDate       = "m"
	FieldSystemDate        = "u"
	FieldPasswordHash      = "p"
	FieldCompressionLevel  = "r"
)

// fieldOrder is the canonical column order new header sections are
// written in; on read, field order is taken from the section itself.
var fieldOrder = []string{
	FieldCaseNumber,
	FieldEvidenceNumber,
	FieldUniqueDescription,
	FieldExaminerName,
	FieldNotes,
	FieldAcquiryVersion,
	FieldAcquiryPlatform,
	FieldAcquiryDate,
	FieldSystemDate,
	FieldPasswordHash,
	FieldCompressionLevel,
}

// Values is the decoded case-metadata field set. Unknown tags
// encountered on read are preserved in Extra so a round trip through
// Decode/Encode does not silently drop acquisition-tool-specific
// fields.
type Values struct {
	Fields map[string]string
	Extra  map[string]string
}

// NewValues returns an empty Values ready for population.
func NewValues() Values {
	return Values{Fields: map[string]string{}, Extra: map[string]string{}}
}

// Get returns a known field's value, or "" if unset.
func (v Values) Get(tag string) string { return v.Fields[tag] }

// Set assigns a known field's value.
func (v Values) Set(tag, value string) { v.Fields[tag] = value }

// ErrMalformed reports a header payload that does not contain the
// expected tab-separated flag/value line pair.
var ErrMalformed = errors.New("header: malformed header section body")

// Decode decompresses and parses a header/header2/xheader section
// payload using the given Codepage for the legacy non-UTF variants (see
// codepage.go). header2 is UTF-16 and passes UTF16LE; xheader is UTF-8
// and passes UTF8.
func Decode(payload []byte, cp Codepage) (Values, error) {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return Values{}, errors.Wrap(err, "header: open zlib reader")
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return Values{}, errors.Wrap(err, "header: inflate")
	}

	text := cp.Decode(buf.Bytes())
	lines := strings.Split(strings.TrimRight(text, "\x00"), "\n")
	if len(lines) < 4 {
		return Values{}, ErrMalformed
	}

	flags := strings.Split(strings.TrimRight(lines[2], "\r"), "\t")
	vals := strings.Split(strings.TrimRight(lines[3], "\r"), "\t")
	if len(flags) != len(vals) {
		return Values{}, ErrMalformed
	}

	out := NewValues()
	known := make(map[string]bool, len(fieldOrder))
	for _, f := range fieldOrder {
		known[f] = true
	}
	for i, tag := range flags {
		if known[tag] {
			out.Fields[tag] = vals[i]
		} else {
			out.Extra[tag] = vals[i]
		}
	}
	return out, nil
}

// Encode renders Values as a zlib-compressed header payload in the
// canonical field order, plus any Extra fields appended in map order.
func Encode(v Values, cp Codepage) ([]byte, error) {
	var flags, vals []string
	for _, tag := range fieldOrder {
		flags = append(flags, tag)
		vals = append(vals, v.Fields[tag])
	}
	for tag, val := range v.Extra {
		flags = append(flags, tag)
		vals = append(vals, val)
	}

	text := "1\nmain\n" + strings.Join(flags, "\t") + "\n" + strings.Join(vals, "\t") + "\n"
	raw := cp.Encode(text)

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, errors.Wrap(err, "header: deflate write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "header: deflate close")
	}
	return buf.Bytes(), nil
}
