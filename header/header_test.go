package header_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfirgo/ewfcore/header"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	v := header.NewValues()
	v.Set(header.FieldCaseNumber, "case-001")
	v.Set(header.FieldEvidenceNumber, "ev-01")
	v.Set(header.FieldExaminerName, "J. Doe")
	v.Set(header.FieldAcquiryDate, "2026 7 31 10 0 0")

	payload, err := header.Encode(v, header.ASCII)
	require.NoError(t, err)

	got, err := header.Decode(payload, header.ASCII)
	require.NoError(t, err)

	assert.Equal(t, "case-001", got.Get(header.FieldCaseNumber))
	assert.Equal(t, "ev-01", got.Get(header.FieldEvidenceNumber))
	assert.Equal(t, "J. Doe", got.Get(header.FieldExaminerName))
}

func TestDecodeHeaderPreservesUnknownTags(t *testing.T) {
	v := header.NewValues()
	v.Set(header.FieldCaseNumber, "case-002")
	v.Extra["dc"] = "custom-value"

	payload, err := header.Encode(v, header.Windows1252)
	require.NoError(t, err)

	got, err := header.Decode(payload, header.Windows1252)
	require.NoError(t, err)
	assert.Equal(t, "custom-value", got.Extra["dc"])
}

func TestDecodeHeaderMalformed(t *testing.T) {
	empty, err := header.Encode(header.NewValues(), header.ASCII)
	require.NoError(t, err)
	_, err = header.Decode(empty, header.ASCII)
	assert.NoError(t, err)

	_, err = header.Decode([]byte{0x78, 0x9c}, header.ASCII)
	assert.Error(t, err)
}
