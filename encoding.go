package marshal

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// encodingAliases covers the handful of names that show up on the
// wire as the "E"/"encoding" ivar but don't match their WHATWG name
// as understood by golang.org/x/text/encoding/htmlindex (spec.md
// section 9, "Encoding handling").
var encodingAliases = map[string]encoding.Encoding{
	"UTF-8":       unicode.UTF8,
	"UTF8":        unicode.UTF8,
	"US-ASCII":    charmap.Windows1252, // closest 8-bit superset; does not reject bytes >=0x80, it maps them
	"ASCII-8BIT":  charmap.ISO8859_1,   // Ruby's "binary" pseudo-encoding: byte-for-byte, closest lossless 8-bit map
	"BINARY":      charmap.ISO8859_1,
	"UTF-16":      unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"UTF-16BE":    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"UTF-16LE":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"Shift_JIS":   japanese.ShiftJIS,
	"SHIFT_JIS":   japanese.ShiftJIS,
	"EUC-JP":      japanese.EUCJP,
	"ISO-2022-JP": japanese.ISO2022JP,
	"EUC-KR":      korean.EUCKR,
}

// resolveEncoding maps an ivar-carried encoding name to a
// golang.org/x/text encoding.Encoding, per spec.md section 9:
// "unknown encodings surface as BadEncoding rather than silent
// fallback to bytes".
func resolveEncoding(name string) (encoding.Encoding, error) {
	if enc, ok := encodingAliases[name]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(strings.ToLower(name))
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}
