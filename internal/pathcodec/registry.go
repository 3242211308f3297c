package pathcodec

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// textCodec adapts a golang.org/x/text/encoding.Encoding to Codec. A
// failed encode (a rune with no representation in the target code
// page) reports ok=false so the caller can fall back to CRC
// substitution; a failed decode falls back to returning the raw bytes
// unchanged rather than dropping the payload, matching Info-ZIP's own
// tolerant readers.
type textCodec struct{ enc encoding.Encoding }

func (c textCodec) Encode(s string) ([]byte, bool) {
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c textCodec) Decode(raw []byte) string {
	b, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(b)
}

// DefaultRegistry maps the code-page numbers spec section 6 lists for
// the 0x5A4C WinZip extra to concrete codecs, built on
// golang.org/x/text's charmap, CJK and unicode packages rather than a
// hand-rolled code-page table.
func DefaultRegistry() map[uint32]Codec {
	utf16le := textCodec{unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)}
	utf16be := textCodec{unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)}
	return map[uint32]Codec{
		437:   textCodec{charmap.CodePage437},
		850:   textCodec{charmap.CodePage850},
		866:   textCodec{charmap.CodePage866},
		874:   textCodec{charmap.Windows874},
		932:   textCodec{japanese.ShiftJIS},
		949:   textCodec{korean.EUCKR},
		51949: textCodec{korean.EUCKR},
		950:   textCodec{traditionalchinese.Big5},
		936:   textCodec{simplifiedchinese.GBK},
		54936: textCodec{simplifiedchinese.GB18030},
		51932: textCodec{japanese.EUCJP},
		50220: textCodec{japanese.ISO2022JP},
		50221: textCodec{japanese.ISO2022JP},
		50222: textCodec{japanese.ISO2022JP},
		20866: textCodec{charmap.KOI8R},
		21866: textCodec{charmap.KOI8U},
		10000: textCodec{charmap.Macintosh},
		28591: textCodec{charmap.ISO8859_1},
		28592: textCodec{charmap.ISO8859_2},
		28593: textCodec{charmap.ISO8859_3},
		28594: textCodec{charmap.ISO8859_4},
		28595: textCodec{charmap.ISO8859_5},
		28596: textCodec{charmap.ISO8859_6},
		28597: textCodec{charmap.ISO8859_7},
		28598: textCodec{charmap.ISO8859_8},
		28599: textCodec{charmap.ISO8859_9},
		28603: textCodec{charmap.ISO8859_13},
		28606: textCodec{charmap.ISO8859_16},
		1250:  textCodec{charmap.Windows1250},
		1251:  textCodec{charmap.Windows1251},
		1252:  textCodec{charmap.Windows1252},
		1253:  textCodec{charmap.Windows1253},
		1254:  textCodec{charmap.Windows1254},
		1255:  textCodec{charmap.Windows1255},
		1256:  textCodec{charmap.Windows1256},
		1257:  textCodec{charmap.Windows1257},
		1258:  textCodec{charmap.Windows1258},
		1200:  utf16le,
		1201:  utf16be,
		65001: utf8Codec{},
	}
}
