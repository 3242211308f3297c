// Package pathcodec resolves which codec decodes a legacy path or
// comment, when to trust or emit a Unicode extra, and how to shrink a
// path to DOS 8.3 when the legacy encoding can't represent it.
// Grounded on original_source/quazip's QuaZipTextCodec (code-page
// resolution) and quazip.cpp's Unicode-extra CRC gate, reimplemented
// on golang.org/x/text instead of Qt's QTextCodec registry.
package pathcodec

import (
	"github.com/archivekit/zipvault/internal/checksum"
	"github.com/archivekit/zipvault/internal/extrafield"
)

// Compatibility is the bitfield spec section 6 defines for how paths,
// timestamps and attributes are encoded on write.
type Compatibility uint8

const (
	CustomCompatibility  Compatibility = 0
	DosCompatible        Compatibility = 1 << 0
	UnixCompatible       Compatibility = 1 << 1
	WindowsCompatible    Compatibility = 1 << 2
	DefaultCompatibility               = UnixCompatible | WindowsCompatible
)

// Codec converts a path or comment between its Unicode form and a
// legacy single-byte or multi-byte on-disk encoding. CustomCompatibility
// is backed by a caller-supplied Codec; every other profile is backed
// by DefaultRegistry, keyed by code-page number.
type Codec interface {
	Encode(s string) (raw []byte, ok bool)
	Decode(raw []byte) string
}

func resolveLegacyCodec(compat Compatibility, custom Codec, registry map[uint32]Codec) Codec {
	if compat == CustomCompatibility && custom != nil {
		return custom
	}
	if c, ok := registry[437]; ok {
		return c
	}
	return utf8Codec{}
}

// DecodePath implements spec section 4.4's decodePath: the Unicode
// flag wins outright, then the Info-ZIP Unicode Path extra (gated on
// its CRC still matching the legacy bytes actually stored), then the
// WinZip code-page extra, then the compatibility profile's default.
func DecodePath(raw []byte, unicodeFlag bool, compat Compatibility, centralExtras *extrafield.Map, custom Codec, registry map[uint32]Codec) string {
	if unicodeFlag {
		return string(raw)
	}
	if ext, ok := centralExtras.Get(extrafield.IDInfoZipUnicodePath); ok {
		if crc, text, err := extrafield.DecodeInfoZipUnicode(ext); err == nil {
			if crc == checksum.Compute(checksum.NewCRC32, raw) {
				return string(text)
			}
		}
	}
	nameCP, hasNameCP, _, hasCommentCP, present := winZipCodePages(centralExtras)
	if hasNameCP {
		if c, ok := registry[nameCP]; ok {
			return c.Decode(raw)
		}
	} else if present && hasCommentCP {
		// Only the comment flag is set; spec section 9 says the
		// other field falls back to UTF-8.
		return string(raw)
	}
	return resolveLegacyCodec(compat, custom, registry).Decode(raw)
}

// DecodeComment mirrors DecodePath with the 0x6375/comment-code-page
// records in place of 0x7075/filename-code-page.
func DecodeComment(raw []byte, compat Compatibility, centralExtras *extrafield.Map, custom Codec, registry map[uint32]Codec) string {
	if ext, ok := centralExtras.Get(extrafield.IDInfoZipUnicodeCmt); ok {
		if crc, text, err := extrafield.DecodeInfoZipUnicode(ext); err == nil {
			if crc == checksum.Compute(checksum.NewCRC32, raw) {
				return string(text)
			}
		}
	}
	_, hasNameCP, commentCP, hasCommentCP, present := winZipCodePages(centralExtras)
	if hasCommentCP {
		if c, ok := registry[commentCP]; ok {
			return c.Decode(raw)
		}
	} else if present && hasNameCP {
		return string(raw)
	}
	return resolveLegacyCodec(compat, custom, registry).Decode(raw)
}

// winZipCodePages reads the 0x5A4C record, if any, reporting which of
// the filename/comment code-page flags were actually set.
func winZipCodePages(extras *extrafield.Map) (nameCP uint32, hasNameCP bool, commentCP uint32, hasCommentCP bool, present bool) {
	raw, ok := extras.Get(extrafield.IDZipArchiveCodePage)
	if !ok {
		return 0, false, 0, false, false
	}
	rec, err := extrafield.DecodeWinZipCodePage(raw)
	if err != nil {
		return 0, false, 0, false, false
	}
	present = true
	if rec.Flags&extrafield.WinZipFilenameCodePageFlag != 0 {
		nameCP, hasNameCP = rec.FilenameCodePage, true
	}
	if rec.Flags&extrafield.WinZipCommentCodePageFlag != 0 {
		commentCP, hasCommentCP = rec.CommentCodePage, true
	}
	return
}

type utf8Codec struct{}

func (utf8Codec) Encode(s string) ([]byte, bool) { return []byte(s), true }
func (utf8Codec) Decode(raw []byte) string       { return string(raw) }
