package pathcodec

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/archivekit/zipvault/internal/checksum"
	"github.com/archivekit/zipvault/internal/extrafield"
)

// EncodeForStorage implements spec section 4.4's encodeForStorage
// policy for a path. It returns the legacy on-disk bytes, whether the
// general-purpose-flag Unicode bit should be set, and any extra-field
// records (Info-ZIP Unicode Path, WinZip code page) that should
// accompany the entry.
func EncodeForStorage(path string, compat Compatibility, custom Codec, registry map[uint32]Codec) (legacy []byte, unicodeFlag bool, extras *extrafield.Map) {
	extras = extrafield.NewMap()

	switch {
	case compat == CustomCompatibility:
		codec := custom
		if codec == nil {
			codec = resolveLegacyCodec(compat, nil, registry)
		}
		legacy = encodePathSegments(path, codec)
		_, unicodeFlag = codec.(utf8Codec)
		return legacy, unicodeFlag, extras

	case compat&DosCompatible != 0:
		codec := custom
		if codec == nil {
			codec = registry[437]
		}
		legacy = encodePathSegments(path, codec)
		legacy = shorten83(legacy)
		if compat&(UnixCompatible|WindowsCompatible) != 0 && !isASCII(path) {
			extras.Set(extrafield.IDInfoZipUnicodePath, extrafield.EncodeInfoZipUnicode(
				checksum.Compute(checksum.NewCRC32, legacy), []byte(path)))
		}
		return legacy, false, extras

	default: // UnixCompatible and/or WindowsCompatible, no DosCompatible
		legacy = []byte(path)
		unicodeFlag = true
		if compat&WindowsCompatible != 0 {
			extras.Set(extrafield.IDZipArchiveCodePage, extrafield.EncodeWinZipCodePage(extrafield.WinZipCodePage{
				Flags:            extrafield.WinZipFilenameCodePageFlag,
				FilenameCodePage: 65001,
			}))
		}
		return legacy, unicodeFlag, extras
	}
}

// EncodeCommentForStorage mirrors EncodeForStorage for comments:
// comments are never DOS-8.3-shortened, since 8.3 only applies to
// filenames.
func EncodeCommentForStorage(comment string, compat Compatibility, custom Codec, registry map[uint32]Codec) (legacy []byte, unicodeFlag bool, extras *extrafield.Map) {
	extras = extrafield.NewMap()
	if comment == "" {
		return nil, false, extras
	}

	switch {
	case compat == CustomCompatibility:
		codec := custom
		if codec == nil {
			codec = resolveLegacyCodec(compat, nil, registry)
		}
		legacy = encodeWithFallback(comment, codec)
		_, unicodeFlag = codec.(utf8Codec)
		return legacy, unicodeFlag, extras

	case compat&DosCompatible != 0:
		codec := custom
		if codec == nil {
			codec = registry[437]
		}
		legacy = encodeWithFallback(comment, codec)
		if compat&(UnixCompatible|WindowsCompatible) != 0 && !isASCII(comment) {
			extras.Set(extrafield.IDInfoZipUnicodeCmt, extrafield.EncodeInfoZipUnicode(
				checksum.Compute(checksum.NewCRC32, legacy), []byte(comment)))
		}
		return legacy, false, extras

	default:
		legacy = []byte(comment)
		unicodeFlag = true
		if compat&WindowsCompatible != 0 {
			extras.Set(extrafield.IDZipArchiveCodePage, extrafield.EncodeWinZipCodePage(extrafield.WinZipCodePage{
				Flags:           extrafield.WinZipCommentCodePageFlag,
				CommentCodePage: 65001,
			}))
		}
		return legacy, unicodeFlag, extras
	}
}

func encodePathSegments(path string, codec Codec) []byte {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = string(encodeWithFallback(seg, codec))
	}
	return []byte(strings.Join(segments, "/"))
}

// encodeWithFallback encodes s with codec, substituting a
// CRC-derived name when the codec can't represent it (spec section
// 4.4's CustomCompatibility fallback, reused for DOS paths and
// comments too since the substitution rule doesn't vary by profile).
func encodeWithFallback(s string, codec Codec) []byte {
	if b, ok := codec.Encode(s); ok {
		return b
	}
	return []byte(substituteSegment(s, codec))
}

// substituteSegment builds "<8-hex-CRC32-of-utf16-bytes>.<ext>",
// preserving the extension only if it independently encodes.
func substituteSegment(seg string, codec Codec) string {
	crcSource := seg
	ext := ""
	if idx := strings.LastIndex(seg, "."); idx > 0 {
		candidate := seg[idx+1:]
		if _, ok := codec.Encode(candidate); ok {
			ext = candidate
			crcSource = seg[:idx]
		}
	}
	crc := checksum.Compute(checksum.NewCRC32, utf16LEBytes(crcSource))
	name := fmt.Sprintf("%08X", crc)
	if ext != "" {
		return name + "." + ext
	}
	return name
}

func utf16LEBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 0, len(units)*2)
	for _, u := range units {
		b = append(b, byte(u), byte(u>>8))
	}
	return b
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
