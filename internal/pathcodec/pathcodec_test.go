package pathcodec

import (
	"testing"

	"github.com/archivekit/zipvault/internal/checksum"
	"github.com/archivekit/zipvault/internal/extrafield"
)

func TestDecodePathUnicodeFlagWins(t *testing.T) {
	registry := DefaultRegistry()
	got := DecodePath([]byte("héllo"), true, DefaultCompatibility, extrafield.NewMap(), nil, registry)
	if got != "héllo" {
		t.Fatalf("got %q", got)
	}
}

func TestDecodePathUsesInfoZipUnicodeWhenCRCMatches(t *testing.T) {
	registry := DefaultRegistry()
	legacy := []byte("plain.txt")
	extras := extrafield.NewMap()
	extras.Set(extrafield.IDInfoZipUnicodePath, extrafield.EncodeInfoZipUnicode(
		checksum.Compute(checksum.NewCRC32, legacy), []byte("plain-unicode.txt")))

	got := DecodePath(legacy, false, DefaultCompatibility, extras, nil, registry)
	if got != "plain-unicode.txt" {
		t.Fatalf("got %q, want plain-unicode.txt", got)
	}
}

func TestDecodePathIgnoresInfoZipUnicodeWhenCRCStale(t *testing.T) {
	registry := DefaultRegistry()
	legacy := []byte("plain.txt")
	extras := extrafield.NewMap()
	extras.Set(extrafield.IDInfoZipUnicodePath, extrafield.EncodeInfoZipUnicode(0xDEADBEEF, []byte("stale.txt")))

	got := DecodePath(legacy, false, DefaultCompatibility, extras, nil, registry)
	if got != "plain.txt" {
		t.Fatalf("got %q, want fallback to legacy bytes", got)
	}
}

func TestWinZipBothFlagsNameAndCommentUseOwnCodePages(t *testing.T) {
	registry := DefaultRegistry()
	extras := extrafield.NewMap()
	extras.Set(extrafield.IDZipArchiveCodePage, extrafield.EncodeWinZipCodePage(extrafield.WinZipCodePage{
		Flags:            extrafield.WinZipFilenameCodePageFlag | extrafield.WinZipCommentCodePageFlag,
		FilenameCodePage: 437,
		CommentCodePage:  1251,
	}))

	name := DecodePath([]byte{0xE0}, false, DefaultCompatibility, extras, nil, registry)    // 437: 0xE0 = alpha
	comment := DecodeComment([]byte{0xE0}, DefaultCompatibility, extras, nil, registry) // 1251: 0xE0 = Cyrillic a

	if name == comment {
		t.Fatalf("expected distinct decode results from distinct code pages, both got %q", name)
	}
}

func TestWinZipOnlyNameFlagCommentFallsBackToUTF8(t *testing.T) {
	registry := DefaultRegistry()
	extras := extrafield.NewMap()
	extras.Set(extrafield.IDZipArchiveCodePage, extrafield.EncodeWinZipCodePage(extrafield.WinZipCodePage{
		Flags:            extrafield.WinZipFilenameCodePageFlag,
		FilenameCodePage: 437,
	}))

	comment := DecodeComment([]byte("plain comment"), DefaultCompatibility, extras, nil, registry)
	if comment != "plain comment" {
		t.Fatalf("got %q, want UTF-8 passthrough", comment)
	}
}

func TestEncodeForStorageUnixCompatibleSetsUnicodeFlag(t *testing.T) {
	registry := DefaultRegistry()
	legacy, unicodeFlag, extras := EncodeForStorage("dir/héllo.txt", UnixCompatible, nil, registry)
	if !unicodeFlag {
		t.Fatal("expected unicode flag set for UnixCompatible")
	}
	if string(legacy) != "dir/héllo.txt" {
		t.Fatalf("got %q", legacy)
	}
	if extras.Len() != 0 {
		t.Fatalf("UnixCompatible without WindowsCompatible shouldn't emit extras, got %d", extras.Len())
	}
}

func TestEncodeForStorageWindowsCompatibleEmitsCodePageExtra(t *testing.T) {
	registry := DefaultRegistry()
	_, _, extras := EncodeForStorage("a.txt", WindowsCompatible, nil, registry)
	raw, ok := extras.Get(extrafield.IDZipArchiveCodePage)
	if !ok {
		t.Fatal("expected 0x5A4C extra")
	}
	rec, err := extrafield.DecodeWinZipCodePage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if rec.FilenameCodePage != 65001 {
		t.Fatalf("FilenameCodePage = %d, want 65001", rec.FilenameCodePage)
	}
}

func TestEncodeForStorageDosCompatibleShortensAndNeverSetsUnicode(t *testing.T) {
	registry := DefaultRegistry()
	legacy, unicodeFlag, _ := EncodeForStorage("verylongfilename.longext", DosCompatible, nil, registry)
	if unicodeFlag {
		t.Fatal("DosCompatible must never set the unicode flag")
	}
	if string(legacy) != "verylo~1.lo~1" {
		t.Fatalf("got %q", legacy)
	}
}

func TestEncodeForStorageDosPlusUnixEmitsUnicodePathForNonASCII(t *testing.T) {
	registry := DefaultRegistry()
	_, _, extras := EncodeForStorage("héllo.txt", DosCompatible|UnixCompatible, nil, registry)
	if _, ok := extras.Get(extrafield.IDInfoZipUnicodePath); !ok {
		t.Fatal("expected Info-ZIP Unicode Path extra for non-ASCII DOS+Unix path")
	}
}

func TestEncodeForStorageCustomCompatibilitySubstitutesUnrepresentable(t *testing.T) {
	registry := DefaultRegistry()
	// CodePage437 cannot represent this CJK text, forcing substitution.
	legacy, unicodeFlag, _ := EncodeForStorage("日本語.txt", CustomCompatibility, registry[437], registry)
	if unicodeFlag {
		t.Fatal("CustomCompatibility only sets the unicode flag when the configured codec is UTF-8")
	}
	if len(legacy) == 0 {
		t.Fatal("expected a substituted name")
	}
}

func TestSubstituteSegmentHashesNameOnlyWhenExtensionKept(t *testing.T) {
	registry := DefaultRegistry()
	seg := substituteSegment("日本語.txt", registry[437])

	wantCRC := checksum.Compute(checksum.NewCRC32, utf16LEBytes("日本語"))
	want := fmtCRC(wantCRC) + ".txt"
	if seg != want {
		t.Fatalf("got %q, want %q (CRC over the name only, extension preserved)", seg, want)
	}

	full := checksum.Compute(checksum.NewCRC32, utf16LEBytes("日本語.txt"))
	if seg == fmtCRC(full)+".txt" && wantCRC != full {
		t.Fatal("substitution hashed the full segment including the extension")
	}
}

func fmtCRC(crc uint32) string {
	const hex = "0123456789ABCDEF"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hex[crc&0xF]
		crc >>= 4
	}
	return string(b)
}
