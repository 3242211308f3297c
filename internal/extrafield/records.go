package extrafield

import (
	"encoding/binary"
)

// Zip64Fields holds whichever of uncompressed size, compressed size,
// local header offset and disk number were promoted to 8 (or 4, for
// disk number) bytes because their legacy field was the all-ones
// sentinel. APPNOTE requires the sub-fields to appear in exactly this
// order and only the ones that were actually sentineled.
type Zip64Fields struct {
	UncompressedSize *uint64
	CompressedSize   *uint64
	LocalHeaderOffset *uint64
	DiskNumber        *uint32
}

// EncodeZip64 serializes the present fields in APPNOTE order.
func EncodeZip64(f Zip64Fields) []byte {
	var out []byte
	put64 := func(v *uint64) {
		if v == nil {
			return
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], *v)
		out = append(out, b[:]...)
	}
	put64(f.UncompressedSize)
	put64(f.CompressedSize)
	put64(f.LocalHeaderOffset)
	if f.DiskNumber != nil {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], *f.DiskNumber)
		out = append(out, b[:]...)
	}
	return out
}

// DecodeZip64 reads fields in the order a caller expects them to be
// present, based on which legacy fields were sentineled; it does not
// guess from the record's length alone, since ambiguity there is the
// classic ZIP64 parsing bug.
func DecodeZip64(raw []byte, wantUncompressed, wantCompressed, wantOffset, wantDisk bool) (Zip64Fields, error) {
	var f Zip64Fields
	take64 := func() (uint64, error) {
		if len(raw) < 8 {
			return 0, ErrCorruptedData
		}
		v := binary.LittleEndian.Uint64(raw[:8])
		raw = raw[8:]
		return v, nil
	}
	if wantUncompressed {
		v, err := take64()
		if err != nil {
			return f, err
		}
		f.UncompressedSize = &v
	}
	if wantCompressed {
		v, err := take64()
		if err != nil {
			return f, err
		}
		f.CompressedSize = &v
	}
	if wantOffset {
		v, err := take64()
		if err != nil {
			return f, err
		}
		f.LocalHeaderOffset = &v
	}
	if wantDisk {
		if len(raw) < 4 {
			return f, ErrCorruptedData
		}
		v := binary.LittleEndian.Uint32(raw[:4])
		f.DiskNumber = &v
	}
	return f, nil
}

// NTFSTimes holds the three FILETIME-resolution (100ns since
// 1601-01-01 UTC) timestamps carried in the 0x000A record's tag-1
// sub-block. ZIP64 aside, this is the highest-resolution timestamp
// the format offers (spec section 4.5's decode preference order).
type NTFSTimes struct {
	Modified, Accessed, Created uint64
}

// EncodeNTFS wraps t in the 4-byte-reserved + tag/size sub-block
// layout APPNOTE specifies for the 0x000A record.
func EncodeNTFS(t NTFSTimes) []byte {
	out := make([]byte, 4+4+24)
	// 4 reserved bytes, already zero.
	binary.LittleEndian.PutUint16(out[4:6], 1)  // tag 1: timestamps
	binary.LittleEndian.PutUint16(out[6:8], 24) // 3 x 8-byte FILETIME
	binary.LittleEndian.PutUint64(out[8:16], t.Modified)
	binary.LittleEndian.PutUint64(out[16:24], t.Accessed)
	binary.LittleEndian.PutUint64(out[24:32], t.Created)
	return out
}

// DecodeNTFS finds the tag-1 sub-block inside an 0x000A record's
// payload and returns its three timestamps. ok is false if the
// record is too short or has no tag-1 sub-block, which per the
// resolved Open Question in SPEC_FULL.md means "not present", so the
// caller should fall through to the next-best time source.
func DecodeNTFS(raw []byte) (t NTFSTimes, ok bool) {
	if len(raw) < 4 {
		return t, false
	}
	sub := raw[4:]
	for len(sub) >= 4 {
		tag := binary.LittleEndian.Uint16(sub[0:2])
		size := int(binary.LittleEndian.Uint16(sub[2:4]))
		if len(sub) < 4+size {
			return t, false
		}
		body := sub[4 : 4+size]
		if tag == 1 && size >= 24 {
			t.Modified = binary.LittleEndian.Uint64(body[0:8])
			t.Accessed = binary.LittleEndian.Uint64(body[8:16])
			t.Created = binary.LittleEndian.Uint64(body[16:24])
			return t, true
		}
		sub = sub[4+size:]
	}
	return t, false
}

// UnixExtendedTime bit flags for the 0x5455 record.
const (
	UnixTimeHasModified = 1 << 0
	UnixTimeHasAccessed = 1 << 1
	UnixTimeHasCreated  = 1 << 2
)

// UnixExtendedTime is the decoded 0x5455 record. Only the fields
// whose bit is set in Flags are meaningful; the central-directory
// half of this record only ever carries Modified (spec section 4.3).
type UnixExtendedTime struct {
	Flags              uint8
	Modified, Accessed, Created uint32
}

// EncodeUnixExtendedTime writes the flag byte followed by whichever
// timestamps Flags selects, in Modified/Accessed/Created order. A
// caller producing the central-directory half should only set
// UnixTimeHasModified.
func EncodeUnixExtendedTime(t UnixExtendedTime) []byte {
	out := []byte{t.Flags}
	put := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		out = append(out, b[:]...)
	}
	if t.Flags&UnixTimeHasModified != 0 {
		put(t.Modified)
	}
	if t.Flags&UnixTimeHasAccessed != 0 {
		put(t.Accessed)
	}
	if t.Flags&UnixTimeHasCreated != 0 {
		put(t.Created)
	}
	return out
}

// DecodeUnixExtendedTime parses as many of the flagged fields as the
// buffer actually contains; a short buffer simply yields fewer
// populated fields rather than an error, matching Info-ZIP's own
// tolerant readers (the central-directory half is routinely shorter
// than the flag byte alone would imply if higher bits leaked in).
func DecodeUnixExtendedTime(raw []byte) (UnixExtendedTime, error) {
	if len(raw) < 1 {
		return UnixExtendedTime{}, ErrCorruptedData
	}
	t := UnixExtendedTime{Flags: raw[0]}
	raw = raw[1:]
	take := func() (uint32, bool) {
		if len(raw) < 4 {
			return 0, false
		}
		v := binary.LittleEndian.Uint32(raw[:4])
		raw = raw[4:]
		return v, true
	}
	if t.Flags&UnixTimeHasModified != 0 {
		if v, ok := take(); ok {
			t.Modified = v
		} else {
			t.Flags &^= UnixTimeHasModified
		}
	}
	if t.Flags&UnixTimeHasAccessed != 0 {
		if v, ok := take(); ok {
			t.Accessed = v
		} else {
			t.Flags &^= UnixTimeHasAccessed
		}
	}
	if t.Flags&UnixTimeHasCreated != 0 {
		if v, ok := take(); ok {
			t.Created = v
		} else {
			t.Flags &^= UnixTimeHasCreated
		}
	}
	return t, nil
}

// InfoZipUnixV1 is the decoded 0x5855 record (local header only).
type InfoZipUnixV1 struct {
	Accessed, Modified uint32
	UID, GID           uint16
	HasOwnership       bool
	Trailer            []byte // symlink target or other vendor payload, preserved verbatim
}

// EncodeInfoZipUnixV1 writes atime, mtime, and (if HasOwnership) the
// uid/gid pair, followed by Trailer verbatim.
func EncodeInfoZipUnixV1(v InfoZipUnixV1) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:4], v.Accessed)
	binary.LittleEndian.PutUint32(out[4:8], v.Modified)
	if v.HasOwnership {
		ug := make([]byte, 4)
		binary.LittleEndian.PutUint16(ug[0:2], v.UID)
		binary.LittleEndian.PutUint16(ug[2:4], v.GID)
		out = append(out, ug...)
	}
	return append(out, v.Trailer...)
}

// DecodeInfoZipUnixV1 parses the mandatory atime/mtime pair and, if
// four more bytes remain, the uid/gid pair; anything left over is
// kept as Trailer rather than discarded.
func DecodeInfoZipUnixV1(raw []byte) (InfoZipUnixV1, error) {
	if len(raw) < 8 {
		return InfoZipUnixV1{}, ErrCorruptedData
	}
	v := InfoZipUnixV1{
		Accessed: binary.LittleEndian.Uint32(raw[0:4]),
		Modified: binary.LittleEndian.Uint32(raw[4:8]),
	}
	raw = raw[8:]
	if len(raw) >= 4 {
		v.HasOwnership = true
		v.UID = binary.LittleEndian.Uint16(raw[0:2])
		v.GID = binary.LittleEndian.Uint16(raw[2:4])
		raw = raw[4:]
	}
	v.Trailer = append([]byte(nil), raw...)
	return v, nil
}

// unicodeRecordVersion is the only version the Info-ZIP Unicode
// records have ever defined.
const unicodeRecordVersion = 1

// EncodeInfoZipUnicode builds a 0x7075/0x6375 record: version byte,
// CRC-32 of the legacy-encoded text actually stored in the header,
// then the UTF-8 bytes.
func EncodeInfoZipUnicode(legacyCRC uint32, utf8Text []byte) []byte {
	out := make([]byte, 5, 5+len(utf8Text))
	out[0] = unicodeRecordVersion
	binary.LittleEndian.PutUint32(out[1:5], legacyCRC)
	return append(out, utf8Text...)
}

// DecodeInfoZipUnicode splits a record into its legacy-CRC and UTF-8
// payload. The caller is responsible for checking the CRC against
// the legacy bytes actually present in the header (spec section 4.3)
// since this package doesn't have access to them.
func DecodeInfoZipUnicode(raw []byte) (legacyCRC uint32, utf8Text []byte, err error) {
	if len(raw) < 5 {
		return 0, nil, ErrCorruptedData
	}
	if raw[0] != unicodeRecordVersion {
		return 0, nil, ErrCorruptedData
	}
	legacyCRC = binary.LittleEndian.Uint32(raw[1:5])
	utf8Text = raw[5:]
	return legacyCRC, utf8Text, nil
}

// WinZip/ZipArchive code-page record (0x5A4C) flag bits. The public
// APPNOTE doesn't document this record; the layout here is a
// transcription of quazip's QuaZipPrivate::storeWinZipExtraFields and
// its readers, which is the closest thing to a reference
// implementation available.
const (
	WinZipFilenameCodePageFlag = 1 << 0
	WinZipEncodedFilenameFlag  = 1 << 1
	WinZipCommentCodePageFlag  = 1 << 2
)

// WinZipCodePage is the decoded 0x5A4C record.
type WinZipCodePage struct {
	Flags              uint8
	FilenameCodePage   uint32
	CommentCodePage    uint32
	EncodedFilename    []byte // only meaningful if WinZipEncodedFilenameFlag is set
}

// EncodeWinZipCodePage serializes the version byte, flags, and
// whichever of the code-page/encoded-name fields the flags select, in
// the fixed order filename-code-page, encoded-filename, comment-code-page.
func EncodeWinZipCodePage(r WinZipCodePage) []byte {
	out := []byte{unicodeRecordVersion, r.Flags}
	put32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		out = append(out, b[:]...)
	}
	if r.Flags&WinZipFilenameCodePageFlag != 0 {
		put32(r.FilenameCodePage)
	}
	if r.Flags&WinZipEncodedFilenameFlag != 0 {
		out = append(out, r.EncodedFilename...)
	}
	if r.Flags&WinZipCommentCodePageFlag != 0 {
		put32(r.CommentCodePage)
	}
	return out
}

// DecodeWinZipCodePage parses a 0x5A4C record. When both the
// filename-code-page and comment-code-page flags are set and the
// encoded-filename flag is not, per the resolved Open Question in
// SPEC_FULL.md, the caller should decode the comment with
// CommentCodePage and the filename with FilenameCodePage; when only
// one code-page flag is set, the other field falls back to UTF-8 (the
// caller applies that fallback, since this function only exposes what
// was actually present).
func DecodeWinZipCodePage(raw []byte) (WinZipCodePage, error) {
	if len(raw) < 2 || raw[0] != unicodeRecordVersion {
		return WinZipCodePage{}, ErrCorruptedData
	}
	r := WinZipCodePage{Flags: raw[1]}
	raw = raw[2:]
	take32 := func() (uint32, error) {
		if len(raw) < 4 {
			return 0, ErrCorruptedData
		}
		v := binary.LittleEndian.Uint32(raw[:4])
		raw = raw[4:]
		return v, nil
	}
	if r.Flags&WinZipFilenameCodePageFlag != 0 {
		v, err := take32()
		if err != nil {
			return r, err
		}
		r.FilenameCodePage = v
	}
	if r.Flags&WinZipEncodedFilenameFlag != 0 {
		nameLen := len(raw)
		if r.Flags&WinZipCommentCodePageFlag != 0 {
			nameLen -= 4
		}
		if nameLen < 0 || nameLen > len(raw) {
			return r, ErrCorruptedData
		}
		r.EncodedFilename = append([]byte(nil), raw[:nameLen]...)
		raw = raw[nameLen:]
	}
	if r.Flags&WinZipCommentCodePageFlag != 0 {
		v, err := take32()
		if err != nil {
			return r, err
		}
		r.CommentCodePage = v
	}
	return r, nil
}
