package header

import "encoding/binary"

// EOCD is the resolved end-of-central-directory state, after folding
// in a ZIP64 end record and locator if one was present. This is the
// shape DirectoryIndex construction wants; the ZIP32/ZIP64 wire
// distinction only matters to Encode/Decode.
type EOCD struct {
	ThisDisk        uint32
	CentralDisk     uint32
	EntriesThisDisk uint64
	TotalEntries    uint64
	CentralSize     uint64
	CentralOffset   uint64
	Comment         []byte
}

// NeedsZip64 reports whether any field would overflow the ZIP32
// end-of-central-directory record's 16- or 32-bit fields, per spec
// section 4.8's ZIP64 promotion rule.
func (e EOCD) NeedsZip64() bool {
	return e.ThisDisk != 0 || e.CentralDisk != 0 ||
		e.EntriesThisDisk >= sentinel16 || e.TotalEntries >= sentinel16 ||
		e.CentralSize >= sentinel32 || e.CentralOffset >= sentinel32
}

const eocdFixedLen = 22

// EncodeEOCD32 serializes the legacy ZIP32 end record. Callers
// writing a ZIP64 archive must also call EncodeZip64EOCD and
// EncodeZip64Locator and set this record's count/size/offset fields
// to their all-ones sentinels first.
func EncodeEOCD32(e EOCD) []byte {
	out := make([]byte, eocdFixedLen, eocdFixedLen+len(e.Comment))
	binary.LittleEndian.PutUint32(out[0:4], SigEOCD)
	binary.LittleEndian.PutUint16(out[4:6], uint16(e.ThisDisk))
	binary.LittleEndian.PutUint16(out[6:8], uint16(e.CentralDisk))
	binary.LittleEndian.PutUint16(out[8:10], uint16(e.EntriesThisDisk))
	binary.LittleEndian.PutUint16(out[10:12], uint16(e.TotalEntries))
	binary.LittleEndian.PutUint32(out[12:16], uint32(e.CentralSize))
	binary.LittleEndian.PutUint32(out[16:20], uint32(e.CentralOffset))
	binary.LittleEndian.PutUint16(out[20:22], uint16(len(e.Comment)))
	out = append(out, e.Comment...)
	return out
}

const zip64EOCDFixedLen = 56

// EncodeZip64EOCD serializes the ZIP64 end record (spec section 4.8),
// fixed fields only; this library never writes the optional
// "zip64 extensible data sector" APPNOTE allows after it.
func EncodeZip64EOCD(e EOCD, versionMadeBy, versionNeeded uint16) []byte {
	out := make([]byte, zip64EOCDFixedLen)
	binary.LittleEndian.PutUint32(out[0:4], SigZip64EOCD)
	binary.LittleEndian.PutUint64(out[4:12], zip64EOCDFixedLen-12)
	binary.LittleEndian.PutUint16(out[12:14], versionMadeBy)
	binary.LittleEndian.PutUint16(out[14:16], versionNeeded)
	binary.LittleEndian.PutUint32(out[16:20], e.ThisDisk)
	binary.LittleEndian.PutUint32(out[20:24], e.CentralDisk)
	binary.LittleEndian.PutUint64(out[24:32], e.EntriesThisDisk)
	binary.LittleEndian.PutUint64(out[32:40], e.TotalEntries)
	binary.LittleEndian.PutUint64(out[40:48], e.CentralSize)
	binary.LittleEndian.PutUint64(out[48:56], e.CentralOffset)
	return out
}

const zip64LocatorLen = 20

// EncodeZip64Locator serializes the 20-byte locator that precedes the
// ZIP32 end record, pointing back at the ZIP64 end record.
func EncodeZip64Locator(zip64EOCDOffset uint64) []byte {
	out := make([]byte, zip64LocatorLen)
	binary.LittleEndian.PutUint32(out[0:4], SigZip64Locator)
	binary.LittleEndian.PutUint32(out[4:8], 0) // disk holding the ZIP64 end record
	binary.LittleEndian.PutUint64(out[8:16], zip64EOCDOffset)
	binary.LittleEndian.PutUint32(out[16:20], 1) // total number of disks
	return out
}

// FindEOCD scans backward from the end of an archive of the given
// size for the ZIP32 end-of-central-directory signature. The record
// can carry a trailing comment of up to 65535 bytes, so the whole tail
// (22 bytes plus up to 64 KiB) is pulled into memory once, then
// candidate start positions are tried from the end of the buffer
// backward: the declared comment-length field must account for every
// remaining byte in the tail exactly, and the comment itself must be
// free of stray control characters, matching the restriction archive
// tools apply when a spurious signature appears inside binary comment
// data.
func FindEOCD(readAt func(p []byte, off int64) (int, error), size int64) ([]byte, error) {
	if size < eocdFixedLen {
		return nil, ErrFormat
	}
	tailLen := int(min(eocdFixedLen+65535, size))
	tail := make([]byte, tailLen)
	if n, err := readAt(tail, size-int64(tailLen)); n != tailLen {
		if err != nil {
			return nil, err
		}
		return nil, ErrFormat
	}

	for start := tailLen - eocdFixedLen; start >= 0; start-- {
		if binary.LittleEndian.Uint32(tail[start:start+4]) != SigEOCD {
			continue
		}
		commentLen := int(binary.LittleEndian.Uint16(tail[start+20 : start+22]))
		if start+eocdFixedLen+commentLen != tailLen {
			continue
		}
		if !commentIsClean(tail[start+eocdFixedLen:]) {
			continue
		}
		return tail[start:], nil
	}
	return nil, ErrFormat
}

// commentIsClean rejects control characters other than tab, newline
// and carriage return, so a signature-shaped byte sequence embedded in
// unrelated trailing binary data doesn't get mistaken for the comment
// of a genuine end-of-central-directory record.
func commentIsClean(comment []byte) bool {
	for _, ch := range comment {
		if ch < 32 && ch != '\t' && ch != '\n' && ch != '\r' {
			return false
		}
	}
	return true
}

// DecodeEOCD parses a ZIP32 end record already located by FindEOCD.
func DecodeEOCD(raw []byte) (e EOCD, err error) {
	if len(raw) < eocdFixedLen || binary.LittleEndian.Uint32(raw[0:4]) != SigEOCD {
		return e, ErrFormat
	}
	e.ThisDisk = uint32(binary.LittleEndian.Uint16(raw[4:6]))
	e.CentralDisk = uint32(binary.LittleEndian.Uint16(raw[6:8]))
	e.EntriesThisDisk = uint64(binary.LittleEndian.Uint16(raw[8:10]))
	e.TotalEntries = uint64(binary.LittleEndian.Uint16(raw[10:12]))
	e.CentralSize = uint64(binary.LittleEndian.Uint32(raw[12:16]))
	e.CentralOffset = uint64(binary.LittleEndian.Uint32(raw[16:20]))
	commentLen := int(binary.LittleEndian.Uint16(raw[20:22]))
	if len(raw) < eocdFixedLen+commentLen {
		return e, ErrFormat
	}
	e.Comment = append([]byte(nil), raw[eocdFixedLen:eocdFixedLen+commentLen]...)
	return e, nil
}

// DecodeZip64Locator parses the 20-byte locator immediately preceding
// the ZIP32 end record, returning the absolute offset of the ZIP64
// end record.
func DecodeZip64Locator(raw []byte) (zip64EOCDOffset int64, err error) {
	if len(raw) < zip64LocatorLen || binary.LittleEndian.Uint32(raw[0:4]) != SigZip64Locator {
		return 0, ErrFormat
	}
	eocd64Disk := binary.LittleEndian.Uint32(raw[4:8])
	offset := int64(binary.LittleEndian.Uint64(raw[8:16]))
	totalDisks := binary.LittleEndian.Uint32(raw[16:20])
	if eocd64Disk != 0 || totalDisks != 1 {
		return 0, ErrNoSpanned
	}
	return offset, nil
}

// DecodeZip64EOCD parses the ZIP64 end record at the offset
// DecodeZip64Locator returned.
func DecodeZip64EOCD(raw []byte) (e EOCD, err error) {
	if len(raw) < zip64EOCDFixedLen || binary.LittleEndian.Uint32(raw[0:4]) != SigZip64EOCD {
		return e, ErrFormat
	}
	e.ThisDisk = binary.LittleEndian.Uint32(raw[16:20])
	e.CentralDisk = binary.LittleEndian.Uint32(raw[20:24])
	e.EntriesThisDisk = binary.LittleEndian.Uint64(raw[24:32])
	e.TotalEntries = binary.LittleEndian.Uint64(raw[32:40])
	e.CentralSize = binary.LittleEndian.Uint64(raw[40:48])
	e.CentralOffset = binary.LittleEndian.Uint64(raw[48:56])
	if e.ThisDisk != 0 || e.CentralDisk != 0 {
		return e, ErrNoSpanned
	}
	return e, nil
}
