package header

import "encoding/binary"

// Central is a decoded central-directory entry (spec section 4.8).
// CompressedSize, UncompressedSize and LocalHeaderOffset hold the
// legacy 32-bit field values as stored, sentinel included; resolving
// them from the ZIP64 extra field is left to the caller. NeedsZip64
// reports whether any of them is a sentinel.
type Central struct {
	VersionMadeBy     uint16
	VersionNeeded     uint16
	ZipOptions        uint16
	CompressionMethod uint16
	DOSTime           uint16
	DOSDate           uint16
	CRC32             uint32
	CompressedSize    uint32 // sentinel32 if promoted to ZIP64
	UncompressedSize  uint32 // sentinel32 if promoted to ZIP64
	DiskStart         uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	LocalHeaderOffset uint32 // sentinel32 if promoted to ZIP64
	FileName          []byte
	Extra             []byte
	Comment           []byte
}

const centralFixedLen = 46

// HasDataDescriptor mirrors Local.HasDataDescriptor for the
// central-directory copy of the general-purpose flags.
func (c Central) HasDataDescriptor() bool { return c.ZipOptions&(1<<3) != 0 }

// NeedsZip64 reports whether any of the fields this record carries in
// 32-bit form actually hit the ZIP64 sentinel and must be read from
// the accompanying extra-field ZIP64 record.
func (c Central) NeedsZip64() bool {
	return c.CompressedSize == sentinel32 || c.UncompressedSize == sentinel32 ||
		c.LocalHeaderOffset == sentinel32 || c.DiskStart == sentinel16
}

// EncodeCentral serializes the fixed fields followed by FileName,
// Extra and Comment.
func EncodeCentral(c Central) []byte {
	out := make([]byte, centralFixedLen, centralFixedLen+len(c.FileName)+len(c.Extra)+len(c.Comment))
	binary.LittleEndian.PutUint32(out[0:4], SigCentralDirectory)
	binary.LittleEndian.PutUint16(out[4:6], c.VersionMadeBy)
	binary.LittleEndian.PutUint16(out[6:8], c.VersionNeeded)
	binary.LittleEndian.PutUint16(out[8:10], c.ZipOptions)
	binary.LittleEndian.PutUint16(out[10:12], c.CompressionMethod)
	binary.LittleEndian.PutUint16(out[12:14], c.DOSTime)
	binary.LittleEndian.PutUint16(out[14:16], c.DOSDate)
	binary.LittleEndian.PutUint32(out[16:20], c.CRC32)
	binary.LittleEndian.PutUint32(out[20:24], c.CompressedSize)
	binary.LittleEndian.PutUint32(out[24:28], c.UncompressedSize)
	binary.LittleEndian.PutUint16(out[28:30], uint16(len(c.FileName)))
	binary.LittleEndian.PutUint16(out[30:32], uint16(len(c.Extra)))
	binary.LittleEndian.PutUint16(out[32:34], uint16(len(c.Comment)))
	binary.LittleEndian.PutUint16(out[34:36], c.DiskStart)
	binary.LittleEndian.PutUint16(out[36:38], c.InternalAttrs)
	binary.LittleEndian.PutUint32(out[38:42], c.ExternalAttrs)
	binary.LittleEndian.PutUint32(out[42:46], c.LocalHeaderOffset)
	out = append(out, c.FileName...)
	out = append(out, c.Extra...)
	out = append(out, c.Comment...)
	return out
}

// DecodeCentral parses a central-directory entry from the start of
// raw, returning the number of bytes consumed.
func DecodeCentral(raw []byte) (c Central, consumed int, err error) {
	if len(raw) < centralFixedLen {
		return c, 0, ErrFormat
	}
	if binary.LittleEndian.Uint32(raw[0:4]) != SigCentralDirectory {
		return c, 0, ErrFormat
	}
	c.VersionMadeBy = binary.LittleEndian.Uint16(raw[4:6])
	c.VersionNeeded = binary.LittleEndian.Uint16(raw[6:8])
	c.ZipOptions = binary.LittleEndian.Uint16(raw[8:10])
	c.CompressionMethod = binary.LittleEndian.Uint16(raw[10:12])
	c.DOSTime = binary.LittleEndian.Uint16(raw[12:14])
	c.DOSDate = binary.LittleEndian.Uint16(raw[14:16])
	c.CRC32 = binary.LittleEndian.Uint32(raw[16:20])
	c.CompressedSize = binary.LittleEndian.Uint32(raw[20:24])
	c.UncompressedSize = binary.LittleEndian.Uint32(raw[24:28])
	nameLen := int(binary.LittleEndian.Uint16(raw[28:30]))
	extraLen := int(binary.LittleEndian.Uint16(raw[30:32]))
	commentLen := int(binary.LittleEndian.Uint16(raw[32:34]))
	c.DiskStart = binary.LittleEndian.Uint16(raw[34:36])
	c.InternalAttrs = binary.LittleEndian.Uint16(raw[36:38])
	c.ExternalAttrs = binary.LittleEndian.Uint32(raw[38:42])
	c.LocalHeaderOffset = binary.LittleEndian.Uint32(raw[42:46])
	need := centralFixedLen + nameLen + extraLen + commentLen
	if len(raw) < need {
		return c, 0, ErrFormat
	}
	pos := centralFixedLen
	c.FileName = append([]byte(nil), raw[pos:pos+nameLen]...)
	pos += nameLen
	c.Extra = append([]byte(nil), raw[pos:pos+extraLen]...)
	pos += extraLen
	c.Comment = append([]byte(nil), raw[pos:pos+commentLen]...)
	return c, need, nil
}
