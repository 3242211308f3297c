package header

import "encoding/binary"

// Local is a decoded local file header (spec section 4.8), fixed
// portion plus the variable-length name and extra bytes.
type Local struct {
	VersionNeeded     uint16
	ZipOptions        uint16
	CompressionMethod uint16
	DOSTime           uint16
	DOSDate           uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	FileName          []byte
	Extra             []byte
}

const localFixedLen = 30

// HasDataDescriptor reports the general-purpose flag bit 3, which
// spec section 4.8 uses to decide whether CRC and sizes are trusted
// from the local header or deferred to a trailing data descriptor.
func (h Local) HasDataDescriptor() bool { return h.ZipOptions&(1<<3) != 0 }

// EncodeLocal serializes the fixed fields followed by FileName and
// Extra, per spec section 4.8's local file header layout.
func EncodeLocal(h Local) []byte {
	out := make([]byte, localFixedLen, localFixedLen+len(h.FileName)+len(h.Extra))
	binary.LittleEndian.PutUint32(out[0:4], SigLocalFile)
	binary.LittleEndian.PutUint16(out[4:6], h.VersionNeeded)
	binary.LittleEndian.PutUint16(out[6:8], h.ZipOptions)
	binary.LittleEndian.PutUint16(out[8:10], h.CompressionMethod)
	binary.LittleEndian.PutUint16(out[10:12], h.DOSTime)
	binary.LittleEndian.PutUint16(out[12:14], h.DOSDate)
	binary.LittleEndian.PutUint32(out[14:18], h.CRC32)
	binary.LittleEndian.PutUint32(out[18:22], h.CompressedSize)
	binary.LittleEndian.PutUint32(out[22:26], h.UncompressedSize)
	binary.LittleEndian.PutUint16(out[26:28], uint16(len(h.FileName)))
	binary.LittleEndian.PutUint16(out[28:30], uint16(len(h.Extra)))
	out = append(out, h.FileName...)
	out = append(out, h.Extra...)
	return out
}

// DecodeLocal parses a local file header from the start of raw,
// returning the number of bytes consumed.
func DecodeLocal(raw []byte) (h Local, consumed int, err error) {
	if len(raw) < localFixedLen {
		return h, 0, ErrFormat
	}
	if binary.LittleEndian.Uint32(raw[0:4]) != SigLocalFile {
		return h, 0, ErrFormat
	}
	h.VersionNeeded = binary.LittleEndian.Uint16(raw[4:6])
	h.ZipOptions = binary.LittleEndian.Uint16(raw[6:8])
	h.CompressionMethod = binary.LittleEndian.Uint16(raw[8:10])
	h.DOSTime = binary.LittleEndian.Uint16(raw[10:12])
	h.DOSDate = binary.LittleEndian.Uint16(raw[12:14])
	h.CRC32 = binary.LittleEndian.Uint32(raw[14:18])
	h.CompressedSize = binary.LittleEndian.Uint32(raw[18:22])
	h.UncompressedSize = binary.LittleEndian.Uint32(raw[22:26])
	nameLen := int(binary.LittleEndian.Uint16(raw[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(raw[28:30]))
	need := localFixedLen + nameLen + extraLen
	if len(raw) < need {
		return h, 0, ErrFormat
	}
	h.FileName = append([]byte(nil), raw[localFixedLen:localFixedLen+nameLen]...)
	h.Extra = append([]byte(nil), raw[localFixedLen+nameLen:need]...)
	return h, need, nil
}

// DataDescriptor is the optional trailer spec section 4.8 describes,
// written after entry data when HasDataDescriptor is set.
type DataDescriptor struct {
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	Zip64            bool // sizes are 8 bytes wide instead of 4
}

// EncodeDataDescriptor always emits the optional signature; spec
// section 4.8 says the writer always emits it even though readers
// must tolerate its absence.
func EncodeDataDescriptor(d DataDescriptor) []byte {
	var out []byte
	if d.Zip64 {
		out = make([]byte, 4+4+8+8)
	} else {
		out = make([]byte, 4+4+4+4)
	}
	binary.LittleEndian.PutUint32(out[0:4], SigDataDescriptor)
	binary.LittleEndian.PutUint32(out[4:8], d.CRC32)
	if d.Zip64 {
		binary.LittleEndian.PutUint64(out[8:16], d.CompressedSize)
		binary.LittleEndian.PutUint64(out[16:24], d.UncompressedSize)
	} else {
		binary.LittleEndian.PutUint32(out[8:12], uint32(d.CompressedSize))
		binary.LittleEndian.PutUint32(out[12:16], uint32(d.UncompressedSize))
	}
	return out
}

// DecodeDataDescriptor parses a data descriptor from the start of
// raw, tolerating a missing signature (spec section 4.8: "reader
// tolerates absence"). zip64 selects the 8-byte size width.
func DecodeDataDescriptor(raw []byte, zip64 bool) (d DataDescriptor, consumed int, err error) {
	d.Zip64 = zip64
	if len(raw) >= 4 && binary.LittleEndian.Uint32(raw[0:4]) == SigDataDescriptor {
		raw = raw[4:]
		consumed = 4
	}
	sizeWidth := 4
	if zip64 {
		sizeWidth = 8
	}
	need := 4 + 2*sizeWidth
	if len(raw) < need {
		return d, 0, ErrFormat
	}
	d.CRC32 = binary.LittleEndian.Uint32(raw[0:4])
	if zip64 {
		d.CompressedSize = binary.LittleEndian.Uint64(raw[4:12])
		d.UncompressedSize = binary.LittleEndian.Uint64(raw[12:20])
	} else {
		d.CompressedSize = uint64(binary.LittleEndian.Uint32(raw[4:8]))
		d.UncompressedSize = uint64(binary.LittleEndian.Uint32(raw[8:12]))
	}
	consumed += need
	return d, consumed, nil
}
