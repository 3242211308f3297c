package extrafield

import "encoding/binary"

// Decode parses the TLV sequence in raw into an order-preserving Map.
// A declared length that overruns the remaining buffer is
// ErrCorruptedData, as is a final position short of the total
// declared size (a truncated trailing record). Duplicate ids keep
// their first occurrence and later ones are ignored, matching
// quazip's QuaZExtraField::setAll.
func Decode(raw []byte) (*Map, error) {
	m := NewMap()
	for len(raw) > 0 {
		if len(raw) < 4 {
			return nil, ErrCorruptedData
		}
		id := binary.LittleEndian.Uint16(raw[0:2])
		length := int(binary.LittleEndian.Uint16(raw[2:4]))
		raw = raw[4:]
		if length > len(raw) {
			return nil, ErrCorruptedData
		}
		value := raw[:length]
		raw = raw[length:]
		if _, exists := m.data[id]; !exists {
			cp := make([]byte, len(value))
			copy(cp, value)
			m.Set(id, cp)
		}
	}
	return m, nil
}

// Encode serializes m's records in insertion order into the TLV wire
// format. If maxSize is non-negative, Encode fails with
// ErrBufferSizeLimit rather than returning a buffer larger than
// maxSize; any individual value longer than 65535 bytes fails with
// ErrFieldSizeLimit before any output is produced.
func Encode(m *Map, maxSize int) ([]byte, error) {
	for _, id := range m.order {
		if len(m.data[id]) > 0xFFFF {
			return nil, ErrFieldSizeLimit
		}
	}
	var out []byte
	for _, id := range m.order {
		v := m.data[id]
		rec := make([]byte, 4+len(v))
		binary.LittleEndian.PutUint16(rec[0:2], id)
		binary.LittleEndian.PutUint16(rec[2:4], uint16(len(v)))
		copy(rec[4:], v)
		if maxSize >= 0 && len(out)+len(rec) > maxSize {
			return nil, ErrBufferSizeLimit
		}
		out = append(out, rec...)
	}
	return out, nil
}
