// Package extrafield encodes and decodes the <id, length, data> TLV
// sequence carried in ZIP local and central headers (APPNOTE 4.5),
// and the handful of record layouts this library understands:
// ZIP64, NTFS timestamps, the UNIX extended timestamp, Info-ZIP UNIX
// v1, the two Info-ZIP Unicode records, and the WinZip/ZipArchive
// code-page tag. Grounded on the teacher's internal/zip parseExtra,
// generalized from read-only to a full codec.
package extrafield

import "errors"

var (
	// ErrCorruptedData is returned when a declared record length
	// overruns the remaining buffer, per spec section 4.3.
	ErrCorruptedData = errors.New("extrafield: corrupted data")
	// ErrFieldSizeLimit is returned by Encode when a value is too
	// long to fit a 16-bit length prefix.
	ErrFieldSizeLimit = errors.New("extrafield: field exceeds 65535 bytes")
	// ErrBufferSizeLimit is returned by Encode when the cumulative
	// encoded size would exceed a caller-supplied maximum.
	ErrBufferSizeLimit = errors.New("extrafield: buffer size limit exceeded")
)

// Known record ids (spec section 4.3).
const (
	IDZip64              = 0x0001
	IDNTFS               = 0x000A
	IDUnixExtendedTime   = 0x5455
	IDInfoZipUnixV1      = 0x5855
	IDInfoZipUnicodePath = 0x7075
	IDInfoZipUnicodeCmt  = 0x6375
	IDZipArchiveCodePage = 0x5A4C
)

// Map is an order-preserving id -> data map, matching the spec's
// "duplicate ids keep the first occurrence" rule and the requirement
// that encode/decode round-trip for any map with values <= 65535
// bytes (spec section 8).
type Map struct {
	order []uint16
	data  map[uint16][]byte
}

// NewMap returns an empty Map ready for Set.
func NewMap() *Map {
	return &Map{data: make(map[uint16][]byte)}
}

// Get returns the raw bytes stored under id, if present.
func (m *Map) Get(id uint16) ([]byte, bool) {
	v, ok := m.data[id]
	return v, ok
}

// Set stores raw bytes under id, appending to the insertion order if
// id is new and overwriting in place if it already exists (so a
// caller rebuilding a Map from scratch never reorders existing ids).
func (m *Map) Set(id uint16, value []byte) {
	if m.data == nil {
		m.data = make(map[uint16][]byte)
	}
	if _, exists := m.data[id]; !exists {
		m.order = append(m.order, id)
	}
	m.data[id] = value
}

// Delete removes id from the map, if present.
func (m *Map) Delete(id uint16) {
	if _, ok := m.data[id]; !ok {
		return
	}
	delete(m.data, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// IDs returns the known ids in insertion order.
func (m *Map) IDs() []uint16 {
	out := make([]uint16, len(m.order))
	copy(out, m.order)
	return out
}

// Len reports how many distinct ids are stored.
func (m *Map) Len() int { return len(m.order) }
