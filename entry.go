package zipvault

import (
	"io/fs"
	"strings"
	"time"

	"github.com/archivekit/zipvault/internal/directory"
	"github.com/archivekit/zipvault/internal/extrafield"
	"github.com/archivekit/zipvault/internal/header"
	"github.com/archivekit/zipvault/internal/pkware"
	"github.com/archivekit/zipvault/internal/timecode"
)

// EntryType classifies an EntryMetadata per spec section 3.
type EntryType uint8

const (
	TypeFile EntryType = iota
	TypeDirectory
	TypeSymLink
)

// General-purpose zipOptions flag bits (spec section 3's "zipOptions
// bitfield": Encryption, two compression-quality bits, HasDataDescriptor,
// StrongEncryption, Patch, Unicode, LocalHeaderMasking).
const (
	OptEncryption         uint16 = 1 << 0
	OptCompressionBit1    uint16 = 1 << 1
	OptCompressionBit2    uint16 = 1 << 2
	OptHasDataDescriptor  uint16 = 1 << 3
	OptPatch              uint16 = 1 << 5
	OptStrongEncryption   uint16 = 1 << 6
	OptUnicode            uint16 = 1 << 11
	OptLocalHeaderMasking uint16 = 1 << 13
)

// CompressionQuality is the Deflate quality hint packed into the two
// compression-option bits of zipOptions.
type CompressionQuality uint8

const (
	QualityNormal CompressionQuality = iota
	QualityMax
	QualityFast
	QualitySuperFast
)

// HostOS re-exports internal/header's host-OS enumeration (spec
// section 6).
type HostOS = header.HostOS

const (
	HostMSDOS       = header.HostMSDOS
	HostUnix        = header.HostUnix
	HostWindowsNTFS = header.HostNTFS
	HostMacOS       = header.HostMacOS
)

// Compression methods this library understands on read; write only
// ever emits Stored or Deflated (spec section 6).
const (
	MethodStored   uint16 = 0
	MethodDeflated uint16 = 8
)

// EntryMetadata is the per-entry value spec section 3 describes:
// copied freely, never shared by pointer across entries.
type EntryMetadata struct {
	FilePath      string
	EntryType     EntryType
	SymLinkTarget string

	UncompressedSize int64
	CompressedSize   int64
	CRC32            uint32

	CompressionMethod   uint16
	CompressionLevel    int
	CompressionStrategy int
	CompressionQuality  CompressionQuality

	ZipOptions    uint16
	MadeBy        uint16
	VersionNeeded uint16

	InternalAttributes uint16
	ExternalAttributes uint32
	Permissions        fs.FileMode

	DiskNumber uint16

	CreationTime     time.Time
	ModificationTime time.Time
	LastAccessTime   time.Time

	Comment string

	CentralExtraFields *extrafield.Map
	LocalExtraFields   *extrafield.Map

	CryptKeys *pkware.KeyState

	// Raw, when true, means read yields the still-compressed bytes
	// and write expects already-compressed bytes (spec section 3).
	Raw bool
}

// NewFileMetadata returns metadata for a regular file entry at path,
// with 0644 permissions and the host fields (MadeBy,
// ExternalAttributes) left at their zero value for OpenEntryWrite to
// fill in.
func NewFileMetadata(path string) EntryMetadata {
	return EntryMetadata{
		FilePath:          path,
		EntryType:         TypeFile,
		CompressionMethod: MethodDeflated,
		CompressionLevel:  -1,
		VersionNeeded:     20,
		Permissions:       0644,
	}
}

// NewDirectoryMetadata returns metadata for a directory entry,
// appending a trailing slash to path if it's missing (spec section
// 3's entryType/filePath invariant).
func NewDirectoryMetadata(path string) EntryMetadata {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return EntryMetadata{
		FilePath:          path,
		EntryType:         TypeDirectory,
		CompressionMethod: MethodStored,
		VersionNeeded:     20,
		Permissions:       fs.ModeDir | 0755,
	}
}

// NewSymLinkMetadata returns metadata for a symbolic-link entry whose
// payload is the link target's raw bytes.
func NewSymLinkMetadata(path, target string) EntryMetadata {
	return EntryMetadata{
		FilePath:          path,
		EntryType:         TypeSymLink,
		SymLinkTarget:     target,
		CompressionMethod: MethodStored,
		VersionNeeded:     20,
		Permissions:       fs.ModeSymlink | 0777,
	}
}

// Clone returns a deep copy: the extra-field maps are independent of
// the original, matching spec section 3's "copied freely, value
// semantics" with no shared-pointer graph (spec section 9).
func (m EntryMetadata) Clone() EntryMetadata {
	out := m
	out.CentralExtraFields = cloneExtraMap(m.CentralExtraFields)
	out.LocalExtraFields = cloneExtraMap(m.LocalExtraFields)
	return out
}

func cloneExtraMap(m *extrafield.Map) *extrafield.Map {
	if m == nil {
		return nil
	}
	out := extrafield.NewMap()
	for _, id := range m.IDs() {
		v, _ := m.Get(id)
		cp := append([]byte(nil), v...)
		out.Set(id, cp)
	}
	return out
}

// Validate checks the invariants spec section 3 places on
// EntryMetadata before it's handed to OpenEntryWrite.
func (m EntryMetadata) Validate() error {
	if strings.HasPrefix(m.FilePath, "/") {
		return ErrParam
	}
	isDir := strings.HasSuffix(m.FilePath, "/")
	if (m.EntryType == TypeDirectory) != isDir {
		return ErrParam
	}
	if m.EntryType == TypeSymLink {
		if m.SymLinkTarget == "" {
			return ErrParam
		}
		switch HostOS(m.MadeBy >> 8) {
		case HostUnix, HostMacOS, header.HostBeOS, header.HostOpenVMS, header.HostAtariST:
		default:
			return ErrParam
		}
	}
	if m.CompressionMethod != MethodStored && m.CompressionMethod != MethodDeflated {
		return ErrUnsupportedMethod
	}
	return nil
}

// metadataFromCentral builds the EntryMetadata FindEntry/Entries
// returns from a resolved directory entry, without reading that
// entry's local header. Times are resolved from the central-directory
// extra fields alone (the UNIX extended timestamp's central half, or
// NTFS/Info-ZIP v1 if a writer duplicated them there); OpenEntryRead
// resolves the fuller local+central precedence order once it reads
// the local header.
func metadataFromCentral(e directory.Entry) EntryMetadata {
	c := e.Central
	extras, err := extrafield.Decode(c.Extra)
	if err != nil {
		extras = extrafield.NewMap()
	}
	resolved := timecode.Resolve(timecode.DOSDateTime{Time: c.DOSTime, Date: c.DOSDate}, extras, extras)

	m := EntryMetadata{
		FilePath:           e.Path,
		UncompressedSize:   int64(e.UncompressedSize),
		CompressedSize:     int64(e.CompressedSize),
		CRC32:              c.CRC32,
		CompressionMethod:  c.CompressionMethod,
		ZipOptions:         c.ZipOptions,
		MadeBy:             c.VersionMadeBy,
		VersionNeeded:      c.VersionNeeded,
		InternalAttributes: c.InternalAttrs,
		ExternalAttributes: c.ExternalAttrs,
		Permissions:        header.FileModeFromExternalAttrs(c.VersionMadeBy, c.ExternalAttrs),
		DiskNumber:         uint16(c.DiskStart),
		ModificationTime:   resolved.Modified,
		CreationTime:       resolved.Created,
		LastAccessTime:     resolved.Accessed,
		CentralExtraFields: extras,
	}
	if strings.HasSuffix(m.FilePath, "/") {
		m.EntryType = TypeDirectory
	} else if m.Permissions&fs.ModeSymlink != 0 {
		m.EntryType = TypeSymLink
	} else {
		m.EntryType = TypeFile
	}
	if len(c.Comment) > 0 {
		m.Comment = string(c.Comment)
	}
	return m
}
