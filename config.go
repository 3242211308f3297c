package zipvault

import (
	"github.com/archivekit/zipvault/internal/directory"
	"github.com/archivekit/zipvault/internal/pathcodec"
)

// Compatibility re-exports internal/pathcodec's bitfield (spec
// section 6) so callers don't need to import an internal package to
// configure an Archive.
type Compatibility = pathcodec.Compatibility

const (
	CustomCompatibility  = pathcodec.CustomCompatibility
	DosCompatible        = pathcodec.DosCompatible
	UnixCompatible       = pathcodec.UnixCompatible
	WindowsCompatible    = pathcodec.WindowsCompatible
	DefaultCompatibility = pathcodec.DefaultCompatibility
)

// Codec re-exports the path/comment encoding interface CustomCompatibility
// is backed by.
type Codec = pathcodec.Codec

// Defaults is the explicit configuration object spec section 9 calls
// for in place of global mutable state: constructed once, threaded
// into Open/Create/Append/Add, and never mutated implicitly by the
// library.
type Defaults struct {
	// Compatibility governs how paths, timestamps and attributes are
	// encoded on write.
	Compatibility Compatibility
	// PathCodec backs CustomCompatibility; ignored otherwise.
	PathCodec Codec
	// CodePageRegistry resolves a WinZip/legacy code-page number to a
	// Codec; DefaultRegistry() if nil.
	CodePageRegistry map[uint32]Codec
	// Lowercaser folds a path for case-insensitive lookups;
	// strings.ToLower if nil (spec section 4.9).
	Lowercaser directory.Lowercaser
	// CaseSensitive overrides the platform default case-sensitivity
	// policy for path lookups that don't specify one explicitly.
	CaseSensitive *bool
	// Zip64Enabled governs writes only: whether a size, offset or
	// count that would overflow a legacy field is promoted to ZIP64
	// rather than rejected.
	Zip64Enabled bool
	// DataDescriptorWritingEnabled requests a trailing data
	// descriptor on every written entry instead of a back-patched
	// local header. Forced true on a sequential (non-seekable)
	// output regardless of this setting (spec section 4.10), and on
	// an encrypted entry that isn't written raw.
	DataDescriptorWritingEnabled bool
	// CompressionLevel records a level (-1 means "library default",
	// matching zlib's convention). OpenEntryWrite does not read it:
	// each entry is compressed at its own EntryMetadata.CompressionLevel.
	CompressionLevel int
	// Password, if set, seeds the KeyState used for encrypted
	// entries that don't carry their own CryptKeys.
	Password []byte
}

// NewDefaults returns the configuration this library uses when a
// caller doesn't override anything: DefaultCompatibility, pathcodec's
// default code-page registry, ZIP64 enabled, data descriptors
// enabled, and zlib's "library default" compression level.
func NewDefaults() Defaults {
	return Defaults{
		Compatibility:                DefaultCompatibility,
		CodePageRegistry:             pathcodec.DefaultRegistry(),
		Zip64Enabled:                 true,
		DataDescriptorWritingEnabled: true,
		CompressionLevel:             -1,
	}
}

func (d Defaults) registry() map[uint32]Codec {
	if d.CodePageRegistry != nil {
		return d.CodePageRegistry
	}
	return pathcodec.DefaultRegistry()
}

func (d Defaults) caseSensitive() bool {
	if d.CaseSensitive != nil {
		return *d.CaseSensitive
	}
	return directory.DefaultCaseSensitivity()
}
