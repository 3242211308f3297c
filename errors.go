package zipvault

import "errors"

// Error taxonomy (spec section 7). Each sentinel is compared with
// errors.Is; wrapped with fmt.Errorf("...: %w", ...) for context the
// way the teacher's internal/zip wraps ErrFormat/ErrChecksum.
var (
	// ErrParam is returned for a nonsensical argument: opening a mode
	// that doesn't fit the underlying stream, a sequential output in
	// anything but Create, etc.
	ErrParam = errors.New("zipvault: invalid argument")
	// ErrOpen is returned when the underlying stream couldn't be
	// opened or positioned as the requested mode needs.
	ErrOpen = errors.New("zipvault: could not open archive")
	// ErrBadArchive is returned when the end-of-central-directory
	// record can't be found, the ZIP64 locator is inconsistent, or a
	// declared count/length exceeds what this library can represent.
	ErrBadArchive = errors.New("zipvault: not a valid zip archive")
	// ErrCorruptedData is returned for a malformed extra-field
	// record or a CRC mismatch discovered at entry close.
	ErrCorruptedData = errors.New("zipvault: corrupted data")
	// ErrUnsupportedMethod is returned when a central-directory
	// entry's compression method is neither Stored nor Deflated.
	ErrUnsupportedMethod = errors.New("zipvault: unsupported compression method")
	// ErrBadPassword is returned when an encrypted entry's header
	// check byte doesn't match its declared CRC.
	ErrBadPassword = errors.New("zipvault: bad password")
	// ErrNeedDict is returned when a Deflate stream requests an
	// external dictionary, which this library doesn't support.
	ErrNeedDict = errors.New("zipvault: deflate stream needs an external dictionary")
	// ErrWriteLimit is returned when a size, offset or entry count
	// needs ZIP64 but ZIP64 can't be used: Zip64Enabled is false at
	// archive Close, or a back-patched local header has no reserved
	// ZIP64 slot. No check against a 2^63-1 position is made.
	ErrWriteLimit = errors.New("zipvault: write would exceed maximum entry size")
	// ErrFieldSizeLimit is returned when an extra-field value is too
	// long to fit its 16-bit length prefix.
	ErrFieldSizeLimit = errors.New("zipvault: extra field exceeds 65535 bytes")
	// ErrBufferSizeLimit is returned when encoding extra fields would
	// exceed a caller-supplied maximum.
	ErrBufferSizeLimit = errors.New("zipvault: extra field buffer size limit exceeded")
	// ErrNoSpanned is returned for a multi-volume archive, which is
	// explicitly out of scope.
	ErrNoSpanned = errors.New("zipvault: spanned archives not supported")
	// ErrClosed is returned by any operation attempted on a closed
	// Archive or EntryStream.
	ErrClosed = errors.New("zipvault: archive is closed")
	// ErrEntryOpen is returned when opening a second EntryStream
	// while one is already open on the same Archive.
	ErrEntryOpen = errors.New("zipvault: another entry stream is already open")
	// ErrEntryNotFound is returned by FindEntry/OpenEntryRead when no
	// entry matches the requested path.
	ErrEntryNotFound = errors.New("zipvault: entry not found")
	// ErrIOWrap marks a failure as coming from the underlying byte
	// stream rather than the archive's own logic. It is the sentinel
	// errors.Is matches: the stream's own error is appended to the
	// message as text (%v), not wrapped, so errors.Is can't match it.
	ErrIOWrap = errors.New("zipvault: underlying stream error")
)
