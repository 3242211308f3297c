// Package header encodes and decodes the fixed-layout records that
// make up a ZIP archive's skeleton: local file headers, data
// descriptors, central-directory entries, and the end-of-central-
// directory family (ZIP32, ZIP64 end record, ZIP64 locator).
// Grounded on the teacher's internal/zip.getEOCD and its ZIP64
// detection/locator logic, generalized from read-only parsing to a
// full encode/decode pair since this library also writes archives.
package header

import "errors"

// Record signatures (spec section 4.8). All multi-byte integers in
// this package are little-endian.
const (
	SigLocalFile        = 0x04034b50
	SigDataDescriptor   = 0x08074b50
	SigCentralDirectory = 0x02014b50
	SigEOCD             = 0x06054b50
	SigZip64EOCD        = 0x06064b50
	SigZip64Locator     = 0x07064b50
)

var (
	// ErrFormat is returned when a buffer's signature or length
	// doesn't match the record being decoded.
	ErrFormat = errors.New("header: not a valid record")
	// ErrNoSpanned is returned when a disk number or total-disks
	// field indicates a split archive, which this library doesn't
	// support.
	ErrNoSpanned = errors.New("header: spanned archives not supported")
)

// sentinel16/sentinel32 are the ZIP64 all-ones markers that promote a
// field into the extra-field ZIP64 record.
const (
	sentinel16 = 0xffff
	sentinel32 = 0xffffffff
)
