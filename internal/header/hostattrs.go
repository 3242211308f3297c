package header

import "io/fs"

// HostOS is the one-byte host-OS field spec section 6 packs into the
// high byte of versionMadeBy.
type HostOS uint8

const (
	HostMSDOS      HostOS = 0
	HostAmiga      HostOS = 1
	HostOpenVMS    HostOS = 2
	HostUnix       HostOS = 3
	HostVMCMS      HostOS = 4
	HostAtariST    HostOS = 5
	HostOS2HPFS    HostOS = 6
	HostMacintosh  HostOS = 7
	HostZSystem    HostOS = 8
	HostCPM        HostOS = 9
	HostTOPS20     HostOS = 10
	HostNTFS       HostOS = 11
	HostQDOS       HostOS = 12
	HostAcornRISCOS HostOS = 13
	HostVFAT       HostOS = 14
	HostMVS        HostOS = 15
	HostBeOS       HostOS = 16
	HostTandem     HostOS = 17
	HostTHEOS      HostOS = 18
	HostMacOS      HostOS = 19
)

// SpecVersion is the low byte of versionMadeBy/versionNeeded this
// library writes; APPNOTE 6.3.4 in decimal tenths.
const SpecVersion = 63

// VersionMadeBy packs host and SpecVersion into the versionMadeBy
// field's two bytes.
func VersionMadeBy(host HostOS) uint16 {
	return uint16(host)<<8 | SpecVersion
}

// Host-OS constants the UNIX/DOS mode bits below are grounded on; the
// spec doesn't define them but these are the values every ZIP tool
// agrees on.
const (
	unixIFMT   = 0xf000
	unixIFSOCK = 0xc000
	unixIFLNK  = 0xa000
	unixIFREG  = 0x8000
	unixIFBLK  = 0x6000
	unixIFDIR  = 0x4000
	unixIFCHR  = 0x2000
	unixIFIFO  = 0x1000
	unixISUID  = 0x800
	unixISGID  = 0x400
	unixISVTX  = 0x200

	dosDir      = 0x10
	dosReadOnly = 0x01
)

// DOS attribute-byte bits, exported for callers that need to inspect
// the low byte of externalAttrs directly (every writer, UNIX-hosted
// or not, mirrors directory/read-only into this byte; Hidden/System/
// Archive only ever come from a DOS-hosted writer).
const (
	AttrReadOnly  uint32 = 0x01
	AttrHidden    uint32 = 0x02
	AttrSystem    uint32 = 0x04
	AttrDirectory uint32 = 0x10
	AttrArchive   uint32 = 0x20
)

// DOSAttrByte returns the low byte of externalAttrs, the DOS
// attribute bits every writer populates regardless of host OS.
func DOSAttrByte(externalAttrs uint32) uint32 { return externalAttrs & 0xff }

// EncodeUnixExternalAttrs packs a UNIX mode into the high 16 bits of
// externalAttrs, with the DOS directory/read-only bits mirrored into
// the low byte so non-UNIX-aware tools still see a sane attribute.
func EncodeUnixExternalAttrs(mode fs.FileMode) uint32 {
	var m uint32
	switch {
	case mode&fs.ModeSymlink != 0:
		m = unixIFLNK
	case mode&fs.ModeSocket != 0:
		m = unixIFSOCK
	case mode&fs.ModeNamedPipe != 0:
		m = unixIFIFO
	case mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice != 0:
		m = unixIFCHR
	case mode&fs.ModeDevice != 0:
		m = unixIFBLK
	case mode.IsDir():
		m = unixIFDIR
	default:
		m = unixIFREG
	}
	m |= uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		m |= unixISUID
	}
	if mode&fs.ModeSetgid != 0 {
		m |= unixISGID
	}
	if mode&fs.ModeSticky != 0 {
		m |= unixISVTX
	}
	low := uint32(0)
	if mode.IsDir() {
		low |= dosDir
	}
	if mode.Perm()&0200 == 0 {
		low |= dosReadOnly
	}
	return m<<16 | low
}

// DecodeUnixExternalAttrs reverses EncodeUnixExternalAttrs, the way
// the teacher's unixModeToFileMode does.
func DecodeUnixExternalAttrs(attrs uint32) fs.FileMode {
	m := attrs >> 16
	mode := fs.FileMode(m & 0777)
	switch m & unixIFMT {
	case unixIFBLK:
		mode |= fs.ModeDevice
	case unixIFCHR:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case unixIFDIR:
		mode |= fs.ModeDir
	case unixIFIFO:
		mode |= fs.ModeNamedPipe
	case unixIFLNK:
		mode |= fs.ModeSymlink
	case unixIFSOCK:
		mode |= fs.ModeSocket
	}
	if m&unixISGID != 0 {
		mode |= fs.ModeSetgid
	}
	if m&unixISUID != 0 {
		mode |= fs.ModeSetuid
	}
	if m&unixISVTX != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}

// DecodeDOSExternalAttrs interprets externalAttrs produced by a
// non-UNIX-aware writer (host OS other than UNIX), falling back to
// the DOS directory/read-only bits in the low byte.
func DecodeDOSExternalAttrs(attrs uint32) fs.FileMode {
	low := attrs & 0xff
	var mode fs.FileMode
	if low&dosDir != 0 {
		mode = fs.ModeDir | 0777
	} else {
		mode = 0666
	}
	if low&dosReadOnly != 0 {
		mode &^= 0222
	}
	return mode
}

// FileModeFromExternalAttrs picks the UNIX or DOS interpretation of
// externalAttrs based on the host OS recorded in versionMadeBy.
func FileModeFromExternalAttrs(versionMadeBy uint16, externalAttrs uint32) fs.FileMode {
	if HostOS(versionMadeBy>>8) == HostUnix {
		return DecodeUnixExternalAttrs(externalAttrs)
	}
	return DecodeDOSExternalAttrs(externalAttrs)
}
