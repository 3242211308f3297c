package timecode

import (
	"time"

	"github.com/archivekit/zipvault/internal/extrafield"
)

// Resolved holds the three timestamps spec section 3 names on
// EntryMetadata. Times unavailable from any source fall back to
// Modified, per spec section 4.5.
type Resolved struct {
	Modified, Created, Accessed time.Time
}

// Resolve implements spec section 4.5's decode preference order:
// NTFS (local) beats the UNIX extended timestamp (which itself
// requires the local and central halves to agree on modtime) beats
// Info-ZIP UNIX v1 beats the plain DOS date in the common header.
//
// The NTFS presence check follows the *intended* semantics the Open
// Question in spec.md flags as inverted in the original source: NTFS
// is used whenever its tag-1 sub-block is present, not when absent.
func Resolve(dos DOSDateTime, centralExtra, localExtra *extrafield.Map) Resolved {
	fallback := DecodeDOS(dos)
	r := Resolved{Modified: fallback, Created: fallback, Accessed: fallback}

	if raw, ok := localExtra.Get(extrafield.IDNTFS); ok {
		if nt, present := extrafield.DecodeNTFS(raw); present {
			r.Modified = DecodeNTFS(nt.Modified)
			r.Created = DecodeNTFS(nt.Created)
			r.Accessed = DecodeNTFS(nt.Accessed)
			return r
		}
	}

	if agreesOnModtime(centralExtra, localExtra) {
		if raw, ok := localExtra.Get(extrafield.IDUnixExtendedTime); ok {
			if ut, err := extrafield.DecodeUnixExtendedTime(raw); err == nil && ut.Flags&extrafield.UnixTimeHasModified != 0 {
				r.Modified = DecodeUnix32(ut.Modified)
				r.Created = r.Modified
				r.Accessed = r.Modified
				if ut.Flags&extrafield.UnixTimeHasAccessed != 0 {
					r.Accessed = DecodeUnix32(ut.Accessed)
				}
				if ut.Flags&extrafield.UnixTimeHasCreated != 0 {
					r.Created = DecodeUnix32(ut.Created)
				}
				return r
			}
		}
	}

	if raw, ok := localExtra.Get(extrafield.IDInfoZipUnixV1); ok {
		if v1, err := extrafield.DecodeInfoZipUnixV1(raw); err == nil {
			r.Modified = DecodeUnix32(v1.Modified)
			r.Accessed = DecodeUnix32(v1.Accessed)
			r.Created = r.Modified
			return r
		}
	}

	return r
}

// agreesOnModtime implements the central+local cross-check spec
// section 4.5 requires of the UNIX extended timestamp record: the
// central-directory half (mtime only) must match the local half's
// modtime, or the record doesn't apply to this entry.
func agreesOnModtime(centralExtra, localExtra *extrafield.Map) bool {
	centralRaw, hasCentral := centralExtra.Get(extrafield.IDUnixExtendedTime)
	localRaw, hasLocal := localExtra.Get(extrafield.IDUnixExtendedTime)
	if !hasLocal {
		return false
	}
	if !hasCentral {
		// No central half to disagree with; accept the local record
		// on its own, matching lenient real-world writers that only
		// ever emit the local half.
		return true
	}
	central, err := extrafield.DecodeUnixExtendedTime(centralRaw)
	if err != nil || central.Flags&extrafield.UnixTimeHasModified == 0 {
		return false
	}
	local, err := extrafield.DecodeUnixExtendedTime(localRaw)
	if err != nil || local.Flags&extrafield.UnixTimeHasModified == 0 {
		return false
	}
	return central.Modified == local.Modified
}
