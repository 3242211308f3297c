// Package timecode converts between calendar time and the several
// timestamp encodings a ZIP archive can carry: the DOS date+time pair
// every entry has, NTFS's 100ns-since-1601 triple, and UNIX's 32-bit
// epoch seconds, plus the decode-preference order spec section 4.5
// defines between them. Grounded on the teacher's internal/zip
// times.go, generalized from read-only decode to a symmetric codec.
package timecode

import "time"

var (
	dosEpochMin = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	dosEpochMax = time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC)
)

// DOSDateTime is the 16+16-bit pair stored in every local and central
// header.
type DOSDateTime struct {
	Date, Time uint16
}

// EncodeDOS converts t (interpreted in UTC) to DOS date+time,
// clamping out-of-range calendar times to 1980-01-01 00:00:00 or
// 2107-12-31 23:59:58 as spec section 4.5 requires. DOS's 2-second
// resolution truncates, it does not round.
func EncodeDOS(t time.Time) DOSDateTime {
	t = t.UTC()
	if t.Before(dosEpochMin) {
		t = dosEpochMin
	}
	if t.After(dosEpochMax) {
		t = dosEpochMax
	}
	date := uint16(t.Day()) | uint16(t.Month())<<5 | uint16(t.Year()-1980)<<9
	time_ := uint16(t.Second()/2) | uint16(t.Minute())<<5 | uint16(t.Hour())<<11
	return DOSDateTime{Date: date, Time: time_}
}

// DecodeDOS converts a DOS date+time pair to UTC. It does not
// validate that the fields describe a real calendar date; ZIP writers
// in the wild routinely emit garbage here, and time.Date normalizes
// out-of-range components rather than erroring, matching the
// teacher's msDosTimeToTime.
func DecodeDOS(d DOSDateTime) time.Time {
	return time.Date(
		int(d.Date>>9)+1980,
		time.Month(d.Date>>5&0xf),
		int(d.Date&0x1f),
		int(d.Time>>11),
		int(d.Time>>5&0x3f),
		int(d.Time&0x1f)*2,
		0,
		time.UTC,
	)
}
