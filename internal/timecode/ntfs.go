package timecode

import "time"

// ntfsEpoch is 1601-01-01 00:00:00 UTC, the origin of Windows
// FILETIME values.
var ntfsEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

const ntfsTicksPerSecond = 1e7 // 100ns ticks

// EncodeNTFS converts t to a 100ns-tick count since the NTFS epoch,
// clamped to 0 if t predates the epoch (spec section 4.5).
func EncodeNTFS(t time.Time) uint64 {
	t = t.UTC()
	if t.Before(ntfsEpoch) {
		return 0
	}
	secs := uint64(t.Unix() - ntfsEpoch.Unix())
	return secs*ntfsTicksPerSecond + uint64(t.Nanosecond()/100)
}

// DecodeNTFS converts a 100ns-tick count since the NTFS epoch back to
// a UTC time.Time.
func DecodeNTFS(ticks uint64) time.Time {
	secs := int64(ticks / ntfsTicksPerSecond)
	nsecs := int64(ticks%ntfsTicksPerSecond) * 100
	return time.Unix(ntfsEpoch.Unix()+secs, nsecs).UTC()
}
