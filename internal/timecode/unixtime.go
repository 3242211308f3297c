package timecode

import (
	"math"
	"time"
)

// EncodeUnix32 converts t to 32-bit signed UNIX epoch seconds,
// clamping to the representable range per spec section 4.5.
func EncodeUnix32(t time.Time) uint32 {
	secs := t.UTC().Unix()
	if secs < math.MinInt32 {
		secs = math.MinInt32
	}
	if secs > math.MaxInt32 {
		secs = math.MaxInt32
	}
	return uint32(int32(secs))
}

// DecodeUnix32 interprets raw as a 32-bit signed UNIX epoch second
// count (the Info-ZIP extensions store it unsigned on the wire but
// signed in meaning, matching time_t on the platforms that emit it).
func DecodeUnix32(raw uint32) time.Time {
	return time.Unix(int64(int32(raw)), 0).UTC()
}
