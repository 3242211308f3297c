package timecode

import (
	"testing"
	"time"

	"github.com/archivekit/zipvault/internal/extrafield"
)

func dosFor(t time.Time) DOSDateTime { return EncodeDOS(t) }

func TestResolvePrefersNTFSOverEverything(t *testing.T) {
	dos := dosFor(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	local := extrafield.NewMap()
	local.Set(extrafield.IDNTFS, extrafield.EncodeNTFS(extrafield.NTFSTimes{
		Modified: 132000000000000000,
		Accessed: 132000000000000001,
		Created:  132000000000000002,
	}))
	local.Set(extrafield.IDUnixExtendedTime, extrafield.EncodeUnixExtendedTime(extrafield.UnixExtendedTime{
		Flags: extrafield.UnixTimeHasModified, Modified: 1000,
	}))

	got := Resolve(dos, extrafield.NewMap(), local)
	want := DecodeNTFS(132000000000000000)
	if !got.Modified.Equal(want) {
		t.Fatalf("Modified = %v, want %v", got.Modified, want)
	}
}

func TestResolveFallsBackToUnixExtendedWhenHalvesAgree(t *testing.T) {
	dos := dosFor(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	central := extrafield.NewMap()
	central.Set(extrafield.IDUnixExtendedTime, extrafield.EncodeUnixExtendedTime(extrafield.UnixExtendedTime{
		Flags: extrafield.UnixTimeHasModified, Modified: 500,
	}))
	local := extrafield.NewMap()
	local.Set(extrafield.IDUnixExtendedTime, extrafield.EncodeUnixExtendedTime(extrafield.UnixExtendedTime{
		Flags:    extrafield.UnixTimeHasModified | extrafield.UnixTimeHasAccessed | extrafield.UnixTimeHasCreated,
		Modified: 500, Accessed: 600, Created: 700,
	}))

	got := Resolve(dos, central, local)
	if !got.Modified.Equal(DecodeUnix32(500)) {
		t.Fatalf("Modified = %v, want %v", got.Modified, DecodeUnix32(500))
	}
	if !got.Accessed.Equal(DecodeUnix32(600)) {
		t.Fatalf("Accessed = %v, want %v", got.Accessed, DecodeUnix32(600))
	}
	if !got.Created.Equal(DecodeUnix32(700)) {
		t.Fatalf("Created = %v, want %v", got.Created, DecodeUnix32(700))
	}
}

func TestResolveIgnoresUnixExtendedWhenHalvesDisagree(t *testing.T) {
	dos := dosFor(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	central := extrafield.NewMap()
	central.Set(extrafield.IDUnixExtendedTime, extrafield.EncodeUnixExtendedTime(extrafield.UnixExtendedTime{
		Flags: extrafield.UnixTimeHasModified, Modified: 111,
	}))
	local := extrafield.NewMap()
	local.Set(extrafield.IDUnixExtendedTime, extrafield.EncodeUnixExtendedTime(extrafield.UnixExtendedTime{
		Flags: extrafield.UnixTimeHasModified, Modified: 999,
	}))
	local.Set(extrafield.IDInfoZipUnixV1, extrafield.EncodeInfoZipUnixV1(extrafield.InfoZipUnixV1{
		Accessed: 222, Modified: 333,
	}))

	got := Resolve(dos, central, local)
	if !got.Modified.Equal(DecodeUnix32(333)) {
		t.Fatalf("Modified = %v, want Info-ZIP UNIX v1 fallback %v", got.Modified, DecodeUnix32(333))
	}
}

func TestResolveFallsBackToInfoZipUnixV1(t *testing.T) {
	dos := dosFor(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	local := extrafield.NewMap()
	local.Set(extrafield.IDInfoZipUnixV1, extrafield.EncodeInfoZipUnixV1(extrafield.InfoZipUnixV1{
		Accessed: 222, Modified: 333,
	}))

	got := Resolve(dos, extrafield.NewMap(), local)
	if !got.Modified.Equal(DecodeUnix32(333)) {
		t.Fatalf("Modified = %v, want %v", got.Modified, DecodeUnix32(333))
	}
	if !got.Accessed.Equal(DecodeUnix32(222)) {
		t.Fatalf("Accessed = %v, want %v", got.Accessed, DecodeUnix32(222))
	}
	if !got.Created.Equal(got.Modified) {
		t.Fatalf("Created should fall back to Modified when absent, got %v vs %v", got.Created, got.Modified)
	}
}

func TestResolveFallsBackToDOS(t *testing.T) {
	want := time.Date(2015, 6, 15, 12, 30, 0, 0, time.UTC)
	dos := dosFor(want)

	got := Resolve(dos, extrafield.NewMap(), extrafield.NewMap())
	if !got.Modified.Equal(want) {
		t.Fatalf("Modified = %v, want %v", got.Modified, want)
	}
	if !got.Created.Equal(want) || !got.Accessed.Equal(want) {
		t.Fatalf("Created/Accessed should fall back to DOS modtime: %+v", got)
	}
}

func TestResolveUnixExtendedWithNoCentralHalfIsLenient(t *testing.T) {
	dos := dosFor(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	local := extrafield.NewMap()
	local.Set(extrafield.IDUnixExtendedTime, extrafield.EncodeUnixExtendedTime(extrafield.UnixExtendedTime{
		Flags: extrafield.UnixTimeHasModified, Modified: 42,
	}))

	got := Resolve(dos, extrafield.NewMap(), local)
	if !got.Modified.Equal(DecodeUnix32(42)) {
		t.Fatalf("Modified = %v, want %v", got.Modified, DecodeUnix32(42))
	}
}
