package header

import (
	"io/fs"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	want := Local{
		VersionNeeded:     20,
		ZipOptions:        1 << 3,
		CompressionMethod: 8,
		DOSTime:           0x1234,
		DOSDate:           0x5678,
		FileName:          []byte("dir/file.txt"),
		Extra:             []byte{0x01, 0x02},
	}
	raw := EncodeLocal(want)
	got, consumed, err := DecodeLocal(raw)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(raw) {
		t.Fatalf("consumed %d, want %d", consumed, len(raw))
	}
	if !got.HasDataDescriptor() {
		t.Fatal("expected HasDataDescriptor")
	}
	if string(got.FileName) != string(want.FileName) {
		t.Fatalf("got name %q", got.FileName)
	}
}

func TestDecodeLocalRejectsBadSignature(t *testing.T) {
	raw := make([]byte, localFixedLen)
	if _, _, err := DecodeLocal(raw); err != ErrFormat {
		t.Fatalf("got %v, want ErrFormat", err)
	}
}

func TestDataDescriptorRoundTripZip32(t *testing.T) {
	want := DataDescriptor{CRC32: 0xDEADBEEF, CompressedSize: 100, UncompressedSize: 200}
	raw := EncodeDataDescriptor(want)
	got, consumed, err := DecodeDataDescriptor(raw, false)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(raw) || got != want {
		t.Fatalf("got %+v consumed %d, want %+v consumed %d", got, consumed, want, len(raw))
	}
}

func TestDataDescriptorRoundTripZip64(t *testing.T) {
	want := DataDescriptor{CRC32: 1, CompressedSize: 1 << 40, UncompressedSize: 1 << 41, Zip64: true}
	raw := EncodeDataDescriptor(want)
	got, _, err := DecodeDataDescriptor(raw, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDataDescriptorToleratesMissingSignature(t *testing.T) {
	full := EncodeDataDescriptor(DataDescriptor{CRC32: 7, CompressedSize: 8, UncompressedSize: 9})
	noSig := full[4:]
	got, consumed, err := DecodeDataDescriptor(noSig, false)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(noSig) {
		t.Fatalf("consumed %d, want %d", consumed, len(noSig))
	}
	if got.CRC32 != 7 || got.CompressedSize != 8 || got.UncompressedSize != 9 {
		t.Fatalf("got %+v", got)
	}
}

func TestCentralRoundTrip(t *testing.T) {
	want := Central{
		VersionMadeBy:     VersionMadeBy(HostUnix),
		VersionNeeded:     20,
		CompressionMethod: 8,
		CRC32:             42,
		CompressedSize:    10,
		UncompressedSize:  20,
		ExternalAttrs:     EncodeUnixExternalAttrs(0644),
		LocalHeaderOffset: 1234,
		FileName:          []byte("a/b.txt"),
		Extra:             []byte{0xAA},
		Comment:           []byte("hi"),
	}
	raw := EncodeCentral(want)
	got, consumed, err := DecodeCentral(raw)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(raw) {
		t.Fatalf("consumed %d, want %d", consumed, len(raw))
	}
	if got.NeedsZip64() {
		t.Fatal("unexpected zip64 promotion")
	}
	if string(got.Comment) != "hi" {
		t.Fatalf("got comment %q", got.Comment)
	}
}

func TestCentralNeedsZip64(t *testing.T) {
	c := Central{CompressedSize: sentinel32}
	if !c.NeedsZip64() {
		t.Fatal("expected NeedsZip64")
	}
}

func TestFindAndDecodeEOCDNoComment(t *testing.T) {
	want := EOCD{EntriesThisDisk: 3, TotalEntries: 3, CentralSize: 500, CentralOffset: 1000}
	raw := EncodeEOCD32(want)
	readAt := func(p []byte, off int64) (int, error) {
		return copy(p, raw[off:]), nil
	}
	found, err := FindEOCD(readAt, int64(len(raw)))
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeEOCD(found)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalEntries != 3 || got.CentralOffset != 1000 {
		t.Fatalf("got %+v", got)
	}
}

func TestFindEOCDWithComment(t *testing.T) {
	want := EOCD{TotalEntries: 1, CentralSize: 10, CentralOffset: 0, Comment: []byte("a comment")}
	raw := EncodeEOCD32(want)
	readAt := func(p []byte, off int64) (int, error) {
		return copy(p, raw[off:]), nil
	}
	found, err := FindEOCD(readAt, int64(len(raw)))
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeEOCD(found)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Comment) != "a comment" {
		t.Fatalf("got comment %q", got.Comment)
	}
}

func TestZip64LocatorAndEOCDRoundTrip(t *testing.T) {
	want := EOCD{TotalEntries: 1 << 20, EntriesThisDisk: 1 << 20, CentralSize: 1 << 33, CentralOffset: 1 << 34}
	if !want.NeedsZip64() {
		t.Fatal("expected NeedsZip64")
	}
	zip64 := EncodeZip64EOCD(want, VersionMadeBy(HostUnix), 45)
	loc := EncodeZip64Locator(9999)

	offset, err := DecodeZip64Locator(loc)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 9999 {
		t.Fatalf("got offset %d", offset)
	}
	got, err := DecodeZip64EOCD(zip64)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalEntries != want.TotalEntries || got.EntriesThisDisk != want.EntriesThisDisk ||
		got.CentralSize != want.CentralSize || got.CentralOffset != want.CentralOffset {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestUnixExternalAttrsRoundTrip(t *testing.T) {
	for _, mode := range []fs.FileMode{
		0644,
		fs.ModeDir | 0755,
		fs.ModeSymlink | 0777,
		fs.ModeSetuid | 0755,
	} {
		attrs := EncodeUnixExternalAttrs(mode)
		got := DecodeUnixExternalAttrs(attrs)
		if got != mode {
			t.Fatalf("mode %v round-tripped to %v", mode, got)
		}
	}
}

func TestFileModeFromExternalAttrsPicksHostInterpretation(t *testing.T) {
	attrs := EncodeUnixExternalAttrs(fs.ModeDir | 0755)
	got := FileModeFromExternalAttrs(VersionMadeBy(HostUnix), attrs)
	if !got.IsDir() {
		t.Fatalf("got %v, want dir", got)
	}

	dosAttrs := uint32(dosDir)
	got = FileModeFromExternalAttrs(VersionMadeBy(HostMSDOS), dosAttrs)
	if !got.IsDir() {
		t.Fatalf("got %v, want dir", got)
	}
}
