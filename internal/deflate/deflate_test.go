package deflate

import (
	"bytes"
	"io"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	want := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 500)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, 6)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(want))
	}
	if r.UncompressedSize() != int64(len(want)) {
		t.Fatalf("UncompressedSize = %d, want %d", r.UncompressedSize(), len(want))
	}
	if !r.AtEnd() {
		t.Fatal("expected AtEnd after full read")
	}
}

func TestSetCompressionLevelBeforeWrite(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetCompressionLevel(9); err != nil {
		t.Fatal(err)
	}
	want := []byte("some payload bytes")
	if _, err := w.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSetCompressionLevelAfterWriteRejected(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := w.SetCompressionLevel(9); err == nil {
		t.Fatal("expected error changing level after Write")
	}
}

func TestReaderResetReinflatesFromStart(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 1000)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 6)
	if err != nil {
		t.Fatal(err)
	}
	w.Write(payload)
	w.Close()

	r := NewReader(bytes.NewReader(buf.Bytes()))
	first := make([]byte, 100)
	if _, err := io.ReadFull(r, first); err != nil {
		t.Fatal(err)
	}

	if err := r.Reset(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	again := make([]byte, 100)
	if _, err := io.ReadFull(r, again); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, again) {
		t.Fatal("Reset did not reproduce the same prefix")
	}
}
