package randread

import (
	"bytes"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/archivekit/zipvault/internal/deflate"
)

func compress(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := deflate.NewWriter(&buf, 6)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func randomBytes(n int) []byte {
	rng := rand.New(rand.NewPCG(1, 2))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.IntN(256))
	}
	return b
}

func TestReadAtScattered(t *testing.T) {
	raw := randomBytes(chunkSize*3 + 1234)
	compressed := compress(t, raw)

	r := New(bytes.NewReader(compressed), int64(len(compressed)), int64(len(raw)), 2)

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 50; i++ {
		left := rng.Int64N(int64(len(raw)))
		right := left + rng.Int64N(5000)
		right = min(right, int64(len(raw)))
		if right <= left {
			continue
		}
		buf := make([]byte, right-left)
		n, err := r.ReadAt(buf, left)
		if err != nil && err != io.EOF {
			t.Fatalf("ReadAt(%d,%d): %v", left, right, err)
		}
		if n != int(right-left) {
			t.Fatalf("ReadAt(%d,%d): got %d bytes, want %d", left, right, n, right-left)
		}
		if !bytes.Equal(buf, raw[left:right]) {
			t.Fatalf("ReadAt(%d,%d): mismatch", left, right)
		}
	}
}

func TestReadAtPastEndIsEOF(t *testing.T) {
	raw := randomBytes(100)
	compressed := compress(t, raw)
	r := New(bytes.NewReader(compressed), int64(len(compressed)), int64(len(raw)), 1)

	buf := make([]byte, 10)
	n, err := r.ReadAt(buf, 95)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
}
