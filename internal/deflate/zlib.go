package deflate

import (
	"io"

	"github.com/klauspost/compress/zlib"
)

// ZlibReader is the raw-zlib variant CompressionStream can specialize
// into (spec section 4.6): a bare zlib stream, no gzip header.
type ZlibReader struct {
	zr  io.ReadCloser
	err error
}

// NewZlibReader wraps lower, which must start with a zlib header.
func NewZlibReader(lower io.Reader) (*ZlibReader, error) {
	zr, err := zlib.NewReader(lower)
	if err != nil {
		return nil, err
	}
	return &ZlibReader{zr: zr}, nil
}

func (r *ZlibReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.zr.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

func (r *ZlibReader) Close() error { return r.zr.Close() }

// ZlibWriter is the write-mode half of the raw-zlib variant.
type ZlibWriter struct {
	zw *zlib.Writer
}

func NewZlibWriter(lower io.Writer, level int) (*ZlibWriter, error) {
	zw, err := zlib.NewWriterLevel(lower, level)
	if err != nil {
		return nil, err
	}
	return &ZlibWriter{zw: zw}, nil
}

func (w *ZlibWriter) Write(p []byte) (int, error) { return w.zw.Write(p) }
func (w *ZlibWriter) Flush() error                { return w.zw.Flush() }
func (w *ZlibWriter) Close() error                { return w.zw.Close() }
