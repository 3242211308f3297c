package deflate

import (
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// GzipReader is the gzip variant CompressionStream can specialize into
// (spec section 4.6): inflateInit2/deflateInit2 with WBITS|16, with
// the header fields (name, comment, mtime, extra) surfaced directly.
type GzipReader struct {
	gr  *gzip.Reader
	err error
}

func NewGzipReader(lower io.Reader) (*GzipReader, error) {
	gr, err := gzip.NewReader(lower)
	if err != nil {
		return nil, err
	}
	return &GzipReader{gr: gr}, nil
}

func (r *GzipReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.gr.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

func (r *GzipReader) Close() error { return r.gr.Close() }

// OriginalName is the gzip header's FNAME field, if present.
func (r *GzipReader) OriginalName() string { return r.gr.Name }

// Comment is the gzip header's FCOMMENT field, if present.
func (r *GzipReader) Comment() string { return r.gr.Comment }

// ModTime is the gzip header's MTIME field.
func (r *GzipReader) ModTime() time.Time { return r.gr.ModTime }

// Extra is the gzip header's FEXTRA payload, if present.
func (r *GzipReader) Extra() []byte { return r.gr.Extra }

// GzipWriter is the write-mode half of the gzip variant.
type GzipWriter struct {
	gw *gzip.Writer
}

func NewGzipWriter(lower io.Writer, level int) (*GzipWriter, error) {
	gw, err := gzip.NewWriterLevel(lower, level)
	if err != nil {
		return nil, err
	}
	return &GzipWriter{gw: gw}, nil
}

// SetHeader configures the gzip header fields before the first Write.
func (w *GzipWriter) SetHeader(name, comment string, modTime time.Time, extra []byte) {
	w.gw.Name = name
	w.gw.Comment = comment
	w.gw.ModTime = modTime
	w.gw.Extra = extra
}

func (w *GzipWriter) Write(p []byte) (int, error) { return w.gw.Write(p) }
func (w *GzipWriter) Flush() error                { return w.gw.Flush() }
func (w *GzipWriter) Close() error                { return w.gw.Close() }
