// Package directory builds and queries a ZIP archive's central
// directory: locating the end-of-central-directory record (with its
// ZIP64 extensions), lazily decoding central-directory entries on
// lookup, and resolving a path to its entry under either
// case-sensitive or case-insensitive comparison. Grounded on the
// teacher's internal/zip.getEOCD/New2 backward-scan-and-walk
// construction, generalized from a one-shot full parse into the
// lazy incremental scan spec section 4.9 describes.
package directory

import (
	"encoding/binary"
	"errors"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/archivekit/zipvault/internal/extrafield"
	"github.com/archivekit/zipvault/internal/header"
)

var (
	ErrFormat   = header.ErrFormat
	ErrNotFound = errors.New("directory: entry not found")
)

// PathDecoder turns a central-directory entry's raw filename bytes
// into the Unicode path callers see, applying whatever PathCodec
// policy the archive was opened with.
type PathDecoder func(raw []byte, unicodeFlag bool, extras *extrafield.Map) string

// Lowercaser folds a path for case-insensitive comparison. The
// default is strings.ToLower; spec section 9 calls for this to be
// pluggable so a caller can supply locale-aware folding.
type Lowercaser func(string) string

// Entry is one resolved central-directory record: the decoded path
// plus the wire record with any ZIP64 extra-field promotion already
// folded into 64-bit sizes and offset.
type Entry struct {
	Path              string
	Central           header.Central
	CompressedSize    uint64
	UncompressedSize  uint64
	LocalHeaderOffset uint64
	RecordOffset      int64 // byte offset of this central-directory record
}

// Index is a DirectoryIndex: the resolved end-of-central-directory
// state plus however much of the central directory has been scanned
// so far.
type Index struct {
	r    io.ReaderAt
	size int64

	centralOffset int64
	centralSize   int64
	totalEntries  uint64

	decodePath PathDecoder
	lowercase  Lowercaser

	mu       sync.Mutex
	entries  []Entry
	byExact  map[string]int
	byFold   map[string]int
	scanPos  int64
	scanDone bool

	DefaultCaseSensitive bool
}

// DefaultCaseSensitivity returns spec section 4.9's platform default:
// case-insensitive on Windows and macOS, case-sensitive elsewhere.
func DefaultCaseSensitivity() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return false
	default:
		return true
	}
}

// Open locates the end-of-central-directory record (walking backward
// from size, then detecting a ZIP64 locator/end record per spec
// section 4.9) and returns an Index ready for lazy lookups. decode,
// if nil, uses the raw filename bytes unchanged as the path string.
func Open(r io.ReaderAt, size int64, decode PathDecoder) (*Index, error) {
	if decode == nil {
		decode = func(raw []byte, unicodeFlag bool, extras *extrafield.Map) string { return string(raw) }
	}

	raw, err := header.FindEOCD(func(p []byte, off int64) (int, error) { return r.ReadAt(p, off) }, size)
	if err != nil {
		return nil, err
	}
	eocdOffset := size - int64(len(raw))
	e, err := header.DecodeEOCD(raw)
	if err != nil {
		return nil, err
	}

	sixtyFour := e.TotalEntries == 0xffff || e.CentralSize == 0xffffffff || e.CentralOffset == 0xffffffff
	if sixtyFour {
		locBuf := make([]byte, 20)
		if locOff := eocdOffset - 20; locOff >= 0 {
			if n, err := r.ReadAt(locBuf, locOff); n < len(locBuf) {
				return nil, err
			}
		} else {
			return nil, ErrFormat
		}
		zip64Off, err := header.DecodeZip64Locator(locBuf)
		if err != nil {
			return nil, err
		}
		eocd64Buf := make([]byte, 56)
		if n, err := r.ReadAt(eocd64Buf, zip64Off); n < len(eocd64Buf) {
			return nil, err
		}
		e, err = header.DecodeZip64EOCD(eocd64Buf)
		if err != nil {
			return nil, err
		}
	} else if e.ThisDisk != 0 || e.CentralDisk != 0 {
		return nil, header.ErrNoSpanned
	}

	idx := &Index{
		r:                    r,
		size:                 size,
		centralOffset:        int64(e.CentralOffset),
		centralSize:          int64(e.CentralSize),
		totalEntries:         e.TotalEntries,
		decodePath:           decode,
		lowercase:            strings.ToLower,
		byExact:              make(map[string]int),
		byFold:               make(map[string]int),
		scanPos:              int64(e.CentralOffset),
		DefaultCaseSensitive: DefaultCaseSensitivity(),
	}
	return idx, nil
}

// SetLowercaser overrides the default strings.ToLower folding used
// for case-insensitive lookups.
func (idx *Index) SetLowercaser(f Lowercaser) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if f != nil {
		idx.lowercase = f
	}
}

// TotalEntries returns the count recorded in the end-of-central-
// directory record, independent of how many have been scanned.
func (idx *Index) TotalEntries() uint64 { return idx.totalEntries }

// CentralOffset returns the byte offset where the central directory
// this index was built from begins.
func (idx *Index) CentralOffset() int64 { return idx.centralOffset }

// cleanPath implements spec section 4.9's path normalization: remove
// "./" components, collapse "//", and drop a leading "/".
func cleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "/") {
		p = p[1:]
	}
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s == "" || s == "." {
			continue
		}
		out = append(out, s)
	}
	joined := strings.Join(out, "/")
	if joined != "" && strings.HasSuffix(p, "/") {
		// A trailing slash marks a directory entry; keep it.
		joined += "/"
	}
	return joined
}

// FindByPath implements spec section 4.9's findByPath: check the
// cached map first, then resume the lazy scan from where it left
// off, inserting every newly-seen entry into both maps until a match
// turns up or the central directory is exhausted.
func (idx *Index) FindByPath(path string, caseSensitive bool) (Entry, error) {
	clean := cleanPath(path)
	key := clean
	if !caseSensitive {
		key = idx.lowercase(clean)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	table := idx.byExact
	if !caseSensitive {
		table = idx.byFold
	}
	if i, ok := table[key]; ok {
		return idx.entries[i], nil
	}

	for !idx.scanDone {
		e, err := idx.scanNextLocked()
		if err != nil {
			return Entry{}, err
		}
		if e == nil {
			break
		}
		i := len(idx.entries) - 1
		idx.byExact[e.Path] = i
		if _, ok := idx.byFold[idx.lowercase(e.Path)]; !ok {
			idx.byFold[idx.lowercase(e.Path)] = i
		}
		if caseSensitive {
			if e.Path == clean {
				return *e, nil
			}
		} else {
			if idx.lowercase(e.Path) == key {
				return *e, nil
			}
		}
	}
	return Entry{}, ErrNotFound
}

// Entries forces a full scan and returns every entry in on-disk
// order. Used by directory listing, which needs the whole set rather
// than a single lookup.
func (idx *Index) Entries() ([]Entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for !idx.scanDone {
		e, err := idx.scanNextLocked()
		if err != nil {
			return nil, err
		}
		if e == nil {
			break
		}
		i := len(idx.entries) - 1
		idx.byExact[e.Path] = i
		if _, ok := idx.byFold[idx.lowercase(e.Path)]; !ok {
			idx.byFold[idx.lowercase(e.Path)] = i
		}
	}
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out, nil
}

// scanNextLocked decodes the next unvisited central-directory record,
// appends it to idx.entries, and returns a pointer to it; nil, nil
// means the directory is exhausted. Caller must hold idx.mu.
func (idx *Index) scanNextLocked() (*Entry, error) {
	end := idx.centralOffset + idx.centralSize
	if idx.scanPos >= end {
		idx.scanDone = true
		return nil, nil
	}

	fixed := make([]byte, 46)
	if n, err := idx.r.ReadAt(fixed, idx.scanPos); n < len(fixed) {
		if err == io.EOF {
			idx.scanDone = true
			return nil, nil
		}
		return nil, err
	}
	if binary.LittleEndian.Uint32(fixed[0:4]) != header.SigCentralDirectory {
		return nil, ErrFormat
	}
	nameLen := int(binary.LittleEndian.Uint16(fixed[28:30]))
	extraLen := int(binary.LittleEndian.Uint16(fixed[30:32]))
	commentLen := int(binary.LittleEndian.Uint16(fixed[32:34]))

	rest := make([]byte, nameLen+extraLen+commentLen)
	if n, err := idx.r.ReadAt(rest, idx.scanPos+46); n < len(rest) {
		return nil, err
	}

	full := append(fixed, rest...)
	c, consumed, err := header.DecodeCentral(full)
	if err != nil {
		return nil, err
	}

	compressed, uncompressed, localOffset := uint64(c.CompressedSize), uint64(c.UncompressedSize), uint64(c.LocalHeaderOffset)
	if c.NeedsZip64() {
		if extras, err := extrafield.Decode(c.Extra); err == nil {
			if raw, ok := extras.Get(extrafield.IDZip64); ok {
				z64, err := extrafield.DecodeZip64(raw,
					c.UncompressedSize == 0xffffffff,
					c.CompressedSize == 0xffffffff,
					c.LocalHeaderOffset == 0xffffffff,
					c.DiskStart == 0xffff,
				)
				if err == nil {
					if z64.UncompressedSize != nil {
						uncompressed = *z64.UncompressedSize
					}
					if z64.CompressedSize != nil {
						compressed = *z64.CompressedSize
					}
					if z64.LocalHeaderOffset != nil {
						localOffset = *z64.LocalHeaderOffset
					}
				}
			}
		}
	}

	var extras *extrafield.Map
	if m, err := extrafield.Decode(c.Extra); err == nil {
		extras = m
	} else {
		extras = extrafield.NewMap()
	}
	unicodeFlag := c.ZipOptions&(1<<11) != 0
	e := Entry{
		Path:              cleanPath(idx.decodePath(c.FileName, unicodeFlag, extras)),
		Central:           c,
		CompressedSize:    compressed,
		UncompressedSize:  uncompressed,
		LocalHeaderOffset: localOffset,
		RecordOffset:      idx.scanPos,
	}
	idx.entries = append(idx.entries, e)
	idx.scanPos += int64(consumed)
	return &idx.entries[len(idx.entries)-1], nil
}
