package zipvault

import (
	"cmp"
	"errors"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/archivekit/zipvault/internal/header"
)

// ViewEntryType classifies a DirectoryView listing row.
type ViewEntryType uint8

const (
	ViewFile ViewEntryType = iota
	ViewDirectory
)

// ViewEntry is one row of a DirectoryView listing: either a real
// archive entry or a directory synthesized because some descendant's
// path passes through it without the directory itself ever having
// been written as an explicit entry.
type ViewEntry struct {
	Name        string
	Path        string
	Type        ViewEntryType
	Synthesized bool
	Metadata    EntryMetadata
}

// TypeFilter restricts entries() to files, directories, or both (spec
// section 4.12). The zero value matches everything.
type TypeFilter uint8

const (
	FilterFiles TypeFilter = 1 << iota
	FilterDirs
	filterAll = FilterFiles | FilterDirs
)

// AttrFilter restricts entries() by a DOS/UNIX attribute predicate
// (spec section 4.12). The zero value applies no attribute filter.
type AttrFilter uint8

const (
	AttrHidden AttrFilter = 1 << iota
	AttrSystem
	AttrReadOnly
	AttrWritable
	AttrExecutable
	AttrModified
)

// SortKey is one of the four listing sort keys spec section 4.12
// names.
type SortKey uint8

const (
	SortNone SortKey = iota
	SortName
	SortType
	SortSize
	SortTime
)

// SortOptions configures entries()'s sort pass.
type SortOptions struct {
	Key         SortKey
	DirsFirst   bool
	DirsLast    bool
	Reversed    bool
	IgnoreCase  bool
	LocaleAware bool
	Locale      language.Tag // used only when LocaleAware is set; English if zero
}

// ListOptions bundles entries()'s three filter stages plus its sort.
type ListOptions struct {
	NameFilters   []string // doublestar glob patterns matched against the final path segment
	TypeFilters   TypeFilter
	AttrFilters   AttrFilter
	CaseSensitive *bool // overrides the view's archive-wide default for name filters
	Sort          SortOptions
}

// DirectoryView is a path-rooted filter over an open Archive (spec
// section 4.12), the library's analogue of the teacher's path-plus-
// fs.FS navigation but addressed by plain string paths rather than a
// mounted fs.FS tree.
type DirectoryView struct {
	archive *Archive
	base    string // cleaned, no leading/trailing slash; "" is the root
}

// ErrNoSuchDirectory is returned by Cd when the target path isn't a
// prefix of any entry in the archive.
var ErrNoSuchDirectory = errors.New("zipvault: no such directory")

// NewDirectoryView returns a view rooted at base ("" for the archive
// root) over an Archive opened in Unzip or Add mode. In Add mode the
// archive keeps no lookup index, so listing a directory that holds a
// file entry fails with ErrParam from FindEntry.
func NewDirectoryView(a *Archive, base string) (*DirectoryView, error) {
	if a.mode != ModeUnzip && a.mode != ModeAdd {
		return nil, ErrParam
	}
	v := &DirectoryView{archive: a, base: cleanViewPath(base)}
	if v.base == "" {
		return v, nil
	}
	if _, err := v.exists(v.base); err != nil {
		return nil, err
	}
	return v, nil
}

func cleanViewPath(p string) string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

func (v *DirectoryView) exists(base string) (bool, error) {
	entries, err := v.archive.Entries()
	if err != nil {
		return false, err
	}
	prefix := base + "/"
	for _, p := range entries {
		if p == base || p == prefix || strings.HasPrefix(p, prefix) {
			return true, nil
		}
	}
	return false, ErrNoSuchDirectory
}

// Cd resolves path relative to the view, supporting "..", ".", "/"-
// rooted absolute paths, and descent into an existing subpath (spec
// section 4.12); it never mutates v.
func (v *DirectoryView) Cd(p string) (*DirectoryView, error) {
	var target string
	if strings.HasPrefix(p, "/") {
		target = cleanViewPath(p)
	} else {
		joined := v.base
		for _, seg := range strings.Split(p, "/") {
			switch seg {
			case "", ".":
			case "..":
				if i := strings.LastIndexByte(joined, '/'); i >= 0 {
					joined = joined[:i]
				} else {
					joined = ""
				}
			default:
				if joined == "" {
					joined = seg
				} else {
					joined = joined + "/" + seg
				}
			}
		}
		target = joined
	}
	return NewDirectoryView(v.archive, target)
}

// Path returns the view's current base path, "" for the root.
func (v *DirectoryView) Path() string { return v.base }

// Entries lists this view's immediate children: real entries and
// synthesized directories for paths that pass through without their
// own explicit entry, filtered and sorted per opts (spec section
// 4.12).
func (v *DirectoryView) Entries(opts ListOptions) ([]ViewEntry, error) {
	paths, err := v.archive.Entries()
	if err != nil {
		return nil, err
	}

	prefix := ""
	if v.base != "" {
		prefix = v.base + "/"
	}

	byName := make(map[string]*ViewEntry)
	order := make([]string, 0)
	for _, p := range paths {
		if p == v.base {
			continue
		}
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		rest = strings.TrimSuffix(rest, "/")
		if rest == "" {
			continue
		}
		seg, tail, hasTail := strings.Cut(rest, "/")
		if _, ok := byName[seg]; !ok {
			order = append(order, seg)
		}
		if !hasTail {
			meta, err := v.archive.FindEntry(p, nil)
			if err != nil {
				return nil, err
			}
			typ := ViewFile
			if meta.EntryType == TypeDirectory {
				typ = ViewDirectory
			}
			byName[seg] = &ViewEntry{Name: seg, Path: prefix + seg, Type: typ, Metadata: meta}
		} else if _, ok := byName[seg]; !ok {
			_ = tail
			byName[seg] = &ViewEntry{Name: seg, Path: prefix + seg, Type: ViewDirectory, Synthesized: true}
		}
	}

	caseSensitive := v.archive.defaults.caseSensitive()
	if opts.CaseSensitive != nil {
		caseSensitive = *opts.CaseSensitive
	}

	out := make([]ViewEntry, 0, len(order))
	for _, seg := range order {
		e := byName[seg]
		if !matchesName(seg, opts.NameFilters, caseSensitive) {
			continue
		}
		if opts.TypeFilters != 0 {
			want := opts.TypeFilters
			if e.Type == ViewDirectory && want&FilterDirs == 0 {
				continue
			}
			if e.Type == ViewFile && want&FilterFiles == 0 {
				continue
			}
		}
		if opts.AttrFilters != 0 && !matchesAttrs(*e, opts.AttrFilters) {
			continue
		}
		out = append(out, *e)
	}

	sortViewEntries(out, opts.Sort)
	return out, nil
}

func matchesName(name string, patterns []string, caseSensitive bool) bool {
	if len(patterns) == 0 {
		return true
	}
	candidate := name
	for _, pat := range patterns {
		p, c := pat, candidate
		if !caseSensitive {
			p, c = strings.ToLower(p), strings.ToLower(c)
		}
		if ok, err := doublestar.Match(p, c); err == nil && ok {
			return true
		}
	}
	return false
}

func matchesAttrs(e ViewEntry, filters AttrFilter) bool {
	if e.Synthesized {
		return filters&(AttrHidden|AttrSystem|AttrReadOnly|AttrModified) == 0
	}
	attrs := header.DOSAttrByte(e.Metadata.ExternalAttributes)
	if filters&AttrHidden != 0 && attrs&header.AttrHidden == 0 {
		return false
	}
	if filters&AttrSystem != 0 && attrs&header.AttrSystem == 0 {
		return false
	}
	if filters&AttrReadOnly != 0 && e.Metadata.Permissions.Perm()&0200 != 0 {
		return false
	}
	if filters&AttrWritable != 0 && e.Metadata.Permissions.Perm()&0200 == 0 {
		return false
	}
	if filters&AttrExecutable != 0 && e.Metadata.Permissions.Perm()&0111 == 0 {
		return false
	}
	if filters&AttrModified != 0 && !e.Metadata.CreationTime.Before(e.Metadata.ModificationTime) {
		return false
	}
	return true
}

func sortViewEntries(entries []ViewEntry, sortOpts SortOptions) {
	var col *collate.Collator
	if sortOpts.LocaleAware {
		locale := sortOpts.Locale
		if locale == (language.Tag{}) {
			locale = language.English
		}
		col = collate.New(locale)
	}

	cmpName := func(a, b string) int {
		if col != nil {
			return col.CompareString(a, b)
		}
		if sortOpts.IgnoreCase {
			return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
		}
		return cmp.Compare(a, b)
	}

	less := func(a, b ViewEntry) int {
		switch sortOpts.Key {
		case SortName:
			return cmpName(a.Name, b.Name)
		case SortType:
			return cmpName(path.Ext(a.Name), path.Ext(b.Name))
		case SortSize:
			return cmp.Compare(a.Metadata.UncompressedSize, b.Metadata.UncompressedSize)
		case SortTime:
			return a.Metadata.ModificationTime.Compare(b.Metadata.ModificationTime)
		default:
			return 0
		}
	}

	slices.SortFunc(entries, func(a, b ViewEntry) int {
		if sortOpts.DirsFirst || sortOpts.DirsLast {
			ad, bd := a.Type == ViewDirectory, b.Type == ViewDirectory
			if ad != bd {
				if ad == sortOpts.DirsFirst {
					return -1
				}
				return 1
			}
		}
		c := less(a, b)
		if sortOpts.Reversed {
			c = -c
		}
		return c
	})
}
