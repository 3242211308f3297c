package zipvault

import (
	"bytes"
	"testing"
)

func buildViewFixture(t *testing.T) *Archive {
	t.Helper()
	mf := &memFile{}
	a, err := Create(mf, NewDefaults())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, name := range []string{
		"readme.txt",
		"src/main.go",
		"src/lib/util.go",
		"src/lib/util_test.go",
		"docs/guide.md",
	} {
		es, err := a.OpenEntryWrite(NewFileMetadata(name))
		if err != nil {
			t.Fatalf("OpenEntryWrite(%q): %v", name, err)
		}
		if _, err := es.Write([]byte("content of " + name)); err != nil {
			t.Fatalf("Write(%q): %v", name, err)
		}
		if err := es.Close(); err != nil {
			t.Fatalf("Close(%q): %v", name, err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Archive.Close: %v", err)
	}

	ra, err := Open(bytes.NewReader(mf.buf), int64(len(mf.buf)), NewDefaults())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ra
}

func TestDirectoryViewRootListing(t *testing.T) {
	a := buildViewFixture(t)
	defer a.Close()

	v, err := NewDirectoryView(a, "")
	if err != nil {
		t.Fatalf("NewDirectoryView: %v", err)
	}
	entries, err := v.Entries(ListOptions{})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}

	got := map[string]ViewEntry{}
	for _, e := range entries {
		got[e.Name] = e
	}
	if len(got) != 3 {
		t.Fatalf("root listing has %d entries, want 3 (readme.txt, src, docs): %v", len(got), got)
	}
	if got["readme.txt"].Type != ViewFile {
		t.Errorf("readme.txt should be a file")
	}
	if got["src"].Type != ViewDirectory || !got["src"].Synthesized {
		t.Errorf("src should be a synthesized directory: %+v", got["src"])
	}
	if got["docs"].Type != ViewDirectory || !got["docs"].Synthesized {
		t.Errorf("docs should be a synthesized directory: %+v", got["docs"])
	}
}

func TestDirectoryViewCdAndListSubdir(t *testing.T) {
	a := buildViewFixture(t)
	defer a.Close()

	root, err := NewDirectoryView(a, "")
	if err != nil {
		t.Fatalf("NewDirectoryView: %v", err)
	}
	src, err := root.Cd("src")
	if err != nil {
		t.Fatalf("Cd(src): %v", err)
	}
	entries, err := src.Entries(ListOptions{})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["main.go"] || !names["lib"] {
		t.Errorf("src listing = %v, want main.go and lib", names)
	}

	back, err := src.Cd("..")
	if err != nil {
		t.Fatalf("Cd(..): %v", err)
	}
	if back.Path() != "" {
		t.Errorf("Cd(..) from src should return to root, got %q", back.Path())
	}
}

func TestDirectoryViewCdMissingPath(t *testing.T) {
	a := buildViewFixture(t)
	defer a.Close()

	root, err := NewDirectoryView(a, "")
	if err != nil {
		t.Fatalf("NewDirectoryView: %v", err)
	}
	if _, err := root.Cd("nonexistent"); err != ErrNoSuchDirectory {
		t.Errorf("got %v, want ErrNoSuchDirectory", err)
	}
}

func TestDirectoryViewNameFilter(t *testing.T) {
	a := buildViewFixture(t)
	defer a.Close()

	root, err := NewDirectoryView(a, "src/lib")
	if err != nil {
		t.Fatalf("NewDirectoryView: %v", err)
	}
	entries, err := root.Entries(ListOptions{NameFilters: []string{"*_test.go"}})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "util_test.go" {
		t.Errorf("filtered listing = %v, want only util_test.go", entries)
	}
}

func TestDirectoryViewSortByNameReversed(t *testing.T) {
	a := buildViewFixture(t)
	defer a.Close()

	root, err := NewDirectoryView(a, "")
	if err != nil {
		t.Fatalf("NewDirectoryView: %v", err)
	}
	entries, err := root.Entries(ListOptions{Sort: SortOptions{Key: SortName, Reversed: true}})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] < names[i] {
			t.Errorf("entries not in reverse order: %v", names)
			break
		}
	}
}

func TestDirectoryViewTypeFilterFilesOnly(t *testing.T) {
	a := buildViewFixture(t)
	defer a.Close()

	root, err := NewDirectoryView(a, "")
	if err != nil {
		t.Fatalf("NewDirectoryView: %v", err)
	}
	entries, err := root.Entries(ListOptions{TypeFilters: FilterFiles})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	for _, e := range entries {
		if e.Type != ViewFile {
			t.Errorf("got a directory %q with FilterFiles set", e.Name)
		}
	}
	if len(entries) != 1 {
		t.Errorf("got %d file entries at root, want 1 (readme.txt): %v", len(entries), entries)
	}
}
