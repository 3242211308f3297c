package zipvault

import (
	"io"
	"path/filepath"
	"testing"
)

func TestCreateFileOpenFileRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "archive.zip")

	a, err := CreateFile(name, NewDefaults())
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	es, err := a.OpenEntryWrite(NewFileMetadata("a.txt"))
	if err != nil {
		t.Fatalf("OpenEntryWrite: %v", err)
	}
	if _, err := es.Write([]byte("from disk")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := es.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Archive.Close: %v", err)
	}

	ra, err := OpenFile(name, NewDefaults())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer ra.Close()
	rs, err := ra.OpenEntryRead("a.txt")
	if err != nil {
		t.Fatalf("OpenEntryRead: %v", err)
	}
	got, err := io.ReadAll(rs)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "from disk" {
		t.Errorf("content = %q", got)
	}
}

func TestAddFileAppendsToExistingArchive(t *testing.T) {
	name := filepath.Join(t.TempDir(), "archive.zip")

	a, err := CreateFile(name, NewDefaults())
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	es, err := a.OpenEntryWrite(NewFileMetadata("first.txt"))
	if err != nil {
		t.Fatalf("OpenEntryWrite: %v", err)
	}
	if _, err := es.Write([]byte("one")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := es.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Archive.Close: %v", err)
	}

	adder, err := AddFile(name, NewDefaults())
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	es, err = adder.OpenEntryWrite(NewFileMetadata("second.txt"))
	if err != nil {
		t.Fatalf("OpenEntryWrite: %v", err)
	}
	if _, err := es.Write([]byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := es.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := adder.Close(); err != nil {
		t.Fatalf("Archive.Close: %v", err)
	}

	ra, err := OpenFile(name, NewDefaults())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer ra.Close()
	for _, want := range []string{"first.txt", "second.txt"} {
		if _, err := ra.FindEntry(want, nil); err != nil {
			t.Errorf("FindEntry(%q): %v", want, err)
		}
	}
}
