package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Items []string `json:"items"`
}

func TestReadMissingFile(t *testing.T) {
	var d doc
	found, err := Read(filepath.Join(t.TempDir(), "missing.json"), &d)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if found {
		t.Fatal("missing file should report found=false")
	}
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	if err := Write(path, doc{Items: []string{"a", "b"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var d doc
	found, err := Read(path, &d)
	if err != nil || !found {
		t.Fatalf("read back failed: found=%v err=%v", found, err)
	}
	if len(d.Items) != 2 || d.Items[1] != "b" {
		t.Fatalf("unexpected document: %#v", d)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var d doc
	found, err := Read(path, &d)
	if !found {
		t.Fatal("corrupt file still exists")
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
