// Package jsonfile reads and writes whole JSON documents durably.
//
// Writes go to a temporary sibling file that is fsynced and renamed over the
// target, so readers observe either the previous or the new document.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrCorrupt reports a document that exists but cannot be decoded.
	ErrCorrupt = errors.New("jsonfile: corrupt document")
)

// Read decodes the document at path into dst.
// A missing file returns found=false and no error.
func Read(path string, dst any) (bool, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(payload) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

// Write replaces the document at path with the indented JSON encoding of v.
// It returns only after the data and the directory entry reach stable storage.
func Write(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return nil
}
