package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// documentVersion is the on-disk format of FileKV's key document.
const documentVersion = 1

// document is the JSON layout of keys.json. Values are base64 via []byte.
type document struct {
	V       int               `json:"v"`
	Entries map[string][]byte `json:"entries"`
}

// readDocument loads the entries at path. A missing or empty file yields an
// empty map.
func readDocument(path string) (map[string][]byte, error) {
	entries := make(map[string][]byte)
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return entries, nil
	case err != nil:
		return nil, err
	case len(b) == 0:
		return entries, nil
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if doc.V != documentVersion {
		return nil, fmt.Errorf("%s: unsupported version %d", filepath.Base(path), doc.V)
	}
	for k, v := range doc.Entries {
		entries[k] = v
	}
	return entries, nil
}

// writeDocument replaces the file at path with entries.
func writeDocument(path string, entries map[string][]byte) error {
	b, err := json.MarshalIndent(document{V: documentVersion, Entries: entries}, "", "  ")
	if err != nil {
		return err
	}
	return replaceFile(path, b, 0o600)
}

// replaceFile writes b to a temp file next to path, syncs it, and renames it
// over path so readers see either the old or the new content.
func replaceFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	_, err = f.Write(b)
	if err == nil {
		err = f.Chmod(mode)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
