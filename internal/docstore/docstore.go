// Package docstore keeps uploaded documents on local disk and, optionally,
// mirrors them to Azure Blob Storage so the extraction service can read them
// by reference.
package docstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyKey is returned when a document id or file name is empty.
	ErrEmptyKey = errors.New("docstore: empty key")
	// ErrInvalidKey is returned for ids or names that would escape the store.
	ErrInvalidKey = errors.New("docstore: invalid key")
)

// Local stores documents under Dir/<doc id>/<file name>.
type Local struct {
	dir string
}

// NewLocal creates the root directory if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory", ErrEmptyKey)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Dir returns the root directory.
func (l *Local) Dir() string {
	return l.dir
}

// Save writes r to the store and returns the file path. The extension of
// name is kept because the parser dispatches on it.
func (l *Local) Save(docID, name string, r io.Reader) (string, error) {
	key, err := Key(docID, name)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("save document %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("save document %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("save document %s: %w", key, err)
	}
	return dst, nil
}

// Remove deletes every file stored for docID.
func (l *Local) Remove(docID string) error {
	if err := validateSegment(docID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(l.dir, docID))
}

// Key returns the storage key <doc id>/<base name> shared by the local and
// remote stores.
func Key(docID, name string) (string, error) {
	if err := validateSegment(docID); err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyKey
	}
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if err := validateSegment(base); err != nil {
		return "", err
	}
	return docID + "/" + base, nil
}

func validateSegment(s string) error {
	switch {
	case s == "":
		return ErrEmptyKey
	case s == "." || s == ".." || strings.Contains(s, "..") || strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return nil
}
