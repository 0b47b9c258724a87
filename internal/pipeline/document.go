package pipeline

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Document is an uploaded file staged on local disk for one analysis run.
// Whoever processes it must call Release; Release deletes the file once no
// matter how many times it is called.
type Document struct {
	Path string
	Name string // Original filename, for logs.

	remove     func(string) error
	once       sync.Once
	releaseErr error
}

func NewDocument(path, name string) *Document {
	return &Document{Path: path, Name: name, remove: os.Remove}
}

// StageUpload copies r into a uniquely named file under dir. The file is
// removed again if the copy fails.
func StageUpload(dir, name string, r io.Reader) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(dir, "upload-"+uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	doc := NewDocument(path, name)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		doc.Release()
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		doc.Release()
		return nil, fmt.Errorf("close staged file: %w", err)
	}
	return doc, nil
}

// Release deletes the staged file. Only the first call does any work; later
// calls return the first call's result. A file that is already gone is not
// an error.
func (d *Document) Release() error {
	d.once.Do(func() {
		remove := d.remove
		if remove == nil {
			remove = os.Remove
		}
		err := remove(d.Path)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		d.releaseErr = err
	})
	return d.releaseErr
}

// ContentHash returns the hex SHA-256 of the staged file.
func (d *Document) ContentHash() (string, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
