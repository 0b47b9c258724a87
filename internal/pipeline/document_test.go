package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStageUpload_WritesUniqueFile(t *testing.T) {
	dir := t.TempDir()
	a, err := StageUpload(dir, "Lesson.PDF", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	b, err := StageUpload(dir, "Lesson.PDF", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if a.Path == b.Path {
		t.Fatal("staged paths must be unique")
	}
	if filepath.Ext(a.Path) != ".pdf" || filepath.Dir(a.Path) != dir {
		t.Errorf("unexpected staged path %s", a.Path)
	}
	data, err := os.ReadFile(a.Path)
	if err != nil || string(data) != "one" {
		t.Errorf("staged content = %q, %v", data, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestStageUpload_RemovesFileOnCopyError(t *testing.T) {
	dir := t.TempDir()
	if _, err := StageUpload(dir, "lesson.pdf", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no leftover files, found %d", len(entries))
	}
}

func TestRelease_OnlyOnce(t *testing.T) {
	doc, err := StageUpload(t.TempDir(), "lesson.pdf", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	calls := 0
	doc.remove = func(path string) error {
		calls++
		return os.Remove(path)
	}

	for i := 0; i < 3; i++ {
		if err := doc.Release(); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("remove called %d times, want 1", calls)
	}
	if _, err := os.Stat(doc.Path); !os.IsNotExist(err) {
		t.Errorf("file still exists: %v", err)
	}
}

func TestRelease_ZeroValueDocumentUsesOSRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesson.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	doc := &Document{Path: path, Name: "lesson.pdf"}
	if err := doc.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists: %v", err)
	}
}

func TestRelease_MissingFileIsNotAnError(t *testing.T) {
	doc := NewDocument(filepath.Join(t.TempDir(), "gone.pdf"), "gone.pdf")
	if err := doc.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContentHash(t *testing.T) {
	doc, err := StageUpload(t.TempDir(), "a.pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	got, err := doc.ContentHash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}
}
