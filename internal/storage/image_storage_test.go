package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreAndRead(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), "/static/rendered")
	data := []byte("artifact bytes")

	path, err := store.Store("screen_test.png", data)
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	got, err := store.Read("screen_test.png")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("read bytes differ from stored bytes")
	}
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewArtifactStore(dir, "/static/rendered")

	if _, err := store.Store("a.png", []byte("a")); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if _, err := store.Store("b.png", []byte("b")); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file %q left behind", e.Name())
		}
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestStoreFailureReportsErrStorage(t *testing.T) {
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}

	store := NewArtifactStore(filepath.Join(blocked, "rendered"), "/static/rendered")
	_, err := store.Store("a.png", []byte("a"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestReadMissingReportsErrStorage(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), "/static/rendered")
	if _, err := store.Read("nope.png"); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), "/static/rendered")
	if err := store.Delete("nope.png"); err != nil {
		t.Fatalf("delete of missing file failed: %v", err)
	}
}

func TestGenerateFilename(t *testing.T) {
	a := GenerateFilename([]byte("content a"), "png")
	b := GenerateFilename([]byte("content b"), "png")

	if !strings.HasSuffix(a, ".png") {
		t.Errorf("filename %q missing extension", a)
	}
	if a == b {
		t.Error("different content produced identical filenames")
	}

	bmp := GenerateFilename([]byte("content"), "bmp")
	if !strings.HasSuffix(bmp, ".bmp") {
		t.Errorf("filename %q missing bmp extension", bmp)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ext  string
		want string
	}{
		{"plain name", "daily", "png", "daily.png"},
		{"keeps matching extension", "daily.png", "png", "daily.png"},
		{"replaces stale extension", "daily.png", "bmp", "daily.bmp"},
		{"strips directories", "../../etc/passwd", "png", "passwd.png"},
		{"trims whitespace", "  report ", "png", "report.png"},
		{"empty", "", "png", ""},
		{"only a dot", ".", "png", ""},
		{"bare extension", ".png", "png", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in, tt.ext); got != tt.want {
				t.Errorf("SanitizeFilename(%q, %q) = %q, want %q", tt.in, tt.ext, got, tt.want)
			}
		})
	}
}

func TestURLFor(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), "/static/rendered")
	if got := store.URLFor("a.png"); got != "/static/rendered/a.png" {
		t.Errorf("URLFor = %q", got)
	}
}
