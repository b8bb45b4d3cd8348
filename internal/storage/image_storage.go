package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inkfleet/inkfleet/internal/config"
)

// ErrStorage wraps every failure to persist or read an artifact.
var ErrStorage = errors.New("artifact storage failure")

// ArtifactStore persists encoded screen images on the local filesystem
// and maps them to URLs served by the HTTP layer.
type ArtifactStore struct {
	basePath string
	baseURL  string
}

// NewArtifactStore creates a store rooted at basePath. Files are served
// under baseURL by the static route.
func NewArtifactStore(basePath, baseURL string) *ArtifactStore {
	return &ArtifactStore{
		basePath: basePath,
		baseURL:  baseURL,
	}
}

// GetDefaultArtifactStore builds a store from RENDERED_IMAGES_PATH and
// RENDERED_IMAGES_URL, falling back to static/rendered under DATA_DIR.
func GetDefaultArtifactStore() *ArtifactStore {
	dataDir := config.Get("DATA_DIR", "/data")
	basePath := config.Get("RENDERED_IMAGES_PATH", filepath.Join(dataDir, "static", "rendered"))
	baseURL := config.Get("RENDERED_IMAGES_URL", "/static/rendered")
	return NewArtifactStore(basePath, baseURL)
}

// GenerateFilename derives a unique filename from the artifact content
// hash and the current time. The extension must not include the dot.
func GenerateFilename(data []byte, extension string) string {
	hash := sha256.Sum256(data)
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("screen_%s_%x.%s", timestamp, hash[:8], extension)
}

// SanitizeFilename reduces a caller-chosen name to a safe base name and
// forces the extension to match the encoded format. Returns "" when
// nothing usable remains.
func SanitizeFilename(name, extension string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return ""
	}
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" {
		return ""
	}
	return name + "." + extension
}

// Store writes an artifact under the given filename. The write is
// atomic: data lands in a temp file first and is renamed into place, so
// a partially written artifact is never visible to readers.
func (s *ArtifactStore) Store(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create image directory: %v", ErrStorage, err)
	}

	fullPath := filepath.Join(s.basePath, filename)

	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to write image data: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to flush image data: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to finalize image file: %v", ErrStorage, err)
	}

	return fullPath, nil
}

// Read returns the raw bytes of a stored artifact.
func (s *ArtifactStore) Read(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, filename))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image file: %v", ErrStorage, err)
	}
	return data, nil
}

// Delete removes a stored artifact. Missing files are not an error.
func (s *ArtifactStore) Delete(filename string) error {
	err := os.Remove(filepath.Join(s.basePath, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to remove image file: %v", ErrStorage, err)
	}
	return nil
}

// URLFor maps a stored filename to its public URL path.
func (s *ArtifactStore) URLFor(filename string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, filename)
}

// GetBasePath returns the directory artifacts are written to.
func (s *ArtifactStore) GetBasePath() string {
	return s.basePath
}

// CleanupOldArtifacts removes artifacts older than maxAge.
func (s *ArtifactStore) CleanupOldArtifacts(maxAge time.Duration) error {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: failed to read image directory: %v", ErrStorage, err)
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.basePath, entry.Name()))
		}
	}
	return nil
}
