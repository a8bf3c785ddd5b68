package storage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const defaultMediaRoot = "public"

// MediaURLPrefix is where the media root is served over HTTP.
const MediaURLPrefix = "/media/"

// ErrOutsideMediaRoot is returned for relative paths that escape the media root.
var ErrOutsideMediaRoot = errors.New("path escapes media root")

// Kind is a media subdirectory.
type Kind string

const (
	KindCover    Kind = "covers"
	KindDocument Kind = "docs"
	KindPDF      Kind = "pdfs"
	KindEPUB     Kind = "epubs"
)

// MediaStore lays out generated artifacts under a single root directory:
// <root>/<kind>/<bookID>.<ext>. Returned relative paths always use forward
// slashes so they can be stored and served as-is.
type MediaStore struct {
	root string
}

// NewMediaStore creates a MediaStore. An empty root defaults to "public".
func NewMediaStore(root string) *MediaStore {
	if root == "" {
		root = defaultMediaRoot
	}
	return &MediaStore{root: root}
}

func (m *MediaStore) Root() string {
	return m.root
}

// Rel returns the relative path of an artifact named name in kind.
func (m *MediaStore) Rel(kind Kind, name string) string {
	return path.Join(string(kind), name)
}

// Abs maps a relative media path onto the filesystem.
func (m *MediaStore) Abs(rel string) string {
	return filepath.Join(m.root, filepath.FromSlash(rel))
}

// Path returns the filesystem path for <kind>/<id>.<ext>, creating the kind directory.
func (m *MediaStore) Path(kind Kind, id, ext string) (string, error) {
	if id == "" || ext == "" {
		return "", fmt.Errorf("id and extension cannot be empty for media path")
	}
	dir := filepath.Join(m.root, string(kind))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		log.Printf("ERROR (MediaStore): Failed to create media directory '%s': %v", dir, err)
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	return filepath.Join(dir, id+"."+strings.TrimPrefix(ext, ".")), nil
}

// Store writes data to <kind>/<id>.<ext> and returns its relative path.
func (m *MediaStore) Store(kind Kind, id string, data []byte, ext string) (string, error) {
	full, err := m.Path(kind, id, ext)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		log.Printf("ERROR (MediaStore): Failed to write '%s': %v", full, err)
		return "", fmt.Errorf("failed to save media file: %w", err)
	}
	log.Printf("INFO (MediaStore): Saved %s (%d bytes)", full, len(data))
	return m.Rel(kind, filepath.Base(full)), nil
}

// Resolve turns a caller-supplied relative path into a filesystem path,
// rejecting absolute paths and anything that climbs out of the root.
func (m *MediaStore) Resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, MediaURLPrefix)
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%q: %w", rel, ErrOutsideMediaRoot)
	}
	clean := path.Clean(filepath.ToSlash(rel))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("%q: %w", rel, ErrOutsideMediaRoot)
	}
	return m.Abs(clean), nil
}

// Remove deletes a file given its relative path. Missing files are not an error.
func (m *MediaStore) Remove(rel string) error {
	if err := os.Remove(m.Abs(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove media file %s: %w", rel, err)
	}
	return nil
}

// URL returns the public URL of a relative media path.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return MediaURLPrefix + strings.TrimPrefix(rel, "/")
}
