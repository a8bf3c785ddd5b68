package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWritesUnderKind(t *testing.T) {
	root := t.TempDir()
	store := NewMediaStore(root)

	rel, err := store.Store(KindDocument, "abc", []byte("docx"), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "docs/abc.docx", rel)

	data, err := os.ReadFile(filepath.Join(root, "docs", "abc.docx"))
	require.NoError(t, err)
	assert.Equal(t, "docx", string(data))
	assert.Equal(t, "/media/docs/abc.docx", URL(rel))
}

func TestPathRequiresIDAndExtension(t *testing.T) {
	store := NewMediaStore(t.TempDir())
	_, err := store.Path(KindCover, "", "png")
	assert.Error(t, err)
	_, err = store.Path(KindCover, "id", "")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	store := NewMediaStore(root)

	got, err := store.Resolve("uploads/cover.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "uploads", "cover.png"), got)

	got, err = store.Resolve("/media/covers/x.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "covers", "x.png"), got)

	for _, bad := range []string{"../secret.png", "a/../../etc/passwd", "/etc/passwd", ".", ""} {
		_, err := store.Resolve(bad)
		assert.True(t, errors.Is(err, ErrOutsideMediaRoot), bad)
	}
}

func TestRemoveIgnoresMissingFiles(t *testing.T) {
	store := NewMediaStore(t.TempDir())
	rel, err := store.Store(KindCover, "x", []byte{1}, "png")
	require.NoError(t, err)

	require.NoError(t, store.Remove(rel))
	assert.NoFileExists(t, store.Abs(rel))
	assert.NoError(t, store.Remove(rel))
}

func TestNewMediaStoreDefaultRoot(t *testing.T) {
	assert.Equal(t, "public", NewMediaStore("").Root())
}
