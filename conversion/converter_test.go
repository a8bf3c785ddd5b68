package conversion

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreybb/ebookgen/config"
	"github.com/coreybb/ebookgen/models"
	"github.com/coreybb/ebookgen/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soffice")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func bookWithCover(t *testing.T, store *storage.MediaStore) models.Book {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 50))))
	cover, err := store.Store(storage.KindCover, "b1", buf.Bytes(), "png")
	require.NoError(t, err)
	doc, err := store.Store(storage.KindDocument, "b1", []byte("placeholder"), "docx")
	require.NoError(t, err)

	return models.Book{
		ID:       "b1",
		Author:   "Ada",
		Title:    "Café Stars",
		Cover:    cover,
		Document: doc,
		TableOfContents: models.TableOfContents{
			{Chapter: "Chapter 1: Light", Subsections: []string{"1.1 Photons"}},
		},
		Content: models.Content{
			{Chapter: "Chapter 1: Light", Subsections: []models.ContentSubsection{
				{Subsection: "1.1 Photons", Paragraphs: []string{"1.1 Photons", "Photons carry light."}},
			}},
		},
	}
}

func TestToPDFFallsBackToNativeRenderer(t *testing.T) {
	store := storage.NewMediaStore(t.TempDir())
	book := bookWithCover(t, store)
	conv := NewConverter(config.Config{PDFEnabled: true, SofficePath: "/nonexistent/soffice"}, store)

	outcome := conv.ToPDF(context.Background(), book)

	require.Equal(t, PDFReady, outcome.Status, outcome.Error)
	assert.Equal(t, "gofpdf", outcome.Converter)
	assert.Equal(t, "pdfs/b1.pdf", outcome.Path)
	data, err := os.ReadFile(store.Abs(outcome.Path))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestToPDFUsesSofficeWhenItWorks(t *testing.T) {
	script := writeScript(t, `name=$(basename "$6" .docx)
printf '%%PDF-1.4 soffice' > "$5/$name.pdf"
`)
	store := storage.NewMediaStore(t.TempDir())
	book := bookWithCover(t, store)

	outcome := NewConverter(config.Config{PDFEnabled: true, SofficePath: script}, store).ToPDF(context.Background(), book)

	require.Equal(t, PDFReady, outcome.Status, outcome.Error)
	assert.Equal(t, "soffice", outcome.Converter)
	data, err := os.ReadFile(store.Abs(outcome.Path))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 soffice", string(data))
}

func TestToPDFFallsBackWhenSofficeFails(t *testing.T) {
	script := writeScript(t, "echo boom >&2\nexit 3\n")
	store := storage.NewMediaStore(t.TempDir())
	book := bookWithCover(t, store)

	outcome := NewConverter(config.Config{PDFEnabled: true, SofficePath: script}, store).ToPDF(context.Background(), book)

	require.Equal(t, PDFReady, outcome.Status, outcome.Error)
	assert.Equal(t, "gofpdf", outcome.Converter)
}

func TestToPDFReportsTotalFailure(t *testing.T) {
	store := storage.NewMediaStore(t.TempDir())
	book := bookWithCover(t, store)
	book.Cover = "covers/missing.png"

	outcome := NewConverter(config.Config{PDFEnabled: true, SofficePath: "/nonexistent/soffice"}, store).ToPDF(context.Background(), book)

	assert.Equal(t, PDFUnavailable, outcome.Status)
	assert.Contains(t, outcome.Error, "soffice not available")
	assert.Empty(t, outcome.Path)
	assert.NoFileExists(t, filepath.Join(store.Root(), "pdfs", "b1.pdf"))
}

func TestToPDFDisabled(t *testing.T) {
	store := storage.NewMediaStore(t.TempDir())
	outcome := NewConverter(config.Config{PDFEnabled: false}, store).ToPDF(context.Background(), models.Book{ID: "b1"})
	assert.Equal(t, PDFDisabled, outcome.Status)
}
