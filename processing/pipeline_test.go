package processing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreybb/ebookgen/authoring"
	"github.com/coreybb/ebookgen/config"
	"github.com/coreybb/ebookgen/conversion"
	"github.com/coreybb/ebookgen/cover"
	"github.com/coreybb/ebookgen/datastore"
	"github.com/coreybb/ebookgen/document"
	"github.com/coreybb/ebookgen/ebook"
	"github.com/coreybb/ebookgen/models"
	"github.com/coreybb/ebookgen/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeText struct {
	mu      sync.Mutex
	calls   int
	outline string
	failOn  string
}

func (f *fakeText) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return "", errors.New("llm unavailable")
	}
	switch {
	case strings.HasPrefix(prompt, "We are writing"):
		return f.outline, nil
	case strings.HasPrefix(prompt, "Write a full text"):
		return "Space is big.\n\nStars are hot.", nil
	default:
		return "A rocket among the stars", nil
	}
}

type fakeImages struct{ data []byte }

func (f fakeImages) GenerateImage(context.Context, string) ([]byte, error) {
	return f.data, nil
}

type memoryBooks struct {
	mu    sync.Mutex
	books map[string]models.Book
}

func (m *memoryBooks) CreateBook(_ context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.Title == book.Title {
			return datastore.ErrDuplicateTitle
		}
	}
	book.CreatedAt = time.Now().UTC()
	book.UpdatedAt = book.CreatedAt
	m.books[book.ID] = *book
	return nil
}

func (m *memoryBooks) TitleExists(_ context.Context, title, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.books {
		if b.Title == title && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	pipeline *Pipeline
	text     *fakeText
	books    *memoryBooks
	store    *storage.MediaStore
	guard    *TitleGuard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 512, 512))))

	store := storage.NewMediaStore(t.TempDir())
	text := &fakeText{outline: `{"Chapter 1: Stars": ["Suns"]}`}
	author := authoring.NewAuthor(text)
	cfg := config.Config{
		Fonts:       config.Fonts{TOC: "Garamond", Title: "Garamond", Content: "Georgia"},
		PDFEnabled:  true,
		SofficePath: "/nonexistent/soffice",
	}
	books := &memoryBooks{books: map[string]models.Book{}}
	guard := NewTitleGuard(time.Minute)

	p := NewPipeline(
		books,
		author,
		cover.NewAcquirer(store, author, fakeImages{data: buf.Bytes()}, nil),
		document.NewComposer(cfg, store),
		conversion.NewConverter(cfg, store),
		ebook.NewGenerator(store, true),
		guard,
	)
	return &fixture{pipeline: p, text: text, books: books, store: store, guard: guard}
}

func validRequest() models.CreateBookRequest {
	return models.CreateBookRequest{
		BookSpec: models.BookSpec{
			Author:         "T",
			Title:          "T",
			Topic:          "space",
			TargetAudience: "kids",
			NumChapters:    1,
			NumSubsections: 1,
		},
		Cover: models.CoverGenerate,
	}
}

func TestGenerateStoresCompleteBook(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	book := result.Book
	assert.NotEmpty(t, book.ID)
	require.Len(t, book.TableOfContents, 1)
	assert.Equal(t, "Chapter 1: Stars", book.TableOfContents[0].Chapter)
	assert.Equal(t, []string{"1.1 Suns"}, book.TableOfContents[0].Subsections)
	require.Len(t, book.Content, 1)
	assert.Equal(t, []string{"Space is big.", "Stars are hot."}, book.Content[0].Subsections[0].Paragraphs)

	assert.Equal(t, "covers/"+book.ID+".png", book.Cover)
	assert.Equal(t, "docs/"+book.ID+".docx", book.Document)
	assert.FileExists(t, f.store.Abs(book.Cover))
	assert.FileExists(t, f.store.Abs(book.Document))

	assert.Equal(t, conversion.PDFReady, result.PDF.Status)
	require.NotNil(t, book.PDF)
	assert.FileExists(t, f.store.Abs(*book.PDF))
	require.NotNil(t, book.EPUB)
	assert.FileExists(t, f.store.Abs(*book.EPUB))
	assert.Empty(t, result.EPUBError)

	stored, ok := f.books.books[book.ID]
	require.True(t, ok)
	assert.Equal(t, book.Title, stored.Title)

	// outline + one subsection + cover prompt
	assert.Equal(t, 3, f.text.calls)
}

func TestGenerateRejectsDuplicateTitle(t *testing.T) {
	f := newFixture(t)
	f.books.books["existing"] = models.Book{ID: "existing", Title: "T"}

	_, err := f.pipeline.Generate(context.Background(), validRequest())
	assert.ErrorIs(t, err, datastore.ErrDuplicateTitle)
	assert.Zero(t, f.text.calls)
}

func TestGenerateRejectsTitleInFlight(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.guard.Reserve("T"))

	_, err := f.pipeline.Generate(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrTitleInFlight)
	assert.Zero(t, f.text.calls)
}

func TestGenerateValidationFailure(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.NumChapters = 0

	_, err := f.pipeline.Generate(context.Background(), req)
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "num_chapters", vErr.Field)
	assert.Zero(t, f.text.calls)
}

func TestGenerateStopsOnLLMFailure(t *testing.T) {
	f := newFixture(t)
	f.text.failOn = "Write a full text"

	_, err := f.pipeline.Generate(context.Background(), validRequest())
	require.Error(t, err)
	assert.Empty(t, f.books.books)

	// the reservation is released, so a retry is possible
	f.text.failOn = ""
	_, err = f.pipeline.Generate(context.Background(), validRequest())
	assert.NoError(t, err)
}

func TestGenerateStopsOnUnparseableOutline(t *testing.T) {
	f := newFixture(t)
	f.text.outline = "not json"

	_, err := f.pipeline.Generate(context.Background(), validRequest())
	var pErr *authoring.ParseError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "not json", pErr.Raw)
	assert.Empty(t, f.books.books)
}

func TestGenerateMissingCoverFile(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Cover = "covers/nowhere.png"

	_, err := f.pipeline.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, f.books.books)
	entries, _ := os.ReadDir(f.store.Abs("docs"))
	assert.Empty(t, entries)
}

func TestTitleGuard(t *testing.T) {
	g := NewTitleGuard(time.Minute)
	require.NoError(t, g.Reserve("A"))
	assert.ErrorIs(t, g.Reserve("A"), ErrTitleInFlight)
	assert.NoError(t, g.Reserve("B"))
	g.Release("A")
	assert.NoError(t, g.Reserve("A"))
}
