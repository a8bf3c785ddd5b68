package routehandlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreybb/ebookgen/authoring"
	"github.com/coreybb/ebookgen/conversion"
	"github.com/coreybb/ebookgen/datastore"
	"github.com/coreybb/ebookgen/models"
	"github.com/coreybb/ebookgen/processing"
	"github.com/coreybb/ebookgen/storage"
	"github.com/coreybb/ebookgen/webutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const msgBookNotFound = "Book not found"

type BookStore interface {
	GetBooks(ctx context.Context) ([]models.Book, error)
	GetBookByID(ctx context.Context, bookID string) (*models.Book, error)
	UpdateBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, bookID string) error
	TitleExists(ctx context.Context, title, excludeID string) (bool, error)
}

type BookGenerator interface {
	Generate(ctx context.Context, req models.CreateBookRequest) (*processing.Result, error)
}

type BookHandler struct {
	Repo      BookStore
	Generator BookGenerator
}

func NewBookHandler(repo BookStore, generator BookGenerator) *BookHandler {
	return &BookHandler{Repo: repo, Generator: generator}
}

// createBookResponse is the stored book plus the outcome of its renditions.
type createBookResponse struct {
	models.Book
	PDFStatus conversion.PDFOutcome `json:"pdf_status"`
	EPUBError string                `json:"epub_error,omitempty"`
	Links     map[string]string     `json:"links"`
}

// mediaLinks lists the download URLs of the artifacts a book has.
func mediaLinks(b models.Book) map[string]string {
	links := map[string]string{
		"cover":    storage.URL(b.Cover),
		"document": storage.URL(b.Document),
	}
	if b.PDF != nil {
		links["pdf"] = storage.URL(*b.PDF)
	}
	if b.EPUB != nil {
		links["epub"] = storage.URL(*b.EPUB)
	}
	return links
}

func (h *BookHandler) HandleGetBooks(w http.ResponseWriter, r *http.Request) error {
	books, err := h.Repo.GetBooks(r.Context())
	if err != nil {
		return fmt.Errorf("failed to retrieve books: %w", err)
	}
	if books == nil {
		books = []models.Book{}
	}
	webutil.RespondWithCachedJSON(w, r, books)
	return nil
}

func (h *BookHandler) HandleGetBook(w http.ResponseWriter, r *http.Request) error {
	bookID, err := bookIDParam(r)
	if err != nil {
		return err
	}

	book, err := h.Repo.GetBookByID(r.Context(), bookID)
	if err != nil {
		return lookupError(err)
	}
	webutil.RespondWithCachedJSON(w, r, book)
	return nil
}

// HandleCreateBook runs the whole generation pipeline inside the request.
func (h *BookHandler) HandleCreateBook(w http.ResponseWriter, r *http.Request) error {
	var req models.CreateBookRequest
	if err := decodeStrict(r, &req); err != nil {
		return err
	}

	result, err := h.Generator.Generate(r.Context(), req)
	if err != nil {
		return generationError(err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, createBookResponse{
		Book:      result.Book,
		PDFStatus: result.PDF,
		EPUBError: result.EPUBError,
		Links:     mediaLinks(result.Book),
	})
	return nil
}

// HandleUpdateBook replaces every serializable field of a book. Nothing is
// regenerated.
func (h *BookHandler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) error {
	bookID, err := bookIDParam(r)
	if err != nil {
		return err
	}

	var req models.UpdateBookRequest
	if err := decodeStrict(r, &req); err != nil {
		return err
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return webutil.ErrBadRequestWrap(err.Error(), err)
	}

	existing, err := h.Repo.GetBookByID(r.Context(), bookID)
	if err != nil {
		return lookupError(err)
	}

	exists, err := h.Repo.TitleExists(r.Context(), req.Title, bookID)
	if err != nil {
		return fmt.Errorf("failed to check title for book %s: %w", bookID, err)
	}
	if exists {
		return webutil.ErrBadRequestWrap(datastore.ErrDuplicateTitle.Error(), datastore.ErrDuplicateTitle)
	}

	updated := req.Apply(*existing)
	if err := h.Repo.UpdateBook(r.Context(), &updated); err != nil {
		if errors.Is(err, datastore.ErrDuplicateTitle) {
			return webutil.ErrBadRequestWrap(datastore.ErrDuplicateTitle.Error(), err)
		}
		return lookupError(err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, updated)
	return nil
}

func (h *BookHandler) HandleDeleteBook(w http.ResponseWriter, r *http.Request) error {
	bookID, err := bookIDParam(r)
	if err != nil {
		return err
	}
	if err := h.Repo.DeleteBook(r.Context(), bookID); err != nil {
		return lookupError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// routeInfo describes one endpoint in the API overview.
type routeInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var apiOverview = []routeInfo{
	{http.MethodGet, "/book-list/", "List all books, newest first"},
	{http.MethodGet, "/book-detail/{id}/", "Retrieve one book"},
	{http.MethodPost, "/book-create/", "Generate and store a new book"},
	{http.MethodPut, "/book-update/{id}/", "Replace the fields of a book"},
	{http.MethodDelete, "/book-delete/{id}/", "Delete a book"},
	{http.MethodGet, "/media/{path}", "Download a cover, document, PDF or EPUB"},
}

func (h *BookHandler) HandleAPIOverview(w http.ResponseWriter, r *http.Request) error {
	webutil.RespondWithJSON(w, http.StatusOK, apiOverview)
	return nil
}

// bookIDParam reads the {id} segment. An id that is not a UUID cannot name a
// stored book, so it is reported as not found.
func bookIDParam(r *http.Request) (string, error) {
	bookID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(bookID); err != nil {
		return "", webutil.ErrNotFound(msgBookNotFound)
	}
	return bookID, nil
}

func lookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return webutil.ErrNotFoundWrap(msgBookNotFound, err)
	}
	return err
}

func decodeStrict(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()
	return nil
}

// generationError maps pipeline failures onto client and server errors.
// LLM and image failures stay 500s.
func generationError(err error) error {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return webutil.ErrBadRequestWrap(vErr.Error(), err)
	case errors.Is(err, datastore.ErrDuplicateTitle):
		return webutil.ErrBadRequestWrap(datastore.ErrDuplicateTitle.Error(), err)
	case errors.Is(err, processing.ErrTitleInFlight):
		return webutil.ErrBadRequestWrap(processing.ErrTitleInFlight.Error(), err)
	}

	var pErr *authoring.ParseError
	if errors.As(err, &pErr) {
		return webutil.ErrInternalServerWrap("outline could not be parsed", err)
	}
	return fmt.Errorf("failed to generate book: %w", err)
}
