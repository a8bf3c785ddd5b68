package datastore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/ebookgen/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicateTitle is returned when a write would violate the unique title index.
var ErrDuplicateTitle = errors.New("book with this title already exists")

const pqUniqueViolation = "23505"

//go:embed schema.sql
var schemaSQL string

const bookColumns = `id, author, title, topic, target_audience, num_chapters, num_subsections,
		cover, table_of_contents, content, document, pdf, epub, created_at, updated_at`

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

// EnsureSchema creates the books table and its indexes if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply books schema: %w", err)
	}
	return nil
}

// CreateBook inserts a fully generated book.
func (r *BookRepository) CreateBook(ctx context.Context, book *models.Book) error {
	if _, err := uuid.Parse(book.ID); err != nil {
		return fmt.Errorf("invalid book ID format: %w", err)
	}

	now := time.Now().UTC()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		book.ID,
		book.Author,
		book.Title,
		book.Topic,
		book.TargetAudience,
		book.NumChapters,
		book.NumSubsections,
		book.Cover,
		book.TableOfContents,
		book.Content,
		book.Document,
		nullString(book.PDF),
		nullString(book.EPUB),
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert book %q: %w", book.Title, ErrDuplicateTitle)
		}
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

func (r *BookRepository) GetBookByID(ctx context.Context, bookID string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(r.db.QueryRowContext(ctx, query, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get book by ID: %w", err)
	}
	return book, nil
}

// GetBooks returns every stored book, newest first.
func (r *BookRepository) GetBooks(ctx context.Context) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}
	return books, nil
}

// UpdateBook overwrites the editable fields of an existing book.
func (r *BookRepository) UpdateBook(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE books
		SET author = $2, title = $3, topic = $4, target_audience = $5,
			num_chapters = $6, num_subsections = $7, cover = $8,
			table_of_contents = $9, content = $10, updated_at = $11
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		book.ID,
		book.Author,
		book.Title,
		book.Topic,
		book.TargetAudience,
		book.NumChapters,
		book.NumSubsections,
		book.Cover,
		book.TableOfContents,
		book.Content,
		book.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to update book %s: %w", book.ID, ErrDuplicateTitle)
		}
		return fmt.Errorf("failed to update book %s: %w", book.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for book update %s: %w", book.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book not found for update (ID: %s): %w", book.ID, sql.ErrNoRows)
	}
	return nil
}

func (r *BookRepository) DeleteBook(ctx context.Context, bookID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("failed to delete book %s: %w", bookID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete book %s: %w", bookID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book not found (ID: %s): %w", bookID, sql.ErrNoRows)
	}
	return nil
}

// TitleExists reports whether another book already uses title. excludeID may
// be empty; when set, that book is ignored so an update can keep its own title.
func (r *BookRepository) TitleExists(ctx context.Context, title, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM books WHERE title = $1 AND id::text <> $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, title, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check title uniqueness: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*models.Book, error) {
	var (
		b    models.Book
		pdf  sql.NullString
		epub sql.NullString
	)
	err := row.Scan(
		&b.ID,
		&b.Author,
		&b.Title,
		&b.Topic,
		&b.TargetAudience,
		&b.NumChapters,
		&b.NumSubsections,
		&b.Cover,
		&b.TableOfContents,
		&b.Content,
		&b.Document,
		&pdf,
		&epub,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pdf.Valid {
		b.PDF = &pdf.String
	}
	if epub.Valid {
		b.EPUB = &epub.String
	}
	if b.TableOfContents == nil {
		b.TableOfContents = models.TableOfContents{}
	}
	if b.Content == nil {
		b.Content = models.Content{}
	}
	return &b, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
