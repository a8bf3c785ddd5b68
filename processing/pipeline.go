package processing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/coreybb/ebookgen/conversion"
	"github.com/coreybb/ebookgen/datastore"
	"github.com/coreybb/ebookgen/models"
	"github.com/google/uuid"
)

type BookWriter interface {
	CreateBook(ctx context.Context, book *models.Book) error
	TitleExists(ctx context.Context, title, excludeID string) (bool, error)
}

type Writer interface {
	Outline(ctx context.Context, spec models.BookSpec) (models.TableOfContents, error)
	Content(ctx context.Context, toc models.TableOfContents) (models.Content, error)
}

type CoverAcquirer interface {
	Acquire(ctx context.Context, bookID string, spec models.BookSpec, source models.CoverSource) (string, error)
}

type DocumentComposer interface {
	Compose(book models.Book) (string, error)
}

type PDFConverter interface {
	ToPDF(ctx context.Context, book models.Book) conversion.PDFOutcome
}

type EbookGenerator interface {
	Enabled() bool
	Generate(book models.Book) (string, error)
}

// Result is a persisted book plus the outcome of its optional renditions.
type Result struct {
	Book      models.Book
	PDF       conversion.PDFOutcome
	EPUBError string
}

// Draft is the book as it moves through the pipeline. Stages return a new
// Draft instead of changing the one they were given.
type Draft struct {
	Request   models.CreateBookRequest
	Book      models.Book
	PDF       conversion.PDFOutcome
	EPUBError string
}

type stage struct {
	name string
	run  func(ctx context.Context, d Draft) (Draft, error)
}

// Pipeline turns a create request into a stored book.
type Pipeline struct {
	books    BookWriter
	writer   Writer
	covers   CoverAcquirer
	composer DocumentComposer
	pdf      PDFConverter
	epub     EbookGenerator
	guard    *TitleGuard
}

func NewPipeline(
	books BookWriter,
	writer Writer,
	covers CoverAcquirer,
	composer DocumentComposer,
	pdf PDFConverter,
	epub EbookGenerator,
	guard *TitleGuard,
) *Pipeline {
	return &Pipeline{
		books:    books,
		writer:   writer,
		covers:   covers,
		composer: composer,
		pdf:      pdf,
		epub:     epub,
		guard:    guard,
	}
}

// Generate validates req, writes the book and stores it. Nothing is stored
// unless every required stage succeeds; files written before a failure stay
// in the media root.
func (p *Pipeline) Generate(ctx context.Context, req models.CreateBookRequest) (*Result, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := p.books.TitleExists(ctx, req.Title, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check title %q: %w", req.Title, err)
	}
	if exists {
		return nil, fmt.Errorf("title %q: %w", req.Title, datastore.ErrDuplicateTitle)
	}

	if err := p.guard.Reserve(req.Title); err != nil {
		return nil, fmt.Errorf("title %q: %w", req.Title, err)
	}
	defer p.guard.Release(req.Title)

	startTime := time.Now()
	d := Draft{
		Request: req,
		Book: models.Book{
			ID:             uuid.NewString(),
			Author:         req.Author,
			Title:          req.Title,
			Topic:          req.Topic,
			TargetAudience: req.TargetAudience,
			NumChapters:    req.NumChapters,
			NumSubsections: req.NumSubsections,
		},
	}
	log.Printf("INFO (Pipeline): Generating book %s %q", d.Book.ID, d.Book.Title)

	for _, s := range p.stages() {
		next, err := s.run(ctx, d)
		if err != nil {
			log.Printf("ERROR (Pipeline): Stage %s failed for book %s: %v", s.name, d.Book.ID, err)
			return nil, err
		}
		d = next
	}

	log.Printf("INFO (Pipeline): Book %s stored (took %s)", d.Book.ID, time.Since(startTime))
	return &Result{Book: d.Book, PDF: d.PDF, EPUBError: d.EPUBError}, nil
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{"outline", p.outline},
		{"content", p.content},
		{"cover", p.cover},
		{"document", p.document},
		{"pdf", p.convertPDF},
		{"epub", p.generateEPUB},
		{"persist", p.persist},
	}
}

func (p *Pipeline) outline(ctx context.Context, d Draft) (Draft, error) {
	toc, err := p.writer.Outline(ctx, d.Request.BookSpec)
	if err != nil {
		return d, err
	}
	d.Book.TableOfContents = toc
	return d, nil
}

func (p *Pipeline) content(ctx context.Context, d Draft) (Draft, error) {
	content, err := p.writer.Content(ctx, d.Book.TableOfContents)
	if err != nil {
		return d, err
	}
	d.Book.Content = content
	return d, nil
}

func (p *Pipeline) cover(ctx context.Context, d Draft) (Draft, error) {
	rel, err := p.covers.Acquire(ctx, d.Book.ID, d.Request.BookSpec, d.Request.Cover)
	if err != nil {
		return d, fmt.Errorf("failed to acquire cover: %w", err)
	}
	d.Book.Cover = rel
	return d, nil
}

func (p *Pipeline) document(_ context.Context, d Draft) (Draft, error) {
	rel, err := p.composer.Compose(d.Book)
	if err != nil {
		return d, fmt.Errorf("failed to compose document: %w", err)
	}
	d.Book.Document = rel
	return d, nil
}

// convertPDF never fails the pipeline; the outcome is reported instead.
func (p *Pipeline) convertPDF(ctx context.Context, d Draft) (Draft, error) {
	d.PDF = p.pdf.ToPDF(ctx, d.Book)
	if d.PDF.Status == conversion.PDFReady {
		path := d.PDF.Path
		d.Book.PDF = &path
	}
	return d, nil
}

func (p *Pipeline) generateEPUB(_ context.Context, d Draft) (Draft, error) {
	if p.epub == nil || !p.epub.Enabled() {
		return d, nil
	}
	rel, err := p.epub.Generate(d.Book)
	if err != nil {
		log.Printf("WARN (Pipeline): EPUB for book %s failed: %v", d.Book.ID, err)
		d.EPUBError = err.Error()
		return d, nil
	}
	d.Book.EPUB = &rel
	return d, nil
}

func (p *Pipeline) persist(ctx context.Context, d Draft) (Draft, error) {
	book := d.Book
	if err := p.books.CreateBook(ctx, &book); err != nil {
		return d, err
	}
	d.Book = book
	return d, nil
}
