package ebook

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coreybb/ebookgen/document"
	"github.com/coreybb/ebookgen/models"
	"github.com/coreybb/ebookgen/storage"
	epub "github.com/go-shiori/go-epub"
	"github.com/microcosm-cc/bluemonday"
)

const defaultLanguage = "en"

// Generator renders books as EPUB files alongside their documents.
type Generator struct {
	store   *storage.MediaStore
	enabled bool
	policy  *bluemonday.Policy
}

func NewGenerator(store *storage.MediaStore, enabled bool) *Generator {
	if enabled {
		log.Println("INFO (EbookGenerator): Using go-epub for EPUB generation")
	}
	return &Generator{
		store:   store,
		enabled: enabled,
		policy:  bluemonday.StrictPolicy(),
	}
}

// Enabled reports whether EPUB output is switched on.
func (g *Generator) Enabled() bool {
	return g.enabled
}

// Generate writes epubs/<id>.epub and returns its media-relative path.
func (g *Generator) Generate(book models.Book) (string, error) {
	if book.ID == "" {
		return "", fmt.Errorf("book ID cannot be empty")
	}
	startTime := time.Now()

	e, err := epub.NewEpub(book.Title)
	if err != nil {
		return "", fmt.Errorf("failed to create epub: %w", err)
	}
	e.SetAuthor(book.Author)
	e.SetLang(defaultLanguage)

	if book.Cover != "" {
		if err := g.addCover(e, book); err != nil {
			return "", err
		}
	}

	if _, err := e.AddSection(g.tableOfContents(book.TableOfContents), "Table of Contents", "contents.xhtml", ""); err != nil {
		return "", fmt.Errorf("failed to add table of contents: %w", err)
	}

	for i, chapter := range book.Content {
		filename := fmt.Sprintf("chapter-%03d.xhtml", i+1)
		if _, err := e.AddSection(g.chapter(chapter), chapter.Chapter, filename, ""); err != nil {
			return "", fmt.Errorf("failed to add chapter %q: %w", chapter.Chapter, err)
		}
	}

	outPath, err := g.store.Path(storage.KindEPUB, book.ID, "epub")
	if err != nil {
		return "", err
	}
	if err := e.Write(outPath); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("failed to write epub file: %w", err)
	}

	rel := g.store.Rel(storage.KindEPUB, book.ID+".epub")
	log.Printf("INFO (EbookGenerator): Generated EPUB for book %s: %s (took %s)", book.ID, rel, time.Since(startTime))
	return rel, nil
}

func (g *Generator) addCover(e *epub.Epub, book models.Book) error {
	coverPath := g.store.Abs(book.Cover)
	if _, err := os.Stat(coverPath); err != nil {
		return fmt.Errorf("cover %s not readable: %w", book.Cover, err)
	}
	internal, err := e.AddImage(coverPath, "cover.png")
	if err != nil {
		return fmt.Errorf("failed to embed cover: %w", err)
	}

	body := fmt.Sprintf(`<div style="text-align:center"><img src="%s" alt="%s" style="max-width:100%%"/><h1>%s</h1><p>%s</p></div>`,
		internal, g.text(book.Title), g.text(book.Title), g.text(strings.ToUpper(book.Author)))
	if _, err := e.AddSection(body, "Cover", "cover.xhtml", ""); err != nil {
		return fmt.Errorf("failed to add cover section: %w", err)
	}
	return nil
}

func (g *Generator) tableOfContents(toc models.TableOfContents) string {
	var b strings.Builder
	b.WriteString("<h1>Table of Contents</h1>")
	for _, chapter := range toc {
		fmt.Fprintf(&b, "<h2>%s</h2><ul>", g.text(chapter.Chapter))
		for _, sub := range chapter.Subsections {
			fmt.Fprintf(&b, "<li>%s</li>", g.text(sub))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func (g *Generator) chapter(chapter models.ContentChapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", g.text(document.StripChapterLabel(chapter.Chapter)))
	for _, sub := range chapter.Subsections {
		fmt.Fprintf(&b, "<h2>%s</h2>", g.text(sub.Subsection))
		for _, p := range sub.Paragraphs {
			if document.ShouldSkipParagraph(p, sub.Subsection) {
				continue
			}
			fmt.Fprintf(&b, "<p>%s</p>", g.text(p))
		}
	}
	return b.String()
}

// text strips any markup the model produced and escapes the rest for XHTML.
func (g *Generator) text(s string) string {
	return g.policy.Sanitize(s)
}
