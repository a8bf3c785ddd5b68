package document

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coreybb/ebookgen/config"
	"github.com/coreybb/ebookgen/models"
	"github.com/coreybb/ebookgen/storage"
	"github.com/fumiama/go-docx"
)

// Composer renders a book into docs/<id>.docx.
type Composer struct {
	fonts        config.Fonts
	templatePath string
	coverMedia   string
	store        *storage.MediaStore
}

func NewComposer(cfg config.Config, store *storage.MediaStore) *Composer {
	return &Composer{
		fonts:        cfg.Fonts,
		templatePath: cfg.TemplatePath,
		coverMedia:   cfg.CoverMediaName,
		store:        store,
	}
}

// Compose writes the cover page, table of contents and content of book and
// returns the document path relative to the media root.
func (c *Composer) Compose(book models.Book) (string, error) {
	startTime := time.Now()

	coverImage, err := os.ReadFile(c.store.Abs(book.Cover))
	if err != nil {
		return "", fmt.Errorf("failed to read cover %s: %w", book.Cover, err)
	}

	var d *docx.Docx
	if c.templatePath != "" {
		d, err = fromTemplate(c.templatePath, c.coverMedia, book, coverImage)
	} else {
		d, err = generatedCoverPage(c.fonts, book, coverImage)
	}
	if err != nil {
		return "", err
	}

	c.addTableOfContents(d, book.TableOfContents)
	c.addContent(d, book.Content)
	keepSectionLast(d)

	data, err := encode(d)
	if err != nil {
		return "", err
	}
	rel, err := c.store.Store(storage.KindDocument, book.ID, data, "docx")
	if err != nil {
		return "", err
	}

	log.Printf("INFO (Composer): Composed document for book %s: %s (%d bytes, took %s)", book.ID, rel, len(data), time.Since(startTime))
	return rel, nil
}

func (c *Composer) addTableOfContents(d *docx.Docx, toc models.TableOfContents) {
	pageBreak(d)
	styleRun(heading(d, 0).AddText("Table of Contents"), c.fonts.TOC, chapterTitlePt, true)
	d.AddParagraph()

	for _, chapter := range toc {
		styleRun(heading(d, 1).AddText(chapter.Chapter), c.fonts.TOC, tocChapterPt, true)
		for _, sub := range chapter.Subsections {
			number, title := SplitSubsection(sub)
			p := heading(d, 2)
			styleRun(p.AddText(number+" "), c.fonts.Title, tocSubsectionPt, true)
			if title != "" {
				styleRun(p.AddText(title), c.fonts.Title, tocSubsectionPt, false)
			}
		}
		d.AddParagraph()
	}
}

func (c *Composer) addContent(d *docx.Docx, content models.Content) {
	for _, chapter := range content {
		pageBreak(d)
		for i := 0; i < chapterPadding; i++ {
			d.AddParagraph()
		}
		title := d.AddParagraph().Justification("center")
		styleRun(title.AddText(StripChapterLabel(chapter.Chapter)), c.fonts.Title, chapterTitlePt, true)

		for _, sub := range chapter.Subsections {
			pageBreak(d)
			styleRun(heading(d, 1).AddText(sub.Subsection), c.fonts.Title, subsectionHeadPt, true)

			first := true
			for _, paragraph := range sub.Paragraphs {
				if ShouldSkipParagraph(paragraph, sub.Subsection) {
					continue
				}
				p := justifiedBody(d, first)
				first = false
				styleRun(p.AddText(paragraph), c.fonts.Content, bodyPt, false)
			}
		}
	}
}
