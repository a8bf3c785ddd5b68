package document

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/coreybb/ebookgen/config"
	"github.com/coreybb/ebookgen/cover"
	"github.com/coreybb/ebookgen/models"
	"github.com/fumiama/go-docx"
)

const (
	coverTitlePt  = 36
	coverAuthorPt = 20
)

var placeholder = regexp.MustCompile(`\{\{\s*(AUTHOR|TITLE)\s*\}\}`)

// fromTemplate opens the cover template, fills in the author and title and
// swaps the placeholder picture for the book's cover.
func fromTemplate(path, coverMedia string, book models.Book, coverImage []byte) (*docx.Docx, error) {
	// docx.Parse keeps reading from its reader until the document is written,
	// so the template is held in memory rather than as an open file.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document template: %w", err)
	}
	d, err := docx.Parse(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document template %s: %w", path, err)
	}

	values := map[string]string{
		"AUTHOR": strings.ToUpper(book.Author),
		"TITLE":  book.Title,
	}
	for _, item := range d.Document.Body.Items {
		fillPlaceholders(item, values)
	}

	if m := d.Media(coverMedia); m != nil {
		m.Data = coverImage
	} else {
		log.Printf("WARN (Composer): Template %s has no media named %s, cover image not placed", path, coverMedia)
	}
	return d, nil
}

// fillPlaceholders rewrites placeholders per paragraph, since Word often splits
// "{{TITLE}}" over several runs.
func fillPlaceholders(item any, values map[string]string) {
	switch v := item.(type) {
	case *docx.Paragraph:
		fillParagraph(v, values)
	case *docx.Table:
		for _, row := range v.TableRows {
			for _, cell := range row.TableCells {
				for _, p := range cell.Paragraphs {
					fillParagraph(p, values)
				}
				for _, t := range cell.Tables {
					fillPlaceholders(t, values)
				}
			}
		}
	}
}

func fillParagraph(p *docx.Paragraph, values map[string]string) {
	var texts []*docx.Text
	for _, child := range p.Children {
		if r, ok := child.(*docx.Run); ok {
			for _, rc := range r.Children {
				if t, ok := rc.(*docx.Text); ok {
					texts = append(texts, t)
				}
			}
		}
	}
	if len(texts) == 0 {
		return
	}

	var joined strings.Builder
	for _, t := range texts {
		joined.WriteString(t.Text)
	}
	if !placeholder.MatchString(joined.String()) {
		return
	}

	filled := placeholder.ReplaceAllStringFunc(joined.String(), func(m string) string {
		return values[placeholder.FindStringSubmatch(m)[1]]
	})
	texts[0].Text = filled
	texts[0].XMLSpace = "preserve"
	for _, t := range texts[1:] {
		t.Text = ""
	}
}

// generatedCoverPage builds a cover page when no template is configured.
func generatedCoverPage(fonts config.Fonts, book models.Book, coverImage []byte) (*docx.Docx, error) {
	d := docx.New().WithDefaultTheme().WithA4Page()

	run, err := d.AddParagraph().Justification("center").AddInlineDrawing(coverImage)
	if err != nil {
		return nil, fmt.Errorf("failed to embed cover image: %w", err)
	}
	if len(run.Children) > 0 {
		if drawing, ok := run.Children[0].(*docx.Drawing); ok && drawing.Inline != nil {
			w := int64(docx.A4_EMU_MAX_WIDTH)
			drawing.Inline.Size(w, w*cover.Height/cover.Width)
		}
	}

	styleRun(d.AddParagraph().Justification("center").AddText(book.Title), fonts.Title, coverTitlePt, true)
	styleRun(d.AddParagraph().Justification("center").AddText(strings.ToUpper(book.Author)), fonts.Title, coverAuthorPt, false)
	return d, nil
}

// keepSectionLast moves section properties behind any appended paragraphs.
func keepSectionLast(d *docx.Docx) {
	items := d.Document.Body.Items
	kept := make([]any, 0, len(items))
	var sections []any
	for _, item := range items {
		if _, ok := item.(*docx.SectPr); ok {
			sections = append(sections, item)
			continue
		}
		kept = append(kept, item)
	}
	if len(sections) > 0 {
		kept = append(kept, sections[len(sections)-1])
	}
	d.Document.Body.Items = kept
}

func encode(d *docx.Docx) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write docx: %w", err)
	}
	return buf.Bytes(), nil
}
