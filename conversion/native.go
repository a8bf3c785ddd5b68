package conversion

import (
	"fmt"
	"strings"

	"github.com/coreybb/ebookgen/document"
	"github.com/coreybb/ebookgen/models"
	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin   = 20.0
	bodyFontSize = 12.0
	bodyLineH    = 6.0
	pdfFamily    = "Times"
)

// NativeRenderer lays the book out directly as PDF, without a docx round trip.
// It is used when no external converter is available.
type NativeRenderer struct{}

func NewNativeRenderer() *NativeRenderer {
	return &NativeRenderer{}
}

// Render writes book to outputPath using coverPath as the first page.
func (n *NativeRenderer) Render(book models.Book, coverPath, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(book.Title, true)
	pdf.SetAuthor(book.Author, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	// Cover, centered vertically at 4:5.
	pdf.AddPage()
	coverH := contentW * 5 / 4
	pdf.ImageOptions(coverPath, pageMargin, (pageH-coverH)/2, contentW, coverH, false,
		gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}, 0, "")

	pdf.AddPage()
	pdf.SetY(pageH / 3)
	pdf.SetFont(pdfFamily, "B", 28)
	pdf.MultiCell(0, 12, tr(book.Title), "", "C", false)
	pdf.Ln(6)
	pdf.SetFont(pdfFamily, "", 16)
	pdf.MultiCell(0, 8, tr(strings.ToUpper(book.Author)), "", "C", false)

	pdf.AddPage()
	pdf.SetFont(pdfFamily, "B", 24)
	pdf.CellFormat(0, 14, "Table of Contents", "", 1, "L", false, 0, "")
	pdf.Ln(4)
	for _, chapter := range book.TableOfContents {
		pdf.SetFont(pdfFamily, "B", 15)
		pdf.MultiCell(0, 8, tr(chapter.Chapter), "", "L", false)
		pdf.SetFont(pdfFamily, "", 13)
		for _, sub := range chapter.Subsections {
			pdf.SetX(pageMargin + 8)
			pdf.MultiCell(contentW-8, 7, tr(sub), "", "L", false)
		}
		pdf.Ln(3)
	}

	for _, chapter := range book.Content {
		pdf.AddPage()
		pdf.SetY(pageH / 3)
		pdf.SetFont(pdfFamily, "B", 26)
		pdf.MultiCell(0, 12, tr(document.StripChapterLabel(chapter.Chapter)), "", "C", false)

		for _, sub := range chapter.Subsections {
			pdf.AddPage()
			pdf.SetFont(pdfFamily, "B", 18)
			pdf.MultiCell(0, 9, tr(sub.Subsection), "", "L", false)
			pdf.Ln(4)
			pdf.SetFont(pdfFamily, "", bodyFontSize)
			for _, p := range sub.Paragraphs {
				if document.ShouldSkipParagraph(p, sub.Subsection) {
					continue
				}
				pdf.MultiCell(0, bodyLineH, tr(p), "", "J", false)
				pdf.Ln(3)
			}
		}
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("gofpdf render failed: %w", err)
	}
	return nil
}
