package conversion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/coreybb/ebookgen/config"
	"github.com/coreybb/ebookgen/models"
	"github.com/coreybb/ebookgen/storage"
)

const defaultSofficeTimeout = 2 * time.Minute

// PDFStatus describes how the PDF rendition of a book ended.
type PDFStatus string

const (
	PDFReady       PDFStatus = "ready"
	PDFUnavailable PDFStatus = "unavailable"
	PDFDisabled    PDFStatus = "disabled"
)

// PDFOutcome is the result of a best-effort PDF conversion. A failed
// conversion never invalidates the docx it was made from.
type PDFOutcome struct {
	Status    PDFStatus `json:"status"`
	Path      string    `json:"path,omitempty"`
	Converter string    `json:"converter,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Converter turns composed documents into PDFs. LibreOffice is tried first;
// if it is missing or fails, the book is rendered natively with gofpdf.
type Converter struct {
	sofficePath string // empty when not found
	timeout     time.Duration
	enabled     bool
	store       *storage.MediaStore
	native      *NativeRenderer
}

func NewConverter(cfg config.Config, store *storage.MediaStore) *Converter {
	path := findSoffice(cfg.SofficePath)
	if path == "" {
		log.Printf("WARN (Converter): soffice executable not found. PDFs will be rendered with gofpdf.")
	} else {
		log.Printf("INFO (Converter): Found soffice executable at: %s", path)
	}
	return &Converter{
		sofficePath: path,
		timeout:     defaultSofficeTimeout,
		enabled:     cfg.PDFEnabled,
		store:       store,
		native:      NewNativeRenderer(),
	}
}

func findSoffice(override string) string {
	if override != "" {
		path, err := exec.LookPath(override)
		if err != nil {
			log.Printf("WARN (Converter): SOFFICE_PATH %q is not executable: %v", override, err)
			return ""
		}
		return path
	}
	for _, name := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// ToPDF converts book.Document into pdfs/<id>.pdf.
func (c *Converter) ToPDF(ctx context.Context, book models.Book) PDFOutcome {
	if !c.enabled {
		return PDFOutcome{Status: PDFDisabled}
	}

	outPath, err := c.store.Path(storage.KindPDF, book.ID, "pdf")
	if err != nil {
		return PDFOutcome{Status: PDFUnavailable, Error: err.Error()}
	}
	rel := c.store.Rel(storage.KindPDF, filepath.Base(outPath))

	var primaryErr error
	if c.sofficePath != "" {
		primaryErr = c.runSoffice(ctx, c.store.Abs(book.Document), filepath.Dir(outPath))
		if primaryErr == nil {
			if _, statErr := os.Stat(outPath); statErr == nil {
				log.Printf("INFO (Converter): Converted %s to PDF with soffice", book.Document)
				return PDFOutcome{Status: PDFReady, Path: rel, Converter: "soffice"}
			}
			primaryErr = fmt.Errorf("soffice reported success but %s was not written", outPath)
		}
		log.Printf("WARN (Converter): soffice conversion of %s failed, trying gofpdf: %v", book.Document, primaryErr)
	} else {
		primaryErr = errors.New("soffice not available")
	}

	if err := c.native.Render(book, c.store.Abs(book.Cover), outPath); err != nil {
		_ = os.Remove(outPath)
		err = errors.Join(primaryErr, err)
		log.Printf("ERROR (Converter): PDF conversion for book %s failed: %v", book.ID, err)
		return PDFOutcome{Status: PDFUnavailable, Error: err.Error()}
	}

	log.Printf("INFO (Converter): Rendered %s with gofpdf", rel)
	return PDFOutcome{Status: PDFReady, Path: rel, Converter: "gofpdf"}
}

// runSoffice executes a headless LibreOffice conversion into outDir.
func (c *Converter) runSoffice(ctx context.Context, docxPath, outDir string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.sofficePath, "--headless", "--convert-to", "pdf", "--outdir", outDir, docxPath)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("soffice timed out after %v: %w. Stderr: %s", c.timeout, ctx.Err(), stderrBuf.String())
		}
		return fmt.Errorf("soffice execution failed: %w. Stderr: %s", err, stderrBuf.String())
	}

	if stderrBuf.Len() > 0 {
		log.Printf("WARN (Converter): soffice stderr output:\n%s", stderrBuf.String())
	}
	return nil
}
