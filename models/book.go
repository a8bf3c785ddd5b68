package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Book is a generated eBook as stored in the books table.
type Book struct {
	ID              string          `json:"id"`
	Author          string          `json:"author"`
	Title           string          `json:"title"`
	Topic           string          `json:"topic"`
	TargetAudience  string          `json:"target_audience"`
	NumChapters     int             `json:"num_chapters"`
	NumSubsections  int             `json:"num_subsections"`
	Cover           string          `json:"cover"`             // relative to the media root
	TableOfContents TableOfContents `json:"table_of_contents"` // JSONB
	Content         Content         `json:"content"`           // JSONB
	Document        string          `json:"document"`
	PDF             *string         `json:"pdf"`
	EPUB            *string         `json:"epub"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OutlineChapter is one chapter of the outline with its ordered subsection titles.
// Subsection titles carry their "<chapter>.<index> " number prefix.
type OutlineChapter struct {
	Chapter     string   `json:"chapter"`
	Subsections []string `json:"subsections"`
}

// TableOfContents is the ordered outline of a book.
type TableOfContents []OutlineChapter

// ContentSubsection holds the generated prose of a single subsection.
type ContentSubsection struct {
	Subsection string   `json:"subsection"`
	Paragraphs []string `json:"paragraphs"`
}

// ContentChapter mirrors an OutlineChapter with prose filled in.
type ContentChapter struct {
	Chapter     string              `json:"chapter"`
	Subsections []ContentSubsection `json:"subsections"`
}

// Content is the full body of a book, in outline order.
type Content []ContentChapter

// Value implements driver.Valuer so the outline is stored as JSON.
func (t TableOfContents) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *TableOfContents) Scan(src any) error {
	return scanJSON(src, t)
}

// Value implements driver.Valuer so the content is stored as JSON.
func (c Content) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Content) Scan(src any) error {
	return scanJSON(src, c)
}

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// CoverSource is the cover field of a create request. The value CoverGenerate
// asks for an AI-generated cover; anything else is a literal image reference,
// either an http(s) URL or a path relative to the media root.
type CoverSource string

const CoverGenerate CoverSource = "ai"

func (c CoverSource) IsGenerate() bool {
	return c == CoverGenerate
}

func (c CoverSource) IsURL() bool {
	s := strings.ToLower(string(c))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// SubsectionCount returns the total number of subsections across all chapters.
func (t TableOfContents) SubsectionCount() int {
	n := 0
	for _, ch := range t {
		n += len(ch.Subsections)
	}
	return n
}
