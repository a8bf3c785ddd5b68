package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Column limits of the books table.
const (
	MaxAuthorLength         = 40
	MaxTitleLength          = 40
	MaxTopicLength          = 200
	MaxTargetAudienceLength = 100
	MaxCoverLength          = 2048
	MinStructureCount       = 1
	MaxStructureCount       = 30
)

// ValidationError reports the first invalid field of a request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// BookSpec is the metadata that drives generation.
type BookSpec struct {
	Author         string `json:"author"`
	Title          string `json:"title"`
	Topic          string `json:"topic"`
	TargetAudience string `json:"target_audience"`
	NumChapters    int    `json:"num_chapters"`
	NumSubsections int    `json:"num_subsections"`
}

// CreateBookRequest is the body of POST /book-create/. Name is an optional
// client-side label and does not affect generation.
type CreateBookRequest struct {
	Name string `json:"name,omitempty"`
	BookSpec
	Cover CoverSource `json:"cover"`
}

// UpdateBookRequest is the body of PUT /book-update/{id}/. It replaces every
// serializable field of the stored book.
type UpdateBookRequest struct {
	BookSpec
	Cover           string          `json:"cover"`
	TableOfContents TableOfContents `json:"table_of_contents"`
	Content         Content         `json:"content"`

	// Read-only fields of a detail response. They are accepted so a fetched
	// book can be sent back as is, and never applied.
	ID        json.RawMessage `json:"id,omitempty"`
	Document  json.RawMessage `json:"document,omitempty"`
	PDF       json.RawMessage `json:"pdf,omitempty"`
	EPUB      json.RawMessage `json:"epub,omitempty"`
	CreatedAt json.RawMessage `json:"created_at,omitempty"`
	UpdatedAt json.RawMessage `json:"updated_at,omitempty"`
}

// Normalize trims surrounding whitespace from the text fields.
func (s BookSpec) Normalize() BookSpec {
	s.Author = strings.TrimSpace(s.Author)
	s.Title = strings.TrimSpace(s.Title)
	s.Topic = strings.TrimSpace(s.Topic)
	s.TargetAudience = strings.TrimSpace(s.TargetAudience)
	return s
}

func (s BookSpec) Validate() error {
	if err := checkText("author", s.Author, MaxAuthorLength); err != nil {
		return err
	}
	if err := checkText("title", s.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := checkText("topic", s.Topic, MaxTopicLength); err != nil {
		return err
	}
	if err := checkText("target_audience", s.TargetAudience, MaxTargetAudienceLength); err != nil {
		return err
	}
	if err := checkCount("num_chapters", s.NumChapters); err != nil {
		return err
	}
	return checkCount("num_subsections", s.NumSubsections)
}

func (r CreateBookRequest) Normalize() CreateBookRequest {
	r.BookSpec = r.BookSpec.Normalize()
	r.Cover = CoverSource(strings.TrimSpace(string(r.Cover)))
	return r
}

func (r CreateBookRequest) Validate() error {
	if err := r.BookSpec.Validate(); err != nil {
		return err
	}
	return checkText("cover", string(r.Cover), MaxCoverLength)
}

func (r UpdateBookRequest) Normalize() UpdateBookRequest {
	r.BookSpec = r.BookSpec.Normalize()
	r.Cover = strings.TrimSpace(r.Cover)
	return r
}

func (r UpdateBookRequest) Validate() error {
	if err := r.BookSpec.Validate(); err != nil {
		return err
	}
	if err := checkText("cover", r.Cover, MaxCoverLength); err != nil {
		return err
	}
	for i, ch := range r.TableOfContents {
		if strings.TrimSpace(ch.Chapter) == "" {
			return &ValidationError{Field: "table_of_contents", Message: fmt.Sprintf("chapter %d has no title", i+1)}
		}
	}
	for i, ch := range r.Content {
		if strings.TrimSpace(ch.Chapter) == "" {
			return &ValidationError{Field: "content", Message: fmt.Sprintf("chapter %d has no title", i+1)}
		}
	}
	return nil
}

// Apply copies the request onto a stored book, leaving identity, artifacts
// and timestamps untouched.
func (r UpdateBookRequest) Apply(b Book) Book {
	b.Author = r.Author
	b.Title = r.Title
	b.Topic = r.Topic
	b.TargetAudience = r.TargetAudience
	b.NumChapters = r.NumChapters
	b.NumSubsections = r.NumSubsections
	b.Cover = r.Cover
	b.TableOfContents = r.TableOfContents
	b.Content = r.Content
	return b
}

func checkText(field, value string, max int) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "this field is required"}
	}
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("ensure this field has no more than %d characters", max)}
	}
	return nil
}

func checkCount(field string, value int) error {
	if value < MinStructureCount || value > MaxStructureCount {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d", MinStructureCount, MaxStructureCount)}
	}
	return nil
}
