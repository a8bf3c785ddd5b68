package authoring

import (
	"context"
	"fmt"
	"log"

	"github.com/coreybb/ebookgen/models"
)

// Author drives the LLM through outline, prose and cover prompt generation.
// Every LLM call is made exactly once; the first failure aborts the book.
type Author struct {
	text TextGenerator
}

func NewAuthor(text TextGenerator) *Author {
	return &Author{text: text}
}

// Outline requests and parses the table of contents.
func (a *Author) Outline(ctx context.Context, spec models.BookSpec) (models.TableOfContents, error) {
	raw, err := a.text.Generate(ctx, OutlinePrompt(spec))
	if err != nil {
		return nil, fmt.Errorf("failed to generate outline for %q: %w", spec.Title, err)
	}

	toc, err := ParseOutline(raw)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO (Author): Outline for %q has %d chapter(s), %d subsection(s)", spec.Title, len(toc), toc.SubsectionCount())
	return toc, nil
}

// Content generates the prose of every subsection in outline order.
func (a *Author) Content(ctx context.Context, toc models.TableOfContents) (models.Content, error) {
	content := make(models.Content, 0, len(toc))
	for _, chapter := range toc {
		cc := models.ContentChapter{
			Chapter:     chapter.Chapter,
			Subsections: make([]models.ContentSubsection, 0, len(chapter.Subsections)),
		}
		for _, sub := range chapter.Subsections {
			raw, err := a.text.Generate(ctx, ContentPrompt(sub, chapter.Chapter))
			if err != nil {
				return nil, fmt.Errorf("failed to generate content for subsection %q: %w", sub, err)
			}
			cc.Subsections = append(cc.Subsections, models.ContentSubsection{
				Subsection: sub,
				Paragraphs: SplitParagraphs(raw),
			})
		}
		content = append(content, cc)
		log.Printf("INFO (Author): Wrote chapter %q (%d subsections)", chapter.Chapter, len(cc.Subsections))
	}
	return content, nil
}

// CoverPrompt asks the LLM for a scene description and returns the full
// image generation prompt.
func (a *Author) CoverPrompt(ctx context.Context, spec models.BookSpec) (string, error) {
	scene, err := a.text.Generate(ctx, CoverPromptRequest(spec))
	if err != nil {
		return "", fmt.Errorf("failed to generate cover prompt for %q: %w", spec.Title, err)
	}
	return CoverImagePrompt(scene, spec.Title), nil
}
