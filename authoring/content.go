package authoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coreybb/ebookgen/models"
)

var blankLine = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// coverStyle is appended to every synthesized cover prompt.
const coverStyle = "in the style of Vincent van Gogh with black background and dark colors, " +
	"high quality, only using dark colors, and a dark, mysterious, and eerie atmosphere."

// ContentPrompt asks for the prose of one subsection.
func ContentPrompt(subsection, chapter string) string {
	return fmt.Sprintf(`Write a full text content for the subsection: "%s" for the chapter: "%s".`, subsection, chapter)
}

// SplitParagraphs splits an answer on blank lines. Paragraphs are trimmed and
// empty ones dropped.
func SplitParagraphs(text string) []string {
	parts := blankLine.Split(strings.TrimSpace(text), -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// CoverPromptRequest asks the LLM to describe a cover illustration.
func CoverPromptRequest(spec models.BookSpec) string {
	return fmt.Sprintf(
		`Write a single-sentence prompt for an image generator describing the cover illustration `+
			`of an eBook called "%s" about "%s". Describe only the scene, without any text or lettering. `+
			`Output only the prompt.`,
		spec.Title, spec.Topic,
	)
}

// CoverImagePrompt combines the synthesized scene with the house cover style.
// An empty scene falls back to the quoted title.
func CoverImagePrompt(scene, title string) string {
	scene = strings.Trim(strings.TrimSpace(scene), `"`)
	if scene == "" {
		scene = fmt.Sprintf("%q", title)
	}
	scene = strings.TrimRight(scene, ". ")
	return scene + ", " + coverStyle
}
