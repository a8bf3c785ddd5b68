package authoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/coreybb/ebookgen/models"
)

// ParseError is returned when the LLM outline answer is not the expected JSON object.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("outline response is not a JSON object of chapter -> subsections: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// OutlinePrompt builds the single prompt that asks for the whole outline.
func OutlinePrompt(spec models.BookSpec) string {
	return fmt.Sprintf(
		`We are writing an eBook called "%s". It is about "%s". Our reader is: "%s". `+
			`Create a comprehensive and nonrepetitive outline for this eBook. `+
			`It should have %d chapter(s). Each chapter should have exactly %d subsection(s). `+
			`Output Format for prompt: a JSON object using double quotes with key: chapter title, `+
			`value: a single array containing the subsection titles within the chapter `+
			`(the subtopics should be inside the array). Output only the JSON object.`,
		spec.Title, spec.Topic, spec.TargetAudience, spec.NumChapters, spec.NumSubsections,
	)
}

// ParseOutline decodes the LLM answer into an ordered table of contents and
// numbers every subsection. Chapter order follows the key order of the JSON
// object; a surrounding markdown code fence is ignored.
func ParseOutline(raw string) (models.TableOfContents, error) {
	body := stripCodeFence(raw)

	dec := json.NewDecoder(strings.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ParseError{Raw: raw, Err: errors.New("expected a JSON object")}
	}

	toc := models.TableOfContents{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
		chapter, ok := keyTok.(string)
		if !ok {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("unexpected key %v", keyTok)}
		}

		var subsections []string
		if err := dec.Decode(&subsections); err != nil {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("chapter %q: %w", chapter, err)}
		}

		c := len(toc) + 1
		normalized := make([]string, 0, len(subsections))
		for i, s := range subsections {
			normalized = append(normalized, NormalizeSubsection(s, c, i+1))
		}
		toc = append(toc, models.OutlineChapter{Chapter: strings.TrimSpace(chapter), Subsections: normalized})
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Raw: raw, Err: errors.New("trailing data after outline object")}
	}
	if len(toc) == 0 {
		return nil, &ParseError{Raw: raw, Err: errors.New("outline has no chapters")}
	}
	return toc, nil
}

// NormalizeSubsection strips a leading "Section ...:" label and makes sure the
// title starts with its "<chapter>.<index>" number.
func NormalizeSubsection(title string, chapter, index int) string {
	title = strings.TrimSpace(title)
	if strings.HasPrefix(strings.ToLower(title), "section") {
		if _, rest, found := strings.Cut(title, ":"); found {
			title = strings.TrimSpace(rest)
		}
	}

	number := strconv.Itoa(chapter) + "." + strconv.Itoa(index)
	if hasNumberPrefix(title, number) {
		return title
	}
	return number + " " + title
}

// hasNumberPrefix rejects "1.10" as a prefix match for "1.1".
func hasNumberPrefix(title, number string) bool {
	if !strings.HasPrefix(title, number) {
		return false
	}
	rest := title[len(number):]
	return rest == "" || !unicode.IsDigit(rune(rest[0]))
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
