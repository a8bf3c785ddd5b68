package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/coreybb/ebookgen/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedText struct {
	mu      sync.Mutex
	prompts []string
	answer  func(prompt string) (string, error)
}

func (s *scriptedText) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.answer(prompt)
}

func TestNormalizeSubsection(t *testing.T) {
	tests := []struct {
		in      string
		c, s    int
		want    string
	}{
		{"Orbits", 2, 3, "2.3 Orbits"},
		{"2.3 Orbits", 2, 3, "2.3 Orbits"},
		{"Section 1: Light", 1, 1, "1.1 Light"},
		{"section two: Heat", 1, 2, "1.2 Heat"},
		{"Sectional sofas", 1, 1, "1.1 Sectional sofas"},
		{"1.10 Overflow", 1, 1, "1.1 1.10 Overflow"},
		{"  Padded  ", 3, 1, "3.1 Padded"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeSubsection(tc.in, tc.c, tc.s), tc.in)
	}
}

func TestParseOutlinePreservesOrder(t *testing.T) {
	raw := `{"Chapter 2: Zeta": ["Intro", "Section 2: Depth"], "Chapter 1: Alpha": ["2.1 Numbered"]}`

	toc, err := ParseOutline(raw)
	require.NoError(t, err)
	require.Len(t, toc, 2)

	assert.Equal(t, "Chapter 2: Zeta", toc[0].Chapter)
	assert.Equal(t, []string{"1.1 Intro", "1.2 Depth"}, toc[0].Subsections)
	assert.Equal(t, "Chapter 1: Alpha", toc[1].Chapter)
	assert.Equal(t, []string{"2.1 Numbered"}, toc[1].Subsections)
}

func TestParseOutlineAcceptsCodeFence(t *testing.T) {
	toc, err := ParseOutline("```json\n{\"Stars\": [\"Light\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "1.1 Light", toc[0].Subsections[0])
}

func TestParseOutlineErrors(t *testing.T) {
	for _, raw := range []string{
		"Here is your outline: Chapter 1...",
		`["not", "an", "object"]`,
		`{"Chapter": "not a list"}`,
		`{}`,
		`{"A": ["x"]} trailing`,
	} {
		_, err := ParseOutline(raw)
		var pErr *ParseError
		require.True(t, errors.As(err, &pErr), raw)
		assert.Equal(t, raw, pErr.Raw)
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("First line.\nstill first.\n\n  Second.  \r\n\r\nThird.\n \n\n")
	assert.Equal(t, []string{"First line.\nstill first.", "Second.", "Third."}, got)
	assert.Empty(t, SplitParagraphs("   "))
}

func TestCoverImagePrompt(t *testing.T) {
	got := CoverImagePrompt(` "A lighthouse in a storm." `, "T")
	assert.True(t, strings.HasPrefix(got, "A lighthouse in a storm, in the style of Vincent van Gogh"))

	fallback := CoverImagePrompt("", "Stars")
	assert.True(t, strings.HasPrefix(fallback, `"Stars", in the style`))
}

func TestAuthorOutlineAndContent(t *testing.T) {
	gen := &scriptedText{answer: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "We are writing an eBook") {
			return `{"Chapter 1: Stars": ["Light", "Heat"]}`, nil
		}
		return "Para one.\n\nPara two.", nil
	}}
	author := NewAuthor(gen)
	spec := models.BookSpec{Title: "T", Topic: "space", TargetAudience: "kids", NumChapters: 1, NumSubsections: 2}

	toc, err := author.Outline(context.Background(), spec)
	require.NoError(t, err)
	content, err := author.Content(context.Background(), toc)
	require.NoError(t, err)

	require.Len(t, content, 1)
	require.Len(t, content[0].Subsections, 2)
	assert.Equal(t, "1.2 Heat", content[0].Subsections[1].Subsection)
	assert.Equal(t, []string{"Para one.", "Para two."}, content[0].Subsections[0].Paragraphs)

	require.Len(t, gen.prompts, 3)
	assert.Equal(t, `Write a full text content for the subsection: "1.1 Light" for the chapter: "Chapter 1: Stars".`, gen.prompts[1])
	assert.Contains(t, gen.prompts[0], "It should have 1 chapter(s). Each chapter should have exactly 2 subsection(s).")
}

func TestAuthorContentStopsAtFirstFailure(t *testing.T) {
	calls := 0
	gen := &scriptedText{answer: func(string) (string, error) {
		calls++
		return "", errors.New("quota exceeded")
	}}
	toc := models.TableOfContents{{Chapter: "One", Subsections: []string{"1.1 A", "1.2 B"}}}

	_, err := NewAuthor(gen).Content(context.Background(), toc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, calls)
}

func TestOpenAITextAgainstFakeServer(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAIText("test-key", srv.URL+"/v1", "", srv.Client())
	out, err := gen.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "gpt-3.5-turbo", gotModel)
}

func TestOpenAITextEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIText("k", srv.URL+"/v1", "", srv.Client()).Generate(context.Background(), "hi")
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestThrottledHonoursContext(t *testing.T) {
	gen := &scriptedText{answer: func(string) (string, error) { return "ok", nil }}
	throttled := NewThrottled(gen, 1)

	_, err := throttled.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = throttled.Generate(ctx, "second")
	assert.Error(t, err)
	assert.Len(t, gen.prompts, 1)
}

func TestNewThrottledDisabled(t *testing.T) {
	gen := &scriptedText{answer: func(string) (string, error) { return "ok", nil }}
	assert.Same(t, gen, NewThrottled(gen, 0))
}
