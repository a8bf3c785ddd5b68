package document

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

// Point sizes used throughout the book.
const (
	tocChapterPt     = 20
	tocSubsectionPt  = 18
	chapterTitlePt   = 30
	subsectionHeadPt = 24
	bodyPt           = 16
	bodySpacingTwips = 240 // 12pt
	chapterPadding   = 13  // empty paragraphs before a chapter title
)

var headingStyles = [...]string{"Title", "Heading1", "Heading2"}

// SplitSubsection splits "1.2 Title" on its first space into number and title.
func SplitSubsection(subsection string) (number, title string) {
	number, title, found := strings.Cut(strings.TrimSpace(subsection), " ")
	if !found {
		return number, ""
	}
	return number, strings.TrimSpace(title)
}

// StripChapterLabel drops a "Chapter 1:" style label when present.
func StripChapterLabel(chapter string) string {
	if _, rest, found := strings.Cut(chapter, ":"); found && strings.TrimSpace(rest) != "" {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(chapter)
}

// ShouldSkipParagraph reports whether a generated paragraph merely repeats the
// subsection heading, with or without its number. Markdown heading and bold
// markers are ignored for the comparison.
func ShouldSkipParagraph(paragraph, subsection string) bool {
	p := strings.Trim(strings.TrimSpace(paragraph), "#* ")
	if p == "" {
		return true
	}
	if strings.EqualFold(p, strings.TrimSpace(subsection)) {
		return true
	}
	_, title := SplitSubsection(subsection)
	return title != "" && strings.EqualFold(p, title)
}

func heading(d *docx.Docx, level int) *docx.Paragraph {
	return d.AddParagraph().Style(headingStyles[level])
}

func styleRun(r *docx.Run, font string, pt int, bold bool) *docx.Run {
	r.Font(font, font, font, "")
	r.Size(strconv.Itoa(pt * 2))
	if bold {
		r.Bold()
	}
	preserveSpace(r)
	return r
}

// preserveSpace keeps leading and trailing blanks of run text.
func preserveSpace(r *docx.Run) {
	for _, child := range r.Children {
		if t, ok := child.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
}

func pageBreak(d *docx.Docx) {
	d.AddParagraph().AddPageBreaks()
}

// bodyFormat is a w:pPr carrying space after, which docx.Spacing cannot express.
type bodyFormat struct {
	XMLName       xml.Name `xml:"w:pPr"`
	Spacing       bodySpacing
	Justification *docx.Justification
}

type bodySpacing struct {
	XMLName xml.Name `xml:"w:spacing"`
	Before  int      `xml:"w:before,attr,omitempty"`
	After   int      `xml:"w:after,attr,omitempty"`
}

// justifiedBody adds a justified body paragraph with space after it, and space
// before it too when it opens a subsection.
func justifiedBody(d *docx.Docx, first bool) *docx.Paragraph {
	p := d.AddParagraph()
	f := bodyFormat{
		Spacing:       bodySpacing{After: bodySpacingTwips},
		Justification: &docx.Justification{Val: "both"},
	}
	if first {
		f.Spacing.Before = bodySpacingTwips
	}
	p.Properties = nil
	p.Children = append([]any{f}, p.Children...)
	return p
}
