package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor handles .pdf files via native text extraction. Each page
// becomes one or more segments; a lightweight heading heuristic attaches
// section names so chunks carry provenance beyond the page number.
type PDFExtractor struct{}

func (e *PDFExtractor) Formats() []string { return []string{"pdf"} }

func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var segments []Segment
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		segments = append(segments, splitPageSegments(text, i)...)
	}

	return &Result{Segments: segments}, nil
}

// splitPageSegments breaks page text at detected headings so each segment
// knows the heading it falls under.
func splitPageSegments(text string, pageNum int) []Segment {
	lines := strings.Split(text, "\n")

	var segments []Segment
	var body strings.Builder
	heading := ""

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" {
			segments = append(segments, Segment{Text: content, Page: pageNum, Section: heading})
		}
		body.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if body.Len() > 0 {
				body.WriteString("\n")
			}
			continue
		}
		if isLikelyHeading(trimmed) {
			flush()
			heading = trimmed
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(trimmed)
	}
	flush()

	// No headings detected: the whole page is one segment.
	if len(segments) == 0 {
		segments = append(segments, Segment{Text: text, Page: pageNum})
	}
	return segments
}

// isLikelyHeading flags all-caps lines, numbered sections ("3.2 Title"),
// and common structural prefixes.
func isLikelyHeading(line string) bool {
	if len(line) == 0 || len(line) > 120 {
		return false
	}
	if len(line) > 2 && len(line) < 100 && line == strings.ToUpper(line) {
		return true
	}
	if line[0] >= '0' && line[0] <= '9' {
		head := line
		if len(head) > 10 {
			head = head[:10]
		}
		if strings.Contains(head, ".") {
			return true
		}
	}
	lower := strings.ToLower(line)
	for _, prefix := range []string{"section ", "chapter ", "article ", "appendix ", "part "} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
