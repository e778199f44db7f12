package extract

import (
	"context"
	"fmt"
	"os"
)

// TextExtractor handles plain text (.txt, .md) files.
type TextExtractor struct{}

func (e *TextExtractor) Formats() []string { return []string{"txt", "md"} }

func (e *TextExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	content := string(data)
	if content == "" {
		return &Result{}, nil
	}

	return &Result{
		Segments: []Segment{{Text: content}},
	}, nil
}
