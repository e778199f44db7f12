package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVExtractor handles .csv files. Each data row becomes one segment of
// "header: value" lines, mirroring how row-oriented loaders present
// tabular data to embedding models.
type CSVExtractor struct{}

func (e *CSVExtractor) Formats() []string { return []string{"csv"} }

func (e *CSVExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var segments []Segment
	rowNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", rowNum, err)
		}

		var b strings.Builder
		for i, val := range row {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(val)
			b.WriteString("\n")
		}
		text := strings.TrimSpace(b.String())
		if text != "" {
			segments = append(segments, Segment{Text: text, Page: rowNum})
		}
		rowNum++
	}

	return &Result{Segments: segments}, nil
}
