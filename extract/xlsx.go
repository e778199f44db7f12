package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor handles .xlsx workbooks. Each sheet becomes one segment of
// pipe-delimited rows with the sheet name as its section.
type XLSXExtractor struct{}

func (e *XLSXExtractor) Formats() []string { return []string{"xlsx"} }

func (e *XLSXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var segments []Segment
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		var content strings.Builder
		for _, row := range rows {
			content.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		segments = append(segments, Segment{
			Text:    strings.TrimSpace(content.String()),
			Page:    i + 1,
			Section: sheet,
		})
	}

	return &Result{Segments: segments}, nil
}
