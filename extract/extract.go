// Package extract turns source files into plain text for chunking.
// Each supported format has an Extractor; a Registry keyed on file
// extension picks the right one, so new formats are added by registering
// a new variant rather than growing a dispatch chain.
package extract

import "context"

// Segment is a contiguous run of extracted text with optional provenance.
// Loaders that know about pages or named sections record them here so the
// resulting chunks can carry the same provenance.
type Segment struct {
	Text    string
	Page    int    // 1-based page (or sheet index), 0 when unknown
	Section string // heading or sheet name, "" when unknown
}

// Result is what an extractor produces from one file.
type Result struct {
	Segments []Segment
}

// Extractor extracts plain text from a specific file format.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
	Formats() []string
}
