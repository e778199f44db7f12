// Package splitter implements the chunk boundary policy for ingestion:
// recursive character splitting with overlap, plus boilerplate line cleaning.
package splitter

import (
	"log/slog"
	"strings"
)

// DefaultSeparators is the separator cascade tried in order. The final empty
// separator forces a hard character split for text with no natural breaks.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

const (
	DefaultChunkSize = 800
	DefaultOverlap   = 150
)

// Splitter splits text into overlapping chunks. Pieces are split on the
// coarsest separator that occurs in the text, recursing into finer separators
// for pieces that still exceed ChunkSize, then merged back up to ChunkSize
// with Overlap characters carried between consecutive chunks.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// New creates a Splitter, applying defaults for zero values.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		Separators: DefaultSeparators,
	}
}

// Split splits text into chunks honoring the separator cascade.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.splitText(text, seps)
}

func (s *Splitter) splitText(text string, separators []string) []string {
	// Pick the first separator that occurs in the text; remember the finer
	// ones for recursion into oversized pieces.
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	splits := splitKeepSeparator(text, separator)

	var final []string
	var good []string
	for _, piece := range splits {
		if len(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.mergeSplits(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.mergeSplits(good)...)
	}
	return final
}

// splitKeepSeparator splits text on sep, keeping the separator attached to
// the front of the following piece so rejoining reproduces the original text.
// An empty sep splits into ChunkSize-agnostic single characters handled by
// the caller's merge; here it returns per-rune pieces.
func splitKeepSeparator(text, sep string) []string {
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts = make([]string, 0, len(raw))
	for i, p := range raw {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// mergeSplits packs consecutive pieces into chunks of at most ChunkSize
// characters, carrying roughly Overlap trailing characters into the next
// chunk. Separators are already embedded in the pieces.
func (s *Splitter) mergeSplits(splits []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, piece := range splits {
		if total+len(piece) > s.ChunkSize {
			if total > s.ChunkSize {
				slog.Warn("splitter: produced a chunk longer than target",
					"size", total, "target", s.ChunkSize)
			}
			if len(current) > 0 {
				if doc := joinPieces(current); doc != "" {
					docs = append(docs, doc)
				}
				// Drop pieces from the front until within the overlap
				// budget and the new piece fits.
				for total > s.Overlap || (total+len(piece) > s.ChunkSize && total > 0) {
					total -= len(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += len(piece)
	}

	if doc := joinPieces(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}
