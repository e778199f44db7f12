package search

import (
	"sort"
	"strings"

	"github.com/Xerophayze/ragstore/store"
)

// assembleContext builds the result content for a selected chunk: a window
// of `window` sibling chunks on each side (by chunk_number within the same
// document), concatenated with a "[heading]" prefix line for chunks that
// carry section provenance. When the chunk cannot be located among its
// document's chunks, its own content is returned unadorned.
func assembleContext(chunk store.Chunk, docChunks []store.Chunk, window int) string {
	if window <= 0 || len(docChunks) == 0 {
		return chunk.Content
	}

	siblings := make([]store.Chunk, len(docChunks))
	copy(siblings, docChunks)
	sort.Slice(siblings, func(i, j int) bool {
		return siblings[i].ChunkNumber < siblings[j].ChunkNumber
	})

	pos := -1
	for i, c := range siblings {
		if c.ChunkID == chunk.ChunkID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return chunk.Content
	}

	lo := pos - window
	if lo < 0 {
		lo = 0
	}
	hi := pos + window
	if hi > len(siblings)-1 {
		hi = len(siblings) - 1
	}

	parts := make([]string, 0, hi-lo+1)
	for _, c := range siblings[lo : hi+1] {
		if c.Section != "" {
			parts = append(parts, "["+c.Section+"]\n"+c.Content)
		} else {
			parts = append(parts, c.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
