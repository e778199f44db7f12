package search

import (
	"fmt"

	"github.com/Xerophayze/ragstore/store"
)

// matchesFilters checks a chunk (and its owning document) against the
// filter mapping. Semantics per key:
//
//   - "tags": the document's tag set must be a superset of the expected
//     value (a single tag or a list of tags).
//   - "doc_id", "source": exact match on the chunk.
//   - anything else: looked up on the chunk first, then on the document;
//     a collection value means membership, a scalar means equality.
func matchesFilters(c store.Chunk, doc *store.Document, filters map[string]any) bool {
	for key, expected := range filters {
		switch key {
		case "tags":
			want := toStrings(expected)
			if len(want) == 0 {
				// Superset of the empty set: trivially satisfied.
				continue
			}
			if doc == nil || !hasAllTags(doc.Tags, want) {
				return false
			}
		case "doc_id":
			if !equalScalar(c.DocID, expected) {
				return false
			}
		case "source":
			if !equalScalar(c.Source, expected) {
				return false
			}
		default:
			actual, ok := chunkField(c, key)
			if !ok && doc != nil {
				actual, ok = documentField(*doc, key)
			}
			if !ok || !matchValue(actual, expected) {
				return false
			}
		}
	}
	return true
}

func hasAllTags(have []string, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}

// toStrings accepts a single value or a list of values, rendered to their
// string form so numeric tags from decoded JSON still match.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

// matchValue applies membership for collection expectations, equality otherwise.
func matchValue(actual, expected any) bool {
	switch exp := expected.(type) {
	case []any:
		for _, e := range exp {
			if equalScalar(actual, e) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range exp {
			if equalScalar(actual, e) {
				return true
			}
		}
		return false
	default:
		return equalScalar(actual, expected)
	}
}

// equalScalar compares via string form so JSON-decoded numbers (float64)
// match their integer counterparts.
func equalScalar(actual, expected any) bool {
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

func chunkField(c store.Chunk, key string) (any, bool) {
	switch key {
	case "chunk_id":
		return c.ChunkID, true
	case "chunk_number":
		return c.ChunkNumber, true
	case "page":
		return c.Page, true
	case "section":
		return c.Section, true
	case "created_at":
		return c.CreatedAt, true
	default:
		return nil, false
	}
}

func documentField(d store.Document, key string) (any, bool) {
	switch key {
	case "file_type":
		return d.FileType, true
	case "file_hash":
		return d.FileHash, true
	case "path":
		return d.Path, true
	case "size_bytes":
		return d.SizeBytes, true
	case "added_at":
		return d.AddedAt, true
	case "updated_at":
		return d.UpdatedAt, true
	default:
		return nil, false
	}
}
