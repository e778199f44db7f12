// Package search implements filtered similarity search with MMR reranking
// and context windowing over a database's vector index and chunk metadata.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Xerophayze/ragstore/embed"
	"github.com/Xerophayze/ragstore/store"
)

// mmrLambda balances relevance against redundancy during reranking.
const mmrLambda = 0.6

// Options configures one search call.
type Options struct {
	TopK           int
	Filters        map[string]any
	ContextWindow  int
	Rerank         bool
	CollectMetrics bool
}

// Result is one retrieved chunk with its assembled context and provenance.
type Result struct {
	DocID       string          `json:"doc_id"`
	Source      string          `json:"source"`
	Similarity  float64         `json:"similarity"`
	Content     string          `json:"content"`
	ChunkID     string          `json:"chunk_id"`
	Page        int             `json:"page,omitempty"`
	ChunkNumber int             `json:"chunk_number"`
	Section     string          `json:"section,omitempty"`
	Filters     map[string]any  `json:"filters,omitempty"`
	Document    *store.Document `json:"document,omitempty"`
}

// Engine runs searches against one Store using a shared embedding provider.
type Engine struct {
	store    *store.Store
	embedder embed.Provider
	dim      int
}

// New creates a search engine over the given store.
func New(s *store.Store, p embed.Provider, dim int) *Engine {
	return &Engine{store: s, embedder: p, dim: dim}
}

// candidate is a chunk that survived dedup and filtering, with its
// similarity score and unit-normalized vector for MMR.
type candidate struct {
	chunk store.Chunk
	score float64
	vec   []float32
}

// Search embeds the query, over-fetches nearest neighbors, filters and
// deduplicates, optionally MMR-reranks, and assembles windowed context.
// A missing database or empty index yields an empty result, not an error.
func (e *Engine) Search(ctx context.Context, db, query string, opts Options) ([]Result, error) {
	start := time.Now()

	if opts.TopK <= 0 {
		return nil, nil
	}
	if !e.store.Exists(db) {
		return nil, nil
	}

	chunks, err := e.store.LoadChunks(db)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if !embed.Normalize(queryVec) {
		// Zero-norm query embedding (e.g. empty query on some models).
		return nil, nil
	}

	index, err := store.OpenIndex(e.store.IndexPath(db), e.dim)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer index.Close()

	// Over-fetch: filtering and dedup happen after the vector search, so a
	// pool of exactly top_k could starve the final selection.
	fetchK := opts.TopK * 4
	if fetchK < opts.TopK {
		fetchK = opts.TopK
	}
	if fetchK > len(chunks) {
		fetchK = len(chunks)
	}

	hits, err := index.Search(queryVec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	docs, err := e.store.LoadDocuments(db)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	docByID := make(map[string]*store.Document, len(docs))
	for i := range docs {
		docByID[docs[i].DocID] = &docs[i]
	}

	candidates, recovered := e.collectCandidates(ctx, hits, chunks, docByID, opts, fetchK)

	// Persist lazily recovered embeddings back to metadata. The chunks were
	// loaded lock-free, so the snapshot may be stale by now; re-load under
	// the lock and merge only the recovered embeddings by chunk ID.
	if len(recovered) > 0 {
		if err := e.persistRecovered(db, recovered); err != nil {
			slog.Warn("persisting recovered embeddings failed", "db", db, "error", err)
		}
	}

	var selected []candidate
	if opts.Rerank && len(candidates) > opts.TopK {
		selected = rerankMMR(queryVec, candidates, opts.TopK)
	} else {
		selected = candidates
		if len(selected) > opts.TopK {
			selected = selected[:opts.TopK]
		}
	}

	chunksByDoc := groupByDocument(chunks)
	results := make([]Result, 0, len(selected))
	for _, c := range selected {
		results = append(results, Result{
			DocID:       c.chunk.DocID,
			Source:      c.chunk.Source,
			Similarity:  c.score,
			Content:     assembleContext(c.chunk, chunksByDoc[c.chunk.DocID], opts.ContextWindow),
			ChunkID:     c.chunk.ChunkID,
			Page:        c.chunk.Page,
			ChunkNumber: c.chunk.ChunkNumber,
			Section:     c.chunk.Section,
			Filters:     opts.Filters,
			Document:    docByID[c.chunk.DocID],
		})
	}

	if opts.CollectMetrics {
		metric := store.SearchMetric{
			Query:     query,
			TopK:      opts.TopK,
			Filters:   opts.Filters,
			Results:   len(results),
			LatencyMS: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := e.store.AppendMetric(db, metric); err != nil {
			slog.Warn("appending search metric failed", "db", db, "error", err)
		}
	}

	return results, nil
}

// collectCandidates walks index hits in similarity order, skipping invalid
// positions and duplicate chunk IDs, applying metadata filters, and lazily
// re-embedding chunks whose cached embedding is missing. Recovered
// embeddings are returned keyed by chunk ID for persistence.
func (e *Engine) collectCandidates(ctx context.Context, hits []store.Hit, chunks []store.Chunk,
	docByID map[string]*store.Document, opts Options, fetchK int) ([]candidate, map[string][]float32) {

	seen := make(map[string]bool, len(hits))
	var candidates []candidate
	recovered := map[string][]float32{}

	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(chunks) {
			continue
		}
		chunk := &chunks[hit.Position]
		if chunk.ChunkID == "" || seen[chunk.ChunkID] {
			continue
		}
		seen[chunk.ChunkID] = true

		if !matchesFilters(*chunk, docByID[chunk.DocID], opts.Filters) {
			continue
		}

		if len(chunk.Embedding) == 0 {
			vec, err := e.embedder.EmbedQuery(ctx, chunk.Content)
			if err != nil {
				slog.Warn("re-embedding chunk failed", "chunk_id", chunk.ChunkID, "error", err)
				continue
			}
			embed.Normalize(vec)
			chunk.Embedding = vec
			recovered[chunk.ChunkID] = vec
		}

		vec := make([]float32, len(chunk.Embedding))
		copy(vec, chunk.Embedding)
		if !embed.Normalize(vec) {
			continue
		}

		candidates = append(candidates, candidate{chunk: *chunk, score: hit.Score, vec: vec})
		if len(candidates) >= fetchK {
			break
		}
	}
	return candidates, recovered
}

// persistRecovered merges recovered embeddings into the current chunk
// metadata under the database lock. Only chunks that still exist and still
// lack an embedding are touched, so a mutation committed between the
// lock-free load and this save is never reverted.
func (e *Engine) persistRecovered(db string, recovered map[string][]float32) error {
	return e.store.WithLock(db, func() error {
		current, err := e.store.LoadChunks(db)
		if err != nil {
			return err
		}

		changed := false
		for i := range current {
			if len(current[i].Embedding) > 0 {
				continue
			}
			if vec, ok := recovered[current[i].ChunkID]; ok {
				current[i].Embedding = vec
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return e.store.SaveChunks(db, current)
	})
}

// groupByDocument buckets chunks by owning document for context assembly.
func groupByDocument(chunks []store.Chunk) map[string][]store.Chunk {
	byDoc := make(map[string][]store.Chunk)
	for _, c := range chunks {
		byDoc[c.DocID] = append(byDoc[c.DocID], c)
	}
	return byDoc
}
