// Package ragstore is a local document store for retrieval-augmented
// generation: per-database ingestion, chunking, vector indexing, filtered
// similarity search with MMR reranking, and context-windowed results.
//
// Each database is an independent directory of state files plus a flat
// vector index; see the store package for the layout. Mutations are guarded
// by a per-database advisory file lock so multiple processes can share one
// databases root.
package ragstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Xerophayze/ragstore/embed"
	"github.com/Xerophayze/ragstore/extract"
	"github.com/Xerophayze/ragstore/search"
	"github.com/Xerophayze/ragstore/splitter"
	"github.com/Xerophayze/ragstore/store"
)

// Manager is the public surface of the document store. One Manager serves
// all databases under the configured root and shares a single embedding
// client, whose vector dimension is probed once at construction.
type Manager struct {
	cfg        Config
	store      *store.Store
	embedder   embed.Provider
	extractors *extract.Registry
	split      *splitter.Splitter
	dim        int
}

// IngestResult reports the per-file outcome of AddDocuments.
type IngestResult struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
}

// DBStats summarizes one database.
type DBStats struct {
	Name           string `json:"name"`
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	IndexedVectors int    `json:"indexed_vectors"`
	Dimension      int    `json:"dimension"`
}

// New creates a Manager, constructing the embedding provider from config
// and probing its dimension with a one-time embedding call.
func New(cfg Config) (*Manager, error) {
	provider, err := embed.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	return NewWithEmbedder(cfg, provider)
}

// NewWithEmbedder creates a Manager with a caller-supplied embedding
// provider. Useful for tests and for providers built outside the factory.
func NewWithEmbedder(cfg Config, provider embed.Provider) (*Manager, error) {
	s, err := store.Open(cfg.resolveRootDir())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	dim, err := embed.ProbeDimension(context.Background(), provider)
	if err != nil {
		return nil, err
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = splitter.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = splitter.DefaultOverlap
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 10
	}
	if cfg.DefaultContextWindow < 0 {
		cfg.DefaultContextWindow = 3
	}

	return &Manager{
		cfg:        cfg,
		store:      s,
		embedder:   provider,
		extractors: extract.NewRegistry(),
		split:      splitter.New(cfg.ChunkSize, cfg.ChunkOverlap),
		dim:        dim,
	}, nil
}

// Store returns the underlying store for diagnostic access.
func (m *Manager) Store() *store.Store { return m.store }

// Dimension returns the probed embedding dimension.
func (m *Manager) Dimension() int { return m.dim }

// --- Database lifecycle ---

// CreateDatabase allocates a new empty database directory and index.
func (m *Manager) CreateDatabase(ctx context.Context, name string) error {
	if err := validateDBName(name); err != nil {
		return err
	}
	if m.store.Exists(name) {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, name)
	}

	if err := m.store.Create(name); err != nil {
		return fmt.Errorf("creating database: %w", err)
	}

	index, err := store.OpenIndex(m.store.IndexPath(name), m.dim)
	if err != nil {
		m.store.Remove(name)
		return fmt.Errorf("creating index: %w", err)
	}
	index.Close()

	slog.Info("database created", "db", name, "dimension", m.dim)
	return nil
}

// DeleteDatabase removes a database and all its files.
func (m *Manager) DeleteDatabase(name string) error {
	if !m.store.Exists(name) {
		return fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
	}

	// Hold the lock briefly so an in-flight mutation finishes first.
	if err := m.store.WithLock(name, func() error { return nil }); err != nil {
		return err
	}
	if err := m.store.Remove(name); err != nil {
		return fmt.Errorf("removing database: %w", err)
	}

	slog.Info("database deleted", "db", name)
	return nil
}

// ListDatabases returns the names of all databases.
func (m *Manager) ListDatabases() ([]string, error) {
	return m.store.List()
}

// Stats reports document, chunk, and index counts for a database.
func (m *Manager) Stats(name string) (*DBStats, error) {
	if !m.store.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
	}

	docs, err := m.store.LoadDocuments(name)
	if err != nil {
		return nil, err
	}
	chunks, err := m.store.LoadChunks(name)
	if err != nil {
		return nil, err
	}

	stats := &DBStats{
		Name:      name,
		Documents: len(docs),
		Chunks:    len(chunks),
		Dimension: m.dim,
	}

	index, err := store.OpenIndex(m.store.IndexPath(name), m.dim)
	if err == nil {
		if n, cerr := index.Count(); cerr == nil {
			stats.IndexedVectors = n
		}
		index.Close()
	}
	return stats, nil
}

// --- Ingestion ---

// IngestOption configures AddDocuments.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	tags []string
}

// WithTags attaches tags to every document ingested in this call.
func WithTags(tags ...string) IngestOption {
	return func(o *ingestOptions) { o.tags = tags }
}

// AddDocuments ingests files into a database: save, hash-check, extract,
// clean, chunk, embed, and index. Unchanged files are skipped; files whose
// content hash changed have all prior chunks replaced. Per-file failures
// land in Skipped; only catastrophic errors fail the whole call.
func (m *Manager) AddDocuments(ctx context.Context, db string, paths []string, opts ...IngestOption) (*IngestResult, error) {
	options := &ingestOptions{}
	for _, o := range opts {
		o(options)
	}

	if !m.store.Exists(db) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, db)
	}

	result := &IngestResult{}
	err := m.store.WithLock(db, func() error {
		return m.ingestLocked(ctx, db, paths, options, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) ingestLocked(ctx context.Context, db string, paths []string, options *ingestOptions, result *IngestResult) error {
	chunks, err := m.store.LoadChunks(db)
	if err != nil {
		return err
	}
	docs, err := m.store.LoadDocuments(db)
	if err != nil {
		return err
	}

	docBySource := make(map[string]int, len(docs))
	for i, d := range docs {
		docBySource[d.Source] = i
	}

	needRebuild := false
	appended := 0 // chunks appended at the tail during this call

	for _, path := range paths {
		name := filepath.Base(path)

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("ingest: unreadable file", "file", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		hash := hashBytes(data)

		existingIdx, exists := docBySource[name]
		if exists && docs[existingIdx].FileHash == hash {
			slog.Info("ingest: unchanged, skipping", "file", name)
			result.Skipped = append(result.Skipped, name)
			continue
		}

		// Keep a copy of the source file inside the database directory.
		destPath := filepath.Join(m.store.DBDir(db), name)
		if absSrc, _ := filepath.Abs(path); absSrc != destPath {
			if err := os.WriteFile(destPath, data, 0o644); err != nil {
				slog.Warn("ingest: saving file copy failed", "file", name, "error", err)
				result.Skipped = append(result.Skipped, name)
				continue
			}
		}

		newChunks, err := m.extractAndChunk(ctx, destPath, name)
		if err != nil {
			slog.Warn("ingest: extraction failed", "file", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		if len(newChunks) == 0 {
			slog.Warn("ingest: no content after cleaning", "file", name)
			result.Skipped = append(result.Skipped, name)
			continue
		}

		embedStart := time.Now()
		if err := m.embedChunks(ctx, newChunks); err != nil {
			slog.Warn("ingest: embedding failed", "file", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		slog.Info("ingest: embedded", "file", name, "chunks", len(newChunks),
			"elapsed", time.Since(embedStart).Round(time.Millisecond))

		now := time.Now().UTC().Format(time.RFC3339)
		var docID string
		if exists {
			// Changed content: drop all prior chunks for this document.
			// Removal shifts metadata positions, so the whole index must
			// be rebuilt after the batch.
			docID = docs[existingIdx].DocID
			chunks = removeDocChunks(chunks, docID)
			needRebuild = true

			docs[existingIdx].FileHash = hash
			docs[existingIdx].SizeBytes = int64(len(data))
			docs[existingIdx].ChunkCount = len(newChunks)
			docs[existingIdx].UpdatedAt = now
			docs[existingIdx].Path = destPath
			if options.tags != nil {
				docs[existingIdx].Tags = options.tags
			}
			result.Updated = append(result.Updated, name)
		} else {
			docID = uuid.NewString()
			docs = append(docs, store.Document{
				DocID:      docID,
				Source:     name,
				Path:       destPath,
				FileType:   fileExt(name),
				FileHash:   hash,
				SizeBytes:  int64(len(data)),
				Tags:       options.tags,
				ChunkCount: len(newChunks),
				AddedAt:    now,
				UpdatedAt:  now,
			})
			docBySource[name] = len(docs) - 1
			result.Added = append(result.Added, name)
		}

		for i := range newChunks {
			newChunks[i].DocID = docID
			newChunks[i].Source = name
			newChunks[i].ChunkNumber = i
			newChunks[i].CreatedAt = now
		}
		chunks = append(chunks, newChunks...)
		appended += len(newChunks)
	}

	if err := m.store.SaveChunks(db, chunks); err != nil {
		return fmt.Errorf("saving chunk metadata: %w", err)
	}
	if err := m.store.SaveDocuments(db, docs); err != nil {
		return fmt.Errorf("saving document index: %w", err)
	}

	index, err := store.OpenIndex(m.store.IndexPath(db), m.dim)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer index.Close()

	if needRebuild {
		if err := m.rebuildLocked(ctx, db, index, chunks); err != nil {
			return err
		}
	} else if appended > 0 {
		vecs := normalizedVectors(chunks[len(chunks)-appended:])
		if err := index.Append(len(chunks)-appended, vecs); err != nil {
			return fmt.Errorf("appending to index: %w", err)
		}
	}

	slog.Info("ingest: batch complete", "db", db,
		"added", len(result.Added), "updated", len(result.Updated), "skipped", len(result.Skipped))
	return nil
}

// extractAndChunk extracts text for one file, splits each segment, and
// cleans boilerplate, keeping segment provenance on the resulting chunks.
func (m *Manager) extractAndChunk(ctx context.Context, path, name string) ([]store.Chunk, error) {
	format := fileExt(name)
	extractor, err := m.extractors.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	extractStart := time.Now()
	extracted, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	slog.Info("ingest: extracted", "file", name, "segments", len(extracted.Segments),
		"elapsed", time.Since(extractStart).Round(time.Millisecond))

	var chunks []store.Chunk
	for _, seg := range extracted.Segments {
		for _, piece := range m.split.Split(seg.Text) {
			content := splitter.CleanBoilerplate(piece)
			if content == "" {
				continue
			}
			chunks = append(chunks, store.Chunk{
				ChunkID: uuid.NewString(),
				Page:    seg.Page,
				Section: seg.Section,
				Content: content,
			})
		}
	}
	return chunks, nil
}

// embedBatchSize bounds one embedding request. Batch order follows chunk
// order so index positions stay aligned with chunk numbers.
const embedBatchSize = 32

// embedChunks fills in normalized embeddings for the given chunks. A failed
// batch falls back to per-text embedding so one bad text does not lose the
// rest; a chunk whose embedding still fails is stored without one and
// recovered lazily at search time.
func (m *Manager) embedChunks(ctx context.Context, chunks []store.Chunk) error {
	failed := 0
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = chunks[j].Content
		}

		vecs, err := m.embedder.EmbedDocuments(ctx, texts)
		if err != nil || len(vecs) != len(texts) {
			slog.Warn("embedding batch failed, falling back to individual",
				"batch_start", i, "batch_end", end, "error", err)
			for j := i; j < end; j++ {
				vec, serr := m.embedder.EmbedQuery(ctx, chunks[j].Content)
				if serr != nil {
					failed++
					continue
				}
				embed.Normalize(vec)
				chunks[j].Embedding = vec
			}
			continue
		}

		for j, vec := range vecs {
			embed.Normalize(vec)
			chunks[i+j].Embedding = vec
		}
	}

	if failed == len(chunks) && len(chunks) > 0 {
		return fmt.Errorf("%w: all %d chunks failed", ErrEmbeddingFailed, len(chunks))
	}
	if failed > 0 {
		slog.Warn("some chunk embeddings failed", "failed", failed, "total", len(chunks))
	}
	return nil
}

// --- Document lifecycle ---

// DeleteDocument removes a document (by source name or stored path), its
// chunks, and its backing file, then rebuilds the vector index.
func (m *Manager) DeleteDocument(ctx context.Context, db, nameOrPath string) error {
	if !m.store.Exists(db) {
		return fmt.Errorf("%w: %s", ErrDatabaseNotFound, db)
	}

	return m.store.WithLock(db, func() error {
		docs, err := m.store.LoadDocuments(db)
		if err != nil {
			return err
		}

		target := -1
		base := filepath.Base(nameOrPath)
		for i, d := range docs {
			if d.Source == base || d.Path == nameOrPath {
				target = i
				break
			}
		}
		if target == -1 {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, nameOrPath)
		}
		doc := docs[target]

		chunks, err := m.store.LoadChunks(db)
		if err != nil {
			return err
		}
		chunks = removeDocChunks(chunks, doc.DocID)
		docs = append(docs[:target], docs[target+1:]...)

		if err := m.store.SaveChunks(db, chunks); err != nil {
			return fmt.Errorf("saving chunk metadata: %w", err)
		}
		if err := m.store.SaveDocuments(db, docs); err != nil {
			return fmt.Errorf("saving document index: %w", err)
		}

		index, err := store.OpenIndex(m.store.IndexPath(db), m.dim)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		defer index.Close()
		if err := m.rebuildLocked(ctx, db, index, chunks); err != nil {
			return err
		}

		// Best effort: the backing file copy is not part of the logical state.
		if doc.Path != "" {
			if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
				slog.Warn("removing backing file failed", "path", doc.Path, "error", err)
			}
		}

		slog.Info("document deleted", "db", db, "source", doc.Source, "chunks_remaining", len(chunks))
		return nil
	})
}

// ListDocuments returns the source names of all documents in a database.
// A missing database yields an empty list.
func (m *Manager) ListDocuments(db string) ([]string, error) {
	docs, err := m.ListDocumentRecords(db)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Source
	}
	return names, nil
}

// ListDocumentRecords returns the full document records for a database.
// A missing database yields an empty list.
func (m *Manager) ListDocumentRecords(db string) ([]store.Document, error) {
	if !m.store.Exists(db) {
		return nil, nil
	}
	return m.store.LoadDocuments(db)
}

// rebuildLocked recomputes the vector index from chunk metadata in array
// order, re-embedding entries that lack an embedding and persisting those
// back. Zero-norm vectors are left out of the index.
func (m *Manager) rebuildLocked(ctx context.Context, db string, index *store.Index, chunks []store.Chunk) error {
	start := time.Now()

	dirty := false
	for i := range chunks {
		if len(chunks[i].Embedding) > 0 {
			continue
		}
		vec, err := m.embedder.EmbedQuery(ctx, chunks[i].Content)
		if err != nil {
			slog.Warn("rebuild: re-embedding failed", "chunk_id", chunks[i].ChunkID, "error", err)
			continue
		}
		embed.Normalize(vec)
		chunks[i].Embedding = vec
		dirty = true
	}
	if dirty {
		if err := m.store.SaveChunks(db, chunks); err != nil {
			return fmt.Errorf("saving re-embedded chunks: %w", err)
		}
	}

	if err := index.Rebuild(normalizedVectors(chunks)); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	slog.Info("index rebuilt", "db", db, "chunks", len(chunks),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// --- Search ---

// SearchOption configures a search call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	topK           int
	filters        map[string]any
	contextWindow  int
	rerank         bool
	collectMetrics bool
}

// WithTopK sets the number of results to return.
func WithTopK(k int) SearchOption {
	return func(o *searchOptions) { o.topK = k }
}

// WithFilters restricts results by metadata (see search package for semantics).
func WithFilters(filters map[string]any) SearchOption {
	return func(o *searchOptions) { o.filters = filters }
}

// WithContextWindow sets how many sibling chunks surround each hit.
func WithContextWindow(n int) SearchOption {
	return func(o *searchOptions) { o.contextWindow = n }
}

// WithoutRerank disables MMR diversity reranking.
func WithoutRerank() SearchOption {
	return func(o *searchOptions) { o.rerank = false }
}

// WithoutMetrics disables the search metrics log entry for this call.
func WithoutMetrics() SearchOption {
	return func(o *searchOptions) { o.collectMetrics = false }
}

// Search returns the most relevant, diverse, context-enriched chunks for a
// query. Missing databases and empty indexes yield empty results.
func (m *Manager) Search(ctx context.Context, db, query string, opts ...SearchOption) ([]search.Result, error) {
	options := &searchOptions{
		topK:           m.cfg.DefaultTopK,
		contextWindow:  m.cfg.DefaultContextWindow,
		rerank:         true,
		collectMetrics: true,
	}
	for _, o := range opts {
		o(options)
	}

	engine := search.New(m.store, m.embedder, m.dim)
	return engine.Search(ctx, db, query, search.Options{
		TopK:           options.topK,
		Filters:        options.filters,
		ContextWindow:  options.contextWindow,
		Rerank:         options.rerank,
		CollectMetrics: options.collectMetrics,
	})
}

// --- Notes ---

// AddNote attaches (or overwrites) a free-text note on a chunk.
func (m *Manager) AddNote(db, chunkID, note string) error {
	if !m.store.Exists(db) {
		return fmt.Errorf("%w: %s", ErrDatabaseNotFound, db)
	}
	return m.store.WithLock(db, func() error {
		notes, err := m.store.LoadNotes(db)
		if err != nil {
			return err
		}
		notes[chunkID] = note
		return m.store.SaveNotes(db, notes)
	})
}

// GetNote returns the note for a chunk, or "" when none exists.
func (m *Manager) GetNote(db, chunkID string) (string, error) {
	if !m.store.Exists(db) {
		return "", nil
	}
	notes, err := m.store.LoadNotes(db)
	if err != nil {
		return "", err
	}
	return notes[chunkID], nil
}

// PruneOrphanNotes deletes notes whose chunk no longer exists. Notes are
// not cascade-deleted with chunks, so they accumulate until pruned.
func (m *Manager) PruneOrphanNotes(db string) (int, error) {
	if !m.store.Exists(db) {
		return 0, fmt.Errorf("%w: %s", ErrDatabaseNotFound, db)
	}

	pruned := 0
	err := m.store.WithLock(db, func() error {
		notes, err := m.store.LoadNotes(db)
		if err != nil {
			return err
		}
		chunks, err := m.store.LoadChunks(db)
		if err != nil {
			return err
		}

		live := make(map[string]bool, len(chunks))
		for _, c := range chunks {
			live[c.ChunkID] = true
		}
		for id := range notes {
			if !live[id] {
				delete(notes, id)
				pruned++
			}
		}
		if pruned == 0 {
			return nil
		}
		return m.store.SaveNotes(db, notes)
	})
	return pruned, err
}

// --- helpers ---

// removeDocChunks filters out all chunks belonging to a document.
func removeDocChunks(chunks []store.Chunk, docID string) []store.Chunk {
	kept := chunks[:0]
	for _, c := range chunks {
		if c.DocID != docID {
			kept = append(kept, c)
		}
	}
	return kept
}

// normalizedVectors returns unit-length copies of chunk embeddings, with
// nil entries for chunks lacking an embedding or with zero norm.
func normalizedVectors(chunks []store.Chunk) [][]float32 {
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		v := make([]float32, len(c.Embedding))
		copy(v, c.Embedding)
		if !embed.Normalize(v) {
			continue
		}
		vecs[i] = v
	}
	return vecs
}

func validateDBName(name string) error {
	if name == "" || name != filepath.Base(name) ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid database name %q", ErrInvalidConfig, name)
	}
	return nil
}

func fileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// hashBytes computes the SHA-256 hash of file content.
func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
