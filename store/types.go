package store

// Document is one ingested source file within a database. The source
// filename is the de-duplication key; doc_id is assigned once and stable
// across re-ingestions.
type Document struct {
	DocID      string   `json:"doc_id"`
	Source     string   `json:"source"`
	Path       string   `json:"path"`
	FileType   string   `json:"file_type"`
	FileHash   string   `json:"file_hash"`
	SizeBytes  int64    `json:"size_bytes"`
	Tags       []string `json:"tags,omitempty"`
	ChunkCount int      `json:"chunk_count"`
	AddedAt    string   `json:"added_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// Chunk is a contiguous slice of a document's extracted text. Its position
// in the metadata array corresponds to its row in the vector index, and
// chunk_number orders chunks within a document for context windowing.
type Chunk struct {
	ChunkID     string    `json:"chunk_id"`
	DocID       string    `json:"doc_id"`
	Source      string    `json:"source"`
	ChunkNumber int       `json:"chunk_number"`
	Page        int       `json:"page,omitempty"`
	Section     string    `json:"section,omitempty"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

// Hit is one nearest-neighbor result from the vector index. Position is the
// index of the matching chunk in the metadata array.
type Hit struct {
	Position int
	Score    float64
}

// SearchMetric is one append-only log entry in search_metrics.jsonl.
type SearchMetric struct {
	Query     string         `json:"query"`
	TopK      int            `json:"top_k"`
	Filters   map[string]any `json:"filters,omitempty"`
	Results   int            `json:"results"`
	LatencyMS int64          `json:"latency_ms"`
	Timestamp string         `json:"timestamp"`
}
