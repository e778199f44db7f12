package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestCreateExistsRemove(t *testing.T) {
	s := newTestStore(t)

	if s.Exists("db1") {
		t.Fatal("Exists before Create")
	}
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !s.Exists("db1") {
		t.Fatal("Exists after Create")
	}
	if err := s.Create("db1"); err == nil {
		t.Fatal("second Create should fail")
	}

	// All state files present from the start.
	for _, name := range []string{metadataFile, documentsFile, notesFile, metricsFile, lockFile} {
		if _, err := os.Stat(filepath.Join(s.DBDir("db1"), name)); err != nil {
			t.Errorf("missing %s after Create: %v", name, err)
		}
	}

	if err := s.Remove("db1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("db1") {
		t.Fatal("Exists after Remove")
	}
}

func TestRejectsPathEscapingNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"..", ".", "", "a/b", `a\b`, "../other", ".hidden"} {
		if s.Exists(name) {
			t.Errorf("Exists(%q) = true", name)
		}
		if err := s.Create(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidName", name, err)
		}
		if err := s.Remove(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Remove(%q) error = %v, want ErrInvalidName", name, err)
		}
		if err := s.WithLock(name, func() error { return nil }); !errors.Is(err, ErrInvalidName) {
			t.Errorf("WithLock(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestRemoveDoesNotEscapeRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "databases")
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	siblingDir := filepath.Join(parent, "precious")
	if err := os.MkdirAll(siblingDir, 0o755); err != nil {
		t.Fatal(err)
	}
	sibling := filepath.Join(siblingDir, "data.txt")
	if err := os.WriteFile(sibling, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(".."); err == nil {
		t.Fatal("Remove(..) should fail")
	}
	if _, err := os.Stat(sibling); err != nil {
		t.Fatalf("sibling file gone after Remove(..): %v", err)
	}
}

func TestListSorted(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Create(name); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List = %v, want %v", names, want)
		}
	}
}

func TestChunksRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := []Chunk{
		{ChunkID: "c1", DocID: "d1", Source: "a.txt", ChunkNumber: 0,
			Content: "hello", Embedding: []float32{0.1, 0.2}, CreatedAt: "2026-01-01T00:00:00Z"},
		{ChunkID: "c2", DocID: "d1", Source: "a.txt", ChunkNumber: 1,
			Page: 3, Section: "Intro", Content: "world"},
	}
	if err := s.SaveChunks("db1", in); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	out, err := s.LoadChunks("db1")
	if err != nil {
		t.Fatalf("LoadChunks: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d chunks, want 2", len(out))
	}
	if out[0].ChunkID != "c1" || out[0].Content != "hello" || len(out[0].Embedding) != 2 {
		t.Errorf("chunk 0 round trip mismatch: %+v", out[0])
	}
	if out[1].Page != 3 || out[1].Section != "Intro" {
		t.Errorf("chunk 1 round trip mismatch: %+v", out[1])
	}
}

func TestLoadChunksMissingDatabase(t *testing.T) {
	s := newTestStore(t)
	chunks, err := s.LoadChunks("nope")
	if err != nil {
		t.Fatalf("LoadChunks on missing db: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestLoadChunksCorruptFile(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	path := filepath.Join(s.DBDir("db1"), metadataFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupting file: %v", err)
	}

	_, err := s.LoadChunks("db1")
	if !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
}

func TestDocumentsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := []Document{{
		DocID: "d1", Source: "a.pdf", Path: "/tmp/a.pdf", FileType: "pdf",
		FileHash: "abc", SizeBytes: 123, Tags: []string{"legal"}, ChunkCount: 4,
		AddedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-02T00:00:00Z",
	}}
	if err := s.SaveDocuments("db1", in); err != nil {
		t.Fatalf("SaveDocuments: %v", err)
	}
	out, err := s.LoadDocuments("db1")
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if len(out) != 1 || out[0].FileHash != "abc" || out[0].Tags[0] != "legal" {
		t.Fatalf("document round trip mismatch: %+v", out)
	}
}

func TestNotesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	notes, err := s.LoadNotes("db1")
	if err != nil {
		t.Fatalf("LoadNotes: %v", err)
	}
	if notes == nil || len(notes) != 0 {
		t.Fatalf("fresh notes = %v, want empty map", notes)
	}

	notes["c1"] = "check this chunk"
	if err := s.SaveNotes("db1", notes); err != nil {
		t.Fatalf("SaveNotes: %v", err)
	}
	out, err := s.LoadNotes("db1")
	if err != nil {
		t.Fatalf("LoadNotes: %v", err)
	}
	if out["c1"] != "check this chunk" {
		t.Fatalf("note round trip mismatch: %v", out)
	}
	if out["unknown"] != "" {
		t.Fatalf("unknown note should be empty, got %q", out["unknown"])
	}
}

func TestAppendMetric(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		m := SearchMetric{Query: "q", TopK: 5, Results: i, LatencyMS: 12,
			Timestamp: "2026-01-01T00:00:00Z"}
		if err := s.AppendMetric("db1", m); err != nil {
			t.Fatalf("AppendMetric: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(s.DBDir("db1"), metricsFile))
	if err != nil {
		t.Fatalf("reading metrics log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 metric lines, got %d", len(lines))
	}
	if !strings.Contains(lines[2], `"results":2`) {
		t.Errorf("last line missing results field: %s", lines[2])
	}
}

func TestWithLockRunsAndPropagates(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ran := false
	if err := s.WithLock("db1", func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	if !ran {
		t.Fatal("locked fn did not run")
	}

	wantErr := errors.New("boom")
	if err := s.WithLock("db1", func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("WithLock error = %v, want %v", err, wantErr)
	}
}

func TestSaveJSONIsAtomic(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create("db1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SaveChunks("db1", []Chunk{{ChunkID: "c1"}}); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	// No temp files left behind after a successful save.
	entries, err := os.ReadDir(s.DBDir("db1"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("stray temp file %s after save", e.Name())
		}
	}
}
