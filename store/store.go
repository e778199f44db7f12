// Package store owns the on-disk layout of a database directory: the vector
// index, the JSON state files, the advisory lock, and the metrics log.
//
// Layout per database directory:
//
//	vectors.db           flat vector index (sqlite-vec)
//	metadata.json        array of Chunk records
//	documents.json       array of Document records
//	notes.json           map of chunk_id -> note text
//	search_metrics.jsonl append-only search metrics
//	db.lock              advisory lock target
//
// JSON files are rewritten wholesale on save, via write-temp-then-rename so
// readers never observe a partial write. Mutating operations take the
// per-database lock; reads do not.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
)

const (
	indexFile     = "vectors.db"
	metadataFile  = "metadata.json"
	documentsFile = "documents.json"
	notesFile     = "notes.json"
	metricsFile   = "search_metrics.jsonl"
	lockFile      = "db.lock"
)

// ErrCorruptState is returned when a state file exists but cannot be parsed.
var ErrCorruptState = errors.New("store: corrupt state file")

// ErrInvalidName is returned for database names that are not a single plain
// path element.
var ErrInvalidName = errors.New("store: invalid database name")

// validName reports whether db is a single path element that stays inside
// the root. Names like ".." or "a/b" would resolve outside or below it, and
// Remove on such a path would be destructive.
func validName(db string) bool {
	return db != "" && db == filepath.Base(db) &&
		!strings.HasPrefix(db, ".") && !strings.ContainsAny(db, `/\`)
}

// Store manages database directories under a single root.
type Store struct {
	root string
}

// Open ensures the root directory exists and returns a Store over it.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the databases root directory.
func (s *Store) Root() string { return s.root }

// DBDir returns the directory for a named database.
func (s *Store) DBDir(db string) string {
	return filepath.Join(s.root, db)
}

// Exists reports whether a database directory exists. Invalid names do not
// exist, so every operation gated on Exists rejects them.
func (s *Store) Exists(db string) bool {
	if !validName(db) {
		return false
	}
	info, err := os.Stat(s.DBDir(db))
	return err == nil && info.IsDir()
}

// Create allocates the directory and empty state files for a new database.
// The vector index is created separately once the embedding dimension is
// known. Fails if the directory already exists.
func (s *Store) Create(db string) error {
	if !validName(db) {
		return fmt.Errorf("%w: %q", ErrInvalidName, db)
	}
	dir := s.DBDir(db)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return err
	}

	if err := s.SaveChunks(db, []Chunk{}); err != nil {
		return err
	}
	if err := s.SaveDocuments(db, []Document{}); err != nil {
		return err
	}
	if err := s.SaveNotes(db, map[string]string{}); err != nil {
		return err
	}
	for _, name := range []string{metricsFile, lockFile} {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		f.Close()
	}
	return nil
}

// Remove deletes a database directory tree.
func (s *Store) Remove(db string) error {
	if !validName(db) {
		return fmt.Errorf("%w: %q", ErrInvalidName, db)
	}
	return os.RemoveAll(s.DBDir(db))
}

// List returns the names of all databases, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// WithLock runs fn while holding the database's advisory file lock.
// The lock blocks until acquired and is released on every exit path.
func (s *Store) WithLock(db string, fn func() error) error {
	if !validName(db) {
		return fmt.Errorf("%w: %q", ErrInvalidName, db)
	}
	l := flock.New(filepath.Join(s.DBDir(db), lockFile))
	if err := l.Lock(); err != nil {
		return fmt.Errorf("acquiring lock for %s: %w", db, err)
	}
	defer l.Unlock()
	return fn()
}

// IndexPath returns the vector index file path for a database.
func (s *Store) IndexPath(db string) string {
	return filepath.Join(s.DBDir(db), indexFile)
}

// --- JSON state files ---

// LoadChunks reads the chunk metadata array. A missing file yields an empty
// slice; an unparsable file is a typed error.
func (s *Store) LoadChunks(db string) ([]Chunk, error) {
	var chunks []Chunk
	if err := s.loadJSON(db, metadataFile, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// SaveChunks rewrites the chunk metadata array.
func (s *Store) SaveChunks(db string, chunks []Chunk) error {
	return s.saveJSON(db, metadataFile, chunks)
}

// LoadDocuments reads the document records.
func (s *Store) LoadDocuments(db string) ([]Document, error) {
	var docs []Document
	if err := s.loadJSON(db, documentsFile, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// SaveDocuments rewrites the document records.
func (s *Store) SaveDocuments(db string, docs []Document) error {
	return s.saveJSON(db, documentsFile, docs)
}

// LoadNotes reads the chunk notes map. Missing file yields an empty map.
func (s *Store) LoadNotes(db string) (map[string]string, error) {
	notes := map[string]string{}
	if err := s.loadJSON(db, notesFile, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = map[string]string{}
	}
	return notes, nil
}

// SaveNotes rewrites the chunk notes map.
func (s *Store) SaveNotes(db string, notes map[string]string) error {
	return s.saveJSON(db, notesFile, notes)
}

// AppendMetric appends one search metric record to the JSONL log.
func (s *Store) AppendMetric(db string, m SearchMetric) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.DBDir(db), metricsFile),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening metrics log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing metrics log: %w", err)
	}
	return nil
}

func (s *Store) loadJSON(db, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.DBDir(db), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptState, name, err)
	}
	return nil
}

// saveJSON writes the full file atomically: temp file in the same directory,
// fsync, rename over the target.
func (s *Store) saveJSON(db, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := s.DBDir(db)
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
