package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Index is the flat vector index for one database. Exact nearest-neighbor
// search over unit-normalized vectors with cosine distance, so similarity is
// 1 - distance and equals the inner product.
//
// Row i+1 of the index corresponds to element i of the chunk metadata array.
// There is no incremental delete: any removal is repaired by Rebuild.
type Index struct {
	db  *sql.DB
	dim int
}

// OpenIndex opens (or creates) the vector index file with a fixed dimension.
func OpenIndex(path string, dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", dim)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging index: %w", err)
	}

	schema := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(embedding float[%d] distance_metric=cosine)", dim)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}

	return &Index{db: db, dim: dim}, nil
}

// Close closes the index file.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Dim returns the fixed embedding dimension.
func (ix *Index) Dim() int { return ix.dim }

// Count returns the number of indexed vectors.
func (ix *Index) Count() (int, error) {
	var n int
	err := ix.db.QueryRow("SELECT COUNT(*) FROM vec_chunks").Scan(&n)
	return n, err
}

// Append inserts vectors at consecutive metadata positions starting at
// startPos. Nil vectors are skipped without disturbing the positions of
// the others.
func (ix *Index) Append(startPos int, vecs [][]float32) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO vec_chunks (rowid, embedding) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, v := range vecs {
		if v == nil {
			continue
		}
		if len(v) != ix.dim {
			tx.Rollback()
			return fmt.Errorf("vector at position %d has dimension %d, index expects %d",
				startPos+i, len(v), ix.dim)
		}
		if _, err := stmt.Exec(int64(startPos+i)+1, serializeFloat32(v)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Rebuild drops all rows and re-inserts the given vectors, where element i
// becomes the vector for metadata position i. Nil entries are skipped.
func (ix *Index) Rebuild(vecs [][]float32) error {
	if _, err := ix.db.Exec("DELETE FROM vec_chunks"); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	return ix.Append(0, vecs)
}

// Search returns the k nearest vectors to the query, best first. Scores are
// cosine similarities.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), ix.dim)
	}

	rows, err := ix.db.Query(`
		SELECT rowid, distance FROM vec_chunks
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, serializeFloat32(query), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var rowid int64
		var distance float64
		if err := rows.Scan(&rowid, &distance); err != nil {
			return nil, err
		}
		hits = append(hits, Hit{
			Position: int(rowid) - 1,
			Score:    1.0 - distance,
		})
	}
	return hits, rows.Err()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}
