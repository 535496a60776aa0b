package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"sampled/internal/common/fsutil"
	"sampled/pkg/sample"
)

const createSamplesTable = `
CREATE TABLE IF NOT EXISTS samples (
	model_key TEXT NOT NULL,
	prompt_hash TEXT NOT NULL,
	idx INTEGER NOT NULL,
	response TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (model_key, prompt_hash, idx)
);
`

// SQLiteStore keeps sequences in a single SQLite file, one row per
// position, keyed by (model partition, fingerprint, index). It follows the
// same single-writer convention as the directory layout.
type SQLiteStore struct {
	db        *sql.DB
	partition string
}

// OpenSQLite opens (creating if needed) the store file at path for the
// given model partition key.
func OpenSQLite(path, partition string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(createSamplesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &SQLiteStore{db: db, partition: partition}, nil
}

func (s *SQLiteStore) Load(fingerprint string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT response FROM samples WHERE model_key = ? AND prompt_hash = ? ORDER BY idx`,
		s.partition, fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("cache load: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("cache load: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache load: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Store(fingerprint, text string) error {
	// Next free index is the current row count, mirroring the numbered-file
	// convention of the directory layout.
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM samples WHERE model_key = ? AND prompt_hash = ?`,
		s.partition, fingerprint,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO samples (model_key, prompt_hash, idx, response) VALUES (?, ?, ?, ?)`,
		s.partition, fingerprint, n, text,
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// NewSQLite wraps inner with a persistent cache backed by a SQLite file.
// Semantics match NewDisk, including replication mode.
func NewSQLite(inner sample.Sampler, path string, replication bool) (*Cache, *SQLiteStore, error) {
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, nil, err
	}
	store, err := OpenSQLite(expanded, inner.Spec().Normalize().Partition())
	if err != nil {
		return nil, nil, err
	}
	return New(inner, store, replication), store, nil
}
