package scoring

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// runsSchema is created on open. The created_at column holds unix nanoseconds
// and exists only to order the run index; the payload column carries the full
// run as JSON.
const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// SQLiteStore is a Store that persists runs as JSON rows in a sqlite
// database, so stored runs survive a service restart.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens the sqlite database at path, creating the file and
// the schema if needed.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetRun implements Store.GetRun.
func (s *SQLiteStore) GetRun(id RunID) (*Run, bool, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM runs WHERE id = ?`, string(id)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load run %s: %w", id, err)
	}

	var r Run
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &r, true, nil
}

// SaveRun implements Store.SaveRun.
func (s *SQLiteStore) SaveRun(r *Run) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", r.ID, err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO runs (id, created_at, payload) VALUES (?, ?, ?)`,
		string(r.ID), r.CreatedAt.UnixNano(), payload,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

// ListRunIDs implements Store.ListRunIDs.
func (s *SQLiteStore) ListRunIDs() ([]RunID, error) {
	rows, err := s.db.Query(`SELECT id FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	ids := make([]RunID, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ids = append(ids, RunID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return ids, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
