// Package history keeps a local ledger of package download outcomes so a
// failed installation can be inspected afterwards.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cnchi/installer/internal/downloader"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	identity    TEXT NOT NULL,
	version     TEXT NOT NULL,
	filename    TEXT NOT NULL,
	status      TEXT NOT NULL,
	mirror      TEXT NOT NULL DEFAULT '',
	attempts    INTEGER NOT NULL DEFAULT 0,
	bytes       INTEGER NOT NULL DEFAULT 0,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
`

// Store is a sqlite-backed outcome ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one outcome. It satisfies downloader.Recorder.
func (s *Store) Record(ctx context.Context, o downloader.Outcome) error {
	finished := o.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (run_id, identity, version, filename, status, mirror, attempts, bytes, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Identity, o.Version, o.Filename, string(o.Status), o.Mirror, o.Attempts, o.Bytes, finished.UnixMilli())
	return err
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	RunID  string
	Status downloader.Status
	Limit  int
}

// List returns recorded outcomes, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]downloader.Outcome, error) {
	query := `SELECT run_id, identity, version, filename, status, mirror, attempts, bytes, finished_at
		FROM downloads WHERE (? = '' OR run_id = ?) AND (? = '' OR status = ?)
		ORDER BY finished_at DESC, id DESC`
	args := []any{f.RunID, f.RunID, string(f.Status), string(f.Status)}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []downloader.Outcome
	for rows.Next() {
		var o downloader.Outcome
		var status string
		var finished int64
		if err := rows.Scan(&o.RunID, &o.Identity, &o.Version, &o.Filename, &status, &o.Mirror, &o.Attempts, &o.Bytes, &finished); err != nil {
			return nil, err
		}
		o.Status = downloader.Status(status)
		o.FinishedAt = time.UnixMilli(finished)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Runs returns the distinct run IDs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM downloads GROUP BY run_id ORDER BY MAX(finished_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}
