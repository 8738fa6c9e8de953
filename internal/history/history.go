// Package history keeps a SQLite ledger of what happened to quarantined files.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fenilsonani/storage-sweep/internal/cleaner"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// Entry is one ledger row
type Entry struct {
	ID         int64
	TxID       string
	Action     cleaner.Action
	Path       string
	Size       int64
	Category   scanner.Category
	RecordedAt time.Time
}

// Summary totals the ledger per action
type Summary struct {
	Action cleaner.Action
	Files  int
	Bytes  int64
}

// Store is the ledger database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under the engine's own goroutines
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one row per record in a single transaction
func (s *Store) Record(ctx context.Context, action cleaner.Action, txID string, records []scanner.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO deletions (tx_id, action, path, size, category, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	at := s.now().UTC().Format(time.RFC3339Nano)
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, txID, string(action), r.Path, r.Size, string(r.Category), at); err != nil {
			return fmt.Errorf("failed to record %s: %w", r.Path, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent entries, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
SELECT id, tx_id, action, path, size, category, recorded_at
FROM deletions
ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var action, category, recordedAt string
		if err := rows.Scan(&e.ID, &e.TxID, &action, &e.Path, &e.Size, &category, &recordedAt); err != nil {
			return nil, err
		}
		e.Action = cleaner.Action(action)
		e.Category = scanner.Category(category)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, e)
	}

	return out, rows.Err()
}

// Summarize totals files and bytes per action
func (s *Store) Summarize(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT action, COUNT(*), COALESCE(SUM(size), 0)
FROM deletions
GROUP BY action
ORDER BY action`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize history: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var action string
		if err := rows.Scan(&action, &sum.Files, &sum.Bytes); err != nil {
			return nil, err
		}
		sum.Action = cleaner.Action(action)
		out = append(out, sum)
	}
	return out, rows.Err()
}
