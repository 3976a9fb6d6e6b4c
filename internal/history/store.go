// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps an opt-in local journal of upload attempts in a
// SQLite database, one row per attempt.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sonifyreads/pkg/types"
)

const (
	dbFile           = "history.db"
	defaultListLimit = 20

	// timestampLayout is fixed-width so stored times sort as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/history.db and ensures the schema exists.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_size INTEGER NOT NULL,
			email TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			failure_kind TEXT,
			status_code INTEGER,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_started_at ON submissions(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one finished attempt. Recording the same ID twice is an error.
func (s *Store) Record(ctx context.Context, sub types.Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("submission has no id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions
			(id, file_name, file_size, email, started_at, finished_at, succeeded, failure_kind, status_code, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.FileName, sub.FileSize, sub.Email,
		sub.StartedAt.UTC().Format(timestampLayout),
		sub.FinishedAt.UTC().Format(timestampLayout),
		sub.Succeeded, string(sub.Kind), sub.StatusCode, sub.Message,
	)
	if err != nil {
		return fmt.Errorf("recording submission %s: %w", sub.ID, err)
	}
	return nil
}

// List returns up to limit attempts, newest first. A non-positive limit
// uses the default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]types.Submission, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, file_size, email, started_at, finished_at, succeeded,
			COALESCE(failure_kind, ''), COALESCE(status_code, 0), COALESCE(message, '')
		FROM submissions ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var subs []types.Submission
	for rows.Next() {
		var (
			sub               types.Submission
			started, finished string
			kind              string
		)
		if err := rows.Scan(&sub.ID, &sub.FileName, &sub.FileSize, &sub.Email,
			&started, &finished, &sub.Succeeded, &kind, &sub.StatusCode, &sub.Message); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		sub.Kind = types.FailureKind(kind)
		if sub.StartedAt, err = time.Parse(timestampLayout, started); err != nil {
			return nil, fmt.Errorf("parsing started_at of %s: %w", sub.ID, err)
		}
		if sub.FinishedAt, err = time.Parse(timestampLayout, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at of %s: %w", sub.ID, err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Export writes up to limit attempts to w as a YAML sequence.
func (s *Store) Export(ctx context.Context, w io.Writer, limit int) error {
	subs, err := s.List(ctx, limit)
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []types.Submission{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(subs); err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return enc.Close()
}

// FromOutcome builds the journal row for a finished attempt.
func FromOutcome(req types.UploadRequest, out types.Outcome, started, finished time.Time) types.Submission {
	sub := types.Submission{
		ID:         out.ID,
		FileName:   req.FileName,
		FileSize:   req.FileSize,
		Email:      req.Email,
		StartedAt:  started,
		FinishedAt: finished,
		Succeeded:  out.Succeeded(),
	}
	switch {
	case out.Failure != nil:
		sub.Kind = out.Failure.Kind
		sub.StatusCode = out.Failure.StatusCode
		sub.Message = out.Failure.Message
	case out.Receipt != nil:
		sub.Message = out.Receipt.Message
	}
	return sub
}
