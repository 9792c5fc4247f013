// Package journal keeps a local record of knowledge submissions so the
// operator can review what was sent to the backend store. It journals
// submissions only, never conversation turns.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status is the recorded outcome of a submission.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry is one recorded knowledge submission.
type Entry struct {
	ID        string
	Source    string
	SizeBytes int64
	Status    Status
	DocID     string // backend-assigned document id, empty on failure
	CreatedAt time.Time
}

// Journal provides the submission log backed by sqlite.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database and initializes the
// schema.
func Open(ctx context.Context, path string) (*Journal, error) {
	// WAL mode for concurrent readers, single writer
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id         TEXT PRIMARY KEY,
		source     TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		status     TEXT NOT NULL,
		doc_id     TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record persists one submission outcome. A missing ID or timestamp is
// filled in. Returns the stored entry.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO submissions (id, source, size_bytes, status, doc_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.SizeBytes, string(e.Status), e.DocID, e.CreatedAt.Unix(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record submission: %w", err)
	}
	return e, nil
}

// Recent returns the latest submissions, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, source, size_bytes, status, doc_id, created_at
		 FROM submissions ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Source, &e.SizeBytes, &status, &e.DocID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		e.Status = Status(status)
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
