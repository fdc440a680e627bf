// Package history keeps a SQLite journal of execution status transitions so
// past runs stay inspectable after the CLI has moved on. It records
// transitions only, never workspace contents.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// Store provides SQLite-backed transition persistence. Each process run
// writes under one session ID.
type Store struct {
	db        *sql.DB
	sessionID string
}

// Transition is one recorded status change
type Transition struct {
	SessionID      string
	Issue          *int
	From           domain.ExecutionStatus
	To             domain.ExecutionStatus
	CompletedCount int
	OccurredAt     time.Time
}

// New creates a Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, sessionID: uuid.NewString()}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionID returns this process run's session identifier
func (s *Store) SessionID() string {
	return s.sessionID
}

// Record inserts a transition under the current session
func (s *Store) Record(t Transition) error {
	var issue any
	if t.Issue != nil {
		issue = *t.Issue
	}
	occurred := t.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO transitions (session_id, issue, from_status, to_status, completed_count, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.sessionID, issue, string(t.From), string(t.To), t.CompletedCount, occurred)
	return err
}

// Transitions returns all recorded transitions for an issue, oldest first
func (s *Store) Transitions(issue int) ([]Transition, error) {
	rows, err := s.db.Query(`
		SELECT session_id, issue, from_status, to_status, completed_count, occurred_at
		FROM transitions WHERE issue = ? ORDER BY id
	`, issue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// Recent returns the most recent transitions across all issues, newest first
func (s *Store) Recent(limit int) ([]Transition, error) {
	rows, err := s.db.Query(`
		SELECT session_id, issue, from_status, to_status, completed_count, occurred_at
		FROM transitions ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransitions(rows)
}

func scanTransitions(rows *sql.Rows) ([]Transition, error) {
	var out []Transition
	for rows.Next() {
		var t Transition
		var issue sql.NullInt64
		var from, to string
		if err := rows.Scan(&t.SessionID, &issue, &from, &to, &t.CompletedCount, &t.OccurredAt); err != nil {
			return nil, err
		}
		if issue.Valid {
			n := int(issue.Int64)
			t.Issue = &n
		}
		t.From = domain.ExecutionStatus(from)
		t.To = domain.ExecutionStatus(to)
		out = append(out, t)
	}
	return out, rows.Err()
}
