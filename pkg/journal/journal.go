// Package journal records every control cycle that produced a transcript.
package journal

import (
	"context"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// Outcome is what a cycle did with its transcript.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeRejected  Outcome = "rejected"
	OutcomeForwarded Outcome = "forwarded"
	OutcomeRetry     Outcome = "retry"
	OutcomeDropped   Outcome = "dropped"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one journaled cycle.
type Entry struct {
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
	Mode       string    `json:"mode"`
	Transcript string    `json:"transcript"`
	Kind       string    `json:"kind"`
	Code       int       `json:"code"`
	Phrase     string    `json:"phrase,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Effects    int       `json:"effects"`
	Failed     int       `json:"failed"`
}

type row struct {
	Seq        int64  `db:"seq"`
	ID         string `db:"id"`
	CreatedAt  int64  `db:"created_at"`
	Mode       string `db:"mode"`
	Transcript string `db:"transcript"`
	Kind       string `db:"kind"`
	Code       int    `db:"code"`
	Phrase     string `db:"phrase"`
	From       string `db:"state_from"`
	To         string `db:"state_to"`
	Outcome    string `db:"outcome"`
	Reason     string `db:"reason"`
	Effects    int    `db:"effects"`
	Failed     int    `db:"failed"`
}

func (r row) entry() Entry {
	return Entry{
		ID:         r.ID,
		At:         time.UnixMilli(r.CreatedAt),
		Mode:       r.Mode,
		Transcript: r.Transcript,
		Kind:       r.Kind,
		Code:       r.Code,
		Phrase:     r.Phrase,
		From:       r.From,
		To:         r.To,
		Outcome:    Outcome(r.Outcome),
		Reason:     r.Reason,
		Effects:    r.Effects,
		Failed:     r.Failed,
	}
}

const queryInsert = `
INSERT INTO cycles (id, created_at, mode, transcript, kind, code, phrase,
                    state_from, state_to, outcome, reason, effects, failed)
VALUES (:id, :created_at, :mode, :transcript, :kind, :code, :phrase,
        :state_from, :state_to, :outcome, :reason, :effects, :failed)`

const queryRecent = `
SELECT seq, id, created_at, mode, transcript, kind, code, phrase,
       state_from, state_to, outcome, reason, effects, failed
FROM cycles
ORDER BY seq DESC
LIMIT ?`

// Journal is a SQLite-backed cycle log.
type Journal struct {
	db *sqlx.DB
}

// Open opens the journal at path, creating it if needed.
func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := path
	if path != MemoryPath {
		dsn = "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps writes serialized and an in-memory
	// database visible to every query.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends an entry. A zero At is stamped with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if j == nil || j.db == nil {
		return fmt.Errorf("journal is not open")
	}
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if e.Outcome == "" {
		return fmt.Errorf("entry outcome is required")
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	r := row{
		ID:         e.ID,
		CreatedAt:  e.At.UnixMilli(),
		Mode:       e.Mode,
		Transcript: e.Transcript,
		Kind:       e.Kind,
		Code:       e.Code,
		Phrase:     e.Phrase,
		From:       e.From,
		To:         e.To,
		Outcome:    string(e.Outcome),
		Reason:     e.Reason,
		Effects:    e.Effects,
		Failed:     e.Failed,
	}
	if _, err := j.db.NamedExecContext(ctx, queryInsert, r); err != nil {
		return fmt.Errorf("record cycle %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("journal is not open")
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []row
	if err := j.db.SelectContext(ctx, &rows, queryRecent, limit); err != nil {
		return nil, fmt.Errorf("query recent cycles: %w", err)
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
