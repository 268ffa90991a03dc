package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"abchat/internal/domain"
)

// Entry is one answered question.
type Entry struct {
	ID       int64            `json:"id"`
	AskedAt  time.Time        `json:"asked_at"`
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Source   string           `json:"source"`
	Degraded bool             `json:"degraded"`
	Filters  domain.FilterSet `json:"filters"`
}

// Store is a SQLite-backed question log.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS questions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    asked_at INTEGER NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    source TEXT NOT NULL,
    degraded INTEGER NOT NULL DEFAULT 0,
    filters_json TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_questions_asked_at ON questions(asked_at);
`

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends e and returns it with its id set. A zero AskedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.AskedAt.IsZero() {
		e.AskedAt = time.Now()
	}
	filters, err := json.Marshal(e.Filters)
	if err != nil {
		return e, fmt.Errorf("failed to marshal filters: %w", err)
	}
	degraded := 0
	if e.Degraded {
		degraded = 1
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (asked_at, question, answer, source, degraded, filters_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.AskedAt.UnixMilli(), e.Question, e.Answer, e.Source, degraded, string(filters),
	)
	if err != nil {
		return e, fmt.Errorf("failed to insert question: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return e, fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, asked_at, question, answer, source, degraded, filters_json
		 FROM questions ORDER BY asked_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var askedAt int64
		var degraded int
		var filters string
		if err := rows.Scan(&e.ID, &askedAt, &e.Question, &e.Answer, &e.Source, &degraded, &filters); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.AskedAt = time.UnixMilli(askedAt)
		e.Degraded = degraded != 0
		if err := json.Unmarshal([]byte(filters), &e.Filters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filters: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
