// Package ledger stores compiled sentences in SQLite keyed by fingerprint.
// Recompiling a line that produces an existing fingerprint bumps its seen
// count instead of adding a row.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/hglc/internal/sentence"
)

// ErrNotFound is returned when no sentence has the requested fingerprint.
var ErrNotFound = errors.New("ledger: sentence not found")

const schema = `
CREATE TABLE IF NOT EXISTS sentences (
	fingerprint  TEXT PRIMARY KEY,
	canonical    TEXT NOT NULL,
	subject_kind TEXT NOT NULL,
	subject_id   TEXT NOT NULL,
	intent       TEXT NOT NULL,
	act          TEXT NOT NULL,
	object_kind  TEXT NOT NULL,
	object_id    TEXT NOT NULL,
	first_run    TEXT NOT NULL,
	first_seen   TEXT NOT NULL,
	last_seen    TEXT NOT NULL,
	seen_count   INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS sentences_subject ON sentences (subject_kind, subject_id);
CREATE INDEX IF NOT EXISTS sentences_object ON sentences (object_kind, object_id);
`

// Entry is one stored sentence.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Canonical   string    `json:"canonical"`
	SubjectKind string    `json:"subject_kind"`
	SubjectID   string    `json:"subject_id"`
	Intent      string    `json:"intent"`
	Act         string    `json:"act"`
	ObjectKind  string    `json:"object_kind"`
	ObjectID    string    `json:"object_id"`
	FirstRun    string    `json:"first_run"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	SeenCount   int       `json:"seen_count"`
}

// Filter narrows List. Empty fields match everything; Limit <= 0 means 100.
type Filter struct {
	SubjectKind string
	SubjectID   string
	Intent      string
	Act         string
	ObjectKind  string
	ObjectID    string
	Limit       int
}

// Store is a SQLite-backed sentence ledger. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}

	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put records a compiled sentence. It reports true when the fingerprint was
// new and false when an existing row was bumped.
func (s *Store) Put(ctx context.Context, c sentence.Compiled, runID string, now time.Time) (bool, error) {
	return s.PutThen(ctx, c, runID, now, nil)
}

// PutThen is Put with a hook that runs inside the transaction once the
// outcome is known. The row is committed only if then returns nil.
func (s *Store) PutThen(ctx context.Context, c sentence.Compiled, runID string, now time.Time, then func(inserted bool) error) (bool, error) {
	ts := now.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sentences (fingerprint, canonical, subject_kind, subject_id, intent, act,
			object_kind, object_id, first_run, first_seen, last_seen, seen_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (fingerprint) DO NOTHING`,
		c.Fingerprint, string(c.Canonical),
		string(c.Sentence.Subject.Kind), c.Sentence.Subject.ID,
		string(c.Sentence.Intent), string(c.Sentence.Act),
		string(c.Sentence.Object.Kind), c.Sentence.Object.ID,
		runID, ts, ts)
	if err != nil {
		return false, fmt.Errorf("ledger: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ledger: insert: %w", err)
	}

	inserted := n == 1
	if !inserted {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sentences SET seen_count = seen_count + 1, last_seen = ? WHERE fingerprint = ?`,
			ts, c.Fingerprint); err != nil {
			return false, fmt.Errorf("ledger: bump: %w", err)
		}
	}

	if then != nil {
		if err := then(inserted); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("ledger: commit: %w", err)
	}
	return inserted, nil
}

const selectColumns = `fingerprint, canonical, subject_kind, subject_id, intent, act,
	object_kind, object_id, first_run, first_seen, last_seen, seen_count`

// Get returns the sentence with the given fingerprint.
func (s *Store) Get(ctx context.Context, fingerprint string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM sentences WHERE fingerprint = ?`,
		strings.ToLower(fingerprint))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: get: %w", err)
	}
	return e, nil
}

// List returns sentences matching f, most recently seen first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var where []string
	var args []any
	for _, c := range []struct {
		col, val string
	}{
		{"subject_kind", f.SubjectKind},
		{"subject_id", f.SubjectID},
		{"intent", f.Intent},
		{"act", f.Act},
		{"object_kind", f.ObjectKind},
		{"object_id", f.ObjectID},
	} {
		if c.val != "" {
			where = append(where, c.col+" = ?")
			args = append(args, c.val)
		}
	}

	q := `SELECT ` + selectColumns + ` FROM sentences`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += ` ORDER BY last_seen DESC, fingerprint LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: list: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	return out, nil
}

// Count returns the number of distinct sentences stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentences`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var first, last string
	err := sc.Scan(&e.Fingerprint, &e.Canonical, &e.SubjectKind, &e.SubjectID,
		&e.Intent, &e.Act, &e.ObjectKind, &e.ObjectID, &e.FirstRun, &first, &last, &e.SeenCount)
	if err != nil {
		return Entry{}, err
	}
	if e.FirstSeen, err = time.Parse(time.RFC3339Nano, first); err != nil {
		return Entry{}, fmt.Errorf("first_seen: %w", err)
	}
	if e.LastSeen, err = time.Parse(time.RFC3339Nano, last); err != nil {
		return Entry{}, fmt.Errorf("last_seen: %w", err)
	}
	return e, nil
}
