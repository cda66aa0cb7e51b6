package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Action is what the pipeline did with a message.
type Action string

const (
	ActionArchived Action = "archived"
	ActionSkipped  Action = "skipped"
	ActionFailed   Action = "failed"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionArchived, ActionSkipped, ActionFailed:
		return true
	}
	return false
}

// Entry is one journal row.
type Entry struct {
	ID           int64
	MessageID    string
	ThreadID     string
	Subject      string
	LabelsBefore []string
	LabelsAfter  []string
	Action       Action
	Error        string
	ProcessedAt  time.Time
}

// Journal is an open journal database.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens, creating and migrating as needed, the journal at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty journal path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create journal file: %w", err)
		}
		_ = f.Close()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	j := &Journal{db: db, now: time.Now}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	var ver int
	if err := j.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// v1: entries
	if ver == 0 {
		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS entries (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  message_id    TEXT NOT NULL,
  thread_id     TEXT NOT NULL DEFAULT '',
  subject       TEXT NOT NULL DEFAULT '',
  labels_before TEXT NOT NULL DEFAULT '[]',
  labels_after  TEXT NOT NULL DEFAULT '[]',
  action        TEXT NOT NULL,
  error         TEXT NOT NULL DEFAULT '',
  processed_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_processed ON entries(processed_at);
CREATE INDEX IF NOT EXISTS idx_entries_message ON entries(message_id);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=1;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v1: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends e and returns its row id. A zero ProcessedAt is set to now.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.MessageID) == "" {
		return 0, errors.New("journal entry without message id")
	}
	if !e.Action.Valid() {
		return 0, fmt.Errorf("unknown journal action %q", e.Action)
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = j.now()
	}

	before, err := encodeLabels(e.LabelsBefore)
	if err != nil {
		return 0, err
	}
	after, err := encodeLabels(e.LabelsAfter)
	if err != nil {
		return 0, err
	}

	res, err := j.db.ExecContext(ctx, `INSERT INTO entries(message_id, thread_id, subject, labels_before, labels_after, action, error, processed_at)
VALUES(?,?,?,?,?,?,?,?)`,
		e.MessageID, e.ThreadID, e.Subject, before, after, string(e.Action), e.Error, e.ProcessedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", e.MessageID, err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `SELECT id, message_id, thread_id, subject, labels_before, labels_after, action, error, processed_at
FROM entries ORDER BY processed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e             Entry
			before, after string
			action        string
			ms            int64
		)
		if err := rows.Scan(&e.ID, &e.MessageID, &e.ThreadID, &e.Subject, &before, &after, &action, &e.Error, &ms); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		e.ProcessedAt = time.UnixMilli(ms)
		if e.LabelsBefore, err = decodeLabels(before); err != nil {
			return nil, err
		}
		if e.LabelsAfter, err = decodeLabels(after); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of entries per action.
func (j *Journal) Counts(ctx context.Context) (map[Action]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT action, COUNT(*) FROM entries GROUP BY action`)
	if err != nil {
		return nil, fmt.Errorf("count journal: %w", err)
	}
	defer rows.Close()

	out := map[Action]int{}
	for rows.Next() {
		var (
			action string
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out[Action(action)] = n
	}
	return out, rows.Err()
}

func encodeLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("encode labels: %w", err)
	}
	return string(b), nil
}

func decodeLabels(s string) ([]string, error) {
	labels := []string{}
	if s == "" {
		return labels, nil
	}
	if err := json.Unmarshal([]byte(s), &labels); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	return labels, nil
}
