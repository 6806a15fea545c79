package history

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

const entryColumns = "id, kind, source, output, fingerprint, ok, exit_code, errors, log, started_at, duration_ms"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates if needed) the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.HistoryError("create history directory").WithCause(err).
					WithContext("path", dir).Build()
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.HistoryError("open history database").WithCause(err).Build()
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.HistoryError("initialize history schema").WithCause(err).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		output TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		ok INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		errors TEXT,
		log TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_source_seq ON builds(source, seq);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts e.
func (s *SQLiteStore) Record(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	var errorsJSON []byte
	if len(e.Errors) > 0 {
		var err error
		errorsJSON, err = json.Marshal(e.Errors)
		if err != nil {
			return errors.HistoryError("marshal build errors").WithCause(err).Build()
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, string(e.Kind), e.Source, e.Output, e.Fingerprint, e.OK, e.ExitCode, errorsJSON, e.Log,
		e.StartedAt.UnixMilli(), e.Duration.Milliseconds(),
	)
	if err != nil {
		return errors.HistoryError("insert build entry").WithCause(err).
			WithContext("id", e.ID).Build()
	}
	return nil
}

// Get returns the entry with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM builds WHERE id = ?", id)
	return scanEntry(row)
}

// List returns the newest entries first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM builds ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.HistoryError("query build entries").WithCause(err).Build()
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryError("iterate build entries").WithCause(err).Build()
	}
	return entries, nil
}

// Latest returns the newest entry of any kind recorded for source.
func (s *SQLiteStore) Latest(ctx context.Context, source string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM builds WHERE source = ? ORDER BY seq DESC LIMIT 1", source)
	return scanEntry(row)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e          Entry
		kind       string
		errorsJSON []byte
		startedMS  int64
		durationMS int64
	)
	err := sc.Scan(&e.ID, &kind, &e.Source, &e.Output, &e.Fingerprint, &e.OK, &e.ExitCode,
		&errorsJSON, &e.Log, &startedMS, &durationMS)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.HistoryError("scan build entry").WithCause(err).Build()
	}

	e.Kind = Kind(kind)
	e.StartedAt = time.UnixMilli(startedMS)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &e.Errors); err != nil {
			return nil, errors.HistoryError("unmarshal build errors").WithCause(err).
				WithContext("id", e.ID).Build()
		}
	}
	return &e, nil
}

var _ Store = (*SQLiteStore)(nil)
