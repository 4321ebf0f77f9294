package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	logx "classhud/pkg/logx"
)

//go:embed schema.sql
var schemaSQL string

const defaultKeepRevisions = 20

type sqliteStore struct {
	mu sync.RWMutex
	db *sql.DB // nil once closed

	log  logx.Logger
	path string
	keep int
	now  func() time.Time
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	keep := cfg.KeepRevisions
	if keep <= 0 {
		keep = defaultKeepRevisions
	}
	st := &sqliteStore{db: db, log: log, path: path, keep: keep, now: time.Now}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

func (s *sqliteStore) Load(ctx context.Context) ([]byte, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var body []byte
	err = db.QueryRowContext(ctx,
		`SELECT body FROM documents ORDER BY seq DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return body, err
}

func (s *sqliteStore) Save(ctx context.Context, doc []byte) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, seq, saved_at, body)
		 SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ? FROM documents`,
		id, s.now().UTC().Format(time.RFC3339Nano), string(doc),
	); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE seq <= (SELECT MAX(seq) FROM documents) - ?`, s.keep)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	pruned, _ := res.RowsAffected()
	s.log.Debug("timetable saved", logx.String("revision", id), logx.Int64("pruned", pruned))
	return nil
}

// Reset moves every revision into documents_discarded.
func (s *sqliteStore) Reset(ctx context.Context) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents_discarded(id, seq, saved_at, discarded_at, body)
		 SELECT id, seq, saved_at, ?, body FROM documents`,
		s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return "", nil
	}
	backup := fmt.Sprintf("%s (documents_discarded, %d revisions)", s.path, n)
	s.log.Warn("timetable revisions discarded", logx.Int64("count", n))
	return backup, nil
}

func (s *sqliteStore) Revisions(ctx context.Context) ([]Revision, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, saved_at, length(body) FROM documents ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			r  Revision
			at string
		)
		if err := rows.Scan(&r.ID, &at, &r.Size); err != nil {
			return nil, err
		}
		r.SavedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}
