package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	logx "classhud/pkg/logx"
)

// fileStore keeps the document in a single file. YAML and JSON5 files are
// converted to JSON at this edge so callers only see JSON. A JSON5 file is
// written back as plain JSON, dropping its comments.
type fileStore struct {
	log    logx.Logger
	path   string
	format fileFormat

	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := filepath.Clean(cfg.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	st := &fileStore{
		log:    log,
		path:   path,
		format: formatFor(path),
		now:    time.Now,
	}
	log.Debug("file store opened", logx.String("path", path), logx.String("format", st.format.String()))
	return st, nil
}

func (s *fileStore) WatchPath() string { return s.path }

func (s *fileStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.format.toJSON(b)
}

func (s *fileStore) Save(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := s.format.fromJSON(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := writeAtomic(s.path, out); err != nil {
		return err
	}
	s.log.Debug("timetable saved", logx.String("path", s.path), logx.Int("bytes", len(out)))
	return nil
}

// Reset moves the current file aside as <path>.broken-<unix>.
func (s *fileStore) Reset(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	backup := fmt.Sprintf("%s.broken-%d", s.path, s.now().Unix())
	err := os.Rename(s.path, backup)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	s.log.Warn("timetable moved aside", logx.String("path", s.path), logx.String("backup", backup))
	return backup, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// writeAtomic writes to a temp file in the same directory, then renames it
// over path so readers (and the watcher) never see a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
