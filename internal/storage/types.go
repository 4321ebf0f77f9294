package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Load when nothing has been persisted yet.
	ErrNotFound = errors.New("timetable not found")
	ErrClosed   = errors.New("storage closed")
)

// Store is the persistence API used by the schedule manager.
type Store interface {
	// Load returns the current document as JSON.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the current document. doc must be JSON.
	Save(ctx context.Context, doc []byte) error
	// Reset discards the current document (e.g. a broken one) and returns a
	// human-readable reference to where it was moved, if anywhere.
	Reset(ctx context.Context) (backup string, err error)
	Close() error
}

// Watchable is implemented by stores backed by a path on disk that can be
// watched for external edits.
type Watchable interface {
	WatchPath() string
}

// Revision describes one stored save (sqlite driver).
type Revision struct {
	ID      string
	SavedAt time.Time
	Size    int
}

// Revisioner is implemented by stores that keep history.
type Revisioner interface {
	Revisions(ctx context.Context) ([]Revision, error)
}

// Config configures storage.
//
// Driver values:
//   - "file" (default): JSON or YAML file chosen by extension
//   - "sqlite": SQLite database file
type Config struct {
	Driver        string
	Path          string
	BusyTimeout   time.Duration // sqlite only; 0 means default
	KeepRevisions int           // sqlite only; <=0 means default
}
