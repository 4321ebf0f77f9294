// Package schedule owns the live timetable: loading it from storage,
// writing edits back and reloading it when the stored document changes.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"classhud/internal/eventbus"
	"classhud/internal/filewatch"
	"classhud/internal/storage"
	"classhud/internal/timetable"
	logx "classhud/pkg/logx"
)

type Manager struct {
	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger

	cur atomic.Pointer[timetable.Timetable]

	// mu serializes writes and reloads. docHash is the hash of the canonical
	// encoding last loaded or saved, so our own writes don't trigger a reload.
	mu      sync.Mutex
	docHash uint64
}

// New returns a manager holding timetable.Default() until Load succeeds.
// bus may be nil.
func New(store storage.Store, bus eventbus.Bus, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Manager{store: store, bus: bus, log: log.Named("schedule")}
	m.cur.Store(timetable.Default())
	return m
}

// Load reads the stored timetable. When nothing is stored yet the default
// timetable is saved and used. An invalid document is returned as an error
// (a *timetable.ConfigError for schema problems) and the current timetable
// is kept.
func (m *Manager) Load(ctx context.Context) (*timetable.Timetable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		m.log.Info("no timetable stored; creating default")
		t := timetable.Default()
		if err := m.saveLocked(ctx, t); err != nil {
			return nil, err
		}
		m.cur.Store(t)
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}

	t, h, err := decode(b)
	if err != nil {
		return nil, err
	}
	m.docHash = h
	m.cur.Store(t)
	m.log.Debug("timetable loaded", logx.Int("periods", t.PeriodCount()))
	return t, nil
}

// Current returns the live timetable. It never returns nil.
func (m *Manager) Current() *timetable.Timetable { return m.cur.Load() }

// Daily yields the views of day (empty means now's weekday) from the live
// timetable.
func (m *Manager) Daily(day string, now time.Time) iter.Seq2[timetable.PeriodView, error] {
	return m.Current().Daily(day, now)
}

// Save writes the live timetable back.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx, m.Current())
}

func (m *Manager) saveLocked(ctx context.Context, t *timetable.Timetable) error {
	b, err := timetable.Encode(t)
	if err != nil {
		return fmt.Errorf("encode timetable: %w", err)
	}
	if err := m.store.Save(ctx, b); err != nil {
		return fmt.Errorf("save timetable: %w", err)
	}
	m.docHash = hashDoc(b)
	return nil
}

// Replace swaps the whole period list of day and saves. Nothing changes if
// the new list does not resolve.
func (m *Manager) Replace(ctx context.Context, day time.Weekday, periods []timetable.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.Current().WithDay(day, periods)
	if err != nil {
		return err
	}
	if err := m.saveLocked(ctx, next); err != nil {
		return err
	}
	m.cur.Store(next)
	m.publish("replace", next)
	return nil
}

// Reset moves the stored document aside and starts over with defaults.
func (m *Manager) Reset(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	backup, err := m.store.Reset(ctx)
	if err != nil {
		return "", fmt.Errorf("reset timetable: %w", err)
	}
	t := timetable.Default()
	if err := m.saveLocked(ctx, t); err != nil {
		return backup, err
	}
	m.cur.Store(t)
	m.publish("reset", t)
	return backup, nil
}

// ErrNoHistory is returned by Revisions when the store keeps only the
// latest document.
var ErrNoHistory = errors.New("timetable store keeps no revision history")

// Revisions lists stored saves, newest first.
func (m *Manager) Revisions(ctx context.Context) ([]storage.Revision, error) {
	r, ok := m.store.(storage.Revisioner)
	if !ok {
		return nil, ErrNoHistory
	}
	return r.Revisions(ctx)
}

// Reload re-reads the store and swaps the live timetable when the document
// changed and decodes. A bad document leaves the current timetable in place.
func (m *Manager) Reload(ctx context.Context, source string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}
	t, h, err := decode(b)
	if err != nil {
		return false, err
	}
	if h == m.docHash {
		return false, nil
	}
	m.docHash = h
	m.cur.Store(t)
	m.publish(source, t)
	return true, nil
}

// Watch reloads on external edits until ctx ends. Stores without a file on
// disk are not watched and Watch returns immediately.
func (m *Manager) Watch(ctx context.Context) error {
	w, ok := m.store.(storage.Watchable)
	if !ok {
		m.log.Debug("store is not watchable")
		return nil
	}
	return filewatch.Watch(ctx, w.WatchPath(), filewatch.Options{Log: m.log}, func() {
		changed, err := m.Reload(ctx, "watch")
		switch {
		case errors.Is(err, storage.ErrNotFound):
			m.log.Warn("timetable file removed; keeping the loaded timetable")
		case err != nil:
			m.log.Warn("timetable reload failed; keeping the loaded timetable", logx.Err(err))
		case changed:
			m.log.Info("timetable reloaded", logx.Int("periods", m.Current().PeriodCount()))
		}
	})
}

func (m *Manager) publish(source string, t *timetable.Timetable) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(eventbus.Event{
		Type: eventbus.TimetableReloaded,
		Data: eventbus.ReloadData{Source: source, Periods: t.PeriodCount()},
	})
}

// decode parses b and hashes its canonical encoding. Formatting-only
// differences (and the YAML/JSON conversion of the file store) hash equal.
func decode(b []byte) (*timetable.Timetable, uint64, error) {
	t, err := timetable.Decode(b)
	if err != nil {
		return nil, 0, err
	}
	canon, err := timetable.Encode(t)
	if err != nil {
		return nil, 0, err
	}
	return t, hashDoc(canon), nil
}

func hashDoc(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
