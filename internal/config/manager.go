package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"classhud/internal/filewatch"
	logx "classhud/pkg/logx"
	"classhud/pkg/yamlx"
)

// Manager loads the config file, keeps the committed value and republishes
// it to subscribers when the file changes.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	// subsMu guards subs and ensures we never send on a channel that is
	// concurrently being closed in Unsubscribe.
	subsMu sync.Mutex
	subs   []chan *Config

	log       logx.Logger
	validator func(ctx context.Context, cfg *Config) error

	// lastHash is the hash of the last committed config; editors often emit
	// several events for one save.
	lastHash uint64
	missing  bool
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// SetValidator installs a hook run by Load and Watch before committing.
func (m *Manager) SetValidator(fn func(ctx context.Context, cfg *Config) error) {
	m.validator = fn
}

// Parse reads the file (JSON, or YAML by extension) on top of Default().
// Unknown keys and trailing data are errors.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	return Decode(m.path, b)
}

// Decode parses config bytes; path only selects the format.
func Decode(path string, b []byte) (*Config, error) {
	if yamlx.IsYAMLPath(path) {
		var err error
		if b, err = yamlx.ToJSON(b); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config %s: trailing data", path)
		}
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (m *Manager) Commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
}

// Load parses and commits the config. A missing file yields Default().
func (m *Manager) Load(ctx context.Context) (*Config, error) {
	cfg, err := m.Parse()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
		m.missing = true
		if !m.log.IsZero() {
			m.log.Info("config file not found; using defaults", logx.String("path", m.path))
		}
	case err != nil:
		return nil, err
	}
	if m.validator != nil {
		if err := m.validator(ctx, cfg); err != nil {
			return nil, err
		}
	}
	m.Commit(cfg)
	return cfg, nil
}

// Missing reports whether the last Load fell back to defaults.
func (m *Manager) Missing() bool { return m.missing }

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// WriteDefault writes Default() to the manager's path in its format.
// It refuses to overwrite an existing file unless force is set.
func (m *Manager) WriteDefault(force bool) error {
	if !force {
		if _, err := os.Stat(m.path); err == nil {
			return fmt.Errorf("%s already exists", m.path)
		}
	}
	b, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if yamlx.IsYAMLPath(m.path) {
		if b, err = yamlx.FromJSON(b); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(m.path, b, 0o600)
}

func (m *Manager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Config) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			last := len(m.subs) - 1
			m.subs[i] = m.subs[last]
			m.subs[last] = nil
			m.subs = m.subs[:last]
			close(ch)
			return
		}
	}
}

// publish delivers cfg to every subscriber. A full subscriber loses its
// oldest queued config so the newest always gets through.
func (m *Manager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- cfg:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cfg:
		default:
			if !m.log.IsZero() {
				m.log.Debug("config update dropped (subscriber slow)", logx.Int("queue_cap", cap(ch)))
			}
		}
	}
}

// Reload re-reads the file and publishes it if it parsed, validated and
// actually changed. It reports whether a new config was published.
func (m *Manager) Reload(ctx context.Context) (bool, error) {
	cfg, err := m.Parse()
	if err != nil {
		return false, err
	}
	h := hashConfig(cfg)
	m.mu.RLock()
	unchanged := h != 0 && h == m.lastHash
	m.mu.RUnlock()
	if unchanged {
		return false, nil
	}
	if m.validator != nil {
		vctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := m.validator(vctx, cfg)
		cancel()
		if err != nil {
			return false, err
		}
	}
	m.Commit(cfg)
	m.publish(cfg)
	return true, nil
}

// Watch reloads on file changes until ctx ends.
func (m *Manager) Watch(ctx context.Context) error {
	log := m.log
	if log.IsZero() {
		log = logx.Nop()
	}
	return filewatch.Watch(ctx, m.path, filewatch.Options{Log: log}, func() {
		changed, err := m.Reload(ctx)
		switch {
		case err != nil:
			log.Warn("config rejected", logx.String("path", m.path), logx.Err(err))
		case changed:
			log.Debug("config published", logx.String("path", m.path))
		default:
			log.Debug("config unchanged; skipping publish", logx.String("path", m.path))
		}
	})
}
