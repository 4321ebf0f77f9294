package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	kit "classhud/internal/transport"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
	// HUD means the terminal belongs to the renderer: console output is
	// suppressed and the file sink is forced on.
	HUD      bool
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

type TelegramConfig struct {
	Enabled    bool
	ChatID     int64
	ThreadID   int
	MinLevel   string
	RatePerSec int
}

const defaultFilePath = "./classhud.log"

// Service owns the sinks behind every Logger it hands out and rebuilds them
// on Apply.
type Service struct {
	mu   sync.Mutex
	file *os.File
	tg   *telegramSink

	root atomic.Pointer[zerolog.Logger]
}

// New applies cfg and returns the service with its root logger. sender may
// be nil, in which case the Telegram sink discards.
func New(cfg Config, sender kit.Sender) (*Service, Logger) {
	s := &Service{tg: newTelegramSink(sender)}
	boot := zerolog.New(consoleWriter()).Level(parseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger()
	s.root.Store(&boot)
	s.Apply(cfg)
	return s, Logger{svc: s}
}

// Apply swaps outputs and level. Loggers already handed out pick up the
// change on their next call.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	console, fileOn := cfg.Console, cfg.File.Enabled
	if cfg.HUD {
		console, fileOn = false, true
	}

	var sinks []io.Writer
	if console {
		sinks = append(sinks, consoleWriter())
	}

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if fileOn {
		if f, err := openLogFile(cfg.File.Path); err != nil {
			// No logger is usable yet; stderr is the only place left.
			fmt.Fprintf(os.Stderr, "logx: %v\n", err)
		} else {
			s.file = f
			sinks = append(sinks, zerolog.SyncWriter(f))
		}
	}

	s.tg.configure(cfg.Telegram)
	if cfg.Telegram.Enabled {
		sinks = append(sinks, s.tg)
	}

	var out io.Writer = io.Discard
	if len(sinks) > 0 {
		out = zerolog.MultiLevelWriter(sinks...)
	}
	zl := zerolog.New(out).Level(parseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger()
	s.root.Store(&zl)
}

// Close stops the Telegram worker (dropping queued lines) and closes the log
// file.
func (s *Service) Close() error {
	s.tg.stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func openLogFile(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultFilePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	return f, nil
}

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeLayout}
}
