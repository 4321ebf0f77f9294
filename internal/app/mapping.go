package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"classhud/internal/announce"
	"classhud/internal/config"
	"classhud/internal/hud"
	"classhud/internal/storage"
	"classhud/internal/tracker"
	kit "classhud/internal/transport"
	logx "classhud/pkg/logx"
)

// Validate checks the parts of cfg that decoding alone cannot: durations,
// zone names, trigger specs and cross-section requirements. It backs both the
// hot-reload validator and the validate command.
func Validate(cfg *config.Config) error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := mapStorageConfig(cfg); err != nil {
		add(err)
	}
	if cfg.Timetable.KeepRevisions < 0 {
		add(fmt.Errorf("timetable.keep_revisions must be >= 0"))
	}

	_, err := config.ParseDurationField("hud.refresh", cfg.HUD.Refresh)
	add(err)
	if cfg.HUD.BarWidth < 0 {
		add(fmt.Errorf("hud.bar_width must be >= 0"))
	}

	_, err = config.ParseLocation("tracker.timezone", cfg.Tracker.Timezone)
	add(err)
	if _, err := tracker.NormalizeSpec(cfg.Tracker.Rollover); err != nil {
		add(fmt.Errorf("tracker.rollover: %w", err))
	}
	if _, err := tracker.NormalizeSpec(cfg.Tracker.Tick); err != nil {
		add(fmt.Errorf("tracker.tick: %w", err))
	}

	_, err = config.ParseDurationField("announce.lead", cfg.Announce.Lead)
	add(err)
	if cfg.Announce.RatePerSec < 0 {
		add(fmt.Errorf("announce.rate_per_sec must be >= 0"))
	}
	tokenSet := strings.TrimSpace(cfg.Telegram.Token) != ""
	if cfg.Announce.Enabled {
		if cfg.Announce.ChatID == 0 {
			add(fmt.Errorf("announce.chat_id is required when announce.enabled is true"))
		}
		if !tokenSet {
			add(fmt.Errorf("telegram.token is required when announce.enabled is true"))
		}
	}
	if cfg.Logging.Telegram.Enabled {
		if cfg.Logging.Telegram.ChatID == 0 {
			add(fmt.Errorf("logging.telegram.chat_id is required when logging.telegram.enabled is true"))
		}
		if !tokenSet {
			add(fmt.Errorf("telegram.token is required when logging.telegram.enabled is true"))
		}
	}
	_, err = config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	add(err)

	return errors.Join(errs...)
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	tc := cfg.Timetable
	driver := strings.ToLower(strings.TrimSpace(tc.Driver))
	switch driver {
	case "", "file":
		return storage.Config{Driver: "file", Path: strings.TrimSpace(tc.Path)}, nil
	case "sqlite", "sqlite3":
		if strings.TrimSpace(tc.Path) == "" {
			return storage.Config{}, fmt.Errorf("timetable.path is required when timetable.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("timetable.busy_timeout", tc.BusyTimeout, 5*time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{
			Driver:        "sqlite",
			Path:          strings.TrimSpace(tc.Path),
			BusyTimeout:   busy,
			KeepRevisions: tc.KeepRevisions,
		}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown timetable.driver: %s", tc.Driver)
	}
}

// mapLoggingConfig converts the logging section. hudMode hands the terminal
// to the renderer (see logx.Config.HUD).
func mapLoggingConfig(cfg *config.Config, hudMode bool) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		HUD:     hudMode,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapTrackerOptions(cfg *config.Config) (tracker.Options, error) {
	loc, err := config.ParseLocation("tracker.timezone", cfg.Tracker.Timezone)
	if err != nil {
		return tracker.Options{}, err
	}
	lead, err := config.ParseDurationField("announce.lead", cfg.Announce.Lead)
	if err != nil {
		return tracker.Options{}, err
	}
	return tracker.Options{
		Location: loc,
		Tick:     cfg.Tracker.Tick,
		Rollover: cfg.Tracker.Rollover,
		Lead:     lead,
	}, nil
}

func mapAnnounceConfig(cfg *config.Config) announce.Config {
	return announce.Config{
		Enabled:    cfg.Announce.Enabled,
		Target:     kit.ChatTarget{ChatID: cfg.Announce.ChatID, ThreadID: cfg.Announce.ThreadID},
		RatePerSec: cfg.Announce.RatePerSec,
		RetryMax:   2,
	}
}

func mapHUDOptions(cfg *config.Config, log logx.Logger) (hud.Options, error) {
	refresh, err := config.ParseDurationOrDefault("hud.refresh", cfg.HUD.Refresh, time.Second)
	if err != nil {
		return hud.Options{}, err
	}
	loc, err := config.ParseLocation("tracker.timezone", cfg.Tracker.Timezone)
	if err != nil {
		return hud.Options{}, err
	}
	return hud.Options{
		Title:    cfg.HUD.Title,
		Info:     cfg.HUD.Info,
		Refresh:  refresh,
		BarWidth: cfg.HUD.BarWidth,
		Location: loc,
		Log:      log,
	}, nil
}
