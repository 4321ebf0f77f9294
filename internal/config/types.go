package config

// Config is the application config. Durations are Go duration strings
// (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Timetable TimetableConfig `json:"timetable"`
	HUD       HUDConfig       `json:"hud"`
	Tracker   TrackerConfig   `json:"tracker"`
	Announce  AnnounceConfig  `json:"announce"`
	Telegram  TelegramConfig  `json:"telegram"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// TimetableConfig selects where the timetable document lives.
//
// Example:
//
//	"timetable": { "driver": "file", "path": "./timetable.yaml", "watch": true }
type TimetableConfig struct {
	Driver        string `json:"driver"` // "file" | "sqlite"
	Path          string `json:"path"`
	BusyTimeout   string `json:"busy_timeout,omitempty"` // sqlite
	KeepRevisions int    `json:"keep_revisions,omitempty"`
	Watch         bool   `json:"watch"` // file driver: reload on external edits
}

type HUDConfig struct {
	Title string `json:"title"`
	// Info is a strftime layout for the clock line.
	Info     string `json:"info"`
	Refresh  string `json:"refresh"`
	BarWidth int    `json:"bar_width"`
}

type TrackerConfig struct {
	Enabled bool `json:"enabled"`
	// Timezone is an IANA name; empty means the local zone.
	Timezone string `json:"timezone,omitempty"`
	// Rollover and Tick are cron specs (seconds field optional).
	Rollover string `json:"rollover"`
	Tick     string `json:"tick"`
}

type AnnounceConfig struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec"`
	Lead       string `json:"lead"` // warn this long before a period starts
}

type TelegramConfig struct {
	Token       string `json:"token"`
	PollTimeout string `json:"poll_timeout"`
}

// Default returns the config used when no file exists. Parse decodes on top
// of it, so omitted keys keep these values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    LoggingFile{Path: "./classhud.log"},
			Telegram: LoggingTelegram{
				MinLevel:   "warn",
				RatePerSec: 1,
			},
		},
		Timetable: TimetableConfig{
			Driver:        "file",
			Path:          "./timetable.json",
			BusyTimeout:   "5s",
			KeepRevisions: 20,
			Watch:         true,
		},
		HUD: HUDConfig{
			Title:    "课程表",
			Info:     "%Y/%m/%d %a %H:%M",
			Refresh:  "1s",
			BarWidth: 24,
		},
		Tracker: TrackerConfig{
			Enabled:  true,
			Rollover: "0 0 0 * * *",
			Tick:     "@every 1s",
		},
		Announce: AnnounceConfig{
			RatePerSec: 1,
			Lead:       "5m",
		},
		Telegram: TelegramConfig{PollTimeout: "10s"},
	}
}
