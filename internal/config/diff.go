package config

import (
	"sort"
	"strings"

	logx "classhud/pkg/logx"
)

// SummarizeConfigChange returns a sorted list of changed sections and safe
// structured attrs for logging. The telegram token is never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Timetable != newCfg.Timetable {
		changed = append(changed, "timetable")
		attrs = append(attrs,
			logx.String("timetable.driver", newCfg.Timetable.Driver),
			logx.String("timetable.path", strings.TrimSpace(newCfg.Timetable.Path)),
			logx.Bool("timetable.watch", newCfg.Timetable.Watch),
		)
	}

	if oldCfg.HUD != newCfg.HUD {
		changed = append(changed, "hud")
		attrs = append(attrs,
			logx.String("hud.refresh", newCfg.HUD.Refresh),
			logx.Int("hud.bar_width", newCfg.HUD.BarWidth),
		)
	}

	if oldCfg.Tracker != newCfg.Tracker {
		changed = append(changed, "tracker")
		attrs = append(attrs,
			logx.Bool("tracker.enabled", newCfg.Tracker.Enabled),
			logx.String("tracker.timezone", newCfg.Tracker.Timezone),
			logx.String("tracker.rollover", newCfg.Tracker.Rollover),
			logx.String("tracker.tick", newCfg.Tracker.Tick),
		)
	}

	if oldCfg.Announce != newCfg.Announce {
		changed = append(changed, "announce")
		attrs = append(attrs,
			logx.Bool("announce.enabled", newCfg.Announce.Enabled),
			logx.Bool("announce.chat_set", newCfg.Announce.ChatID != 0),
			logx.String("announce.lead", newCfg.Announce.Lead),
		)
	}

	oTok := strings.TrimSpace(oldCfg.Telegram.Token)
	nTok := strings.TrimSpace(newCfg.Telegram.Token)
	if oTok != nTok || oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", nTok != ""),
			logx.Bool("telegram.token_changed", oTok != nTok),
			logx.String("telegram.poll_timeout", newCfg.Telegram.PollTimeout),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
