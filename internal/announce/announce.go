// Package announce turns tracker events into chat messages.
package announce

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"golang.org/x/time/rate"

	"classhud/internal/eventbus"
	"classhud/internal/timetable"
	kit "classhud/internal/transport"
	logx "classhud/pkg/logx"
)

type Config struct {
	Enabled    bool
	Target     kit.ChatTarget
	RatePerSec int
	RetryMax   int
	RetryBase  time.Duration
}

// Source provides the live timetable for day summaries.
type Source interface {
	Current() *timetable.Timetable
}

type HistoryItem struct {
	At   time.Time
	Text string
}

type Announcer struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	sender kit.Sender
	src    Source
	log    logx.Logger
	now    func() time.Time

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, src Source, log logx.Logger) *Announcer {
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Announcer{sender: sender, src: src, log: log.Named("announce"), now: time.Now}
	a.applyLocked(cfg)
	return a
}

func (a *Announcer) Apply(cfg Config) {
	a.mu.Lock()
	a.applyLocked(cfg)
	a.mu.Unlock()
}

func (a *Announcer) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	a.cfg = cfg
	a.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Run sends a message for each relevant bus event until ctx ends.
func (a *Announcer) Run(ctx context.Context, bus eventbus.Bus) error {
	ch, unsub := bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if text := a.Format(e); text != "" {
				a.send(ctx, text)
			}
		}
	}
}

// Format renders e as a message; "" means the event is not announced.
func (a *Announcer) Format(e eventbus.Event) string {
	now := e.Time
	if now.IsZero() {
		now = a.now()
	}
	switch d := e.Data.(type) {
	case eventbus.PeriodData:
		span := d.Begin.Format("15:04") + "-" + d.End.Format("15:04")
		switch e.Type {
		case eventbus.PeriodUpcoming:
			return fmt.Sprintf("⏰ %s starts %s (%s)", d.Classname, humanize.RelTime(now, now.Add(d.In), "from now", "ago"), span)
		case eventbus.PeriodStarted:
			return fmt.Sprintf("▶️ %s has started (%s), %s left", d.Classname, span, humanizeDuration(d.End.Sub(now)))
		case eventbus.PeriodEnded:
			return fmt.Sprintf("✅ %s is over", d.Classname)
		}
	case eventbus.RolloverData:
		return a.daySummary(d.To, now)
	case eventbus.ReloadData:
		// Only edits made outside this process are worth a message.
		if e.Type == eventbus.TimetableReloaded && d.Source == "watch" {
			return "🔄 Timetable updated: " + pluralPeriods(d.Periods)
		}
	}
	return ""
}

func (a *Announcer) daySummary(day string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s", day)
	if a.src == nil {
		return b.String()
	}
	n := 0
	for v, err := range a.src.Current().Daily(day, now) {
		if err != nil && v.Span == nil && v.Label == "" {
			continue
		}
		n++
		name := v.Classname
		if name == "" {
			name = "?"
		}
		switch {
		case v.Span != nil:
			fmt.Fprintf(&b, "\n%s  %s", v.Span.Begin.Format("15:04"), name)
		default:
			fmt.Fprintf(&b, "\n%s  %s", v.Label, name)
		}
	}
	if n == 0 {
		b.WriteString("\nNo classes today.")
	}
	return b.String()
}

func (a *Announcer) send(ctx context.Context, text string) {
	a.mu.Lock()
	cfg := a.cfg
	lim := a.limiter
	a.mu.Unlock()
	if !cfg.Enabled || a.sender == nil || cfg.Target.IsZero() {
		return
	}

	attempts := 1 + cfg.RetryMax
	delay := cfg.RetryBase
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := a.sender.SendText(callCtx, cfg.Target, text, &kit.SendOptions{DisablePreview: true})
		cancel()
		if err == nil {
			a.appendHistory(text)
			return
		}
		a.log.Debug("announce send failed", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", attempts))
		if attempt == attempts {
			a.log.Warn("announce dropped", logx.Err(err))
			return
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return
		}
		delay *= 2
	}
}

func (a *Announcer) History() []HistoryItem {
	a.hmu.Lock()
	defer a.hmu.Unlock()
	return append([]HistoryItem(nil), a.history...)
}

func (a *Announcer) appendHistory(text string) {
	a.hmu.Lock()
	a.history = append(a.history, HistoryItem{At: a.now(), Text: text})
	if len(a.history) > 100 {
		a.history = a.history[len(a.history)-100:]
	}
	a.hmu.Unlock()
}

func pluralPeriods(n int) string { return english.Plural(n, "period", "") }

// humanizeDuration renders d as "45 minutes" or "1 hour 5 minutes".
func humanizeDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", h, english.PluralWord(h, "hour", "")))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", m, english.PluralWord(m, "minute", "")))
	}
	return strings.Join(parts, " ")
}
