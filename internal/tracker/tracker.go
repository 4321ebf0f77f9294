// Package tracker follows the live timetable over time and publishes
// period transitions and day rollovers on the event bus.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"classhud/internal/eventbus"
	"classhud/internal/timetable"
	logx "classhud/pkg/logx"
)

// Source provides the live timetable (schedule.Manager).
type Source interface {
	Current() *timetable.Timetable
}

type Options struct {
	Location *time.Location
	// Tick and Rollover are trigger specs, see NormalizeSpec.
	Tick     string
	Rollover string
	// Lead publishes period.upcoming this long before a period begins.
	// Zero disables it.
	Lead time.Duration
	Now  func() time.Time
}

type Tracker struct {
	src Source
	bus eventbus.Bus
	log logx.Logger
	opt Options

	tick, rollover string

	mu    sync.Mutex
	c     *cron.Cron
	day   time.Weekday
	seen  bool // day/states are initialized
	tt    *timetable.Timetable
	state map[int]timetable.State
	lead  map[int]bool
}

func New(src Source, bus eventbus.Bus, log logx.Logger, opt Options) (*Tracker, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opt.Location == nil {
		opt.Location = time.Local
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Tick == "" {
		opt.Tick = "@every 1s"
	}
	if opt.Rollover == "" {
		opt.Rollover = "0 0 0 * * *"
	}
	tick, err := NormalizeSpec(opt.Tick)
	if err != nil {
		return nil, err
	}
	rollover, err := NormalizeSpec(opt.Rollover)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		src:      src,
		bus:      bus,
		log:      log.Named("tracker"),
		opt:      opt,
		tick:     tick,
		rollover: rollover,
	}, nil
}

// Run starts the triggers and blocks until ctx ends.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.Stop(stopCtx)
	return nil
}

func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c != nil {
		return nil
	}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(t.opt.Location),
		cron.WithChain(cron.Recover(cronLogger{t.log}), cron.SkipIfStillRunning(cronLogger{t.log})),
	)
	if _, err := c.AddFunc(t.tick, func() { t.Step(t.opt.Now()) }); err != nil {
		return err
	}
	if _, err := c.AddFunc(t.rollover, func() {
		t.log.Debug("rollover trigger")
		t.Step(t.opt.Now())
	}); err != nil {
		return err
	}
	c.Start()
	t.c = c
	t.log.Info("tracker started", logx.String("tz", t.opt.Location.String()), logx.String("tick", t.tick), logx.String("rollover", t.rollover))
	return nil
}

func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	c := t.c
	t.c = nil
	t.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// Step compares today's periods at now with the previous step and publishes
// what changed. The first step of a day (or after a timetable swap) only
// records states, except for upcoming warnings.
func (t *Tracker) Step(now time.Time) {
	now = now.In(t.opt.Location)
	tt := t.src.Current()

	t.mu.Lock()
	defer t.mu.Unlock()

	day := now.Weekday()
	baseline := !t.seen || tt != t.tt
	if t.seen && day != t.day {
		t.publish(eventbus.DayRollover, now, eventbus.RolloverData{
			From: timetable.WeekdayName(t.day),
			To:   timetable.WeekdayName(day),
		})
		t.log.Info("day rollover", logx.String("day", timetable.WeekdayName(day)))
		baseline = true
	}
	if baseline {
		t.state = map[int]timetable.State{}
		t.lead = map[int]bool{}
	}
	t.seen, t.day, t.tt = true, day, tt

	name := timetable.WeekdayName(day)
	for v, err := range tt.Day(day).Views(now) {
		if errors.Is(err, timetable.ErrCycleNotImplemented) || v.Span == nil || v.Span.End.Before(v.Span.Begin) {
			continue
		}
		if err != nil {
			t.log.Warn("period view failed", logx.Int("index", v.Index), logx.Err(err))
			continue
		}
		data := eventbus.PeriodData{
			Day:       name,
			Index:     v.Index,
			Classname: v.Classname,
			Begin:     v.Span.Begin,
			End:       v.Span.End,
		}

		prev, known := t.state[v.Index]
		t.state[v.Index] = v.State
		if known && !baseline && prev != v.State {
			switch {
			case v.State == timetable.StateCurrent:
				t.publish(eventbus.PeriodStarted, now, data)
			case v.State == timetable.StateFinished:
				t.publish(eventbus.PeriodEnded, now, data)
			}
		}

		if t.opt.Lead > 0 && v.State == timetable.StateUpcoming && !t.lead[v.Index] {
			if in := v.Span.Begin.Sub(now); in <= t.opt.Lead {
				t.lead[v.Index] = true
				data.In = in
				t.publish(eventbus.PeriodUpcoming, now, data)
			}
		}
	}
}

func (t *Tracker) publish(typ string, now time.Time, data any) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: data})
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
