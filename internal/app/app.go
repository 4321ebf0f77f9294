// Package app wires configuration, logging, storage, the schedule manager and
// the background components into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"classhud/internal/announce"
	"classhud/internal/config"
	"classhud/internal/eventbus"
	"classhud/internal/hud"
	"classhud/internal/runtime/supervisor"
	"classhud/internal/schedule"
	"classhud/internal/storage"
	"classhud/internal/timetable"
	"classhud/internal/tracker"
	kit "classhud/internal/transport"
	"classhud/internal/transport/telegram"
	logx "classhud/pkg/logx"
)

type Options struct {
	// Headless runs without the HUD (daemon mode): console logging follows
	// the config and systemd is notified.
	Headless bool
	// ResetBroken discards an invalid timetable instead of failing.
	ResetBroken bool
}

type App struct {
	opts Options

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	root  logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	sender kit.Sender
	sched  *schedule.Manager
	track  *tracker.Tracker
	ann    *announce.Announcer
}

func NewApp(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return Validate(cfg) })
	cfg, err := cfgm.Load(context.Background())
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)

	// The log sink and the announcer share one sender; without a token both
	// stay local.
	var sender kit.Sender
	if strings.TrimSpace(cfg.Telegram.Token) != "" {
		poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: poll}, bootLog.Named("telegram"))
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sender = tg
	}

	logSvc, root := logx.New(mapLoggingConfig(cfg, !opts.Headless), sender)
	log := root.Named("app")
	if cfgm.Missing() {
		log.Info("config file not found; using defaults", logx.String("path", cfgm.Path()))
	}
	cfgm.SetLogger(root.Named("config"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(sc, root)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()
	sched := schedule.New(store, bus, root)
	if err := loadTimetable(sched, opts.ResetBroken, log); err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	a := &App{
		opts:   opts,
		cfgm:   cfgm,
		log:    log,
		root:   root,
		logs:   logSvc,
		bus:    bus,
		store:  store,
		sender: sender,
		sched:  sched,
		ann:    announce.New(mapAnnounceConfig(cfg), sender, sched, root),
	}
	if cfg.Tracker.Enabled {
		topt, err := mapTrackerOptions(cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		if a.track, err = tracker.New(sched, bus, root, topt); err != nil {
			a.close()
			return nil, err
		}
	}
	log.Info("timetable ready", logx.String("driver", sc.Driver), logx.String("path", sc.Path), logx.Int("periods", sched.Current().PeriodCount()))
	return a, nil
}

// loadTimetable loads the stored timetable. An invalid document aborts
// startup unless reset is set, in which case it is backed up and replaced by
// defaults.
func loadTimetable(sched *schedule.Manager, reset bool, log logx.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := sched.Load(ctx)
	if err == nil {
		return nil
	}
	if !timetable.IsConfigError(err) {
		return err
	}
	if !reset {
		return fmt.Errorf("%w (run with --reset to back it up and start over)", err)
	}
	log.Warn("timetable invalid; resetting", logx.Err(err))
	backup, rerr := sched.Reset(ctx)
	if rerr != nil {
		return errors.Join(err, rerr)
	}
	log.Warn("broken timetable moved aside", logx.String("backup", backup))
	return nil
}

func (a *App) Schedule() *schedule.Manager { return a.sched }

func (a *App) Config() *config.Config { return a.cfgm.Get() }

func (a *App) Logger() logx.Logger { return a.log }

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.root.Named("supervisor")), supervisor.WithCancelOnError(true))
	cfg := a.cfgm.Get()

	if a.track != nil {
		a.sup.GoRestart("tracker", a.track.Run, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	}
	a.sup.Go("announce", func(c context.Context) error { return a.ann.Run(c, a.bus) })
	if cfg.Timetable.Watch {
		a.sup.GoRestart("timetable.watch", a.sched.Watch)
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(last, next)
				last = next
			}
		}
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	if a.opts.Headless {
		a.notifyReady()
		a.sup.Go0("systemd.watchdog", a.watchdog)
	}

	a.log.Info("app started", logx.Bool("headless", a.opts.Headless), logx.Bool("tracker", a.track != nil))
	return nil
}

// applyConfig applies the live-reloadable sections. Storage and tracker
// settings need a restart.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.logs.Apply(mapLoggingConfig(next, !a.opts.Headless))
	a.ann.Apply(mapAnnounceConfig(next))

	for _, s := range []string{"timetable", "tracker", "telegram"} {
		if slices.Contains(sections, s) {
			a.log.Warn("config section changed; restart required for it to take effect", logx.String("section", s))
		}
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// RunHUD shows the terminal HUD until the user quits or ctx ends.
func (a *App) RunHUD(ctx context.Context) error {
	opt, err := mapHUDOptions(a.cfgm.Get(), a.root.Named("hud"))
	if err != nil {
		return err
	}
	return hud.Run(ctx, a.sched, opt)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.close()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if a.opts.Headless {
		a.notifyStopping()
	}

	a.sup.Cancel()
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := a.sup.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("supervisor did not drain in time", logx.Any("counters", a.sup.Counters()))
	}

	a.log.Info("stopped", dropFields(a.bus)...)
	a.close()
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// dropFields reports deliveries the bus skipped for slow subscribers.
func dropFields(bus eventbus.Bus) []logx.Field {
	d, ok := bus.(eventbus.Dropped)
	if !ok {
		return nil
	}
	return []logx.Field{logx.Int64("bus_dropped", int64(d.Dropped()))}
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
