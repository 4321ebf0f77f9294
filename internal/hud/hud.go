// Package hud is the terminal renderer of the timetable: a bubbletea program
// that redraws today's periods with live progress bars.
package hud

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"classhud/internal/timetable"
	logx "classhud/pkg/logx"
)

// Source provides the live timetable (schedule.Manager).
type Source interface {
	Current() *timetable.Timetable
	Reload(ctx context.Context, source string) (bool, error)
}

type Options struct {
	Title string
	// Info is a strftime layout for the clock line.
	Info     string
	Refresh  time.Duration
	BarWidth int
	Location *time.Location
	Now      func() time.Time
	Log      logx.Logger
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "课程表"
	}
	if o.Info == "" {
		o.Info = "%Y/%m/%d %a %H:%M"
	}
	if o.Refresh <= 0 {
		o.Refresh = time.Second
	}
	if o.BarWidth <= 0 {
		o.BarWidth = 24
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log.IsZero() {
		o.Log = logx.Nop()
	}
	return o
}

type tickMsg time.Time

type reloadMsg struct {
	changed bool
	err     error
}

type Model struct {
	src    Source
	opt    Options
	now    time.Time
	day    string
	status string
}

func NewModel(src Source, opt Options) Model {
	opt = opt.withDefaults()
	now := opt.Now().In(opt.Location)
	return Model{src: src, opt: opt, now: now, day: timetable.WeekdayName(now.Weekday())}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opt.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) reloadCmd() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		changed, err := src.Reload(ctx, "hud")
		return reloadMsg{changed: changed, err: err}
	}
}

func (m Model) Init() tea.Cmd { return m.tickCmd() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.status = "reloading..."
			return m, m.reloadCmd()
		}
	case tickMsg:
		m.now = m.opt.Now().In(m.opt.Location)
		if day := timetable.WeekdayName(m.now.Weekday()); day != m.day {
			m.opt.Log.Info("hud day changed", logx.String("from", m.day), logx.String("to", day))
			m.day = day
		}
		return m, m.tickCmd()
	case reloadMsg:
		switch {
		case msg.err != nil:
			m.status = "reload failed: " + msg.err.Error()
			m.opt.Log.Warn("hud reload failed", logx.Err(msg.err))
		case msg.changed:
			m.status = "reloaded"
		default:
			m.status = "unchanged"
		}
	}
	return m, nil
}

func (m Model) View() string {
	out := Render(m.src.Current(), m.now, m.opt)
	footer := "q quit · r reload"
	if m.status != "" {
		footer += " · " + m.status
	}
	return out + "\n" + footerStyle.Render(footer) + "\n"
}

// Run shows the HUD in the alternate screen until the user quits or ctx ends.
func Run(ctx context.Context, src Source, opt Options) error {
	p := tea.NewProgram(NewModel(src, opt), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
