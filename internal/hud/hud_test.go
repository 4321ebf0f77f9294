package hud

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"classhud/internal/timetable"
)

type fakeSource struct {
	tt        *timetable.Timetable
	reloadErr error
	reloads   int
}

func (f *fakeSource) Current() *timetable.Timetable { return f.tt }

func (f *fakeSource) Reload(context.Context, string) (bool, error) {
	f.reloads++
	return f.reloadErr == nil, f.reloadErr
}

func sample(t *testing.T) *timetable.Timetable {
	t.Helper()
	math := timetable.TimeRange{Begin: timetable.MustClock("08:00"), End: timetable.MustClock("08:45")}
	chinese := timetable.TimeRange{Begin: timetable.MustClock("08:55"), End: timetable.MustClock("09:40")}
	idx := 0
	tt, err := timetable.New(nil, map[time.Weekday][]timetable.Period{
		time.Monday: {
			{DisplayName: "Math", Times: &math},
			{DisplayName: "Chinese", Times: &chinese},
			{DisplayName: "Lunch", NoTimeSpan: true, CustomLabel: "Noon"},
			{DisplayName: "Rotating", IsCyclic: true, CycleIndex: &idx, Times: &chinese},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tt
}

// 2024-09-02 is a Monday.
var monday0830 = time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)

func TestRender(t *testing.T) {
	t.Parallel()
	out := Render(sample(t), monday0830, Options{Info: "%Y/%m/%d %H:%M", BarWidth: 10, Location: time.UTC})

	for _, want := range []string{
		"2024/09/02 08:30",
		"课程表",
		"Monday",
		"08:00-08:45",
		"Math",
		"-15:00",
		"08:55-09:40",
		"25 minutes from now",
		"Noon",
		"Lunch",
		"not implemented",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Math") > strings.Index(out, "Chinese") {
		t.Error("rows out of definition order")
	}
}

func TestRenderEmptyDay(t *testing.T) {
	t.Parallel()
	sunday := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	out := Render(sample(t), sunday, Options{})
	if !strings.Contains(out, "Sunday") || !strings.Contains(out, "No classes today.") {
		t.Fatalf("render = %q", out)
	}
}

func TestBar(t *testing.T) {
	t.Parallel()
	cases := []struct {
		fraction float64
		want     string
	}{
		{0, "░░░░"},
		{0.5, "██░░"},
		{1, "████"},
		{1.7, "████"},
		{-1, "░░░░"},
	}
	for _, tc := range cases {
		if got := Bar(tc.fraction, 4); !strings.Contains(got, tc.want) {
			t.Errorf("Bar(%v) = %q, want %q", tc.fraction, got, tc.want)
		}
	}
	if Bar(0.5, 0) != "" {
		t.Error("zero width bar should be empty")
	}
}

func TestFormatClock(t *testing.T) {
	t.Parallel()
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{15 * time.Minute, "15:00"},
		{-(15 * time.Minute), "15:00"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tc := range cases {
		if got := formatClock(tc.d); got != tc.want {
			t.Errorf("formatClock(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestModelTickTracksDay(t *testing.T) {
	t.Parallel()
	now := monday0830
	m := NewModel(&fakeSource{tt: sample(t)}, Options{Location: time.UTC, Now: func() time.Time { return now }})
	if m.day != "Monday" {
		t.Fatalf("day = %q", m.day)
	}

	now = now.Add(24 * time.Hour)
	next, cmd := m.Update(tickMsg(now))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	if got := next.(Model).day; got != "Tuesday" {
		t.Fatalf("day after tick = %q", got)
	}
}

func TestModelKeys(t *testing.T) {
	t.Parallel()
	src := &fakeSource{tt: sample(t), reloadErr: errors.New("bad file")}
	m := NewModel(src, Options{Now: func() time.Time { return monday0830 }})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not produce QuitMsg")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("r should reload")
	}
	msg := cmd()
	if src.reloads != 1 {
		t.Fatalf("reloads = %d", src.reloads)
	}
	next, _ = next.Update(msg)
	if v := next.View(); !strings.Contains(v, "reload failed: bad file") {
		t.Fatalf("view = %q", v)
	}
}
