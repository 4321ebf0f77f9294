package hud

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"

	"classhud/internal/timetable"
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	dayStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)

	currentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	upcomingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	finishedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7DC6F"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).MarginTop(1)
)

// Render draws the views of now's weekday. It has no side effects.
func Render(tt *timetable.Timetable, now time.Time, opt Options) string {
	opt = opt.withDefaults()

	var rows []string
	rows = append(rows, infoStyle.Render(strftime.Format(opt.Info, now)))
	rows = append(rows, titleStyle.Render(opt.Title))
	rows = append(rows, dayStyle.Render(timetable.WeekdayName(now.Weekday())))

	n := 0
	for v, err := range tt.Daily("", now) {
		n++
		rows = append(rows, renderRow(v, err, now, opt.BarWidth))
	}
	if n == 0 {
		rows = append(rows, finishedStyle.Render("No classes today."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderRow(v timetable.PeriodView, err error, now time.Time, width int) string {
	name := v.Classname
	if err != nil {
		name = errorStyle.Render("! " + err.Error())
	}
	if v.Span == nil {
		return labelStyle.Width(12).Render(v.Label) + " " + name
	}

	span := v.Span.Begin.Format("15:04") + "-" + v.Span.End.Format("15:04")
	var style lipgloss.Style
	var tail string
	switch v.State {
	case timetable.StateCurrent:
		style = currentStyle
		tail = "-" + formatClock(v.Remaining())
	case timetable.StateUpcoming:
		style = upcomingStyle
		tail = humanize.RelTime(now, v.Span.Begin, "from now", "ago")
	default:
		style = finishedStyle
		tail = "done"
	}
	return fmt.Sprintf("%s %s %s %s", style.Render(span), Bar(v.Fraction, width), style.Render(name), tail)
}

// Bar is a fixed-width bar filled in proportion to fraction.
func Bar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = max(0, min(1, fraction))
	filled := int(fraction*float64(width) + 0.5)
	return barStyle.Render(strings.Repeat("█", filled) + strings.Repeat("░", width-filled))
}

// formatClock renders d as M:SS, or H:MM:SS from one hour up.
func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = -d
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
