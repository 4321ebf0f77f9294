package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"classhud/internal/timetable"
)

var byDay = map[time.Weekday]string{
	time.Sunday: "SU", time.Monday: "MO", time.Tuesday: "TU", time.Wednesday: "WE",
	time.Thursday: "TH", time.Friday: "FR", time.Saturday: "SA",
}

type ICSOptions struct {
	Name string
	// Stamp is written as DTSTAMP; zero means now.
	Stamp time.Time
}

// WriteICS writes one weekly recurring event per timed period, starting in
// the week that contains weekOf. Label-only periods are skipped.
func WriteICS(w io.Writer, t *timetable.Timetable, weekOf time.Time, loc *time.Location, opt ICSOptions) (int, error) {
	if loc == nil {
		loc = time.Local
	}
	if opt.Name == "" {
		opt.Name = "Timetable"
	}
	if opt.Stamp.IsZero() {
		opt.Stamp = time.Now()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//classhud//timetable export//EN")
	cal.SetName(opt.Name)

	monday := weekStart(weekOf, loc)
	n := 0
	for _, d := range weekOrder {
		date := dateOf(monday, d)
		for i, p := range t.Day(d).Periods() {
			if p.NoTimeSpan || p.Times == nil || p.Times.Inverted() {
				continue
			}
			ev := cal.AddEvent(fmt.Sprintf("%s-%d-%s@classhud", timetable.WeekdayName(d), i, p.Times.Begin))
			ev.SetDtStampTime(opt.Stamp)
			ev.SetSummary(periodName(p))
			ev.SetStartAt(p.Times.Begin.On(date))
			ev.SetEndAt(p.Times.End.On(date))
			ev.AddRrule("FREQ=WEEKLY;BYDAY=" + byDay[d])
			n++
		}
	}
	if err := cal.SerializeTo(w); err != nil {
		return n, fmt.Errorf("write ics: %w", err)
	}
	return n, nil
}
