// Package export writes the weekly timetable in calendar and spreadsheet
// formats.
package export

import (
	"time"

	"classhud/internal/timetable"
)

// weekOrder is Monday first, the order used by both formats.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// weekStart returns the Monday 00:00 of the week containing date, in loc.
func weekStart(date time.Time, loc *time.Location) time.Time {
	date = date.In(loc)
	offset := (int(date.Weekday()) + 6) % 7
	y, m, d := date.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// dateOf returns the date of day d in the week starting at monday.
func dateOf(monday time.Time, d time.Weekday) time.Time {
	return monday.AddDate(0, 0, (int(d)+6)%7)
}

func periodName(p timetable.Period) string {
	name, err := p.Classname()
	if err != nil {
		return p.DisplayName + " (rotating)"
	}
	return name
}
