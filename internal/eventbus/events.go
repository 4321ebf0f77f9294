package eventbus

import "time"

// Event types published by classhud components.
const (
	TimetableReloaded = "timetable.reloaded"
	DayRollover       = "day.rollover"
	PeriodStarted     = "period.started"
	PeriodEnded       = "period.ended"
	PeriodUpcoming    = "period.upcoming"
)

// PeriodData is the payload of the period.* events.
type PeriodData struct {
	Day       string
	Index     int
	Classname string
	Begin     time.Time
	End       time.Time
	// In is the time until Begin (period.upcoming only).
	In time.Duration
}

// RolloverData is the payload of day.rollover.
type RolloverData struct {
	From string
	To   string
}

// ReloadData is the payload of timetable.reloaded.
type ReloadData struct {
	Source  string // "watch", "reset", "replace", "manual"
	Periods int
}
