package timetable

import "time"

// CycleDay is the number of whole days between the cycle start date and
// date's calendar day. ok is false when no cycle start is configured.
//
// It is groundwork for cyclic class names; Period.Classname still reports
// ErrCycleNotImplemented for cyclic periods.
func (t *Timetable) CycleDay(date time.Time) (days int, ok bool) {
	if !t.hasCycle {
		return 0, false
	}
	start := time.Date(t.cycleStart.Year(), t.cycleStart.Month(), t.cycleStart.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(start).Hours() / 24), true
}
