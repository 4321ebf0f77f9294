package timetable

import (
	"iter"
	"time"
)

// DaySchedule is the ordered period list of one weekday. Order is display order.
type DaySchedule struct {
	day     time.Weekday
	periods []Period
}

func (d DaySchedule) Day() time.Weekday { return d.day }
func (d DaySchedule) Name() string      { return WeekdayName(d.day) }
func (d DaySchedule) Len() int          { return len(d.periods) }

// Period returns the i-th definition (a copy).
func (d DaySchedule) Period(i int) Period { return d.periods[i] }

// Periods returns a copy of the definitions.
func (d DaySchedule) Periods() []Period {
	return append([]Period(nil), d.periods...)
}

// Views yields one PeriodView per definition, in order, computed lazily
// against now. The sequence can be ranged over any number of times; an
// empty day yields nothing.
//
// A non-nil error accompanies views whose name cannot be resolved (cyclic
// periods); iteration continues past it unless the caller breaks.
func (d DaySchedule) Views(now time.Time) iter.Seq2[PeriodView, error] {
	return func(yield func(PeriodView, error) bool) {
		for i, p := range d.periods {
			v, err := p.View(now)
			v.Index = i
			if !yield(v, err) {
				return
			}
		}
	}
}

// Current returns the first running period, if any.
func (d DaySchedule) Current(now time.Time) (PeriodView, bool) {
	for v := range d.Views(now) {
		if v.State == StateCurrent {
			return v, true
		}
	}
	return PeriodView{}, false
}

// Next returns the earliest period that has not started yet.
func (d DaySchedule) Next(now time.Time) (PeriodView, bool) {
	var (
		best  PeriodView
		found bool
	)
	for v := range d.Views(now) {
		if v.State != StateUpcoming {
			continue
		}
		if !found || v.Span.Begin.Before(best.Span.Begin) {
			best, found = v, true
		}
	}
	return best, found
}
