package timetable

import (
	"encoding/json"
	"fmt"
	"iter"
	"time"
)

// Timetable is the weekly schedule: seven days of periods, the shared
// template list and the cycle settings. It is immutable once built.
type Timetable struct {
	templates   []TimeRange
	cycleGroups [][]int
	cycleStart  time.Time
	hasCycle    bool

	days       [7][]Period
	present    [7]bool // day key was persisted (kept on write-back)
	nullDay    [7]bool // persisted as null rather than a list
	hasClasses bool

	// raw holds the top-level document fields as decoded.
	raw map[string]json.RawMessage
}

// New builds a timetable from templates and per-day periods, resolving
// template references. Days absent from the map are empty.
func New(templates []TimeRange, days map[time.Weekday][]Period) (*Timetable, error) {
	t := &Timetable{
		templates:  append([]TimeRange(nil), templates...),
		hasClasses: true,
	}
	for d, periods := range days {
		if d < time.Sunday || d > time.Saturday {
			return nil, configErr("classes", fmt.Sprintf("weekday %d", d), ErrUnknownDay)
		}
		resolved, err := resolveDay(WeekdayName(d), periods, t.templates)
		if err != nil {
			return nil, err
		}
		t.days[d] = resolved
	}
	for i := range t.present {
		t.present[i] = true
	}
	return t, nil
}

// Default is the timetable used when nothing has been persisted yet:
// seven empty days, no templates.
func Default() *Timetable {
	t, _ := New(nil, nil)
	return t
}

// WithDay returns a copy of t with day d replaced by periods.
func (t *Timetable) WithDay(d time.Weekday, periods []Period) (*Timetable, error) {
	if d < time.Sunday || d > time.Saturday {
		return nil, configErr("classes", fmt.Sprintf("weekday %d", d), ErrUnknownDay)
	}
	resolved, err := resolveDay(WeekdayName(d), periods, t.templates)
	if err != nil {
		return nil, err
	}
	cp := *t
	cp.days[d] = resolved
	cp.present[d] = true
	cp.nullDay[d] = false
	cp.hasClasses = true
	return &cp, nil
}

func (t *Timetable) Templates() []TimeRange { return append([]TimeRange(nil), t.templates...) }

func (t *Timetable) CycleGroups() [][]int {
	out := make([][]int, len(t.cycleGroups))
	for i, g := range t.cycleGroups {
		out[i] = append([]int(nil), g...)
	}
	return out
}

// CycleStart is the epoch used for rotating class names, if configured.
func (t *Timetable) CycleStart() (time.Time, bool) { return t.cycleStart, t.hasCycle }

// Day returns the schedule of d. A day without entries is an empty schedule.
func (t *Timetable) Day(d time.Weekday) DaySchedule {
	d %= 7
	return DaySchedule{day: d, periods: t.days[d]}
}

// DayByName looks a schedule up by its English weekday name.
func (t *Timetable) DayByName(name string) (DaySchedule, error) {
	d, ok := ParseWeekday(name)
	if !ok {
		return DaySchedule{}, fmt.Errorf("%w: %q", ErrUnknownDay, name)
	}
	return t.Day(d), nil
}

// Daily yields the views of the named day against now. An empty name means
// now's weekday. An unknown name yields a single error.
func (t *Timetable) Daily(name string, now time.Time) iter.Seq2[PeriodView, error] {
	if name == "" {
		return t.Day(now.Weekday()).Views(now)
	}
	ds, err := t.DayByName(name)
	if err != nil {
		return func(yield func(PeriodView, error) bool) { yield(PeriodView{}, err) }
	}
	return ds.Views(now)
}

// PeriodCount is the total number of definitions across the week.
func (t *Timetable) PeriodCount() int {
	n := 0
	for _, ps := range t.days {
		n += len(ps)
	}
	return n
}
