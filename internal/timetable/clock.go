package timetable

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day with minute precision, persisted as "HH:MM".
type ClockTime struct {
	min int // minutes since midnight
}

// Clock builds a ClockTime from hour and minute. It panics on out-of-range input.
func Clock(hour, minute int) ClockTime {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic(fmt.Sprintf("timetable: invalid clock %d:%d", hour, minute))
	}
	return ClockTime{min: hour*60 + minute}
}

// ParseClock parses "HH:MM" (a single-digit hour is accepted).
func ParseClock(s string) (ClockTime, error) {
	raw := strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return ClockTime{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("invalid minutes in %q", s)
	}
	return ClockTime{min: h*60 + m}, nil
}

// MustClock is ParseClock for literals.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Hour() int   { return c.min / 60 }
func (c ClockTime) Minute() int { return c.min % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) Before(o ClockTime) bool { return c.min < o.min }

// On places c on the calendar date of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location())
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TimeRange is a begin/end pair of clock times. The template list of a
// timetable is a []TimeRange referenced by index from periods.
type TimeRange struct {
	Begin ClockTime
	End   ClockTime
}

// Inverted reports an end before the begin. Such a range is kept as
// written; its period goes from upcoming straight to finished.
func (r TimeRange) Inverted() bool { return r.End.Before(r.Begin) }

func (r TimeRange) String() string { return r.Begin.String() + "-" + r.End.String() }
