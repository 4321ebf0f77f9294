package timetable

import "time"

var weekdayNames = [7]string{
	time.Sunday:    "Sunday",
	time.Monday:    "Monday",
	time.Tuesday:   "Tuesday",
	time.Wednesday: "Wednesday",
	time.Thursday:  "Thursday",
	time.Friday:    "Friday",
	time.Saturday:  "Saturday",
}

// WeekOrder is the order days are written back in.
var WeekOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// ParseWeekday maps one of the seven English weekday names to time.Weekday.
// Matching is exact ("Monday", not "monday").
func ParseWeekday(name string) (time.Weekday, bool) {
	for d, n := range weekdayNames {
		if n == name {
			return time.Weekday(d), true
		}
	}
	return 0, false
}

// WeekdayName returns the persisted key for d.
func WeekdayName(d time.Weekday) string { return weekdayNames[d%7] }
