// Package timetable is the class-period time model.
//
// A Timetable maps the seven weekdays to ordered period definitions. Views
// are derived on demand against an injected "now":
//   - Fraction is the share of the period still remaining, in [0,1].
//   - Elapsed is now-end while a period is running (a non-positive duration),
//     and zero otherwise.
//   - Periods without a time span carry a static label and never count down.
//
// The package knows nothing about rendering, storage or wall clocks.
// A loaded Timetable is immutable; WithDay returns a modified copy.
package timetable
