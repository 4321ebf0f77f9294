package timetable

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultLabel is shown for periods without a time span and no custom text.
const DefaultLabel = "Untitled"

// Period is one scheduled class entry of a weekday.
//
// Times is either given inline or copied from the template list at load time
// (TemplateIndex != nil). After a successful load every period that has a
// time span has a non-nil Times.
type Period struct {
	DisplayName string
	IsCyclic    bool
	CycleIndex  *int

	NoTimeSpan  bool
	CustomLabel string

	TemplateIndex *int
	Times         *TimeRange

	// Style is an opaque reference to presentation settings.
	Style *string

	// raw is the persisted object this period was decoded from; origin is
	// the signature of the decoded fields. Encode writes raw verbatim while
	// the signature still matches.
	raw    map[string]json.RawMessage
	origin string
}

// Label is the static text shown instead of a time span.
func (p Period) Label() string {
	if p.CustomLabel == "" {
		return DefaultLabel
	}
	return p.CustomLabel
}

// Classname returns the display name.
//
// Cyclic periods are meant to rotate their name over a multi-week cycle
// (cycle_class_indexes + cycle_class_count_start). That rotation is not
// implemented: cyclic periods return ErrCycleNotImplemented.
func (p Period) Classname() (string, error) {
	if p.IsCyclic {
		return "", ErrCycleNotImplemented
	}
	return p.DisplayName, nil
}

func (p Period) signature() string {
	return fmt.Sprintf("%q|%t|%s|%t|%q|%s|%s|%s",
		p.DisplayName, p.IsCyclic, intPtrString(p.CycleIndex),
		p.NoTimeSpan, p.CustomLabel, intPtrString(p.TemplateIndex),
		rangePtrString(p.Times), strPtrString(p.Style))
}

func intPtrString(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func strPtrString(v *string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%q", *v)
}

func rangePtrString(v *TimeRange) string {
	if v == nil {
		return "-"
	}
	return v.String()
}

// State classifies a view relative to now.
type State int

const (
	StateUntimed State = iota
	StateUpcoming
	StateCurrent
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUpcoming:
		return "upcoming"
	case StateCurrent:
		return "current"
	case StateFinished:
		return "finished"
	default:
		return "untimed"
	}
}

// Span is a period's time range placed on a calendar date.
type Span struct {
	Begin time.Time
	End   time.Time
}

// PeriodView is the derived, never-persisted record handed to renderers.
type PeriodView struct {
	Index     int
	Classname string

	// Span is nil for periods without a time span; Label is set instead.
	Span  *Span
	Label string

	// Fraction is the share of the period remaining: 1 before it starts,
	// 0 after it ends.
	Fraction float64
	// Elapsed is now-end while the period runs (<= 0), otherwise 0.
	Elapsed time.Duration

	State State
	Style *string
}

// Remaining is the time left in a running period.
func (v PeriodView) Remaining() time.Duration {
	if v.State != StateCurrent {
		return 0
	}
	return -v.Elapsed
}

// View computes p's time fields against now.
//
// Begin and end are always placed on now's calendar date: a period is
// evaluated as if it were scheduled today. The time fields of the returned
// view are filled even when err reports an unresolvable (cyclic) name.
func (p Period) View(now time.Time) (PeriodView, error) {
	name, err := p.Classname()
	v := PeriodView{Classname: name, Style: p.Style}

	if p.NoTimeSpan {
		v.Label = p.Label()
		v.State = StateUntimed
		return v, err
	}
	if p.Times == nil {
		return v, configErr("", fmt.Sprintf("period %q has no time span", p.DisplayName), nil)
	}

	begin := p.Times.Begin.On(now)
	end := p.Times.End.On(now)
	v.Span = &Span{Begin: begin, End: end}

	switch {
	case now.Before(begin):
		v.Fraction = 1
		v.State = StateUpcoming
	case now.After(end):
		v.Fraction = 0
		v.State = StateFinished
	default:
		v.State = StateCurrent
		if total := end.Sub(begin); total > 0 {
			v.Fraction = clamp01(float64(end.Sub(now)) / float64(total))
		}
		v.Elapsed = now.Sub(end)
	}
	return v, err
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
