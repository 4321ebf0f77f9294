package timetable

import (
	"errors"
	"testing"
	"time"
)

func sampleTimetable(t *testing.T) *Timetable {
	t.Helper()
	zero, one := 0, 1
	tt, err := New(
		[]TimeRange{
			{Begin: MustClock("08:00"), End: MustClock("08:45")},
			{Begin: MustClock("08:55"), End: MustClock("09:40")},
		},
		map[time.Weekday][]Period{
			time.Monday: {
				{DisplayName: "Math", TemplateIndex: &zero},
				{DisplayName: "Chinese", TemplateIndex: &one},
				{DisplayName: "Lunch", NoTimeSpan: true, CustomLabel: "rest"},
			},
		},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tt
}

func TestDailyOrderAndRestart(t *testing.T) {
	t.Parallel()
	tt := sampleTimetable(t)
	seq := tt.Daily("Monday", at("08:50:00"))

	for round := 0; round < 2; round++ {
		var names []string
		for v, err := range seq {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			names = append(names, v.Classname)
		}
		if len(names) != 3 || names[0] != "Math" || names[1] != "Chinese" || names[2] != "Lunch" {
			t.Fatalf("round %d names = %v", round, names)
		}
	}
}

func TestDailyEmptyDay(t *testing.T) {
	t.Parallel()
	tt := sampleTimetable(t)
	n := 0
	for _, err := range tt.Daily("Sunday", at("10:00:00")) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n++
	}
	if n != 0 {
		t.Fatalf("Sunday yielded %d views", n)
	}
}

func TestDailyDefaultsToNowsWeekday(t *testing.T) {
	t.Parallel()
	tt := sampleTimetable(t)
	n := 0
	for range tt.Daily("", at("08:10:00")) {
		n++
	}
	if n != 3 {
		t.Fatalf("expected Monday's 3 periods, got %d", n)
	}
}

func TestDailyUnknownDay(t *testing.T) {
	t.Parallel()
	tt := sampleTimetable(t)
	for _, err := range tt.Daily("Funday", at("08:10:00")) {
		if !errors.Is(err, ErrUnknownDay) {
			t.Fatalf("error = %v, want ErrUnknownDay", err)
		}
		return
	}
	t.Fatal("expected one error")
}

func TestViewsDoNotMutateDefinitions(t *testing.T) {
	t.Parallel()
	tt := sampleTimetable(t)
	ds := tt.Day(time.Monday)
	before := ds.Periods()
	for range ds.Views(at("08:30:00")) {
	}
	after := tt.Day(time.Monday).Periods()
	for i := range before {
		if before[i].signature() != after[i].signature() {
			t.Fatalf("period %d changed: %s -> %s", i, before[i].signature(), after[i].signature())
		}
	}
}

func TestCurrentAndNext(t *testing.T) {
	t.Parallel()
	ds := sampleTimetable(t).Day(time.Monday)

	cur, ok := ds.Current(at("08:30:00"))
	if !ok || cur.Classname != "Math" || cur.Index != 0 {
		t.Fatalf("current = %+v, %v", cur, ok)
	}
	next, ok := ds.Next(at("08:30:00"))
	if !ok || next.Classname != "Chinese" {
		t.Fatalf("next = %+v, %v", next, ok)
	}
	if _, ok := ds.Current(at("08:50:00")); ok {
		t.Fatal("no period runs during the break")
	}
	if _, ok := ds.Next(at("10:00:00")); ok {
		t.Fatal("nothing is left after the last period")
	}
}

func TestWithDayReplacesWholeDay(t *testing.T) {
	t.Parallel()
	tt := sampleTimetable(t)
	one := 1
	next, err := tt.WithDay(time.Tuesday, []Period{{DisplayName: "Art", TemplateIndex: &one}})
	if err != nil {
		t.Fatal(err)
	}
	if tt.Day(time.Tuesday).Len() != 0 {
		t.Fatal("original timetable was modified")
	}
	p := next.Day(time.Tuesday).Period(0)
	if p.Times == nil || p.Times.Begin.String() != "08:55" {
		t.Fatalf("template not resolved: %+v", p.Times)
	}

	two := 2
	if _, err := tt.WithDay(time.Tuesday, []Period{{DisplayName: "Art", TemplateIndex: &two}}); !IsConfigError(err) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
}

func TestCycleDay(t *testing.T) {
	t.Parallel()
	tt, err := Decode([]byte(`{"cycle_class_count_start": "2024-09-02", "classes": {}}`))
	if err != nil {
		t.Fatal(err)
	}
	days, ok := tt.CycleDay(time.Date(2024, 9, 16, 23, 0, 0, 0, time.Local))
	if !ok || days != 14 {
		t.Fatalf("CycleDay = %d,%v", days, ok)
	}
	if _, ok := Default().CycleDay(time.Now()); ok {
		t.Fatal("default timetable has no cycle start")
	}
}
