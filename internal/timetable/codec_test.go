package timetable

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleDoc = `{
  "time_duration_indexes": [
    {"begin_time": "08:00", "end_time": "08:45"},
    {"begin_time": "08:55", "end_time": "09:40"}
  ],
  "cycle_class_indexes": [[0, 1]],
  "cycle_class_count_start": "2024-09-02",
  "theme": {"accent": "#ff8800"},
  "classes": {
    "Monday": [
      {"classname": "Math", "time_duration_index": 0, "style": "bold"},
      {"classname": "Chinese", "begin_time": "08:55", "end_time": "09:40", "teacher": "Li"},
      {"classname": "Lunch", "no_time_duration": true, "custom_text": "12:00 ~"}
    ],
    "Tuesday": null,
    "Wednesday": [
      {"name": "History", "time_duration_index": 1}
    ]
  }
}`

func jsonEqual(t *testing.T, a, b []byte) {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		t.Fatalf("unmarshal a: %v\n%s", err, a)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		t.Fatalf("unmarshal b: %v\n%s", err, b)
	}
	if !reflect.DeepEqual(va, vb) {
		t.Fatalf("documents differ:\n got: %s\nwant: %s", b, a)
	}
}

func TestDecodeResolvesTemplates(t *testing.T) {
	t.Parallel()
	tt, err := Decode([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mon := tt.Day(time.Monday)
	if mon.Len() != 3 {
		t.Fatalf("Monday has %d periods", mon.Len())
	}
	math := mon.Period(0)
	if math.Times == nil || math.Times.String() != "08:00-08:45" {
		t.Fatalf("template not copied: %v", math.Times)
	}
	if math.Style == nil || *math.Style != "bold" {
		t.Fatalf("style = %v", math.Style)
	}
	if got := tt.Day(time.Wednesday).Period(0).DisplayName; got != "History" {
		t.Fatalf("legacy name = %q", got)
	}
	if tt.Day(time.Tuesday).Len() != 0 {
		t.Fatal("null day should be empty")
	}
	if start, ok := tt.CycleStart(); !ok || start.Format(dateLayout) != "2024-09-02" {
		t.Fatalf("cycle start = %v,%v", start, ok)
	}
	if g := tt.CycleGroups(); len(g) != 1 || len(g[0]) != 2 {
		t.Fatalf("cycle groups = %v", g)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	docs := []string{
		sampleDoc,
		`{}`,
		`{"classes": {}}`,
		`{"time_duration_indexes": [], "cycle_class_indexes": [], "classes": {"Sunday": []}}`,
	}
	for _, doc := range docs {
		tt, err := Decode([]byte(doc))
		if err != nil {
			t.Fatalf("Decode(%s): %v", doc, err)
		}
		out, err := Encode(tt)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		jsonEqual(t, []byte(doc), out)

		again, err := Decode(out)
		if err != nil {
			t.Fatalf("re-Decode: %v", err)
		}
		out2, err := Encode(again)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != string(out2) {
			t.Fatalf("encoding not stable:\n%s\n%s", out, out2)
		}
	}
}

func TestEncodeIndentsAndOrdersKeys(t *testing.T) {
	t.Parallel()
	tt, err := Decode([]byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(tt)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "{\n  \"time_duration_indexes\"") {
		t.Fatalf("unexpected head:\n%s", s)
	}
	if strings.Index(s, `"cycle_class_count_start"`) > strings.Index(s, `"classes"`) {
		t.Fatal("classes should follow the schema keys")
	}
	if !strings.HasSuffix(s, "}\n") {
		t.Fatal("missing trailing newline")
	}
}

func TestWithDayEncodesChangedDayOnly(t *testing.T) {
	t.Parallel()
	tt, err := Decode([]byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}
	mon := tt.Day(time.Monday).Periods()
	mon[1].DisplayName = "Literature"
	mon = mon[:2]

	next, err := tt.WithDay(time.Monday, mon)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(next)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Theme   map[string]string           `json:"theme"`
		Classes map[string][]map[string]any `json:"classes"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Theme["accent"] != "#ff8800" {
		t.Fatalf("unknown top-level field lost: %s", out)
	}
	got := doc.Classes["Monday"]
	if len(got) != 2 {
		t.Fatalf("Monday = %v", got)
	}
	if got[1]["classname"] != "Literature" || got[1]["teacher"] != "Li" {
		t.Fatalf("edited period = %v", got[1])
	}
	if got[0]["time_duration_index"] != float64(0) {
		t.Fatalf("unchanged period lost its template reference: %v", got[0])
	}
	if _, ok := doc.Classes["Tuesday"]; !ok {
		t.Fatal("null day dropped")
	}
	if !strings.Contains(string(out), `"Tuesday": null`) {
		t.Fatalf("null day not kept as null:\n%s", out)
	}
}

func TestEncodeBuiltTimetable(t *testing.T) {
	t.Parallel()
	out, err := Encode(Default())
	if err != nil {
		t.Fatal(err)
	}
	tt, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode(Encode(Default())): %v\n%s", err, out)
	}
	if tt.PeriodCount() != 0 {
		t.Fatalf("default has %d periods", tt.PeriodCount())
	}
	for _, key := range topOrder[:2] {
		if !strings.Contains(string(out), `"`+key+`"`) {
			t.Fatalf("missing %s in\n%s", key, out)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
		path string
		is   error
	}{
		{
			name: "template index out of range",
			doc:  `{"time_duration_indexes": [{"begin_time":"08:00","end_time":"08:45"},{"begin_time":"09:00","end_time":"09:45"}], "classes": {"Monday": [{"classname":"X","time_duration_index":2}]}}`,
			path: "classes.Monday[0].time_duration_index",
		},
		{
			name: "no time at all",
			doc:  `{"classes": {"Friday": [{"classname":"X"}]}}`,
			path: "classes.Friday[0]",
		},
		{
			name: "missing end time",
			doc:  `{"classes": {"Friday": [{"classname":"X","begin_time":"10:00"}]}}`,
			path: "classes.Friday[0].end_time",
		},
		{
			name: "bad clock",
			doc:  `{"time_duration_indexes": [{"begin_time":"8h","end_time":"09:00"}]}`,
			path: "time_duration_indexes[0].begin_time",
		},
		{
			name: "unknown weekday",
			doc:  `{"classes": {"Funday": []}}`,
			path: "classes.Funday",
			is:   ErrUnknownDay,
		},
		{
			name: "bad cycle start",
			doc:  `{"cycle_class_count_start": "02/09/2024"}`,
			path: "cycle_class_count_start",
		},
		{
			name: "not an object",
			doc:  `[1, 2]`,
		},
		{
			name: "trailing data",
			doc:  `{} {}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tt.doc))
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if ce.Path != tt.path {
				t.Fatalf("path = %q, want %q", ce.Path, tt.path)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestTemplateIndexZeroIsAReference(t *testing.T) {
	t.Parallel()
	tt, err := Decode([]byte(`{
		"time_duration_indexes": [{"begin_time":"07:30","end_time":"08:10"}],
		"classes": {"Monday": [{"classname":"Early","time_duration_index":0,"begin_time":"11:00","end_time":"12:00"}]}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := tt.Day(time.Monday).Period(0).Times.String(); got != "07:30-08:10" {
		t.Fatalf("times = %s, want template 0", got)
	}
}
