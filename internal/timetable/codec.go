package timetable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"
)

// Persisted document keys.
const (
	KeyTemplates   = "time_duration_indexes"
	KeyCycleGroups = "cycle_class_indexes"
	KeyCycleStart  = "cycle_class_count_start"
	KeyClasses     = "classes"
)

const dateLayout = "2006-01-02"

var topOrder = []string{KeyTemplates, KeyCycleGroups, KeyCycleStart, KeyClasses}

var periodOrder = []string{
	"classname", "name", "cycle", "cycle_class_index", "no_time_duration",
	"custom_text", "time_duration_index", "begin_time", "end_time", "style",
}

type templateDoc struct {
	BeginTime *string `json:"begin_time"`
	EndTime   *string `json:"end_time"`
}

type periodDoc struct {
	Classname         *string `json:"classname"`
	Name              *string `json:"name"` // legacy key
	Cycle             *bool   `json:"cycle"`
	CycleClassIndex   *int    `json:"cycle_class_index"`
	NoTimeDuration    *bool   `json:"no_time_duration"`
	CustomText        *string `json:"custom_text"`
	Style             *string `json:"style"`
	TimeDurationIndex *int    `json:"time_duration_index"`
	BeginTime         *string `json:"begin_time"`
	EndTime           *string `json:"end_time"`
}

// Decode parses a persisted timetable document. Template references are
// resolved here; every problem is reported as a *ConfigError.
//
// Fields the model does not interpret are kept and written back by Encode.
func Decode(b []byte) (*Timetable, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, configErr("", "malformed document", err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, configErr("", "malformed document", errors.New("trailing data"))
	}
	if top == nil {
		return nil, configErr("", "malformed document", errors.New("document is not an object"))
	}

	t := &Timetable{raw: top}

	if v, ok := top[KeyTemplates]; ok && !isNull(v) {
		var docs []json.RawMessage
		if err := json.Unmarshal(v, &docs); err != nil {
			return nil, configErr(KeyTemplates, "expected a list", err)
		}
		for i, d := range docs {
			path := fmt.Sprintf("%s[%d]", KeyTemplates, i)
			var td templateDoc
			if err := json.Unmarshal(d, &td); err != nil {
				return nil, configErr(path, "expected an object", err)
			}
			r, err := parseRange(path, td.BeginTime, td.EndTime)
			if err != nil {
				return nil, err
			}
			t.templates = append(t.templates, r)
		}
	}

	if v, ok := top[KeyCycleGroups]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &t.cycleGroups); err != nil {
			return nil, configErr(KeyCycleGroups, "expected a list of integer lists", err)
		}
	}

	if v, ok := top[KeyCycleStart]; ok && !isNull(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, configErr(KeyCycleStart, "expected a YYYY-MM-DD string", err)
		}
		if s != "" {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				return nil, configErr(KeyCycleStart, "expected a YYYY-MM-DD string", err)
			}
			t.cycleStart, t.hasCycle = d, true
		}
	}

	if v, ok := top[KeyClasses]; ok {
		t.hasClasses = true
		if !isNull(v) {
			if err := t.decodeClasses(v); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (t *Timetable) decodeClasses(v json.RawMessage) error {
	var byName map[string]json.RawMessage
	if err := json.Unmarshal(v, &byName); err != nil {
		return configErr(KeyClasses, "expected an object keyed by weekday", err)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d, ok := ParseWeekday(name)
		if !ok {
			return configErr(KeyClasses+"."+name, "", ErrUnknownDay)
		}
		t.present[d] = true
		raw := byName[name]
		if isNull(raw) {
			t.nullDay[d] = true
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return configErr(KeyClasses+"."+name, "expected a list", err)
		}
		periods := make([]Period, 0, len(items))
		for i, item := range items {
			p, err := decodePeriod(fmt.Sprintf("%s.%s[%d]", KeyClasses, name, i), item, t.templates)
			if err != nil {
				return err
			}
			periods = append(periods, p)
		}
		t.days[d] = periods
	}
	return nil
}

func decodePeriod(path string, raw json.RawMessage, templates []TimeRange) (Period, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Period{}, configErr(path, "expected an object", err)
	}
	var pd periodDoc
	if err := json.Unmarshal(raw, &pd); err != nil {
		return Period{}, configErr(path, "", err)
	}

	p := Period{
		IsCyclic:      deref(pd.Cycle),
		CycleIndex:    pd.CycleClassIndex,
		NoTimeSpan:    deref(pd.NoTimeDuration),
		CustomLabel:   deref(pd.CustomText),
		TemplateIndex: pd.TimeDurationIndex,
		Style:         pd.Style,
		raw:           obj,
	}
	switch {
	case pd.Classname != nil:
		p.DisplayName = *pd.Classname
	case pd.Name != nil:
		p.DisplayName = *pd.Name
	}
	if p.TemplateIndex == nil && (pd.BeginTime != nil || pd.EndTime != nil) {
		r, err := parseRange(path, pd.BeginTime, pd.EndTime)
		if err != nil {
			return Period{}, err
		}
		p.Times = &r
	}

	if err := resolvePeriod(&p, templates, path); err != nil {
		return Period{}, err
	}
	p.origin = p.signature()
	return p, nil
}

func parseRange(path string, begin, end *string) (TimeRange, error) {
	if begin == nil {
		return TimeRange{}, configErr(path+".begin_time", "missing", nil)
	}
	if end == nil {
		return TimeRange{}, configErr(path+".end_time", "missing", nil)
	}
	b, err := ParseClock(*begin)
	if err != nil {
		return TimeRange{}, configErr(path+".begin_time", "", err)
	}
	e, err := ParseClock(*end)
	if err != nil {
		return TimeRange{}, configErr(path+".end_time", "", err)
	}
	return TimeRange{Begin: b, End: e}, nil
}

// Encode writes t back in the persisted schema, indented with two spaces.
//
// Values decoded from a document are written back as they were, including
// fields the model ignores. Days replaced through WithDay are re-encoded
// from their periods; unchanged periods inside them keep their raw form.
func Encode(t *Timetable) ([]byte, error) {
	top := make(map[string]json.RawMessage, len(t.raw)+len(topOrder))
	for k, v := range t.raw {
		top[k] = v
	}

	// Built in code rather than decoded: emit the full schema.
	if t.raw == nil {
		docs := make([]templateDoc, len(t.templates))
		for i, r := range t.templates {
			b, e := r.Begin.String(), r.End.String()
			docs[i] = templateDoc{BeginTime: &b, EndTime: &e}
		}
		top[KeyTemplates] = mustMarshal(docs)
		groups := t.cycleGroups
		if groups == nil {
			groups = [][]int{}
		}
		top[KeyCycleGroups] = mustMarshal(groups)
		if t.hasCycle {
			top[KeyCycleStart] = mustMarshal(t.cycleStart.Format(dateLayout))
		}
	}

	if t.hasClasses {
		classes, err := t.encodeClasses()
		if err != nil {
			return nil, err
		}
		top[KeyClasses] = classes
	}

	compact := orderedObject(orderedKeys(top, topOrder), top)
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func (t *Timetable) encodeClasses() (json.RawMessage, error) {
	var (
		keys []string
		vals = map[string]json.RawMessage{}
	)
	for _, d := range WeekOrder {
		if !t.present[d] && len(t.days[d]) == 0 {
			continue
		}
		name := WeekdayName(d)
		keys = append(keys, name)
		if t.nullDay[d] {
			vals[name] = json.RawMessage("null")
			continue
		}
		items := make([]json.RawMessage, 0, len(t.days[d]))
		for _, p := range t.days[d] {
			items = append(items, encodePeriod(p))
		}
		b, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		vals[name] = b
	}
	return orderedObject(keys, vals), nil
}

func encodePeriod(p Period) json.RawMessage {
	if p.raw != nil && p.signature() == p.origin {
		return orderedObject(orderedKeys(p.raw, periodOrder), p.raw)
	}

	obj := make(map[string]json.RawMessage, len(p.raw)+8)
	for k, v := range p.raw {
		obj[k] = v
	}

	nameKey := "classname"
	if _, ok := obj["classname"]; !ok {
		if _, legacy := obj["name"]; legacy {
			nameKey = "name"
		}
	}
	obj[nameKey] = mustMarshal(p.DisplayName)
	setFlag(obj, "cycle", p.IsCyclic)
	setFlag(obj, "no_time_duration", p.NoTimeSpan)
	setOrDelete(obj, "cycle_class_index", p.CycleIndex != nil, func() any { return *p.CycleIndex })
	setOrDelete(obj, "custom_text", p.CustomLabel != "", func() any { return p.CustomLabel })
	setOrDelete(obj, "style", p.Style != nil, func() any { return *p.Style })

	switch {
	case p.TemplateIndex != nil:
		obj["time_duration_index"] = mustMarshal(*p.TemplateIndex)
		delete(obj, "begin_time")
		delete(obj, "end_time")
	case p.Times != nil:
		obj["begin_time"] = mustMarshal(p.Times.Begin.String())
		obj["end_time"] = mustMarshal(p.Times.End.String())
		delete(obj, "time_duration_index")
	default:
		delete(obj, "time_duration_index")
		delete(obj, "begin_time")
		delete(obj, "end_time")
	}
	return orderedObject(orderedKeys(obj, periodOrder), obj)
}

// setFlag writes a bool when it is true or the key was already persisted.
func setFlag(obj map[string]json.RawMessage, key string, v bool) {
	if _, ok := obj[key]; ok || v {
		obj[key] = mustMarshal(v)
	}
}

func setOrDelete(obj map[string]json.RawMessage, key string, set bool, v func() any) {
	if !set {
		delete(obj, key)
		return
	}
	obj[key] = mustMarshal(v())
}

// orderedKeys lists preferred keys present in m first, then the rest sorted.
func orderedKeys(m map[string]json.RawMessage, preferred []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(preferred))
	for _, k := range preferred {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = struct{}{}
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func orderedObject(keys []string, vals map[string]json.RawMessage) json.RawMessage {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(mustMarshal(k))
		b.WriteByte(':')
		v := vals[k]
		if len(bytes.TrimSpace(v)) == 0 {
			v = json.RawMessage("null")
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes()
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
