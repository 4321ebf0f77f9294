package timetable

import "fmt"

// resolveDay copies template times into periods that reference one and
// checks every timed period ends after it begins. The input is not modified.
func resolveDay(day string, periods []Period, templates []TimeRange) ([]Period, error) {
	if len(periods) == 0 {
		return nil, nil
	}
	out := make([]Period, len(periods))
	for i, p := range periods {
		path := fmt.Sprintf("classes.%s[%d]", day, i)
		if err := resolvePeriod(&p, templates, path); err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func resolvePeriod(p *Period, templates []TimeRange, path string) error {
	if p.CycleIndex != nil && *p.CycleIndex < 0 {
		return configErr(path+".cycle_class_index", "must be >= 0", nil)
	}
	if p.TemplateIndex != nil {
		idx := *p.TemplateIndex
		if idx < 0 || idx >= len(templates) {
			return configErr(path+".time_duration_index",
				fmt.Sprintf("index %d out of range (%d templates)", idx, len(templates)), nil)
		}
		r := templates[idx]
		p.Times = &r
	} else if p.Times != nil {
		r := *p.Times
		p.Times = &r
	}

	if p.NoTimeSpan {
		return nil
	}
	if p.Times == nil {
		return configErr(path, "neither time_duration_index nor begin_time/end_time given", nil)
	}
	return nil
}
