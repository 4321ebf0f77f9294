package storage

import (
	"encoding/json"

	"github.com/titanous/json5"

	"classhud/pkg/yamlx"
)

// fileFormat converts between the on-disk encoding and the JSON the rest of
// the program reads.
type fileFormat int

const (
	formatJSON fileFormat = iota
	formatYAML
)

func formatFor(path string) fileFormat {
	if yamlx.IsYAMLPath(path) {
		return formatYAML
	}
	return formatJSON
}

func (f fileFormat) String() string {
	if f == formatYAML {
		return "yaml"
	}
	return "json"
}

func (f fileFormat) toJSON(b []byte) ([]byte, error) {
	if f == formatYAML {
		return yamlx.ToJSON(b)
	}
	return relaxedJSON(b), nil
}

func (f fileFormat) fromJSON(doc []byte) ([]byte, error) {
	if f == formatYAML {
		return yamlx.FromJSON(doc)
	}
	return doc, nil
}

// relaxedJSON accepts hand-edited JSON5 (comments, trailing commas, single
// quotes, bare keys) and rewrites it as plain JSON. Bytes that are neither
// are returned unchanged so the timetable decoder reports where they break.
func relaxedJSON(b []byte) []byte {
	if json.Valid(b) {
		return b
	}
	var v any
	if err := json5.Unmarshal(b, &v); err != nil {
		return b
	}
	out, err := json.Marshal(v)
	if err != nil {
		return b
	}
	return out
}
