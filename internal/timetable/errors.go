package timetable

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented marks capabilities the model names but does not provide.
	ErrNotImplemented = errors.New("not implemented")

	// ErrCycleNotImplemented is returned for the name of a cyclic period.
	ErrCycleNotImplemented = fmt.Errorf("cyclic class names: %w", ErrNotImplemented)

	ErrUnknownDay = errors.New("unknown weekday")
)

// ConfigError reports an invalid timetable document or definition.
// It is produced once, at load (or WithDay) time, never per query.
type ConfigError struct {
	// Path locates the offending value, e.g. "classes.Monday[2].time_duration_index".
	Path string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	msg := "timetable"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(path, msg string, err error) error {
	return &ConfigError{Path: path, Msg: msg, Err: err}
}

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
