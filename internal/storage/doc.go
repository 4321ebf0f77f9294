// Package storage persists the timetable document.
//
// The store deals in JSON bytes only; decoding into the timetable model is
// the caller's job. Two drivers exist:
//   - "file": a single JSON or YAML file, written atomically
//   - "sqlite": one row per save, newest wins, older revisions pruned
package storage
