// Package config loads classhud's application config (JSON or YAML) and
// republishes it on file changes.
package config
