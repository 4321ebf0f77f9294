package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts 5-field and 6-field (with seconds) specs plus descriptors.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NormalizeSpec turns a trigger setting into a cron spec.
//
// Supported forms:
//   - Cron: "0 0 0 * * *", "*/5 * * * *", "@daily", "@every 1s"
//   - Go duration: "1s", "500ms" (becomes "@every <d>")
func NormalizeSpec(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("schedule required")
	}
	if !strings.ContainsAny(s, " \t") && !strings.HasPrefix(s, "@") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return "", fmt.Errorf("invalid schedule %q (use cron like '0 0 0 * * *' or a duration like '1s')", raw)
		}
		if d <= 0 {
			return "", fmt.Errorf("interval must be > 0")
		}
		s = "@every " + d.String()
	}
	if _, err := parser.Parse(s); err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", raw, err)
	}
	return s, nil
}
