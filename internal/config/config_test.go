package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "classhud.json"))
	cfg, err := m.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !m.Missing() {
		t.Fatal("Missing should be true")
	}
	if cfg.HUD.Title != "课程表" || cfg.HUD.Info != "%Y/%m/%d %a %H:%M" {
		t.Fatalf("hud defaults = %+v", cfg.HUD)
	}
	if m.Get() != cfg {
		t.Fatal("Load should commit")
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name, file, body string
	}{
		{"json", "classhud.json", `{"hud": {"title": "Timetable"}, "timetable": {"watch": false}}`},
		{"yaml", "classhud.yaml", "hud:\n  title: Timetable\ntimetable:\n  watch: false\n"},
	}
	for _, tt := range tests {
		cfg, err := NewManager(writeFile(t, dir, tt.file, tt.body)).Parse()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if cfg.HUD.Title != "Timetable" {
			t.Fatalf("%s: title = %q", tt.name, cfg.HUD.Title)
		}
		if cfg.HUD.Refresh != "1s" || cfg.Timetable.Driver != "file" {
			t.Fatalf("%s: defaults lost: %+v %+v", tt.name, cfg.HUD, cfg.Timetable)
		}
		if cfg.Timetable.Watch {
			t.Fatalf("%s: explicit false ignored", tt.name)
		}
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"unknown.json":  `{"hud": {"colour": "red"}}`,
		"trailing.json": `{} {}`,
		"broken.yaml":   "hud: [",
	} {
		if _, err := NewManager(writeFile(t, dir, name, body)).Parse(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadRunsValidator(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "c.json", `{}`)
	m := NewManager(p)
	boom := errors.New("boom")
	m.SetValidator(func(context.Context, *Config) error { return boom })
	if _, err := m.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if m.Get() != nil {
		t.Fatal("rejected config was committed")
	}
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := writeFile(t, t.TempDir(), "c.json", `{"hud": {"bar_width": 10}}`)
	m := NewManager(p)
	if _, err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	if changed, err := m.Reload(ctx); err != nil || changed {
		t.Fatalf("unchanged reload = %v, %v", changed, err)
	}

	writeFile(t, filepath.Dir(p), "c.json", `{"hud": {"bar_width": 30}}`)
	if changed, err := m.Reload(ctx); err != nil || !changed {
		t.Fatalf("changed reload = %v, %v", changed, err)
	}
	writeFile(t, filepath.Dir(p), "c.json", `{"hud": {"bar_width": 40}}`)
	if _, err := m.Reload(ctx); err != nil {
		t.Fatal(err)
	}

	// The buffer holds one item: the newest replaces the older one.
	select {
	case cfg := <-ch:
		if cfg.HUD.BarWidth != 40 {
			t.Fatalf("bar_width = %d, want newest", cfg.HUD.BarWidth)
		}
	default:
		t.Fatal("nothing published")
	}

	writeFile(t, filepath.Dir(p), "c.json", `{"hud": `)
	if _, err := m.Reload(ctx); err == nil {
		t.Fatal("expected parse error")
	}
	if m.Get().HUD.BarWidth != 40 {
		t.Fatal("broken file replaced the committed config")
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"classhud.json", "conf/classhud.yaml"} {
		p := filepath.Join(t.TempDir(), name)
		m := NewManager(p)
		if err := m.WriteDefault(false); err != nil {
			t.Fatal(err)
		}
		if err := m.WriteDefault(false); err == nil {
			t.Fatalf("%s: second write should refuse to overwrite", name)
		}
		if err := m.WriteDefault(true); err != nil {
			t.Fatal(err)
		}
		cfg, err := m.Parse()
		if err != nil {
			t.Fatalf("%s: written defaults do not parse: %v", name, err)
		}
		if *cfg != *Default() {
			t.Fatalf("%s: round trip differs", name)
		}
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := Default()
	newCfg := Default()
	newCfg.Telegram.Token = "123:secret"
	newCfg.HUD.BarWidth = 40

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if !slices.Equal(changed, []string{"hud", "telegram"}) {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if c, _ := SummarizeConfigChange(oldCfg, Default()); len(c) != 0 {
		t.Fatalf("identical configs reported %v", c)
	}
}

func TestDurations(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationOrDefault("hud.refresh", "", time.Second); err != nil || d != time.Second {
		t.Fatalf("default = %v, %v", d, err)
	}
	if d, err := ParseDurationField("announce.lead", "5m"); err != nil || d != 5*time.Minute {
		t.Fatalf("5m = %v, %v", d, err)
	}
	if _, err := ParseDurationField("announce.lead", "-1s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if _, err := ParseDurationField("announce.lead", "soon"); err == nil || !strings.Contains(err.Error(), "announce.lead") {
		t.Fatalf("err = %v", err)
	}
	if loc, err := ParseLocation("tracker.timezone", ""); err != nil || loc != time.Local {
		t.Fatalf("empty zone = %v, %v", loc, err)
	}
	if _, err := ParseLocation("tracker.timezone", "Mars/Olympus"); err == nil {
		t.Fatal("bogus zone accepted")
	}
}
