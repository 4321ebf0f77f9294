package app

import (
	"context"

	"classhud/internal/config"
	"classhud/internal/schedule"
	"classhud/internal/storage"
	logx "classhud/pkg/logx"
)

// LoadConfig reads and validates the config at path without starting
// anything. A missing file yields the defaults.
func LoadConfig(path string) (*config.Config, error) {
	m := config.NewManager(path)
	m.SetValidator(func(_ context.Context, cfg *config.Config) error { return Validate(cfg) })
	return m.Load(context.Background())
}

// OpenSchedule opens the configured store and wraps it in a schedule
// manager. The timetable is not loaded yet. The returned func closes the
// store.
func OpenSchedule(cfg *config.Config, log logx.Logger) (*schedule.Manager, func() error, error) {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(sc, log)
	if err != nil {
		return nil, nil, err
	}
	return schedule.New(store, nil, log), store.Close, nil
}
