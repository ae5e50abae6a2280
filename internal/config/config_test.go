package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: Asia/Seoul
max_events_per_cell: -1
expand_recurrence: true
api:
  url: https://admin.example.com/api/schedules
ics:
  - id: holidays
    url: https://example.com/holidays.ics
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, defaultCellLimit, cfg.MaxEventsPerCell)
	assert.True(t, cfg.ExpandRecurrence)
	assert.Equal(t, "https://admin.example.com/api/schedules", cfg.API.URL)
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "holidays", cfg.ICS[0].ID)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultSnapWidth, cfg.Snapshot.Width)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestResolvers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Locale = "de"
	assert.Equal(t, "de", cfg.Language().String())
	cfg.Locale = "!!"
	assert.Equal(t, "en", cfg.Language().String())

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	from, to := cfg.Window(now)
	assert.Equal(t, now.AddDate(0, 0, -defaultBackfillDays), from)
	assert.Equal(t, now.AddDate(0, 0, defaultHorizonDays), to)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, DefaultConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { got <- c }) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9999"
	require.NoError(t, Save(path, cfg))

	select {
	case c := <-got:
		assert.Equal(t, "0.0.0.0:9999", c.Listen)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}

	cancel()
	require.NoError(t, <-done)
}
