package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Feed.MergeWindow)
	assert.Equal(t, 24*time.Hour, cfg.Feed.CacheTTL)
	assert.Equal(t, 5, cfg.Feed.BadgeThreshold)
	assert.Equal(t, 200, cfg.Feed.LiveFeedMax)
	assert.Equal(t, 50, cfg.Feed.PageSize)
	assert.Equal(t, []string{"groups", "rooms", "badges", "figure", "motto", "photos"}, cfg.Feed.SummaryOrder)
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	t.Setenv("FEED_FEED_PAGE_SIZE", "20")
	t.Setenv("FEED_LOG_LEVEL", "debug")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: console\n"), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Feed.PageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFrom_RejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestLoadFrom_MissingExplicitFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFrom_ShippedExample(t *testing.T) {
	cfg, err := LoadFrom("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Feed.MaxPhotoAge)
	assert.Equal(t, []string{"groups", "rooms", "badges", "figure", "motto", "photos"}, cfg.Feed.SummaryOrder)
	assert.Equal(t, "*/30 * * * *", cfg.Feed.SweepSchedule)
}
