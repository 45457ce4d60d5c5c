package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.FeedTimeout())
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, 7*24*time.Hour, cfg.RetentionWindow())
	assert.Equal(t, 24*time.Hour, cfg.SweepInterval())
	assert.Equal(t, 5000*time.Millisecond, cfg.DedupWindow())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  addr: ":9090"
feed:
  url: "https://alerts.example/feed"
  timeout_seconds: 3
poll:
  interval_seconds: 30
dedup:
  window_millis: 2500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://alerts.example/feed", cfg.Feed.URL)
	assert.Equal(t, 3*time.Second, cfg.FeedTimeout())
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Equal(t, 2500*time.Millisecond, cfg.DedupWindow())
	// Unset keys keep their defaults.
	assert.Equal(t, 7*24*time.Hour, cfg.RetentionWindow())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ALERTD_SERVER_ADDR", ":7070")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}
