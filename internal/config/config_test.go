package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "chronicle.db", cfg.DBPath)
	assert.Equal(t, 10000, cfg.MaxSnapshots)
	assert.Equal(t, 0, cfg.MaxEvents)
	assert.Equal(t, 30*time.Second, cfg.QueryDeadline)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHRONICLE_DB", "/var/lib/chronicle/facts.db")
	t.Setenv("CHRONICLE_MAX_SNAPSHOTS", "500")
	t.Setenv("CHRONICLE_MAX_EVENTS", "100000")
	t.Setenv("CHRONICLE_QUERY_DEADLINE", "2m")
	t.Setenv("CHRONICLE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/chronicle/facts.db", cfg.DBPath)
	assert.Equal(t, 500, cfg.MaxSnapshots)
	assert.Equal(t, 100000, cfg.MaxEvents)
	assert.Equal(t, 2*time.Minute, cfg.QueryDeadline)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("CHRONICLE_QUERY_DEADLINE", "soon")

	_, err := Load()
	assert.Error(t, err)
}
