package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "3000", cfg.Port)
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, 3_600_000*time.Millisecond, cfg.TotalTimeout)
	require.Equal(t, 300_000*time.Millisecond, cfg.InactivityTimeout)
	require.Equal(t, 5_000*time.Millisecond, cfg.KillGrace)
	require.False(t, cfg.AuthEnabled())
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CLAUDE_TOTAL_TIMEOUT_MS", "1000")
	t.Setenv("API_KEYS", "a, b ,c")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, time.Second, cfg.TotalTimeout)
	require.Equal(t, []string{"a", "b", "c"}, cfg.APIKeys)
	require.True(t, cfg.AuthEnabled())
}

func TestLoadInvalidNumber(t *testing.T) {
	t.Setenv("CLAUDE_TOTAL_TIMEOUT_MS", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}
