package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(1, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow("key-a"))
	}
	err := l.Allow("key-a")
	require.Error(t, err)
	require.True(t, gwerrors.IsRateLimitedError(err))
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(1, 1)
	require.NoError(t, l.Allow("key-a"))
	require.NoError(t, l.Allow("key-b"), "separate key must have its own bucket")
	require.Error(t, l.Allow("key-a"))
}

func TestAllowDisabledWhenRPSNonPositive(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Allow("key-a"))
	}
}
