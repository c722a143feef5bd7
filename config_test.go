package authn_test

import (
	"testing"
	"time"

	authn "github.com/helioslabs/go-authn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("missing access secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessSecret = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, authn.IsConfigError(err))
	})

	t.Run("missing refresh secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefreshSecret = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, authn.IsConfigError(err))
	})

	t.Run("malformed TTL is a config error", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefreshTTL = "soon"
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, authn.IsConfigError(err))
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg := testConfig()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, authn.DefaultMaxAttempts, cfg.MaxLoginAttempts)
		assert.Equal(t, authn.DefaultWindow, cfg.AttemptWindow)
		assert.Equal(t, authn.DefaultLockPeriod, cfg.LockDuration)
		assert.Equal(t, authn.DefaultMaxSessions, cfg.MaxSessionsPerUser)
	})

	t.Run("empty TTLs fall back to defaults", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessTTL = ""
		cfg.RefreshTTL = ""
		require.NoError(t, cfg.Validate())
		assert.Equal(t, authn.DefaultAccessTTL, cfg.AccessDuration())
		assert.Equal(t, authn.DefaultRefreshTTL, cfg.RefreshDuration())
	})
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		pattern  string
		expected time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"12h", 12 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"100ms", 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			d, err := authn.ParseTTL(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := authn.ParseTTL("never")
		assert.Error(t, err)
	})
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "env-access")
	t.Setenv("JWT_REFRESH_SECRET", "env-refresh")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("JWT_REFRESH_TTL", "30d")
	t.Setenv("AUTH_MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("AUTH_LOCK_DURATION", "1h")

	cfg := authn.NewConfigFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-access", cfg.AccessSecret)
	assert.Equal(t, "env-refresh", cfg.RefreshSecret)
	assert.Equal(t, 5*time.Minute, cfg.AccessDuration())
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshDuration())
	assert.Equal(t, 3, cfg.MaxLoginAttempts)
	assert.Equal(t, time.Hour, cfg.LockDuration)
}
