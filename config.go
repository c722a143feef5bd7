package authn

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied by Config.Validate for any knob left at its zero value.
const (
	DefaultAccessTTL   = 15 * time.Minute
	DefaultRefreshTTL  = 7 * 24 * time.Hour
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
	DefaultLockPeriod  = 15 * time.Minute
	DefaultMaxSessions = 5
)

// Config carries every tunable of the subsystem. Construct it once at process
// start and validate eagerly: a missing secret or malformed TTL is a fatal
// configuration error, not a runtime auth failure.
type Config struct {
	AccessSecret  string
	RefreshSecret string

	// TTL patterns accept "<integer><unit>" with unit in s, m, h, d
	// (e.g. "15m", "7d") as well as Go duration strings.
	AccessTTL  string
	RefreshTTL string

	Issuer string

	MaxLoginAttempts   int
	AttemptWindow      time.Duration
	LockDuration       time.Duration
	MaxSessionsPerUser int
}

// Validate checks required fields and fills zero-value knobs with defaults.
func (c *Config) Validate() error {
	if c == nil {
		return configError("config must not be nil")
	}

	if c.AccessSecret == "" {
		return configError("access token secret is required")
	}

	if c.RefreshSecret == "" {
		return configError("refresh token secret is required")
	}

	if c.AccessTTL != "" {
		if _, err := ParseTTL(c.AccessTTL); err != nil {
			return configError("access token TTL is not a valid duration: " + c.AccessTTL)
		}
	}

	if c.RefreshTTL != "" {
		if _, err := ParseTTL(c.RefreshTTL); err != nil {
			return configError("refresh token TTL is not a valid duration: " + c.RefreshTTL)
		}
	}

	if c.MaxLoginAttempts == 0 {
		c.MaxLoginAttempts = DefaultMaxAttempts
	}

	if c.AttemptWindow == 0 {
		c.AttemptWindow = DefaultWindow
	}

	if c.LockDuration == 0 {
		c.LockDuration = DefaultLockPeriod
	}

	if c.MaxSessionsPerUser == 0 {
		c.MaxSessionsPerUser = DefaultMaxSessions
	}

	return nil
}

// AccessDuration returns the parsed access token TTL.
func (c *Config) AccessDuration() time.Duration {
	return ttlOrDefault(c.AccessTTL, DefaultAccessTTL)
}

// RefreshDuration returns the parsed refresh token TTL.
func (c *Config) RefreshDuration() time.Duration {
	return ttlOrDefault(c.RefreshTTL, DefaultRefreshTTL)
}

// NewConfigFromEnv builds a Config from environment variables, loading a .env
// file first when one is present. Call Validate on the result before use.
func NewConfigFromEnv() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTL:     os.Getenv("JWT_ACCESS_TTL"),
		RefreshTTL:    os.Getenv("JWT_REFRESH_TTL"),
		Issuer:        os.Getenv("AUTH_ISSUER"),
	}

	if v := os.Getenv("AUTH_MAX_LOGIN_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxLoginAttempts = n
		}
	}

	if v := os.Getenv("AUTH_ATTEMPT_WINDOW"); v != "" {
		if d, err := ParseTTL(v); err == nil {
			cfg.AttemptWindow = d
		}
	}

	if v := os.Getenv("AUTH_LOCK_DURATION"); v != "" {
		if d, err := ParseTTL(v); err == nil {
			cfg.LockDuration = d
		}
	}

	if v := os.Getenv("AUTH_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSessionsPerUser = n
		}
	}

	return cfg
}

// ParseTTL converts a "<integer><unit>" pattern (unit: s, m, h, d) to a
// duration. Anything else is handed to time.ParseDuration.
func ParseTTL(pattern string) (time.Duration, error) {
	pattern = strings.TrimSpace(pattern)

	if len(pattern) > 1 {
		unit := pattern[len(pattern)-1]
		if value, err := strconv.Atoi(pattern[:len(pattern)-1]); err == nil {
			switch unit {
			case 's':
				return time.Duration(value) * time.Second, nil
			case 'm':
				return time.Duration(value) * time.Minute, nil
			case 'h':
				return time.Duration(value) * time.Hour, nil
			case 'd':
				return time.Duration(value) * 24 * time.Hour, nil
			}
		}
	}

	return time.ParseDuration(pattern)
}

func ttlOrDefault(pattern string, def time.Duration) time.Duration {
	if pattern == "" {
		return def
	}

	d, err := ParseTTL(pattern)
	if err != nil {
		return def
	}

	return d
}
