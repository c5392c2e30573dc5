package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/alerts")
	for _, key := range []string{"API_PORT", "PORT", "ALERT_RUN_AT", "ALERT_TIMEZONE",
		"ALERT_SCHEDULER_ENABLED", "ALERT_WORKERS", "ALERT_JOB_TIMEOUT", "LOG_LEVEL", "SUPABASE_JWT_AUDIENCE",
		"REDIS_URL", "ALERT_LOCK_TTL", "SENTRY_DSN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.APIPort)
	assert.Equal(t, "08:00", cfg.AlertRunAt)
	assert.Equal(t, "Asia/Kolkata", cfg.AlertTimezone)
	assert.True(t, cfg.AlertSchedulerEnabled)
	assert.Equal(t, 1, cfg.AlertWorkers)
	assert.Equal(t, 30*time.Minute, cfg.AlertJobTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "authenticated", cfg.JWTAudience)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 20*time.Hour, cfg.AlertLockTTL)
	assert.Empty(t, cfg.SentryDSN)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUPABASE_DB_URL", "postgres://supabase/postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "9090")
	t.Setenv("ALERT_RUN_AT", "06:30")
	t.Setenv("ALERT_WORKERS", "0")
	t.Setenv("ALERT_CALL_TIMEOUT", "5s")
	t.Setenv("ALERT_SCHEDULER_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://supabase/postgres", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "06:30", cfg.AlertRunAt)
	assert.Equal(t, 1, cfg.AlertWorkers)
	assert.Equal(t, 5*time.Second, cfg.AlertCallTimeout)
	assert.False(t, cfg.AlertSchedulerEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoad_RejectsBadRunAt(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/alerts")
	t.Setenv("ALERT_RUN_AT", "8am")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("08:00")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 0, m)

	h, m, err = ParseClock(" 23:45 ")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseClock("24:00")
	assert.Error(t, err)
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{AlertTimezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
}
