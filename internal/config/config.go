// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/alerts.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	LogLevel    slog.Level

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Auth provider
	JWTSecret   string
	JWTAudience string

	// Deadline alert job
	AlertRunAt            string // HH:MM local time
	AlertTimezone         string
	AlertSchedulerEnabled bool
	AlertWorkers          int
	AlertJobTimeout       time.Duration
	AlertCallTimeout      time.Duration

	// Run lock across replicas; disabled when RedisURL is empty.
	RedisURL     string
	AlertLockTTL time.Duration

	// Error reporting; disabled when SentryDSN is empty.
	SentryDSN string

	// Cache
	CacheEnabled  bool
	MatchCacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("SUPABASE_DB_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or SUPABASE_DB_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 5000)),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:5500",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		JWTSecret:   envOr("SUPABASE_JWT_SECRET", ""),
		JWTAudience: envOr("SUPABASE_JWT_AUDIENCE", "authenticated"),

		AlertRunAt:            envOr("ALERT_RUN_AT", "08:00"),
		AlertTimezone:         envOr("ALERT_TIMEZONE", "Asia/Kolkata"),
		AlertSchedulerEnabled: envBool("ALERT_SCHEDULER_ENABLED", true),
		AlertWorkers:          envInt("ALERT_WORKERS", 1),
		AlertJobTimeout:       envDuration("ALERT_JOB_TIMEOUT", 30*time.Minute),
		AlertCallTimeout:      envDuration("ALERT_CALL_TIMEOUT", 15*time.Second),

		RedisURL:     envOr("REDIS_URL", ""),
		AlertLockTTL: envDuration("ALERT_LOCK_TTL", 20*time.Hour),

		SentryDSN: envOr("SENTRY_DSN", ""),

		CacheEnabled:  envBool("CACHE_ENABLED", true),
		MatchCacheTTL: envDuration("MATCH_CACHE_TTL", 10*time.Minute),
	}

	if _, _, err := ParseClock(cfg.AlertRunAt); err != nil {
		return nil, fmt.Errorf("ALERT_RUN_AT: %w", err)
	}
	if cfg.AlertWorkers < 1 {
		cfg.AlertWorkers = 1
	}
	return cfg, nil
}

// Location resolves AlertTimezone, falling back to UTC for unknown zones.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AlertTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s", "15m").
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
