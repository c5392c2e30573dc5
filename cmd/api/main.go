// Command api is the scholarship deadline alert API server. It also runs the
// daily alert job in-process when ALERT_SCHEDULER_ENABLED is set.
//
// Usage:
//
//	deadline-alerts-api
//	API_PORT=8080 ALERT_RUN_AT=07:30 deadline-alerts-api

// @title Scholarship Deadline Alerts API
// @version 1.0.0
// @description Deadline alert preferences, the admin job trigger, personal scholarship matches and in-app notifications.
// @host localhost:5000
// @BasePath /api
// @schemes http https
// @contact.name Kerala Seva
// @license.name MIT
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/keralaseva/deadline-alerts/internal/api"
	"github.com/keralaseva/deadline-alerts/internal/auth"
	"github.com/keralaseva/deadline-alerts/internal/cache"
	"github.com/keralaseva/deadline-alerts/internal/config"
	"github.com/keralaseva/deadline-alerts/internal/db"
	"github.com/keralaseva/deadline-alerts/internal/lock"
	"github.com/keralaseva/deadline-alerts/internal/notifications"
	"github.com/keralaseva/deadline-alerts/internal/report"
	"github.com/keralaseva/deadline-alerts/internal/store"

	_ "github.com/keralaseva/deadline-alerts/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.SentryDSN != "" {
		flush, err := report.Init(cfg.SentryDSN, cfg.Environment)
		if err != nil {
			logger.Error("Failed to initialise Sentry", "error", err)
			os.Exit(1)
		}
		defer flush()
		logger.Info("Sentry error reporting enabled")
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	st := store.New(pool.Pool)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	runner := notifications.NewRunner(notifications.Deps{
		Users:         st,
		Preferences:   st,
		Matcher:       st,
		Notifications: st,
	}, notifications.Options{
		Workers:     cfg.AlertWorkers,
		JobTimeout:  cfg.AlertJobTimeout,
		CallTimeout: cfg.AlertCallTimeout,
		Location:    cfg.Location(),
	}, logger)

	var manual notifications.JobRunner = runner
	var scheduled notifications.JobRunner = runner

	// Claim each day's scheduled run in Redis when several replicas run
	if cfg.RedisURL != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		scheduled = notifications.Exclusive(runner, lock.NewRedis(rdb), cfg.AlertLockTTL, logger)
		logger.Info("Redis run lock enabled", "ttl", cfg.AlertLockTTL)
	}

	if cfg.SentryDSN != "" {
		manual = report.Runner(manual)
		scheduled = report.Runner(scheduled)
	}

	// Start the daily deadline alert job
	if cfg.AlertSchedulerEnabled {
		hour, minute, err := config.ParseClock(cfg.AlertRunAt)
		if err != nil {
			logger.Error("Invalid ALERT_RUN_AT", "error", err)
			os.Exit(1)
		}
		go notifications.StartDaily(ctx, scheduled, hour, minute, cfg.Location(), logger)
		logger.Info("Deadline alert scheduler started",
			"run_at", cfg.AlertRunAt,
			"timezone", cfg.Location().String(),
			"workers", cfg.AlertWorkers)
	} else {
		logger.Info("Deadline alert scheduler disabled (ALERT_SCHEDULER_ENABLED=false)")
	}

	if cfg.JWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET is not set; every authenticated request will be rejected")
	}

	// Create router
	router := api.NewRouter(api.Deps{
		Store:    st,
		DB:       pool,
		Admins:   st,
		Runner:   manual,
		Cache:    appCache,
		Verifier: auth.NewVerifier(cfg.JWTSecret, cfg.JWTAudience),
		Config:   cfg,
		Logger:   logger,
	})

	// Create HTTP server. WriteTimeout covers a manual run-job request.
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.AlertJobTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting deadline alerts API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
