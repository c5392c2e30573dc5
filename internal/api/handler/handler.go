// Package handler provides HTTP handlers for all API endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/keralaseva/deadline-alerts/internal/api/respond"
	"github.com/keralaseva/deadline-alerts/internal/cache"
	"github.com/keralaseva/deadline-alerts/internal/config"
	"github.com/keralaseva/deadline-alerts/internal/notifications"
	"github.com/keralaseva/deadline-alerts/internal/store"
)

// Store is the data access the handlers need. *store.Store implements it.
type Store interface {
	GetPreference(ctx context.Context, userID string) (notifications.Preference, error)
	UpsertPreference(ctx context.Context, p notifications.Preference) error
	Match(ctx context.Context, userID string) ([]notifications.Match, error)
	ListNotifications(ctx context.Context, userID string) ([]store.UserNotification, error)
	MarkNotificationRead(ctx context.Context, userID string, id int64) error
}

// HealthChecker reports database reachability. *db.Pool implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store  Store
	db     HealthChecker
	runner notifications.JobRunner
	cache  *cache.Cache
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(st Store, db HealthChecker, runner notifications.JobRunner, c *cache.Cache, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  st,
		db:     db,
		runner: runner,
		cache:  c,
		cfg:    cfg,
		logger: logger,
	}
}

// Root serves API info at /. It and the /health routes sit outside the
// documented /api base path.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Scholarship Deadline Alerts API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
