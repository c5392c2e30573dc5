package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/keralaseva/deadline-alerts/internal/api/handler"
	"github.com/keralaseva/deadline-alerts/internal/cache"
	"github.com/keralaseva/deadline-alerts/internal/config"
	"github.com/keralaseva/deadline-alerts/internal/db"
	"github.com/keralaseva/deadline-alerts/internal/notifications"
	"github.com/keralaseva/deadline-alerts/internal/report"
)

// Deps are the collaborators the router wires into handlers and middleware.
type Deps struct {
	Store    handler.Store
	DB       handler.HealthChecker
	Admins   AdminChecker
	Runner   notifications.JobRunner
	Cache    *cache.Cache
	Verifier TokenVerifier
	Config   *config.Config
	Logger   *slog.Logger
}

var _ handler.HealthChecker = (*db.Pool)(nil)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(d Deps) *chi.Mux {
	cfg := d.Config
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.SentryDSN != "" {
		r.Use(report.Middleware())
	}
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(d.Store, d.DB, d.Runner, d.Cache, cfg, d.Logger)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(d.Verifier))

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/preferences", h.GetPreferences)
				r.Put("/preferences", h.SetPreferences)
				r.With(RequireAdmin(d.Admins, d.Logger)).Post("/run-job", h.RunJob)
			})

			r.Route("/scholarships", func(r chi.Router) {
				r.Get("/matching", h.GetMatching)
				r.Get("/notifications", h.GetNotifications)
				r.Put("/notifications/{id}/read", h.MarkNotificationRead)
			})
		})
	})

	return r
}
