// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadmind/dm-concierge/internal/middleware"
	"github.com/threadmind/dm-concierge/pkg/logger"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	JWTSecret          string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	CORSAllowedOrigins []string
	StaticDir          string
}

// Handlers groups the endpoint handlers mounted by NewRouter. Poller may be
// nil, in which case run-once is not exposed.
type Handlers struct {
	Health    *HealthHandler
	Logs      *LogHandler
	Prompt    *PromptHandler
	Messages  *MessageHandler
	Templates *TemplateHandler
	Targets   *TargetHandler
	Tags      *TagHandler
	Poller    *PollerHandler
}

// NewRouter builds the API router.
func NewRouter(h Handlers, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	authEnabled := cfg.JWTSecret != ""

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Get("/ping", Ping)
		r.Get("/intents", Intents)
		r.Get("/logs", h.Logs.List)
		r.Get("/stats", h.Logs.Stats)

		r.Get("/prompt", h.Prompt.Get)
		r.Post("/prompt", h.Prompt.Set)

		r.Post("/process_messages", h.Messages.Process)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.Templates.List)
			r.Post("/", h.Templates.Create)
			r.Put("/{id}", h.Templates.Update)
			r.Delete("/{id}", h.Templates.Delete)
		})

		r.Route("/targets", func(r chi.Router) {
			r.Get("/", h.Targets.List)
			r.Post("/", h.Targets.Add)
			r.Delete("/{username}", h.Targets.Remove)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.Tags.List)
			r.Post("/", h.Tags.Add)
			r.Delete("/{tag}", h.Tags.Remove)
		})

		if h.Poller != nil {
			r.With(middleware.RequireScope(authEnabled, middleware.ScopeRunPoller)).
				Post("/poller/run-once", h.Poller.RunOnce)
		}
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
