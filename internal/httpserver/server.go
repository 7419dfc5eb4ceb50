package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wisbric/catalogcore/internal/config"
	"github.com/wisbric/catalogcore/pkg/cachekv"
)

// Per-IP request ceilings: addon protocol traffic is read-only and
// expected to be high-volume, configuration/auth routes are deliberately
// tighter, and the global limit is a last-resort ceiling across both.
const (
	globalRateLimit = 300
	addonRateLimit  = 1000
	authRateLimit   = 60
)

// Server holds the HTTP server dependencies shared across every mounted
// route group.
type Server struct {
	Router *chi.Mux

	// AddonRouter and APIRouter are sub-routers pre-wrapped with the
	// addon and configuration-API rate limits respectively. Domain
	// packages mount their routes on whichever applies via their own
	// Mount(chi.Router) method.
	AddonRouter chi.Router
	APIRouter   chi.Router

	Logger    *slog.Logger
	Metrics   *prometheus.Registry
	startedAt time.Time
}

// NewServer creates an HTTP server with ambient middleware, health/ready/
// metrics endpoints, and per-route-group rate limiting backed by kvBackend
// (the same C1 store the cache façade uses, dogfooded as a counter store).
func NewServer(cfg *config.Config, logger *slog.Logger, metricsReg *prometheus.Registry, kvBackend cachekv.Backend) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	globalLimiter := NewRateLimiter(kvBackend, "ratelimit:global", globalRateLimit, time.Minute)
	s.Router.Use(globalLimiter.Middleware)

	s.Router.Get("/health", s.handleHealthz)
	s.Router.Get("/ready", s.handleReadyz)
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	s.Router.Group(func(r chi.Router) {
		r.Use(NewRateLimiter(kvBackend, "ratelimit:addon", addonRateLimit, time.Minute).Middleware)
		s.AddonRouter = r
	})

	s.Router.Group(func(r chi.Router) {
		r.Use(NewRateLimiter(kvBackend, "ratelimit:api", authRateLimit, time.Minute).Middleware)
		s.APIRouter = r
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports readiness unconditionally; it probes neither the KV
// backend nor the config store. The KV backend degrades to the in-process
// variant when Redis is unreachable at startup, and a Postgres config store
// is only pinged at startup, where a failure stops the process.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}
