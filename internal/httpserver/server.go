// Package httpserver wires the chi router, middleware stack, health checks,
// and the application/problem+json error envelope shared by every handler
// package.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// ServerConfig configures the HTTP server's ambient stack.
type ServerConfig struct {
	CORSAllowedOrigins []string
	MetricsPath        string
}

// Authenticator supplies the operator-auth middleware APIRouter is wrapped
// with; *operatorauth.Authenticator satisfies it.
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

// Server wires the root chi router, the operator-authenticated API
// sub-router, and the public sub-router domain handlers mount onto.
type Server struct {
	Router       chi.Router
	APIRouter    chi.Router // operator-authenticated group on the root router, no path prefix
	PublicRouter chi.Router // unauthenticated, public webhook + OAuth callback routes

	Logger *slog.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client

	startedAt time.Time
}

// NewServer constructs the Server and mounts the ambient routes
// (/healthz, /readyz, /metrics, /openapi.json) plus the operator and public
// sub-routers. Domain packages mount their own routes onto APIRouter /
// PublicRouter after construction.
func NewServer(cfg ServerConfig, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, auth Authenticator, openAPIHandler http.Handler) *Server {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Tenant-Id", "X-Connection-Id"},
		AllowCredentials: false,
	}))

	s := &Server{
		Router:    r,
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		startedAt: time.Now(),
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if metricsReg != nil {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))
	}
	if openAPIHandler != nil {
		r.Get("/openapi.json", openAPIHandler.ServeHTTP)
	}

	// PublicRouter is the root router itself: domain packages register
	// public routes (OAuth callback, public webhook ingress) directly on
	// it. APIRouter wraps the same root router with the operator bearer +
	// X-Tenant-Id middleware via r.Group, so every operator route —
	// whether under /api/v1 or a top-level path like /connect — shares one
	// authenticated sub-router.
	s.PublicRouter = r
	s.APIRouter = r.Group(func(gr chi.Router) {
		gr.Use(auth.Middleware)
	})

	return s
}

type readyCheck struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	Respond(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := []readyCheck{
		{Name: "database", OK: s.DB.Ping(ctx) == nil},
	}
	if s.Redis != nil {
		checks = append(checks, readyCheck{Name: "redis", OK: s.Redis.Ping(ctx).Err() == nil})
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	Respond(w, status, map[string]any{"status": boolToStatus(allOK), "checks": checks})
}

func boolToStatus(ok bool) string {
	if ok {
		return "ready"
	}
	return "not_ready"
}
