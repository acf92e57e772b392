package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"session-lifecycle/internal/audit"
	"session-lifecycle/internal/lifecycle"
	"session-lifecycle/internal/middleware"
)

// RouterConfig carries the router's cross-cutting settings.
type RouterConfig struct {
	// InternalSecret gates the service-to-service routes for callers outside
	// the private network.
	InternalSecret string
	// Healthcheck is probed by /healthz; nil reports healthy unconditionally.
	Healthcheck func(ctx context.Context) error
	// Audit backs GET /v1/audit; nil serves an empty history.
	Audit *audit.Logger
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(manager *lifecycle.Manager, admin *lifecycle.Admin, cfg RouterConfig) http.Handler {
	tokens := NewTokenHandler(manager)
	sessions := NewSessionHandler(admin)
	auditTrail := NewAuditHandler(cfg.Audit)

	r := chi.NewRouter()
	// CapturePeer must precede RealIP: the internal gate trusts the socket
	// peer, never the proxy headers RealIP copies into RemoteAddr.
	r.Use(middleware.CapturePeer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(captureClientIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Healthcheck != nil {
			if err := cfg.Healthcheck(req.Context()); err != nil {
				respondError(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		// Service-to-service routes. Issue trusts the caller to have
		// authenticated the user; validate exists for gateways that cannot
		// verify JWTs themselves.
		r.Group(func(r chi.Router) {
			r.Use(middleware.InternalOnly(cfg.InternalSecret))
			r.Post("/tokens/issue", tokens.Issue)
			r.Post("/tokens/validate", tokens.Validate)
		})

		// Refresh authenticates by the refresh token itself.
		r.Post("/tokens/refresh", tokens.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(manager))
			r.Post("/logout", tokens.Logout)
			r.Get("/sessions", sessions.List)
			r.Delete("/sessions/{sessionID}", sessions.Delete)
			r.Post("/sessions/revoke-others", sessions.RevokeOthers)
			r.Get("/audit", auditTrail.List)
		})
	})

	return r
}

// captureClientIP stores the derived client address in the context for the
// audit trail. Runs after RealIP so proxy headers are already applied.
func captureClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithClientIP(r.Context(), clientIP(r))))
	})
}
