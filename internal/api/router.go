// Package api provides the HTTP API for the Family Hub dashboard.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/ai"
	"github.com/familyhub/familyhub/internal/api/handler"
	"github.com/familyhub/familyhub/internal/api/middleware"
	"github.com/familyhub/familyhub/internal/auth"
	"github.com/familyhub/familyhub/internal/dnscheck"
	"github.com/familyhub/familyhub/internal/google"
	"github.com/familyhub/familyhub/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	Metrics       *middleware.Metrics
	Breakers      *resilience.Registry
	AuthService   *auth.Service
	GoogleService *google.Service
	AIService     *ai.Service
	DNSService    *dnscheck.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Breakers)
	systemHandler := handler.NewSystemHandler(cfg.Breakers, cfg.Logger)
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	googleHandler := handler.NewGoogleHandler(cfg.GoogleService, cfg.Logger)
	aiHandler := handler.NewAIHandler(cfg.AIService, cfg.Logger)
	dnsHandler := handler.NewDNSHandler(cfg.DNSService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)

	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)
	aiRateLimit := middleware.RateLimitByIP(middleware.AIRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting against PIN guessing
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.With(authMiddleware).Post("/logout-all", authHandler.LogoutAll)
			r.With(authMiddleware).Get("/me", authHandler.Me)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// System endpoints (authenticated) - breaker introspection and reset
		r.Route("/system", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/circuit-breakers", systemHandler.CircuitBreakers)
			r.Post("/circuit-breakers/reset", systemHandler.ResetCircuitBreakers)
		})

		// Dashboard widgets (authenticated) - per-member rate limiting
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByMember(middleware.StandardRateLimit))

			r.Get("/calendar/events", googleHandler.Events)
			r.Get("/gmail/messages", googleHandler.Messages)
			r.Get("/drive/files", googleHandler.Files)
			r.Get("/dns/status", dnsHandler.Status)
		})

		// AI endpoints (authenticated) - generation is expensive on the home server
		r.Route("/ai", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(aiRateLimit)
			r.Post("/generate", aiHandler.Generate)
			r.Get("/models", aiHandler.Models)
		})
	})

	return r
}
