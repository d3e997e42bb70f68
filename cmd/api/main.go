// Package main provides the entrypoint for the Family Hub API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/ai"
	"github.com/familyhub/familyhub/internal/api"
	"github.com/familyhub/familyhub/internal/api/middleware"
	"github.com/familyhub/familyhub/internal/auth"
	"github.com/familyhub/familyhub/internal/config"
	"github.com/familyhub/familyhub/internal/database"
	"github.com/familyhub/familyhub/internal/dnscheck"
	"github.com/familyhub/familyhub/internal/google"
	"github.com/familyhub/familyhub/internal/resilience"
	"github.com/familyhub/familyhub/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "familyhub-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting Family Hub API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	breakerMetrics, err := telemetry.NewBreakerMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize breaker metrics")
	}

	registry := resilience.NewRegistry(resilience.RegistryConfig{
		Services:      breakerConfigs(cfg.Breakers),
		Defaults:      resilience.Config{},
		Logger:        log,
		OnStateChange: breakerMetrics.OnStateChange,
	})

	// The hub keeps working without PostgreSQL: members then live in memory
	// and are re-seeded from auth.members on every restart.
	var memberRepo auth.MemberRepository
	var refreshRepo auth.RefreshTokenRepository
	if pool, dbErr := database.Connect(ctx, cfg.Database); dbErr == nil {
		defer pool.Close()
		memberRepo = auth.NewPostgresMemberRepository(pool)
		refreshRepo = auth.NewPostgresRefreshTokenRepository(pool)
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		memberRepo = auth.NewInMemoryMemberRepository()
		refreshRepo = auth.NewInMemoryRefreshTokenRepository()
		log.Warn().Err(dbErr).Msg("database unavailable, using in-memory member store")
	}

	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		signingKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: signingKey,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		}),
		MemberRepo:  memberRepo,
		RefreshRepo: refreshRepo,
	})

	for _, m := range cfg.Auth.Members {
		if _, err := authService.EnsureMember(ctx, m.Name, m.Role, m.PIN); err != nil {
			log.Fatal().Err(err).Str("member", m.Name).Msg("failed to provision family member")
		}
	}
	if len(cfg.Auth.Members) == 0 {
		log.Warn().Msg("no family members configured, every PIN login will be rejected")
	} else {
		log.Info().Int("members", len(cfg.Auth.Members)).Msg("family members provisioned")
	}

	googleService := google.NewService(google.ServiceConfig{
		Fetcher: google.NewClient(google.ClientConfig{
			AccessToken: cfg.Google.AccessToken,
			CalendarURL: cfg.Google.CalendarURL,
			GmailURL:    cfg.Google.GmailURL,
			DriveURL:    cfg.Google.DriveURL,
			Logger:      log,
		}),
		Breakers: registry,
		Logger:   log,
	})

	aiService := ai.NewService(ai.ServiceConfig{
		Generator: ai.NewClient(ai.ClientConfig{
			BaseURL: cfg.Ollama.URL,
			Model:   cfg.Ollama.Model,
			Logger:  log,
		}),
		Breakers: registry,
		Logger:   log,
	})

	dnsService := dnscheck.NewService(dnscheck.ServiceConfig{
		Domains:  cfg.DNS.Domains,
		Breakers: registry,
		Logger:   log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		BuildTime:     BuildTime,
		Logger:        log,
		Metrics:       metrics,
		Breakers:      registry,
		AuthService:   authService,
		GoogleService: googleService,
		AIService:     aiService,
		DNSService:    dnsService,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // AI generation can take a while
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// breakerConfigs maps the configuration tree onto resilience tuning.
func breakerConfigs(configs []config.BreakerConfig) []resilience.Config {
	out := make([]resilience.Config, 0, len(configs))
	for _, bc := range configs {
		out = append(out, resilience.Config{
			Name:             bc.Name,
			FailureThreshold: bc.FailureThreshold,
			TimeWindow:       bc.TimeWindow,
			CallTimeout:      bc.CallTimeout,
			ResetTimeout:     bc.ResetTimeout,
		})
	}
	return out
}
