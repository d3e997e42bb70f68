// Package main provides the entrypoint for the Family Hub DNS monitor worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/config"
	"github.com/familyhub/familyhub/internal/dnscheck"
	"github.com/familyhub/familyhub/internal/resilience"
	"github.com/familyhub/familyhub/internal/telemetry"
	"github.com/familyhub/familyhub/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "familyhub-worker"

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
		Strs("domains", cfg.DNS.Domains).
		Dur("interval", cfg.DNS.Interval).
		Msg("starting Family Hub worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.PubSub.ProjectID == "" {
		log.Fatal().Msg("pubsub.project_id is required for the worker")
	}

	publisher, err := worker.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert publisher")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close publisher")
		}
	}()

	registry := resilience.NewRegistry(resilience.RegistryConfig{
		Services: breakerConfigs(cfg.Breakers),
		Logger:   log,
	})

	monitor := worker.NewMonitor(worker.MonitorConfig{
		Checker: dnscheck.NewService(dnscheck.ServiceConfig{
			Domains:  cfg.DNS.Domains,
			Breakers: registry,
			Logger:   log,
		}),
		Publisher: publisher,
		Interval:  cfg.DNS.Interval,
		Logger:    log,
	})

	// Small health endpoint so the host's service manager can probe us.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":%q}`, Version)
	})

	healthServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", healthServer.Addr).Msg("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("monitor stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
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
