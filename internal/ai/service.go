package ai

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/resilience"
)

// FallbackMessage is served when the AI backend is unavailable.
const FallbackMessage = "AI suggestions are temporarily unavailable."

// Generator defines the Ollama operations the service depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// ServiceConfig holds configuration for the AI service.
type ServiceConfig struct {
	// Generator is the underlying Ollama client.
	Generator Generator

	// Breakers guards every generation call.
	Breakers *resilience.Registry

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service exposes breaker-guarded AI generation. Model inference on the home
// server can stall for a long time under load, so the per-call timeout and
// breaker matter more here than for the cloud APIs.
type Service struct {
	generator Generator
	breakers  *resilience.Registry
	logger    zerolog.Logger
}

// NewService creates a new AI service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		generator: cfg.Generator,
		breakers:  cfg.Breakers,
		logger:    cfg.Logger,
	}
}

// Generate runs a completion, returning a canned message when degraded.
func (s *Service) Generate(ctx context.Context, prompt string) (string, bool, error) {
	text, degraded, err := resilience.Execute(ctx, s.breakers.Get(BreakerName),
		func(ctx context.Context) (string, error) {
			return s.generator.Generate(ctx, prompt)
		},
		func() string { return FallbackMessage },
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("service", BreakerName).Msg("serving AI fallback")
	}
	return text, degraded, err
}

// Models lists available models, returning an empty slice when degraded.
func (s *Service) Models(ctx context.Context) ([]string, bool, error) {
	models, degraded, err := resilience.Execute(ctx, s.breakers.Get(BreakerName),
		func(ctx context.Context) ([]string, error) {
			return s.generator.ListModels(ctx)
		},
		func() []string { return []string{} },
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("service", BreakerName).Msg("serving AI fallback")
	}
	return models, degraded, err
}
