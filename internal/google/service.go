package google

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/resilience"
)

// Fetcher defines the Google API operations the service depends on.
type Fetcher interface {
	ListEvents(ctx context.Context, maxResults int) ([]CalendarEvent, error)
	ListMessages(ctx context.Context, maxResults int) ([]EmailSummary, error)
	ListFiles(ctx context.Context, maxResults int) ([]DriveFile, error)
}

// ServiceConfig holds configuration for the Google service.
type ServiceConfig struct {
	// Fetcher is the underlying API client.
	Fetcher Fetcher

	// Breakers guards every upstream call. Each Google product has its own
	// breaker so a Gmail outage does not blank the calendar widget.
	Breakers *resilience.Registry

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service exposes breaker-guarded access to the Google APIs. Every method
// returns usable data: when the upstream call fails or is short-circuited,
// an empty slice comes back with degraded=true and the causing error.
type Service struct {
	fetcher  Fetcher
	breakers *resilience.Registry
	logger   zerolog.Logger
}

// NewService creates a new Google service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		fetcher:  cfg.Fetcher,
		breakers: cfg.Breakers,
		logger:   cfg.Logger,
	}
}

// Events returns upcoming calendar events, or an empty slice when degraded.
func (s *Service) Events(ctx context.Context, maxResults int) ([]CalendarEvent, bool, error) {
	events, degraded, err := resilience.Execute(ctx, s.breakers.Get(BreakerCalendar),
		func(ctx context.Context) ([]CalendarEvent, error) {
			return s.fetcher.ListEvents(ctx, maxResults)
		},
		func() []CalendarEvent { return []CalendarEvent{} },
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("service", BreakerCalendar).Msg("serving calendar fallback")
	}
	return events, degraded, err
}

// Messages returns recent inbox messages, or an empty slice when degraded.
func (s *Service) Messages(ctx context.Context, maxResults int) ([]EmailSummary, bool, error) {
	messages, degraded, err := resilience.Execute(ctx, s.breakers.Get(BreakerGmail),
		func(ctx context.Context) ([]EmailSummary, error) {
			return s.fetcher.ListMessages(ctx, maxResults)
		},
		func() []EmailSummary { return []EmailSummary{} },
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("service", BreakerGmail).Msg("serving gmail fallback")
	}
	return messages, degraded, err
}

// Files returns recently modified Drive files, or an empty slice when degraded.
func (s *Service) Files(ctx context.Context, maxResults int) ([]DriveFile, bool, error) {
	files, degraded, err := resilience.Execute(ctx, s.breakers.Get(BreakerDrive),
		func(ctx context.Context) ([]DriveFile, error) {
			return s.fetcher.ListFiles(ctx, maxResults)
		},
		func() []DriveFile { return []DriveFile{} },
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("service", BreakerDrive).Msg("serving drive fallback")
	}
	return files, degraded, err
}
