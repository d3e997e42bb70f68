// Package worker runs the background DNS monitor and publishes alerts.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/dnscheck"
)

// Alert types published to the alerts topic.
const (
	AlertDNSDegraded  = "dns_degraded"
	AlertDNSRecovered = "dns_recovered"
)

// Alert is the payload published when resolver health changes.
type Alert struct {
	Type      string          `json:"type"`
	Report    dnscheck.Report `json:"report"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher publishes alert payloads.
type Publisher interface {
	Publish(ctx context.Context, data []byte) error
}

// PubSubPublisher publishes alerts to a Google Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPubSubPublisher creates a publisher for the given project and topic.
func NewPubSubPublisher(ctx context.Context, projectID, topic string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(topic),
	}, nil
}

// Publish sends one message and waits for the server ack.
func (p *PubSubPublisher) Publish(ctx context.Context, data []byte) error {
	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing alert: %w", err)
	}
	return nil
}

// Close stops the publisher and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// MonitorConfig holds configuration for the DNS monitor.
type MonitorConfig struct {
	// Checker runs the breaker-guarded sweeps.
	Checker *dnscheck.Service

	// Publisher receives alerts on health transitions.
	Publisher Publisher

	// Interval is the polling period (default: 5 minutes).
	Interval time.Duration

	// Logger for monitor operations.
	Logger zerolog.Logger
}

// Monitor polls resolver health and publishes an alert on every transition
// between healthy and degraded. Steady states are not republished, one alert
// per flip is enough for the phone notifications downstream.
type Monitor struct {
	checker   *dnscheck.Service
	publisher Publisher
	interval  time.Duration
	logger    zerolog.Logger

	degraded bool
}

// NewMonitor creates a new DNS monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	interval := cfg.Interval
	if interval == 0 {
		interval = 5 * time.Minute
	}

	return &Monitor{
		checker:   cfg.Checker,
		publisher: cfg.Publisher,
		interval:  interval,
		logger:    cfg.Logger,
	}
}

// Run polls until the context is canceled. The first sweep happens
// immediately so a restart notices ongoing problems without waiting a full
// interval.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().Dur("interval", m.interval).Msg("starting DNS monitor")

	m.Tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("DNS monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs a single sweep and publishes an alert if health flipped.
func (m *Monitor) Tick(ctx context.Context) {
	report, fallback, err := m.checker.Check(ctx)
	degraded := fallback || (len(report.Results) > 0 && report.Healthy == 0)

	if err != nil {
		m.logger.Warn().Err(err).Msg("DNS sweep failed")
	}

	if degraded == m.degraded {
		return
	}
	m.degraded = degraded

	alertType := AlertDNSRecovered
	if degraded {
		alertType = AlertDNSDegraded
	}

	m.logger.Warn().
		Str("alert", alertType).
		Int("healthy", report.Healthy).
		Int("failed", report.Failed).
		Msg("resolver health changed")

	m.publish(ctx, Alert{
		Type:      alertType,
		Report:    report,
		Timestamp: time.Now(),
	})
}

func (m *Monitor) publish(ctx context.Context, alert Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		m.logger.Error().Err(err).Msg("encoding alert")
		return
	}

	if err := m.publisher.Publish(ctx, data); err != nil {
		m.logger.Error().Err(err).Str("alert", alert.Type).Msg("publishing alert")
	}
}
