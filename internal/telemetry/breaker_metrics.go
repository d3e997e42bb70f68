package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sony/gobreaker/v2"
)

const breakerMeterName = "github.com/familyhub/familyhub/internal/resilience"

// BreakerMetrics holds instruments for circuit breaker observability.
type BreakerMetrics struct {
	transitions metric.Int64Counter
	trips       metric.Int64Counter
}

// NewBreakerMetrics creates the circuit breaker instruments.
func NewBreakerMetrics() (*BreakerMetrics, error) {
	meter := otel.Meter(breakerMeterName)

	transitions, err := meter.Int64Counter(
		"breaker.state.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	trips, err := meter.Int64Counter(
		"breaker.trips",
		metric.WithDescription("Total number of closed-to-open transitions"),
		metric.WithUnit("{trip}"),
	)
	if err != nil {
		return nil, err
	}

	return &BreakerMetrics{
		transitions: transitions,
		trips:       trips,
	}, nil
}

// OnStateChange records a breaker state transition. It matches the
// resilience registry's hook signature.
func (m *BreakerMetrics) OnStateChange(name string, from, to gobreaker.State) {
	attrs := []attribute.KeyValue{
		attribute.String("service", name),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	}

	// Metrics use a background context so a cancelled request cannot drop
	// the recording.
	ctx := context.Background()
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))

	if to == gobreaker.StateOpen && from != gobreaker.StateHalfOpen {
		m.trips.Add(ctx, 1, metric.WithAttributes(attribute.String("service", name)))
	}
}
