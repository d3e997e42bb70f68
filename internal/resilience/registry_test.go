package resilience_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familyhub/internal/resilience"
)

func newTestRegistry() *resilience.Registry {
	return resilience.NewRegistry(resilience.RegistryConfig{
		Services: []resilience.Config{
			{
				Name:             "google-calendar",
				FailureThreshold: 3,
				TimeWindow:       time.Minute,
				CallTimeout:      15 * time.Second,
				ResetTimeout:     30 * time.Second,
			},
			{
				Name:             "ollama-ai",
				FailureThreshold: 5,
				TimeWindow:       time.Minute,
				CallTimeout:      30 * time.Second,
				ResetTimeout:     time.Minute,
			},
		},
		Defaults: resilience.Config{
			FailureThreshold: 5,
			TimeWindow:       time.Minute,
			CallTimeout:      10 * time.Second,
			ResetTimeout:     30 * time.Second,
		},
		Logger: zerolog.Nop(),
	})
}

func TestRegistry_GetCreatesLazily(t *testing.T) {
	registry := newTestRegistry()
	assert.Equal(t, 0, registry.Count())

	b := registry.Get("google-calendar")
	require.NotNil(t, b)
	assert.Equal(t, 1, registry.Count())
	assert.Equal(t, "google-calendar", b.Name())
	assert.Equal(t, uint32(3), b.Threshold(), "configured tuning applies")

	// Same instance on subsequent calls.
	assert.Same(t, b, registry.Get("google-calendar"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_GetUnconfiguredUsesDefaults(t *testing.T) {
	registry := newTestRegistry()

	b := registry.Get("n8n-workflows")
	require.NotNil(t, b)
	assert.Equal(t, "n8n-workflows", b.Name())
	assert.Equal(t, uint32(5), b.Threshold())
}

func TestRegistry_ConcurrentGetYieldsOneInstance(t *testing.T) {
	registry := newTestRegistry()

	const callers = 50
	results := make([]*resilience.Breaker, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = registry.Get("dns-resolver")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, registry.Count())
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestRegistry_ResetSingle(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	calendar := registry.Get("google-calendar")
	ai := registry.Get("ollama-ai")

	for i := 0; i < 3; i++ {
		_, _, _ = resilience.Execute(ctx, calendar, fail, fallbackValue)
	}
	for i := 0; i < 5; i++ {
		_, _, _ = resilience.Execute(ctx, ai, fail, fallbackValue)
	}
	require.Equal(t, gobreaker.StateOpen, calendar.State())
	require.Equal(t, gobreaker.StateOpen, ai.State())

	assert.True(t, registry.Reset("google-calendar"))

	assert.Equal(t, gobreaker.StateClosed, calendar.State())
	assert.Equal(t, uint32(0), calendar.Failures())
	assert.Equal(t, gobreaker.StateOpen, ai.State(), "reset affects only the named breaker")
}

func TestRegistry_ResetUnknown(t *testing.T) {
	registry := newTestRegistry()
	assert.False(t, registry.Reset("nonexistent"))
}

func TestRegistry_ResetAll(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	calendar := registry.Get("google-calendar")
	ai := registry.Get("ollama-ai")

	for i := 0; i < 3; i++ {
		_, _, _ = resilience.Execute(ctx, calendar, fail, fallbackValue)
	}
	for i := 0; i < 5; i++ {
		_, _, _ = resilience.Execute(ctx, ai, fail, fallbackValue)
	}

	registry.ResetAll()

	assert.Equal(t, gobreaker.StateClosed, calendar.State())
	assert.Equal(t, gobreaker.StateClosed, ai.State())
	assert.Equal(t, uint32(0), calendar.Failures())
	assert.Equal(t, uint32(0), ai.Failures())
}

func TestRegistry_Summary(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	calendar := registry.Get("google-calendar")
	_ = registry.Get("ollama-ai")

	_, _, _ = resilience.Execute(ctx, calendar, succeed, fallbackValue)
	_, _, _ = resilience.Execute(ctx, calendar, succeed, fallbackValue)
	_, _, _ = resilience.Execute(ctx, calendar, fail, fallbackValue)

	summary := registry.Summary()

	assert.Equal(t, 2, summary.Summary.Total)
	assert.Equal(t, 2, summary.Summary.Healthy)
	assert.Equal(t, 0, summary.Summary.Failed)
	assert.Equal(t, resilience.HealthHealthy, summary.Summary.OverallHealth)

	detail, ok := summary.Details["google-calendar"]
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateClosed.String(), detail.State)
	assert.True(t, detail.IsHealthy)
	assert.Equal(t, uint32(1), detail.Failures)
	assert.Equal(t, uint32(3), detail.FailureThreshold)
	assert.Equal(t, uint64(3), detail.Stats.TotalCalls)
	assert.Equal(t, uint64(2), detail.Stats.SuccessfulCalls)
	assert.Equal(t, uint64(1), detail.Stats.FailedCalls)
	assert.InDelta(t, 2.0/3.0, detail.Stats.SuccessRate, 0.0001)
}

func TestRegistry_SummaryDegraded(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	calendar := registry.Get("google-calendar")
	_ = registry.Get("ollama-ai")

	for i := 0; i < 3; i++ {
		_, _, _ = resilience.Execute(ctx, calendar, fail, fallbackValue)
	}
	require.Equal(t, gobreaker.StateOpen, calendar.State())

	summary := registry.Summary()

	assert.Equal(t, 1, summary.Summary.Healthy)
	assert.Equal(t, 1, summary.Summary.Failed)
	assert.Equal(t, resilience.HealthDegraded, summary.Summary.OverallHealth)
	assert.False(t, summary.Details["google-calendar"].IsHealthy)
}

func TestRegistry_SummaryEmpty(t *testing.T) {
	registry := newTestRegistry()

	summary := registry.Summary()
	assert.Equal(t, 0, summary.Summary.Total)
	assert.Equal(t, resilience.HealthHealthy, summary.Summary.OverallHealth)
	assert.Empty(t, summary.Details)
}

func TestRegistry_StateChangeHook(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	registry := resilience.NewRegistry(resilience.RegistryConfig{
		Defaults: resilience.Config{
			FailureThreshold: 2,
			CallTimeout:      time.Second,
			ResetTimeout:     time.Minute,
		},
		Logger: zerolog.Nop(),
		OnStateChange: func(name string, from, to gobreaker.State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, name+": "+from.String()+" -> "+to.String())
		},
	})

	b := registry.Get("flaky-service")
	ctx := context.Background()
	_, _, _ = resilience.Execute(ctx, b, fail, fallbackValue)
	_, _, _ = resilience.Execute(ctx, b, fail, fallbackValue)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, transitions, 1)
	assert.Equal(t, "flaky-service: closed -> open", transitions[0])
}
