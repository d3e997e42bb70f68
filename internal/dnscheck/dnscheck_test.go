package dnscheck_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familyhub/internal/dnscheck"
	"github.com/familyhub/familyhub/internal/resilience"
)

// fakeResolver maps domains to addresses; unmapped domains fail.
type fakeResolver struct {
	hosts map[string][]string
}

func (f *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if addrs, ok := f.hosts[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func newTestService(resolver dnscheck.Resolver, domains ...string) *dnscheck.Service {
	registry := resilience.NewRegistry(resilience.RegistryConfig{
		Defaults: resilience.Config{
			FailureThreshold: 2,
			CallTimeout:      time.Second,
			ResetTimeout:     time.Minute,
		},
		Logger: zerolog.Nop(),
	})

	return dnscheck.NewService(dnscheck.ServiceConfig{
		Domains:  domains,
		Resolver: resolver,
		Breakers: registry,
		Logger:   zerolog.Nop(),
	})
}

func TestService_Check_AllHealthy(t *testing.T) {
	resolver := &fakeResolver{hosts: map[string][]string{
		"google.com":     {"142.250.1.1"},
		"cloudflare.com": {"104.16.1.1"},
	}}
	svc := newTestService(resolver, "google.com", "cloudflare.com")

	report, degraded, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, 2, report.Healthy)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Results, 2)
}

func TestService_Check_PartialFailureIsNotBreakerFailure(t *testing.T) {
	resolver := &fakeResolver{hosts: map[string][]string{
		"google.com": {"142.250.1.1"},
	}}
	svc := newTestService(resolver, "google.com", "broken.example")

	report, degraded, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, 1, report.Healthy)
	assert.Equal(t, 1, report.Failed)

	for _, r := range report.Results {
		if r.Domain == "broken.example" {
			assert.False(t, r.Resolved)
			assert.NotEmpty(t, r.Error)
		}
	}
}

func TestService_Check_TotalFailureDegrades(t *testing.T) {
	resolver := &fakeResolver{hosts: map[string][]string{}}
	svc := newTestService(resolver, "google.com", "cloudflare.com")

	report, degraded, err := svc.Check(context.Background())
	assert.Error(t, err)
	assert.True(t, degraded)
	assert.NotNil(t, report.Results)
	assert.False(t, report.CheckedAt.IsZero())
}

func TestService_Check_TripsAfterRepeatedWipeouts(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{hosts: map[string][]string{}}
	svc := newTestService(resolver, "google.com")

	for i := 0; i < 2; i++ {
		_, degraded, err := svc.Check(ctx)
		assert.True(t, degraded)
		assert.Error(t, err)
	}

	_, degraded, err := svc.Check(ctx)
	assert.True(t, degraded)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
