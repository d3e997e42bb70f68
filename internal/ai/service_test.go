package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familyhub/internal/ai"
	"github.com/familyhub/familyhub/internal/resilience"
)

var errOllamaDown = errors.New("connection refused")

type fakeGenerator struct {
	response string
	models   []string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeGenerator) ListModels(_ context.Context) ([]string, error) {
	f.calls++
	return f.models, f.err
}

func newTestService(gen *fakeGenerator) *ai.Service {
	registry := resilience.NewRegistry(resilience.RegistryConfig{
		Defaults: resilience.Config{
			FailureThreshold: 2,
			CallTimeout:      time.Second,
			ResetTimeout:     time.Minute,
		},
		Logger: zerolog.Nop(),
	})

	return ai.NewService(ai.ServiceConfig{
		Generator: gen,
		Breakers:  registry,
		Logger:    zerolog.Nop(),
	})
}

func TestService_Generate(t *testing.T) {
	gen := &fakeGenerator{response: "Pack umbrellas, rain after 15:00."}
	svc := newTestService(gen)

	text, degraded, err := svc.Generate(context.Background(), "summarize today")
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, "Pack umbrellas, rain after 15:00.", text)
}

func TestService_Generate_FallbackOnError(t *testing.T) {
	gen := &fakeGenerator{err: errOllamaDown}
	svc := newTestService(gen)

	text, degraded, err := svc.Generate(context.Background(), "summarize today")
	assert.ErrorIs(t, err, errOllamaDown)
	assert.True(t, degraded)
	assert.Equal(t, ai.FallbackMessage, text)
}

func TestService_Generate_ShortCircuitsWhenOpen(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errOllamaDown}
	svc := newTestService(gen)

	for i := 0; i < 2; i++ {
		_, degraded, err := svc.Generate(ctx, "prompt")
		assert.True(t, degraded)
		assert.Error(t, err)
	}
	assert.Equal(t, 2, gen.calls)

	// Open breaker: fallback without hitting the generator.
	text, degraded, err := svc.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.True(t, degraded)
	assert.Equal(t, ai.FallbackMessage, text)
	assert.Equal(t, 2, gen.calls)
}

func TestService_Models(t *testing.T) {
	gen := &fakeGenerator{models: []string{"llama3", "mistral"}}
	svc := newTestService(gen)

	models, degraded, err := svc.Models(context.Background())
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, []string{"llama3", "mistral"}, models)
}

func TestService_Models_FallbackOnError(t *testing.T) {
	gen := &fakeGenerator{err: errOllamaDown}
	svc := newTestService(gen)

	models, degraded, err := svc.Models(context.Background())
	assert.Error(t, err)
	assert.True(t, degraded)
	assert.Empty(t, models)
}
