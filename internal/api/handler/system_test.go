package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familyhub/internal/api/handler"
	"github.com/familyhub/familyhub/internal/resilience"
)

func newTestRegistry() *resilience.Registry {
	return resilience.NewRegistry(resilience.RegistryConfig{
		Defaults: resilience.Config{
			FailureThreshold: 2,
			CallTimeout:      time.Second,
			ResetTimeout:     time.Minute,
		},
		Logger: zerolog.Nop(),
	})
}

func tripBreaker(t *testing.T, registry *resilience.Registry, name string) {
	t.Helper()
	b := registry.Get(name)
	for i := 0; i < 2; i++ {
		_, _, err := resilience.Execute(context.Background(), b,
			func(context.Context) (int, error) { return 0, errors.New("boom") },
			func() int { return 0 },
		)
		require.Error(t, err)
	}
}

func TestSystemHandler_CircuitBreakers(t *testing.T) {
	registry := newTestRegistry()
	registry.Get("google-calendar")
	tripBreaker(t, registry, "ollama-ai")

	h := handler.NewSystemHandler(registry, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/v1/system/circuit-breakers", http.NoBody)
	rec := httptest.NewRecorder()
	h.CircuitBreakers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Summary struct {
			Total         int    `json:"total"`
			Healthy       int    `json:"healthy"`
			Degraded      int    `json:"degraded"`
			Failed        int    `json:"failed"`
			OverallHealth string `json:"overallHealth"`
		} `json:"summary"`
		Details map[string]struct {
			State            string `json:"state"`
			IsHealthy        bool   `json:"isHealthy"`
			Failures         uint32 `json:"failures"`
			FailureThreshold uint32 `json:"failureThreshold"`
			Stats            struct {
				TotalCalls      uint64  `json:"totalCalls"`
				SuccessfulCalls uint64  `json:"successfulCalls"`
				FailedCalls     uint64  `json:"failedCalls"`
				ShortCircuited  uint64  `json:"shortCircuited"`
				SuccessRate     float64 `json:"successRate"`
			} `json:"stats"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 2, body.Summary.Total)
	assert.Equal(t, 1, body.Summary.Healthy)
	assert.Equal(t, 1, body.Summary.Failed)
	assert.Equal(t, "degraded", body.Summary.OverallHealth)

	calendar := body.Details["google-calendar"]
	assert.Equal(t, "closed", calendar.State)
	assert.True(t, calendar.IsHealthy)

	ollama := body.Details["ollama-ai"]
	assert.Equal(t, "open", ollama.State)
	assert.False(t, ollama.IsHealthy)
	assert.Equal(t, uint32(2), ollama.Failures, "open breakers report the count that tripped them")
	assert.Equal(t, uint32(2), ollama.FailureThreshold)
	assert.Equal(t, uint64(2), ollama.Stats.TotalCalls)
	assert.Equal(t, uint64(2), ollama.Stats.FailedCalls)
}

func TestSystemHandler_ResetSingle(t *testing.T) {
	registry := newTestRegistry()
	tripBreaker(t, registry, "ollama-ai")
	require.Equal(t, "open", registry.Get("ollama-ai").State().String())

	h := handler.NewSystemHandler(registry, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/system/circuit-breakers/reset",
		bytes.NewBufferString(`{"service": "ollama-ai"}`))
	rec := httptest.NewRecorder()
	h.ResetCircuitBreakers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Reset []string `json:"reset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"ollama-ai"}, body.Reset)

	assert.Equal(t, "closed", registry.Get("ollama-ai").State().String())
}

func TestSystemHandler_ResetAll(t *testing.T) {
	registry := newTestRegistry()
	tripBreaker(t, registry, "google-gmail")
	tripBreaker(t, registry, "dns-resolver")

	h := handler.NewSystemHandler(registry, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/system/circuit-breakers/reset", http.NoBody)
	rec := httptest.NewRecorder()
	h.ResetCircuitBreakers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Reset []string `json:"reset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"google-gmail", "dns-resolver"}, body.Reset)

	assert.Equal(t, "closed", registry.Get("google-gmail").State().String())
	assert.Equal(t, "closed", registry.Get("dns-resolver").State().String())
}

func TestSystemHandler_ResetUnknownService(t *testing.T) {
	registry := newTestRegistry()
	h := handler.NewSystemHandler(registry, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/system/circuit-breakers/reset",
		bytes.NewBufferString(`{"service": "no-such-service"}`))
	rec := httptest.NewRecorder()
	h.ResetCircuitBreakers(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSystemHandler_ResetInvalidBody(t *testing.T) {
	registry := newTestRegistry()
	h := handler.NewSystemHandler(registry, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/system/circuit-breakers/reset",
		bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()
	h.ResetCircuitBreakers(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
