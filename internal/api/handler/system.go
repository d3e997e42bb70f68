package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/api/models"
	"github.com/familyhub/familyhub/internal/api/response"
	"github.com/familyhub/familyhub/internal/resilience"
)

// SystemHandler exposes circuit breaker introspection and operator controls.
type SystemHandler struct {
	breakers *resilience.Registry
	logger   zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(breakers *resilience.Registry, logger zerolog.Logger) *SystemHandler {
	return &SystemHandler{breakers: breakers, logger: logger}
}

// CircuitBreakers handles GET /v1/system/circuit-breakers - full health report.
func (h *SystemHandler) CircuitBreakers(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.breakers.Summary())
}

// ResetCircuitBreakers handles POST /v1/system/circuit-breakers/reset.
// An empty or absent body resets every breaker; {"service": "name"} resets one.
func (h *SystemHandler) ResetCircuitBreakers(w http.ResponseWriter, r *http.Request) {
	var req models.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, r, "Request body must be valid JSON", nil)
		return
	}

	var reset []string
	if req.Service != "" {
		if !h.breakers.Reset(req.Service) {
			response.NotFound(w, r, "No circuit breaker named "+req.Service)
			return
		}
		reset = []string{req.Service}
	} else {
		h.breakers.ResetAll()
		reset = h.breakers.Names()
	}

	h.logger.Info().Strs("services", reset).Msg("circuit breakers reset by operator")

	response.JSON(w, r, http.StatusOK, models.ResetResponse{
		Reset: reset,
		Time:  time.Now(),
	})
}
