// Package handler provides HTTP handlers for the Family Hub API.
package handler

import (
	"net/http"
	"time"

	"github.com/familyhub/familyhub/internal/api/models"
	"github.com/familyhub/familyhub/internal/api/response"
	"github.com/familyhub/familyhub/internal/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	breakers  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, breakers *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		breakers:  breakers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now(),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. The process is
// ready even when upstreams are down: every endpoint degrades to fallbacks
// instead of failing, so breaker health is informational here.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	summary := h.breakers.Summary()

	status := models.HealthStatusOK
	if summary.Summary.OverallHealth != resilience.HealthHealthy {
		status = models.HealthStatusDegraded
	}

	health := models.Health{
		Status: status,
		Time:   time.Now(),
		Details: map[string]interface{}{
			"breakers": summary.Summary,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}
