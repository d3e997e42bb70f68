// Package models defines request and response payloads for the Family Hub API.
package models

import "time"

// Health status values.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusDown     = "down"
)

// Health is the payload for liveness and readiness checks.
type Health struct {
	Status  string                 `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ResetRequest is the body of a circuit breaker reset request. An empty
// service name resets every breaker.
type ResetRequest struct {
	Service string `json:"service,omitempty"`
}

// ResetResponse reports the outcome of a reset request.
type ResetResponse struct {
	Reset []string  `json:"reset"`
	Time  time.Time `json:"time"`
}
