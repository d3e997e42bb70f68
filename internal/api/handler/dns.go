package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/api/response"
	"github.com/familyhub/familyhub/internal/dnscheck"
)

// DNSHandler exposes resolver health for the network widget.
type DNSHandler struct {
	service *dnscheck.Service
	logger  zerolog.Logger
}

// NewDNSHandler creates a new DNSHandler.
func NewDNSHandler(service *dnscheck.Service, logger zerolog.Logger) *DNSHandler {
	return &DNSHandler{service: service, logger: logger}
}

// DNSStatusResponse wraps a sweep report for the dashboard.
type DNSStatusResponse struct {
	Report    dnscheck.Report `json:"report"`
	Fallback  bool            `json:"fallback,omitempty"`
	Error     string          `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Status handles GET /v1/dns/status - runs a sweep over the watched domains.
func (h *DNSHandler) Status(w http.ResponseWriter, r *http.Request) {
	report, degraded, _ := h.service.Check(r.Context())

	resp := DNSStatusResponse{Report: report, Timestamp: time.Now()}
	if degraded {
		resp.Fallback = true
		resp.Error = "service_unavailable"
		resp.Message = "DNS checks are temporarily unavailable."
	}
	response.JSON(w, r, http.StatusOK, resp)
}
