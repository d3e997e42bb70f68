package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/api/response"
	"github.com/familyhub/familyhub/internal/google"
)

// Default and maximum result counts for the list endpoints.
const (
	defaultEventCount   = 10
	defaultMessageCount = 10
	defaultFileCount    = 10
	maxResultCount      = 50
)

// GoogleHandler handles the Calendar, Gmail and Drive widgets.
type GoogleHandler struct {
	service *google.Service
	logger  zerolog.Logger
}

// NewGoogleHandler creates a new GoogleHandler.
func NewGoogleHandler(service *google.Service, logger zerolog.Logger) *GoogleHandler {
	return &GoogleHandler{service: service, logger: logger}
}

// EventsResponse is the calendar widget payload. Degraded responses still
// return 200 with fallback=true so the dashboard never breaks.
type EventsResponse struct {
	Events    []google.CalendarEvent `json:"events"`
	Fallback  bool                   `json:"fallback,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// MessagesResponse is the inbox widget payload.
type MessagesResponse struct {
	Messages  []google.EmailSummary `json:"messages"`
	Fallback  bool                  `json:"fallback,omitempty"`
	Error     string                `json:"error,omitempty"`
	Message   string                `json:"message,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// FilesResponse is the Drive widget payload.
type FilesResponse struct {
	Files     []google.DriveFile `json:"files"`
	Fallback  bool               `json:"fallback,omitempty"`
	Error     string             `json:"error,omitempty"`
	Message   string             `json:"message,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Events handles GET /v1/calendar/events.
func (h *GoogleHandler) Events(w http.ResponseWriter, r *http.Request) {
	maxResults := parseMaxResults(r, defaultEventCount)

	events, degraded, _ := h.service.Events(r.Context(), maxResults)

	resp := EventsResponse{Events: events, Timestamp: time.Now()}
	if degraded {
		resp.Fallback = true
		resp.Error = "service_unavailable"
		resp.Message = "Calendar is temporarily unavailable."
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// Messages handles GET /v1/gmail/messages.
func (h *GoogleHandler) Messages(w http.ResponseWriter, r *http.Request) {
	maxResults := parseMaxResults(r, defaultMessageCount)

	messages, degraded, _ := h.service.Messages(r.Context(), maxResults)

	resp := MessagesResponse{Messages: messages, Timestamp: time.Now()}
	if degraded {
		resp.Fallback = true
		resp.Error = "service_unavailable"
		resp.Message = "Mail is temporarily unavailable."
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// Files handles GET /v1/drive/files.
func (h *GoogleHandler) Files(w http.ResponseWriter, r *http.Request) {
	maxResults := parseMaxResults(r, defaultFileCount)

	files, degraded, _ := h.service.Files(r.Context(), maxResults)

	resp := FilesResponse{Files: files, Timestamp: time.Now()}
	if degraded {
		resp.Fallback = true
		resp.Error = "service_unavailable"
		resp.Message = "Drive is temporarily unavailable."
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// parseMaxResults reads the maxResults query parameter, clamped to sane bounds.
func parseMaxResults(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("maxResults")
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	if n > maxResultCount {
		return maxResultCount
	}
	return n
}
