package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/ai"
	"github.com/familyhub/familyhub/internal/api/models"
	"github.com/familyhub/familyhub/internal/api/response"
)

const maxPromptLength = 4096

// AIHandler handles local AI generation endpoints.
type AIHandler struct {
	service *ai.Service
	logger  zerolog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(service *ai.Service, logger zerolog.Logger) *AIHandler {
	return &AIHandler{service: service, logger: logger}
}

// GenerateRequest is the body for POST /v1/ai/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse carries the completion, or a canned message when degraded.
type GenerateResponse struct {
	Text      string    `json:"text"`
	Fallback  bool      `json:"fallback,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ModelsResponse lists the models available on the local instance.
type ModelsResponse struct {
	Models    []string  `json:"models"`
	Fallback  bool      `json:"fallback,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Generate handles POST /v1/ai/generate.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "Request body must be valid JSON", nil)
		return
	}

	if req.Prompt == "" {
		response.BadRequest(w, r, "Validation failed", []models.FieldError{
			{Field: "prompt", Message: "prompt is required", Code: "REQUIRED"},
		})
		return
	}
	if len(req.Prompt) > maxPromptLength {
		response.BadRequest(w, r, "Validation failed", []models.FieldError{
			{Field: "prompt", Message: "prompt is too long", Code: "TOO_LONG"},
		})
		return
	}

	text, degraded, _ := h.service.Generate(r.Context(), req.Prompt)

	resp := GenerateResponse{Text: text, Timestamp: time.Now()}
	if degraded {
		resp.Fallback = true
		resp.Error = "service_unavailable"
		resp.Message = "AI is temporarily unavailable."
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// Models handles GET /v1/ai/models.
func (h *AIHandler) Models(w http.ResponseWriter, r *http.Request) {
	names, degraded, _ := h.service.Models(r.Context())

	resp := ModelsResponse{Models: names, Timestamp: time.Now()}
	if degraded {
		resp.Fallback = true
		resp.Error = "service_unavailable"
		resp.Message = "AI is temporarily unavailable."
	}
	response.JSON(w, r, http.StatusOK, resp)
}
