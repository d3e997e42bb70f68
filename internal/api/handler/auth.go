package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/api/middleware"
	"github.com/familyhub/familyhub/internal/api/models"
	"github.com/familyhub/familyhub/internal/api/response"
	"github.com/familyhub/familyhub/internal/auth"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	service *auth.Service
	logger  zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Login handles POST /v1/auth/login - PIN login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "Request body must be valid JSON", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "Validation failed", toFieldErrors(errs))
		return
	}

	tokens, err := h.service.LoginWithPIN(r.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPIN) {
			response.Unauthorized(w, r, "Invalid name or PIN")
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		response.InternalError(w, r, "Login failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokens)
}

// Refresh handles POST /v1/auth/refresh - refresh token rotation.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "Request body must be valid JSON", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "Validation failed", toFieldErrors(errs))
		return
	}

	tokens, err := h.service.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) || errors.Is(err, auth.ErrRefreshTokenExpired) {
			response.Unauthorized(w, r, "Invalid or expired refresh token")
			return
		}
		h.logger.Error().Err(err).Msg("token refresh failed")
		response.InternalError(w, r, "Token refresh failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokens)
}

// Logout handles POST /v1/auth/logout - revokes the presented refresh token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "Request body must be valid JSON", nil)
		return
	}

	if req.RefreshToken != "" {
		if err := h.service.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
			h.logger.Error().Err(err).Msg("logout failed")
			response.InternalError(w, r, "Logout failed")
			return
		}
	}

	response.NoContent(w, r)
}

// LogoutAll handles POST /v1/auth/logout-all - revokes every session for the
// authenticated member.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.GetMemberID(r.Context())
	if memberID == "" {
		response.Unauthorized(w, r, "Authentication required")
		return
	}

	if err := h.service.RevokeAllTokens(r.Context(), memberID); err != nil {
		h.logger.Error().Err(err).Msg("logout-all failed")
		response.InternalError(w, r, "Logout failed")
		return
	}

	response.NoContent(w, r)
}

// Me handles GET /v1/auth/me - the authenticated member's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.GetMemberID(r.Context())
	if memberID == "" {
		response.Unauthorized(w, r, "Authentication required")
		return
	}

	member, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, auth.ErrMemberNotFound) {
			response.NotFound(w, r, "Member not found")
			return
		}
		h.logger.Error().Err(err).Msg("fetching member failed")
		response.InternalError(w, r, "Fetching member failed")
		return
	}

	response.JSON(w, r, http.StatusOK, member)
}

func toFieldErrors(errs []auth.FieldError) []models.FieldError {
	out := make([]models.FieldError, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.FieldError{Field: e.Field, Message: e.Message, Code: e.Code})
	}
	return out
}
