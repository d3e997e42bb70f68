package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/familyhub/familyhub/internal/api/middleware"
)

type stubVerifier struct {
	memberID string
	err      error
}

func (s *stubVerifier) VerifyAccessToken(_ string) (string, error) {
	return s.memberID, s.err
}

func authHandler(verifier middleware.TokenVerifier) (http.Handler, *string) {
	var captured string
	h := middleware.Auth(verifier)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = middleware.GetMemberID(r.Context())
	}))
	return h, &captured
}

func TestAuth_ValidToken(t *testing.T) {
	handler, captured := authHandler(&stubVerifier{memberID: "mem_123"})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mem_123", *captured)
}

func TestAuth_MissingHeader(t *testing.T) {
	handler, captured := authHandler(&stubVerifier{memberID: "mem_123"})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Empty(t, *captured)
}

func TestAuth_WrongScheme(t *testing.T) {
	handler, _ := authHandler(&stubVerifier{memberID: "mem_123"})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	handler, _ := authHandler(&stubVerifier{err: errors.New("expired")})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
