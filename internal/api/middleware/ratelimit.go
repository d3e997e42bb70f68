package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/familyhub/familyhub/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// RequestLimit is the number of requests allowed per window.
	RequestLimit int
	// WindowLength is the window duration.
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// AuthRateLimit applies to PIN and token endpoints (10 req/min).
	AuthRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// AIRateLimit applies to AI generation endpoints (30 req/min).
	AIRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to everything else (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware keyed by client IP.
// Uses X-Forwarded-For when present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

// RateLimitByMember creates a rate limiter keyed by the authenticated family
// member, falling back to IP for unauthenticated requests.
func RateLimitByMember(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByMemberOrIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

func keyByMemberOrIP(r *http.Request) (string, error) {
	if memberID := GetMemberID(r.Context()); memberID != "" {
		return "member:" + memberID, nil
	}
	return httprate.KeyByRealIP(r)
}

// rateLimitExceededHandler writes an RFC7807 Problem response when the rate
// limit is exceeded.
func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
	problem.Instance = r.URL.Path

	// httprate does not expose the exact reset time; a window length is a
	// safe upper bound.
	w.Header().Set("Retry-After", strconv.Itoa(60))

	problem.Write(w)
}
