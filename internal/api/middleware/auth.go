package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/familyhub/familyhub/internal/api/models"
)

// memberIDKey is the context key for the authenticated member ID.
type memberIDKey struct{}

// TokenVerifier validates an access token and returns the member ID it was
// issued to.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// Auth returns a middleware that validates Bearer tokens and stores the
// authenticated member ID in the request context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, r, "Missing Authorization header")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, r, "Authorization header must use the Bearer scheme")
				return
			}

			memberID, err := verifier.VerifyAccessToken(token)
			if err != nil {
				unauthorized(w, r, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), memberIDKey{}, memberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetMemberID retrieves the authenticated member ID from the context. Returns
// an empty string for unauthenticated requests.
func GetMemberID(ctx context.Context) string {
	if id, ok := ctx.Value(memberIDKey{}).(string); ok {
		return id
	}
	return ""
}
