package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familyhub/internal/auth"
)

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "familyhub-api",
		Audience:   "familyhub",
	})

	member := &auth.Member{
		ID:        "mem_test123",
		Name:      "Alex",
		Role:      auth.RoleParent,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	token, expiresAt, err := svc.GenerateAccessToken(member)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, member.ID, claims.MemberID)
	assert.Equal(t, member.ID, claims.Subject)
	assert.Equal(t, "familyhub-api", claims.Issuer)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "familyhub-api",
		Audience:   "familyhub",
	})

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	svc1 := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "key-one",
		Issuer:     "familyhub-api",
		Audience:   "familyhub",
	})

	member := &auth.Member{ID: "mem_test123"}
	token, _, err := svc1.GenerateAccessToken(member)
	require.NoError(t, err)

	svc2 := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "key-two",
		Issuer:     "familyhub-api",
		Audience:   "familyhub",
	})

	_, err = svc2.ValidateAccessToken(token)
	assert.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_WrongIssuer(t *testing.T) {
	svc1 := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "issuer-one",
		Audience:   "familyhub",
	})

	member := &auth.Member{ID: "mem_test123"}
	token, _, err := svc1.GenerateAccessToken(member)
	require.NoError(t, err)

	svc2 := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "issuer-two",
		Audience:   "familyhub",
	})

	_, err = svc2.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestGenerateRefreshToken(t *testing.T) {
	token1, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token1)

	token2, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token2)

	// Tokens should be unique
	assert.NotEqual(t, token1, token2)

	// Tokens should be URL-safe base64
	assert.Regexp(t, `^[A-Za-z0-9_-]+$`, token1)
}
