package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familyhub/internal/auth"
)

func newTestService() *auth.Service {
	return auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: "test-secret-key-for-testing-only",
			Issuer:     "familyhub-api",
			Audience:   "familyhub",
		}),
		MemberRepo:  auth.NewInMemoryMemberRepository(),
		RefreshRepo: auth.NewInMemoryRefreshTokenRepository(),
	})
}

func TestService_LoginWithPIN(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	member, err := svc.RegisterMember(ctx, "Alex", auth.RoleParent, "4821")
	require.NoError(t, err)
	assert.NotEmpty(t, member.ID)
	assert.NotEmpty(t, member.PINHash)
	assert.NotEqual(t, "4821", member.PINHash)

	resp, err := svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "4821"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, member.ID, resp.Member.ID)

	memberID, err := svc.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, member.ID, memberID)
}

func TestService_LoginWithPIN_WrongPIN(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterMember(ctx, "Alex", auth.RoleParent, "4821")
	require.NoError(t, err)

	_, err = svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "0000"})
	assert.ErrorIs(t, err, auth.ErrInvalidPIN)
}

func TestService_LoginWithPIN_UnknownMember(t *testing.T) {
	svc := newTestService()

	// Unknown names fail the same way as wrong PINs.
	_, err := svc.LoginWithPIN(context.Background(), &auth.LoginRequest{Name: "Nobody", PIN: "1234"})
	assert.ErrorIs(t, err, auth.ErrInvalidPIN)
}

func TestService_EnsureMember_SeedsOnce(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	member, err := svc.EnsureMember(ctx, "Alex", auth.RoleParent, "4821")
	require.NoError(t, err)
	require.NotEmpty(t, member.ID)

	// Seeding again, even with a different PIN, keeps the existing account.
	again, err := svc.EnsureMember(ctx, "Alex", auth.RoleParent, "0000")
	require.NoError(t, err)
	assert.Equal(t, member.ID, again.ID)

	resp, err := svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "4821"})
	require.NoError(t, err)
	assert.Equal(t, member.ID, resp.Member.ID)

	_, err = svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "0000"})
	assert.ErrorIs(t, err, auth.ErrInvalidPIN)
}

func TestService_RefreshAccessToken_Rotation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterMember(ctx, "Alex", auth.RoleParent, "4821")
	require.NoError(t, err)

	login, err := svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "4821"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshAccessToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The old refresh token was revoked by rotation.
	_, err = svc.RefreshAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestService_RefreshAccessToken_Invalid(t *testing.T) {
	svc := newTestService()

	_, err := svc.RefreshAccessToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestService_RevokeRefreshToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RegisterMember(ctx, "Alex", auth.RoleParent, "4821")
	require.NoError(t, err)

	login, err := svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "4821"})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeRefreshToken(ctx, login.RefreshToken))

	_, err = svc.RefreshAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestService_RevokeAllTokens(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	member, err := svc.RegisterMember(ctx, "Alex", auth.RoleParent, "4821")
	require.NoError(t, err)

	login1, err := svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "4821"})
	require.NoError(t, err)
	login2, err := svc.LoginWithPIN(ctx, &auth.LoginRequest{Name: "Alex", PIN: "4821"})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllTokens(ctx, member.ID))

	_, err = svc.RefreshAccessToken(ctx, login1.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	_, err = svc.RefreshAccessToken(ctx, login2.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}
