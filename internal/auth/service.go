package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Predefined service errors.
var (
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidPIN     = errors.New("invalid PIN")
)

// MemberRepository defines the interface for member data operations.
type MemberRepository interface {
	// FindByName finds a member by their display name.
	FindByName(ctx context.Context, name string) (*Member, error)

	// Create creates a new member.
	Create(ctx context.Context, member *Member) error

	// FindByID finds a member by their internal ID.
	FindByID(ctx context.Context, id string) (*Member, error)
}

// RefreshTokenRepository defines the interface for refresh token operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token.
	Create(ctx context.Context, token *RefreshToken) error

	// FindByToken finds a refresh token by its value.
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)

	// Revoke marks a refresh token as revoked.
	Revoke(ctx context.Context, token string) error

	// RevokeAllForMember revokes all refresh tokens for a member.
	RevokeAllForMember(ctx context.Context, memberID string) error
}

// Service provides authentication operations.
type Service struct {
	jwtService  *JWTService
	memberRepo  MemberRepository
	refreshRepo RefreshTokenRepository
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService  *JWTService
	MemberRepo  MemberRepository
	RefreshRepo RefreshTokenRepository
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService:  cfg.JWTService,
		memberRepo:  cfg.MemberRepo,
		refreshRepo: cfg.RefreshRepo,
	}
}

// LoginWithPIN authenticates a family member by name and PIN.
// A wrong name and a wrong PIN both return ErrInvalidPIN so the response
// does not reveal which members exist.
func (s *Service) LoginWithPIN(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validation error: %s", errs[0].Message)
	}

	member, err := s.memberRepo.FindByName(ctx, req.Name)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrInvalidPIN
		}
		return nil, fmt.Errorf("finding member: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PINHash), []byte(req.PIN)); err != nil {
		return nil, ErrInvalidPIN
	}

	return s.generateTokens(ctx, member)
}

// RefreshAccessToken refreshes an access token using a refresh token.
// The presented refresh token is revoked and a new one issued (rotation).
func (s *Service) RefreshAccessToken(ctx context.Context, refreshTokenStr string) (*TokenResponse, error) {
	refreshToken, err := s.refreshRepo.FindByToken(ctx, refreshTokenStr)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if refreshToken.RevokedAt != nil {
		return nil, ErrInvalidRefreshToken
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	member, err := s.memberRepo.FindByID(ctx, refreshToken.MemberID)
	if err != nil {
		return nil, ErrMemberNotFound
	}

	if err := s.refreshRepo.Revoke(ctx, refreshTokenStr); err != nil {
		return nil, fmt.Errorf("revoking old refresh token: %w", err)
	}

	return s.generateTokens(ctx, member)
}

// VerifyAccessToken validates an access token and returns the member ID.
func (s *Service) VerifyAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.MemberID, nil
}

// GetMember retrieves a member by ID.
func (s *Service) GetMember(ctx context.Context, memberID string) (*Member, error) {
	return s.memberRepo.FindByID(ctx, memberID)
}

// RevokeRefreshToken revokes a specific refresh token (logout).
func (s *Service) RevokeRefreshToken(ctx context.Context, refreshTokenStr string) error {
	return s.refreshRepo.Revoke(ctx, refreshTokenStr)
}

// RevokeAllTokens revokes all refresh tokens for a member (logout everywhere).
func (s *Service) RevokeAllTokens(ctx context.Context, memberID string) error {
	return s.refreshRepo.RevokeAllForMember(ctx, memberID)
}

// RegisterMember creates a new family member with a hashed PIN.
func (s *Service) RegisterMember(ctx context.Context, name, role, pin string) (*Member, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing PIN: %w", err)
	}

	now := time.Now()
	member := &Member{
		ID:        generateMemberID(),
		Name:      name,
		Role:      role,
		PINHash:   string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("creating member: %w", err)
	}

	return member, nil
}

// EnsureMember registers a member unless one with that name already exists.
// Existing members keep their stored PIN hash, so seeding from configuration
// at startup is idempotent against a persistent store.
func (s *Service) EnsureMember(ctx context.Context, name, role, pin string) (*Member, error) {
	member, err := s.memberRepo.FindByName(ctx, name)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, ErrMemberNotFound) {
		return nil, fmt.Errorf("finding member: %w", err)
	}
	return s.RegisterMember(ctx, name, role, pin)
}

// generateTokens generates both access and refresh tokens for a member.
func (s *Service) generateTokens(ctx context.Context, member *Member) (*TokenResponse, error) {
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(member)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	refreshTokenStr, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	refreshToken := &RefreshToken{
		ID:        uuid.New().String(),
		Token:     refreshTokenStr,
		MemberID:  member.ID,
		ExpiresAt: time.Now().Add(RefreshTokenExpiry),
		CreatedAt: time.Now(),
	}

	if err := s.refreshRepo.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(expiresAt).Seconds()),
		RefreshToken: refreshTokenStr,
		Member:       member,
	}, nil
}

// generateMemberID generates a unique member ID with prefix.
func generateMemberID() string {
	return "mem_" + uuid.New().String()[:22]
}
