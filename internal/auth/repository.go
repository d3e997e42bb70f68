package auth

import (
	"context"
	"sync"
	"time"
)

// InMemoryMemberRepository is an in-memory implementation of MemberRepository.
// Used when the dashboard runs without a database.
type InMemoryMemberRepository struct {
	mu      sync.RWMutex
	members map[string]*Member // keyed by member ID
	byName  map[string]string  // name -> memberID
}

// NewInMemoryMemberRepository creates a new in-memory member repository.
func NewInMemoryMemberRepository() *InMemoryMemberRepository {
	return &InMemoryMemberRepository{
		members: make(map[string]*Member),
		byName:  make(map[string]string),
	}
}

// FindByName finds a member by their display name.
func (r *InMemoryMemberRepository) FindByName(_ context.Context, name string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberID, ok := r.byName[name]
	if !ok {
		return nil, ErrMemberNotFound
	}

	member, ok := r.members[memberID]
	if !ok {
		return nil, ErrMemberNotFound
	}

	memberCopy := *member
	return &memberCopy, nil
}

// Create creates a new member.
func (r *InMemoryMemberRepository) Create(_ context.Context, member *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	memberCopy := *member
	r.members[member.ID] = &memberCopy
	r.byName[member.Name] = member.ID

	return nil
}

// FindByID finds a member by their internal ID.
func (r *InMemoryMemberRepository) FindByID(_ context.Context, id string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.members[id]
	if !ok {
		return nil, ErrMemberNotFound
	}

	memberCopy := *member
	return &memberCopy, nil
}

// InMemoryRefreshTokenRepository is an in-memory implementation of RefreshTokenRepository.
type InMemoryRefreshTokenRepository struct {
	mu       sync.RWMutex
	tokens   map[string]*RefreshToken // keyed by token value
	byMember map[string][]string      // memberID -> list of token values
}

// NewInMemoryRefreshTokenRepository creates a new in-memory refresh token repository.
func NewInMemoryRefreshTokenRepository() *InMemoryRefreshTokenRepository {
	return &InMemoryRefreshTokenRepository{
		tokens:   make(map[string]*RefreshToken),
		byMember: make(map[string][]string),
	}
}

// Create stores a new refresh token.
func (r *InMemoryRefreshTokenRepository) Create(_ context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokenCopy := *token
	r.tokens[token.Token] = &tokenCopy
	r.byMember[token.MemberID] = append(r.byMember[token.MemberID], token.Token)

	return nil
}

// FindByToken finds a refresh token by its value.
func (r *InMemoryRefreshTokenRepository) FindByToken(_ context.Context, tokenValue string) (*RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[tokenValue]
	if !ok {
		return nil, ErrInvalidRefreshToken
	}

	tokenCopy := *token
	return &tokenCopy, nil
}

// Revoke marks a refresh token as revoked.
func (r *InMemoryRefreshTokenRepository) Revoke(_ context.Context, tokenValue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenValue]
	if !ok {
		return nil // already gone, treat as revoked
	}

	now := time.Now()
	token.RevokedAt = &now

	return nil
}

// RevokeAllForMember revokes all refresh tokens for a member.
func (r *InMemoryRefreshTokenRepository) RevokeAllForMember(_ context.Context, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokenValues, ok := r.byMember[memberID]
	if !ok {
		return nil
	}

	now := time.Now()
	for _, tokenValue := range tokenValues {
		if token, ok := r.tokens[tokenValue]; ok {
			token.RevokedAt = &now
		}
	}

	return nil
}
