package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMemberRepository is a PostgreSQL implementation of MemberRepository.
type PostgresMemberRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMemberRepository creates a new PostgreSQL member repository.
func NewPostgresMemberRepository(pool *pgxpool.Pool) *PostgresMemberRepository {
	return &PostgresMemberRepository{pool: pool}
}

// FindByName finds a member by their display name.
func (r *PostgresMemberRepository) FindByName(ctx context.Context, name string) (*Member, error) {
	query := `
		SELECT id, name, role, pin_hash, created_at, updated_at
		FROM members
		WHERE name = $1
	`

	var member Member
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&member.ID,
		&member.Name,
		&member.Role,
		&member.PINHash,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return &member, nil
}

// Create creates a new member.
func (r *PostgresMemberRepository) Create(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO members (id, name, role, pin_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		member.ID,
		member.Name,
		member.Role,
		member.PINHash,
		member.CreatedAt,
		member.UpdatedAt,
	)
	return err
}

// FindByID finds a member by their internal ID.
func (r *PostgresMemberRepository) FindByID(ctx context.Context, id string) (*Member, error) {
	query := `
		SELECT id, name, role, pin_hash, created_at, updated_at
		FROM members
		WHERE id = $1
	`

	var member Member
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&member.ID,
		&member.Name,
		&member.Role,
		&member.PINHash,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return &member, nil
}

// PostgresRefreshTokenRepository is a PostgreSQL implementation of RefreshTokenRepository.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenRepository creates a new PostgreSQL refresh token repository.
func NewPostgresRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

// Create stores a new refresh token.
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, token, member_id, expires_at, created_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.Token,
		token.MemberID,
		token.ExpiresAt,
		token.CreatedAt,
		token.RevokedAt,
	)
	return err
}

// FindByToken finds a refresh token by its value.
func (r *PostgresRefreshTokenRepository) FindByToken(ctx context.Context, tokenValue string) (*RefreshToken, error) {
	query := `
		SELECT id, token, member_id, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token = $1
	`

	var token RefreshToken
	err := r.pool.QueryRow(ctx, query, tokenValue).Scan(
		&token.ID,
		&token.Token,
		&token.MemberID,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	return &token, nil
}

// Revoke marks a refresh token as revoked.
func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, tokenValue string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE token = $2 AND revoked_at IS NULL
	`

	_, err := r.pool.Exec(ctx, query, time.Now(), tokenValue)
	return err
}

// RevokeAllForMember revokes all refresh tokens for a member.
func (r *PostgresRefreshTokenRepository) RevokeAllForMember(ctx context.Context, memberID string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE member_id = $2 AND revoked_at IS NULL
	`

	_, err := r.pool.Exec(ctx, query, time.Now(), memberID)
	return err
}
