// Package auth provides PIN-based authentication for family members.
package auth

import "time"

// Member roles.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// Member represents a family member account.
type Member struct {
	ID        string    `json:"memberId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	PINHash   string    `json:"-"` // bcrypt hash, never exposed in API
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoginRequest represents a PIN login request.
type LoginRequest struct {
	// Name is the family member's display name.
	Name string `json:"name"`

	// PIN is the member's numeric PIN.
	PIN string `json:"pin"`
}

// Validate validates the login request.
func (r *LoginRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Name == "" {
		errors = append(errors, FieldError{
			Field:   "name",
			Message: "name is required",
			Code:    "REQUIRED",
		})
	}

	if r.PIN == "" {
		errors = append(errors, FieldError{
			Field:   "pin",
			Message: "pin is required",
			Code:    "REQUIRED",
		})
	}

	return errors
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TokenResponse represents the response after successful authentication.
type TokenResponse struct {
	// AccessToken is the JWT access token for API authentication.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64 `json:"expiresIn"`

	// RefreshToken is the opaque token used to obtain new access tokens.
	RefreshToken string `json:"refreshToken,omitempty"`

	// Member contains the authenticated member's information.
	Member *Member `json:"member"`
}

// RefreshTokenRequest represents the request to refresh an access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate validates the refresh token request.
func (r *RefreshTokenRequest) Validate() []FieldError {
	var errors []FieldError

	if r.RefreshToken == "" {
		errors = append(errors, FieldError{
			Field:   "refreshToken",
			Message: "refresh token is required",
			Code:    "REQUIRED",
		})
	}

	return errors
}
