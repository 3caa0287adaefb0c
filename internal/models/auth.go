package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	LoginID   string `json:"login_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse returns the new access token. The refresh token is
// deliberately not rotated on plain refresh; rotation happens at login and
// password change.
type RefreshTokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordResponse returns the freshly rotated token pair.
type ChangePasswordResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Message      string `json:"message"`
}

// UserInfo describes the authenticated user in responses. It never carries
// the password hash or refresh token.
type UserInfo struct {
	ID           string   `json:"id"`
	LoginID      string   `json:"login_id"`
	Role         UserRole `json:"role"`
	IsFirstLogin bool     `json:"is_first_login"`
	Name         string   `json:"name,omitempty"`
	Department   string   `json:"department,omitempty"`
}

// AccessClaims represents the JWT payload for access tokens.
type AccessClaims struct {
	UserID       string   `json:"user_id"`
	LoginID      string   `json:"login_id"`
	Role         UserRole `json:"role"`
	IsFirstLogin bool     `json:"is_first_login"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the JWT payload for refresh tokens. Only the user
// id and expiry are encoded; validity additionally requires byte equality
// with the token stored on the user record.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
