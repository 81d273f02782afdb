package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role labels what an API caller may do.
type Role string

const (
	// RoleAdmin may seed and advance the simulation.
	RoleAdmin Role = "admin"
	// RoleViewer may only read state.
	RoleViewer Role = "viewer"
)

// JWTClaims represents the JWT payload for operator tokens.
type JWTClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// LoginRequest exchanges operator credentials for a token.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// TokenResponse is returned by the login endpoint and simctl token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        Role      `json:"role"`
}
