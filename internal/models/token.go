package models

import "github.com/golang-jwt/jwt/v5"

const (
	TokenTypeSession = "session"
	TokenTypeReset   = "reset"
)

// TokenClaims is the payload of both session and password-reset tokens.
// Type keeps one from being accepted in place of the other.
type TokenClaims struct {
	AccountID int64  `json:"user_id"`
	Email     string `json:"email"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}
