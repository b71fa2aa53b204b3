package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = stderrors.New("invalid token")

// TokenManager signs and verifies HS256 tokens for sessions and password resets.
type TokenManager struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, sessionTTL, resetTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

func (m *TokenManager) SessionTTL() time.Duration {
	return m.sessionTTL
}

func (m *TokenManager) IssueSession(account *models.Account) (string, time.Time, error) {
	return m.issue(account, models.TokenTypeSession, m.sessionTTL)
}

func (m *TokenManager) IssueReset(account *models.Account) (string, time.Time, error) {
	return m.issue(account, models.TokenTypeReset, m.resetTTL)
}

func (m *TokenManager) issue(account *models.Account, typ string, ttl time.Duration) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT secret not set")
	}
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := models.TokenClaims{
		AccountID: account.ID,
		Email:     account.Email,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, expiry and token type. Every failure is reported
// as ErrInvalidToken.
func (m *TokenManager) Parse(tokenStr, wantType string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != wantType || claims.AccountID <= 0 {
		return nil, fmt.Errorf("%w: unexpected token type or subject", ErrInvalidToken)
	}
	return claims, nil
}
