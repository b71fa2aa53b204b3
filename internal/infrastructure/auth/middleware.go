package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/redis"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
)

type contextKey struct{}

var accountIDKey contextKey

// AccountIDFromContext returns the authenticated account id set by AuthMiddleware.
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok
}

func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AuthMiddleware accepts a bearer session token only while it is the one
// cached for its account. A missing token is 401, anything else rejected is 403.
func AuthMiddleware(tokens *TokenManager, redisClient redis.RedisClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "Access token required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				writeAuthError(w, http.StatusUnauthorized, "Access token required")
				return
			}
			tokenStr := parts[1]

			claims, err := tokens.Parse(tokenStr, models.TokenTypeSession)
			if err != nil {
				slog.Warn("rejected token", "method", "AuthMiddleware", "error", err)
				writeAuthError(w, http.StatusForbidden, "Invalid or expired token")
				return
			}

			storedToken, err := redisClient.Get(r.Context(), redis.SessionKey(claims.AccountID))
			if err != nil || storedToken != tokenStr {
				slog.Warn("invalid or revoked token", "method", "AuthMiddleware", "account_id", claims.AccountID, "error", err)
				writeAuthError(w, http.StatusForbidden, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), claims.AccountID)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
