package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ourfish-bknd/internal/auth"
)

// TokenVerifier checks a signed token and returns its claims.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// TokenVersionChecker reports whether a user's tokens of a version are still valid.
type TokenVersionChecker interface {
	CheckTokenVersion(ctx context.Context, userID string, tokenVersion int) (bool, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	versions TokenVersionChecker
	logr     *zap.Logger
}

type contextKey string

const (
	ContextUserIDKey  contextKey = "userID"
	ContextAuthMethod contextKey = "authMethod"
	ContextSessionKey contextKey = "sessionKey"
)

// NewAuthMiddleware creates a reusable JWT auth middleware instance
func NewAuthMiddleware(verifier TokenVerifier, versions TokenVersionChecker, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, versions: versions, logr: logr}
}

// JWTAuth validates the bearer access token and attaches the user to the
// request context.
func (m *AuthMiddleware) JWTAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "invalid token format", http.StatusUnauthorized)
			return
		}

		claims, err := m.verifier.VerifyToken(tokenString)
		if err != nil {
			m.logr.Warn("token parse error", zap.Error(err))
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		if claims.Kind != auth.AccessToken {
			http.Error(w, "access token required", http.StatusUnauthorized)
			return
		}

		valid, err := m.versions.CheckTokenVersion(r.Context(), claims.UserID, claims.TokenVersion)
		if err != nil {
			m.logr.Error("failed checking token version", zap.Error(err), zap.String("user_id", claims.UserID))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !valid {
			m.logr.Warn("token version invalid", zap.String("user_id", claims.UserID))
			http.Error(w, "token revoked or invalid", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ContextUserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, ContextAuthMethod, claims.AuthMethod)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ContextUserIDKey).(string)
	return id
}
