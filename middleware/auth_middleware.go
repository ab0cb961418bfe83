package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/utils"
)

// DefaultTokenCookieName is read when the Authorization header is absent
const DefaultTokenCookieName = "access_token"

// IdentityResolver turns a bearer token into the user it was issued to
type IdentityResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	resolver   IdentityResolver
	cookieName string
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver IdentityResolver, cookieName string, logger *zap.Logger) *AuthMiddleware {
	if cookieName == "" {
		cookieName = DefaultTokenCookieName
	}
	return &AuthMiddleware{
		resolver:   resolver,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireAuth rejects requests without a valid access token and stores the
// resolved user in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := m.extractToken(r)
		if token == "" {
			m.logger.Debug("missing token", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Not authenticated")
			return
		}

		user, err := m.resolver.ResolveToken(ctx, token)
		if err != nil || user == nil {
			m.logger.Warn("token rejected", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Could not validate credentials")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", user.ID.String()))

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
	})
}

// extractToken reads the Bearer token from the Authorization header, falling
// back to the token cookie. The header takes precedence when both are present.
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		// Browsers may store the value as "Bearer <token>"
		value := strings.TrimSpace(cookie.Value)
		if parts := strings.SplitN(value, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			value = strings.TrimSpace(parts[1])
		}
		return value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
