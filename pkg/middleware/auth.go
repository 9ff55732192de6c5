package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/contextkeys"
	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/observability"
)

// Authenticator resolves an API token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.User, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	authenticator Authenticator
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authenticator Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Handler stores the request subject in the context
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ctx := contextkeys.WithSubject(r.Context(), auth.Anonymous())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteUnauthorized(w, "Invalid authorization header format")
			return
		}

		user, err := m.authenticator.Authenticate(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				observability.FromContext(r.Context()).WithError(err).Error("Token authentication failed")
			}
			httputil.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := contextkeys.WithSubject(r.Context(), auth.ForUser(user))
		ctx = contextkeys.WithUserID(ctx, user.ID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SubjectFromContext returns the request subject, anonymous when unset
func SubjectFromContext(ctx context.Context) auth.Subject {
	if subject, ok := ctx.Value(contextkeys.SubjectKey).(auth.Subject); ok {
		return subject
	}
	return auth.Anonymous()
}

// RequireUser rejects anonymous requests with 401
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SubjectFromContext(r.Context()).IsAnonymous() {
			httputil.WriteUnauthorized(w, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
