package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/port"

	"go.uber.org/zap"
)

type contextKey string

const sessionUserKey contextKey = "sessionUser"

// SessionMiddleware validates Bearer session tokens and injects the
// authenticated user into the request context.
func SessionMiddleware(verifier port.IdentityVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "session token required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			user, err := verifier.VerifyToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), sessionUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(sessionUserKey).(*domain.User)
	return u
}

// userID is a shorthand for the authenticated user's id; empty when the
// request did not pass through SessionMiddleware.
func userID(r *http.Request) string {
	if u := UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return ""
}
