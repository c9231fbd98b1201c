package middleware

import (
	"context"
	"net/http"
	"strings"

	"eventhub/internal/data/entity"
	"eventhub/internal/data/repository"
	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

// Authenticator resolves a raw session token. A nil identity with a nil
// error means the token is not acceptable.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*utils.SessionIdentity, error)
}

// AuthSession rejects requests without a valid session token.
func AuthSession(auth Authenticator, cookieName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return session(auth, cookieName, logger, true)
}

// OptionalSession attaches the identity when a valid token is present and
// lets every request through.
func OptionalSession(auth Authenticator, cookieName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return session(auth, cookieName, logger, false)
}

func session(auth Authenticator, cookieName string, logger *zap.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r, cookieName)
			if raw == "" {
				if required {
					utils.ResponseUnauthorized(w, "Missing session")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				logger.Error("Failed to validate session", zap.Error(err))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}

			if identity == nil {
				if required {
					logger.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
					utils.ResponseUnauthorized(w, "Invalid or expired session")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := utils.SetIdentityContext(r.Context(), *identity)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole reloads the caller from the store so a demoted user loses
// access before their token expires.
func RequireRole(userRepo repository.UserRepository, logger *zap.Logger, roles ...entity.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			user, err := userRepo.FindByID(r.Context(), userID)
			if err != nil {
				logger.Error("Role check: failed to get user",
					zap.Error(err), zap.String("user_id", userID.String()))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}

			if user != nil {
				for _, role := range roles {
					if user.Role == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			logger.Warn("Role check: access denied",
				zap.String("user_id", userID.String()),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, "Insufficient role")
		})
	}
}

// extractToken prefers the session cookie and falls back to a Bearer header.
func extractToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	scheme, tok, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
