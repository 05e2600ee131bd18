package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/scholarnet/reco/internal/api/response"
)

type contextKey string

// UserIDContextKey carries the authenticated user id through the request context.
const UserIDContextKey contextKey = "user_id"

// SessionResolver maps a bearer token to the user it belongs to.
type SessionResolver interface {
	ResolveUserID(ctx context.Context, token string) (string, error)
}

// Auth validates session bearer tokens from the Authorization header and puts
// the resolved user id in the request context. Failures are 401 problem
// responses; lookup errors are deliberately indistinguishable from bad tokens.
func Auth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.RespondUnauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				response.RespondUnauthorized(w, "Invalid Authorization header format. Expected: Bearer <token>")
				return
			}

			token := parts[1]
			if token == "" {
				response.RespondUnauthorized(w, "Bearer token is empty")
				return
			}

			userID, err := sessions.ResolveUserID(r.Context(), token)
			if err != nil {
				response.RespondUnauthorized(w, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id set by Auth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(string)

	return userID, ok && userID != ""
}
