package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/frahmantamala/time-tracking/internal/transport"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// ContextWithUser attaches the authenticated user to the request context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok
}

// Middleware authenticates requests via the Authorization header and puts
// the resolved user on the context. Requests without a valid bearer token
// are rejected with 401.
func Middleware(service *Service, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				base.WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				base.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			user, err := service.UserFromAccessToken(parts[1])
			if err != nil {
				base.HandleServiceError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}
