package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/gitmap/internal/model"
)

// contextKey is unexported so only this package can place or read the
// authenticated user in a request context.
type contextKey string

const userKey contextKey = "user"

// Verifier resolves a raw bearer token to its user. The auth service
// implements it with the combined JWT + live-session check.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth enforces bearer authentication on protected routes. The token
// comes from the Authorization header (`Bearer <token>`); on success the
// resolved user is stored in the request context for handlers to read via
// UserFromContext. Missing or unverifiable tokens end the request with 401.
func RequireAuth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w, "No token provided")
				return
			}

			user, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user placed by RequireAuth.
// The second return is false on unauthenticated requests — which should not
// occur on protected routes, but handlers check anyway rather than panic.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// BearerToken extracts the token from the Authorization header, tolerating
// the scheme prefix in any case. Returns "" when absent.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
