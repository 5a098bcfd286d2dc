package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/nrahman/jobtrack/internal/model"
)

// UserSource is the slice of the credential store the middleware needs.
// The sqlite repository satisfies it; tests use an in-memory fake.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// contextKey is unexported so only this package can read or write the
// identity value in a request context.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth authenticates every request passing through it.
//
// It extracts the bearer token from the Authorization header, verifies the
// signature and expiry, then re-reads the user's current row from the store
// by subject id. The username and role embedded in the token are NOT
// trusted: an admin demotion or account deletion takes effect on the very
// next request, not after up to 8 hours of token validity. Do not
// "optimize" the store read away; it is the whole point.
//
// On success the fresh identity is attached to the request context for
// handlers to read via Identity().
func RequireAuth(tokens *TokenService, users UserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				unauthorized(w, "token expired or invalid")
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.Subject)
			if err != nil {
				// Row gone: the account was deleted after the token was
				// issued. The token is now worthless.
				unauthorized(w, "token expired or invalid")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin role. It must run inside
// RequireAuth, which guarantees the context identity reflects the store's
// current role, not the token's.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := Identity(r.Context())
		if !ok {
			unauthorized(w, "valid authentication required")
			return
		}
		if user.Role != model.RoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden","message":"admin access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Identity returns the authenticated user attached by RequireAuth.
// The second return is false on unauthenticated requests.
func Identity(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(identityKey).(*model.User)
	return user, ok && user != nil
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthenticated","message":"` + message + `"}`))
}
