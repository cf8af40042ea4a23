package middleware

import (
	"net/http"

	zikauth "github.com/Fpierr/zikauth"
)

// AuthResultFromContext returns the result Authenticate attached to ctx.
var AuthResultFromContext = zikauth.AuthResultFromContext

// RequireAuthenticated rejects anonymous requests with 401. It must run after
// Authenticate.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := zikauth.AuthResultFromContext(r.Context()); !ok {
			WriteError(w, http.StatusUnauthorized, detailUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits authenticated users whose role is one of roles. Anonymous
// requests get 401, authenticated users with another role get 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := zikauth.AuthResultFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, detailUnauthorized)
				return
			}
			if _, ok := allowed[res.User.Role]; !ok {
				WriteError(w, http.StatusForbidden, detailForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
