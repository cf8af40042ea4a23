package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	zikauth "github.com/Fpierr/zikauth"
	"github.com/Fpierr/zikauth/internal/logattr"
)

const (
	detailUnauthorized = "Authentication credentials were not provided or are invalid."
	detailForbidden    = "You do not have permission to perform this action."
	detailUnavailable  = "Authentication service temporarily unavailable."
)

type errorBody struct {
	Detail string `json:"detail"`
}

// Authenticate runs Engine.Authenticate on every request. Requests without a
// recognised client channel continue anonymously; every authentication failure
// stops the request with 401 and a generic body, backend failures with 503.
func Authenticate(engine *zikauth.Engine, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(engine, logger, func(r *http.Request) (*zikauth.AuthResult, error) {
		return engine.Authenticate(r)
	})
}

// AuthenticateForRefresh is Authenticate for the token refresh route. It honours
// the engine's refresh access policy, which may accept a recently expired access
// token.
func AuthenticateForRefresh(engine *zikauth.Engine, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(engine, logger, func(r *http.Request) (*zikauth.AuthResult, error) {
		return engine.AuthenticateForRefresh(r)
	})
}

func guard(engine *zikauth.Engine, logger *slog.Logger, authenticate func(*http.Request) (*zikauth.AuthResult, error)) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(logattr.Component("middleware"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, http.StatusServiceUnavailable, detailUnavailable)
				return
			}

			r = r.WithContext(zikauth.WithClientIP(r.Context(), clientIP(r)))

			res, err := authenticate(r)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(zikauth.WithAuthResult(r.Context(), res)))
			case errors.Is(err, zikauth.ErrNoChannel):
				next.ServeHTTP(w, r)
			case zikauth.IsUnavailable(err):
				logger.WarnContext(r.Context(), "authenticate: backend unavailable", logattr.Error(err))
				WriteError(w, http.StatusServiceUnavailable, detailUnavailable)
			default:
				WriteError(w, http.StatusUnauthorized, detailUnauthorized)
			}
		})
	}
}

// WriteError writes a {"detail": msg} JSON body with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: msg})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
