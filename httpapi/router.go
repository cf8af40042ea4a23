package httpapi

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	zikauth "github.com/Fpierr/zikauth"
	"github.com/Fpierr/zikauth/internal/logattr"
	"github.com/Fpierr/zikauth/middleware"
)

// Options configures NewRouter. Engine is required.
type Options struct {
	Engine *zikauth.Engine
	Logger *slog.Logger

	// AllowedOrigins for credentialed cross-origin requests. Empty disables CORS.
	AllowedOrigins []string

	// LoginRateLimit caps login attempts per client IP within LoginRateWindow.
	// Zero disables the limit.
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
}

// NewRouter builds the HTTP API.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(logattr.Component("httpapi"))

	h := &handlers{
		engine:  opts.Engine,
		logger:  logger,
		cookies: newCookieWriter(opts.Engine.Config()),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Client-Type", "X-Session-Id"},
			AllowCredentials: true,
			MaxAge:           int((10 * time.Minute).Seconds()),
		}))
	}

	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	loginLimit := func(next http.Handler) http.Handler { return next }
	if opts.LoginRateLimit > 0 {
		window := opts.LoginRateWindow
		if window <= 0 {
			window = time.Minute
		}
		loginLimit = httprate.LimitByIP(opts.LoginRateLimit, window)
	}
	r.With(loginLimit).Post("/login/", h.login)

	r.With(
		middleware.AuthenticateForRefresh(opts.Engine, logger),
		middleware.RequireAuthenticated,
	).Post("/token/refresh-from-cookie/", h.refresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Engine, logger))
		r.Use(middleware.RequireAuthenticated)

		r.Get("/me/", h.me)
		r.Post("/logout/", h.logout)

		r.With(middleware.RequireRole("admin")).Get("/admin-area/", welcome("Welcome Admin!"))
		r.With(middleware.RequireRole("promoter")).Get("/promoter-area/", welcome("Welcome Promoter!"))
		r.With(middleware.RequireRole("artist")).Get("/artist-area/", welcome("Welcome Artist!"))
		r.With(middleware.RequireRole("fan")).Get("/fan-area/", welcome("Welcome Fan!"))
	})

	return r
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
