package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	zikauth "github.com/Fpierr/zikauth"
	"github.com/Fpierr/zikauth/internal/logattr"
	"github.com/Fpierr/zikauth/middleware"
)

type handlers struct {
	engine  *zikauth.Engine
	logger  *slog.Logger
	cookies cookieWriter
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func isMobileLogin(r *http.Request) bool {
	return strings.ToLower(r.Header.Get("X-Client-Type")) == "mobile"
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, detailBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Both email and password are required.")
		return
	}

	ctx := zikauth.WithClientIP(r.Context(), clientIP(r))
	tok, err := h.engine.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	if isMobileLogin(r) {
		respondJSON(w, http.StatusOK, newTokenBody(tok))
		return
	}
	h.cookies.set(w, tok)
	respondJSON(w, http.StatusOK, userBody{User: tok.User})
}

// refresh rotates the caller's tokens. Web clients present refresh_token and
// session_id cookies; mobile clients send {"refresh": ...} and X-Session-Id.
func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())

	req := zikauth.RefreshRequest{}
	switch auth.Channel {
	case zikauth.ChannelMobile:
		var body refreshRequest
		if err := decodeJSON(w, r, &body, true); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, detailBadRequest)
			return
		}
		req.RefreshToken = body.Refresh
		req.SessionID = r.Header.Get("X-Session-Id")
	default:
		req.RefreshToken = cookieValue(r, cookieRefresh)
		req.SessionID = cookieValue(r, cookieSession)
	}
	if req.RefreshToken == "" || req.SessionID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, detailUnauthorized)
		return
	}

	tok, err := h.engine.Refresh(r.Context(), auth, req)
	if err != nil {
		if errors.Is(err, zikauth.ErrRefreshReuse) && auth.Channel == zikauth.ChannelWeb {
			h.cookies.clear(w)
		}
		respondEngineError(w, err)
		return
	}

	if auth.Channel == zikauth.ChannelMobile {
		respondJSON(w, http.StatusOK, newTokenBody(tok))
		return
	}
	h.cookies.set(w, tok)
	respondJSON(w, http.StatusOK, messageBody{Message: "Access token refreshed"})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())

	req := zikauth.LogoutRequest{}
	if auth.Channel == zikauth.ChannelMobile {
		var body refreshRequest
		if err := decodeJSON(w, r, &body, true); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, detailBadRequest)
			return
		}
		req.RefreshToken = body.Refresh
	} else {
		req.RefreshToken = cookieValue(r, cookieRefresh)
	}

	if err := h.engine.Logout(r.Context(), auth, req); err != nil {
		respondEngineError(w, err)
		return
	}

	if auth.Channel == zikauth.ChannelWeb {
		h.cookies.clear(w)
	}
	respondJSON(w, http.StatusOK, messageBody{Message: "Logged out"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	respondJSON(w, http.StatusOK, userBody{User: auth.User})
}

func welcome(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, messageBody{Message: message})
	}
}

type healthBody struct {
	Status       string  `json:"status"`
	RedisLatency float64 `json:"redis_latency_ms,omitempty"`
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	latency, err := h.engine.Ping(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "healthz: session backend unreachable", logattr.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, healthBody{
		Status:       "ok",
		RedisLatency: float64(latency) / float64(time.Millisecond),
	})
}
