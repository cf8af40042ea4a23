package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	zikauth "github.com/Fpierr/zikauth"
	"github.com/Fpierr/zikauth/middleware"
)

const maxBodyBytes = 1 << 20

const (
	detailBadRequest         = "Malformed request body."
	detailInvalidCredentials = "No active account found with the given credentials."
	detailUnauthorized       = "Authentication credentials were not provided or are invalid."
	detailUnavailable        = "Authentication service temporarily unavailable."
	detailInternal           = "Internal server error."
)

type messageBody struct {
	Message string `json:"message"`
}

type userBody struct {
	User zikauth.Identity `json:"user"`
}

// tokenBody is the mobile rendition of zikauth.Tokens.
type tokenBody struct {
	Refresh   string           `json:"refresh"`
	Access    string           `json:"access"`
	CSRFToken string           `json:"csrf_token"`
	SessionID string           `json:"session_id"`
	User      zikauth.Identity `json:"user"`
}

func newTokenBody(tok *zikauth.Tokens) tokenBody {
	return tokenBody{
		Refresh:   tok.RefreshToken,
		Access:    tok.AccessToken,
		CSRFToken: tok.CSRFToken,
		SessionID: tok.SessionID,
		User:      tok.User,
	}
}

// decodeJSON reads a JSON object into dest. An empty body leaves dest untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondEngineError maps engine errors onto status codes. Authentication failures
// all share one body.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, zikauth.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, detailInvalidCredentials)
	case zikauth.IsAuthFailure(err):
		middleware.WriteError(w, http.StatusUnauthorized, detailUnauthorized)
	case zikauth.IsUnavailable(err):
		middleware.WriteError(w, http.StatusServiceUnavailable, detailUnavailable)
	default:
		middleware.WriteError(w, http.StatusInternalServerError, detailInternal)
	}
}
