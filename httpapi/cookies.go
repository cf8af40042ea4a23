package httpapi

import (
	"net/http"
	"time"

	zikauth "github.com/Fpierr/zikauth"
)

const (
	cookieAccess  = "access_token"
	cookieRefresh = "refresh_token"
	cookieSession = "session_id"
	cookieCSRF    = "csrf_token"
)

type cookieWriter struct {
	cfg zikauth.CookieConfig
	// accessGrace keeps access_token in the browser past its expiry so an
	// allow_expired refresh policy can still see it.
	accessGrace time.Duration
	now         func() time.Time
}

func newCookieWriter(cfg zikauth.Config) cookieWriter {
	c := cookieWriter{cfg: cfg.Cookie, now: time.Now}
	if cfg.Refresh.AccessPolicy == zikauth.RefreshAllowExpiredAccess {
		c.accessGrace = cfg.Refresh.MaxExpiredAccessAge
	}
	return c
}

func (c cookieWriter) cookie(name, value string, sameSite http.SameSite, httpOnly bool, expires time.Time) *http.Cookie {
	maxAge := int(expires.Sub(c.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   c.cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: sameSite,
	}
}

// set writes the four credential cookies. Only csrf_token is readable by scripts;
// refresh_token is Lax so it survives top-level navigations back to the site.
func (c cookieWriter) set(w http.ResponseWriter, tok *zikauth.Tokens) {
	accessExp := tok.AccessExpiresAt.Add(c.accessGrace)
	if accessExp.After(tok.RefreshExpiresAt) {
		accessExp = tok.RefreshExpiresAt
	}
	http.SetCookie(w, c.cookie(cookieAccess, tok.AccessToken, http.SameSiteStrictMode, true, accessExp))
	http.SetCookie(w, c.cookie(cookieRefresh, tok.RefreshToken, http.SameSiteLaxMode, true, tok.RefreshExpiresAt))
	http.SetCookie(w, c.cookie(cookieSession, tok.SessionID, http.SameSiteStrictMode, true, tok.SessionExpiresAt))
	http.SetCookie(w, c.cookie(cookieCSRF, tok.CSRFToken, http.SameSiteStrictMode, false, tok.SessionExpiresAt))
}

// clear expires the four credential cookies.
func (c cookieWriter) clear(w http.ResponseWriter) {
	expired := time.Time{}
	http.SetCookie(w, c.cookie(cookieAccess, "", http.SameSiteStrictMode, true, expired))
	http.SetCookie(w, c.cookie(cookieRefresh, "", http.SameSiteLaxMode, true, expired))
	http.SetCookie(w, c.cookie(cookieSession, "", http.SameSiteStrictMode, true, expired))
	http.SetCookie(w, c.cookie(cookieCSRF, "", http.SameSiteStrictMode, false, expired))
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
