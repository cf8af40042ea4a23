package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zikauth "github.com/Fpierr/zikauth"
)

func TestCookieWriterAttributes(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cfg := zikauth.DefaultConfig()
	cfg.Cookie.Domain = "example.com"
	c := newCookieWriter(cfg)
	c.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	c.set(rec, &zikauth.Tokens{
		AccessToken:      "a",
		AccessExpiresAt:  now.Add(30 * time.Minute),
		RefreshToken:     "r",
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		SessionID:        "s",
		SessionExpiresAt: now.Add(2 * time.Hour),
		CSRFToken:        "c",
	})

	jar := cookiesOf(rec)
	require.Len(t, jar, 4)
	for _, ck := range jar {
		assert.True(t, ck.Secure)
		assert.Equal(t, "example.com", ck.Domain)
	}
	assert.Equal(t, 1800, jar[cookieAccess].MaxAge)
	assert.Equal(t, 7*24*3600, jar[cookieRefresh].MaxAge)
	assert.Equal(t, 7200, jar[cookieSession].MaxAge)
	assert.Equal(t, 7200, jar[cookieCSRF].MaxAge)
}

func TestCookieWriterAccessGrace(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cfg := zikauth.DefaultConfig()
	cfg.Refresh.AccessPolicy = zikauth.RefreshAllowExpiredAccess
	cfg.Refresh.MaxExpiredAccessAge = time.Hour
	c := newCookieWriter(cfg)
	c.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	c.set(rec, &zikauth.Tokens{
		AccessExpiresAt:  now.Add(30 * time.Minute),
		RefreshExpiresAt: now.Add(time.Hour),
		SessionExpiresAt: now.Add(2 * time.Hour),
	})
	assert.Equal(t, 3600, cookiesOf(rec)[cookieAccess].MaxAge, "capped at the refresh expiry")
}

func TestCookieValue(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, cookieValue(r, cookieRefresh))
	r.AddCookie(&http.Cookie{Name: cookieRefresh, Value: "x"})
	assert.Equal(t, "x", cookieValue(r, cookieRefresh))
}
