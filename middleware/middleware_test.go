package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zikauth "github.com/Fpierr/zikauth"
	"github.com/Fpierr/zikauth/internal/authtest"
)

// whoami echoes the authenticated user id, or "anonymous".
var whoami = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	res, ok := AuthResultFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(res.UserID))
})

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Detail
}

func TestAuthenticateStoresResult(t *testing.T) {
	env := authtest.New(t)
	h := Authenticate(env.Engine, nil)(whoami)

	rec := serve(h, authtest.WebRequest(http.MethodGet, "/", env.Login(t, "ada@example.com")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())

	rec = serve(h, authtest.MobileRequest(http.MethodGet, "/", env.Login(t, "bo@example.com")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Body.String())
}

func TestAuthenticateContinuesAnonymously(t *testing.T) {
	env := authtest.New(t)
	h := Authenticate(env.Engine, nil)(whoami)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestAuthenticateFailuresShareOneBody(t *testing.T) {
	env := authtest.New(t)
	h := Authenticate(env.Engine, nil)(whoami)
	tok := env.Login(t, "ada@example.com")

	wrongCSRF := authtest.WebRequest(http.MethodGet, "/", tok)
	wrongCSRF.Header.Set("X-CSRF-Token", "nope")

	mixed := authtest.WebRequest(http.MethodGet, "/", tok)
	mixed.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	badBearer := authtest.MobileRequest(http.MethodGet, "/", tok)
	badBearer.Header.Set("Authorization", "Bearer garbage")

	for name, r := range map[string]*http.Request{
		"csrf":   wrongCSRF,
		"mixed":  mixed,
		"bearer": badBearer,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(h, r)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, detailUnauthorized, decodeDetail(t, rec))
		})
	}
}

func TestAuthenticateBackendDownIs503(t *testing.T) {
	env := authtest.New(t)
	h := Authenticate(env.Engine, nil)(whoami)
	tok := env.Login(t, "ada@example.com")

	env.MR.Close()
	rec := serve(h, authtest.WebRequest(http.MethodGet, "/", tok))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, detailUnavailable, decodeDetail(t, rec))
}

func TestAuthenticateNilEngine(t *testing.T) {
	rec := serve(Authenticate(nil, nil)(whoami), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func nextEvent(t *testing.T, sink *zikauth.ChannelSink) zikauth.AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event")
		return zikauth.AuditEvent{}
	}
}

func TestAuthenticateRecordsClientIP(t *testing.T) {
	sink := zikauth.NewChannelSink(8)
	env := authtest.New(t, func(b *zikauth.Builder) { b.WithAuditSink(sink) })
	h := Authenticate(env.Engine, nil)(whoami)
	tok := env.Login(t, "ada@example.com")
	nextEvent(t, sink) // login_success

	r := authtest.WebRequest(http.MethodGet, "/", tok)
	r.RemoteAddr = "203.0.113.9:51000"
	r.Header.Set("X-CSRF-Token", "nope")
	serve(h, r)

	ev := nextEvent(t, sink)
	assert.Equal(t, zikauth.AuditEventAuthFailure, ev.EventType)
	assert.Equal(t, "203.0.113.9", ev.IP)
}

func TestRequireAuthenticated(t *testing.T) {
	env := authtest.New(t)
	h := Authenticate(env.Engine, nil)(RequireAuthenticated(whoami))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, authtest.WebRequest(http.MethodGet, "/", env.Login(t, "ada@example.com")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	env := authtest.New(t)
	h := Authenticate(env.Engine, nil)(RequireRole("artist", "admin")(whoami))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, authtest.WebRequest(http.MethodGet, "/", env.Login(t, "ada@example.com")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, detailForbidden, decodeDetail(t, rec))

	rec = serve(h, authtest.MobileRequest(http.MethodGet, "/", env.Login(t, "bo@example.com")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, authtest.WebRequest(http.MethodGet, "/", env.Login(t, "admin@example.com")))
	assert.Equal(t, http.StatusOK, rec.Code)
}
