// Package authtest builds a miniredis-backed engine and a small user directory for
// HTTP-level tests.
package authtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	zikauth "github.com/Fpierr/zikauth"
	"github.com/Fpierr/zikauth/internal/userdir"
	"github.com/Fpierr/zikauth/password"
)

// Password is shared by every directory user.
const Password = "correct horse battery"

const (
	secret     = "0123456789abcdef0123456789abcdef-test-secret"
	sessionKey = "session-key-0123456789abcdef-0123456789"
)

// Directory users, one per role plus an inactive account.
const directory = `
users:
  - {id: "1", name: Root, email: admin@example.com, role: admin, password_hash: "HASH"}
  - {id: "3", name: Pat, email: promoter@example.com, role: promoter, password_hash: "HASH"}
  - {id: "7", name: Bo, email: bo@example.com, role: artist, password_hash: "HASH"}
  - {id: "42", name: Ada, email: ada@example.com, role: fan, password_hash: "HASH"}
  - {id: "9", name: Cy, email: cy@example.com, role: fan, password_hash: "HASH", active: false}
`

// Env is a running engine with its backing Redis.
type Env struct {
	Engine *zikauth.Engine
	MR     *miniredis.Miniredis
	Redis  *redis.Client
}

// Config returns a valid configuration with cheap password hashing.
func Config() zikauth.Config {
	cfg := zikauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(secret)
	cfg.JWT.Leeway = 0
	cfg.Session.Keys = [][]byte{[]byte(sessionKey)}
	cfg.Cookie.Secure = false
	cfg.Password = zikauth.PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return cfg
}

// New builds an engine. mutate runs after the default configuration is applied.
func New(t testing.TB, mutate ...func(*zikauth.Builder)) *Env {
	t.Helper()

	cfg := Config()
	ph, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	require.NoError(t, err)
	hash, err := ph.Hash(Password)
	require.NoError(t, err)

	dir, err := userdir.Parse(strings.NewReader(strings.ReplaceAll(directory, "HASH", hash)))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	b := zikauth.New().WithConfig(cfg).WithRedis(rdb).WithUserProvider(userdir.NewProvider(dir))
	for _, m := range mutate {
		m(b)
	}
	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &Env{Engine: engine, MR: mr, Redis: rdb}
}

// Login signs email in with Password.
func (e *Env) Login(t testing.TB, email string) *zikauth.Tokens {
	t.Helper()
	tok, err := e.Engine.Login(context.Background(), email, Password)
	require.NoError(t, err)
	return tok
}

// WebRequest carries tok the way a browser does.
func WebRequest(method, target string, tok *zikauth.Tokens) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("X-Client-Type", "web")
	r.AddCookie(&http.Cookie{Name: "access_token", Value: tok.AccessToken})
	r.AddCookie(&http.Cookie{Name: "session_id", Value: tok.SessionID})
	r.Header.Set("X-CSRF-Token", tok.CSRFToken)
	return r
}

// MobileRequest carries tok in headers.
func MobileRequest(method, target string, tok *zikauth.Tokens) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("X-Client-Type", "mobile")
	r.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	r.Header.Set("X-Session-Id", tok.SessionID)
	r.Header.Set("X-CSRF-Token", tok.CSRFToken)
	return r
}
