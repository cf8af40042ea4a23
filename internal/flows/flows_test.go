package flows

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Fpierr/zikauth/internal/channel"
	"github.com/Fpierr/zikauth/jwt"
	"github.com/Fpierr/zikauth/session"
	"github.com/stretchr/testify/require"
)

var (
	errNotFound    = errors.New("not found")
	errUnavailable = fmt.Errorf("%w: connection refused", session.ErrStoreUnavailable)
	errNoUser      = errors.New("no user")
)

type memSessions struct {
	mu      sync.Mutex
	next    int
	records map[string]*session.Record
	failGet error
	failDel error
	failNew error
}

func newMemSessions() *memSessions {
	return &memSessions{records: map[string]*session.Record{}}
}

func (m *memSessions) Create(_ context.Context, userID, csrf, jti string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNew != nil {
		return "", m.failNew
	}
	m.next++
	id := fmt.Sprintf("sid-%d", m.next)
	m.records[id] = &session.Record{SessionID: id, UserID: userID, CSRFToken: csrf, RefreshTokenID: jti}
	return id, nil
}

func (m *memSessions) Get(_ context.Context, sid string) (*session.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	rec, ok := m.records[sid]
	if !ok {
		return nil, errNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel != nil {
		return m.failDel
	}
	delete(m.records, sid)
	return nil
}

func (m *memSessions) has(sid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[sid]
	return ok
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	fail    error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{revoked: map[string]time.Time{}}
}

func (m *memRevocations) Revoke(_ context.Context, jti string, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	if _, ok := m.revoked[jti]; ok {
		return false, nil
	}
	m.revoked[jti] = until
	return true, nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

type fixture struct {
	jwt      *jwt.Manager
	sessions *memSessions
	revoked  *memRevocations
	users    map[string]UserRecord
	usersErr error
	// unknownVerifies counts calls to LoginDeps.VerifyUnknown.
	unknownVerifies int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	require.NoError(t, err)
	return &fixture{
		jwt:      m,
		sessions: newMemSessions(),
		revoked:  newMemRevocations(),
		users: map[string]UserRecord{
			"42": {UserID: "42", Identifier: "fan@example.com", PasswordHash: "hash:correct-horse", Role: "fan", Active: true},
			"7":  {UserID: "7", Identifier: "artist@example.com", PasswordHash: "hash:battery-staple", Role: "artist", Active: true},
			"9":  {UserID: "9", Identifier: "gone@example.com", PasswordHash: "hash:whatever-pass", Role: "fan", Active: false},
		},
	}
}

func (f *fixture) getUserByID(_ context.Context, id string) (UserRecord, error) {
	if f.usersErr != nil {
		return UserRecord{}, f.usersErr
	}
	u, ok := f.users[id]
	if !ok {
		return UserRecord{}, errNoUser
	}
	return u, nil
}

func (f *fixture) getUserByIdentifier(_ context.Context, ident string) (UserRecord, error) {
	if f.usersErr != nil {
		return UserRecord{}, f.usersErr
	}
	for _, u := range f.users {
		if u.Identifier == ident {
			return u, nil
		}
	}
	return UserRecord{}, errNoUser
}

func verifyFake(password, hash string) (bool, error) {
	if hash == "" {
		return false, errors.New("empty hash")
	}
	return hash == "hash:"+password, nil
}

func (f *fixture) loginDeps() LoginDeps {
	return LoginDeps{
		GetUserByIdentifier: f.getUserByIdentifier,
		UserNotFound:        errNoUser,
		VerifyPassword:      verifyFake,
		VerifyUnknown:       func(string) { f.unknownVerifies++ },
		IssueAccess:         f.jwt.CreateAccess,
		IssueRefresh:        f.jwt.CreateRefresh,
		NewCSRFToken:        func() (string, error) { return fmt.Sprintf("csrf-%d", time.Now().UnixNano()), nil },
		SessionStore:        f.sessions,
	}
}

func (f *fixture) authDeps() AuthenticateDeps {
	return AuthenticateDeps{
		ParseAccess:     f.jwt.ParseAccess,
		GetUserByID:     f.getUserByID,
		UserNotFound:    errNoUser,
		SessionStore:    f.sessions,
		SessionNotFound: errNotFound,
	}
}

func (f *fixture) refreshDeps() RefreshDeps {
	return RefreshDeps{
		ParseRefresh:    f.jwt.ParseRefresh,
		IssueAccess:     f.jwt.CreateAccess,
		IssueRefresh:    f.jwt.CreateRefresh,
		NewCSRFToken:    func() (string, error) { return fmt.Sprintf("csrf-%d", time.Now().UnixNano()), nil },
		SessionStore:    f.sessions,
		SessionNotFound: errNotFound,
		Revocations:     f.revoked,
		DeleteOnReuse:   true,
	}
}

func (f *fixture) logoutDeps() LogoutDeps {
	return LogoutDeps{
		ParseRefresh: f.jwt.ParseRefresh,
		SessionStore: f.sessions,
		Revocations:  f.revoked,
	}
}

func (f *fixture) login(t *testing.T, ident, password string) LoginResult {
	t.Helper()
	res := RunLogin(context.Background(), ident, password, f.loginDeps())
	require.Equal(t, FailureNone, res.Failure, "login failed: %v", res.Err)
	return res
}

func webReq(access, sid, csrf string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/me/", nil)
	r.Header.Set(channel.HeaderClientType, "web")
	r.AddCookie(&http.Cookie{Name: channel.CookieAccess, Value: access})
	r.AddCookie(&http.Cookie{Name: channel.CookieSession, Value: sid})
	r.Header.Set(channel.HeaderCSRF, csrf)
	return r
}

func mobileReq(access, sid, csrf string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/me/", nil)
	r.Header.Set(channel.HeaderClientType, "mobile")
	r.Header.Set(channel.HeaderAuthorization, "Bearer "+access)
	r.Header.Set(channel.HeaderSessionID, sid)
	r.Header.Set(channel.HeaderCSRF, csrf)
	return r
}
