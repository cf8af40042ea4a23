package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fpierr/zikauth/session"
)

func TestLoginCreatesSession(t *testing.T) {
	f := newFixture(t)
	res := f.login(t, "fan@example.com", "correct-horse")

	assert.Equal(t, "42", res.User.UserID)
	assert.NotEmpty(t, res.Access.Token)
	assert.NotEmpty(t, res.Refresh.Token)
	assert.NotEmpty(t, res.CSRFToken)

	rec, err := f.sessions.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "42", rec.UserID)
	assert.Equal(t, res.CSRFToken, rec.CSRFToken)
	assert.Equal(t, res.Refresh.TokenID, rec.RefreshTokenID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	cases := map[string][2]string{
		"wrong password": {"fan@example.com", "nope-nope-nope"},
		"unknown user":   {"nobody@example.com", "correct-horse"},
		"inactive user":  {"gone@example.com", "whatever-pass"},
		"empty password": {"fan@example.com", ""},
		"empty ident":    {"", "correct-horse"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			res := RunLogin(context.Background(), c[0], c[1], f.loginDeps())
			assert.Equal(t, FailureInvalidCredentials, res.Failure)
			assert.Empty(t, res.SessionID)
		})
	}
	assert.Empty(t, f.sessions.records)
}

func TestLoginUnknownUserSpendsOneVerification(t *testing.T) {
	f := newFixture(t)

	res := RunLogin(context.Background(), "nobody@example.com", "correct-horse", f.loginDeps())
	assert.Equal(t, FailureInvalidCredentials, res.Failure)
	assert.Equal(t, 1, f.unknownVerifies)

	res = RunLogin(context.Background(), "fan@example.com", "nope-nope-nope", f.loginDeps())
	assert.Equal(t, FailureInvalidCredentials, res.Failure)
	assert.Equal(t, 1, f.unknownVerifies)

	f.usersErr = errUnavailable
	RunLogin(context.Background(), "fan@example.com", "correct-horse", f.loginDeps())
	assert.Equal(t, 1, f.unknownVerifies)
}

func TestLoginInfrastructureFailures(t *testing.T) {
	f := newFixture(t)

	f.usersErr = errUnavailable
	res := RunLogin(context.Background(), "fan@example.com", "correct-horse", f.loginDeps())
	assert.Equal(t, FailureUserProviderUnavailable, res.Failure)

	f.usersErr = nil
	f.sessions.failNew = errUnavailable
	res = RunLogin(context.Background(), "fan@example.com", "correct-horse", f.loginDeps())
	assert.Equal(t, FailureStoreUnavailable, res.Failure)
	assert.ErrorIs(t, res.Err, errUnavailable)
}

func TestLoginNonBackendCreateErrorsAreInternal(t *testing.T) {
	f := newFixture(t)

	for name, err := range map[string]error{
		"collision": session.ErrSessionIDCollision,
		"encode":    errors.New("csrfToken too long"),
	} {
		t.Run(name, func(t *testing.T) {
			f.sessions.failNew = err
			res := RunLogin(context.Background(), "fan@example.com", "correct-horse", f.loginDeps())
			assert.Equal(t, FailureInternal, res.Failure)
			assert.ErrorIs(t, res.Err, err)
		})
	}
}
