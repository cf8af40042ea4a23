package zikauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoutDeletesSessionAndBlacklistsRefresh(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "ada@example.com")
	caller := env.auth(t, tok)

	require.NoError(t, env.engine.Logout(context.Background(), caller, LogoutRequest{RefreshToken: tok.RefreshToken}))

	_, err := env.engine.Authenticate(webRequest(tok))
	assert.ErrorIs(t, err, ErrInvalidSession)

	keys := env.mr.Keys()
	var blacklisted int
	for _, k := range keys {
		if len(k) > 4 && k[:4] == "zrb:" {
			blacklisted++
		}
	}
	assert.Equal(t, 1, blacklisted)
	assert.Equal(t, uint64(1), env.engine.MetricsSnapshot().Counters[MetricLogout])
}

func TestLogoutIgnoresForeignRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ada := env.login(t, "ada@example.com")
	bo := env.login(t, "bo@example.com")

	require.NoError(t, env.engine.Logout(context.Background(), env.auth(t, ada), LogoutRequest{RefreshToken: bo.RefreshToken}))

	// bo can still rotate: the foreign token was not blacklisted
	boCaller, err := env.engine.Authenticate(mobileRequest(bo))
	require.NoError(t, err)
	_, err = env.engine.Refresh(context.Background(), boCaller, RefreshRequest{RefreshToken: bo.RefreshToken})
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), env.engine.MetricsSnapshot().Counters[MetricRevocationFailure])
}

func TestLogoutWithoutRefreshTokenAndTwice(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "ada@example.com")
	caller := env.auth(t, tok)

	require.NoError(t, env.engine.Logout(context.Background(), caller, LogoutRequest{}))
	require.NoError(t, env.engine.Logout(context.Background(), caller, LogoutRequest{}), "delete is idempotent")
}

func TestLogoutStoreDownFails(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "ada@example.com")
	caller := env.auth(t, tok)

	env.mr.Close()
	err := env.engine.Logout(context.Background(), caller, LogoutRequest{RefreshToken: tok.RefreshToken})
	assert.ErrorIs(t, err, ErrSessionBackendUnavailable)
}

func TestLogoutRequiresCaller(t *testing.T) {
	env := newTestEnv(t)
	assert.ErrorIs(t, env.engine.Logout(context.Background(), nil, LogoutRequest{}), ErrMissingCredentials)
}
